package service

import (
	"context"
	"fmt"

	"github.com/expohall/expohall-api/internal/repo/postgres"
	"github.com/expohall/expohall-api/pkg/logger"
)

// CleanupService nulls out expired magic tokens. Expiry is already enforced at
// verification time; the sweep just keeps stale secrets from lingering in the
// companies table.
type CleanupService interface {
	SweepExpiredTokens(ctx context.Context) error
}

type cleanupService struct {
	companyRepo postgres.CompanyRepo
}

func NewCleanupService(companyRepo postgres.CompanyRepo) CleanupService {
	return &cleanupService{companyRepo: companyRepo}
}

func (s *cleanupService) SweepExpiredTokens(ctx context.Context) error {
	cleared, err := s.companyRepo.DeleteExpiredTokens(ctx)
	if err != nil {
		return fmt.Errorf("failed to sweep expired tokens: %w", err)
	}
	if cleared > 0 {
		logger.InfoContext(ctx, "Cleared expired magic tokens", "count", cleared)
	}
	return nil
}

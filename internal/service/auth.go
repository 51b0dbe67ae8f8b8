package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"

	"github.com/expohall/expohall-api/internal/domain"
	"github.com/expohall/expohall-api/internal/platform/auth"
	"github.com/expohall/expohall-api/internal/repo/postgres"
	"github.com/expohall/expohall-api/pkg/config"
	"github.com/expohall/expohall-api/pkg/events"
	"github.com/expohall/expohall-api/pkg/logger"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService handles the password fallback for companies that prefer a
// username over the magic link, and admin console logins.
type AuthService interface {
	CompanyLogin(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error)
	AdminLogin(ctx context.Context, req *domain.LoginRequest) (*domain.AdminLoginResponse, error)
}

type authService struct {
	companyRepo postgres.CompanyRepo
	adminRepo   postgres.AdminRepo
	eventBus    events.EventBus
	config      *config.Config
}

func NewAuthService(
	companyRepo postgres.CompanyRepo,
	adminRepo postgres.AdminRepo,
	eventBus events.EventBus,
	config *config.Config,
) AuthService {
	return &authService{
		companyRepo: companyRepo,
		adminRepo:   adminRepo,
		eventBus:    eventBus,
		config:      config,
	}
}

func (s *authService) CompanyLogin(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	company, err := s.companyRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find company: %w", err)
	}
	if company == nil || !company.IsActive {
		return nil, ErrInvalidCredentials
	}

	valid, err := argon2id.ComparePasswordAndHash(req.Password, company.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := auth.NewCompanySession(company.ID, company.Email, s.config.Auth.JWTSecret, s.config.Auth.CompanySessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create session token: %w", err)
	}

	if err := s.companyRepo.RecordLogin(ctx, company.ID); err != nil {
		logger.WarnContext(ctx, "Failed to record login", "error", err, "company_id", company.ID)
	}

	if err := s.eventBus.Publish(ctx, events.CompanyLoggedIn, events.CompanyLoggedInEvent{
		CompanyID: company.ID,
		Method:    "password",
		At:        time.Now().UTC(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish login event", "error", err, "company_id", company.ID)
	}

	return &domain.LoginResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		Company: domain.CompanyInfo{
			ID:       company.ID,
			Name:     company.CompanyName,
			Email:    company.Email,
			Username: company.Username,
		},
	}, nil
}

func (s *authService) AdminLogin(ctx context.Context, req *domain.LoginRequest) (*domain.AdminLoginResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	admin, err := s.adminRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find admin: %w", err)
	}
	if admin == nil {
		return nil, ErrInvalidCredentials
	}

	valid, err := argon2id.ComparePasswordAndHash(req.Password, admin.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := auth.NewAdminSession(admin.ID, admin.Email, s.config.Auth.JWTSecret, s.config.Auth.AdminSessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create session token: %w", err)
	}

	return &domain.AdminLoginResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		Admin:       admin,
	}, nil
}

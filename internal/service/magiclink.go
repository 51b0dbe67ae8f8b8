package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/expohall/expohall-api/internal/domain"
	"github.com/expohall/expohall-api/internal/platform/auth"
	"github.com/expohall/expohall-api/internal/platform/mailer"
	"github.com/expohall/expohall-api/internal/platform/qr"
	"github.com/expohall/expohall-api/internal/repo/postgres"
	"github.com/expohall/expohall-api/pkg/config"
	"github.com/expohall/expohall-api/pkg/events"
	"github.com/expohall/expohall-api/pkg/logger"
)

var (
	// ErrCompanyNotFound is returned on issuance when no company matches the
	// request. Verification never returns it; unknown and expired tokens both
	// surface as ErrInvalidOrExpired so a caller can't probe which one it was.
	ErrCompanyNotFound  = errors.New("company not found")
	ErrInvalidOrExpired = errors.New("invalid or expired token")
)

type MagicLinkService interface {
	Generate(ctx context.Context, req *domain.MagicLinkRequest) (*domain.MagicLinkResult, error)
	Resend(ctx context.Context, req *domain.MagicLinkRequest) (*domain.MagicLinkResult, error)
	Verify(ctx context.Context, token string) (*domain.MagicLinkVerifyResponse, error)
}

type magicLinkService struct {
	companyRepo postgres.CompanyRepo
	mailer      mailer.Service
	eventBus    events.EventBus
	config      *config.Config
}

func NewMagicLinkService(
	companyRepo postgres.CompanyRepo,
	mailer mailer.Service,
	eventBus events.EventBus,
	config *config.Config,
) MagicLinkService {
	return &magicLinkService{
		companyRepo: companyRepo,
		mailer:      mailer,
		eventBus:    eventBus,
		config:      config,
	}
}

func (s *magicLinkService) Generate(ctx context.Context, req *domain.MagicLinkRequest) (*domain.MagicLinkResult, error) {
	// Normalize and validate
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Find company; the optional name narrows shared mailboxes
	var (
		company *domain.Company
		err     error
	)
	if req.CompanyName != "" {
		company, err = s.companyRepo.FindByEmailAndName(ctx, req.Email, req.CompanyName)
	} else {
		company, err = s.companyRepo.FindByEmail(ctx, req.Email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find company: %w", err)
	}
	if company == nil || !company.IsActive {
		return nil, ErrCompanyNotFound
	}

	return s.issue(ctx, company)
}

func (s *magicLinkService) Resend(ctx context.Context, req *domain.MagicLinkRequest) (*domain.MagicLinkResult, error) {
	// Issuing a fresh token implicitly revokes the previous one, so resend is
	// just another generate.
	return s.Generate(ctx, req)
}

// issue persists a fresh token for the company, then kicks off delivery in the
// background. The caller gets the link back even if email later fails.
func (s *magicLinkService) issue(ctx context.Context, company *domain.Company) (*domain.MagicLinkResult, error) {
	token, err := auth.NewMagicToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	expiresAt := auth.MagicTokenExpiry(s.config.MagicLink.TTL)

	if err := s.companyRepo.SetMagicToken(ctx, company.ID, token, expiresAt); err != nil {
		if err != postgres.ErrTokenConflict {
			return nil, fmt.Errorf("failed to store token: %w", err)
		}
		// Collision on the unique index; regenerate once
		if token, err = auth.NewMagicToken(); err != nil {
			return nil, fmt.Errorf("failed to generate token: %w", err)
		}
		if err := s.companyRepo.SetMagicToken(ctx, company.ID, token, expiresAt); err != nil {
			return nil, fmt.Errorf("failed to store token: %w", err)
		}
	}

	link := fmt.Sprintf("%s/auth/verify?token=%s", s.config.MagicLink.BaseURL, token)

	qrDataURI, err := qr.DataURI(link)
	if err != nil {
		logger.WarnContext(ctx, "Failed to render QR code", "error", err, "company_id", company.ID)
		qrDataURI = ""
	}

	result := &domain.MagicLinkResult{
		MagicLink: link,
		QRCode:    qrDataURI,
		ExpiresAt: expiresAt,
	}

	if company.Email == "" {
		logger.InfoContext(ctx, "Company has no email, skipping delivery", "company_id", company.ID)
		return result, nil
	}
	result.EmailSentTo = company.Email

	// Deliver without blocking the response
	go s.deliver(company, link, qrDataURI, expiresAt)

	return result, nil
}

func (s *magicLinkService) deliver(company *domain.Company, link, qrDataURI string, expiresAt time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.mailer.SendMagicLink(company.Email, company.CompanyName, link, qrDataURI, s.config.MagicLink.TTL); err != nil {
		logger.ErrorContext(ctx, "Failed to send magic link email", "error", err, "company_id", company.ID)
		// Don't fail issuance if email fails
	}

	if err := s.eventBus.Publish(ctx, events.MagicLinkIssued, events.MagicLinkIssuedEvent{
		CompanyID: company.ID,
		Email:     company.Email,
		ExpiresAt: expiresAt,
		IssuedAt:  time.Now().UTC(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish magic link event", "error", err, "company_id", company.ID)
	}
}

func (s *magicLinkService) Verify(ctx context.Context, token string) (*domain.MagicLinkVerifyResponse, error) {
	if token == "" {
		return nil, ErrInvalidOrExpired
	}

	company, err := s.companyRepo.ConsumeMagicToken(ctx, token, s.config.MagicLink.SingleUse)
	if err != nil {
		return nil, fmt.Errorf("failed to consume token: %w", err)
	}
	if company == nil {
		return nil, ErrInvalidOrExpired
	}

	accessToken, err := auth.NewCompanySession(company.ID, company.Email, s.config.Auth.JWTSecret, s.config.Auth.CompanySessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create session token: %w", err)
	}

	if err := s.eventBus.Publish(ctx, events.CompanyLoggedIn, events.CompanyLoggedInEvent{
		CompanyID: company.ID,
		Method:    "magic_link",
		At:        time.Now().UTC(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish login event", "error", err, "company_id", company.ID)
	}

	return &domain.MagicLinkVerifyResponse{
		Success:     true,
		AccessToken: accessToken,
		TokenType:   "Bearer",
		Company: domain.CompanyInfo{
			ID:       company.ID,
			Name:     company.CompanyName,
			Email:    company.Email,
			Username: company.Username,
		},
		RedirectURL: s.config.MagicLink.BaseURL + "/dashboard",
	}, nil
}

package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/expohall/expohall-api/internal/domain"
	"github.com/expohall/expohall-api/internal/repo/postgres"
	"github.com/expohall/expohall-api/internal/service"
	"github.com/expohall/expohall-api/pkg/config"
	"github.com/expohall/expohall-api/pkg/events"
)

// ---------- Mocks ----------

type mockCompanyRepo struct {
	companies    map[int64]*domain.Company
	setCalls     int
	setConflicts int // first N SetMagicToken calls hit the unique index
}

func newMockCompanyRepo(companies ...*domain.Company) *mockCompanyRepo {
	m := &mockCompanyRepo{companies: make(map[int64]*domain.Company)}
	for _, c := range companies {
		m.companies[c.ID] = c
	}
	return m
}

func (m *mockCompanyRepo) Create(_ context.Context, c *domain.Company) (*domain.Company, error) {
	m.companies[c.ID] = c
	return c, nil
}

func (m *mockCompanyRepo) FindByID(_ context.Context, id int64) (*domain.Company, error) {
	return m.companies[id], nil
}

func (m *mockCompanyRepo) FindByEmail(_ context.Context, email string) (*domain.Company, error) {
	for _, c := range m.companies {
		if strings.EqualFold(c.Email, email) {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockCompanyRepo) FindByEmailAndName(_ context.Context, email, name string) (*domain.Company, error) {
	for _, c := range m.companies {
		if strings.EqualFold(c.Email, email) && c.CompanyName == name {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockCompanyRepo) FindByUsername(_ context.Context, username string) (*domain.Company, error) {
	for _, c := range m.companies {
		if c.Username == username {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockCompanyRepo) List(context.Context, int, int) ([]domain.Company, error) { return nil, nil }

func (m *mockCompanyRepo) SetMagicToken(_ context.Context, companyID int64, token string, expiresAt time.Time) error {
	m.setCalls++
	if m.setCalls <= m.setConflicts {
		return postgres.ErrTokenConflict
	}
	c, ok := m.companies[companyID]
	if !ok {
		return errors.New("no such company")
	}
	c.MagicToken = &token
	c.TokenExpiresAt = &expiresAt
	return nil
}

func (m *mockCompanyRepo) ClearMagicToken(_ context.Context, companyID int64) error {
	if c, ok := m.companies[companyID]; ok {
		c.MagicToken = nil
		c.TokenExpiresAt = nil
	}
	return nil
}

func (m *mockCompanyRepo) ConsumeMagicToken(_ context.Context, token string, singleUse bool) (*domain.Company, error) {
	for _, c := range m.companies {
		if c.MagicToken == nil || *c.MagicToken != token {
			continue
		}
		if c.TokenExpiresAt == nil || !c.TokenExpiresAt.After(time.Now()) {
			return nil, nil
		}
		if singleUse {
			c.MagicToken = nil
			c.TokenExpiresAt = nil
		}
		c.LoginCount++
		return c, nil
	}
	return nil, nil
}

func (m *mockCompanyRepo) RecordLogin(_ context.Context, companyID int64) error {
	if c, ok := m.companies[companyID]; ok {
		c.LoginCount++
	}
	return nil
}

func (m *mockCompanyRepo) DeleteExpiredTokens(context.Context) (int64, error) { return 0, nil }

type mockMailer struct {
	sent chan string // receives recipient email per delivery
}

func newMockMailer() *mockMailer {
	return &mockMailer{sent: make(chan string, 10)}
}

func (m *mockMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	m.sent <- toEmail
	return "mock-id", nil
}

func (m *mockMailer) SendMagicLink(email, name, link, qrDataURI string, expiresIn time.Duration) error {
	m.sent <- email
	return nil
}

type mockBus struct {
	published chan string // subjects
}

func newMockBus() *mockBus { return &mockBus{published: make(chan string, 10)} }

func (m *mockBus) Publish(_ context.Context, subject string, _ interface{}) error {
	m.published <- subject
	return nil
}

func (m *mockBus) Subscribe(string, func(*events.Message)) error              { return nil }
func (m *mockBus) QueueSubscribe(string, string, func(*events.Message)) error { return nil }
func (m *mockBus) Close() error                                               { return nil }

// ---------- Helpers ----------

func testConfig(singleUse bool) *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:         "test-secret",
			CompanySessionTTL: time.Hour,
		},
		MagicLink: config.MagicLinkConfig{
			BaseURL:   "http://localhost:5173",
			TTL:       336 * time.Hour,
			SingleUse: singleUse,
		},
	}
}

func testCompany() *domain.Company {
	return &domain.Company{
		ID:          1,
		CompanyName: "Acme Robotics",
		Username:    "acme",
		Email:       "booth@acme.test",
		IsActive:    true,
	}
}

func waitFor(t *testing.T, ch chan string, what string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		return ""
	}
}

// ---------- Tests ----------

func TestGenerateIssuesToken(t *testing.T) {
	repo := newMockCompanyRepo(testCompany())
	mail := newMockMailer()
	svc := service.NewMagicLinkService(repo, mail, newMockBus(), testConfig(true))

	result, err := svc.Generate(context.Background(), &domain.MagicLinkRequest{Email: "booth@acme.test"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	stored := repo.companies[1].MagicToken
	if stored == nil || *stored == "" {
		t.Fatal("token was not persisted")
	}
	if !strings.Contains(result.MagicLink, "/auth/verify?token="+*stored) {
		t.Errorf("link %q does not carry the stored token", result.MagicLink)
	}
	if !strings.HasPrefix(result.QRCode, "data:image/png;base64,") {
		t.Errorf("QRCode = %.40q, want a PNG data URI", result.QRCode)
	}
	if result.EmailSentTo != "booth@acme.test" {
		t.Errorf("EmailSentTo = %q", result.EmailSentTo)
	}

	want := time.Now().UTC().Add(336 * time.Hour)
	if d := result.ExpiresAt.Sub(want); d < -2*time.Second || d > 2*time.Second {
		t.Errorf("expiry off by %v", d)
	}

	if to := waitFor(t, mail.sent, "magic link email"); to != "booth@acme.test" {
		t.Errorf("email sent to %q", to)
	}
}

func TestGenerateUnknownCompany(t *testing.T) {
	svc := service.NewMagicLinkService(newMockCompanyRepo(), newMockMailer(), newMockBus(), testConfig(true))

	_, err := svc.Generate(context.Background(), &domain.MagicLinkRequest{Email: "nobody@nowhere.test"})
	if !errors.Is(err, service.ErrCompanyNotFound) {
		t.Fatalf("err = %v, want ErrCompanyNotFound", err)
	}
}

func TestGenerateInactiveCompany(t *testing.T) {
	c := testCompany()
	c.IsActive = false
	svc := service.NewMagicLinkService(newMockCompanyRepo(c), newMockMailer(), newMockBus(), testConfig(true))

	_, err := svc.Generate(context.Background(), &domain.MagicLinkRequest{Email: c.Email})
	if !errors.Is(err, service.ErrCompanyNotFound) {
		t.Fatalf("err = %v, want ErrCompanyNotFound", err)
	}
}

func TestGenerateRejectsBadEmail(t *testing.T) {
	svc := service.NewMagicLinkService(newMockCompanyRepo(), newMockMailer(), newMockBus(), testConfig(true))

	if _, err := svc.Generate(context.Background(), &domain.MagicLinkRequest{Email: "not-an-email"}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestVerifySingleUse(t *testing.T) {
	repo := newMockCompanyRepo(testCompany())
	svc := service.NewMagicLinkService(repo, newMockMailer(), newMockBus(), testConfig(true))

	if _, err := svc.Generate(context.Background(), &domain.MagicLinkRequest{Email: "booth@acme.test"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	token := *repo.companies[1].MagicToken

	resp, err := svc.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !resp.Success || resp.AccessToken == "" || resp.TokenType != "Bearer" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Company.ID != 1 || resp.Company.Name != "Acme Robotics" {
		t.Errorf("company = %+v", resp.Company)
	}

	// the same link must not work twice
	if _, err := svc.Verify(context.Background(), token); !errors.Is(err, service.ErrInvalidOrExpired) {
		t.Fatalf("replay err = %v, want ErrInvalidOrExpired", err)
	}
}

func TestVerifyPermissiveAllowsReplay(t *testing.T) {
	repo := newMockCompanyRepo(testCompany())
	svc := service.NewMagicLinkService(repo, newMockMailer(), newMockBus(), testConfig(false))

	if _, err := svc.Generate(context.Background(), &domain.MagicLinkRequest{Email: "booth@acme.test"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	token := *repo.companies[1].MagicToken

	for i := 0; i < 3; i++ {
		if _, err := svc.Verify(context.Background(), token); err != nil {
			t.Fatalf("Verify #%d: %v", i+1, err)
		}
	}
	if repo.companies[1].LoginCount != 3 {
		t.Errorf("LoginCount = %d, want 3", repo.companies[1].LoginCount)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	c := testCompany()
	token := "stale-token"
	expired := time.Now().UTC().Add(-time.Minute)
	c.MagicToken = &token
	c.TokenExpiresAt = &expired

	svc := service.NewMagicLinkService(newMockCompanyRepo(c), newMockMailer(), newMockBus(), testConfig(true))

	if _, err := svc.Verify(context.Background(), token); !errors.Is(err, service.ErrInvalidOrExpired) {
		t.Fatalf("err = %v, want ErrInvalidOrExpired", err)
	}
}

func TestVerifyUnknownAndEmptyToken(t *testing.T) {
	svc := service.NewMagicLinkService(newMockCompanyRepo(testCompany()), newMockMailer(), newMockBus(), testConfig(true))

	if _, err := svc.Verify(context.Background(), "never-issued"); !errors.Is(err, service.ErrInvalidOrExpired) {
		t.Fatalf("unknown token err = %v", err)
	}
	if _, err := svc.Verify(context.Background(), ""); !errors.Is(err, service.ErrInvalidOrExpired) {
		t.Fatalf("empty token err = %v", err)
	}
}

func TestReissueRevokesPreviousToken(t *testing.T) {
	repo := newMockCompanyRepo(testCompany())
	svc := service.NewMagicLinkService(repo, newMockMailer(), newMockBus(), testConfig(true))

	req := &domain.MagicLinkRequest{Email: "booth@acme.test"}
	if _, err := svc.Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	first := *repo.companies[1].MagicToken

	if _, err := svc.Resend(context.Background(), req); err != nil {
		t.Fatalf("Resend: %v", err)
	}
	second := *repo.companies[1].MagicToken
	if first == second {
		t.Fatal("resend reused the previous token")
	}

	if _, err := svc.Verify(context.Background(), first); !errors.Is(err, service.ErrInvalidOrExpired) {
		t.Fatalf("revoked token err = %v, want ErrInvalidOrExpired", err)
	}
	if _, err := svc.Verify(context.Background(), second); err != nil {
		t.Fatalf("fresh token: %v", err)
	}
}

func TestGenerateRetriesTokenCollision(t *testing.T) {
	repo := newMockCompanyRepo(testCompany())
	repo.setConflicts = 1
	svc := service.NewMagicLinkService(repo, newMockMailer(), newMockBus(), testConfig(true))

	result, err := svc.Generate(context.Background(), &domain.MagicLinkRequest{Email: "booth@acme.test"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if repo.setCalls != 2 {
		t.Errorf("SetMagicToken calls = %d, want 2", repo.setCalls)
	}

	stored := repo.companies[1].MagicToken
	if stored == nil || *stored == "" {
		t.Fatal("regenerated token was not persisted")
	}
	if !strings.Contains(result.MagicLink, "/auth/verify?token="+*stored) {
		t.Errorf("link %q does not carry the regenerated token", result.MagicLink)
	}
}

func TestGenerateFailsOnRepeatedCollision(t *testing.T) {
	repo := newMockCompanyRepo(testCompany())
	repo.setConflicts = 2
	svc := service.NewMagicLinkService(repo, newMockMailer(), newMockBus(), testConfig(true))

	_, err := svc.Generate(context.Background(), &domain.MagicLinkRequest{Email: "booth@acme.test"})
	if !errors.Is(err, postgres.ErrTokenConflict) {
		t.Fatalf("err = %v, want wrapped ErrTokenConflict", err)
	}
	if repo.setCalls != 2 {
		t.Errorf("SetMagicToken calls = %d, want 2 (one retry only)", repo.setCalls)
	}
}

// emaillessLookupRepo finds the company regardless of the address on file, the
// way an alternate lookup path could. Drives issuance for a company whose row
// has no email.
type emaillessLookupRepo struct{ *mockCompanyRepo }

func (r emaillessLookupRepo) FindByEmail(_ context.Context, _ string) (*domain.Company, error) {
	return r.companies[1], nil
}

func TestIssueWithoutEmailSkipsDelivery(t *testing.T) {
	c := testCompany()
	c.Email = ""
	mail := newMockMailer()
	repo := emaillessLookupRepo{newMockCompanyRepo(c)}
	svc := service.NewMagicLinkService(repo, mail, newMockBus(), testConfig(true))

	result, err := svc.Generate(context.Background(), &domain.MagicLinkRequest{Email: "booth@acme.test"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.EmailSentTo != "" {
		t.Errorf("EmailSentTo = %q, want empty", result.EmailSentTo)
	}
	if result.MagicLink == "" || repo.companies[1].MagicToken == nil {
		t.Error("token should still be issued and persisted")
	}

	select {
	case to := <-mail.sent:
		t.Fatalf("unexpected email to %q", to)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestGenerateCompanyWithoutEmailOnFile(t *testing.T) {
	c := testCompany()
	c.Email = ""
	repo := newMockCompanyRepo(c)
	mail := newMockMailer()
	svc := service.NewMagicLinkService(repo, mail, newMockBus(), testConfig(true))

	// the address on file is gone, so the lookup misses and nothing is sent
	_, err := svc.Generate(context.Background(), &domain.MagicLinkRequest{Email: "booth@acme.test", CompanyName: "Acme Robotics"})
	if !errors.Is(err, service.ErrCompanyNotFound) {
		t.Fatalf("err = %v, want ErrCompanyNotFound", err)
	}

	select {
	case to := <-mail.sent:
		t.Fatalf("unexpected email to %q", to)
	case <-time.After(100 * time.Millisecond):
	}
}

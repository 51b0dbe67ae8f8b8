package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/expohall/expohall-api/internal/domain"
	"github.com/expohall/expohall-api/internal/http/handlers"
	"github.com/expohall/expohall-api/internal/service"
	"github.com/expohall/expohall-api/pkg/config"
)

// ---------- Mocks ----------

type mockMagicLinks struct {
	issueResult *domain.MagicLinkResult
	issueErr    error
	verifyResp  *domain.MagicLinkVerifyResponse
	lastToken   string
	generates   int
	resends     int
}

func (m *mockMagicLinks) Generate(_ context.Context, req *domain.MagicLinkRequest) (*domain.MagicLinkResult, error) {
	m.generates++
	if m.issueErr != nil {
		return nil, m.issueErr
	}
	return m.issueResult, nil
}

func (m *mockMagicLinks) Resend(ctx context.Context, req *domain.MagicLinkRequest) (*domain.MagicLinkResult, error) {
	m.resends++
	if m.issueErr != nil {
		return nil, m.issueErr
	}
	return m.issueResult, nil
}

func (m *mockMagicLinks) Verify(_ context.Context, token string) (*domain.MagicLinkVerifyResponse, error) {
	m.lastToken = token
	if m.verifyResp == nil || token == "" {
		return nil, service.ErrInvalidOrExpired
	}
	return m.verifyResp, nil
}

type mockAuth struct {
	loginResp *domain.LoginResponse
	loginErr  error
}

func (m *mockAuth) CompanyLogin(_ context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return m.loginResp, nil
}

func (m *mockAuth) AdminLogin(_ context.Context, _ *domain.LoginRequest) (*domain.AdminLoginResponse, error) {
	return nil, service.ErrInvalidCredentials
}

// ---------- Helpers ----------

func newAuthServer(magicLinks *mockMagicLinks, auth *mockAuth, devMode bool) *httptest.Server {
	cfg := &config.Config{}
	cfg.Email.DevMode = devMode

	h := handlers.NewAuthHandler(magicLinks, auth, nil, cfg)
	return httptest.NewServer(h.Routes())
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func issueResult() *domain.MagicLinkResult {
	return &domain.MagicLinkResult{
		MagicLink:   "http://localhost:5173/auth/verify?token=abc123",
		QRCode:      "data:image/png;base64,xxxx",
		ExpiresAt:   time.Now().UTC().Add(336 * time.Hour),
		EmailSentTo: "booth@acme.test",
	}
}

// ---------- Tests ----------

func TestRequestMagicLink(t *testing.T) {
	magicLinks := &mockMagicLinks{issueResult: issueResult()}
	srv := newAuthServer(magicLinks, &mockAuth{}, false)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/magic-link", domain.MagicLinkRequest{Email: "booth@acme.test"})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["email_sent_to"] != "booth@acme.test" {
		t.Errorf("email_sent_to = %v", body["email_sent_to"])
	}
	if body["qr_code"] != "data:image/png;base64,xxxx" {
		t.Errorf("qr_code = %v", body["qr_code"])
	}
	if _, leaked := body["dev_magic_link"]; leaked {
		t.Error("raw magic link exposed outside dev mode")
	}
	if magicLinks.generates != 1 {
		t.Errorf("generates = %d, want 1", magicLinks.generates)
	}
}

func TestRequestMagicLinkDevModeExposesLink(t *testing.T) {
	magicLinks := &mockMagicLinks{issueResult: issueResult()}
	srv := newAuthServer(magicLinks, &mockAuth{}, true)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/magic-link", domain.MagicLinkRequest{Email: "booth@acme.test"})
	body := decodeBody(t, resp)
	if body["dev_magic_link"] != magicLinks.issueResult.MagicLink {
		t.Errorf("dev_magic_link = %v", body["dev_magic_link"])
	}
}

func TestRequestMagicLinkUnknownCompany(t *testing.T) {
	magicLinks := &mockMagicLinks{issueErr: service.ErrCompanyNotFound}
	srv := newAuthServer(magicLinks, &mockAuth{}, false)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/magic-link", domain.MagicLinkRequest{Email: "nobody@acme.test"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["code"] != "NOT_FOUND" {
		t.Errorf("code = %v", body["code"])
	}
}

func TestRequestMagicLinkBadJSON(t *testing.T) {
	srv := newAuthServer(&mockMagicLinks{}, &mockAuth{}, false)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/magic-link", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestResendMagicLink(t *testing.T) {
	magicLinks := &mockMagicLinks{issueResult: issueResult()}
	srv := newAuthServer(magicLinks, &mockAuth{}, false)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/resend-magic-link", domain.MagicLinkRequest{Email: "booth@acme.test"})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	resp.Body.Close()
	if magicLinks.resends != 1 {
		t.Errorf("resends = %d, want 1", magicLinks.resends)
	}
}

func TestVerify(t *testing.T) {
	magicLinks := &mockMagicLinks{
		verifyResp: &domain.MagicLinkVerifyResponse{
			Success:     true,
			AccessToken: "jwt-token",
			TokenType:   "Bearer",
			Company:     domain.CompanyInfo{ID: 1, Name: "Acme Robotics"},
			RedirectURL: "http://localhost:5173/dashboard",
		},
	}
	srv := newAuthServer(magicLinks, &mockAuth{}, false)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/verify?token=good-token")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["access_token"] != "jwt-token" || body["token_type"] != "Bearer" {
		t.Errorf("body = %v", body)
	}
	if magicLinks.lastToken != "good-token" {
		t.Errorf("token passed to service = %q", magicLinks.lastToken)
	}
}

func TestVerifyInvalidToken(t *testing.T) {
	srv := newAuthServer(&mockMagicLinks{}, &mockAuth{}, false)
	defer srv.Close()

	for _, path := range []string{"/verify?token=bogus", "/verify"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s status = %d, want 401", path, resp.StatusCode)
		}
		body := decodeBody(t, resp)
		if body["code"] != "INVALID_TOKEN" {
			t.Errorf("GET %s code = %v", path, body["code"])
		}
	}
}

func TestCompanyLogin(t *testing.T) {
	auth := &mockAuth{
		loginResp: &domain.LoginResponse{
			AccessToken: "jwt-token",
			TokenType:   "Bearer",
			Company:     domain.CompanyInfo{ID: 1, Name: "Acme Robotics", Username: "acme"},
		},
	}
	srv := newAuthServer(&mockMagicLinks{}, auth, false)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/login", domain.LoginRequest{Username: "acme", Password: "hunter2"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["access_token"] != "jwt-token" {
		t.Errorf("access_token = %v", body["access_token"])
	}
}

func TestCompanyLoginBadCredentials(t *testing.T) {
	srv := newAuthServer(&mockMagicLinks{}, &mockAuth{loginErr: service.ErrInvalidCredentials}, false)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/login", domain.LoginRequest{Username: "acme", Password: "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()
}

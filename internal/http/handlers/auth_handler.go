package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/expohall/expohall-api/internal/domain"
	httpmw "github.com/expohall/expohall-api/internal/http/middleware"
	"github.com/expohall/expohall-api/internal/http/response"
	"github.com/expohall/expohall-api/internal/service"
	"github.com/expohall/expohall-api/pkg/config"
)

type AuthHandler struct {
	MagicLinks service.MagicLinkService
	Auth       service.AuthService
	Limiter    *httpmw.RateLimiter
	Config     *config.Config
}

func NewAuthHandler(magicLinks service.MagicLinkService, auth service.AuthService, limiter *httpmw.RateLimiter, cfg *config.Config) *AuthHandler {
	return &AuthHandler{MagicLinks: magicLinks, Auth: auth, Limiter: limiter, Config: cfg}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		if h.Limiter != nil {
			r.Use(h.Limiter.Middleware())
		}
		r.Post("/magic-link", h.requestMagicLink)
		r.Post("/resend-magic-link", h.resendMagicLink)
	})
	r.Get("/verify", h.verify)
	r.Post("/login", h.login)
	return r
}

func (h *AuthHandler) requestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req domain.MagicLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}
	if !h.allowEmail(r, req.Email) {
		response.RateLimit(w, "Too many requests. Try again later.")
		return
	}

	result, err := h.MagicLinks.Generate(r.Context(), &req)
	if err != nil {
		h.writeIssueError(w, err)
		return
	}

	h.writeIssueResult(w, result)
}

func (h *AuthHandler) resendMagicLink(w http.ResponseWriter, r *http.Request) {
	var req domain.MagicLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}
	if !h.allowEmail(r, req.Email) {
		response.RateLimit(w, "Too many requests. Try again later.")
		return
	}

	result, err := h.MagicLinks.Resend(r.Context(), &req)
	if err != nil {
		h.writeIssueError(w, err)
		return
	}

	h.writeIssueResult(w, result)
}

// allowEmail throttles per-address on top of the per-IP middleware so a
// rotating-IP caller can't spam one mailbox.
func (h *AuthHandler) allowEmail(r *http.Request, email string) bool {
	if h.Limiter == nil || email == "" {
		return true
	}
	return h.Limiter.Allow(r.Context(), "email:"+strings.ToLower(strings.TrimSpace(email)))
}

func (h *AuthHandler) writeIssueError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrCompanyNotFound):
		response.NotFound(w, "No company registered for this email")
	case errors.Is(err, service.ErrInvalidOrExpired):
		response.WriteError(w, http.StatusUnauthorized, "Invalid or expired token", response.CodeInvalidToken)
	case strings.HasPrefix(err.Error(), "validation failed"):
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w, "Failed to issue magic link")
	}
}

func (h *AuthHandler) writeIssueResult(w http.ResponseWriter, result *domain.MagicLinkResult) {
	payload := map[string]interface{}{
		"message":    "Magic link issued",
		"expires_at": result.ExpiresAt,
		"qr_code":    result.QRCode,
	}
	if result.EmailSentTo != "" {
		payload["email_sent_to"] = result.EmailSentTo
	}
	// The raw link only leaves the server in dev mode; in production it travels
	// by email alone.
	if h.Config.Email.DevMode {
		payload["dev_magic_link"] = result.MagicLink
	}
	response.WriteJSON(w, http.StatusAccepted, payload)
}

func (h *AuthHandler) verify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	resp, err := h.MagicLinks.Verify(r.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrInvalidOrExpired) {
			response.WriteError(w, http.StatusUnauthorized, "Invalid or expired token", response.CodeInvalidToken)
			return
		}
		response.InternalError(w, "Verification failed")
		return
	}

	response.WriteJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	resp, err := h.Auth.CompanyLogin(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(w, "Invalid credentials")
			return
		}
		response.InternalError(w, "Login failed")
		return
	}

	response.WriteJSON(w, http.StatusOK, resp)
}

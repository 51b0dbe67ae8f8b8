package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/alexedwards/argon2id"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/expohall/expohall-api/internal/domain"
	httpmw "github.com/expohall/expohall-api/internal/http/middleware"
	"github.com/expohall/expohall-api/internal/http/response"
	"github.com/expohall/expohall-api/internal/repo/postgres"
	"github.com/expohall/expohall-api/internal/service"
	"github.com/expohall/expohall-api/internal/utils"
	"github.com/expohall/expohall-api/pkg/config"
	"github.com/expohall/expohall-api/pkg/logger"
)

// AdminHandler is the back-office surface: admin login plus company
// onboarding. Creating a company also issues its first magic link so the
// exhibitor can sign in straight from the welcome email.
type AdminHandler struct {
	Auth       service.AuthService
	MagicLinks service.MagicLinkService
	Companies  postgres.CompanyRepo
	Config     *config.Config
}

func NewAdminHandler(auth service.AuthService, magicLinks service.MagicLinkService, companies postgres.CompanyRepo, cfg *config.Config) *AdminHandler {
	return &AdminHandler{Auth: auth, MagicLinks: magicLinks, Companies: companies, Config: cfg}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.login)
	r.Group(func(r chi.Router) {
		r.Use(httpmw.RequireJWT(h.Config.Auth.JWTSecret))
		r.Use(httpmw.RequireRole("admin"))
		r.Post("/companies", h.createCompany)
		r.Get("/companies", h.listCompanies)
	})
	return r
}

func (h *AdminHandler) login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	resp, err := h.Auth.AdminLogin(r.Context(), &req)
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

func (h *AdminHandler) createCompany(w http.ResponseWriter, r *http.Request) {
	var req domain.CompanyCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	req.CompanyName = utils.NormalizeString(req.CompanyName)
	req.Username = utils.NormalizeString(req.Username)
	req.Email = utils.NormalizeEmail(req.Email)
	if req.CompanyName == "" || req.Username == "" || req.Password == "" {
		response.BadRequest(w, "company_name, username and password are required")
		return
	}
	if req.Email != "" && !utils.IsValidEmail(req.Email) {
		response.BadRequest(w, "invalid email")
		return
	}

	hash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		response.InternalError(w, "Failed to hash password")
		return
	}

	company := &domain.Company{
		CompanyName:    req.CompanyName,
		Username:       req.Username,
		PasswordHash:   hash,
		BusinessNumber: req.BusinessNumber,
		Email:          req.Email,
		Phone:          utils.NormalizePhone(req.Phone),
		Address:        req.Address,
		WebsiteURL:     req.WebsiteURL,
	}
	if claims := httpmw.Claims(r); claims != nil {
		company.CreatedBy = &claims.Sub
	}

	created, err := h.Companies.Create(r.Context(), company)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			response.WriteError(w, http.StatusConflict, "Username or email already registered", response.CodeEmailExists)
			return
		}
		response.InternalError(w, "Failed to create company")
		return
	}

	payload := map[string]interface{}{
		"company": created,
	}

	// First magic link rides along with the welcome email
	if created.Email != "" {
		result, err := h.MagicLinks.Generate(r.Context(), &domain.MagicLinkRequest{Email: created.Email, CompanyName: created.CompanyName})
		if err != nil {
			logger.ErrorContext(r.Context(), "Failed to issue onboarding magic link", "error", err, "company_id", created.ID)
		} else {
			payload["magic_link_expires_at"] = result.ExpiresAt
			if h.Config.Email.DevMode {
				payload["dev_magic_link"] = result.MagicLink
			}
		}
	}

	response.WriteJSON(w, http.StatusCreated, payload)
}

func (h *AdminHandler) listCompanies(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	companies, err := h.Companies.List(r.Context(), limit, offset)
	if err != nil {
		response.InternalError(w, "Failed to list companies")
		return
	}
	if companies == nil {
		companies = []domain.Company{}
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"companies": companies,
		"limit":     limit,
		"offset":    offset,
	})
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}

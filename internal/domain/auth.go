package domain

import (
	"errors"
	"time"

	"github.com/expohall/expohall-api/internal/utils"
)

type MagicLinkRequest struct {
	Email       string `json:"email"`
	CompanyName string `json:"company_name"`
}

func (r *MagicLinkRequest) Normalize() {
	r.Email = utils.NormalizeEmail(r.Email)
	r.CompanyName = utils.NormalizeString(r.CompanyName)
}

func (r *MagicLinkRequest) Validate() error {
	if !utils.IsValidEmail(r.Email) {
		return errors.New("a valid email is required")
	}
	return nil
}

// MagicLinkResult is returned to the caller synchronously; delivery happens in
// the background and EmailSentTo is empty when the company has no address.
type MagicLinkResult struct {
	MagicLink   string    `json:"magic_link"`
	QRCode      string    `json:"qr_code"`
	ExpiresAt   time.Time `json:"expires_at"`
	EmailSentTo string    `json:"email_sent_to,omitempty"`
}

type CompanyInfo struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username"`
}

type MagicLinkVerifyResponse struct {
	Success     bool        `json:"success"`
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	Company     CompanyInfo `json:"company"`
	RedirectURL string      `json:"redirect_url,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	Company     CompanyInfo `json:"company"`
}

type AdminLoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Admin       *Admin `json:"admin"`
}

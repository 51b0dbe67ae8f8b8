package domain

import "time"

// Company is the exhibiting principal. MagicToken/TokenExpiresAt are either
// both set or both null; storage enforces the pairing with a check constraint.
type Company struct {
	ID             int64      `json:"id"`
	CompanyName    string     `json:"company_name"`
	Username       string     `json:"username"`
	PasswordHash   string     `json:"-"`
	BusinessNumber string     `json:"business_number,omitempty"`
	Email          string     `json:"email,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	Address        string     `json:"address,omitempty"`
	WebsiteURL     string     `json:"website_url,omitempty"`
	MagicToken     *string    `json:"-"`
	TokenExpiresAt *time.Time `json:"-"`
	IsActive       bool       `json:"is_active"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	LoginCount     int        `json:"login_count"`
	CreatedBy      *int64     `json:"created_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type CompanyCreateRequest struct {
	CompanyName    string `json:"company_name"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	BusinessNumber string `json:"business_number,omitempty"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Address        string `json:"address,omitempty"`
	WebsiteURL     string `json:"website_url,omitempty"`
}

type Admin struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	CreatedAt    time.Time `json:"created_at"`
}

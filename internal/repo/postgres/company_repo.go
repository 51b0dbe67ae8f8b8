package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expohall/expohall-api/internal/domain"
)

// ErrTokenConflict is returned when a freshly generated magic token collides
// with the unique index. Astronomically unlikely at 32 bytes of entropy; the
// service regenerates once instead of failing the issuance.
var ErrTokenConflict = errors.New("magic token collision")

type CompanyRepo interface {
	Create(ctx context.Context, c *domain.Company) (*domain.Company, error)
	FindByID(ctx context.Context, id int64) (*domain.Company, error)
	FindByEmail(ctx context.Context, email string) (*domain.Company, error)
	FindByEmailAndName(ctx context.Context, email, companyName string) (*domain.Company, error)
	FindByUsername(ctx context.Context, username string) (*domain.Company, error)
	List(ctx context.Context, limit, offset int) ([]domain.Company, error)

	// SetMagicToken writes token and expiry in one statement. Overwriting
	// implicitly revokes whatever token the company held before; two
	// concurrent issuances race with last-write-wins semantics.
	SetMagicToken(ctx context.Context, companyID int64, token string, expiresAt time.Time) error
	ClearMagicToken(ctx context.Context, companyID int64) error
	// ConsumeMagicToken validates a presented token against stored state and,
	// when singleUse is set, clears it in the same statement. Returns
	// (nil, nil) for unknown and expired tokens alike.
	ConsumeMagicToken(ctx context.Context, token string, singleUse bool) (*domain.Company, error)
	RecordLogin(ctx context.Context, companyID int64) error
	DeleteExpiredTokens(ctx context.Context) (int64, error)
}

type CompanyRepoImpl struct{ pool *pgxpool.Pool }

func NewCompanyRepo(pool *pgxpool.Pool) *CompanyRepoImpl { return &CompanyRepoImpl{pool: pool} }

const companyCols = `id, company_name, username, password_hash,
COALESCE(business_number,''), COALESCE(email,''), COALESCE(phone,''),
COALESCE(address,''), COALESCE(website_url,''),
magic_token, token_expires_at, is_active, last_login_at, login_count,
created_by, created_at, updated_at`

func scanCompany(row pgx.Row) (*domain.Company, error) {
	var c domain.Company
	err := row.Scan(
		&c.ID, &c.CompanyName, &c.Username, &c.PasswordHash,
		&c.BusinessNumber, &c.Email, &c.Phone,
		&c.Address, &c.WebsiteURL,
		&c.MagicToken, &c.TokenExpiresAt, &c.IsActive, &c.LastLoginAt, &c.LoginCount,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CompanyRepoImpl) Create(ctx context.Context, c *domain.Company) (*domain.Company, error) {
	const q = `
INSERT INTO companies (company_name, username, password_hash, business_number, email, phone, address, website_url, created_by)
VALUES ($1,$2,$3,NULLIF($4,''),NULLIF($5,''),NULLIF($6,''),NULLIF($7,''),NULLIF($8,''),$9)
RETURNING ` + companyCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanCompany(r.pool.QueryRow(ctx, q,
		c.CompanyName, c.Username, c.PasswordHash, c.BusinessNumber,
		c.Email, c.Phone, c.Address, c.WebsiteURL, c.CreatedBy,
	))
}

func (r *CompanyRepoImpl) FindByID(ctx context.Context, id int64) (*domain.Company, error) {
	const q = `SELECT ` + companyCols + ` FROM companies WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	c, err := scanCompany(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (r *CompanyRepoImpl) FindByEmail(ctx context.Context, email string) (*domain.Company, error) {
	const q = `SELECT ` + companyCols + ` FROM companies WHERE lower(email)=lower($1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	c, err := scanCompany(r.pool.QueryRow(ctx, q, email))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (r *CompanyRepoImpl) FindByEmailAndName(ctx context.Context, email, companyName string) (*domain.Company, error) {
	const q = `SELECT ` + companyCols + ` FROM companies WHERE lower(email)=lower($1) AND company_name=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	c, err := scanCompany(r.pool.QueryRow(ctx, q, email, companyName))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (r *CompanyRepoImpl) FindByUsername(ctx context.Context, username string) (*domain.Company, error) {
	const q = `SELECT ` + companyCols + ` FROM companies WHERE username=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	c, err := scanCompany(r.pool.QueryRow(ctx, q, username))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (r *CompanyRepoImpl) List(ctx context.Context, limit, offset int) ([]domain.Company, error) {
	const q = `SELECT ` + companyCols + ` FROM companies ORDER BY id LIMIT $1 OFFSET $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *CompanyRepoImpl) SetMagicToken(ctx context.Context, companyID int64, token string, expiresAt time.Time) error {
	const q = `
UPDATE companies
SET magic_token = $2, token_expires_at = $3, updated_at = now()
WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	tag, err := r.pool.Exec(ctx, q, companyID, token, expiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrTokenConflict
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *CompanyRepoImpl) ClearMagicToken(ctx context.Context, companyID int64) error {
	const q = `
UPDATE companies
SET magic_token = NULL, token_expires_at = NULL, updated_at = now()
WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.pool.Exec(ctx, q, companyID)
	return err
}

func (r *CompanyRepoImpl) ConsumeMagicToken(ctx context.Context, token string, singleUse bool) (*domain.Company, error) {
	// Both variants check expiry in SQL so the stored timestamptz is compared
	// against the database clock, never a process-local one.
	const strict = `
UPDATE companies
SET magic_token = NULL, token_expires_at = NULL,
    last_login_at = now(), login_count = login_count + 1, updated_at = now()
WHERE magic_token = $1 AND token_expires_at > now()
RETURNING ` + companyCols
	const permissive = `
UPDATE companies
SET last_login_at = now(), login_count = login_count + 1, updated_at = now()
WHERE magic_token = $1 AND token_expires_at > now()
RETURNING ` + companyCols

	q := permissive
	if singleUse {
		q = strict
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	c, err := scanCompany(r.pool.QueryRow(ctx, q, token))
	if err == pgx.ErrNoRows {
		return nil, nil // unknown or expired
	}
	return c, err
}

func (r *CompanyRepoImpl) RecordLogin(ctx context.Context, companyID int64) error {
	const q = `
UPDATE companies
SET last_login_at = now(), login_count = login_count + 1, updated_at = now()
WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.pool.Exec(ctx, q, companyID)
	return err
}

func (r *CompanyRepoImpl) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	const q = `
UPDATE companies
SET magic_token = NULL, token_expires_at = NULL, updated_at = now()
WHERE magic_token IS NOT NULL AND token_expires_at <= now()`
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	tag, err := r.pool.Exec(ctx, q)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expohall/expohall-api/internal/domain"
)

type AdminRepo interface {
	FindByUsername(ctx context.Context, username string) (*domain.Admin, error)
	Create(ctx context.Context, username, passwordHash, name, email string) (*domain.Admin, error)
}

type AdminRepoImpl struct{ pool *pgxpool.Pool }

func NewAdminRepo(pool *pgxpool.Pool) *AdminRepoImpl { return &AdminRepoImpl{pool: pool} }

func (r *AdminRepoImpl) FindByUsername(ctx context.Context, username string) (*domain.Admin, error) {
	const q = `SELECT id, username, password_hash, name, COALESCE(email,''), created_at FROM admins WHERE username=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var a domain.Admin
	err := r.pool.QueryRow(ctx, q, username).Scan(
		&a.ID, &a.Username, &a.PasswordHash, &a.Name, &a.Email, &a.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AdminRepoImpl) Create(ctx context.Context, username, passwordHash, name, email string) (*domain.Admin, error) {
	const q = `
INSERT INTO admins (username, password_hash, name, email)
VALUES ($1,$2,$3,NULLIF($4,''))
RETURNING id, username, password_hash, name, COALESCE(email,''), created_at`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var a domain.Admin
	err := r.pool.QueryRow(ctx, q, username, passwordHash, name, email).Scan(
		&a.ID, &a.Username, &a.PasswordHash, &a.Name, &a.Email, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repairshop-session/internal/domain"
)

// SuperAdminRepository defines persistence access for platform operators.
type SuperAdminRepository interface {
	GetByID(ctx context.Context, id string) (*domain.SuperAdmin, error)
	GetByEmail(ctx context.Context, email string) (*domain.SuperAdmin, error)
}

type superAdminRepository struct {
	pool *pgxpool.Pool
}

// NewSuperAdminRepository returns a Postgres-backed implementation.
func NewSuperAdminRepository(pool *pgxpool.Pool) SuperAdminRepository {
	return &superAdminRepository{pool: pool}
}

func (r *superAdminRepository) GetByID(ctx context.Context, id string) (*domain.SuperAdmin, error) {
	const query = `
        SELECT id, name, email, password_hash, created_at, updated_at
        FROM super_admins WHERE id=$1`

	var admin domain.SuperAdmin
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&admin.ID,
		&admin.Name,
		&admin.Email,
		&admin.PasswordHash,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *superAdminRepository) GetByEmail(ctx context.Context, email string) (*domain.SuperAdmin, error) {
	const query = `
        SELECT id, name, email, password_hash, created_at, updated_at
        FROM super_admins WHERE email=$1`

	var admin domain.SuperAdmin
	if err := r.pool.QueryRow(ctx, query, email).Scan(
		&admin.ID,
		&admin.Name,
		&admin.Email,
		&admin.PasswordHash,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &admin, nil
}

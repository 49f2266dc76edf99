package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repairshop-session/internal/domain"
)

// CenterRepository defines persistence access for the tenant hierarchy.
type CenterRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Center, error)
	ListStoresByCenter(ctx context.Context, centerID string) ([]domain.Store, error)
	GetStore(ctx context.Context, storeID string) (*domain.Store, error)
}

type centerRepository struct {
	pool *pgxpool.Pool
}

// NewCenterRepository returns a Postgres-backed implementation.
func NewCenterRepository(pool *pgxpool.Pool) CenterRepository {
	return &centerRepository{pool: pool}
}

func (r *centerRepository) GetByID(ctx context.Context, id string) (*domain.Center, error) {
	const query = `
        SELECT id, name, created_at, updated_at
        FROM centers WHERE id=$1`

	var center domain.Center
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&center.ID,
		&center.Name,
		&center.CreatedAt,
		&center.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &center, nil
}

func (r *centerRepository) ListStoresByCenter(ctx context.Context, centerID string) ([]domain.Store, error) {
	const query = `
        SELECT id, center_id, name, active, created_at, updated_at
        FROM stores WHERE center_id=$1 AND active=TRUE
        ORDER BY name`

	rows, err := r.pool.Query(ctx, query, centerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stores []domain.Store
	for rows.Next() {
		var store domain.Store
		if err := rows.Scan(
			&store.ID,
			&store.CenterID,
			&store.Name,
			&store.Active,
			&store.CreatedAt,
			&store.UpdatedAt,
		); err != nil {
			return nil, err
		}
		stores = append(stores, store)
	}
	return stores, rows.Err()
}

func (r *centerRepository) GetStore(ctx context.Context, storeID string) (*domain.Store, error) {
	const query = `
        SELECT id, center_id, name, active, created_at, updated_at
        FROM stores WHERE id=$1`

	var store domain.Store
	if err := r.pool.QueryRow(ctx, query, storeID).Scan(
		&store.ID,
		&store.CenterID,
		&store.Name,
		&store.Active,
		&store.CreatedAt,
		&store.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &store, nil
}

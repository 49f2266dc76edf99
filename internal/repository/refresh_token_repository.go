package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repairshop-session/internal/domain"
)

// RefreshToken is the persisted record of an issued refresh token. Only
// the SHA-256 digest of the opaque token is stored.
type RefreshToken struct {
	ID          string
	SubjectKind domain.ActorKind
	SubjectID   string
	TokenHash   string
	ExpiresAt   time.Time
	Revoked     bool
	CreatedAt   time.Time
}

// RefreshTokenRepository defines persistence access for refresh tokens.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *RefreshToken) error
	GetByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllForSubject(ctx context.Context, subjectKind domain.ActorKind, subjectID string) error
}

type refreshTokenRepository struct {
	pool *pgxpool.Pool
}

// NewRefreshTokenRepository returns a Postgres-backed implementation.
func NewRefreshTokenRepository(pool *pgxpool.Pool) RefreshTokenRepository {
	return &refreshTokenRepository{pool: pool}
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *RefreshToken) error {
	const query = `
        INSERT INTO refresh_tokens (subject_kind, subject_id, token_hash, expires_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		token.SubjectKind,
		token.SubjectID,
		token.TokenHash,
		token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
}

func (r *refreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	const query = `
        SELECT id, subject_kind, subject_id, token_hash, expires_at, revoked, created_at
        FROM refresh_tokens WHERE token_hash=$1`

	var token RefreshToken
	if err := r.pool.QueryRow(ctx, query, tokenHash).Scan(
		&token.ID,
		&token.SubjectKind,
		&token.SubjectID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.Revoked,
		&token.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *refreshTokenRepository) Revoke(ctx context.Context, id string) error {
	const query = `UPDATE refresh_tokens SET revoked=TRUE WHERE id=$1`

	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *refreshTokenRepository) RevokeAllForSubject(ctx context.Context, subjectKind domain.ActorKind, subjectID string) error {
	const query = `UPDATE refresh_tokens SET revoked=TRUE WHERE subject_kind=$1 AND subject_id=$2`

	_, err := r.pool.Exec(ctx, query, subjectKind, subjectID)
	return err
}

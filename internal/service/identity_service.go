package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/repairshop-session/internal/auth"
	"github.com/spec-kit/repairshop-session/internal/config"
	"github.com/spec-kit/repairshop-session/internal/domain"
	"github.com/spec-kit/repairshop-session/internal/repository"
	"github.com/spec-kit/repairshop-session/pkg/util"
)

// LoginOutcome carries everything a successful authentication produces.
type LoginOutcome struct {
	Actor        *domain.Actor
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// VerifyOutcome is the result of a secondary-factor check. Tokens are
// rotated on success so the caller holds a pin-verified access token.
type VerifyOutcome struct {
	Verified     bool
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// IdentityService implements authentication, secondary-factor
// verification and refresh-token lifecycle for the identity provider.
type IdentityService struct {
	employees   repository.EmployeeRepository
	superAdmins repository.SuperAdminRepository
	refreshRepo repository.RefreshTokenRepository
	centers     repository.CenterRepository
	tokenMgr    *auth.TokenManager
	limiter     *keyedLimiter
	refreshTTL  time.Duration
}

// IdentityDependencies encapsulates repo requirements for the identity service.
type IdentityDependencies struct {
	EmployeeRepo     repository.EmployeeRepository
	SuperAdminRepo   repository.SuperAdminRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	CenterRepo       repository.CenterRepository
}

// NewIdentityService builds the service.
func NewIdentityService(cfg config.Config, deps IdentityDependencies) *IdentityService {
	return &IdentityService{
		employees:   deps.EmployeeRepo,
		superAdmins: deps.SuperAdminRepo,
		refreshRepo: deps.RefreshTokenRepo,
		centers:     deps.CenterRepo,
		tokenMgr:    auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		limiter:     newKeyedLimiter(cfg.RateLimit.AttemptsPerMinute, cfg.RateLimit.Burst),
		refreshTTL:  time.Duration(cfg.Auth.RefreshTokenTTLHours) * time.Hour,
	}
}

// Login authenticates by email and password. Super-admin accounts are
// checked first, then employees. Both kinds return the same error on a
// bad password so the response does not leak which directory matched.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*LoginOutcome, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, util.NewValidationError("email and password are required", nil)
	}
	if !s.limiter.Allow("login:" + email) {
		return nil, util.NewRateLimited("too many login attempts")
	}

	if admin, err := s.superAdmins.GetByEmail(ctx, email); err == nil {
		if auth.ComparePassword(admin.PasswordHash, password) != nil {
			return nil, util.NewUnauthorized("invalid credentials")
		}
		actor := &domain.Actor{Kind: domain.ActorKindSuperAdmin, ID: admin.ID, Name: admin.Name}
		return s.issueTokens(ctx, actor, true)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	employee, err := s.employees.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if !employee.Active {
		return nil, util.NewUnauthorized("account disabled")
	}
	if auth.ComparePassword(employee.PasswordHash, password) != nil {
		return nil, util.NewUnauthorized("invalid credentials")
	}

	actor := &domain.Actor{Kind: domain.ActorKindEmployee, ID: employee.ID, Name: employee.Name, Employee: employee}
	return s.issueTokens(ctx, actor, false)
}

// VerifyPIN checks an employee's secondary factor. On success both
// tokens are rotated and the new access token carries the pin-verified
// marker. A mismatch is reported as Verified=false, not an error, so
// the caller can count attempts itself.
func (s *IdentityService) VerifyPIN(ctx context.Context, actorID string, code string) (*VerifyOutcome, error) {
	if !s.limiter.Allow("pin:" + actorID) {
		return nil, util.NewRateLimited("too many pin attempts")
	}

	employee, err := s.employees.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewUnauthorized("unknown actor")
		}
		return nil, err
	}
	if !employee.Active {
		return nil, util.NewUnauthorized("account disabled")
	}

	if auth.ComparePIN(employee.PINHash, code) != nil {
		return &VerifyOutcome{Verified: false}, nil
	}

	actor := &domain.Actor{Kind: domain.ActorKindEmployee, ID: employee.ID, Name: employee.Name, Employee: employee}
	if err := s.refreshRepo.RevokeAllForSubject(ctx, domain.ActorKindEmployee, employee.ID); err != nil {
		return nil, err
	}
	outcome, err := s.issueTokens(ctx, actor, true)
	if err != nil {
		return nil, err
	}
	return &VerifyOutcome{
		Verified:     true,
		AccessToken:  outcome.AccessToken,
		RefreshToken: outcome.RefreshToken,
		ExpiresAt:    outcome.ExpiresAt,
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself stays valid until it expires or is revoked.
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	record, err := s.refreshRepo.GetByHash(ctx, hashToken(refreshToken))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", time.Time{}, util.NewUnauthorized("refresh token not recognised")
		}
		return "", time.Time{}, err
	}
	if record.Revoked || time.Now().After(record.ExpiresAt) {
		return "", time.Time{}, util.NewUnauthorized("refresh token expired or revoked")
	}

	actor, err := s.actorForSubject(ctx, record.SubjectKind, record.SubjectID)
	if err != nil {
		return "", time.Time{}, err
	}
	return s.tokenMgr.GenerateToken(actor, actor.IsSuperAdmin())
}

// Revoke invalidates the presented refresh token. Unknown tokens are
// not an error, logout must be idempotent.
func (s *IdentityService) Revoke(ctx context.Context, refreshToken string) error {
	record, err := s.refreshRepo.GetByHash(ctx, hashToken(refreshToken))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	return s.refreshRepo.Revoke(ctx, record.ID)
}

// RevokeAll invalidates every refresh token issued to a subject.
func (s *IdentityService) RevokeAll(ctx context.Context, kind domain.ActorKind, subjectID string) error {
	return s.refreshRepo.RevokeAllForSubject(ctx, kind, subjectID)
}

// StoresForEmployee lists the active stores of the employee's center.
// Only center admins have a reason to ask, others get their own store.
func (s *IdentityService) StoresForEmployee(ctx context.Context, employeeID string) ([]domain.Store, error) {
	employee, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewUnauthorized("unknown actor")
		}
		return nil, err
	}
	return s.centers.ListStoresByCenter(ctx, employee.CenterID)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *IdentityService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *IdentityService) issueTokens(ctx context.Context, actor *domain.Actor, pinVerified bool) (*LoginOutcome, error) {
	access, expiresAt, err := s.tokenMgr.GenerateToken(actor, pinVerified)
	if err != nil {
		return nil, err
	}

	refresh := uuid.NewString()
	record := &repository.RefreshToken{
		SubjectKind: actor.Kind,
		SubjectID:   actor.ID,
		TokenHash:   hashToken(refresh),
		ExpiresAt:   time.Now().Add(s.refreshTTL),
	}
	if err := s.refreshRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	return &LoginOutcome{Actor: actor, AccessToken: access, RefreshToken: refresh, ExpiresAt: expiresAt}, nil
}

func (s *IdentityService) actorForSubject(ctx context.Context, kind domain.ActorKind, id string) (*domain.Actor, error) {
	switch kind {
	case domain.ActorKindSuperAdmin:
		admin, err := s.superAdmins.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return &domain.Actor{Kind: domain.ActorKindSuperAdmin, ID: admin.ID, Name: admin.Name}, nil
	case domain.ActorKindEmployee:
		employee, err := s.employees.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !employee.Active {
			return nil, util.NewUnauthorized("account disabled")
		}
		return &domain.Actor{Kind: domain.ActorKindEmployee, ID: employee.ID, Name: employee.Name, Employee: employee}, nil
	default:
		return nil, util.NewUnauthorized("unknown subject kind")
	}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

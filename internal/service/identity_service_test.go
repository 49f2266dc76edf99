package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/repairshop-session/internal/auth"
	"github.com/spec-kit/repairshop-session/internal/config"
	"github.com/spec-kit/repairshop-session/internal/domain"
	"github.com/spec-kit/repairshop-session/internal/repository"
	"github.com/spec-kit/repairshop-session/pkg/util"
)

type fakeEmployeeRepo struct {
	byID    map[string]*domain.Employee
	byEmail map[string]*domain.Employee
}

func (r *fakeEmployeeRepo) Create(_ context.Context, employee *domain.Employee) error {
	r.byID[employee.ID] = employee
	r.byEmail[employee.Email] = employee
	return nil
}

func (r *fakeEmployeeRepo) Update(_ context.Context, employee *domain.Employee) error {
	r.byID[employee.ID] = employee
	return nil
}

func (r *fakeEmployeeRepo) GetByID(_ context.Context, id string) (*domain.Employee, error) {
	if employee, ok := r.byID[id]; ok {
		return employee, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeEmployeeRepo) GetByEmail(_ context.Context, email string) (*domain.Employee, error) {
	if employee, ok := r.byEmail[email]; ok {
		return employee, nil
	}
	return nil, pgx.ErrNoRows
}

type fakeSuperAdminRepo struct {
	admins map[string]*domain.SuperAdmin
}

func (r *fakeSuperAdminRepo) GetByID(_ context.Context, id string) (*domain.SuperAdmin, error) {
	for _, admin := range r.admins {
		if admin.ID == id {
			return admin, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeSuperAdminRepo) GetByEmail(_ context.Context, email string) (*domain.SuperAdmin, error) {
	if admin, ok := r.admins[email]; ok {
		return admin, nil
	}
	return nil, pgx.ErrNoRows
}

type fakeRefreshRepo struct {
	nextID int
	tokens map[string]*repository.RefreshToken
}

func (r *fakeRefreshRepo) Create(_ context.Context, token *repository.RefreshToken) error {
	r.nextID++
	token.ID = "rt-" + strconv.Itoa(r.nextID)
	token.CreatedAt = time.Now()
	r.tokens[token.TokenHash] = token
	return nil
}

func (r *fakeRefreshRepo) GetByHash(_ context.Context, tokenHash string) (*repository.RefreshToken, error) {
	if token, ok := r.tokens[tokenHash]; ok {
		return token, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeRefreshRepo) Revoke(_ context.Context, id string) error {
	for _, token := range r.tokens {
		if token.ID == id {
			token.Revoked = true
		}
	}
	return nil
}

func (r *fakeRefreshRepo) RevokeAllForSubject(_ context.Context, kind domain.ActorKind, subjectID string) error {
	for _, token := range r.tokens {
		if token.SubjectKind == kind && token.SubjectID == subjectID {
			token.Revoked = true
		}
	}
	return nil
}

type fakeCenterRepo struct {
	stores map[string][]domain.Store
}

func (r *fakeCenterRepo) GetByID(_ context.Context, id string) (*domain.Center, error) {
	return &domain.Center{ID: id}, nil
}

func (r *fakeCenterRepo) ListStoresByCenter(_ context.Context, centerID string) ([]domain.Store, error) {
	return r.stores[centerID], nil
}

func (r *fakeCenterRepo) GetStore(_ context.Context, storeID string) (*domain.Store, error) {
	for _, stores := range r.stores {
		for _, store := range stores {
			if store.ID == storeID {
				return &store, nil
			}
		}
	}
	return nil, pgx.ErrNoRows
}

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 15,
			RefreshTokenTTLHours:  72,
			BcryptCost:            4,
		},
		RateLimit: config.RateLimitConfig{AttemptsPerMinute: 600, Burst: 100},
	}
}

func newTestIdentityService(t *testing.T) (*IdentityService, *fakeEmployeeRepo, *fakeRefreshRepo) {
	t.Helper()

	passwordHash, err := auth.HashPassword("opensesame", 4)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	pinHash, err := auth.HashPIN("4321", 4)
	if err != nil {
		t.Fatalf("hash pin: %v", err)
	}

	storeID := "store-1"
	employee := &domain.Employee{
		ID:           "emp-1",
		Name:         "Dana",
		Email:        "dana@example.com",
		PasswordHash: passwordHash,
		PINHash:      pinHash,
		Role:         domain.EmployeeRoleExpert,
		CenterID:     "center-1",
		StoreID:      &storeID,
		Active:       true,
	}

	employees := &fakeEmployeeRepo{
		byID:    map[string]*domain.Employee{employee.ID: employee},
		byEmail: map[string]*domain.Employee{employee.Email: employee},
	}
	superAdmins := &fakeSuperAdminRepo{admins: map[string]*domain.SuperAdmin{
		"root@example.com": {ID: "sa-1", Name: "Root", Email: "root@example.com", PasswordHash: passwordHash},
	}}
	refresh := &fakeRefreshRepo{tokens: map[string]*repository.RefreshToken{}}
	centers := &fakeCenterRepo{stores: map[string][]domain.Store{
		"center-1": {
			{ID: "store-1", CenterID: "center-1", Name: "Downtown", Active: true},
			{ID: "store-2", CenterID: "center-1", Name: "Airport", Active: true},
		},
	}}

	svc := NewIdentityService(testConfig(), IdentityDependencies{
		EmployeeRepo:     employees,
		SuperAdminRepo:   superAdmins,
		RefreshTokenRepo: refresh,
		CenterRepo:       centers,
	})
	return svc, employees, refresh
}

func TestLoginEmployee(t *testing.T) {
	svc, _, _ := newTestIdentityService(t)

	outcome, err := svc.Login(context.Background(), "dana@example.com", "opensesame")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !outcome.Actor.IsEmployee() {
		t.Fatalf("expected employee actor, got %+v", outcome.Actor)
	}
	if outcome.AccessToken == "" || outcome.RefreshToken == "" {
		t.Fatal("expected a full token pair")
	}

	claims, err := svc.TokenManager().ParseToken(outcome.AccessToken)
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	if claims.PINVerified {
		t.Fatal("employee login must not issue a pin-verified token")
	}
	if claims.Subject != "emp-1" {
		t.Fatalf("subject = %q, want emp-1", claims.Subject)
	}
}

func TestLoginSuperAdminIsPINVerified(t *testing.T) {
	svc, _, _ := newTestIdentityService(t)

	outcome, err := svc.Login(context.Background(), "root@example.com", "opensesame")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !outcome.Actor.IsSuperAdmin() {
		t.Fatalf("expected super admin actor, got %+v", outcome.Actor)
	}

	claims, err := svc.TokenManager().ParseToken(outcome.AccessToken)
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	if !claims.PINVerified {
		t.Fatal("super admin tokens skip the secondary factor")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newTestIdentityService(t)

	_, err := svc.Login(context.Background(), "dana@example.com", "nope")
	assertCode(t, err, "UNAUTHORIZED")
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _, _ := newTestIdentityService(t)

	_, err := svc.Login(context.Background(), "ghost@example.com", "opensesame")
	assertCode(t, err, "UNAUTHORIZED")
}

func TestLoginInactiveEmployee(t *testing.T) {
	svc, employees, _ := newTestIdentityService(t)
	employees.byEmail["dana@example.com"].Active = false

	_, err := svc.Login(context.Background(), "dana@example.com", "opensesame")
	assertCode(t, err, "UNAUTHORIZED")
}

func TestVerifyPINSuccessRotatesTokens(t *testing.T) {
	svc, _, refresh := newTestIdentityService(t)

	login, err := svc.Login(context.Background(), "dana@example.com", "opensesame")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	outcome, err := svc.VerifyPIN(context.Background(), "emp-1", "4321")
	if err != nil {
		t.Fatalf("verify pin: %v", err)
	}
	if !outcome.Verified {
		t.Fatal("expected verification to succeed")
	}
	if outcome.AccessToken == "" || outcome.RefreshToken == "" {
		t.Fatal("expected rotated token pair")
	}
	if outcome.RefreshToken == login.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	claims, err := svc.TokenManager().ParseToken(outcome.AccessToken)
	if err != nil {
		t.Fatalf("parse rotated token: %v", err)
	}
	if !claims.PINVerified {
		t.Fatal("rotated token must be pin-verified")
	}

	// the pre-verification refresh token is revoked by the rotation
	if _, _, err := svc.Refresh(context.Background(), login.RefreshToken); err == nil {
		t.Fatal("expected old refresh token to be rejected")
	}
	if len(refresh.tokens) != 2 {
		t.Fatalf("token records = %d, want 2", len(refresh.tokens))
	}
}

func TestVerifyPINWrongCode(t *testing.T) {
	svc, _, _ := newTestIdentityService(t)

	outcome, err := svc.VerifyPIN(context.Background(), "emp-1", "0000")
	if err != nil {
		t.Fatalf("verify pin: %v", err)
	}
	if outcome.Verified {
		t.Fatal("expected rejection")
	}
	if outcome.AccessToken != "" || outcome.RefreshToken != "" {
		t.Fatal("rejection must not issue tokens")
	}
}

func TestVerifyPINUnknownActor(t *testing.T) {
	svc, _, _ := newTestIdentityService(t)

	_, err := svc.VerifyPIN(context.Background(), "ghost", "4321")
	assertCode(t, err, "UNAUTHORIZED")
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	svc, _, _ := newTestIdentityService(t)

	login, err := svc.Login(context.Background(), "dana@example.com", "opensesame")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	access, expiresAt, err := svc.Refresh(context.Background(), login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if access == "" {
		t.Fatal("expected a new access token")
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expiry %v is not in the future", expiresAt)
	}
	if _, err := svc.TokenManager().ParseToken(access); err != nil {
		t.Fatalf("parse refreshed token: %v", err)
	}
}

func TestRefreshRejectsRevokedToken(t *testing.T) {
	svc, _, _ := newTestIdentityService(t)

	login, err := svc.Login(context.Background(), "dana@example.com", "opensesame")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Revoke(context.Background(), login.RefreshToken); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	_, _, err = svc.Refresh(context.Background(), login.RefreshToken)
	assertCode(t, err, "UNAUTHORIZED")
}

func TestRefreshRejectsUnknownToken(t *testing.T) {
	svc, _, _ := newTestIdentityService(t)

	_, _, err := svc.Refresh(context.Background(), "never-issued")
	assertCode(t, err, "UNAUTHORIZED")
}

func TestRefreshRejectsExpiredToken(t *testing.T) {
	svc, _, refresh := newTestIdentityService(t)

	login, err := svc.Login(context.Background(), "dana@example.com", "opensesame")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	for _, token := range refresh.tokens {
		token.ExpiresAt = time.Now().Add(-time.Minute)
	}

	_, _, err = svc.Refresh(context.Background(), login.RefreshToken)
	assertCode(t, err, "UNAUTHORIZED")
}

func TestRevokeUnknownTokenIsIdempotent(t *testing.T) {
	svc, _, _ := newTestIdentityService(t)

	if err := svc.Revoke(context.Background(), "never-issued"); err != nil {
		t.Fatalf("revoke unknown token: %v", err)
	}
}

func TestStoresForEmployee(t *testing.T) {
	svc, _, _ := newTestIdentityService(t)

	stores, err := svc.StoresForEmployee(context.Background(), "emp-1")
	if err != nil {
		t.Fatalf("list stores: %v", err)
	}
	if len(stores) != 2 {
		t.Fatalf("stores = %d, want 2", len(stores))
	}
	for _, store := range stores {
		if store.CenterID != "center-1" {
			t.Fatalf("store %s belongs to %s, want center-1", store.ID, store.CenterID)
		}
	}
}

func TestLoginRateLimit(t *testing.T) {
	svc, _, _ := newTestIdentityService(t)
	svc.limiter = newKeyedLimiter(1, 2)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := svc.Login(ctx, "dana@example.com", "nope"); err == nil {
			t.Fatal("expected unauthorized")
		}
	}

	_, err := svc.Login(ctx, "dana@example.com", "opensesame")
	assertCode(t, err, "RATE_LIMITED")
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	var domainErr *util.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if domainErr.Code != code {
		t.Fatalf("error code = %s, want %s", domainErr.Code, code)
	}
}

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/repairshop-session/internal/credstore"
	"github.com/spec-kit/repairshop-session/internal/domain"
	"github.com/spec-kit/repairshop-session/internal/events"
	"github.com/spec-kit/repairshop-session/internal/identity"
	"github.com/spec-kit/repairshop-session/internal/permission"
)

type fakeIdentity struct {
	mu sync.Mutex

	loginResult *identity.LoginResult
	loginErr    error

	correctPIN  string
	verifyErr   error
	verifyDelay time.Duration
	rotations   int

	refreshErr  error
	refreshes   int
	logoutCalls int
	logoutErr   error

	stores    []identity.StoreSummary
	storesErr error
}

func (f *fakeIdentity) Login(_ context.Context, _, _ string) (*identity.LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	result := *f.loginResult
	return &result, nil
}

func (f *fakeIdentity) VerifyPIN(_ context.Context, _, code string) (*identity.VerifyResult, error) {
	f.mu.Lock()
	delay := f.verifyDelay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	if code != f.correctPIN {
		return &identity.VerifyResult{Verified: false, Error: "wrong code"}, nil
	}
	f.rotations++
	return &identity.VerifyResult{
		Verified:       true,
		NewAccessToken: fmt.Sprintf("rotated-%d", f.rotations),
	}, nil
}

func (f *fakeIdentity) Refresh(_ context.Context, _ string) (*identity.RefreshResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &identity.RefreshResult{
		AccessToken: fmt.Sprintf("refreshed-%d", f.refreshes),
		ExpiresAt:   time.Now().Add(15 * time.Minute),
	}, nil
}

func (f *fakeIdentity) Logout(_ context.Context, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeIdentity) ListStores(_ context.Context, _ string) ([]identity.StoreSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storesErr != nil {
		return nil, f.storesErr
	}
	return f.stores, nil
}

func employeeLogin(role domain.EmployeeRole, centerAdmin bool) *identity.LoginResult {
	return &identity.LoginResult{
		Actor: domain.Actor{
			Kind: domain.ActorKindEmployee,
			ID:   "emp-1",
			Name: "Dana",
			Employee: &domain.Employee{
				ID:            "emp-1",
				Role:          role,
				CenterID:      "center-7",
				IsCenterAdmin: centerAdmin,
			},
		},
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
	}
}

func superAdminLogin() *identity.LoginResult {
	return &identity.LoginResult{
		Actor:        domain.Actor{Kind: domain.ActorKindSuperAdmin, ID: "root", Name: "Root"},
		AccessToken:  "access-root",
		RefreshToken: "refresh-root",
	}
}

type testRig struct {
	machine  *Machine
	identity *fakeIdentity
	store    *credstore.MemoryStore

	mu     sync.Mutex
	events []events.Event
}

func newRig(t *testing.T, provider *fakeIdentity, opts Options) *testRig {
	t.Helper()
	rig := &testRig{identity: provider, store: credstore.NewMemoryStore()}

	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.SubscribeAll(func(_ context.Context, evt events.Event) error {
		rig.mu.Lock()
		defer rig.mu.Unlock()
		rig.events = append(rig.events, evt)
		return nil
	})

	rig.machine = NewMachine(opts, Dependencies{
		Store:      rig.store,
		Identity:   provider,
		Dispatcher: dispatcher,
	})
	return rig
}

func (r *testRig) statesSeen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.ToState)
	}
	return out
}

func (r *testRig) countEvents(eventType events.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, evt := range r.events {
		if evt.Type == eventType {
			n++
		}
	}
	return n
}

func mintToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "emp-1",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestLoginSuperAdminGoesDirectlyActive(t *testing.T) {
	rig := newRig(t, &fakeIdentity{loginResult: superAdminLogin()}, Options{})

	if err := rig.machine.Login(context.Background(), "root", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if got := rig.machine.State(); got != StateActive {
		t.Fatalf("state = %s, want %s", got, StateActive)
	}
	for _, state := range rig.statesSeen() {
		if state == string(StateAwaitingSecondaryFactor) {
			t.Fatal("super admin login must never pass through the PIN gate")
		}
	}
	if !rig.machine.IsAuthenticated() {
		t.Fatal("expected authenticated session")
	}
}

func TestLoginEmployeeRequiresSecondaryFactor(t *testing.T) {
	rig := newRig(t, &fakeIdentity{loginResult: employeeLogin(domain.EmployeeRoleExpert, false)}, Options{})

	if err := rig.machine.Login(context.Background(), "dana", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if got := rig.machine.State(); got != StateAwaitingSecondaryFactor {
		t.Fatalf("state = %s, want %s", got, StateAwaitingSecondaryFactor)
	}
	if rig.machine.IsAuthenticated() {
		t.Fatal("session must not be authenticated before verification")
	}

	snap, err := rig.store.Load(context.Background())
	if err != nil || snap == nil {
		t.Fatalf("credentials should be persisted at login: snap=%v err=%v", snap, err)
	}
}

func TestLoginWhileLoggedInIsRejected(t *testing.T) {
	rig := newRig(t, &fakeIdentity{loginResult: superAdminLogin()}, Options{})

	if err := rig.machine.Login(context.Background(), "root", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	err := rig.machine.Login(context.Background(), "root", "secret")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestLoginTransportErrorLeavesLoggedOut(t *testing.T) {
	rig := newRig(t, &fakeIdentity{loginErr: identity.ErrUnavailable}, Options{})

	err := rig.machine.Login(context.Background(), "dana", "secret")
	if !errors.Is(err, identity.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if got := rig.machine.State(); got != StateLoggedOut {
		t.Fatalf("state = %s, want %s", got, StateLoggedOut)
	}
}

func TestWrongPINTwiceThenCorrect(t *testing.T) {
	provider := &fakeIdentity{loginResult: employeeLogin(domain.EmployeeRoleExpert, false), correctPIN: "4321"}
	rig := newRig(t, provider, Options{})
	ctx := context.Background()

	if err := rig.machine.Login(ctx, "dana", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	for i := 1; i <= 2; i++ {
		err := rig.machine.SubmitSecondaryFactor(ctx, "0000")
		if !errors.Is(err, ErrPINRejected) {
			t.Fatalf("attempt %d: err = %v, want ErrPINRejected", i, err)
		}
		if got := rig.machine.FailedAttempts(); got != i {
			t.Fatalf("attempt %d: failedAttempts = %d", i, got)
		}
		if got := rig.machine.State(); got != StateAwaitingSecondaryFactor {
			t.Fatalf("attempt %d: state = %s", i, got)
		}
	}

	if err := rig.machine.SubmitSecondaryFactor(ctx, "4321"); err != nil {
		t.Fatalf("correct pin: %v", err)
	}
	if got := rig.machine.State(); got != StateActive {
		t.Fatalf("state = %s, want %s", got, StateActive)
	}
	if got := rig.machine.FailedAttempts(); got != 0 {
		t.Fatalf("failedAttempts = %d, want 0 after success", got)
	}

	snap, err := rig.store.Load(ctx)
	if err != nil || snap == nil {
		t.Fatalf("load: snap=%v err=%v", snap, err)
	}
	if snap.Credentials.AccessToken != "rotated-1" {
		t.Fatalf("access token not rotated: %q", snap.Credentials.AccessToken)
	}
}

func TestPINAttemptsExhaustedForcesLogout(t *testing.T) {
	for _, start := range []State{StateAwaitingSecondaryFactor, StateLocked} {
		t.Run(string(start), func(t *testing.T) {
			provider := &fakeIdentity{loginResult: employeeLogin(domain.EmployeeRoleExpert, false), correctPIN: "4321"}
			rig := newRig(t, provider, Options{MaxPINAttempts: 3})
			ctx := context.Background()

			if err := rig.machine.Login(ctx, "dana", "secret"); err != nil {
				t.Fatalf("login: %v", err)
			}
			if start == StateLocked {
				if err := rig.machine.SubmitSecondaryFactor(ctx, "4321"); err != nil {
					t.Fatalf("verify: %v", err)
				}
				rig.machine.Lock()
				if got := rig.machine.State(); got != StateLocked {
					t.Fatalf("setup state = %s", got)
				}
			}

			var lastErr error
			for i := 0; i < 3; i++ {
				lastErr = rig.machine.SubmitSecondaryFactor(ctx, "0000")
			}
			if !errors.Is(lastErr, ErrSessionTerminated) {
				t.Fatalf("final err = %v, want ErrSessionTerminated", lastErr)
			}
			if got := rig.machine.State(); got != StateLoggedOut {
				t.Fatalf("state = %s, want %s", got, StateLoggedOut)
			}
			if snap, err := rig.store.Load(ctx); err != nil || snap != nil {
				t.Fatalf("credential store must be cleared: snap=%v err=%v", snap, err)
			}
		})
	}
}

func TestPINFormatValidationDoesNotConsumeAttempts(t *testing.T) {
	provider := &fakeIdentity{loginResult: employeeLogin(domain.EmployeeRoleExpert, false), correctPIN: "4321"}
	rig := newRig(t, provider, Options{})
	ctx := context.Background()

	if err := rig.machine.Login(ctx, "dana", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	for _, code := range []string{"", "12", "12a4", "1234567"} {
		if err := rig.machine.SubmitSecondaryFactor(ctx, code); err == nil {
			t.Fatalf("code %q should be rejected client-side", code)
		}
	}
	if got := rig.machine.FailedAttempts(); got != 0 {
		t.Fatalf("failedAttempts = %d, want 0 (format errors are not attempts)", got)
	}
}

func TestVerifyTransportErrorChangesNothing(t *testing.T) {
	provider := &fakeIdentity{loginResult: employeeLogin(domain.EmployeeRoleExpert, false), correctPIN: "4321"}
	rig := newRig(t, provider, Options{})
	ctx := context.Background()

	if err := rig.machine.Login(ctx, "dana", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	provider.mu.Lock()
	provider.verifyErr = identity.ErrUnavailable
	provider.mu.Unlock()

	err := rig.machine.SubmitSecondaryFactor(ctx, "4321")
	if !errors.Is(err, identity.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if got := rig.machine.State(); got != StateAwaitingSecondaryFactor {
		t.Fatalf("state = %s, want unchanged", got)
	}
	if got := rig.machine.FailedAttempts(); got != 0 {
		t.Fatalf("failedAttempts = %d, want 0 on transport failure", got)
	}
}

func TestVerifyThrottledChangesNothing(t *testing.T) {
	provider := &fakeIdentity{loginResult: employeeLogin(domain.EmployeeRoleExpert, false), correctPIN: "4321"}
	rig := newRig(t, provider, Options{})
	ctx := context.Background()

	if err := rig.machine.Login(ctx, "dana", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	provider.mu.Lock()
	provider.verifyErr = identity.ErrThrottled
	provider.mu.Unlock()

	// a rate-limited provider must surface as retryable: no refresh
	// burned, no forced logout, snapshot intact
	err := rig.machine.SubmitSecondaryFactor(ctx, "4321")
	if !errors.Is(err, identity.ErrThrottled) {
		t.Fatalf("err = %v, want ErrThrottled", err)
	}
	if got := rig.machine.State(); got != StateAwaitingSecondaryFactor {
		t.Fatalf("state = %s, want unchanged", got)
	}
	if provider.refreshes != 0 {
		t.Fatalf("refreshes = %d, want 0 on throttle", provider.refreshes)
	}
	if snap, err := rig.store.Load(ctx); err != nil || snap == nil {
		t.Fatalf("credential snapshot lost: snap=%v err=%v", snap, err)
	}

	provider.mu.Lock()
	provider.verifyErr = nil
	provider.mu.Unlock()

	if err := rig.machine.SubmitSecondaryFactor(ctx, "4321"); err != nil {
		t.Fatalf("retry after throttle: %v", err)
	}
	if got := rig.machine.State(); got != StateActive {
		t.Fatalf("state = %s, want %s", got, StateActive)
	}
}

func TestLockIsIdempotent(t *testing.T) {
	rig := newRig(t, &fakeIdentity{loginResult: superAdminLogin()}, Options{})
	ctx := context.Background()

	if err := rig.machine.Login(ctx, "root", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	rig.machine.Lock()
	if got := rig.machine.State(); got != StateLocked {
		t.Fatalf("state = %s, want %s", got, StateLocked)
	}
	attempts := rig.machine.FailedAttempts()

	rig.machine.Lock()
	if got := rig.machine.State(); got != StateLocked {
		t.Fatalf("second lock: state = %s", got)
	}
	if got := rig.machine.FailedAttempts(); got != attempts {
		t.Fatalf("second lock changed failedAttempts: %d != %d", got, attempts)
	}
	if got := rig.countEvents(events.EventSessionLocked); got != 1 {
		t.Fatalf("lock events = %d, want 1", got)
	}
}

func TestWatchdogLocksInactiveSessionAndUnlockResumesTarget(t *testing.T) {
	provider := &fakeIdentity{loginResult: employeeLogin(domain.EmployeeRoleExpert, false), correctPIN: "4321"}
	rig := newRig(t, provider, Options{DefaultPINTimeout: 40 * time.Millisecond})
	ctx := context.Background()

	if err := rig.machine.Login(ctx, "dana", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := rig.machine.SubmitSecondaryFactor(ctx, "4321"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	rig.machine.SetPendingReturnTarget("/service-orders/42")

	time.Sleep(150 * time.Millisecond)
	if got := rig.machine.State(); got != StateLocked {
		t.Fatalf("state = %s, want %s after inactivity", got, StateLocked)
	}
	if got := rig.countEvents(events.EventSessionLocked); got != 1 {
		t.Fatalf("lock events = %d, want exactly 1", got)
	}

	if err := rig.machine.Unlock(ctx, "4321"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if got := rig.machine.State(); got != StateActive {
		t.Fatalf("state = %s, want %s", got, StateActive)
	}

	target, ok := rig.machine.ConsumePendingReturnTarget()
	if !ok || target != "/service-orders/42" {
		t.Fatalf("return target = %q ok=%v", target, ok)
	}
	if _, ok := rig.machine.ConsumePendingReturnTarget(); ok {
		t.Fatal("return target must be consumed exactly once")
	}
}

func TestWatchdogFireDuringSlowVerifyDoesNotLockFreshSession(t *testing.T) {
	// The timer elapses while a verification holds the machine mutex. The
	// fire must stand down once verification succeeds and restarts the
	// countdown, instead of locking the session it just opened.
	provider := &fakeIdentity{
		loginResult: employeeLogin(domain.EmployeeRoleExpert, false),
		correctPIN:  "4321",
		verifyDelay: 200 * time.Millisecond,
	}
	rig := newRig(t, provider, Options{DefaultPINTimeout: 50 * time.Millisecond})
	ctx := context.Background()

	if err := rig.machine.Login(ctx, "dana", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := rig.machine.SubmitSecondaryFactor(ctx, "4321"); err != nil {
		t.Fatalf("verify: %v", err)
	}

	// let the superseded fire drain; well inside the fresh countdown
	time.Sleep(25 * time.Millisecond)
	if got := rig.machine.State(); got != StateActive {
		t.Fatalf("state = %s, want %s", got, StateActive)
	}
	if got := rig.countEvents(events.EventSessionLocked); got != 0 {
		t.Fatalf("lock events = %d, want 0", got)
	}
}

func TestRecordActivityDefersLock(t *testing.T) {
	provider := &fakeIdentity{loginResult: employeeLogin(domain.EmployeeRoleExpert, false), correctPIN: "4321"}
	rig := newRig(t, provider, Options{DefaultPINTimeout: 60 * time.Millisecond})
	ctx := context.Background()

	if err := rig.machine.Login(ctx, "dana", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := rig.machine.SubmitSecondaryFactor(ctx, "4321"); err != nil {
		t.Fatalf("verify: %v", err)
	}

	for i := 0; i < 8; i++ {
		time.Sleep(20 * time.Millisecond)
		rig.machine.RecordActivity()
	}
	if got := rig.machine.State(); got != StateActive {
		t.Fatalf("state = %s, want still Active under activity", got)
	}

	time.Sleep(200 * time.Millisecond)
	if got := rig.machine.State(); got != StateLocked {
		t.Fatalf("state = %s, want Locked after gap", got)
	}
	if got := rig.countEvents(events.EventSessionLocked); got != 1 {
		t.Fatalf("lock events = %d, want exactly 1", got)
	}
}

func TestLogoutFromAnyStateProceedsBestEffort(t *testing.T) {
	provider := &fakeIdentity{
		loginResult: employeeLogin(domain.EmployeeRoleExpert, false),
		correctPIN:  "4321",
		logoutErr:   identity.ErrUnavailable,
	}
	rig := newRig(t, provider, Options{})
	ctx := context.Background()

	if err := rig.machine.Login(ctx, "dana", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	rig.machine.Logout(ctx)
	if got := rig.machine.State(); got != StateLoggedOut {
		t.Fatalf("state = %s, want %s even when revocation fails", got, StateLoggedOut)
	}
	if snap, _ := rig.store.Load(ctx); snap != nil {
		t.Fatal("credential store must be cleared on logout")
	}
	if rig.machine.CurrentActor() != nil {
		t.Fatal("actor must be cleared on logout")
	}

	// logout is re-entrant
	rig.machine.Logout(ctx)
	if got := rig.machine.State(); got != StateLoggedOut {
		t.Fatalf("state = %s after second logout", got)
	}
}

func TestResumeRehydratesFromStore(t *testing.T) {
	provider := &fakeIdentity{correctPIN: "4321"}
	rig := newRig(t, provider, Options{})
	ctx := context.Background()

	login := employeeLogin(domain.EmployeeRoleExpert, false)
	creds := domain.Credentials{
		AccessToken:  mintToken(t, time.Now().Add(10*time.Minute)),
		RefreshToken: "refresh-1",
	}
	if err := rig.store.Save(ctx, creds, login.Actor); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	if err := rig.machine.Resume(ctx); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if got := rig.machine.State(); got != StateAwaitingSecondaryFactor {
		t.Fatalf("state = %s, want PIN gate after employee resume", got)
	}
	if actor := rig.machine.CurrentActor(); actor == nil || actor.ID != "emp-1" {
		t.Fatalf("actor = %+v", actor)
	}
}

func TestResumeRefreshesExpiredToken(t *testing.T) {
	provider := &fakeIdentity{}
	rig := newRig(t, provider, Options{})
	ctx := context.Background()

	creds := domain.Credentials{
		AccessToken:  mintToken(t, time.Now().Add(-time.Minute)),
		RefreshToken: "refresh-1",
	}
	actor := domain.Actor{Kind: domain.ActorKindSuperAdmin, ID: "root"}
	if err := rig.store.Save(ctx, creds, actor); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	if err := rig.machine.Resume(ctx); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if got := rig.machine.State(); got != StateActive {
		t.Fatalf("state = %s, want Active for super admin", got)
	}
	if provider.refreshes != 1 {
		t.Fatalf("refreshes = %d, want exactly 1", provider.refreshes)
	}
}

func TestResumeRejectedRefreshClearsStore(t *testing.T) {
	provider := &fakeIdentity{refreshErr: identity.ErrUnauthorized}
	rig := newRig(t, provider, Options{})
	ctx := context.Background()

	creds := domain.Credentials{AccessToken: "expired-garbage", RefreshToken: "refresh-1"}
	actor := domain.Actor{Kind: domain.ActorKindSuperAdmin, ID: "root"}
	if err := rig.store.Save(ctx, creds, actor); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	if err := rig.machine.Resume(ctx); err != nil {
		t.Fatalf("resume should not error on a stale session: %v", err)
	}
	if got := rig.machine.State(); got != StateLoggedOut {
		t.Fatalf("state = %s, want %s", got, StateLoggedOut)
	}
	if snap, _ := rig.store.Load(ctx); snap != nil {
		t.Fatal("stale snapshot must be cleared")
	}
}

func TestResumeWithEmptyStoreIsNoop(t *testing.T) {
	rig := newRig(t, &fakeIdentity{}, Options{})

	if err := rig.machine.Resume(context.Background()); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if got := rig.machine.State(); got != StateLoggedOut {
		t.Fatalf("state = %s, want %s", got, StateLoggedOut)
	}
}

func TestAccessTokenRefreshesExpiredOnce(t *testing.T) {
	provider := &fakeIdentity{loginResult: superAdminLogin()}
	rig := newRig(t, provider, Options{})
	ctx := context.Background()

	// "access-root" is not a JWT, so it counts as expired (fail-closed)
	if err := rig.machine.Login(ctx, "root", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	token, err := rig.machine.AccessToken(ctx)
	if err != nil {
		t.Fatalf("access token: %v", err)
	}
	if token != "refreshed-1" {
		t.Fatalf("token = %q, want refreshed-1", token)
	}
}

func TestAccessTokenRejectedRefreshTerminatesSession(t *testing.T) {
	provider := &fakeIdentity{loginResult: superAdminLogin(), refreshErr: identity.ErrUnauthorized}
	rig := newRig(t, provider, Options{})
	ctx := context.Background()

	if err := rig.machine.Login(ctx, "root", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	_, err := rig.machine.AccessToken(ctx)
	if !errors.Is(err, ErrSessionTerminated) {
		t.Fatalf("err = %v, want ErrSessionTerminated", err)
	}
	if got := rig.machine.State(); got != StateLoggedOut {
		t.Fatalf("state = %s, want %s", got, StateLoggedOut)
	}
}

func TestSelectStore(t *testing.T) {
	provider := &fakeIdentity{
		loginResult: employeeLogin(domain.EmployeeRoleStoreAdmin, true),
		correctPIN:  "4321",
		stores: []identity.StoreSummary{
			{ID: "store-3", CenterID: "center-7", Name: "Downtown"},
			{ID: "store-4", CenterID: "center-7", Name: "Mall"},
		},
	}
	rig := newRig(t, provider, Options{})
	ctx := context.Background()

	if err := rig.machine.Login(ctx, "dana", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := rig.machine.SubmitSecondaryFactor(ctx, "4321"); err != nil {
		t.Fatalf("verify: %v", err)
	}

	if err := rig.machine.SelectStore(ctx, "store-3"); err != nil {
		t.Fatalf("select store: %v", err)
	}
	actor := rig.machine.CurrentActor()
	if actor.Employee.StoreID == nil || *actor.Employee.StoreID != "store-3" {
		t.Fatalf("store not applied: %+v", actor.Employee.StoreID)
	}

	if err := rig.machine.SelectStore(ctx, "store-99"); err == nil {
		t.Fatal("foreign store must be rejected")
	}
}

func TestSelectStoreRequiresCenterAdmin(t *testing.T) {
	provider := &fakeIdentity{loginResult: employeeLogin(domain.EmployeeRoleExpert, false), correctPIN: "4321"}
	rig := newRig(t, provider, Options{})
	ctx := context.Background()

	if err := rig.machine.Login(ctx, "dana", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := rig.machine.SubmitSecondaryFactor(ctx, "4321"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := rig.machine.SelectStore(ctx, "store-3"); err == nil {
		t.Fatal("non-admin store selection must fail")
	}
}

func TestPermissionsFollowCurrentActor(t *testing.T) {
	provider := &fakeIdentity{loginResult: employeeLogin(domain.EmployeeRoleAccountant, false), correctPIN: "4321"}
	rig := newRig(t, provider, Options{})
	ctx := context.Background()

	if got := rig.machine.Permissions(); len(got) != 0 {
		t.Fatalf("logged-out permissions = %d entries, want none", len(got))
	}

	if err := rig.machine.Login(ctx, "dana", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	set := rig.machine.Permissions()
	if !set.Has(permission.PermViewServiceOrders) {
		t.Fatal("accountant should view service orders")
	}
	if set.Has(permission.PermDeleteEmployees) {
		t.Fatal("accountant must not delete employees")
	}

	centerID := "center-7"
	if !rig.machine.CanAccessResource(&centerID, nil) {
		t.Fatal("actor must access its own center")
	}
	foreign := "center-9"
	if rig.machine.CanAccessResource(&foreign, nil) {
		t.Fatal("actor must not access a foreign center")
	}
}

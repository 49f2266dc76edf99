package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/repairshop-session/internal/credstore"
	"github.com/spec-kit/repairshop-session/internal/domain"
	"github.com/spec-kit/repairshop-session/internal/events"
	"github.com/spec-kit/repairshop-session/internal/identity"
	"github.com/spec-kit/repairshop-session/internal/permission"
)

// State is the session machine's lock state.
type State string

const (
	StateLoggedOut               State = "LOGGED_OUT"
	StateAwaitingSecondaryFactor State = "AWAITING_SECONDARY_FACTOR"
	StateActive                  State = "ACTIVE"
	StateLocked                  State = "LOCKED"
)

// RequiresSecondaryFactor reports whether guards must show the PIN
// challenge for this state. AwaitingSecondaryFactor and Locked are treated
// identically by consumers.
func (s State) RequiresSecondaryFactor() bool {
	return s == StateAwaitingSecondaryFactor || s == StateLocked
}

// IdentityClient is the transport boundary to the identity provider.
type IdentityClient interface {
	Login(ctx context.Context, username, password string) (*identity.LoginResult, error)
	VerifyPIN(ctx context.Context, accessToken, code string) (*identity.VerifyResult, error)
	Refresh(ctx context.Context, refreshToken string) (*identity.RefreshResult, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	ListStores(ctx context.Context, accessToken string) ([]identity.StoreSummary, error)
}

// Dependencies encapsulates collaborator requirements for the machine.
type Dependencies struct {
	Store      credstore.Store
	Identity   IdentityClient
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// Options tune machine behavior.
type Options struct {
	// MaxPINAttempts before a forced logout. Defaults to 3.
	MaxPINAttempts int
	// DefaultPINTimeout applies when the employee record carries no
	// inactivity window of its own.
	DefaultPINTimeout time.Duration
}

// Machine is the session state machine. It owns actor identity, lock
// state and secondary-verification state, and serializes every transition
// behind a single mutex so that a watchdog fire racing an in-flight
// verification resolves deterministically.
type Machine struct {
	mu sync.Mutex

	state               State
	actor               *domain.Actor
	creds               domain.Credentials
	secondaryVerified   bool
	failedAttempts      int
	pendingReturnTarget string

	maxAttempts       int
	defaultPINTimeout time.Duration

	store      credstore.Store
	identity   IdentityClient
	dispatcher events.Dispatcher
	watchdog   *Watchdog
	logger     *zap.Logger
}

// NewMachine builds a machine in the LoggedOut state.
func NewMachine(opts Options, deps Dependencies) *Machine {
	if opts.MaxPINAttempts <= 0 {
		opts.MaxPINAttempts = 3
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	m := &Machine{
		state:             StateLoggedOut,
		maxAttempts:       opts.MaxPINAttempts,
		defaultPINTimeout: opts.DefaultPINTimeout,
		store:             deps.Store,
		identity:          deps.Identity,
		dispatcher:        deps.Dispatcher,
		logger:            deps.Logger,
	}
	m.watchdog = NewWatchdog(m.lockOnInactivity)
	return m
}

// Login authenticates against the identity provider. A super admin lands
// directly in Active; an employee must clear the secondary factor first.
// Transport failures leave the machine in LoggedOut.
func (m *Machine) Login(ctx context.Context, username, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateLoggedOut {
		return fmt.Errorf("%w: login from %s", ErrInvalidTransition, m.state)
	}

	result, err := m.identity.Login(ctx, username, password)
	if err != nil {
		return err
	}

	actor := result.Actor
	m.actor = &actor
	m.creds = domain.Credentials{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}
	m.failedAttempts = 0
	m.saveLocked(ctx)

	if actor.IsSuperAdmin() {
		m.secondaryVerified = true
		m.setStateLocked(ctx, events.EventSessionLoggedIn, StateActive)
		return nil
	}

	m.secondaryVerified = false
	m.watchdog.Start(m.pinTimeoutLocked())
	m.setStateLocked(ctx, events.EventSessionLoggedIn, StateAwaitingSecondaryFactor)
	return nil
}

// SubmitSecondaryFactor submits a PIN code. Legal from
// AwaitingSecondaryFactor and Locked. Exhausting the attempt budget forces
// a full logout; transport failures change nothing.
func (m *Machine) SubmitSecondaryFactor(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.RequiresSecondaryFactor() {
		return fmt.Errorf("%w: verify from %s", ErrInvalidTransition, m.state)
	}
	if err := identity.ValidatePINFormat(code); err != nil {
		return err
	}

	result, err := m.identity.VerifyPIN(ctx, m.creds.AccessToken, code)
	if errors.Is(err, identity.ErrUnauthorized) {
		// stale access token: recover with exactly one refresh
		if rerr := m.recoverCredentialsLocked(ctx); rerr != nil {
			return rerr
		}
		result, err = m.identity.VerifyPIN(ctx, m.creds.AccessToken, code)
		if errors.Is(err, identity.ErrUnauthorized) {
			m.logoutLocked(ctx)
			return fmt.Errorf("%w: credentials rejected after refresh", ErrSessionTerminated)
		}
	}
	if err != nil {
		return err
	}

	if !result.Verified {
		m.failedAttempts++
		m.publishLocked(ctx, events.NewEventWithPayload(
			events.EventPINRejected, m.actor, string(m.state), string(m.state),
			events.PINRejectedPayload{FailedAttempts: m.failedAttempts, MaxAttempts: m.maxAttempts},
		))
		if m.failedAttempts >= m.maxAttempts {
			m.logoutLocked(ctx)
			return fmt.Errorf("%w: secondary factor attempts exhausted", ErrSessionTerminated)
		}
		reason := result.Error
		if reason == "" {
			reason = "code rejected"
		}
		return fmt.Errorf("%w: %s (%d of %d attempts used)",
			ErrPINRejected, reason, m.failedAttempts, m.maxAttempts)
	}

	if result.NewAccessToken != "" {
		m.creds.AccessToken = result.NewAccessToken
	}
	if result.NewRefreshToken != "" {
		m.creds.RefreshToken = result.NewRefreshToken
	}
	m.saveLocked(ctx)
	m.failedAttempts = 0
	m.secondaryVerified = true
	m.watchdog.Start(m.pinTimeoutLocked())
	m.setStateLocked(ctx, events.EventSessionVerified, StateActive)
	return nil
}

// Unlock is the alias for SubmitSecondaryFactor when the session is
// locked.
func (m *Machine) Unlock(ctx context.Context, code string) error {
	return m.SubmitSecondaryFactor(ctx, code)
}

// Lock transitions Active to Locked and clears the verified flag. It is
// a no-op from any other state so a stray call cannot corrupt the
// session.
func (m *Machine) Lock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockLocked()
}

// lockOnInactivity is the watchdog's fire callback. The fire may have
// been blocked on m.mu behind an in-flight verification: if that
// verification succeeded it restarted the watchdog, so the generation is
// re-checked here, under m.mu, and a superseded fire stands down instead
// of locking a freshly verified session.
func (m *Machine) lockOnInactivity(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.watchdog.Stale(gen) {
		return
	}
	m.lockLocked()
}

func (m *Machine) lockLocked() {
	if m.state != StateActive {
		return
	}
	m.secondaryVerified = false
	m.watchdog.Stop()
	m.setStateLocked(context.Background(), events.EventSessionLocked, StateLocked)
}

// Logout returns to LoggedOut from any state, wiping the credential store
// and stopping the watchdog. Server-side revocation is best effort: the
// local transition proceeds even when the provider is unreachable.
func (m *Machine) Logout(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.creds.AccessToken != "" {
		if err := m.identity.Logout(ctx, m.creds.AccessToken, m.creds.RefreshToken); err != nil {
			m.logger.Warn("server-side logout failed", zap.Error(err))
		}
	}
	m.logoutLocked(ctx)
}

// RecordActivity resets the inactivity countdown. Only meaningful while
// Active; it never changes state.
func (m *Machine) RecordActivity() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateActive {
		return
	}
	m.watchdog.OnActivity()
}

// Resume rehydrates a session from the credential store at process start.
// An expired access token is recovered with exactly one refresh; a
// rejected refresh wipes the store and leaves the machine logged out. An
// employee session resumes into the PIN gate, never directly into Active.
func (m *Machine) Resume(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateLoggedOut {
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, m.state)
	}

	snapshot, err := m.store.Load(ctx)
	if err != nil {
		return err
	}
	if snapshot == nil {
		return nil
	}

	creds := snapshot.Credentials
	if credstore.AccessTokenExpired(creds.AccessToken) {
		refreshed, err := m.identity.Refresh(ctx, creds.RefreshToken)
		if errors.Is(err, identity.ErrUnavailable) {
			// provider unreachable: keep the snapshot for a later retry
			return err
		}
		if err != nil {
			m.logger.Info("stored session no longer valid; clearing", zap.Error(err))
			m.clearStoreLocked(ctx)
			return nil
		}
		creds.AccessToken = refreshed.AccessToken
	}

	actor := snapshot.Actor
	m.actor = &actor
	m.creds = creds
	m.failedAttempts = 0
	m.saveLocked(ctx)

	if actor.IsSuperAdmin() {
		m.secondaryVerified = true
		m.setStateLocked(ctx, events.EventSessionResumed, StateActive)
		return nil
	}

	m.secondaryVerified = false
	m.watchdog.Start(m.pinTimeoutLocked())
	m.setStateLocked(ctx, events.EventSessionResumed, StateAwaitingSecondaryFactor)
	return nil
}

// SelectStore pins a center admin's session to one of the center's
// stores. The store must belong to the admin's center.
func (m *Machine) SelectStore(ctx context.Context, storeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateActive {
		return fmt.Errorf("%w: select store from %s", ErrInvalidTransition, m.state)
	}
	if !m.actor.IsEmployee() || !m.actor.Employee.IsCenterAdmin {
		return errors.New("session: store selection requires a center admin")
	}

	stores, err := m.identity.ListStores(ctx, m.creds.AccessToken)
	if err != nil {
		return err
	}
	var found bool
	for _, store := range stores {
		if store.ID == storeID && store.CenterID == m.actor.Employee.CenterID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("session: store %s is not part of center %s", storeID, m.actor.Employee.CenterID)
	}

	selected := storeID
	m.actor.Employee.StoreID = &selected
	m.saveLocked(ctx)
	m.publishLocked(ctx, events.NewEventWithPayload(
		events.EventStoreSelected, m.actor, string(m.state), string(m.state),
		events.StoreSelectedPayload{StoreID: storeID},
	))
	return nil
}

// AccessToken returns a live access token for outgoing request traffic,
// refreshing once when the held token has expired.
func (m *Machine) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateLoggedOut {
		return "", fmt.Errorf("%w: no session", ErrInvalidTransition)
	}
	if credstore.AccessTokenExpired(m.creds.AccessToken) {
		if err := m.recoverCredentialsLocked(ctx); err != nil {
			return "", err
		}
	}
	return m.creds.AccessToken, nil
}

// Stores lists the stores of the current employee's center.
func (m *Machine) Stores(ctx context.Context) ([]identity.StoreSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateActive {
		return nil, fmt.Errorf("%w: list stores from %s", ErrInvalidTransition, m.state)
	}
	return m.identity.ListStores(ctx, m.creds.AccessToken)
}

// State returns the current machine state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsAuthenticated reports whether the session is fully usable.
func (m *Machine) IsAuthenticated() bool {
	return m.State() == StateActive
}

// CurrentActor returns a copy of the authenticated actor, or nil.
func (m *Machine) CurrentActor() *domain.Actor {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.actor == nil {
		return nil
	}
	copied := *m.actor
	if m.actor.Employee != nil {
		emp := *m.actor.Employee
		copied.Employee = &emp
	}
	return &copied
}

// Permissions resolves the current actor's permission set.
func (m *Machine) Permissions() permission.Set {
	return permission.Resolve(m.CurrentActor())
}

// CanAccessResource answers resource-scope questions for the current
// actor.
func (m *Machine) CanAccessResource(centerID, storeID *string) bool {
	return permission.CanAccessResource(m.CurrentActor(), centerID, storeID)
}

// FailedAttempts returns the current secondary-factor failure count.
func (m *Machine) FailedAttempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failedAttempts
}

// SetPendingReturnTarget remembers where the caller was headed before a
// secondary-factor interruption.
func (m *Machine) SetPendingReturnTarget(target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingReturnTarget = target
}

// ConsumePendingReturnTarget returns the stored target and clears it.
func (m *Machine) ConsumePendingReturnTarget() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pendingReturnTarget == "" {
		return "", false
	}
	target := m.pendingReturnTarget
	m.pendingReturnTarget = ""
	return target, true
}

// recoverCredentialsLocked performs the single refresh attempt allowed
// for a credential error. A rejected refresh is fatal; a transport
// failure is surfaced without touching session state.
func (m *Machine) recoverCredentialsLocked(ctx context.Context) error {
	result, err := m.identity.Refresh(ctx, m.creds.RefreshToken)
	if errors.Is(err, identity.ErrUnavailable) {
		return err
	}
	if err != nil {
		m.logoutLocked(ctx)
		return fmt.Errorf("%w: token refresh rejected", ErrSessionTerminated)
	}
	m.creds.AccessToken = result.AccessToken
	m.saveLocked(ctx)
	return nil
}

func (m *Machine) logoutLocked(ctx context.Context) {
	from := m.state
	m.watchdog.Stop()
	m.clearStoreLocked(ctx)

	actor := m.actor
	m.actor = nil
	m.creds = domain.Credentials{}
	m.secondaryVerified = false
	m.failedAttempts = 0
	m.pendingReturnTarget = ""
	m.state = StateLoggedOut

	m.publishLocked(ctx, events.NewEvent(events.EventSessionLoggedOut, actor, string(from), string(StateLoggedOut)))
}

func (m *Machine) setStateLocked(ctx context.Context, eventType events.EventType, to State) {
	from := m.state
	m.state = to
	m.publishLocked(ctx, events.NewEvent(eventType, m.actor, string(from), string(to)))
}

func (m *Machine) publishLocked(ctx context.Context, evt events.Event) {
	if m.dispatcher == nil {
		return
	}
	_ = m.dispatcher.Publish(ctx, evt)
}

func (m *Machine) saveLocked(ctx context.Context) {
	if m.actor == nil {
		return
	}
	if err := m.store.Save(ctx, m.creds, *m.actor); err != nil {
		// the in-memory session stays usable; only rehydration is lost
		m.logger.Warn("failed to persist credentials", zap.Error(err))
	}
}

func (m *Machine) clearStoreLocked(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn("failed to clear credential store", zap.Error(err))
	}
}

func (m *Machine) pinTimeoutLocked() time.Duration {
	if m.actor != nil {
		if d := m.actor.PINTimeout(); d > 0 {
			return d
		}
	}
	return m.defaultPINTimeout
}

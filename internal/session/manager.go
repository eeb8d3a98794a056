// Package session establishes and maintains the one authenticated principal
// of a browser session on top of an auth provider client and the
// user_profiles gateway.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/clinicbill/clinicbill/internal/domain/admin"
	"github.com/clinicbill/clinicbill/internal/platform/auth"
	"github.com/clinicbill/clinicbill/internal/platform/events"
)

// State is the manager lifecycle. StateInitializing means identity
// resolution is in flight and the workspace answers nothing until it
// settles. StateClosed is terminal.
type State string

const (
	StateInitializing    State = "initializing"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
	StateClosed          State = "closed"
)

// ErrClosed is returned by Wait after Close.
var ErrClosed = errors.New("session manager closed")

// Snapshot is a consistent view of the manager.
type Snapshot struct {
	State           State           `json:"state"`
	Principal       *auth.Principal `json:"principal,omitempty"`
	IsAuthenticated bool            `json:"isAuthenticated"`
	Loading         bool            `json:"loading"`
}

// Result is what every command returns. Commands never return Go errors.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	// ConfirmationRequired is set by Signup when the account exists but no
	// session was established.
	ConfirmationRequired bool `json:"confirmationRequired,omitempty"`
}

func failure(err error) Result {
	return Result{Error: Message(err)}
}

// ProfileStore is the part of the user_profiles gateway the manager needs.
type ProfileStore interface {
	GetByID(ctx context.Context, id string) (admin.UserProfileRow, error)
	Create(ctx context.Context, row admin.UserProfileRow) (admin.UserProfileRow, error)
}

// Options tunes timeouts and token refresh.
type Options struct {
	SessionCheckTimeout time.Duration
	ProfileTimeout      time.Duration
	// RefreshMargin refreshes the access token this long before exp.
	RefreshMargin time.Duration
	// Tokens decodes access-token expiry. Session.ExpiresAt is used when nil.
	Tokens *auth.Tokens
	Logger zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.SessionCheckTimeout <= 0 {
		o.SessionCheckTimeout = 10 * time.Second
	}
	if o.ProfileTimeout <= 0 {
		o.ProfileTimeout = 15 * time.Second
	}
	if o.RefreshMargin <= 0 {
		o.RefreshMargin = time.Minute
	}
	return o
}

// Manager owns one workspace's identity.
type Manager struct {
	provider auth.Provider
	profiles ProfileStore
	opts     Options
	log      zerolog.Logger
	changes  *events.Bus[Snapshot]
	gate     singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       State
	principal   *auth.Principal
	settled     chan struct{}
	unsubscribe func()
	refresh     *time.Timer
}

// NewManager builds a manager in StateInitializing. Call Start to resolve the
// persisted session.
func NewManager(provider auth.Provider, profiles ProfileStore, opts Options) *Manager {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		provider: provider,
		profiles: profiles,
		opts:     opts,
		log:      opts.Logger.With().Str("component", "session").Logger(),
		changes:  events.NewBus[Snapshot](),
		ctx:      ctx,
		cancel:   cancel,
		state:    StateInitializing,
		settled:  make(chan struct{}),
	}
}

// Changes publishes a Snapshot after every state or principal change.
func (m *Manager) Changes() *events.Bus[Snapshot] { return m.changes }

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	s := Snapshot{
		State:           m.state,
		IsAuthenticated: m.state == StateAuthenticated,
		Loading:         m.state == StateInitializing,
	}
	if m.principal != nil {
		p := *m.principal
		s.Principal = &p
	}
	return s
}

// Principal returns the active principal.
func (m *Manager) Principal() (auth.Principal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticated || m.principal == nil {
		return auth.Principal{}, false
	}
	return *m.principal, true
}

// Wait blocks until identity resolution settles.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.Lock()
	ch, state := m.settled, m.state
	m.mu.Unlock()
	if state == StateClosed {
		return ErrClosed
	}
	select {
	case <-ch:
		if m.Snapshot().State == StateClosed {
			return ErrClosed
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start subscribes to provider events and resolves the persisted session.
// It returns once the manager has settled or a timeout fired.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.unsubscribe == nil && m.state != StateClosed {
		m.unsubscribe = m.provider.Events().Subscribe(m.onAuthEvent)
	}
	m.mu.Unlock()

	sess, err := within(ctx, m.opts.SessionCheckTimeout, m.provider.GetSession)
	if err != nil {
		m.log.Warn().Err(err).Msg("session check failed")
		m.settle(StateUnauthenticated, nil)
		return
	}
	m.resolve(ctx, sess)
}

// Close stops following provider events. The principal is dropped.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	unsub := m.unsubscribe
	m.unsubscribe = nil
	m.stopRefreshLocked()
	m.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	m.cancel()
	m.settle(StateClosed, nil)
}

func (m *Manager) onAuthEvent(ev auth.Event) {
	m.log.Debug().Str("event", string(ev.Type)).Msg("auth state change")
	switch ev.Type {
	case auth.EventSignedIn:
		m.begin()
		m.resolve(m.ctx, ev.Session)
	case auth.EventTokenRefreshed:
		m.resolve(m.ctx, ev.Session)
	case auth.EventSignedOut:
		m.settle(StateUnauthenticated, nil)
	}
}

// begin re-enters StateInitializing unless the manager is closed.
func (m *Manager) begin() {
	m.mu.Lock()
	if m.state == StateClosed || m.state == StateInitializing {
		m.mu.Unlock()
		return
	}
	m.state = StateInitializing
	m.settled = make(chan struct{})
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.changes.Publish(snap)
}

// settle moves to a resting state and wakes waiters.
func (m *Manager) settle(state State, principal *auth.Principal) {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	m.state = state
	m.principal = principal
	if state != StateAuthenticated {
		m.stopRefreshLocked()
	}
	select {
	case <-m.settled:
	default:
		close(m.settled)
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.changes.Publish(snap)
}

// resolve loads the profile behind sess and publishes it. Unconfirmed
// accounts are treated as signed out.
func (m *Manager) resolve(ctx context.Context, sess *auth.Session) {
	if sess == nil {
		m.settle(StateUnauthenticated, nil)
		return
	}
	if !sess.User.EmailConfirmed() {
		m.log.Info().Str("user_id", sess.User.ID).Msg("email not confirmed; treating as signed out")
		m.settle(StateUnauthenticated, nil)
		return
	}

	v, err, shared := m.gate.Do("profile", func() (interface{}, error) {
		return within(ctx, m.opts.ProfileTimeout, func(ctx context.Context) (admin.UserProfileRow, error) {
			return m.profiles.GetByID(ctx, sess.User.ID)
		})
	})
	if shared {
		m.log.Debug().Msg("joined in-flight profile resolution")
	}
	if err != nil {
		m.log.Warn().Err(err).Str("user_id", sess.User.ID).Msg("profile resolution failed")
		m.settle(StateUnauthenticated, nil)
		return
	}

	p := admin.UserProfileFromRow(v.(admin.UserProfileRow)).Principal()
	if p.UserID != sess.User.ID {
		if shared {
			// Joined a resolution for a different account.
			m.resolve(ctx, sess)
			return
		}
		m.settle(StateUnauthenticated, nil)
		return
	}
	m.settle(StateAuthenticated, &p)
	m.scheduleRefresh(sess)
}

func (m *Manager) expiry(sess *auth.Session) time.Time {
	if m.opts.Tokens != nil {
		if exp, err := m.opts.Tokens.ExpiresAt(sess.AccessToken); err == nil && !exp.IsZero() {
			return exp
		}
	}
	return sess.ExpiresAt
}

const minRefreshWait = time.Second

func (m *Manager) scheduleRefresh(sess *auth.Session) {
	exp := m.expiry(sess)
	if exp.IsZero() {
		return
	}
	// A margin longer than the token lifetime would otherwise refresh in a
	// tight loop.
	wait := time.Until(exp) - m.opts.RefreshMargin
	if wait < minRefreshWait {
		wait = minRefreshWait
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticated {
		return
	}
	m.stopRefreshLocked()
	m.refresh = time.AfterFunc(wait, func() {
		if res := m.RefreshSession(m.ctx); !res.Success {
			m.log.Warn().Str("error", res.Error).Msg("scheduled token refresh failed")
		}
	})
}

func (m *Manager) stopRefreshLocked() {
	if m.refresh != nil {
		m.refresh.Stop()
		m.refresh = nil
	}
}

// Login signs in with email and password. Provider events complete the
// profile resolution before Login returns.
func (m *Manager) Login(ctx context.Context, email, password string) Result {
	if _, err := m.provider.SignIn(ctx, email, password); err != nil {
		cat, msg := Classify(err)
		m.log.Info().Str("category", string(cat)).Msg("sign-in rejected")
		return Result{Error: msg}
	}
	if snap := m.Snapshot(); !snap.IsAuthenticated {
		return Result{Error: "Signed in, but your user profile could not be loaded. Please try again."}
	}
	return Result{Success: true}
}

// SignupParams are the fields collected by the sign-up form.
type SignupParams struct {
	Email      string
	Password   string
	Name       string
	Role       auth.Role
	ClinicID   string
	ProviderID string
}

// Signup creates the account and its profile. When the profile insert fails
// it is retried once as a provider named after the email's local part.
func (m *Manager) Signup(ctx context.Context, p SignupParams) Result {
	role := p.Role
	if role == "" {
		role = auth.RoleProvider
	}
	res, err := m.provider.SignUp(ctx, auth.SignUpParams{
		Email:    p.Email,
		Password: p.Password,
		Metadata: map[string]interface{}{"name": p.Name, "role": string(role)},
	})
	if err != nil {
		return failure(err)
	}

	profile := admin.UserProfile{
		ID:         res.User.ID,
		Email:      res.User.Email,
		Name:       p.Name,
		Role:       role,
		ClinicID:   p.ClinicID,
		ProviderID: p.ProviderID,
	}
	if err := m.createProfile(ctx, profile); err != nil {
		m.log.Warn().Err(err).Str("user_id", res.User.ID).Msg("profile insert failed; retrying with fallback")
		fallback := admin.UserProfile{
			ID:    res.User.ID,
			Email: res.User.Email,
			Name:  localPart(res.User.Email),
			Role:  auth.RoleProvider,
		}
		if err := m.createProfile(ctx, fallback); err != nil {
			m.log.Error().Err(err).Str("user_id", res.User.ID).Msg("fallback profile insert failed")
		}
	}

	if res.Session == nil {
		return Result{Success: true, ConfirmationRequired: true}
	}
	// The SIGNED_IN event ran before the profile existed.
	m.begin()
	m.resolve(ctx, res.Session)
	return Result{Success: true}
}

func (m *Manager) createProfile(ctx context.Context, p admin.UserProfile) error {
	row, err := p.ToRow()
	if err != nil {
		return err
	}
	_, err = within(ctx, m.opts.ProfileTimeout, func(ctx context.Context) (admin.UserProfileRow, error) {
		return m.profiles.Create(ctx, row)
	})
	return err
}

func localPart(email string) string {
	name, _, _ := strings.Cut(email, "@")
	if name == "" {
		return email
	}
	return name
}

// Logout signs out. Local state is cleared even when the provider call fails.
func (m *Manager) Logout(ctx context.Context) Result {
	err := m.provider.SignOut(ctx)
	m.settle(StateUnauthenticated, nil)
	if err != nil {
		return failure(err)
	}
	return Result{Success: true}
}

func (m *Manager) ResetPassword(ctx context.Context, email string) Result {
	if err := m.provider.ResetPasswordForEmail(ctx, email); err != nil {
		return failure(err)
	}
	return Result{Success: true}
}

func (m *Manager) UpdatePassword(ctx context.Context, newPassword string) Result {
	if err := m.provider.UpdatePassword(ctx, newPassword); err != nil {
		return failure(err)
	}
	return Result{Success: true}
}

// RefreshSession exchanges the refresh token for a new access token.
func (m *Manager) RefreshSession(ctx context.Context) Result {
	if _, err := m.provider.RefreshSession(ctx); err != nil {
		return failure(err)
	}
	return Result{Success: true}
}

// within runs fn under a timeout and gives up when it fires, even if fn
// ignores its context.
func within[T any](parent context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("gave up after %s: %w", d, ctx.Err())
	}
}

package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicbill/clinicbill/internal/domain/admin"
	"github.com/clinicbill/clinicbill/internal/platform/auth"
	"github.com/clinicbill/clinicbill/internal/platform/db"
	"github.com/clinicbill/clinicbill/internal/platform/events"
)

func newDirectory(opts auth.DevOptions) *auth.DevDirectory {
	opts.BcryptCost = bcrypt.MinCost
	return auth.NewDevDirectory(auth.NewTokens([]byte("test-secret"), "test"), opts)
}

func seedAccount(t *testing.T, dir *auth.DevDirectory, profiles admin.UserProfileRepository, email string, role auth.Role, clinicID, providerID string) string {
	t.Helper()
	ctx := context.Background()
	res, err := dir.Client().SignUp(ctx, auth.SignUpParams{Email: email, Password: "secret1"})
	if err != nil {
		t.Fatalf("seed sign-up: %v", err)
	}
	_, err = profiles.Create(ctx, admin.UserProfileRow{
		ID:         res.User.ID,
		Email:      res.User.Email,
		Name:       "Seeded User",
		Role:       string(role),
		ClinicID:   db.NullString(clinicID),
		ProviderID: db.NullString(providerID),
	})
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	return res.User.ID
}

func newManager(t *testing.T, provider auth.Provider, profiles ProfileStore, opts Options) *Manager {
	t.Helper()
	opts.Logger = zerolog.Nop()
	m := NewManager(provider, profiles, opts)
	t.Cleanup(m.Close)
	return m
}

func TestManager_StartWithoutSession(t *testing.T) {
	dir := newDirectory(auth.DevOptions{})
	m := newManager(t, dir.Client(), admin.NewUserProfileMemRepo(), Options{})

	if snap := m.Snapshot(); !snap.Loading || snap.State != StateInitializing {
		t.Fatalf("expected initializing before Start, got %+v", snap)
	}
	m.Start(context.Background())

	snap := m.Snapshot()
	if snap.State != StateUnauthenticated || snap.Loading || snap.IsAuthenticated {
		t.Errorf("expected unauthenticated, got %+v", snap)
	}
	if err := m.Wait(context.Background()); err != nil {
		t.Errorf("expected settled manager, got %v", err)
	}
}

func TestManager_StartWithPersistedSession(t *testing.T) {
	dir := newDirectory(auth.DevOptions{})
	profiles := admin.NewUserProfileMemRepo()
	seedAccount(t, dir, profiles, "staff@clinic.io", auth.RoleOfficeStaff, "C1", "")

	client := dir.Client()
	if _, err := client.SignIn(context.Background(), "staff@clinic.io", "secret1"); err != nil {
		t.Fatalf("sign-in: %v", err)
	}
	m := newManager(t, client, profiles, Options{})
	m.Start(context.Background())

	p, ok := m.Principal()
	if !ok {
		t.Fatalf("expected authenticated principal, got %+v", m.Snapshot())
	}
	if p.Role != auth.RoleOfficeStaff || p.ClinicID != "C1" {
		t.Errorf("unexpected principal: %+v", p)
	}
}

// stubProvider holds a fixed persisted session.
type stubProvider struct {
	session *auth.Session
	events  *events.Bus[auth.Event]
}

func newStubProvider(s *auth.Session) *stubProvider {
	return &stubProvider{session: s, events: events.NewBus[auth.Event]()}
}

func (p *stubProvider) GetSession(context.Context) (*auth.Session, error) { return p.session, nil }
func (p *stubProvider) SignUp(context.Context, auth.SignUpParams) (*auth.SignUpResult, error) {
	return nil, errors.New("not implemented")
}
func (p *stubProvider) SignIn(context.Context, string, string) (*auth.Session, error) {
	return nil, errors.New("Invalid login credentials")
}
func (p *stubProvider) SignOut(context.Context) error { return nil }
func (p *stubProvider) ResetPasswordForEmail(context.Context, string) error {
	return errors.New("Email rate limit exceeded")
}
func (p *stubProvider) UpdatePassword(context.Context, string) error {
	return errors.New("New password should be different from the old password.")
}
func (p *stubProvider) RefreshSession(context.Context) (*auth.Session, error) {
	return nil, auth.ErrNoSession
}
func (p *stubProvider) Events() *events.Bus[auth.Event] { return p.events }

func TestManager_UnconfirmedSessionIsUnauthenticated(t *testing.T) {
	provider := newStubProvider(&auth.Session{User: auth.User{ID: "u1", Email: "a@b.io"}})
	m := newManager(t, provider, admin.NewUserProfileMemRepo(), Options{})
	m.Start(context.Background())

	if snap := m.Snapshot(); snap.State != StateUnauthenticated {
		t.Errorf("expected unauthenticated for unconfirmed email, got %+v", snap)
	}
}

func TestManager_LoginAndLogout(t *testing.T) {
	dir := newDirectory(auth.DevOptions{})
	profiles := admin.NewUserProfileMemRepo()
	id := seedAccount(t, dir, profiles, "doc@clinic.io", auth.RoleProvider, "C1", "P1")

	m := newManager(t, dir.Client(), profiles, Options{Tokens: auth.NewTokens([]byte("test-secret"), "test")})
	m.Start(context.Background())

	var states []State
	m.Changes().Subscribe(func(s Snapshot) { states = append(states, s.State) })

	res := m.Login(context.Background(), "doc@clinic.io", "secret1")
	if !res.Success {
		t.Fatalf("expected login success, got %+v", res)
	}
	p, ok := m.Principal()
	if !ok || p.UserID != id || p.ProviderID != "P1" {
		t.Fatalf("unexpected principal %+v (ok=%v)", p, ok)
	}
	if len(states) < 2 || states[0] != StateInitializing || states[len(states)-1] != StateAuthenticated {
		t.Errorf("expected initializing then authenticated, got %v", states)
	}

	if res := m.Logout(context.Background()); !res.Success {
		t.Fatalf("expected logout success, got %+v", res)
	}
	if snap := m.Snapshot(); snap.IsAuthenticated || snap.Principal != nil {
		t.Errorf("expected cleared state after logout, got %+v", snap)
	}
}

func TestManager_LoginClassifiesFailures(t *testing.T) {
	dir := newDirectory(auth.DevOptions{RequireConfirmation: true})
	profiles := admin.NewUserProfileMemRepo()
	m := newManager(t, dir.Client(), profiles, Options{})
	m.Start(context.Background())

	if res := m.Signup(context.Background(), SignupParams{Email: "new@clinic.io", Password: "secret1", Name: "New"}); !res.Success {
		t.Fatalf("signup failed: %+v", res)
	}

	tests := []struct {
		name     string
		email    string
		password string
		want     string
	}{
		{"unconfirmed", "new@clinic.io", "secret1", messages[CategoryEmailNotConfirmed]},
		{"wrong password", "new@clinic.io", "nope", messages[CategoryInvalidCredentials]},
		{"unknown account", "ghost@clinic.io", "secret1", messages[CategoryInvalidCredentials]},
		{"malformed email", "not-an-email", "secret1", messages[CategoryInvalidEmail]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := m.Login(context.Background(), tt.email, tt.password)
			if res.Success {
				t.Fatal("expected failure")
			}
			if res.Error != tt.want {
				t.Errorf("expected %q, got %q", tt.want, res.Error)
			}
		})
	}
}

func TestManager_SignupConfirmationRequired(t *testing.T) {
	dir := newDirectory(auth.DevOptions{RequireConfirmation: true})
	profiles := admin.NewUserProfileMemRepo()
	m := newManager(t, dir.Client(), profiles, Options{})
	m.Start(context.Background())

	res := m.Signup(context.Background(), SignupParams{
		Email: "billing@clinic.io", Password: "secret1", Name: "Bill", Role: auth.RoleBillingStaff, ClinicID: "C1",
	})
	if !res.Success || !res.ConfirmationRequired {
		t.Fatalf("expected success pending confirmation, got %+v", res)
	}
	if m.Snapshot().IsAuthenticated {
		t.Error("no session until the email is confirmed")
	}
	rows, _ := profiles.List(context.Background())
	if len(rows) != 1 || rows[0].Role != string(auth.RoleBillingStaff) || db.StringValue(rows[0].ClinicID) != "C1" {
		t.Errorf("expected explicit profile insert, got %+v", rows)
	}
}

// flakyProfiles fails the first n Create calls.
type flakyProfiles struct {
	admin.UserProfileRepository
	failures int
}

func (f *flakyProfiles) Create(ctx context.Context, row admin.UserProfileRow) (admin.UserProfileRow, error) {
	if f.failures > 0 {
		f.failures--
		return admin.UserProfileRow{}, errors.New("new row violates row-level security policy")
	}
	return f.UserProfileRepository.Create(ctx, row)
}

func TestManager_SignupFallsBackToMinimalProfile(t *testing.T) {
	dir := newDirectory(auth.DevOptions{})
	profiles := &flakyProfiles{UserProfileRepository: admin.NewUserProfileMemRepo(), failures: 1}
	m := newManager(t, dir.Client(), profiles, Options{})
	m.Start(context.Background())

	res := m.Signup(context.Background(), SignupParams{
		Email: "jane.doe@clinic.io", Password: "secret1", Name: "Jane", Role: auth.RoleAdmin,
	})
	if !res.Success || res.ConfirmationRequired {
		t.Fatalf("expected immediate success, got %+v", res)
	}
	p, ok := m.Principal()
	if !ok {
		t.Fatalf("expected authenticated after signup, got %+v", m.Snapshot())
	}
	if p.Role != auth.RoleProvider || p.Name != "jane.doe" {
		t.Errorf("expected fallback provider profile named after email, got %+v", p)
	}
}

func TestManager_SignupErrors(t *testing.T) {
	dir := newDirectory(auth.DevOptions{SignupsDisabled: true})
	m := newManager(t, dir.Client(), admin.NewUserProfileMemRepo(), Options{})
	res := m.Signup(context.Background(), SignupParams{Email: "a@b.io", Password: "secret1", Name: "A"})
	if res.Success || res.Error != messages[CategorySignupDisabled] {
		t.Errorf("expected signup disabled message, got %+v", res)
	}
}

// hangingProfiles never answers until released, ignoring its context.
type hangingProfiles struct {
	release chan struct{}
}

func (h hangingProfiles) GetByID(context.Context, string) (admin.UserProfileRow, error) {
	<-h.release
	return admin.UserProfileRow{}, errors.New("released")
}

func (h hangingProfiles) Create(context.Context, admin.UserProfileRow) (admin.UserProfileRow, error) {
	<-h.release
	return admin.UserProfileRow{}, errors.New("released")
}

func TestManager_ProfileTimeoutClearsLoading(t *testing.T) {
	now := time.Now()
	provider := newStubProvider(&auth.Session{User: auth.User{ID: "u1", EmailConfirmedAt: &now}})
	profiles := hangingProfiles{release: make(chan struct{})}
	t.Cleanup(func() { close(profiles.release) })

	m := newManager(t, provider, profiles, Options{ProfileTimeout: 20 * time.Millisecond})

	done := make(chan struct{})
	go func() {
		m.Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after the profile timeout")
	}

	if snap := m.Snapshot(); snap.Loading || snap.State != StateUnauthenticated {
		t.Errorf("expected loading cleared, got %+v", snap)
	}
}

// countingProfiles records how many lookups overlap.
type countingProfiles struct {
	admin.UserProfileRepository
	delay time.Duration

	mu        sync.Mutex
	active    int
	maxActive int
}

func (c *countingProfiles) GetByID(ctx context.Context, id string) (admin.UserProfileRow, error) {
	c.mu.Lock()
	c.active++
	if c.active > c.maxActive {
		c.maxActive = c.active
	}
	c.mu.Unlock()

	time.Sleep(c.delay)

	c.mu.Lock()
	c.active--
	c.mu.Unlock()
	return c.UserProfileRepository.GetByID(ctx, id)
}

func TestManager_ProfileResolutionNeverOverlaps(t *testing.T) {
	profiles := &countingProfiles{UserProfileRepository: admin.NewUserProfileMemRepo(), delay: 20 * time.Millisecond}
	if _, err := profiles.Create(context.Background(), admin.UserProfileRow{
		ID: "u1", Email: "a@b.io", Name: "A", Role: string(auth.RoleAdmin),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	now := time.Now()
	sess := &auth.Session{User: auth.User{ID: "u1", EmailConfirmedAt: &now}}
	m := newManager(t, newStubProvider(sess), profiles, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.resolve(context.Background(), sess)
		}()
	}
	wg.Wait()

	if profiles.maxActive != 1 {
		t.Errorf("expected one lookup at a time, saw %d", profiles.maxActive)
	}
	if _, ok := m.Principal(); !ok {
		t.Error("expected authenticated principal")
	}
}

func TestManager_CommandsReturnMessages(t *testing.T) {
	m := newManager(t, newStubProvider(nil), admin.NewUserProfileMemRepo(), Options{})
	ctx := context.Background()

	if res := m.ResetPassword(ctx, "a@b.io"); res.Success || res.Error != messages[CategoryRateLimited] {
		t.Errorf("expected rate limited message, got %+v", res)
	}
	res := m.UpdatePassword(ctx, "secret1")
	if res.Success || res.Error != "New password should be different from the old password." {
		t.Errorf("expected verbatim message, got %+v", res)
	}
	if res := m.RefreshSession(ctx); res.Success || res.Error != auth.ErrNoSession.Error() {
		t.Errorf("expected verbatim no-session message, got %+v", res)
	}
}

func TestManager_CloseIsTerminal(t *testing.T) {
	dir := newDirectory(auth.DevOptions{})
	client := dir.Client()
	m := NewManager(client, admin.NewUserProfileMemRepo(), Options{Logger: zerolog.Nop()})
	m.Start(context.Background())
	m.Close()
	m.Close()

	if err := m.Wait(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if client.Events().Len() != 0 {
		t.Error("expected provider subscription to be removed")
	}
	if snap := m.Snapshot(); snap.State != StateClosed {
		t.Errorf("expected closed, got %s", snap.State)
	}
}

func TestManager_RefreshesBeforeExpiry(t *testing.T) {
	dir := newDirectory(auth.DevOptions{AccessTokenTTL: time.Minute})
	profiles := admin.NewUserProfileMemRepo()
	seedAccount(t, dir, profiles, "doc@clinic.io", auth.RoleProvider, "C1", "P1")

	client := dir.Client()
	refreshed := make(chan struct{})
	var once sync.Once
	client.Events().Subscribe(func(ev auth.Event) {
		if ev.Type == auth.EventTokenRefreshed {
			once.Do(func() { close(refreshed) })
		}
	})

	// The margin exceeds the token lifetime, so the refresh fires at the floor.
	m := newManager(t, client, profiles, Options{
		Tokens:        auth.NewTokens([]byte("test-secret"), "test"),
		RefreshMargin: time.Hour,
	})
	m.Start(context.Background())
	if res := m.Login(context.Background(), "doc@clinic.io", "secret1"); !res.Success {
		t.Fatalf("login: %+v", res)
	}

	select {
	case <-refreshed:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a scheduled token refresh")
	}
	deadline := time.Now().Add(2 * time.Second)
	for !m.Snapshot().IsAuthenticated {
		if time.Now().After(deadline) {
			t.Fatal("refresh must leave the session authenticated")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

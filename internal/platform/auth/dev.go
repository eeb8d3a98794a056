package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicbill/clinicbill/internal/platform/events"
)

// Messages returned by the development provider. They match the hosted
// provider's wording so that error classification behaves the same locally.
var (
	ErrInvalidCredentials = errors.New("Invalid login credentials")
	ErrEmailNotConfirmed  = errors.New("Email not confirmed")
	ErrUserExists         = errors.New("User already registered")
	ErrUserNotFound       = errors.New("User not found")
	ErrInvalidEmail       = errors.New("Unable to validate email address: invalid format")
	ErrWeakPassword       = errors.New("Password should be at least 6 characters")
	ErrSignupsDisabled    = errors.New("Signups not allowed for this instance")
	ErrRateLimited        = errors.New("Request rate limit reached")
	ErrNoSession          = errors.New("Auth session missing!")
	ErrInvalidRefresh     = errors.New("Invalid Refresh Token: Refresh Token Not Found")
)

// DevOptions configures the in-process development auth provider.
type DevOptions struct {
	RequireConfirmation bool
	SignupsDisabled     bool
	MinPasswordLength   int
	AccessTokenTTL      time.Duration
	MaxFailedSignIns    int
	FailureWindow       time.Duration
	BcryptCost          int
}

func (o DevOptions) withDefaults() DevOptions {
	if o.MinPasswordLength <= 0 {
		o.MinPasswordLength = 6
	}
	if o.AccessTokenTTL <= 0 {
		o.AccessTokenTTL = time.Hour
	}
	if o.MaxFailedSignIns <= 0 {
		o.MaxFailedSignIns = 5
	}
	if o.FailureWindow <= 0 {
		o.FailureWindow = time.Minute
	}
	if o.BcryptCost == 0 {
		o.BcryptCost = bcrypt.DefaultCost
	}
	return o
}

type devAccount struct {
	user     User
	hash     []byte
	failures []time.Time
}

// DevDirectory is the shared account directory behind every DevProvider
// client. It stands in for the hosted provider when AUTH_MODE=development.
type DevDirectory struct {
	mu       sync.Mutex
	opts     DevOptions
	tokens   *Tokens
	accounts map[string]*devAccount // by lower-cased email
	refresh  map[string]string      // refresh token -> email
	now      func() time.Time
}

// NewDevDirectory creates an empty directory signing tokens with tokens.
func NewDevDirectory(tokens *Tokens, opts DevOptions) *DevDirectory {
	return &DevDirectory{
		opts:     opts.withDefaults(),
		tokens:   tokens,
		accounts: make(map[string]*devAccount),
		refresh:  make(map[string]string),
		now:      time.Now,
	}
}

// Confirm marks the account's email as confirmed.
func (d *DevDirectory) Confirm(email string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	acct, ok := d.accounts[normalizeEmail(email)]
	if !ok {
		return ErrUserNotFound
	}
	now := d.now()
	acct.user.EmailConfirmedAt = &now
	return nil
}

// Client returns a new provider client with no current session.
func (d *DevDirectory) Client() *DevProvider {
	return &DevProvider{dir: d, events: events.NewBus[Event]()}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email, "@")
}

func (d *DevDirectory) signUp(params SignUpParams) (*SignUpResult, error) {
	if d.opts.SignupsDisabled {
		return nil, ErrSignupsDisabled
	}
	email := normalizeEmail(params.Email)
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	if len(params.Password) < d.opts.MinPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), d.opts.BcryptCost)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.accounts[email]; exists {
		return nil, ErrUserExists
	}
	user := User{ID: uuid.New().String(), Email: email, Metadata: params.Metadata}
	if !d.opts.RequireConfirmation {
		now := d.now()
		user.EmailConfirmedAt = &now
	}
	d.accounts[email] = &devAccount{user: user, hash: hash}

	res := &SignUpResult{User: user}
	if user.EmailConfirmed() {
		sess, err := d.issueLocked(email)
		if err != nil {
			return nil, err
		}
		res.Session = sess
	}
	return res, nil
}

func (d *DevDirectory) signIn(email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}

	d.mu.Lock()
	acct, ok := d.accounts[email]
	if !ok {
		d.mu.Unlock()
		return nil, ErrInvalidCredentials
	}
	now := d.now()
	acct.failures = recentFailures(acct.failures, now, d.opts.FailureWindow)
	if len(acct.failures) >= d.opts.MaxFailedSignIns {
		d.mu.Unlock()
		return nil, ErrRateLimited
	}
	hash := acct.hash
	d.mu.Unlock()

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		d.mu.Lock()
		acct.failures = append(acct.failures, now)
		d.mu.Unlock()
		return nil, ErrInvalidCredentials
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	acct.failures = nil
	if !acct.user.EmailConfirmed() {
		return nil, ErrEmailNotConfirmed
	}
	return d.issueLocked(email)
}

func recentFailures(failures []time.Time, now time.Time, window time.Duration) []time.Time {
	kept := failures[:0]
	for _, f := range failures {
		if now.Sub(f) < window {
			kept = append(kept, f)
		}
	}
	return kept
}

func (d *DevDirectory) issueLocked(email string) (*Session, error) {
	acct := d.accounts[email]
	token, exp, err := d.tokens.Issue(acct.user.ID, acct.user.Email, d.opts.AccessTokenTTL, d.now())
	if err != nil {
		return nil, err
	}
	refresh := uuid.New().String()
	d.refresh[refresh] = email
	return &Session{AccessToken: token, RefreshToken: refresh, ExpiresAt: exp, User: acct.user}, nil
}

func (d *DevDirectory) refreshSession(refreshToken string) (*Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	email, ok := d.refresh[refreshToken]
	if !ok {
		return nil, ErrInvalidRefresh
	}
	delete(d.refresh, refreshToken)
	return d.issueLocked(email)
}

func (d *DevDirectory) revoke(refreshToken string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.refresh, refreshToken)
}

func (d *DevDirectory) updatePassword(userID, newPassword string) (User, error) {
	if len(newPassword) < d.opts.MinPasswordLength {
		return User{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), d.opts.BcryptCost)
	if err != nil {
		return User{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, acct := range d.accounts {
		if acct.user.ID == userID {
			acct.hash = hash
			return acct.user, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (d *DevDirectory) exists(email string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.accounts[normalizeEmail(email)]
	return ok
}

// DevProvider is one client of a DevDirectory.
type DevProvider struct {
	dir     *DevDirectory
	mu      sync.Mutex
	session *Session
	events  *events.Bus[Event]
}

var _ Provider = (*DevProvider)(nil)

func (p *DevProvider) Events() *events.Bus[Event] { return p.events }

func (p *DevProvider) GetSession(_ context.Context) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil, nil
	}
	s := *p.session
	return &s, nil
}

func (p *DevProvider) setSession(s *Session, evt EventType) {
	p.mu.Lock()
	p.session = s
	p.mu.Unlock()
	p.events.Publish(Event{Type: evt, Session: s})
}

func (p *DevProvider) SignUp(_ context.Context, params SignUpParams) (*SignUpResult, error) {
	res, err := p.dir.signUp(params)
	if err != nil {
		return nil, err
	}
	if res.Session != nil {
		p.setSession(res.Session, EventSignedIn)
	}
	return res, nil
}

func (p *DevProvider) SignIn(_ context.Context, email, password string) (*Session, error) {
	s, err := p.dir.signIn(email, password)
	if err != nil {
		return nil, err
	}
	p.setSession(s, EventSignedIn)
	return s, nil
}

func (p *DevProvider) SignOut(_ context.Context) error {
	p.mu.Lock()
	s := p.session
	p.session = nil
	p.mu.Unlock()
	if s != nil {
		p.dir.revoke(s.RefreshToken)
	}
	p.events.Publish(Event{Type: EventSignedOut})
	return nil
}

func (p *DevProvider) ResetPasswordForEmail(_ context.Context, email string) error {
	if !validEmail(normalizeEmail(email)) {
		return ErrInvalidEmail
	}
	if !p.dir.exists(email) {
		return ErrUserNotFound
	}
	return nil
}

func (p *DevProvider) UpdatePassword(_ context.Context, newPassword string) error {
	p.mu.Lock()
	s := p.session
	p.mu.Unlock()
	if s == nil {
		return ErrNoSession
	}
	user, err := p.dir.updatePassword(s.User.ID, newPassword)
	if err != nil {
		return err
	}
	updated := *s
	updated.User = user
	p.setSession(&updated, EventUserUpdated)
	return nil
}

func (p *DevProvider) RefreshSession(_ context.Context) (*Session, error) {
	p.mu.Lock()
	s := p.session
	p.mu.Unlock()
	if s == nil {
		return nil, ErrNoSession
	}
	next, err := p.dir.refreshSession(s.RefreshToken)
	if err != nil {
		return nil, err
	}
	p.setSession(next, EventTokenRefreshed)
	return next, nil
}

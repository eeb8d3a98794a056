package auth

import (
	"context"
	"time"

	"github.com/clinicbill/clinicbill/internal/platform/events"
)

// User is the auth-provider account (not the durable user profile).
type User struct {
	ID               string                 `json:"id"`
	Email            string                 `json:"email"`
	EmailConfirmedAt *time.Time             `json:"email_confirmed_at,omitempty"`
	Metadata         map[string]interface{} `json:"user_metadata,omitempty"`
}

// EmailConfirmed reports whether the account's email has been confirmed.
func (u User) EmailConfirmed() bool {
	return u.EmailConfirmedAt != nil && !u.EmailConfirmedAt.IsZero()
}

// Session is an authenticated provider session.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// EventType names an authentication-state transition.
type EventType string

const (
	EventSignedIn         EventType = "SIGNED_IN"
	EventSignedOut        EventType = "SIGNED_OUT"
	EventTokenRefreshed   EventType = "TOKEN_REFRESHED"
	EventPasswordRecovery EventType = "PASSWORD_RECOVERY"
	EventUserUpdated      EventType = "USER_UPDATED"
)

// Event is published on a provider's event bus. Session is nil for sign-out.
type Event struct {
	Type    EventType
	Session *Session
}

// SignUpParams carries the account fields for a new sign-up.
type SignUpParams struct {
	Email    string
	Password string
	Metadata map[string]interface{}
}

// SignUpResult holds the created account and, when no confirmation is
// required, the session that was established.
type SignUpResult struct {
	User    User
	Session *Session
}

// Provider is one client of the hosted auth provider. Each instance tracks
// at most one current session, the way a browser client does. Errors carry
// the provider's own message text.
type Provider interface {
	// GetSession returns the persisted session, or nil when signed out.
	GetSession(ctx context.Context) (*Session, error)
	SignUp(ctx context.Context, params SignUpParams) (*SignUpResult, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	ResetPasswordForEmail(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, newPassword string) error
	RefreshSession(ctx context.Context) (*Session, error)
	Events() *events.Bus[Event]
}

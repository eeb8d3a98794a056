// Package gotrue is a client for the hosted GoTrue-compatible auth API. One
// Client tracks one signed-in session, the way a browser client would.
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/clinicbill/clinicbill/internal/platform/auth"
	"github.com/clinicbill/clinicbill/internal/platform/events"
)

// APIError is a non-2xx answer from the auth API. Message carries the
// provider's own text, which the session manager classifies.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Config holds the hosted project settings.
type Config struct {
	URL     string // project URL; "/auth/v1" is appended when missing
	AnonKey string
	// ExpiryMargin refreshes a persisted session this long before it expires.
	ExpiryMargin time.Duration
}

// Client implements auth.Provider against the hosted API.
type Client struct {
	base    string
	anonKey string
	margin  time.Duration
	http    *http.Client
	events  *events.Bus[auth.Event]
	now     func() time.Time

	mu      sync.Mutex
	session *auth.Session
}

var _ auth.Provider = (*Client)(nil)

// New creates a client with no current session. A nil httpClient uses a
// client with a 30s timeout.
func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	base := strings.TrimRight(cfg.URL, "/")
	if !strings.HasSuffix(base, "/auth/v1") {
		base += "/auth/v1"
	}
	margin := cfg.ExpiryMargin
	if margin <= 0 {
		margin = 10 * time.Second
	}
	return &Client{
		base:    base,
		anonKey: cfg.AnonKey,
		margin:  margin,
		http:    httpClient,
		events:  events.NewBus[auth.Event](),
		now:     time.Now,
	}
}

func (c *Client) Events() *events.Bus[auth.Event] { return c.events }

// wire shapes

type userResponse struct {
	ID               string                 `json:"id"`
	Email            string                 `json:"email"`
	EmailConfirmedAt *time.Time             `json:"email_confirmed_at"`
	ConfirmedAt      *time.Time             `json:"confirmed_at"`
	UserMetadata     map[string]interface{} `json:"user_metadata"`
}

func (u userResponse) toUser() auth.User {
	confirmed := u.EmailConfirmedAt
	if confirmed == nil {
		confirmed = u.ConfirmedAt
	}
	return auth.User{ID: u.ID, Email: u.Email, EmailConfirmedAt: confirmed, Metadata: u.UserMetadata}
}

type sessionResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    int64         `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	User         *userResponse `json:"user"`
}

func (s sessionResponse) toSession(now time.Time) *auth.Session {
	exp := time.Unix(s.ExpiresAt, 0)
	if s.ExpiresAt == 0 {
		exp = now.Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	out := &auth.Session{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken, ExpiresAt: exp}
	if s.User != nil {
		out.User = s.User.toUser()
	}
	return out
}

// signup answers with a session when no confirmation is required, and with
// the bare user otherwise.
type signupResponse struct {
	sessionResponse
	userResponse
}

type errorResponse struct {
	Code             interface{} `json:"code"`
	ErrorCode        string      `json:"error_code"`
	Msg              string      `json:"msg"`
	Message          string      `json:"message"`
	Error            string      `json:"error"`
	ErrorDescription string      `json:"error_description"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, bearer string, body, out interface{}) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer == "" {
		bearer = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	apiErr := &APIError{Status: status}
	var er errorResponse
	if err := json.Unmarshal(raw, &er); err == nil {
		apiErr.Code = er.ErrorCode
		if apiErr.Code == "" {
			apiErr.Code = er.Error
		}
		for _, m := range []string{er.Msg, er.Message, er.ErrorDescription, er.Error} {
			if m != "" {
				apiErr.Message = m
				break
			}
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func (c *Client) current() *auth.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Client) setSession(s *auth.Session, evt auth.EventType) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	c.events.Publish(auth.Event{Type: evt, Session: s})
}

// GetSession returns the current session, refreshing it first when it is
// about to expire.
func (c *Client) GetSession(ctx context.Context) (*auth.Session, error) {
	s := c.current()
	if s == nil {
		return nil, nil
	}
	if c.now().Add(c.margin).Before(s.ExpiresAt) {
		cp := *s
		return &cp, nil
	}
	return c.RefreshSession(ctx)
}

func (c *Client) SignUp(ctx context.Context, params auth.SignUpParams) (*auth.SignUpResult, error) {
	body := map[string]interface{}{"email": params.Email, "password": params.Password}
	if len(params.Metadata) > 0 {
		body["data"] = params.Metadata
	}
	var resp signupResponse
	if err := c.do(ctx, http.MethodPost, "/signup", nil, "", body, &resp); err != nil {
		return nil, err
	}

	if resp.AccessToken != "" {
		s := resp.sessionResponse.toSession(c.now())
		c.setSession(s, auth.EventSignedIn)
		return &auth.SignUpResult{User: s.User, Session: s}, nil
	}
	return &auth.SignUpResult{User: resp.userResponse.toUser()}, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	var resp sessionResponse
	q := url.Values{"grant_type": {"password"}}
	if err := c.do(ctx, http.MethodPost, "/token", q, "", map[string]string{"email": email, "password": password}, &resp); err != nil {
		return nil, err
	}
	s := resp.toSession(c.now())
	c.setSession(s, auth.EventSignedIn)
	return s, nil
}

// SignOut revokes the session remotely and always clears it locally.
func (c *Client) SignOut(ctx context.Context) error {
	s := c.current()
	var err error
	if s != nil {
		err = c.do(ctx, http.MethodPost, "/logout", nil, s.AccessToken, nil, nil)
	}
	c.setSession(nil, auth.EventSignedOut)
	return err
}

func (c *Client) ResetPasswordForEmail(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/recover", nil, "", map[string]string{"email": email}, nil)
}

func (c *Client) UpdatePassword(ctx context.Context, newPassword string) error {
	s := c.current()
	if s == nil {
		return &APIError{Status: http.StatusUnauthorized, Code: "session_missing", Message: "Auth session missing!"}
	}
	var user userResponse
	if err := c.do(ctx, http.MethodPut, "/user", nil, s.AccessToken, map[string]string{"password": newPassword}, &user); err != nil {
		return err
	}
	updated := *s
	updated.User = user.toUser()
	c.setSession(&updated, auth.EventUserUpdated)
	return nil
}

func (c *Client) RefreshSession(ctx context.Context) (*auth.Session, error) {
	s := c.current()
	if s == nil || s.RefreshToken == "" {
		return nil, &APIError{Status: http.StatusUnauthorized, Code: "session_missing", Message: "Auth session missing!"}
	}
	var resp sessionResponse
	q := url.Values{"grant_type": {"refresh_token"}}
	if err := c.do(ctx, http.MethodPost, "/token", q, "", map[string]string{"refresh_token": s.RefreshToken}, &resp); err != nil {
		return nil, err
	}
	next := resp.toSession(c.now())
	c.setSession(next, auth.EventTokenRefreshed)
	return next, nil
}

// Package api is the JSON surface of a browser session's workspace. Every
// route runs against the caller's own session manager and data store, and
// record visibility follows the signed-in principal's role.
package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"

	"github.com/clinicbill/clinicbill/internal/platform/auth"
	"github.com/clinicbill/clinicbill/internal/platform/db"
	"github.com/clinicbill/clinicbill/internal/platform/fsm"
	"github.com/clinicbill/clinicbill/internal/platform/middleware"
	"github.com/clinicbill/clinicbill/internal/platform/websocket"
	"github.com/clinicbill/clinicbill/internal/store"
	"github.com/clinicbill/clinicbill/internal/workspace"
)

const (
	// WorkspaceCookie carries the workspace id for browsers.
	WorkspaceCookie = "clinicbill_ws"
	// WorkspaceHeader carries the workspace id for other clients and is
	// echoed on every response.
	WorkspaceHeader = "X-Workspace-ID"

	workspaceKey = "workspace"
)

// Options tune the API surface.
type Options struct {
	// SecureCookie marks the workspace cookie Secure (TLS deployments).
	SecureCookie bool
	// AuthRateLimit throttles the sign-in, sign-up and recovery routes.
	AuthRateLimit middleware.RateLimitConfig
}

// Server binds the routes to a workspace registry.
type Server struct {
	reg      *workspace.Registry
	opts     Options
	validate *validator.Validate
}

func NewServer(reg *workspace.Registry, opts Options) *Server {
	if opts.AuthRateLimit.RequestsPerSecond <= 0 {
		opts.AuthRateLimit = middleware.DefaultRateLimitConfig()
	}
	return &Server{reg: reg, opts: opts, validate: validator.New()}
}

// RegisterRoutes mounts everything on g (normally /api/v1).
func (s *Server) RegisterRoutes(g *echo.Group) {
	g.Use(s.withWorkspace)

	websocket.NewHandler(s.hub).RegisterRoutes(g)

	ready := g.Group("", s.requireReady)
	s.registerSession(ready)

	authed := ready.Group("", s.requirePrincipal)
	s.registerAdmin(authed)
	s.registerPatients(authed)
	s.registerBilling(authed)
	s.registerInvoices(authed)
	s.registerReceivables(authed)
	s.registerTimecards(authed)
	s.registerTodos(authed)
	s.registerData(authed)
}

// withWorkspace attaches the caller's workspace, opening a fresh one when the
// request names none or an expired one.
func (s *Server) withWorkspace(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(WorkspaceHeader)
		if id == "" {
			if ck, err := c.Cookie(WorkspaceCookie); err == nil {
				id = ck.Value
			}
		}

		ws, created := s.reg.Acquire(c.Request().Context(), id)
		if created {
			c.SetCookie(&http.Cookie{
				Name:     WorkspaceCookie,
				Value:    ws.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.opts.SecureCookie,
				SameSite: http.SameSiteLaxMode,
			})
		}
		c.Response().Header().Set(WorkspaceHeader, ws.ID)
		c.Set("workspace_id", ws.ID)
		c.Set(workspaceKey, ws)
		return next(c)
	}
}

// requireReady answers 503 while the workspace is resolving its identity or
// bulk loading.
func (s *Server) requireReady(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ws := workspaceFrom(c)
		if ws.Session.Snapshot().Loading {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "identity resolution in progress")
		}
		if ws.Store.Loading() {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "data load in progress")
		}
		return next(c)
	}
}

func (s *Server) requirePrincipal(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, ok := workspaceFrom(c).Session.Principal()
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "not signed in")
		}
		c.SetRequest(c.Request().WithContext(auth.WithPrincipal(c.Request().Context(), p)))
		return next(c)
	}
}

// writers admits roles allowed to mutate. Billing viewers are turned away
// with a dedicated message before the role check.
func writers(roles ...auth.Role) echo.MiddlewareFunc {
	check := auth.RequireRole(roles...)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		guarded := check(next)
		return func(c echo.Context) error {
			if principalFrom(c).ReadOnly() {
				return echo.NewHTTPError(http.StatusForbidden, "billing viewers have read-only access")
			}
			return guarded(c)
		}
	}
}

func (s *Server) hub(c echo.Context) (*websocket.Hub, error) {
	ws := workspaceFrom(c)
	if ws == nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "no workspace")
	}
	return ws.Hub, nil
}

func workspaceFrom(c echo.Context) *workspace.Workspace {
	ws, _ := c.Get(workspaceKey).(*workspace.Workspace)
	return ws
}

func principalFrom(c echo.Context) auth.Principal {
	p, _ := auth.PrincipalFromContext(c.Request().Context())
	return p
}

// bind decodes the body. Domain payloads are validated by the store.
func (s *Server) bind(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

// bindValid decodes and validates a request-only payload.
func (s *Server) bindValid(c echo.Context, v interface{}) error {
	if err := s.bind(c, v); err != nil {
		return err
	}
	if err := s.validate.Struct(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// httpError maps store, gateway and transition errors onto status codes.
func httpError(err error) error {
	var (
		he     *echo.HTTPError
		pgErr  *pgconn.PgError
		dupErr *db.DuplicateKeyError
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &he):
		return he
	case errors.Is(err, store.ErrNotFound), errors.Is(err, pgx.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	case errors.Is(err, store.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, fsm.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.As(err, &dupErr):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.As(err, &pgErr) && pgErr.Code == "23505":
		return echo.NewHTTPError(http.StatusConflict, pgErr.Message)
	case errors.As(err, &pgErr) && pgErr.Code == "23503":
		return echo.NewHTTPError(http.StatusBadRequest, pgErr.Message)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

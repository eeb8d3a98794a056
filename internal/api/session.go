package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicbill/clinicbill/internal/platform/auth"
	"github.com/clinicbill/clinicbill/internal/platform/middleware"
	"github.com/clinicbill/clinicbill/internal/session"
)

func (s *Server) registerSession(g *echo.Group) {
	limit := middleware.RateLimit(s.opts.AuthRateLimit)

	g.GET("/session", s.getSession)
	g.POST("/session/login", s.login, limit)
	g.POST("/session/signup", s.signup, limit)
	g.POST("/session/logout", s.logout)
	g.POST("/session/password/reset", s.resetPassword, limit)
	g.POST("/session/password/update", s.updatePassword, s.requirePrincipal)
	g.POST("/session/refresh", s.refreshSession)
}

// commandResponse is a session command outcome plus the state it left.
type commandResponse struct {
	session.Result
	Session session.Snapshot `json:"session"`
}

func (s *Server) reply(c echo.Context, res session.Result, failStatus int) error {
	status := http.StatusOK
	if !res.Success {
		status = failStatus
	}
	return c.JSON(status, commandResponse{Result: res, Session: workspaceFrom(c).Session.Snapshot()})
}

func (s *Server) getSession(c echo.Context) error {
	return c.JSON(http.StatusOK, workspaceFrom(c).Session.Snapshot())
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := s.bindValid(c, &req); err != nil {
		return err
	}
	res := workspaceFrom(c).Session.Login(c.Request().Context(), req.Email, req.Password)
	return s.reply(c, res, http.StatusUnauthorized)
}

// Self sign-up cannot claim an administrative role.
type signupRequest struct {
	Email      string    `json:"email" validate:"required,email"`
	Password   string    `json:"password" validate:"required,min=6"`
	Name       string    `json:"name" validate:"required"`
	Role       auth.Role `json:"role" validate:"omitempty,oneof=provider office_staff billing_staff billing_viewer"`
	ClinicID   string    `json:"clinicId"`
	ProviderID string    `json:"providerId"`
}

func (s *Server) signup(c echo.Context) error {
	var req signupRequest
	if err := s.bindValid(c, &req); err != nil {
		return err
	}
	res := workspaceFrom(c).Session.Signup(c.Request().Context(), session.SignupParams{
		Email:      req.Email,
		Password:   req.Password,
		Name:       req.Name,
		Role:       req.Role,
		ClinicID:   req.ClinicID,
		ProviderID: req.ProviderID,
	})
	status := http.StatusOK
	if res.Success && !res.ConfirmationRequired {
		status = http.StatusCreated
	}
	if !res.Success {
		status = http.StatusBadRequest
	}
	return c.JSON(status, commandResponse{Result: res, Session: workspaceFrom(c).Session.Snapshot()})
}

// logout always leaves the workspace signed out, so a provider failure is
// still answered with 200.
func (s *Server) logout(c echo.Context) error {
	res := workspaceFrom(c).Session.Logout(c.Request().Context())
	return s.reply(c, res, http.StatusOK)
}

type resetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (s *Server) resetPassword(c echo.Context) error {
	var req resetRequest
	if err := s.bindValid(c, &req); err != nil {
		return err
	}
	res := workspaceFrom(c).Session.ResetPassword(c.Request().Context(), req.Email)
	return s.reply(c, res, http.StatusBadRequest)
}

type updatePasswordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

func (s *Server) updatePassword(c echo.Context) error {
	var req updatePasswordRequest
	if err := s.bindValid(c, &req); err != nil {
		return err
	}
	res := workspaceFrom(c).Session.UpdatePassword(c.Request().Context(), req.Password)
	return s.reply(c, res, http.StatusBadRequest)
}

func (s *Server) refreshSession(c echo.Context) error {
	res := workspaceFrom(c).Session.RefreshSession(c.Request().Context())
	return s.reply(c, res, http.StatusUnauthorized)
}

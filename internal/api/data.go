package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinicbill/clinicbill/internal/platform/events"
	"github.com/clinicbill/clinicbill/pkg/period"
)

func (s *Server) registerData(g *echo.Group) {
	g.POST("/data/refresh", s.refreshData)
	g.GET("/selection", s.getSelection)
	g.PUT("/selection", s.putSelection)
}

// refreshData reloads every collection of the workspace.
func (s *Server) refreshData(c echo.Context) error {
	if err := workspaceFrom(c).Store.RefreshData(c.Request().Context()); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type selectionRequest struct {
	Year  int `json:"year" validate:"required,gte=1,lte=9999"`
	Month int `json:"month" validate:"required,gte=1,lte=12"`
}

type selectionResponse struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Label string `json:"label"`
}

func newSelectionResponse(m events.MonthSelected) selectionResponse {
	return selectionResponse{
		Year:  m.Year,
		Month: int(m.Month),
		Label: period.Month{Year: m.Year, Month: m.Month}.String(),
	}
}

func (s *Server) getSelection(c echo.Context) error {
	m, ok := workspaceFrom(c).SelectedMonth()
	if !ok {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, newSelectionResponse(m))
}

// putSelection records the month every view shows and broadcasts it to the
// workspace's websocket subscribers.
func (s *Server) putSelection(c echo.Context) error {
	var req selectionRequest
	if err := s.bindValid(c, &req); err != nil {
		return err
	}
	m := events.MonthSelected{Year: req.Year, Month: time.Month(req.Month)}
	workspaceFrom(c).SelectMonth(m)
	return c.JSON(http.StatusOK, newSelectionResponse(m))
}

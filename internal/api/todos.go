package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicbill/clinicbill/internal/domain/task"
	"github.com/clinicbill/clinicbill/internal/platform/auth"
	"github.com/clinicbill/clinicbill/internal/store"
	"github.com/clinicbill/clinicbill/pkg/pagination"
)

var todoResource = resource[task.Item, task.Patch]{
	path: "/todo-items",
	all:  (*store.Store).TodoItems,
	one:  (*store.Store).TodoItem,
	add:  (*store.Store).AddTodoItem,
	edit: (*store.Store).UpdateTodoItem,
	del:  (*store.Store).DeleteTodoItem,
	scopeOf: func(v task.Item) scope {
		return scope{ClinicID: v.ClinicID, Status: string(v.Status), Date: datePart(v.CompletedAt)}
	},
	moved: func(v task.Item, p task.Patch) task.Item {
		v.ClinicID = ptrOr(p.ClinicID, v.ClinicID)
		return v
	},
	writers: []auth.Role{auth.RoleOfficeStaff, auth.RoleBillingStaff},
	beforeAdd: func(p auth.Principal, v *task.Item) error {
		v.CreatedBy = p.UserID
		return nil
	},
}

func (s *Server) registerTodos(g *echo.Group) {
	g.POST("/todo-items/refresh", s.refreshTodos)
	todoResource.register(g)
}

type todoRefreshRequest struct {
	ClinicID string `json:"clinicId"`
}

// refreshTodos reloads the to-do list of one clinic, or every clinic for an
// admin who names none.
func (s *Server) refreshTodos(c echo.Context) error {
	var req todoRefreshRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	p := principalFrom(c)
	if !p.Role.IsAdmin() {
		if p.ClinicID == "" {
			return echo.NewHTTPError(http.StatusForbidden, "profile has no clinic affiliation")
		}
		req.ClinicID = p.ClinicID
	}
	st := workspaceFrom(c).Store
	if err := st.RefreshTodoItems(c.Request().Context(), req.ClinicID); err != nil {
		return httpError(err)
	}
	items := visibleOnly(p, st.TodoItems(), todoResource.visible)
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

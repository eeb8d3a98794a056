package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicbill/clinicbill/internal/platform/auth"
	"github.com/clinicbill/clinicbill/internal/store"
	"github.com/clinicbill/clinicbill/pkg/pagination"
	"github.com/clinicbill/clinicbill/pkg/period"
)

// scope is the part of a record that visibility and list filters look at.
type scope struct {
	ClinicID   string
	ProviderID string
	Status     string
	Date       string
}

// resource wires the five CRUD routes of one store collection. T is the
// view-model and P its patch.
type resource[T any, P any] struct {
	path string

	all  func(*store.Store) []T
	one  func(*store.Store, string) (T, error)
	add  func(*store.Store, context.Context, T) (T, error)
	edit func(*store.Store, context.Context, string, P) (T, error)
	del  func(*store.Store, context.Context, string) error

	scopeOf func(T) scope
	// canSee defaults to clinic visibility on scopeOf.
	canSee func(auth.Principal, T) bool
	// moved applies the scope-changing fields of a patch to the current
	// record so the result can be checked before it is written.
	moved func(T, P) T

	// readers limits the read routes. Empty means every signed-in role.
	readers []auth.Role
	writers []auth.Role

	// beforeAdd and beforeEdit may adjust or reject a write.
	beforeAdd  func(auth.Principal, *T) error
	beforeEdit func(auth.Principal, T, P) error
}

func (r resource[T, P]) register(g *echo.Group) {
	read := g
	if len(r.readers) > 0 {
		read = g.Group("", auth.RequireRole(r.readers...))
	}
	read.GET(r.path, r.list)
	read.GET(r.path+"/:id", r.get)

	write := g.Group("", writers(r.writers...))
	write.POST(r.path, r.create)
	write.PATCH(r.path+"/:id", r.update)
	write.DELETE(r.path+"/:id", r.remove)
}

func (r resource[T, P]) visible(p auth.Principal, v T) bool {
	if r.canSee != nil {
		return r.canSee(p, v)
	}
	return p.CanSeeClinic(r.scopeOf(v).ClinicID)
}

func (r resource[T, P]) list(c echo.Context) error {
	f, err := parseFilter(c)
	if err != nil {
		return err
	}
	p := principalFrom(c)
	items := r.all(workspaceFrom(c).Store)
	out := make([]T, 0, len(items))
	for _, v := range items {
		if r.visible(p, v) && f.match(r.scopeOf(v)) {
			out = append(out, v)
		}
	}
	return c.JSON(http.StatusOK, pagination.Page(out, pagination.FromContext(c)))
}

// lookup returns the record when the caller may see it. Hidden records are
// reported as missing.
func (r resource[T, P]) lookup(c echo.Context) (T, error) {
	v, err := r.one(workspaceFrom(c).Store, c.Param("id"))
	if err != nil {
		return v, httpError(err)
	}
	if !r.visible(principalFrom(c), v) {
		var zero T
		return zero, echo.NewHTTPError(http.StatusNotFound, "record not found")
	}
	return v, nil
}

func (r resource[T, P]) get(c echo.Context) error {
	v, err := r.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func (r resource[T, P]) create(c echo.Context) error {
	var v T
	if err := c.Bind(&v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p := principalFrom(c)
	if r.beforeAdd != nil {
		if err := r.beforeAdd(p, &v); err != nil {
			return err
		}
	}
	if !r.visible(p, v) {
		return echo.NewHTTPError(http.StatusForbidden, "record is outside your scope")
	}
	created, err := r.add(workspaceFrom(c).Store, c.Request().Context(), v)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (r resource[T, P]) update(c echo.Context) error {
	current, err := r.lookup(c)
	if err != nil {
		return err
	}
	var patch P
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p := principalFrom(c)
	if r.beforeEdit != nil {
		if err := r.beforeEdit(p, current, patch); err != nil {
			return err
		}
	}
	if r.moved != nil && !r.visible(p, r.moved(current, patch)) {
		return echo.NewHTTPError(http.StatusForbidden, "record would move outside your scope")
	}
	updated, err := r.edit(workspaceFrom(c).Store, c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (r resource[T, P]) remove(c echo.Context) error {
	if _, err := r.lookup(c); err != nil {
		return err
	}
	if err := r.del(workspaceFrom(c).Store, c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// listFilter narrows a list by query parameters: clinicId, providerId,
// status and month ("January 2025").
type listFilter struct {
	clinicID   string
	providerID string
	status     string
	month      *period.Month
}

func parseFilter(c echo.Context) (listFilter, error) {
	f := listFilter{
		clinicID:   c.QueryParam("clinicId"),
		providerID: c.QueryParam("providerId"),
		status:     c.QueryParam("status"),
	}
	if raw := c.QueryParam("month"); raw != "" {
		m, err := period.ParseMonth(raw)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		f.month = &m
	}
	return f, nil
}

func (f listFilter) match(s scope) bool {
	switch {
	case f.clinicID != "" && s.ClinicID != f.clinicID:
		return false
	case f.providerID != "" && s.ProviderID != f.providerID:
		return false
	case f.status != "" && s.Status != f.status:
		return false
	case f.month != nil && !f.month.Contains(s.Date):
		return false
	}
	return true
}

func ptrOr(p *string, fallback string) string {
	if p != nil {
		return *p
	}
	return fallback
}

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinicbill/clinicbill/internal/domain/billing"
	"github.com/clinicbill/clinicbill/internal/platform/auth"
	"github.com/clinicbill/clinicbill/internal/store"
)

func (s *Server) registerInvoices(g *echo.Group) {
	g.GET("/invoices/next-number", s.nextInvoiceNumber, writers(auth.RoleBillingStaff))

	resource[billing.Invoice, billing.InvoicePatch]{
		path: "/invoices",
		all:  (*store.Store).Invoices,
		one:  (*store.Store).Invoice,
		add:  (*store.Store).AddInvoice,
		edit: (*store.Store).UpdateInvoice,
		del:  (*store.Store).DeleteInvoice,
		scopeOf: func(v billing.Invoice) scope {
			return scope{ClinicID: v.ClinicID, Status: string(v.Status), Date: v.Date}
		},
		moved: func(v billing.Invoice, p billing.InvoicePatch) billing.Invoice {
			v.ClinicID = ptrOr(p.ClinicID, v.ClinicID)
			return v
		},
		writers: []auth.Role{auth.RoleBillingStaff},
	}.register(g)
}

type nextNumberResponse struct {
	Year          int    `json:"year"`
	InvoiceNumber string `json:"invoiceNumber"`
}

// nextInvoiceNumber previews the number AddInvoice would assign. Defaults to
// the current year.
func (s *Server) nextInvoiceNumber(c echo.Context) error {
	year := time.Now().Year()
	if raw := c.QueryParam("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1 || y > 9999 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid year")
		}
		year = y
	}
	number, err := workspaceFrom(c).Store.NextInvoiceNumber(c.Request().Context(), year)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, nextNumberResponse{Year: year, InvoiceNumber: number})
}

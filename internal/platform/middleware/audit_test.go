package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicbill/clinicbill/internal/platform/auth"
)

// mockRecorder collects audit entries for assertions.
type mockRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error
}

func (m *mockRecorder) RecordAccess(entry AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return m.err
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func newTestContext(method, path string, p *auth.Principal) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), *p))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestAudit_RecordsMutation(t *testing.T) {
	rec := &mockRecorder{}
	staff := &auth.Principal{UserID: "u1", Role: auth.RoleBillingStaff, ClinicID: "C1"}
	c, _ := newTestContext(http.MethodPut, "/api/v1/invoices/inv-1", staff)
	c.Set("request_id", "req-1")
	c.Set("workspace_id", "ws-1")

	if err := Audit(zerolog.Nop(), rec)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.count() != 1 {
		t.Fatalf("expected 1 entry, got %d", rec.count())
	}
	got := rec.entries[0]
	if got.Action != "update" || got.Collection != "invoices" || got.RecordID != "inv-1" {
		t.Errorf("unexpected target: %+v", got)
	}
	if got.UserID != "u1" || got.Role != auth.RoleBillingStaff || got.ClinicID != "C1" {
		t.Errorf("unexpected principal: %+v", got)
	}
	if got.RequestID != "req-1" || got.Workspace != "ws-1" || got.StatusCode != http.StatusOK {
		t.Errorf("unexpected request metadata: %+v", got)
	}
}

func TestAudit_SkipsReads(t *testing.T) {
	rec := &mockRecorder{}
	c, _ := newTestContext(http.MethodGet, "/api/v1/invoices", nil)
	if err := Audit(zerolog.Nop(), rec)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.count() != 0 {
		t.Fatalf("expected reads to be skipped, got %d entries", rec.count())
	}
}

func TestAudit_SkipsPathsOutsideAPI(t *testing.T) {
	rec := &mockRecorder{}
	c, _ := newTestContext(http.MethodPost, "/health", nil)
	_ = Audit(zerolog.Nop(), rec)(okHandler)(c)
	if rec.count() != 0 {
		t.Fatal("expected non-API path to be skipped")
	}
}

func TestAudit_CapturesHandlerErrorStatus(t *testing.T) {
	rec := &mockRecorder{}
	c, _ := newTestContext(http.MethodDelete, "/api/v1/patients/p1", nil)
	want := echo.NewHTTPError(http.StatusNotFound, "patient not found")

	err := Audit(zerolog.Nop(), rec)(func(echo.Context) error { return want })(c)
	if err != want {
		t.Fatalf("expected handler error, got %v", err)
	}
	if got := rec.entries[0]; got.StatusCode != http.StatusNotFound || got.Action != "delete" {
		t.Errorf("unexpected entry: %+v", got)
	}
}

func TestAudit_RecorderErrorDoesNotFailRequest(t *testing.T) {
	rec := &mockRecorder{err: errors.New("disk full")}
	c, _ := newTestContext(http.MethodPost, "/api/v1/clinics", nil)
	if err := Audit(zerolog.Nop(), rec)(okHandler)(c); err != nil {
		t.Fatalf("recorder failure must not fail the request: %v", err)
	}
}

func TestSplitResourcePath(t *testing.T) {
	tests := []struct {
		path, collection, id string
	}{
		{"/api/v1/invoices", "invoices", ""},
		{"/api/v1/invoices/abc", "invoices", "abc"},
		{"/api/v1/billing-entries/e1/", "billing-entries", "e1"},
		{"/api/v1/", "unknown", ""},
	}
	for _, tt := range tests {
		col, id := splitResourcePath(tt.path)
		if col != tt.collection || id != tt.id {
			t.Errorf("splitResourcePath(%q) = (%q, %q), want (%q, %q)", tt.path, col, id, tt.collection, tt.id)
		}
	}
}

func TestMethodToAction(t *testing.T) {
	for method, want := range map[string]string{
		http.MethodPost:   "create",
		http.MethodPut:    "update",
		http.MethodPatch:  "update",
		http.MethodDelete: "delete",
		http.MethodGet:    "",
	} {
		if got := methodToAction(method); got != want {
			t.Errorf("methodToAction(%s) = %q, want %q", method, got, want)
		}
	}
}

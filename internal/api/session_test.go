package api

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/clinicbill/clinicbill/internal/platform/middleware"
	"github.com/clinicbill/clinicbill/internal/session"
	"github.com/clinicbill/clinicbill/internal/store"
)

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "", http.MethodPost, "/session/login",
		map[string]string{"email": "office@clinic.io", "password": "wrong-password"})
	expectStatus(t, rec, http.StatusUnauthorized)

	got := decode[commandResponse](t, rec)
	if got.Success || !strings.Contains(got.Error, "Invalid email or password") {
		t.Errorf("unexpected result: %+v", got.Result)
	}
	if got.Session.IsAuthenticated {
		t.Error("session must stay signed out")
	}
}

func TestLogin_RequestValidation(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "", http.MethodPost, "/session/login", map[string]string{"email": "not-an-email"})
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestLogin_SnapshotCarriesPrincipal(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "", http.MethodPost, "/session/login",
		map[string]string{"email": "doc@clinic.io", "password": testPassword})
	expectStatus(t, rec, http.StatusOK)

	got := decode[commandResponse](t, rec)
	if got.Session.State != session.StateAuthenticated || got.Session.Principal == nil {
		t.Fatalf("unexpected session: %+v", got.Session)
	}
	if got.Session.Principal.ProviderID != f.providerA {
		t.Errorf("expected provider affiliation, got %+v", got.Session.Principal)
	}
}

func TestSignup_CreatesProfileAndSignsIn(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "", http.MethodPost, "/session/signup", map[string]string{
		"email":    "new@clinic.io",
		"password": testPassword,
		"name":     "New Staff",
		"role":     "office_staff",
		"clinicId": f.clinicA,
	})
	expectStatus(t, rec, http.StatusCreated)
	ws := rec.Header().Get(WorkspaceHeader)

	me := f.do(t, ws, http.MethodGet, "/me", nil)
	expectStatus(t, me, http.StatusOK)
	if !strings.Contains(me.Body.String(), `"role":"office_staff"`) {
		t.Errorf("unexpected profile: %s", me.Body.String())
	}
}

func TestSignup_RejectsAdministrativeRole(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "", http.MethodPost, "/session/signup", map[string]string{
		"email":    "sneaky@clinic.io",
		"password": testPassword,
		"name":     "Sneaky",
		"role":     "admin",
	})
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestSignup_ExistingAccount(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "", http.MethodPost, "/session/signup", map[string]string{
		"email":    "office@clinic.io",
		"password": testPassword,
		"name":     "Again",
	})
	expectStatus(t, rec, http.StatusBadRequest)
	if got := decode[commandResponse](t, rec); got.Success {
		t.Error("expected failure for an existing account")
	}
}

func TestLogout_SignsOutWorkspace(t *testing.T) {
	f := newFixture(t)
	ws := f.login(t, "office@clinic.io")
	expectStatus(t, f.do(t, ws, http.MethodGet, "/clinics", nil), http.StatusOK)

	rec := f.do(t, ws, http.MethodPost, "/session/logout", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[commandResponse](t, rec); got.Session.IsAuthenticated {
		t.Error("expected signed-out session")
	}
	expectStatus(t, f.do(t, ws, http.MethodGet, "/clinics", nil), http.StatusUnauthorized)
}

func TestUpdatePassword_RequiresSignIn(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "", http.MethodPost, "/session/password/update", map[string]string{"password": "another1"})
	expectStatus(t, rec, http.StatusUnauthorized)

	ws := f.login(t, "office@clinic.io")
	expectStatus(t, f.do(t, ws, http.MethodPost, "/session/password/update",
		map[string]string{"password": "another1"}), http.StatusOK)

	again := f.do(t, "", http.MethodPost, "/session/login",
		map[string]string{"email": "office@clinic.io", "password": "another1"})
	expectStatus(t, again, http.StatusOK)
}

func TestResetPassword(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "", http.MethodPost, "/session/password/reset", map[string]string{"email": "office@clinic.io"})
	expectStatus(t, rec, http.StatusOK)
	expectStatus(t, f.do(t, "", http.MethodPost, "/session/password/reset", map[string]string{}), http.StatusBadRequest)
}

func TestRefreshSession(t *testing.T) {
	f := newFixture(t)
	ws := f.login(t, "office@clinic.io")
	rec := f.do(t, ws, http.MethodPost, "/session/refresh", nil)
	expectStatus(t, rec, http.StatusOK)

	signedOut := f.do(t, "", http.MethodPost, "/session/refresh", nil)
	expectStatus(t, signedOut, http.StatusUnauthorized)
}

func TestAuthRoutes_RateLimited(t *testing.T) {
	f := newFixture(t, func(o *Options, _ *store.Gateway) {
		o.AuthRateLimit = middleware.RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1, IdleTTL: time.Minute}
	})
	body := map[string]string{"email": "office@clinic.io", "password": "wrong-password"}

	expectStatus(t, f.do(t, "", http.MethodPost, "/session/login", body), http.StatusUnauthorized)
	rec := f.do(t, "", http.MethodPost, "/session/login", body)
	expectStatus(t, rec, http.StatusTooManyRequests)
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	// Session reads are not throttled.
	expectStatus(t, f.do(t, "", http.MethodGet, "/session", nil), http.StatusOK)
}

package workspace

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicbill/clinicbill/internal/domain/admin"
	"github.com/clinicbill/clinicbill/internal/platform/auth"
	"github.com/clinicbill/clinicbill/internal/platform/db"
	"github.com/clinicbill/clinicbill/internal/platform/events"
	"github.com/clinicbill/clinicbill/internal/platform/websocket"
	"github.com/clinicbill/clinicbill/internal/session"
	"github.com/clinicbill/clinicbill/internal/store"
)

type fixture struct {
	reg *Registry
	dir *auth.DevDirectory
	gw  store.Gateway
}

func newFixture(t *testing.T, ttl time.Duration) *fixture {
	t.Helper()
	dir := auth.NewDevDirectory(auth.NewTokens([]byte("test-secret"), "test"), auth.DevOptions{BcryptCost: bcrypt.MinCost})
	gw := store.NewMemoryGateway()
	reg := NewRegistry(Deps{
		Gateway:     gw,
		NewProvider: func() auth.Provider { return dir.Client() },
		IdleTTL:     ttl,
		Logger:      zerolog.Nop(),
	})
	t.Cleanup(reg.Close)
	return &fixture{reg: reg, dir: dir, gw: gw}
}

func (f *fixture) seed(t *testing.T, email string, role auth.Role, clinicID string) {
	t.Helper()
	ctx := context.Background()
	res, err := f.dir.Client().SignUp(ctx, auth.SignUpParams{Email: email, Password: "secret1"})
	if err != nil {
		t.Fatalf("seed sign-up: %v", err)
	}
	if _, err := f.gw.Profiles.Create(ctx, admin.UserProfileRow{
		ID:       res.User.ID,
		Email:    email,
		Name:     "Seeded",
		Role:     string(role),
		ClinicID: db.NullString(clinicID),
	}); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}

func TestRegistry_OpenSettlesSignedOut(t *testing.T) {
	f := newFixture(t, 0)
	ws := f.reg.Open(context.Background())

	if ws.ID == "" {
		t.Fatal("expected workspace id")
	}
	snap := ws.Session.Snapshot()
	if snap.State != session.StateUnauthenticated || snap.Loading {
		t.Fatalf("expected settled signed-out session, got %+v", snap)
	}
	if !ws.Ready() {
		t.Error("expected ready workspace")
	}
	if f.reg.Len() != 1 {
		t.Errorf("expected 1 workspace, got %d", f.reg.Len())
	}
}

func TestRegistry_Acquire(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	first, created := f.reg.Acquire(ctx, "")
	if !created {
		t.Fatal("expected a new workspace for an empty id")
	}
	again, created := f.reg.Acquire(ctx, first.ID)
	if created || again != first {
		t.Fatal("expected the existing workspace")
	}
	other, created := f.reg.Acquire(ctx, "unknown")
	if !created || other.ID == "unknown" || other == first {
		t.Fatal("expected a fresh workspace for an unknown id")
	}
	if f.reg.Len() != 2 {
		t.Errorf("expected 2 workspaces, got %d", f.reg.Len())
	}
}

func TestWorkspace_LoginLoadsAndLogoutResets(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	if _, err := f.gw.Clinics.Create(ctx, admin.ClinicRow{Name: "North", Active: true}); err != nil {
		t.Fatalf("seed clinic: %v", err)
	}
	f.seed(t, "admin@clinic.io", auth.RoleAdmin, "")

	ws := f.reg.Open(ctx)
	if len(ws.Store.Clinics()) != 0 {
		t.Fatal("store must stay empty while signed out")
	}

	client := &websocket.Client{ID: "tab", Topics: []string{websocket.TopicSession, "clinics"}, Send: make(chan []byte, 64)}
	ws.Hub.Register(client)

	if res := ws.Session.Login(ctx, "admin@clinic.io", "secret1"); !res.Success {
		t.Fatalf("login failed: %s", res.Error)
	}
	if got := ws.Store.Clinics(); len(got) != 1 || got[0].Name != "North" {
		t.Fatalf("expected loaded clinics, got %+v", got)
	}

	var sawSession, sawReplace bool
	for len(client.Send) > 0 {
		var ev websocket.Event
		if err := json.Unmarshal(<-client.Send, &ev); err != nil {
			t.Fatalf("decode: %v", err)
		}
		switch ev.Topic {
		case websocket.TopicSession:
			sawSession = true
		case "clinics":
			sawReplace = sawReplace || ev.Type == "clinics.replaced"
		}
	}
	if !sawSession || !sawReplace {
		t.Errorf("expected session and replace events, got session=%v replace=%v", sawSession, sawReplace)
	}

	if res := ws.Session.Logout(ctx); !res.Success {
		t.Fatalf("logout failed: %s", res.Error)
	}
	if len(ws.Store.Clinics()) != 0 {
		t.Error("expected store reset after logout")
	}
}

func TestWorkspace_SelectMonth(t *testing.T) {
	f := newFixture(t, 0)
	ws := f.reg.Open(context.Background())

	if _, ok := ws.SelectedMonth(); ok {
		t.Fatal("expected no selection")
	}
	var got []events.MonthSelected
	unsub := ws.Selection.Subscribe(func(m events.MonthSelected) { got = append(got, m) })
	defer unsub()

	ws.SelectMonth(events.MonthSelected{Year: 2025, Month: time.March})

	sel, ok := ws.SelectedMonth()
	if !ok || sel.Month != time.March || sel.Year != 2025 {
		t.Errorf("unexpected selection: %+v", sel)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 published selection, got %d", len(got))
	}
}

func TestRegistry_SweepClosesIdle(t *testing.T) {
	f := newFixture(t, time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	f.reg.now = func() time.Time { return now }

	stale := f.reg.Open(context.Background())
	fresh := f.reg.Open(context.Background())

	now = now.Add(45 * time.Second)
	f.reg.Get(fresh.ID)
	now = now.Add(30 * time.Second)

	if n := f.reg.Sweep(); n != 1 {
		t.Fatalf("expected 1 swept workspace, got %d", n)
	}
	if _, ok := f.reg.Get(stale.ID); ok {
		t.Error("stale workspace should be gone")
	}
	if _, ok := f.reg.Get(fresh.ID); !ok {
		t.Error("fresh workspace should survive")
	}
	if stale.Session.Snapshot().State != session.StateClosed {
		t.Error("swept workspace session should be closed")
	}
}

func TestRegistry_SweepDisabled(t *testing.T) {
	f := newFixture(t, 0)
	f.reg.Open(context.Background())
	f.reg.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	if n := f.reg.Sweep(); n != 0 {
		t.Fatalf("expected no sweep without a ttl, got %d", n)
	}
}

func TestRegistry_RunClosesOnCancel(t *testing.T) {
	f := newFixture(t, time.Hour)
	ws := f.reg.Open(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.reg.Run(ctx, 10*time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	if f.reg.Len() != 0 {
		t.Errorf("expected registry emptied, got %d", f.reg.Len())
	}
	if ws.Hub.ClientCount() != 0 {
		t.Error("expected hub closed")
	}
}

func TestRegistry_Remove(t *testing.T) {
	f := newFixture(t, 0)
	ws := f.reg.Open(context.Background())
	f.reg.Remove(ws.ID)
	f.reg.Remove(ws.ID)
	if f.reg.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", f.reg.Len())
	}
}

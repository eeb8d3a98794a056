// Package workspace keeps one session manager and one data store per browser
// session and retires them once idle.
package workspace

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/clinicbill/clinicbill/internal/platform/events"
	"github.com/clinicbill/clinicbill/internal/platform/websocket"
	"github.com/clinicbill/clinicbill/internal/session"
	"github.com/clinicbill/clinicbill/internal/store"
)

// Workspace is the server-side state of one browser session.
type Workspace struct {
	ID        string
	Session   *session.Manager
	Store     *store.Store
	Selection *events.Bus[events.MonthSelected]
	Hub       *websocket.Hub

	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	unsubs []func()

	mu        sync.Mutex
	selected  *events.MonthSelected
	loadedFor string
}

func newWorkspace(id string, mgr *session.Manager, st *store.Store, log zerolog.Logger) *Workspace {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Workspace{
		ID:        id,
		Session:   mgr,
		Store:     st,
		Selection: events.NewBus[events.MonthSelected](),
		Hub:       websocket.NewHub(log.With().Str("workspace", id).Logger()),
		log:       log.With().Str("workspace", id).Logger(),
		ctx:       ctx,
		cancel:    cancel,
	}
	w.unsubs = append(w.unsubs,
		mgr.Changes().Subscribe(w.onSession),
		st.Changes().Subscribe(w.Hub.PublishChange),
		w.Selection.Subscribe(w.Hub.PublishSelection),
	)
	return w
}

// onSession loads the store for each newly signed-in account and empties it
// once the workspace settles signed out.
func (w *Workspace) onSession(snap session.Snapshot) {
	w.Hub.PublishSession(snap)

	w.mu.Lock()
	var load, reset bool
	switch {
	case snap.IsAuthenticated && snap.Principal != nil && snap.Principal.UserID != w.loadedFor:
		w.loadedFor = snap.Principal.UserID
		load = true
	case !snap.IsAuthenticated && !snap.Loading && w.loadedFor != "":
		w.loadedFor = ""
		reset = true
	}
	w.mu.Unlock()

	if load {
		if err := w.Store.Load(w.ctx); err != nil {
			w.log.Error().Err(err).Msg("initial load failed")
		}
	}
	if reset {
		w.Store.Reset()
	}
}

// SelectMonth records and broadcasts the month every view should show.
func (w *Workspace) SelectMonth(m events.MonthSelected) {
	w.mu.Lock()
	w.selected = &m
	w.mu.Unlock()
	w.Selection.Publish(m)
}

// SelectedMonth returns the last selection.
func (w *Workspace) SelectedMonth() (events.MonthSelected, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.selected == nil {
		return events.MonthSelected{}, false
	}
	return *w.selected, true
}

// Ready reports whether requests can be served: identity resolution has
// settled and no bulk load is in flight.
func (w *Workspace) Ready() bool {
	return !w.Session.Snapshot().Loading && !w.Store.Loading()
}

// Close tears the workspace down.
func (w *Workspace) Close() {
	for _, u := range w.unsubs {
		u()
	}
	w.cancel()
	w.Session.Close()
	w.Hub.Close()
}

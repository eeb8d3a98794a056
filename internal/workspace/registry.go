package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicbill/clinicbill/internal/platform/auth"
	"github.com/clinicbill/clinicbill/internal/session"
	"github.com/clinicbill/clinicbill/internal/store"
)

// Deps are shared by every workspace of a registry.
type Deps struct {
	Gateway store.Gateway
	// NewProvider returns a fresh auth client with no session.
	NewProvider func() auth.Provider
	Session     session.Options
	Store       store.Options
	// IdleTTL closes workspaces not touched for this long. Zero keeps them.
	IdleTTL time.Duration
	Logger  zerolog.Logger
}

type entry struct {
	ws       *Workspace
	lastSeen time.Time
}

// Registry maps workspace ids to live workspaces.
type Registry struct {
	deps Deps
	log  zerolog.Logger
	now  func() time.Time

	mu    sync.Mutex
	items map[string]*entry
}

// NewRegistry returns an empty registry.
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:  deps,
		log:   deps.Logger.With().Str("component", "workspace").Logger(),
		now:   time.Now,
		items: make(map[string]*entry),
	}
}

// Get returns the live workspace with id and marks it used.
func (r *Registry) Get(id string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.ws, true
}

// Acquire returns the workspace with id, opening a new one when id is unknown
// or empty. created reports whether a new workspace was opened.
func (r *Registry) Acquire(ctx context.Context, id string) (ws *Workspace, created bool) {
	if id != "" {
		if ws, ok := r.Get(id); ok {
			return ws, false
		}
	}
	return r.Open(ctx), true
}

// Open creates a workspace and resolves its (empty) session before
// returning it.
func (r *Registry) Open(ctx context.Context) *Workspace {
	id := uuid.New().String()

	sessOpts := r.deps.Session
	sessOpts.Logger = r.log.With().Str("workspace", id).Logger()
	storeOpts := r.deps.Store
	storeOpts.Workspace = id
	storeOpts.Logger = r.deps.Logger

	mgr := session.NewManager(r.deps.NewProvider(), r.deps.Gateway.Profiles, sessOpts)
	ws := newWorkspace(id, mgr, store.New(r.deps.Gateway, storeOpts), r.deps.Logger)
	mgr.Start(ctx)

	r.mu.Lock()
	r.items[id] = &entry{ws: ws, lastSeen: r.now()}
	n := len(r.items)
	r.mu.Unlock()

	r.log.Debug().Str("workspace", id).Int("open", n).Msg("workspace opened")
	return ws
}

// Remove closes and forgets the workspace with id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	e, ok := r.items[id]
	delete(r.items, id)
	r.mu.Unlock()
	if ok {
		e.ws.Close()
	}
}

// Sweep closes workspaces idle for longer than IdleTTL and returns how many
// were closed.
func (r *Registry) Sweep() int {
	if r.deps.IdleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.deps.IdleTTL)

	r.mu.Lock()
	var stale []*Workspace
	for id, e := range r.items {
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, e.ws)
			delete(r.items, id)
		}
	}
	r.mu.Unlock()

	for _, ws := range stale {
		ws.Close()
	}
	if len(stale) > 0 {
		r.log.Info().Int("closed", len(stale)).Msg("idle workspaces closed")
	}
	return len(stale)
}

// Run sweeps periodically until ctx is done, then closes every workspace.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.Close()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close closes every workspace.
func (r *Registry) Close() {
	r.mu.Lock()
	items := r.items
	r.items = make(map[string]*entry)
	r.mu.Unlock()
	for _, e := range items {
		e.ws.Close()
	}
}

// Len returns the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

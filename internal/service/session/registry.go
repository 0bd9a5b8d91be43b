// internal/service/session/registry.go
package session

import (
	"context"
	"sync"

	"workdesk-service/internal/domain/auth"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Registry tracks one controller per session id. Controllers are created at
// login, rehydrated from the store for sessions this process has not seen
// (for example after a restart), and removed at logout.
type Registry struct {
	mu          sync.Mutex
	controllers map[string]*Controller
	deps        Deps
	onChange    func(sessionID string, snap auth.Snapshot)

	watchCtx    context.Context
	watchCancel context.CancelFunc
}

func NewRegistry(deps Deps) *Registry {
	deps.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		controllers: make(map[string]*Controller),
		deps:        deps,
		watchCtx:    ctx,
		watchCancel: cancel,
	}
}

// OnChange installs a hook invoked on every controller state transition,
// e.g. to broadcast snapshots over websockets. Set once during wiring,
// before any controller exists.
func (r *Registry) OnChange(fn func(sessionID string, snap auth.Snapshot)) {
	r.onChange = fn
}

// Create mints a controller with a fresh session id and starts its watcher.
func (r *Registry) Create() *Controller {
	ctrl := NewController(ulid.Make().String(), r.deps)

	r.mu.Lock()
	r.controllers[ctrl.SessionID()] = ctrl
	r.mu.Unlock()

	r.wire(ctrl)
	return ctrl
}

// Get returns the controller for sessionID, rehydrating it from the session
// store when this process has not seen the session yet. Returns false when
// no persisted session exists either.
func (r *Registry) Get(ctx context.Context, sessionID string) (*Controller, bool) {
	r.mu.Lock()
	ctrl, ok := r.controllers[sessionID]
	r.mu.Unlock()
	if ok {
		return ctrl, true
	}

	ctrl = NewController(sessionID, r.deps)
	if err := ctrl.Hydrate(ctx); err != nil {
		r.deps.Logger.Warn("failed to hydrate session",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return nil, false
	}
	if !ctrl.Snapshot().IsAuthenticated {
		return nil, false
	}

	r.mu.Lock()
	// A concurrent request may have hydrated the same session; keep the
	// controller that registered first so there is a single state owner.
	if existing, exists := r.controllers[sessionID]; exists {
		r.mu.Unlock()
		return existing, true
	}
	r.controllers[sessionID] = ctrl
	r.mu.Unlock()

	r.wire(ctrl)
	return ctrl, true
}

// Remove stops and forgets the controller for sessionID.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	ctrl, ok := r.controllers[sessionID]
	delete(r.controllers, sessionID)
	r.mu.Unlock()
	if ok {
		ctrl.Stop()
	}
}

// Close stops every watcher. Called on server shutdown.
func (r *Registry) Close() {
	r.watchCancel()
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ctrl := range r.controllers {
		ctrl.Stop()
		delete(r.controllers, id)
	}
}

func (r *Registry) wire(ctrl *Controller) {
	if r.onChange != nil {
		id := ctrl.SessionID()
		ctrl.Subscribe(func(snap auth.Snapshot) {
			r.onChange(id, snap)
		})
	}
	ctrl.StartWatch(r.watchCtx)
}

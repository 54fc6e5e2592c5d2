package checkout

import (
	"context"
	"sync"
	"time"

	cartapp "github.com/storefront/checkout/internal/application/cart"
	"github.com/storefront/checkout/internal/domain/identity"
	"go.uber.org/zap"
)

// Workspace is the per-shopper state held by the BFF: the checkout session
// and the header mini-cart. Intents on one workspace run one at a time.
type Workspace struct {
	Session  *Session
	MiniCart *cartapp.Store

	mu       sync.Mutex
	lastUsed time.Time
}

// WorkspaceFactory builds an empty workspace for a new shopper
type WorkspaceFactory func() *Workspace

// Registry maps shoppers to their workspaces and evicts idle ones
type Registry struct {
	mu       sync.Mutex
	entries  map[string]*Workspace
	factory  WorkspaceFactory
	idleTTL  time.Duration
	now      func() time.Time
	onChange func(n int)
	logger   *zap.Logger
}

// RegistryOption customizes a Registry
type RegistryOption func(*Registry)

// WithIdleTTL evicts workspaces unused for ttl. Zero keeps them forever.
func WithIdleTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) { r.idleTTL = ttl }
}

// WithSizeObserver is called with the workspace count after every change
func WithSizeObserver(fn func(n int)) RegistryOption {
	return func(r *Registry) { r.onChange = fn }
}

// NewRegistry creates an empty registry
func NewRegistry(factory WorkspaceFactory, logger *zap.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		entries: make(map[string]*Workspace),
		factory: factory,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Acquire returns the workspace of user locked for exclusive use. The caller
// must call release when the intent is done.
func (r *Registry) Acquire(user *identity.User) (ws *Workspace, release func()) {
	key := user.Key()

	r.mu.Lock()
	ws, ok := r.entries[key]
	if !ok {
		ws = r.factory()
		r.entries[key] = ws
		r.logger.Debug("Workspace created", zap.String("user", key))
	}
	n := len(r.entries)
	r.mu.Unlock()
	if !ok {
		r.notify(n)
	}

	ws.mu.Lock()
	ws.lastUsed = r.now()
	return ws, ws.mu.Unlock
}

// End signs user out: the session is ended without waiting for the running
// intent, whose remote results are then dropped, and the workspace removed.
func (r *Registry) End(user *identity.User) bool {
	key := user.Key()

	r.mu.Lock()
	ws, ok := r.entries[key]
	delete(r.entries, key)
	n := len(r.entries)
	r.mu.Unlock()
	if !ok {
		return false
	}

	ws.Session.End()
	ws.MiniCart.Reset()
	r.notify(n)
	r.logger.Info("Checkout session ended", zap.String("user", key))
	return true
}

// Len returns the number of workspaces
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep evicts workspaces idle for longer than the idle TTL and returns how
// many were removed. Busy workspaces are skipped.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)

	var evicted []*Workspace
	r.mu.Lock()
	for key, ws := range r.entries {
		if !ws.mu.TryLock() {
			continue
		}
		if ws.lastUsed.Before(cutoff) {
			delete(r.entries, key)
			evicted = append(evicted, ws)
		}
		ws.mu.Unlock()
	}
	n := len(r.entries)
	r.mu.Unlock()

	for _, ws := range evicted {
		ws.Session.End()
		ws.MiniCart.Reset()
	}
	if len(evicted) > 0 {
		r.notify(n)
		r.logger.Info("Evicted idle checkout sessions", zap.Int("count", len(evicted)))
	}
	return len(evicted)
}

// Run sweeps every interval until ctx is done
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if r.idleTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) notify(n int) {
	if r.onChange != nil {
		r.onChange(n)
	}
}

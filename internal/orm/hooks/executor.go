package hooks

import (
	"context"
	"fmt"
	"sync"
)

// Hooks holds the six optional lifecycle callbacks of a model.
// A nil field is a no-op.
type Hooks struct {
	PreCreate  HookFunc
	PostCreate HookFunc
	PreUpdate  HookFunc
	PostUpdate HookFunc
	PreDelete  HookFunc
	PostDelete HookFunc
}

// Get returns the callback registered for a hook type
func (h *Hooks) Get(hookType HookType) HookFunc {
	if h == nil {
		return nil
	}
	switch hookType {
	case PreCreate:
		return h.PreCreate
	case PostCreate:
		return h.PostCreate
	case PreUpdate:
		return h.PreUpdate
	case PostUpdate:
		return h.PostUpdate
	case PreDelete:
		return h.PreDelete
	case PostDelete:
		return h.PostDelete
	default:
		return nil
	}
}

// Has reports whether a callback is registered for the hook type
func (h *Hooks) Has(hookType HookType) bool {
	return h.Get(hookType) != nil
}

// Run executes the callback of ev.Type, if any
func (h *Hooks) Run(ctx context.Context, ev *Event) error {
	fn := h.Get(ev.Type)
	if fn == nil {
		return nil
	}
	if err := fn(ctx, ev); err != nil {
		return fmt.Errorf("hook %s failed: %w", ev.Type, err)
	}
	return nil
}

// Registry maps model keys to their hooks. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	hooks map[string]*Hooks
}

// NewRegistry creates a new hook registry
func NewRegistry() *Registry {
	return &Registry{
		hooks: make(map[string]*Hooks),
	}
}

// Register sets the hooks of a model, replacing any previous set
func (r *Registry) Register(modelKey string, h *Hooks) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[modelKey] = h
}

// For returns the hooks of a model; a model without hooks gets nil
func (r *Registry) For(modelKey string) *Hooks {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hooks[modelKey]
}

package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages all model declarations in the application
type Registry struct {
	models map[string]*ModelDeclaration
	mu     sync.RWMutex
}

// NewRegistry creates a new declaration registry
func NewRegistry() *Registry {
	return &Registry{
		models: make(map[string]*ModelDeclaration),
	}
}

// Register validates and registers a model declaration
func (r *Registry) Register(decl *ModelDeclaration) error {
	if _, _, err := Build(decl); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.models[decl.Key]; exists {
		return fmt.Errorf("%w: model %s is already registered", ErrInvalidDeclaration, decl.Key)
	}

	r.models[decl.Key] = decl
	return nil
}

// MustRegister registers a declaration and panics on failure
func (r *Registry) MustRegister(decl *ModelDeclaration) {
	if err := r.Register(decl); err != nil {
		panic(err)
	}
}

// Get retrieves a declaration by model key
func (r *Registry) Get(key string) (*ModelDeclaration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	decl, exists := r.models[key]
	return decl, exists
}

// Lookup retrieves a declaration, returning ErrModelNotRegistered when it is missing
func (r *Registry) Lookup(key string) (*ModelDeclaration, error) {
	decl, ok := r.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelNotRegistered, key)
	}
	return decl, nil
}

// List returns the sorted list of registered model keys
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.models))
	for key := range r.models {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Clear removes all registered declarations (useful for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.models = make(map[string]*ModelDeclaration)
}

// Count returns the number of registered declarations
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.models)
}

// Exists checks if a model key is registered
func (r *Registry) Exists(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.models[key]
	return exists
}

// Package cache holds the per-model metadata shared by concurrent requests
package cache

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/conduit-lang/docmodel/internal/orm/schema"
	"github.com/conduit-lang/docmodel/internal/store"
)

// ModelCache is the per-request view of a model: shared meta, a private
// widget map and the collection handle
type ModelCache struct {
	Meta       *schema.Meta
	Widgets    schema.WidgetMap
	Collection store.Collection
}

type entry struct {
	meta       *schema.Meta
	widgets    schema.WidgetMap
	collection store.Collection
}

// Cache builds model metadata once per key and hands out clones
type Cache struct {
	registry *schema.Registry
	store    store.Store
	logger   *zap.Logger

	mu      sync.RWMutex
	entries map[string]*entry
	builds  int
}

// New creates a metadata cache over a declaration registry and a store
func New(registry *schema.Registry, st store.Store, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		registry: registry,
		store:    st,
		logger:   logger,
		entries:  make(map[string]*entry),
	}
}

// GetOrInit returns the model cache for key, building it on first access.
// The returned widget map is a clone owned by the caller.
func (c *Cache) GetOrInit(ctx context.Context, key string) (*ModelCache, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		var err error
		if e, err = c.build(key); err != nil {
			return nil, err
		}
	}

	return &ModelCache{
		Meta:       e.meta,
		Widgets:    e.widgets.Clone(),
		Collection: e.collection,
	}, nil
}

func (c *Cache) build(key string) (*entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		return e, nil
	}

	decl, err := c.registry.Lookup(key)
	if err != nil {
		return nil, err
	}

	meta, widgets, err := schema.Build(decl)
	if err != nil {
		return nil, err
	}

	e := &entry{
		meta:       meta,
		widgets:    widgets,
		collection: c.store.Collection(meta.CollectionName),
	}
	c.entries[key] = e
	c.builds++

	c.logger.Debug("model cache warmed",
		zap.String("model", key),
		zap.String("collection", meta.CollectionName),
		zap.Int("fields", len(meta.FieldNames)))

	return e, nil
}

// Meta returns the shared metadata of a model without cloning widgets
func (c *Cache) Meta(ctx context.Context, key string) (*schema.Meta, error) {
	mc, err := c.GetOrInit(ctx, key)
	if err != nil {
		return nil, err
	}
	return mc.Meta, nil
}

// Invalidate drops one model so the next access rebuilds it
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Reset drops every cached model
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
}

// Len returns the number of warm models
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Builds returns how many times metadata was built from declarations
func (c *Cache) Builds() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.builds
}

// Store returns the underlying document store
func (c *Cache) Store() store.Store {
	return c.store
}

// Registry returns the declaration registry the cache reads from
func (c *Cache) Registry() *schema.Registry {
	return c.registry
}

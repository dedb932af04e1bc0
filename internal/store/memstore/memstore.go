// Package memstore provides an in-memory document store.
// Documents are deep-copied on every read and write so callers never share state with the store.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/conduit-lang/docmodel/internal/store"
)

// Store is an in-memory store.Store
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[store.ObjectID]store.Document
}

// New creates an empty in-memory store
func New() *Store {
	return &Store{
		collections: make(map[string]map[store.ObjectID]store.Document),
	}
}

// Collection returns a handle for the named collection
func (s *Store) Collection(name string) store.Collection {
	return &collection{store: s, name: name}
}

// Close is a no-op for the in-memory store
func (s *Store) Close() error {
	return nil
}

// Collections returns the names of all non-empty collections
func (s *Store) Collections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name, docs := range s.collections {
		if len(docs) > 0 {
			names = append(names, name)
		}
	}
	return names
}

type collection struct {
	store *Store
	name  string
}

func (c *collection) Name() string {
	return c.name
}

// snapshot returns the collection documents; callers must hold the lock
func (c *collection) snapshot() []store.Document {
	docs := c.store.collections[c.name]
	out := make([]store.Document, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc)
	}
	return out
}

func (c *collection) FindOne(ctx context.Context, filter store.Filter) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	found := store.Apply(c.snapshot(), filter, &store.FindOptions{Limit: 1})
	if len(found) == 0 {
		return nil, store.ErrNotFound
	}
	return store.Clone(found[0]), nil
}

func (c *collection) Find(ctx context.Context, filter store.Filter, opts *store.FindOptions) ([]store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	found := store.Apply(c.snapshot(), filter, opts)
	out := make([]store.Document, len(found))
	for i, doc := range found {
		out[i] = store.Clone(doc)
	}
	return out, nil
}

func (c *collection) Count(ctx context.Context, filter store.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	var n int64
	for _, doc := range c.store.collections[c.name] {
		if store.Match(doc, filter) {
			n++
		}
	}
	return n, nil
}

func (c *collection) InsertOne(ctx context.Context, doc store.Document) (store.ObjectID, error) {
	if err := ctx.Err(); err != nil {
		return store.NilObjectID, err
	}

	stored := store.Clone(doc)
	id, ok := stored.ID()
	if !ok || id.IsZero() {
		id = store.NewObjectID()
		stored[store.IDField] = id
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	docs, ok := c.store.collections[c.name]
	if !ok {
		docs = make(map[store.ObjectID]store.Document)
		c.store.collections[c.name] = docs
	}
	if _, exists := docs[id]; exists {
		return store.NilObjectID, fmt.Errorf("%w: %s", store.ErrDuplicateID, id.Hex())
	}
	docs[id] = stored
	return id, nil
}

func (c *collection) ReplaceOne(ctx context.Context, filter store.Filter, doc store.Document) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	found := store.Apply(c.snapshot(), filter, &store.FindOptions{Limit: 1})
	if len(found) == 0 {
		return 0, nil
	}
	id, _ := found[0].ID()

	replacement := store.Clone(doc)
	replacement[store.IDField] = id
	c.store.collections[c.name][id] = replacement
	return 1, nil
}

func (c *collection) DeleteOne(ctx context.Context, filter store.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	found := store.Apply(c.snapshot(), filter, &store.FindOptions{Limit: 1})
	if len(found) == 0 {
		return 0, nil
	}
	id, _ := found[0].ID()
	delete(c.store.collections[c.name], id)
	return 1, nil
}

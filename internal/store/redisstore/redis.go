// Package redisstore implements store.Store on top of Redis.
// Each collection is one Redis hash keyed by document identifier, holding the
// extended-JSON encoding of the document.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/conduit-lang/docmodel/internal/store"
)

// Store is a Redis-backed store.Store
type Store struct {
	client *redis.Client
	prefix string
}

// Config holds Redis-specific configuration
type Config struct {
	// Addr is the Redis server address (host:port)
	Addr string
	// Password is the Redis password (optional)
	Password string
	// DB is the Redis database number
	DB int
	// Prefix is prepended to all collection keys
	Prefix string
}

// DefaultConfig returns a default Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:   "localhost:6379",
		Prefix: "docmodel:",
	}
}

// New connects to Redis and verifies the connection
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.Addr, err)
	}

	return NewWithClient(client, config.Prefix), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Collection returns a handle for the named collection
func (s *Store) Collection(name string) store.Collection {
	return &collection{store: s, name: name, key: s.prefix + name}
}

// Close closes the Redis client
func (s *Store) Close() error {
	return s.client.Close()
}

type collection struct {
	store *Store
	name  string
	key   string
}

func (c *collection) Name() string {
	return c.name
}

func (c *collection) all(ctx context.Context) ([]store.Document, error) {
	raw, err := c.store.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load collection %s: %w", c.name, err)
	}

	docs := make([]store.Document, 0, len(raw))
	for id, body := range raw {
		doc, err := store.DecodeDocument([]byte(body))
		if err != nil {
			return nil, fmt.Errorf("document %s in %s: %w", id, c.name, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (c *collection) get(ctx context.Context, id store.ObjectID) (store.Document, error) {
	body, err := c.store.client.HGet(ctx, c.key, id.Hex()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", id.Hex(), err)
	}
	return store.DecodeDocument(body)
}

// lookup resolves filter to matching documents, short-circuiting identifier lookups
func (c *collection) lookup(ctx context.Context, filter store.Filter, opts *store.FindOptions) ([]store.Document, error) {
	if id, ok := filter[store.IDField].(store.ObjectID); ok {
		doc, err := c.get(ctx, id)
		if store.IsNotFound(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return store.Apply([]store.Document{doc}, filter, opts), nil
	}

	docs, err := c.all(ctx)
	if err != nil {
		return nil, err
	}
	return store.Apply(docs, filter, opts), nil
}

func (c *collection) FindOne(ctx context.Context, filter store.Filter) (store.Document, error) {
	found, err := c.lookup(ctx, filter, &store.FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, store.ErrNotFound
	}
	return found[0], nil
}

func (c *collection) Find(ctx context.Context, filter store.Filter, opts *store.FindOptions) ([]store.Document, error) {
	return c.lookup(ctx, filter, opts)
}

func (c *collection) Count(ctx context.Context, filter store.Filter) (int64, error) {
	if len(filter) == 0 {
		n, err := c.store.client.HLen(ctx, c.key).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to count collection %s: %w", c.name, err)
		}
		return n, nil
	}

	found, err := c.lookup(ctx, filter, nil)
	if err != nil {
		return 0, err
	}
	return int64(len(found)), nil
}

func (c *collection) InsertOne(ctx context.Context, doc store.Document) (store.ObjectID, error) {
	stored := store.Clone(doc)
	id, ok := stored.ID()
	if !ok || id.IsZero() {
		id = store.NewObjectID()
		stored[store.IDField] = id
	}

	body, err := store.EncodeDocument(stored)
	if err != nil {
		return store.NilObjectID, err
	}

	created, err := c.store.client.HSetNX(ctx, c.key, id.Hex(), body).Result()
	if err != nil {
		return store.NilObjectID, fmt.Errorf("failed to insert document: %w", err)
	}
	if !created {
		return store.NilObjectID, fmt.Errorf("%w: %s", store.ErrDuplicateID, id.Hex())
	}
	return id, nil
}

func (c *collection) ReplaceOne(ctx context.Context, filter store.Filter, doc store.Document) (int64, error) {
	found, err := c.lookup(ctx, filter, &store.FindOptions{Limit: 1})
	if err != nil {
		return 0, err
	}
	if len(found) == 0 {
		return 0, nil
	}
	id, _ := found[0].ID()

	replacement := store.Clone(doc)
	replacement[store.IDField] = id
	body, err := store.EncodeDocument(replacement)
	if err != nil {
		return 0, err
	}

	if err := c.store.client.HSet(ctx, c.key, id.Hex(), body).Err(); err != nil {
		return 0, fmt.Errorf("failed to replace document %s: %w", id.Hex(), err)
	}
	return 1, nil
}

func (c *collection) DeleteOne(ctx context.Context, filter store.Filter) (int64, error) {
	found, err := c.lookup(ctx, filter, &store.FindOptions{Limit: 1})
	if err != nil {
		return 0, err
	}
	if len(found) == 0 {
		return 0, nil
	}
	id, _ := found[0].ID()

	n, err := c.store.client.HDel(ctx, c.key, id.Hex()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to delete document %s: %w", id.Hex(), err)
	}
	return n, nil
}

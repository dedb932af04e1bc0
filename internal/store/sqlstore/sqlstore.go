// Package sqlstore implements store.Store on a relational database.
// All collections share one documents table; bodies are stored as extended JSON
// and filtered in process, with identifier lookups served by the primary key.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/conduit-lang/docmodel/internal/store"
)

// Supported driver names
const (
	DriverSQLite   = "sqlite3"
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
)

// Store is a database/sql backed store.Store
type Store struct {
	db     *sql.DB
	driver string
	retry  RetryConfig
}

// Open opens a database with the named driver and prepares the documents table
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if !IsSupportedDriver(driver) {
		return nil, fmt.Errorf("unsupported sql driver: %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s, err := New(ctx, db, driver)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and ensures the documents table exists
func New(ctx context.Context, db *sql.DB, driver string) (*Store, error) {
	s := &Store{db: db, driver: driver, retry: DefaultRetryConfig()}
	if err := s.initialize(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// IsSupportedDriver reports whether driver can back a Store
func IsSupportedDriver(driver string) bool {
	switch driver {
	case DriverSQLite, DriverPgx, DriverPostgres:
		return true
	default:
		return false
	}
}

func (s *Store) initialize(ctx context.Context) error {
	query := `
CREATE TABLE IF NOT EXISTS documents (
	collection VARCHAR(255) NOT NULL,
	id CHAR(32) NOT NULL,
	body TEXT NOT NULL,
	PRIMARY KEY (collection, id)
)`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to initialize documents table: %w", err)
	}
	return nil
}

// bind rewrites ? placeholders for drivers using positional $n parameters
func (s *Store) bind(query string) string {
	if s.driver == DriverSQLite {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Collection returns a handle for the named collection
func (s *Store) Collection(name string) store.Collection {
	return &collection{store: s, name: name}
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database
func (s *Store) DB() *sql.DB {
	return s.db
}

// isDuplicate reports whether err is a primary key violation for any supported driver
func isDuplicate(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	return false
}

type collection struct {
	store *Store
	name  string
}

func (c *collection) Name() string {
	return c.name
}

func (c *collection) load(ctx context.Context, filter store.Filter) ([]store.Document, error) {
	var (
		rows *sql.Rows
		err  error
	)

	if id, ok := filter[store.IDField].(store.ObjectID); ok {
		rows, err = c.store.db.QueryContext(ctx,
			c.store.bind("SELECT body FROM documents WHERE collection = ? AND id = ?"),
			c.name, id.Hex())
	} else {
		rows, err = c.store.db.QueryContext(ctx,
			c.store.bind("SELECT body FROM documents WHERE collection = ?"),
			c.name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", c.name, err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc, err := store.DecodeDocument([]byte(body))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return docs, nil
}

func (c *collection) FindOne(ctx context.Context, filter store.Filter) (store.Document, error) {
	docs, err := c.load(ctx, filter)
	if err != nil {
		return nil, err
	}
	found := store.Apply(docs, filter, &store.FindOptions{Limit: 1})
	if len(found) == 0 {
		return nil, store.ErrNotFound
	}
	return found[0], nil
}

func (c *collection) Find(ctx context.Context, filter store.Filter, opts *store.FindOptions) ([]store.Document, error) {
	docs, err := c.load(ctx, filter)
	if err != nil {
		return nil, err
	}
	return store.Apply(docs, filter, opts), nil
}

func (c *collection) Count(ctx context.Context, filter store.Filter) (int64, error) {
	if len(filter) == 0 {
		var n int64
		err := c.store.db.QueryRowContext(ctx,
			c.store.bind("SELECT COUNT(*) FROM documents WHERE collection = ?"),
			c.name).Scan(&n)
		if err != nil {
			return 0, fmt.Errorf("failed to count collection %s: %w", c.name, err)
		}
		return n, nil
	}

	docs, err := c.load(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(store.Apply(docs, filter, nil))), nil
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

	_, err = c.store.exec(ctx,
		"INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)",
		c.name, id.Hex(), string(body))
	if err != nil {
		if isDuplicate(err) {
			return store.NilObjectID, fmt.Errorf("%w: %s", store.ErrDuplicateID, id.Hex())
		}
		return store.NilObjectID, fmt.Errorf("failed to insert document: %w", err)
	}
	return id, nil
}

func (c *collection) ReplaceOne(ctx context.Context, filter store.Filter, doc store.Document) (int64, error) {
	existing, err := c.FindOne(ctx, filter)
	if store.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	id, _ := existing.ID()

	replacement := store.Clone(doc)
	replacement[store.IDField] = id
	body, err := store.EncodeDocument(replacement)
	if err != nil {
		return 0, err
	}

	result, err := c.store.exec(ctx,
		"UPDATE documents SET body = ? WHERE collection = ? AND id = ?",
		string(body), c.name, id.Hex())
	if err != nil {
		return 0, fmt.Errorf("failed to replace document %s: %w", id.Hex(), err)
	}
	return result.RowsAffected()
}

func (c *collection) DeleteOne(ctx context.Context, filter store.Filter) (int64, error) {
	existing, err := c.FindOne(ctx, filter)
	if store.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	id, _ := existing.ID()

	result, err := c.store.exec(ctx,
		"DELETE FROM documents WHERE collection = ? AND id = ?",
		c.name, id.Hex())
	if err != nil {
		return 0, fmt.Errorf("failed to delete document %s: %w", id.Hex(), err)
	}
	return result.RowsAffected()
}

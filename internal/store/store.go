// Package store defines the document store contract consumed by the ORM.
// A store holds named collections of schemaless documents; every document
// carries a store-native identifier under the IDField key.
package store

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// IDField is the key of the store-native identifier in every document
const IDField = "_id"

// Common store errors
var (
	// ErrNotFound is returned when no document matches a filter
	ErrNotFound = errors.New("document not found")

	// ErrDuplicateID is returned when inserting a document whose identifier already exists
	ErrDuplicateID = errors.New("duplicate document identifier")

	// ErrInvalidID is returned when a hex string cannot be parsed into an ObjectID
	ErrInvalidID = errors.New("invalid object id")
)

// Document is a schemaless stored document
type Document map[string]interface{}

// ID returns the document identifier, if present
func (d Document) ID() (ObjectID, bool) {
	id, ok := d[IDField].(ObjectID)
	return id, ok
}

// ObjectID is the store-native document identifier.
// IDs are time-ordered (UUIDv7) so natural ordering follows insertion.
type ObjectID [16]byte

// NilObjectID is the zero identifier
var NilObjectID ObjectID

// NewObjectID generates a new identifier
func NewObjectID() ObjectID {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source fails
		id = uuid.New()
	}
	return ObjectID(id)
}

// ObjectIDFromHex parses the 32-character hex form of an identifier
func ObjectIDFromHex(s string) (ObjectID, error) {
	var id ObjectID
	if len(s) != 32 {
		return id, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return id, nil
}

// Hex returns the canonical lowercase hex form
func (id ObjectID) Hex() string {
	return hex.EncodeToString(id[:])
}

// String implements fmt.Stringer
func (id ObjectID) String() string {
	return id.Hex()
}

// IsZero reports whether the identifier is unset
func (id ObjectID) IsZero() bool {
	return id == NilObjectID
}

// Filter selects documents by field equality.
// Values may be wrapped with Ne to express inequality.
type Filter map[string]interface{}

// NotEqual wraps a filter value that must not match
type NotEqual struct {
	Value interface{}
}

// Ne builds an inequality filter value
func Ne(v interface{}) NotEqual {
	return NotEqual{Value: v}
}

// ByID returns a filter matching a single identifier
func ByID(id ObjectID) Filter {
	return Filter{IDField: id}
}

// SortField orders results by a field
type SortField struct {
	Field      string
	Descending bool
}

// FindOptions controls Find results
type FindOptions struct {
	Sort  []SortField
	Skip  int64
	Limit int64
}

// Collection is one named set of documents
type Collection interface {
	// Name returns the collection name
	Name() string

	// FindOne returns the first document matching filter, or ErrNotFound
	FindOne(ctx context.Context, filter Filter) (Document, error)

	// Find returns all documents matching filter
	Find(ctx context.Context, filter Filter, opts *FindOptions) ([]Document, error)

	// Count returns the number of documents matching filter
	Count(ctx context.Context, filter Filter) (int64, error)

	// InsertOne stores a new document. A missing identifier is generated.
	InsertOne(ctx context.Context, doc Document) (ObjectID, error)

	// ReplaceOne replaces the first document matching filter, returning the matched count
	ReplaceOne(ctx context.Context, filter Filter, doc Document) (int64, error)

	// DeleteOne removes the first document matching filter, returning the deleted count
	DeleteOne(ctx context.Context, filter Filter) (int64, error)
}

// Store gives access to collections
type Store interface {
	// Collection returns a handle for the named collection
	Collection(name string) Collection

	// Close releases the underlying client
	Close() error
}

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

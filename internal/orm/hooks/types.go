// Package hooks defines the optional lifecycle callbacks run around store writes
package hooks

import (
	"context"

	"github.com/conduit-lang/docmodel/internal/orm/schema"
	"github.com/conduit-lang/docmodel/internal/store"
)

// HookType identifies a lifecycle point
type HookType int

const (
	// PreCreate runs before a new document is inserted
	PreCreate HookType = iota
	// PostCreate runs after a new document is inserted
	PostCreate
	// PreUpdate runs before a document is replaced
	PreUpdate
	// PostUpdate runs after a document is replaced
	PostUpdate
	// PreDelete runs before a document is deleted
	PreDelete
	// PostDelete runs after a document is deleted
	PostDelete
)

// String returns the string representation of the hook type
func (h HookType) String() string {
	switch h {
	case PreCreate:
		return "pre_create"
	case PostCreate:
		return "post_create"
	case PreUpdate:
		return "pre_update"
	case PostUpdate:
		return "post_update"
	case PreDelete:
		return "pre_delete"
	case PostDelete:
		return "post_delete"
	default:
		return "unknown"
	}
}

// IsPre reports whether the hook runs before the store write
func (h HookType) IsPre() bool {
	return h == PreCreate || h == PreUpdate || h == PreDelete
}

// Event is what a hook sees of the operation in progress
type Event struct {
	Type       HookType
	Model      string
	Collection string
	Hash       string

	// Document is the stored document being written or deleted
	Document store.Document

	// Widgets is the validated widget map; nil for deletes
	Widgets schema.WidgetMap
}

// HookFunc is a lifecycle callback
type HookFunc func(ctx context.Context, ev *Event) error

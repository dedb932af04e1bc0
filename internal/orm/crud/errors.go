package crud

import (
	"errors"

	"github.com/conduit-lang/docmodel/internal/orm/convert"
	"github.com/conduit-lang/docmodel/internal/orm/schema"
	"github.com/conduit-lang/docmodel/internal/store"
)

// Common CRUD error types
var (
	// ErrOperationNotAllowed is returned when a model's capability flags forbid the operation
	ErrOperationNotAllowed = errors.New("operation not allowed for model")

	// ErrUnknownField is returned when instance values name a field the model does not declare
	ErrUnknownField = errors.New("unknown field")

	// ErrNoAssetStore is returned when a file or image is saved without an asset store
	ErrNoAssetStore = errors.New("no asset store configured")

	// ErrPasswordMismatch is returned when the current password does not verify
	ErrPasswordMismatch = errors.New("password does not match")

	// ErrMissingHash is returned when an operation needs a saved document but the instance has no hash
	ErrMissingHash = errors.New("instance has no hash")
)

// IsConfigurationError reports errors caused by model declarations or their use,
// which are never worth retrying
func IsConfigurationError(err error) bool {
	return errors.Is(err, schema.ErrModelNotRegistered) ||
		errors.Is(err, schema.ErrInvalidDeclaration) ||
		errors.Is(err, convert.ErrSchemaMismatch) ||
		errors.Is(err, ErrOperationNotAllowed) ||
		errors.Is(err, ErrUnknownField) ||
		errors.Is(err, ErrNoAssetStore)
}

// IsNotFound returns true if the error is store.ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

// IsOperationNotAllowed returns true if the error is ErrOperationNotAllowed
func IsOperationNotAllowed(err error) bool {
	return errors.Is(err, ErrOperationNotAllowed)
}

// IsPasswordMismatch returns true if the error is ErrPasswordMismatch
func IsPasswordMismatch(err error) bool {
	return errors.Is(err, ErrPasswordMismatch)
}

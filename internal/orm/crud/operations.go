// Package crud runs the check, save and delete lifecycle of model instances
package crud

import (
	"time"

	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/conduit-lang/docmodel/internal/orm/assets"
	"github.com/conduit-lang/docmodel/internal/orm/cache"
	"github.com/conduit-lang/docmodel/internal/orm/dynamic"
	"github.com/conduit-lang/docmodel/internal/orm/hooks"
	"github.com/conduit-lang/docmodel/internal/orm/validation"
)

// Operation represents a CRUD operation type
type Operation int

const (
	// OperationCheck represents a validation-only pass
	OperationCheck Operation = iota
	// OperationCreate represents a create operation
	OperationCreate
	// OperationRead represents a read operation
	OperationRead
	// OperationUpdate represents an update operation
	OperationUpdate
	// OperationDelete represents a delete operation
	OperationDelete
)

// String returns the string representation of the operation
func (o Operation) String() string {
	switch o {
	case OperationCheck:
		return "check"
	case OperationCreate:
		return "create"
	case OperationRead:
		return "read"
	case OperationUpdate:
		return "update"
	case OperationDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Instance is the caller's view of one document: the model key, the hash once
// saved, and field values keyed by field name
type Instance struct {
	Model     string
	Hash      string
	Values    map[string]interface{}
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewInstance creates an unsaved instance of a model
func NewInstance(model string, values map[string]interface{}) *Instance {
	if values == nil {
		values = make(map[string]interface{})
	}
	return &Instance{Model: model, Values: values}
}

// Set assigns a field value and returns the instance for chaining
func (i *Instance) Set(field string, value interface{}) *Instance {
	if i.Values == nil {
		i.Values = make(map[string]interface{})
	}
	i.Values[field] = value
	return i
}

// Operations provides the document lifecycle for every registered model
type Operations struct {
	cache      *cache.Cache
	engine     *validation.Engine
	enricher   *dynamic.Enricher
	assets     *assets.Store
	hooks      *hooks.Registry
	additional map[string]validation.AdditionalFunc

	logger     *zap.Logger
	scope      tally.Scope
	clock      func() time.Time
	bcryptCost int
}

// Option configures Operations
type Option func(*Operations)

// WithEnricher enables dynamic select options
func WithEnricher(e *dynamic.Enricher) Option {
	return func(o *Operations) { o.enricher = e }
}

// WithAssets enables file and image fields
func WithAssets(s *assets.Store) Option {
	return func(o *Operations) { o.assets = s }
}

// WithHooks sets the lifecycle hooks per model
func WithHooks(r *hooks.Registry) Option {
	return func(o *Operations) { o.hooks = r }
}

// WithAdditional registers the cross-field validation of a model
func WithAdditional(model string, fn validation.AdditionalFunc) Option {
	return func(o *Operations) { o.additional[model] = fn }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *Operations) { o.logger = l }
}

// WithScope sets the metrics scope
func WithScope(s tally.Scope) Option {
	return func(o *Operations) { o.scope = s }
}

// WithClock sets the time source used for created_at and updated_at
func WithClock(clock func() time.Time) Option {
	return func(o *Operations) { o.clock = clock }
}

// WithBcryptCost sets the cost used to hash passwords
func WithBcryptCost(cost int) Option {
	return func(o *Operations) { o.bcryptCost = cost }
}

// NewOperations creates a new Operations instance
func NewOperations(c *cache.Cache, engine *validation.Engine, opts ...Option) *Operations {
	o := &Operations{
		cache:      c,
		engine:     engine,
		additional: make(map[string]validation.AdditionalFunc),
		logger:     zap.NewNop(),
		scope:      tally.NoopScope,
		clock:      time.Now,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.engine == nil {
		o.engine = validation.NewEngine()
	}
	return o
}

func (o *Operations) now() time.Time {
	return o.clock().UTC()
}

// Package dynamic fills the option lists of dynamic select widgets from a side collection
package dynamic

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/docmodel/internal/orm/schema"
	"github.com/conduit-lang/docmodel/internal/store"
)

var (
	// ErrNotFound is returned when no side document exists for a collection
	ErrNotFound = errors.New("dynamic options document not found")

	// ErrTypeMismatch is returned when stored options do not fit the declared scalar
	ErrTypeMismatch = errors.New("dynamic option type mismatch")
)

// Side document layout in the technical collection
const (
	keyCollection = "collection"
	keyFields     = "fields"
	keyValue      = "value"
	keyLabel      = "label"
)

// Enricher reads and writes dynamic option lists
type Enricher struct {
	technical store.Collection
	logger    *zap.Logger
}

// New creates an Enricher over the technical collection
func New(technical store.Collection, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{technical: technical, logger: logger}
}

// Enrich replaces the options of every dynamic widget with the stored pairs
func (e *Enricher) Enrich(ctx context.Context, widgets schema.WidgetMap, collectionName string) error {
	var dynamic []*schema.Widget
	for _, w := range widgets.Ordered() {
		if w.Type.Dynamic {
			dynamic = append(dynamic, w)
		}
	}
	if len(dynamic) == 0 {
		return nil
	}

	doc, err := e.sideDocument(ctx, collectionName)
	if err != nil {
		return err
	}
	fields, _ := doc[keyFields].(map[string]interface{})

	for _, w := range dynamic {
		options, err := parseOptions(w.Type.Scalar, fields[w.Name])
		if err != nil {
			return fmt.Errorf("%s.%s: %w", collectionName, w.Name, err)
		}
		w.Options = options
	}

	e.logger.Debug("dynamic options loaded",
		zap.String("collection", collectionName),
		zap.Int("widgets", len(dynamic)))

	return nil
}

// Options returns the stored option list of one field
func (e *Enricher) Options(ctx context.Context, collectionName, field string, scalar schema.Scalar) ([]schema.Option, error) {
	doc, err := e.sideDocument(ctx, collectionName)
	if err != nil {
		return nil, err
	}
	fields, _ := doc[keyFields].(map[string]interface{})
	return parseOptions(scalar, fields[field])
}

// SetOptions replaces the option list of one field, creating the side document if needed
func (e *Enricher) SetOptions(ctx context.Context, collectionName, field string, scalar schema.Scalar, options []schema.Option) error {
	list := make([]interface{}, 0, len(options))
	for _, opt := range options {
		v, err := parseValue(scalar, opt.Value)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", collectionName, field, err)
		}
		list = append(list, map[string]interface{}{keyValue: v, keyLabel: opt.Label})
	}

	doc, err := e.sideDocument(ctx, collectionName)
	if errors.Is(err, ErrNotFound) {
		_, err = e.technical.InsertOne(ctx, store.Document{
			keyCollection: collectionName,
			keyFields:     map[string]interface{}{field: list},
		})
		return err
	}
	if err != nil {
		return err
	}

	fields, _ := doc[keyFields].(map[string]interface{})
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields[field] = list
	doc[keyFields] = fields

	id, _ := doc.ID()
	_, err = e.technical.ReplaceOne(ctx, store.ByID(id), doc)
	return err
}

// EnsureDocument creates the side document with empty lists for the given fields,
// adding lists for fields it does not know yet
func (e *Enricher) EnsureDocument(ctx context.Context, collectionName string, fieldNames []string) error {
	doc, err := e.sideDocument(ctx, collectionName)
	if errors.Is(err, ErrNotFound) {
		fields := make(map[string]interface{}, len(fieldNames))
		for _, name := range fieldNames {
			fields[name] = []interface{}{}
		}
		_, err = e.technical.InsertOne(ctx, store.Document{
			keyCollection: collectionName,
			keyFields:     fields,
		})
		return err
	}
	if err != nil {
		return err
	}

	fields, _ := doc[keyFields].(map[string]interface{})
	if fields == nil {
		fields = make(map[string]interface{})
	}
	changed := false
	for _, name := range fieldNames {
		if _, ok := fields[name]; !ok {
			fields[name] = []interface{}{}
			changed = true
		}
	}
	if !changed {
		return nil
	}
	doc[keyFields] = fields

	id, _ := doc.ID()
	_, err = e.technical.ReplaceOne(ctx, store.ByID(id), doc)
	return err
}

func (e *Enricher) sideDocument(ctx context.Context, collectionName string) (store.Document, error) {
	doc, err := e.technical.FindOne(ctx, store.Filter{keyCollection: collectionName})
	if err != nil {
		if store.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, collectionName)
		}
		return nil, err
	}
	return doc, nil
}

func parseOptions(scalar schema.Scalar, raw interface{}) ([]schema.Option, error) {
	if raw == nil {
		return []schema.Option{}, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: options must be a list, got %T", ErrTypeMismatch, raw)
	}

	options := make([]schema.Option, 0, len(items))
	for _, item := range items {
		pair, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: option must be a document, got %T", ErrTypeMismatch, item)
		}
		v, err := parseValue(scalar, pair[keyValue])
		if err != nil {
			return nil, err
		}
		label, _ := pair[keyLabel].(string)
		options = append(options, schema.Option{Value: v, Label: label})
	}
	return options, nil
}

func parseValue(scalar schema.Scalar, raw interface{}) (interface{}, error) {
	switch scalar {
	case schema.ScalarText:
		if s, ok := raw.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("%w: expected text value, got %T", ErrTypeMismatch, raw)
	case schema.ScalarI32, schema.ScalarU32, schema.ScalarI64, schema.ScalarF64:
		if raw == nil {
			return nil, fmt.Errorf("%w: missing %s value", ErrTypeMismatch, scalar)
		}
		v, err := schema.Coerce(schema.TypeTag{Kind: schema.KindSelect, Scalar: scalar}, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: no option parser for %s", ErrTypeMismatch, scalar)
	}
}

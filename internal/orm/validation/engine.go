// Package validation checks widget values: local constraints first, store-backed uniqueness second
package validation

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/conduit-lang/docmodel/internal/orm/convert"
	"github.com/conduit-lang/docmodel/internal/orm/schema"
	"github.com/conduit-lang/docmodel/internal/store"
)

// Messages attached to widgets by the engine
const (
	MsgRequired  = "is required"
	MsgNotUnique = "is already taken"
)

// AdditionalFunc is an optional cross-field check run after field validation.
// The returned map holds extra error messages keyed by field name.
type AdditionalFunc func(ctx context.Context, values map[string]interface{}) (map[string]string, error)

// Request is one validation pass over a model instance
type Request struct {
	Meta    *schema.Meta
	Widgets schema.WidgetMap

	// Collection is queried for uniqueness; nil skips uniqueness checks
	Collection store.Collection

	// OwnID excludes the document being updated from uniqueness queries
	OwnID store.ObjectID

	// Skip lists fields that are not validated, such as stored passwords on update
	Skip map[string]bool

	Additional AdditionalFunc
}

// Engine validates widget maps
type Engine struct {
	mu      sync.RWMutex
	regexes map[string]*regexp.Regexp
}

// NewEngine creates a new validation engine
func NewEngine() *Engine {
	return &Engine{regexes: make(map[string]*regexp.Regexp)}
}

// Validate checks every widget and returns a copy of the widget map with errors attached.
// A store error aborts the call and leaves req.Widgets untouched.
func (e *Engine) Validate(ctx context.Context, req Request) (schema.WidgetMap, error) {
	widgets := req.Widgets.Clone()
	widgets.ClearErrors()

	ordered := widgets.ByGroup()

	// Pass 1: local checks, never touching the store
	for _, w := range ordered {
		if req.Skip[w.Name] {
			continue
		}
		e.validateLocal(w)
	}

	// Pass 2: uniqueness, only for fields that passed pass 1
	if req.Collection != nil {
		for _, w := range ordered {
			if !w.Unique || req.Skip[w.Name] || w.HasErrors() || w.IsEmpty() {
				continue
			}
			taken, err := e.isTaken(ctx, req, w)
			if err != nil {
				return nil, fmt.Errorf("uniqueness check for %s: %w", w.Name, err)
			}
			if taken {
				w.AddError(MsgNotUnique)
			}
		}
	}

	if req.Additional != nil {
		values := make(map[string]interface{}, len(widgets))
		for name, w := range widgets {
			values[name] = w.Value
		}
		extra, err := req.Additional(ctx, values)
		if err != nil {
			return nil, fmt.Errorf("additional validation: %w", err)
		}
		for name, msg := range extra {
			w, ok := widgets[name]
			if !ok {
				return nil, fmt.Errorf("additional validation reported unknown field %s", name)
			}
			w.AddError(msg)
		}
	}

	return widgets, nil
}

// ValidateField runs the local checks of one widget in place
func (e *Engine) ValidateField(w *schema.Widget) {
	e.validateLocal(w)
}

func (e *Engine) validateLocal(w *schema.Widget) {
	kind := w.Type.Kind
	if kind == schema.KindHash || kind == schema.KindHiddenDateTime {
		return
	}

	// (1) required
	if w.IsEmpty() || isDeletedAsset(w.Value) {
		if w.Required {
			w.AddError(MsgRequired)
		}
		return
	}

	// (2) bounds
	for _, v := range boundValidators(w) {
		if err := v.Validate(w.Value); err != nil {
			w.AddError(err.Error())
		}
	}

	// (3) built-in semantic regex, then the field's own
	if kind.IsText() || kind.IsDate() {
		if v := builtinValidator(kind); v != nil {
			if err := v.Validate(w.Value); err != nil {
				w.AddError(err.Error())
			}
		}
		if w.Regex != "" {
			v := &PatternValidator{Pattern: e.compile(w.Regex), Message: w.RegexMsg}
			if err := v.Validate(w.Value); err != nil {
				w.AddError(err.Error())
			}
		}
	}

	if kind == schema.KindSelect && (w.Type.Dynamic || len(w.Options) > 0) {
		v := &ChoiceValidator{Options: w.Options}
		if err := v.Validate(w.Value); err != nil {
			w.AddError(err.Error())
		}
	}
}

func boundValidators(w *schema.Widget) []Validator {
	var validators []Validator
	if w.Type.Kind.IsText() {
		if w.MinLength > 0 {
			validators = append(validators, &MinLengthValidator{MinLength: w.MinLength})
		}
		if w.MaxLength > 0 {
			validators = append(validators, &MaxLengthValidator{MaxLength: w.MaxLength})
		}
	}
	if w.Type.Kind.IsNumeric() || (w.Type.Kind == schema.KindSelect && !w.Type.Multiple && w.Type.Scalar != schema.ScalarText) {
		if w.Min != nil {
			validators = append(validators, &MinValidator{Min: *w.Min})
		}
		if w.Max != nil {
			validators = append(validators, &MaxValidator{Max: *w.Max})
		}
	}
	return validators
}

func isDeletedAsset(v interface{}) bool {
	switch val := v.(type) {
	case *schema.FileData:
		return val != nil && val.IsDelete
	case *schema.ImageData:
		return val != nil && val.IsDelete
	default:
		return false
	}
}

func (e *Engine) isTaken(ctx context.Context, req Request, w *schema.Widget) (bool, error) {
	value, err := convert.StoredValue(w.Type, w.Value)
	if err != nil {
		return false, err
	}

	filter := store.Filter{w.Name: value}
	if !req.OwnID.IsZero() {
		filter[store.IDField] = store.Ne(req.OwnID)
	}

	n, err := req.Collection.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// compile caches field regexes; declarations were checked at build time
func (e *Engine) compile(pattern string) *regexp.Regexp {
	e.mu.RLock()
	re, ok := e.regexes[pattern]
	e.mu.RUnlock()
	if ok {
		return re
	}

	re = regexp.MustCompile(pattern)

	e.mu.Lock()
	e.regexes[pattern] = re
	e.mu.Unlock()
	return re
}

// IsValid reports whether no widget carries an error
func IsValid(widgets schema.WidgetMap) bool {
	return !widgets.HasErrors()
}

// FromWidgets collects the widget errors of a model in declaration order
func FromWidgets(model string, widgets schema.WidgetMap) *ValidationErrors {
	errs := NewValidationErrors(model)
	for _, w := range widgets.Ordered() {
		for _, msg := range w.Errors {
			errs.Add(w.Name, msg)
		}
	}
	return errs
}

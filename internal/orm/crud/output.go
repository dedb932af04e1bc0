package crud

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/conduit-lang/docmodel/internal/orm/schema"
	"github.com/conduit-lang/docmodel/internal/orm/validation"
	"github.com/conduit-lang/docmodel/internal/store"
)

// OutputData is the immutable result of a check, save or read
type OutputData struct {
	model      string
	collection string
	valid      bool
	hash       string
	createdAt  time.Time
	updatedAt  time.Time
	document   store.Document
	widgets    schema.WidgetMap
}

func newOutput(meta *schema.Meta, widgets schema.WidgetMap, doc store.Document) *OutputData {
	out := &OutputData{
		model:      meta.Key,
		collection: meta.CollectionName,
		valid:      !widgets.HasErrors(),
		document:   doc,
		widgets:    widgets,
	}
	if w, ok := widgets[schema.FieldHash]; ok {
		out.hash, _ = w.Value.(string)
	}
	return out
}

// IsValid reports whether no field failed validation
func (d *OutputData) IsValid() bool {
	return d.valid
}

// Model returns the model key
func (d *OutputData) Model() string {
	return d.model
}

// Collection returns the collection name
func (d *OutputData) Collection() string {
	return d.collection
}

// Hash returns the public identifier; empty until the document is stored
func (d *OutputData) Hash() string {
	return d.hash
}

// ObjectID returns the store identifier behind the hash
func (d *OutputData) ObjectID() (store.ObjectID, error) {
	if d.hash == "" {
		return store.NilObjectID, ErrMissingHash
	}
	return store.ObjectIDFromHex(d.hash)
}

// CreatedAt returns the creation time of the stored document
func (d *OutputData) CreatedAt() time.Time {
	return d.createdAt
}

// UpdatedAt returns the time of the last save
func (d *OutputData) UpdatedAt() time.Time {
	return d.updatedAt
}

// Document returns a copy of the display document, or nil when nothing was stored
func (d *OutputData) Document() store.Document {
	return store.Clone(d.document)
}

// Widgets returns a copy of the final widget map
func (d *OutputData) Widgets() schema.WidgetMap {
	return d.widgets.Clone()
}

// Value returns the final value of one field
func (d *OutputData) Value(field string) (interface{}, bool) {
	w, ok := d.widgets[field]
	if !ok {
		return nil, false
	}
	return w.Value, true
}

// ToJSON renders the widget map keyed by field name; passwords carry no value
func (d *OutputData) ToJSON() (string, error) {
	data, err := json.Marshal(d.widgets)
	if err != nil {
		return "", fmt.Errorf("failed to encode widgets: %w", err)
	}
	return string(data), nil
}

// ToJSONForAdmin renders the widgets as a list in declaration order.
// Password widgets are rendered without a value.
func (d *OutputData) ToJSONForAdmin() (string, error) {
	ordered := d.widgets.Ordered()
	list := make([]map[string]interface{}, 0, len(ordered))

	for _, w := range ordered {
		data, err := json.Marshal(w)
		if err != nil {
			return "", fmt.Errorf("failed to encode widget %s: %w", w.Name, err)
		}
		var item map[string]interface{}
		if err := json.Unmarshal(data, &item); err != nil {
			return "", err
		}
		if w.Type.Kind == schema.KindPassword {
			delete(item, "value")
		}
		list = append(list, item)
	}

	data, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("failed to encode widgets: %w", err)
	}
	return string(data), nil
}

// Errors returns the messages of every failed field
func (d *OutputData) Errors() map[string][]string {
	return d.validationErrors().Map()
}

// Err returns the field errors in declaration order, or nil when the output is valid
func (d *OutputData) Err() error {
	if d.valid {
		return nil
	}
	return d.validationErrors()
}

// ErrMsg aggregates field errors into "field: message" lines in declaration order
func (d *OutputData) ErrMsg() string {
	return strings.Join(d.validationErrors().Lines(), "\n")
}

func (d *OutputData) validationErrors() *validation.ValidationErrors {
	return validation.FromWidgets(d.model, d.widgets)
}

// PrintErr writes a colorized error report; valid output prints nothing
func (d *OutputData) PrintErr(w io.Writer) {
	if d.valid {
		return
	}

	header := color.New(color.FgRed, color.Bold)
	field := color.New(color.FgYellow)

	header.Fprintf(w, "❌ %s: validation failed\n", strings.ToUpper(d.model))
	for _, widget := range d.widgets.Ordered() {
		for _, msg := range widget.Errors {
			field.Fprintf(w, "   %s", widget.Name)
			fmt.Fprintf(w, ": %s\n", msg)
		}
	}
}

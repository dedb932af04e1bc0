// Package convert translates between widget values, stored documents and display documents
package convert

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/conduit-lang/docmodel/internal/orm/schema"
	"github.com/conduit-lang/docmodel/internal/store"
)

var (
	// ErrSchemaMismatch is returned when a declared field is absent from a stored document
	ErrSchemaMismatch = errors.New("document does not match model schema")

	// ErrMissingID is returned when a stored document carries no identifier
	ErrMissingID = errors.New("document has no identifier")
)

// Layouts accepted for date and date-time widget values
const (
	DateLayout         = "2006-01-02"
	DateTimeLayout     = "2006-01-02T15:04:05"
	DateTimeLayoutMins = "2006-01-02T15:04"
)

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	DateTimeLayout,
	DateTimeLayoutMins,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	DateLayout,
}

// ParseDate parses an ISO date widget value as midnight UTC
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	return time.Parse(DateLayout, s)
}

// ParseDateTime parses an ISO date-time widget value; a missing offset means UTC
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date-time %q", s)
}

// FormatDateTime renders a timestamp for a date-time widget
func FormatDateTime(t time.Time) string {
	t = t.UTC()
	if t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(DateTimeLayoutMins)
	}
	return t.Format(DateTimeLayout)
}

// ToDocument builds the stored document from widget values.
// Ignored fields and the hash never enter the document; a non-empty hash becomes _id.
func ToDocument(meta *schema.Meta, widgets schema.WidgetMap) (store.Document, error) {
	doc := make(store.Document, len(meta.FieldNames))

	if w, ok := widgets[schema.FieldHash]; ok {
		if hash, _ := w.Value.(string); hash != "" {
			id, err := store.ObjectIDFromHex(hash)
			if err != nil {
				return nil, err
			}
			doc[store.IDField] = id
		}
	}

	for _, name := range meta.FieldNames {
		if name == schema.FieldHash || meta.IsIgnored(name) {
			continue
		}
		w, ok := widgets[name]
		if !ok {
			return nil, fmt.Errorf("%w: widget %s is missing", ErrSchemaMismatch, name)
		}
		v, err := storedValue(w.Type, w.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		doc[name] = v
	}

	return doc, nil
}

// StoredValue converts one typed widget value to its stored representation
func StoredValue(tag schema.TypeTag, value interface{}) (interface{}, error) {
	return storedValue(tag, value)
}

func storedValue(tag schema.TypeTag, value interface{}) (interface{}, error) {
	switch tag.Kind {
	case schema.KindDate, schema.KindDateTime, schema.KindHiddenDateTime:
		switch v := value.(type) {
		case time.Time:
			return v.UTC(), nil
		case string:
			if strings.TrimSpace(v) == "" {
				return nil, nil
			}
			if tag.Kind == schema.KindDate {
				return ParseDate(v)
			}
			return ParseDateTime(v)
		case nil:
			return nil, nil
		default:
			return nil, fmt.Errorf("%w: expected date, got %T", schema.ErrInvalidValue, value)
		}
	case schema.KindFile:
		f, _ := value.(*schema.FileData)
		if f == nil || f.Path == "" {
			return nil, nil
		}
		return map[string]interface{}{
			"path": f.Path,
			"url":  f.URL,
			"name": f.Name,
			"size": f.Size,
		}, nil
	case schema.KindImage:
		img, _ := value.(*schema.ImageData)
		if img == nil || img.Path == "" {
			return nil, nil
		}
		sub := map[string]interface{}{
			"path":   img.Path,
			"url":    img.URL,
			"name":   img.Name,
			"size":   img.Size,
			"width":  int64(img.Width),
			"height": int64(img.Height),
		}
		if len(img.Thumbnails) > 0 {
			thumbs := make(map[string]interface{}, len(img.Thumbnails))
			for k, u := range img.Thumbnails {
				thumbs[k] = u
			}
			sub["thumbnails"] = thumbs
		}
		return sub, nil
	case schema.KindSelect:
		if !tag.Multiple && schema.IsEmptyValue(value) {
			return nil, nil
		}
		return value, nil
	default:
		return value, nil
	}
}

// ToPreparedDoc converts a raw stored document into the display document.
// The identifier is renamed to hash, passwords are blanked and dates truncated.
func ToPreparedDoc(raw store.Document, ignore []string, fieldTypes map[string]schema.TypeTag) (store.Document, error) {
	id, ok := raw.ID()
	if !ok {
		return nil, ErrMissingID
	}

	ignored := make(map[string]bool, len(ignore))
	for _, name := range ignore {
		ignored[name] = true
	}

	doc := make(store.Document, len(fieldTypes))
	doc[schema.FieldHash] = id.Hex()

	for name, tag := range fieldTypes {
		if name == schema.FieldHash || ignored[name] {
			continue
		}
		value, present := raw[name]
		if !present {
			return nil, fmt.Errorf("%w: field %s is absent", ErrSchemaMismatch, name)
		}
		v, err := displayValue(tag, value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		doc[name] = v
	}

	return doc, nil
}

func displayValue(tag schema.TypeTag, value interface{}) (interface{}, error) {
	switch tag.Kind {
	case schema.KindPassword:
		return "", nil
	case schema.KindDate:
		return truncateTime(value, 10)
	case schema.KindDateTime, schema.KindHiddenDateTime:
		return truncateTime(value, 19)
	case schema.KindFile, schema.KindImage:
		if value == nil {
			return nil, nil
		}
		sub, ok := value.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: expected sub-document, got %T", ErrSchemaMismatch, value)
		}
		return store.Clone(store.Document(sub)), nil
	default:
		return scalarValue(value), nil
	}
}

func truncateTime(value interface{}, n int) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case time.Time:
		s := v.UTC().Format(time.RFC3339)
		return s[:n], nil
	case string:
		if len(v) > n {
			return v[:n], nil
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: expected timestamp, got %T", ErrSchemaMismatch, value)
	}
}

// scalarValue normalizes stored numbers by element type
func scalarValue(value interface{}) interface{} {
	switch v := value.(type) {
	case int:
		return int64(v)
	case float32:
		return float64(v)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = scalarValue(item)
		}
		return out
	default:
		return v
	}
}

// ToWidgets loads a raw stored document into a copy of the widget map
func ToWidgets(meta *schema.Meta, widgets schema.WidgetMap, raw store.Document) (schema.WidgetMap, error) {
	id, ok := raw.ID()
	if !ok {
		return nil, ErrMissingID
	}

	out := widgets.Clone()
	if w, ok := out[schema.FieldHash]; ok {
		w.Value = id.Hex()
	}

	for _, name := range meta.FieldNames {
		if name == schema.FieldHash || meta.IsIgnored(name) {
			continue
		}
		w, ok := out[name]
		if !ok {
			continue
		}
		value, present := raw[name]
		if !present {
			return nil, fmt.Errorf("%w: field %s is absent", ErrSchemaMismatch, name)
		}
		v, err := widgetValue(w.Type, value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		w.Value = v
	}

	return out, nil
}

// ToValues converts a raw stored document to typed instance values keyed by field
func ToValues(meta *schema.Meta, raw store.Document) (map[string]interface{}, error) {
	id, ok := raw.ID()
	if !ok {
		return nil, ErrMissingID
	}

	values := make(map[string]interface{}, len(meta.FieldNames))
	for _, name := range meta.FieldNames {
		if name == schema.FieldHash {
			values[name] = id.Hex()
			continue
		}
		if meta.IsIgnored(name) {
			continue
		}
		value, present := raw[name]
		if !present {
			return nil, fmt.Errorf("%w: field %s is absent", ErrSchemaMismatch, name)
		}
		tag := meta.FieldTypes[name]
		v, err := widgetValue(tag, value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		if tag.Kind == schema.KindPassword {
			v = ""
		}
		values[name] = v
	}

	return values, nil
}

// widgetValue converts a stored value back to its typed widget value.
// Password widgets keep the stored hash so updates can preserve it.
func widgetValue(tag schema.TypeTag, value interface{}) (interface{}, error) {
	switch tag.Kind {
	case schema.KindDate:
		switch v := value.(type) {
		case time.Time:
			return v.UTC().Format(DateLayout), nil
		case nil:
			return "", nil
		}
	case schema.KindDateTime, schema.KindHiddenDateTime:
		switch v := value.(type) {
		case time.Time:
			return FormatDateTime(v), nil
		case nil:
			return "", nil
		}
	}
	return schema.Coerce(tag, value)
}

package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Reserved field names carried by every model
const (
	FieldHash      = "hash"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// Configuration errors raised by the declaration layer
var (
	// ErrModelNotRegistered is returned when no declaration exists for a model key
	ErrModelNotRegistered = errors.New("model is not registered")

	// ErrInvalidDeclaration is returned when a model declaration is malformed
	ErrInvalidDeclaration = errors.New("invalid model declaration")
)

// Meta is the immutable per-model descriptor shared by reference
type Meta struct {
	Key            string
	ModelName      string
	CollectionName string
	FieldNames     []string
	ValueTypes     map[string]string
	FieldTypes     map[string]TypeTag
	Defaults       map[string]interface{}
	IgnoreFields   []string
	CanCreate      bool
	CanUpdate      bool
	CanDelete      bool
}

// IsIgnored reports whether a field is excluded from persistence
func (m *Meta) IsIgnored(field string) bool {
	for _, f := range m.IgnoreFields {
		if f == field {
			return true
		}
	}
	return false
}

// HasField reports whether the model declares a field
func (m *Meta) HasField(field string) bool {
	_, ok := m.FieldTypes[field]
	return ok
}

// PersistedTypes returns the widget-type map minus ignored fields and the hash
func (m *Meta) PersistedTypes() map[string]TypeTag {
	out := make(map[string]TypeTag, len(m.FieldTypes))
	for name, tag := range m.FieldTypes {
		if name == FieldHash || m.IsIgnored(name) {
			continue
		}
		out[name] = tag
	}
	return out
}

// Build derives the Meta and baseline widgets from a declaration.
// Every model gets hash, created_at and updated_at widgets.
func Build(decl *ModelDeclaration) (*Meta, WidgetMap, error) {
	if decl == nil {
		return nil, nil, fmt.Errorf("%w: nil declaration", ErrInvalidDeclaration)
	}
	if strings.TrimSpace(decl.Key) == "" {
		return nil, nil, fmt.Errorf("%w: model key is required", ErrInvalidDeclaration)
	}
	if strings.TrimSpace(decl.Name) == "" {
		return nil, nil, fmt.Errorf("%w: model %s has no name", ErrInvalidDeclaration, decl.Key)
	}

	meta := &Meta{
		Key:            decl.Key,
		ModelName:      decl.Name,
		CollectionName: decl.Collection,
		ValueTypes:     make(map[string]string),
		FieldTypes:     make(map[string]TypeTag),
		Defaults:       make(map[string]interface{}),
		IgnoreFields:   append([]string(nil), decl.Ignore...),
		CanCreate:      !decl.DisableCreate,
		CanUpdate:      !decl.DisableUpdate,
		CanDelete:      !decl.DisableDelete,
	}
	if meta.CollectionName == "" {
		meta.CollectionName = toCollectionName(decl.Name)
	}

	fields := make([]FieldDeclaration, 0, len(decl.Fields)+3)
	fields = append(fields, FieldDeclaration{Name: FieldHash, Type: KindHash.String(), Label: "Hash", Hidden: true, ReadOnly: true})
	fields = append(fields, decl.Fields...)
	fields = append(fields,
		FieldDeclaration{Name: FieldCreatedAt, Type: KindHiddenDateTime.String(), Label: "Created at", Hidden: true, ReadOnly: true},
		FieldDeclaration{Name: FieldUpdatedAt, Type: KindHiddenDateTime.String(), Label: "Updated at", Hidden: true, ReadOnly: true},
	)

	widgets := make(WidgetMap, len(fields))
	for i, fd := range fields {
		if i > 0 && i < len(fields)-2 {
			switch fd.Name {
			case FieldHash, FieldCreatedAt, FieldUpdatedAt:
				return nil, nil, fmt.Errorf("%w: %s.%s is a reserved field name", ErrInvalidDeclaration, decl.Key, fd.Name)
			}
		}
		if _, dup := widgets[fd.Name]; dup {
			return nil, nil, fmt.Errorf("%w: %s declares field %s twice", ErrInvalidDeclaration, decl.Key, fd.Name)
		}

		w, err := buildWidget(decl.Name, fd, i)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s.%s: %v", ErrInvalidDeclaration, decl.Key, fd.Name, err)
		}

		widgets[fd.Name] = w
		meta.FieldNames = append(meta.FieldNames, fd.Name)
		meta.FieldTypes[fd.Name] = w.Type
		meta.ValueTypes[fd.Name] = w.Type.ValueType()
		meta.Defaults[fd.Name] = cloneValue(w.Default)
	}

	for _, name := range meta.IgnoreFields {
		if _, ok := widgets[name]; !ok {
			return nil, nil, fmt.Errorf("%w: %s ignores unknown field %s", ErrInvalidDeclaration, decl.Key, name)
		}
	}
	for _, w := range widgets {
		for _, src := range w.SlugSources {
			if _, ok := widgets[src]; !ok {
				return nil, nil, fmt.Errorf("%w: %s.%s slug source %s is not a field", ErrInvalidDeclaration, decl.Key, w.Name, src)
			}
		}
	}

	return meta, widgets, nil
}

func buildWidget(modelName string, fd FieldDeclaration, order int) (*Widget, error) {
	if strings.TrimSpace(fd.Name) == "" {
		return nil, fmt.Errorf("field name is required")
	}

	tag, err := ParseTypeTag(fd.Type)
	if err != nil {
		return nil, err
	}

	w := &Widget{
		ID:          fmt.Sprintf("%s--%s", modelName, strings.ReplaceAll(fd.Name, "_", "-")),
		Name:        fd.Name,
		Label:       fd.Label,
		Type:        tag,
		Placeholder: fd.Placeholder,
		Hint:        fd.Hint,
		Required:    fd.Required,
		Unique:      fd.Unique,
		ReadOnly:    fd.ReadOnly,
		Disabled:    fd.Disabled,
		Hidden:      fd.Hidden,
		MinLength:   fd.MinLength,
		MaxLength:   fd.MaxLength,
		Min:         fd.Min,
		Max:         fd.Max,
		Regex:       fd.Regex,
		RegexMsg:    fd.RegexMsg,
		SlugSources: append([]string(nil), fd.SlugSources...),
		TargetDir:   fd.TargetDir,
		Thumbnails:  append([]Thumbnail(nil), fd.Thumbnails...),
		IsQuality:   fd.Quality,
		order:       order,
	}
	if w.Label == "" {
		w.Label = fd.Name
	}

	if fd.Regex != "" {
		if _, err := regexp.Compile(fd.Regex); err != nil {
			return nil, fmt.Errorf("invalid regex: %w", err)
		}
	}
	if fd.MinLength < 0 || fd.MaxLength < 0 || (fd.MaxLength > 0 && fd.MinLength > fd.MaxLength) {
		return nil, fmt.Errorf("invalid length bounds %d..%d", fd.MinLength, fd.MaxLength)
	}
	if fd.Min != nil && fd.Max != nil && *fd.Min > *fd.Max {
		return nil, fmt.Errorf("min %v exceeds max %v", *fd.Min, *fd.Max)
	}
	if len(fd.SlugSources) > 0 && tag.Kind != KindSlug {
		return nil, fmt.Errorf("slug sources are only valid on %s", KindSlug)
	}
	if len(fd.Thumbnails) > 4 {
		return nil, fmt.Errorf("at most four thumbnails are supported, got %d", len(fd.Thumbnails))
	}
	if len(fd.Thumbnails) > 0 && tag.Kind != KindImage {
		return nil, fmt.Errorf("thumbnails are only valid on %s", KindImage)
	}
	if fd.Unique && (tag.Kind.IsAsset() || tag.Kind == KindBool || tag.Kind == KindPassword) {
		return nil, fmt.Errorf("%s fields cannot be unique", tag)
	}
	if (len(fd.Options) > 0) && tag.Kind != KindSelect {
		return nil, fmt.Errorf("options are only valid on select fields")
	}

	if !tag.Dynamic {
		for _, opt := range fd.Options {
			v, err := coerceScalar(tag.Scalar, opt.Value)
			if err != nil {
				return nil, fmt.Errorf("option %q: %w", opt.Label, err)
			}
			w.Options = append(w.Options, Option{Value: v, Label: opt.Label})
		}
	}

	def, err := Coerce(tag, fd.Default)
	if err != nil {
		return nil, fmt.Errorf("default: %w", err)
	}
	w.Default = def
	w.Value = cloneValue(def)

	return w, nil
}

// toCollectionName converts a model name to a collection name (snake_case plural)
func toCollectionName(modelName string) string {
	return pluralize(toSnakeCase(modelName))
}

// toSnakeCase converts a string to snake_case
func toSnakeCase(s string) string {
	var result []rune
	runes := []rune(s)

	for i, r := range runes {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := runes[i-1]
			if prev >= 'a' && prev <= 'z' {
				result = append(result, '_')
			} else if i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z' {
				result = append(result, '_')
			}
		}
		if r >= 'A' && r <= 'Z' {
			result = append(result, r+('a'-'A'))
		} else {
			result = append(result, r)
		}
	}
	return string(result)
}

// pluralize adds simple pluralization
func pluralize(s string) string {
	if strings.HasSuffix(s, "s") ||
		strings.HasSuffix(s, "x") ||
		strings.HasSuffix(s, "z") {
		return s + "es"
	}
	if strings.HasSuffix(s, "y") {
		return s[:len(s)-1] + "ies"
	}
	return s + "s"
}

package schema

import (
	"encoding/json"
	"sort"
	"strings"
)

// Option is one (value, label) pair of an enumerated widget
type Option struct {
	Value interface{} `json:"value" yaml:"value"`
	Label string      `json:"label" yaml:"label"`
}

// Thumbnail is one image breakpoint: the longest side of the generated copy
type Thumbnail struct {
	Name    string `json:"name" yaml:"name"`
	MaxSize int    `json:"max_size" yaml:"max_size"`
}

// FileData describes a stored file. A Path outside the media root marks a new upload.
type FileData struct {
	Path     string `json:"path"`
	URL      string `json:"url"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	IsDelete bool   `json:"is_delete"`
}

// ImageData describes a stored image and its generated thumbnails
type ImageData struct {
	Path       string            `json:"path"`
	URL        string            `json:"url"`
	Name       string            `json:"name"`
	Size       int64             `json:"size"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	Thumbnails map[string]string `json:"thumbnails,omitempty"`
	IsDelete   bool              `json:"is_delete"`
}

// Widget is the validation and display descriptor plus runtime value of one field
type Widget struct {
	ID          string
	Name        string
	Label       string
	Type        TypeTag
	Value       interface{}
	Default     interface{}
	Placeholder string
	Hint        string

	Required  bool
	Unique    bool
	ReadOnly  bool
	Disabled  bool
	Hidden    bool
	MinLength int
	MaxLength int
	Min       *float64
	Max       *float64
	Regex     string
	RegexMsg  string

	Options     []Option
	SlugSources []string
	TargetDir   string
	Thumbnails  []Thumbnail
	IsQuality   bool

	// order is the declaration position, used to break ties within a group
	order int

	Errors  []string
	Warning string
}

// Group returns the validation group of the widget
func (w *Widget) Group() int {
	return w.Type.Kind.Group()
}

// Order returns the declaration position of the widget
func (w *Widget) Order() int {
	return w.order
}

// AddError appends a validation message; messages accumulate, never overwrite
func (w *Widget) AddError(message string) {
	w.Errors = append(w.Errors, message)
}

// HasErrors reports whether the field failed validation
func (w *Widget) HasErrors() bool {
	return len(w.Errors) > 0
}

// ErrorText renders accumulated messages as one string
func (w *Widget) ErrorText() string {
	return strings.Join(w.Errors, "; ")
}

// IsEmpty reports whether the widget holds no meaningful value
func (w *Widget) IsEmpty() bool {
	return IsEmptyValue(w.Value)
}

// IsEmptyValue reports whether a widget value is unset
func IsEmptyValue(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []string:
		return len(val) == 0
	case []int32:
		return len(val) == 0
	case []uint32:
		return len(val) == 0
	case []int64:
		return len(val) == 0
	case []float64:
		return len(val) == 0
	case *FileData:
		return val == nil || val.Path == ""
	case *ImageData:
		return val == nil || val.Path == ""
	default:
		return false
	}
}

// Clone returns a deep copy; mutating the clone never touches the receiver
func (w *Widget) Clone() *Widget {
	c := *w
	c.Value = cloneValue(w.Value)
	c.Default = cloneValue(w.Default)
	if w.Min != nil {
		v := *w.Min
		c.Min = &v
	}
	if w.Max != nil {
		v := *w.Max
		c.Max = &v
	}
	c.Options = append([]Option(nil), w.Options...)
	c.SlugSources = append([]string(nil), w.SlugSources...)
	c.Thumbnails = append([]Thumbnail(nil), w.Thumbnails...)
	c.Errors = append([]string(nil), w.Errors...)
	return &c
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []string:
		return append([]string(nil), val...)
	case []int32:
		return append([]int32(nil), val...)
	case []uint32:
		return append([]uint32(nil), val...)
	case []int64:
		return append([]int64(nil), val...)
	case []float64:
		return append([]float64(nil), val...)
	case *FileData:
		if val == nil {
			return val
		}
		c := *val
		return &c
	case *ImageData:
		if val == nil {
			return val
		}
		c := *val
		if val.Thumbnails != nil {
			c.Thumbnails = make(map[string]string, len(val.Thumbnails))
			for k, u := range val.Thumbnails {
				c.Thumbnails[k] = u
			}
		}
		return &c
	default:
		return v
	}
}

type widgetJSON struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Label       string      `json:"label"`
	Widget      string      `json:"widget"`
	ValueType   string      `json:"value_type"`
	Value       interface{} `json:"value"`
	Placeholder string      `json:"placeholder,omitempty"`
	Hint        string      `json:"hint,omitempty"`
	Required    bool        `json:"required"`
	Unique      bool        `json:"unique"`
	ReadOnly    bool        `json:"readonly"`
	Disabled    bool        `json:"disabled"`
	Hidden      bool        `json:"hidden"`
	MinLength   int         `json:"minlength,omitempty"`
	MaxLength   int         `json:"maxlength,omitempty"`
	Min         *float64    `json:"min,omitempty"`
	Max         *float64    `json:"max,omitempty"`
	Options     []Option    `json:"options,omitempty"`
	Error       string      `json:"error"`
	Warning     string      `json:"warning"`
}

// MarshalJSON renders the public view of a widget; passwords never carry a value
func (w *Widget) MarshalJSON() ([]byte, error) {
	value := w.Value
	if w.Type.Kind == KindPassword {
		value = ""
	}
	return json.Marshal(widgetJSON{
		ID:          w.ID,
		Name:        w.Name,
		Label:       w.Label,
		Widget:      w.Type.String(),
		ValueType:   w.Type.ValueType(),
		Value:       value,
		Placeholder: w.Placeholder,
		Hint:        w.Hint,
		Required:    w.Required,
		Unique:      w.Unique,
		ReadOnly:    w.ReadOnly,
		Disabled:    w.Disabled,
		Hidden:      w.Hidden,
		MinLength:   w.MinLength,
		MaxLength:   w.MaxLength,
		Min:         w.Min,
		Max:         w.Max,
		Options:     w.Options,
		Error:       w.ErrorText(),
		Warning:     w.Warning,
	})
}

// WidgetMap holds one widget per field name
type WidgetMap map[string]*Widget

// Clone deep-copies every widget
func (m WidgetMap) Clone() WidgetMap {
	out := make(WidgetMap, len(m))
	for name, w := range m {
		out[name] = w.Clone()
	}
	return out
}

// HasErrors reports whether any widget failed validation
func (m WidgetMap) HasErrors() bool {
	for _, w := range m {
		if w.HasErrors() {
			return true
		}
	}
	return false
}

// Errors returns the messages of every failed field
func (m WidgetMap) Errors() map[string][]string {
	out := make(map[string][]string)
	for name, w := range m {
		if w.HasErrors() {
			out[name] = append([]string(nil), w.Errors...)
		}
	}
	return out
}

// ClearErrors resets validation state before a new pass
func (m WidgetMap) ClearErrors() {
	for _, w := range m {
		w.Errors = nil
		w.Warning = ""
	}
}

// Ordered returns the widgets in declaration order
func (m WidgetMap) Ordered() []*Widget {
	out := make([]*Widget, 0, len(m))
	for _, w := range m {
		out = append(out, w)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].order < out[j].order
	})
	return out
}

// ByGroup returns the widgets ordered by validation group, then declaration order
func (m WidgetMap) ByGroup() []*Widget {
	out := m.Ordered()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Group() < out[j].Group()
	})
	return out
}

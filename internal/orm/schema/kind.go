// Package schema provides the widget value model and the field-declaration
// layer for docmodel. Field kinds form a closed set; every switch over Kind
// is exhaustive so adding a kind surfaces every place that must handle it.
package schema

import (
	"fmt"
	"strings"
)

// Kind is the widget kind of a model field
type Kind int

const (
	// Text-like kinds
	KindText Kind = iota
	KindTextArea
	KindEmail
	KindURL
	KindIP
	KindIPv4
	KindIPv6
	KindPhone
	KindColor
	KindPassword
	KindSlug
	KindHash

	// Date kinds
	KindDate
	KindDateTime
	KindHiddenDateTime

	// Numeric kinds
	KindI32
	KindU32
	KindI64
	KindF64

	// Boolean
	KindBool

	// Enumerated
	KindSelect

	// Assets
	KindFile
	KindImage
)

// String returns the type tag name of the kind. Select kinds need their
// scalar to form a complete tag; see TypeTag.String.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "InputText"
	case KindTextArea:
		return "TextArea"
	case KindEmail:
		return "InputEmail"
	case KindURL:
		return "InputUrl"
	case KindIP:
		return "InputIP"
	case KindIPv4:
		return "InputIPv4"
	case KindIPv6:
		return "InputIPv6"
	case KindPhone:
		return "InputPhone"
	case KindColor:
		return "InputColor"
	case KindPassword:
		return "InputPassword"
	case KindSlug:
		return "InputSlug"
	case KindHash:
		return "HiddenHash"
	case KindDate:
		return "InputDate"
	case KindDateTime:
		return "InputDateTime"
	case KindHiddenDateTime:
		return "HiddenDateTime"
	case KindI32:
		return "InputI32"
	case KindU32:
		return "InputU32"
	case KindI64:
		return "InputI64"
	case KindF64:
		return "InputF64"
	case KindBool:
		return "CheckBox"
	case KindSelect:
		return "Select"
	case KindFile:
		return "InputFile"
	case KindImage:
		return "InputImage"
	default:
		return "unknown"
	}
}

// IsText returns true for kinds whose value is a string
func (k Kind) IsText() bool {
	switch k {
	case KindText, KindTextArea, KindEmail, KindURL, KindIP, KindIPv4, KindIPv6,
		KindPhone, KindColor, KindPassword, KindSlug, KindHash,
		KindDate, KindDateTime, KindHiddenDateTime:
		return true
	default:
		return false
	}
}

// IsDate returns true for date and date-time kinds
func (k Kind) IsDate() bool {
	return k == KindDate || k == KindDateTime || k == KindHiddenDateTime
}

// IsNumeric returns true for the numeric input kinds
func (k Kind) IsNumeric() bool {
	return k == KindI32 || k == KindU32 || k == KindI64 || k == KindF64
}

// IsAsset returns true for file and image kinds
func (k Kind) IsAsset() bool {
	return k == KindFile || k == KindImage
}

// Group orders validation cheap → expensive
func (k Kind) Group() int {
	switch k {
	case KindText, KindTextArea, KindEmail, KindURL, KindIP, KindIPv4, KindIPv6, KindPhone, KindColor:
		return 1
	case KindSlug:
		return 2
	case KindDate, KindDateTime:
		return 3
	case KindI32, KindU32, KindI64, KindF64, KindBool:
		return 4
	case KindSelect:
		return 5
	case KindFile:
		return 6
	case KindImage:
		return 7
	case KindPassword:
		return 8
	case KindHash, KindHiddenDateTime:
		return 9
	default:
		return 10
	}
}

// Scalar is the element value type of a field
type Scalar int

const (
	ScalarText Scalar = iota
	ScalarI32
	ScalarU32
	ScalarI64
	ScalarF64
	ScalarBool
	ScalarFile
	ScalarImage
)

// String returns the value-type name of the scalar
func (s Scalar) String() string {
	switch s {
	case ScalarText:
		return "String"
	case ScalarI32:
		return "i32"
	case ScalarU32:
		return "u32"
	case ScalarI64:
		return "i64"
	case ScalarF64:
		return "f64"
	case ScalarBool:
		return "bool"
	case ScalarFile:
		return "File"
	case ScalarImage:
		return "Image"
	default:
		return "unknown"
	}
}

// selectName is the scalar segment used in select type tags
func (s Scalar) selectName() string {
	switch s {
	case ScalarText:
		return "Text"
	case ScalarI32:
		return "I32"
	case ScalarU32:
		return "U32"
	case ScalarI64:
		return "I64"
	case ScalarF64:
		return "F64"
	default:
		return ""
	}
}

// TypeTag is the complete widget type of a field
type TypeTag struct {
	Kind     Kind
	Scalar   Scalar
	Multiple bool
	Dynamic  bool
}

// String returns the canonical tag, e.g. "InputEmail" or "SelectI32MultDyn"
func (t TypeTag) String() string {
	if t.Kind != KindSelect {
		return t.Kind.String()
	}
	var b strings.Builder
	b.WriteString("Select")
	b.WriteString(t.Scalar.selectName())
	if t.Multiple {
		b.WriteString("Mult")
	}
	if t.Dynamic {
		b.WriteString("Dyn")
	}
	return b.String()
}

// ValueType returns the value-type name, e.g. "String" or "Vec<i32>"
func (t TypeTag) ValueType() string {
	if t.Multiple {
		return fmt.Sprintf("Vec<%s>", t.Scalar)
	}
	return t.Scalar.String()
}

// scalarOf returns the fixed scalar of a non-select kind
func scalarOf(k Kind) Scalar {
	switch k {
	case KindI32:
		return ScalarI32
	case KindU32:
		return ScalarU32
	case KindI64:
		return ScalarI64
	case KindF64:
		return ScalarF64
	case KindBool:
		return ScalarBool
	case KindFile:
		return ScalarFile
	case KindImage:
		return ScalarImage
	default:
		return ScalarText
	}
}

var simpleKinds = map[string]Kind{}

func init() {
	for k := KindText; k <= KindImage; k++ {
		if k != KindSelect {
			simpleKinds[k.String()] = k
		}
	}
}

// ParseTypeTag converts a type tag string into a TypeTag
func ParseTypeTag(s string) (TypeTag, error) {
	if k, ok := simpleKinds[s]; ok {
		return TypeTag{Kind: k, Scalar: scalarOf(k)}, nil
	}

	rest, ok := strings.CutPrefix(s, "Select")
	if !ok {
		return TypeTag{}, fmt.Errorf("unknown widget type: %s", s)
	}

	tag := TypeTag{Kind: KindSelect}
	if r, found := strings.CutSuffix(rest, "Dyn"); found {
		tag.Dynamic = true
		rest = r
	}
	if r, found := strings.CutSuffix(rest, "Mult"); found {
		tag.Multiple = true
		rest = r
	}

	switch rest {
	case "Text":
		tag.Scalar = ScalarText
	case "I32":
		tag.Scalar = ScalarI32
	case "U32":
		tag.Scalar = ScalarU32
	case "I64":
		tag.Scalar = ScalarI64
	case "F64":
		tag.Scalar = ScalarF64
	default:
		return TypeTag{}, fmt.Errorf("unknown widget type: %s", s)
	}

	return tag, nil
}

package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// ErrInvalidValue is returned when a value cannot be converted to a field's type
var ErrInvalidValue = errors.New("invalid value")

// Coerce converts a caller-supplied value (Go-typed or decoded from JSON)
// into the typed widget value for tag. Nil yields the empty value of the kind.
func Coerce(tag TypeTag, raw interface{}) (interface{}, error) {
	if tag.Kind == KindSelect && tag.Multiple {
		return coerceSlice(tag.Scalar, raw)
	}

	switch tag.Kind {
	case KindText, KindTextArea, KindEmail, KindURL, KindIP, KindIPv4, KindIPv6,
		KindPhone, KindColor, KindPassword, KindSlug, KindHash,
		KindDate, KindDateTime, KindHiddenDateTime:
		return coerceString(raw)
	case KindI32, KindU32, KindI64, KindF64, KindBool:
		return coerceScalar(tag.Scalar, raw)
	case KindSelect:
		if raw == nil || raw == "" {
			return nil, nil
		}
		return coerceScalar(tag.Scalar, raw)
	case KindFile:
		return coerceFile(raw)
	case KindImage:
		return coerceImage(raw)
	default:
		return nil, fmt.Errorf("%w: unsupported kind %s", ErrInvalidValue, tag.Kind)
	}
}

func coerceString(raw interface{}) (interface{}, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return nil, fmt.Errorf("%w: expected string, got %T", ErrInvalidValue, raw)
	}
}

func coerceScalar(scalar Scalar, raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}

	switch scalar {
	case ScalarText:
		return coerceString(raw)
	case ScalarBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "on", "1", "yes":
				return true, nil
			case "false", "off", "0", "no", "":
				return false, nil
			}
		}
		return nil, fmt.Errorf("%w: expected boolean, got %v", ErrInvalidValue, raw)
	case ScalarF64:
		f, ok := toFloat(raw)
		if !ok {
			return nil, fmt.Errorf("%w: expected number, got %v", ErrInvalidValue, raw)
		}
		return f, nil
	case ScalarI32, ScalarU32, ScalarI64:
		i, ok := toInt(raw)
		if !ok {
			return nil, fmt.Errorf("%w: expected integer, got %v", ErrInvalidValue, raw)
		}
		switch scalar {
		case ScalarI32:
			if i < math.MinInt32 || i > math.MaxInt32 {
				return nil, fmt.Errorf("%w: %d out of i32 range", ErrInvalidValue, i)
			}
			return int32(i), nil
		case ScalarU32:
			if i < 0 || i > math.MaxUint32 {
				return nil, fmt.Errorf("%w: %d out of u32 range", ErrInvalidValue, i)
			}
			return uint32(i), nil
		default:
			return i, nil
		}
	default:
		return nil, fmt.Errorf("%w: unsupported scalar %s", ErrInvalidValue, scalar)
	}
}

func coerceSlice(scalar Scalar, raw interface{}) (interface{}, error) {
	var items []interface{}
	if raw != nil {
		rv := reflect.ValueOf(raw)
		if rv.Kind() != reflect.Slice {
			return nil, fmt.Errorf("%w: expected list, got %T", ErrInvalidValue, raw)
		}
		items = make([]interface{}, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
	}

	switch scalar {
	case ScalarText:
		out := make([]string, 0, len(items))
		for _, item := range items {
			v, err := coerceString(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v.(string))
		}
		return out, nil
	case ScalarI32:
		out := make([]int32, 0, len(items))
		for _, item := range items {
			v, err := coerceScalar(scalar, item)
			if err != nil {
				return nil, err
			}
			out = append(out, v.(int32))
		}
		return out, nil
	case ScalarU32:
		out := make([]uint32, 0, len(items))
		for _, item := range items {
			v, err := coerceScalar(scalar, item)
			if err != nil {
				return nil, err
			}
			out = append(out, v.(uint32))
		}
		return out, nil
	case ScalarI64:
		out := make([]int64, 0, len(items))
		for _, item := range items {
			v, err := coerceScalar(scalar, item)
			if err != nil {
				return nil, err
			}
			out = append(out, v.(int64))
		}
		return out, nil
	case ScalarF64:
		out := make([]float64, 0, len(items))
		for _, item := range items {
			v, err := coerceScalar(scalar, item)
			if err != nil {
				return nil, err
			}
			out = append(out, v.(float64))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported list scalar %s", ErrInvalidValue, scalar)
	}
}

func coerceFile(raw interface{}) (interface{}, error) {
	switch v := raw.(type) {
	case nil:
		return (*FileData)(nil), nil
	case *FileData:
		return v, nil
	case FileData:
		return &v, nil
	case string:
		if v == "" {
			return (*FileData)(nil), nil
		}
		return &FileData{Path: v}, nil
	case map[string]interface{}:
		f := &FileData{}
		if err := remarshal(v, f); err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: expected file, got %T", ErrInvalidValue, raw)
	}
}

func coerceImage(raw interface{}) (interface{}, error) {
	switch v := raw.(type) {
	case nil:
		return (*ImageData)(nil), nil
	case *ImageData:
		return v, nil
	case ImageData:
		return &v, nil
	case string:
		if v == "" {
			return (*ImageData)(nil), nil
		}
		return &ImageData{Path: v}, nil
	case map[string]interface{}:
		img := &ImageData{}
		if err := remarshal(v, img); err != nil {
			return nil, err
		}
		return img, nil
	default:
		return nil, fmt.Errorf("%w: expected image, got %T", ErrInvalidValue, raw)
	}
}

func remarshal(in map[string]interface{}, out interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return nil
}

func toInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f > math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	if i, ok := toInt(v); ok {
		return float64(i), true
	}
	return 0, false
}

// NumberAsFloat exposes the numeric widening used for range checks
func NumberAsFloat(v interface{}) (float64, bool) {
	if _, isString := v.(string); isString {
		return 0, false
	}
	return toFloat(v)
}

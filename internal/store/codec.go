package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// EncodeDocument serializes a document as extended JSON so that identifiers,
// timestamps and numeric widths survive a round-trip through text backends.
func EncodeDocument(doc Document) ([]byte, error) {
	wire, err := toWire(map[string]interface{}(doc))
	if err != nil {
		return nil, err
	}
	return json.Marshal(wire)
}

// DecodeDocument parses extended JSON produced by EncodeDocument
func DecodeDocument(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}

	out, err := fromWire(raw)
	if err != nil {
		return nil, err
	}
	doc, ok := out.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("failed to decode document: not an object")
	}
	return Document(doc), nil
}

func toWire(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case nil, string, bool:
		return val, nil
	case ObjectID:
		return map[string]interface{}{"$oid": val.Hex()}, nil
	case time.Time:
		return map[string]interface{}{"$date": val.UTC().Format(time.RFC3339Nano)}, nil
	case int32:
		return map[string]interface{}{"$numberInt": strconv.FormatInt(int64(val), 10)}, nil
	case uint32:
		return map[string]interface{}{"$numberLong": strconv.FormatUint(uint64(val), 10)}, nil
	case int:
		return map[string]interface{}{"$numberLong": strconv.FormatInt(int64(val), 10)}, nil
	case int64:
		return map[string]interface{}{"$numberLong": strconv.FormatInt(val, 10)}, nil
	case float64:
		return map[string]interface{}{"$numberDouble": strconv.FormatFloat(val, 'g', -1, 64)}, nil
	case float32:
		return map[string]interface{}{"$numberDouble": strconv.FormatFloat(float64(val), 'g', -1, 32)}, nil
	case Document:
		return toWire(map[string]interface{}(val))
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			w, err := toWire(item)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", k, err)
			}
			out[k] = w
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			w, err := toWire(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = w
		}
		return out, nil
	}

	return nil, fmt.Errorf("unsupported value type %T", v)
}

func fromWire(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		return val.Float64()
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			d, err := fromWire(item)
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
		return out, nil
	case map[string]interface{}:
		if len(val) == 1 {
			if decoded, ok, err := fromWrapper(val); ok || err != nil {
				return decoded, err
			}
		}
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			d, err := fromWire(item)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", k, err)
			}
			out[k] = d
		}
		return out, nil
	default:
		return val, nil
	}
}

func fromWrapper(m map[string]interface{}) (interface{}, bool, error) {
	for key, raw := range m {
		s, isString := raw.(string)
		if !isString {
			return nil, false, nil
		}
		switch key {
		case "$oid":
			id, err := ObjectIDFromHex(s)
			return id, true, err
		case "$date":
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, true, fmt.Errorf("invalid $date %q: %w", s, err)
			}
			return t.UTC(), true, nil
		case "$numberInt":
			i, err := strconv.ParseInt(s, 10, 32)
			if err != nil {
				return nil, true, fmt.Errorf("invalid $numberInt %q: %w", s, err)
			}
			return int32(i), true, nil
		case "$numberLong":
			i, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				u, uerr := strconv.ParseUint(s, 10, 64)
				if uerr != nil || u > math.MaxInt64 {
					return nil, true, fmt.Errorf("invalid $numberLong %q: %w", s, err)
				}
				i = int64(u)
			}
			return i, true, nil
		case "$numberDouble":
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, true, fmt.Errorf("invalid $numberDouble %q: %w", s, err)
			}
			return f, true, nil
		}
	}
	return nil, false, nil
}

package store

import (
	"bytes"
	"reflect"
	"sort"
	"time"
)

// Match reports whether doc satisfies every clause of filter.
// Array fields match when any element equals the filter value.
func Match(doc Document, filter Filter) bool {
	for field, want := range filter {
		got, exists := doc[field]

		if ne, ok := want.(NotEqual); ok {
			if exists && valueMatches(got, ne.Value) {
				return false
			}
			continue
		}

		if !exists {
			if want == nil {
				continue
			}
			return false
		}
		if !valueMatches(got, want) {
			return false
		}
	}
	return true
}

func valueMatches(got, want interface{}) bool {
	if Equal(got, want) {
		return true
	}
	rv := reflect.ValueOf(got)
	if rv.Kind() == reflect.Slice && !isBytes(got) {
		for i := 0; i < rv.Len(); i++ {
			if Equal(rv.Index(i).Interface(), want) {
				return true
			}
		}
	}
	return false
}

func isBytes(v interface{}) bool {
	_, ok := v.([]byte)
	return ok
}

// Equal compares two stored values, treating all numeric widths as comparable
func Equal(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}

	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case ObjectID:
		bv, ok := b.(ObjectID)
		return ok && av == bv
	case []byte:
		bv, ok := b.([]byte)
		return ok && bytes.Equal(av, bv)
	}

	return reflect.DeepEqual(a, b)
}

// Compare orders two stored values; values of different families compare by family
func Compare(a, b interface{}) int {
	fa, fb := family(a), family(b)
	if fa != fb {
		return fa - fb
	}

	switch fa {
	case 1:
		af, _ := toFloat(a)
		bf, _ := toFloat(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	case 2:
		as, bs := a.(string), b.(string)
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		}
		return 0
	case 3:
		at, bt := a.(time.Time), b.(time.Time)
		return at.Compare(bt)
	case 4:
		aid, bid := a.(ObjectID), b.(ObjectID)
		return bytes.Compare(aid[:], bid[:])
	case 5:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		}
		return 1
	}
	return 0
}

func family(v interface{}) int {
	if v == nil {
		return 0
	}
	if _, ok := toFloat(v); ok {
		return 1
	}
	switch v.(type) {
	case string:
		return 2
	case time.Time:
		return 3
	case ObjectID:
		return 4
	case bool:
		return 5
	}
	return 6
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// Apply filters, sorts and paginates documents in memory.
// Backends without native querying share this path.
func Apply(docs []Document, filter Filter, opts *FindOptions) []Document {
	matched := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if Match(doc, filter) {
			matched = append(matched, doc)
		}
	}

	sortFields := []SortField{{Field: IDField}}
	if opts != nil && len(opts.Sort) > 0 {
		sortFields = opts.Sort
	}
	sort.SliceStable(matched, func(i, j int) bool {
		for _, sf := range sortFields {
			c := Compare(matched[i][sf.Field], matched[j][sf.Field])
			if c == 0 {
				continue
			}
			if sf.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	if opts == nil {
		return matched
	}
	if opts.Skip > 0 {
		if opts.Skip >= int64(len(matched)) {
			return []Document{}
		}
		matched = matched[opts.Skip:]
	}
	if opts.Limit > 0 && opts.Limit < int64(len(matched)) {
		matched = matched[:opts.Limit]
	}
	return matched
}

// Clone deep-copies a document so callers never share nested maps or slices
func Clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case Document:
		return Clone(val)
	case map[string]interface{}:
		return map[string]interface{}(Clone(Document(val)))
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
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
	case []byte:
		return append([]byte(nil), val...)
	default:
		return v
	}
}

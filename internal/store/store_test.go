package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectID_HexRoundTrip(t *testing.T) {
	id := NewObjectID()
	assert.False(t, id.IsZero())
	assert.Len(t, id.Hex(), 32)

	parsed, err := ObjectIDFromHex(id.Hex())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestObjectIDFromHex_Invalid(t *testing.T) {
	for _, s := range []string{"", "abc", "zz000000000000000000000000000000"} {
		_, err := ObjectIDFromHex(s)
		assert.ErrorIs(t, err, ErrInvalidID, s)
	}
}

func TestNewObjectID_Ordered(t *testing.T) {
	first := NewObjectID()
	time.Sleep(2 * time.Millisecond)
	second := NewObjectID()
	assert.Negative(t, Compare(first, second))
}

func TestMatch(t *testing.T) {
	id := NewObjectID()
	doc := Document{
		IDField:  id,
		"email":  "a@example.com",
		"age":    int32(30),
		"tags":   []interface{}{"x", "y"},
		"joined": time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter", Filter{}, true},
		{"equal string", Filter{"email": "a@example.com"}, true},
		{"different string", Filter{"email": "b@example.com"}, false},
		{"numeric widths compare", Filter{"age": int64(30)}, true},
		{"float compares with int", Filter{"age": 30.0}, true},
		{"array membership", Filter{"tags": "y"}, true},
		{"time equality", Filter{"joined": time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)}, true},
		{"id equality", ByID(id), true},
		{"not equal excludes own id", Filter{"email": "a@example.com", IDField: Ne(id)}, false},
		{"not equal other id", Filter{IDField: Ne(NewObjectID())}, true},
		{"missing field", Filter{"name": "x"}, false},
		{"missing field nil", Filter{"name": nil}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(doc, tt.filter))
		})
	}
}

func TestApply_SortSkipLimit(t *testing.T) {
	docs := []Document{
		{"n": int64(3)}, {"n": int64(1)}, {"n": int64(2)},
	}

	sorted := Apply(docs, nil, &FindOptions{Sort: []SortField{{Field: "n"}}})
	require.Len(t, sorted, 3)
	assert.Equal(t, int64(1), sorted[0]["n"])

	desc := Apply(docs, nil, &FindOptions{Sort: []SortField{{Field: "n", Descending: true}}, Skip: 1, Limit: 1})
	require.Len(t, desc, 1)
	assert.Equal(t, int64(2), desc[0]["n"])

	assert.Empty(t, Apply(docs, nil, &FindOptions{Skip: 10}))
}

func TestClone_IsDeep(t *testing.T) {
	doc := Document{"file": map[string]interface{}{"name": "a.txt"}, "tags": []string{"a"}}
	clone := Clone(doc)

	clone["file"].(map[string]interface{})["name"] = "b.txt"
	clone["tags"].([]string)[0] = "b"

	assert.Equal(t, "a.txt", doc["file"].(map[string]interface{})["name"])
	assert.Equal(t, "a", doc["tags"].([]string)[0])
}

func TestCodec_RoundTrip(t *testing.T) {
	id := NewObjectID()
	when := time.Date(1970, 2, 27, 10, 30, 0, 0, time.UTC)
	doc := Document{
		IDField:   id,
		"name":    "Ada",
		"i32":     int32(-5),
		"u32":     uint32(7),
		"i64":     int64(1 << 40),
		"f64":     1.5,
		"ok":      true,
		"nothing": nil,
		"when":    when,
		"multi":   []int32{1, 2},
		"file":    map[string]interface{}{"size": int64(12), "name": "a.txt"},
	}

	data, err := EncodeDocument(doc)
	require.NoError(t, err)

	decoded, err := DecodeDocument(data)
	require.NoError(t, err)

	assert.Equal(t, id, decoded[IDField])
	assert.Equal(t, "Ada", decoded["name"])
	assert.Equal(t, int32(-5), decoded["i32"])
	assert.Equal(t, int64(7), decoded["u32"])
	assert.Equal(t, int64(1<<40), decoded["i64"])
	assert.Equal(t, 1.5, decoded["f64"])
	assert.Equal(t, true, decoded["ok"])
	assert.Nil(t, decoded["nothing"])
	assert.True(t, when.Equal(decoded["when"].(time.Time)))
	assert.Equal(t, []interface{}{int32(1), int32(2)}, decoded["multi"])
	assert.Equal(t, map[string]interface{}{"size": int64(12), "name": "a.txt"}, decoded["file"])
}

func TestCodec_PlainNumbers(t *testing.T) {
	decoded, err := DecodeDocument([]byte(`{"a": 3, "b": 2.5}`))
	require.NoError(t, err)
	assert.Equal(t, int64(3), decoded["a"])
	assert.Equal(t, 2.5, decoded["b"])
}

func TestCodec_Errors(t *testing.T) {
	_, err := EncodeDocument(Document{"ch": make(chan int)})
	assert.Error(t, err)

	_, err = DecodeDocument([]byte(`{"when": {"$date": "yesterday"}}`))
	assert.Error(t, err)

	_, err = DecodeDocument([]byte(`not json`))
	assert.Error(t, err)
}

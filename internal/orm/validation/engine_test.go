package validation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/docmodel/internal/orm/schema"
	"github.com/conduit-lang/docmodel/internal/store"
	"github.com/conduit-lang/docmodel/internal/store/memstore"
)

func float(v float64) *float64 { return &v }

func buildUser(t *testing.T) (*schema.Meta, schema.WidgetMap) {
	t.Helper()
	meta, widgets, err := schema.Build(&schema.ModelDeclaration{
		Key:  "accounts_user",
		Name: "User",
		Fields: []schema.FieldDeclaration{
			{Name: "username", Type: "InputText", Required: true, Unique: true, MinLength: 3, MaxLength: 20,
				Regex: `^[a-z0-9_]+$`, RegexMsg: "only lowercase letters, digits and underscores"},
			{Name: "email", Type: "InputEmail", Required: true, Unique: true, Regex: `@example\.com$`, RegexMsg: "must be an example.com address"},
			{Name: "age", Type: "InputU32", Min: float(18), Max: float(130)},
			{Name: "role", Type: "SelectText", Options: []schema.Option{{Value: "admin", Label: "Admin"}, {Value: "user", Label: "User"}}},
			{Name: "avatar", Type: "InputImage"},
		},
	})
	require.NoError(t, err)
	return meta, widgets
}

func TestEngine_AllDefaultsValid(t *testing.T) {
	meta, widgets, err := schema.Build(&schema.ModelDeclaration{
		Key:  "note",
		Name: "Note",
		Fields: []schema.FieldDeclaration{
			{Name: "title", Type: "InputText"},
			{Name: "count", Type: "InputI64"},
			{Name: "public", Type: "CheckBox", Default: false},
		},
	})
	require.NoError(t, err)

	out, err := NewEngine().Validate(context.Background(), Request{Meta: meta, Widgets: widgets})
	require.NoError(t, err)
	assert.True(t, IsValid(out))
}

func TestEngine_Required(t *testing.T) {
	meta, widgets := buildUser(t)

	out, err := NewEngine().Validate(context.Background(), Request{Meta: meta, Widgets: widgets})
	require.NoError(t, err)

	assert.False(t, IsValid(out))
	assert.Equal(t, []string{MsgRequired}, out["username"].Errors)
	assert.Equal(t, []string{MsgRequired}, out["email"].Errors)
	assert.Empty(t, out["age"].Errors)
	assert.False(t, widgets.HasErrors(), "input widgets must stay untouched")
}

func TestEngine_ErrorsAccumulate(t *testing.T) {
	meta, widgets := buildUser(t)
	widgets["username"].Value = "AB"
	widgets["email"].Value = "jane@other.org"
	widgets["age"].Value = uint32(12)
	widgets["role"].Value = "root"

	out, err := NewEngine().Validate(context.Background(), Request{Meta: meta, Widgets: widgets})
	require.NoError(t, err)

	want := map[string][]string{
		"username": {"must be at least 3 characters", "only lowercase letters, digits and underscores"},
		"email":    {"must be an example.com address"},
		"age":      {"must be at least 18"},
		"role":     {"root is not one of the available options"},
	}
	if diff := cmp.Diff(want, out.Errors()); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_BuiltinAndCustomRegexBothReport(t *testing.T) {
	meta, widgets := buildUser(t)
	widgets["username"].Value = "jane"
	widgets["email"].Value = "not-an-email"

	out, err := NewEngine().Validate(context.Background(), Request{Meta: meta, Widgets: widgets})
	require.NoError(t, err)

	assert.Equal(t, []string{"must be a valid email address", "must be an example.com address"}, out["email"].Errors)
}

func TestEngine_Uniqueness(t *testing.T) {
	ctx := context.Background()
	meta, widgets := buildUser(t)
	coll := memstore.New().Collection(meta.CollectionName)

	existing, err := coll.InsertOne(ctx, store.Document{"username": "jane", "email": "jane@example.com"})
	require.NoError(t, err)

	widgets["username"].Value = "jane"
	widgets["email"].Value = "other@example.com"

	out, err := NewEngine().Validate(ctx, Request{Meta: meta, Widgets: widgets, Collection: coll})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"username": {MsgNotUnique}}, out.Errors())

	// the document itself does not conflict with its own value
	out, err = NewEngine().Validate(ctx, Request{Meta: meta, Widgets: widgets, Collection: coll, OwnID: existing})
	require.NoError(t, err)
	assert.True(t, IsValid(out))
}

func TestEngine_UniquenessSkippedWhenLocalChecksFail(t *testing.T) {
	ctx := context.Background()
	meta, widgets := buildUser(t)
	widgets["username"].Value = "x"
	widgets["email"].Value = "jane@example.com"

	out, err := NewEngine().Validate(ctx, Request{Meta: meta, Widgets: widgets, Collection: &failingCollection{}})
	require.Error(t, err, "email passes pass 1 and reaches the store")
	assert.Nil(t, out)

	widgets["email"].Value = "bad"
	out, err = NewEngine().Validate(ctx, Request{Meta: meta, Widgets: widgets, Collection: &failingCollection{}})
	require.NoError(t, err, "no field reaches pass 2")
	assert.False(t, IsValid(out))
}

func TestEngine_Idempotent(t *testing.T) {
	ctx := context.Background()
	meta, widgets := buildUser(t)
	coll := memstore.New().Collection(meta.CollectionName)
	widgets["username"].Value = "Bad Name"

	engine := NewEngine()
	first, err := engine.Validate(ctx, Request{Meta: meta, Widgets: widgets, Collection: coll})
	require.NoError(t, err)
	second, err := engine.Validate(ctx, Request{Meta: meta, Widgets: first, Collection: coll})
	require.NoError(t, err)

	if diff := cmp.Diff(first.Errors(), second.Errors()); diff != "" {
		t.Errorf("errors changed between runs:\n%s", diff)
	}
}

func TestEngine_Additional(t *testing.T) {
	meta, widgets := buildUser(t)
	widgets["username"].Value = "jane"
	widgets["email"].Value = "jane@example.com"

	req := Request{
		Meta:    meta,
		Widgets: widgets,
		Additional: func(ctx context.Context, values map[string]interface{}) (map[string]string, error) {
			if values["username"] == "jane" {
				return map[string]string{"username": "jane is reserved"}, nil
			}
			return nil, nil
		},
	}

	out, err := NewEngine().Validate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"jane is reserved"}, out["username"].Errors)

	req.Additional = func(ctx context.Context, values map[string]interface{}) (map[string]string, error) {
		return map[string]string{"nope": "x"}, nil
	}
	_, err = NewEngine().Validate(context.Background(), req)
	assert.Error(t, err)
}

func TestEngine_SkipAndDeletedAsset(t *testing.T) {
	meta, widgets := buildUser(t)
	widgets["username"].Required = true
	widgets["avatar"].Required = true
	widgets["avatar"].Value = &schema.ImageData{Path: "/media/a.png", IsDelete: true}

	out, err := NewEngine().Validate(context.Background(), Request{
		Meta:    meta,
		Widgets: widgets,
		Skip:    map[string]bool{"username": true, "email": true},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"avatar": {MsgRequired}}, out.Errors())
}

func TestFromWidgets(t *testing.T) {
	_, widgets := buildUser(t)

	t.Run("single field", func(t *testing.T) {
		w := widgets.Clone()
		w["email"].AddError("bad")

		errs := FromWidgets("", w)
		assert.True(t, errs.HasErrors())
		assert.Equal(t, 1, errs.Count())
		assert.Equal(t, "validation failed: email: bad", errs.Error())
	})

	t.Run("fields follow declaration order", func(t *testing.T) {
		w := widgets.Clone()
		fields := w.Ordered()
		last, first := fields[len(fields)-1], fields[1]
		last.AddError("z1")
		first.AddError("a1")
		first.AddError("a2")

		for i := 0; i < 10; i++ {
			errs := FromWidgets("accounts_user", w)
			assert.Equal(t, 3, errs.Count())
			assert.Equal(t, first.Name, errs.Fields[0].Field)
			assert.Equal(t, last.Name, errs.Fields[1].Field)
			assert.Equal(t,
				"accounts_user: validation failed:\n  - "+first.Name+": a1; a2\n  - "+last.Name+": z1",
				errs.Error())
		}
	})

	t.Run("json", func(t *testing.T) {
		w := widgets.Clone()
		w["email"].AddError("bad")

		data, err := json.Marshal(FromWidgets("accounts_user", w))
		require.NoError(t, err)
		assert.JSONEq(t, `{"error":"validation_failed","model":"accounts_user","fields":[{"field":"email","messages":["bad"]}]}`, string(data))
	})

	t.Run("valid widgets", func(t *testing.T) {
		errs := FromWidgets("accounts_user", widgets.Clone())
		assert.False(t, errs.HasErrors())
		assert.Empty(t, errs.Map())
		assert.Equal(t, "accounts_user: validation failed", errs.Error())
	})
}

type failingCollection struct{}

var errStoreDown = errors.New("store down")

func (f *failingCollection) Name() string { return "failing" }
func (f *failingCollection) FindOne(ctx context.Context, filter store.Filter) (store.Document, error) {
	return nil, errStoreDown
}
func (f *failingCollection) Find(ctx context.Context, filter store.Filter, opts *store.FindOptions) ([]store.Document, error) {
	return nil, errStoreDown
}
func (f *failingCollection) Count(ctx context.Context, filter store.Filter) (int64, error) {
	return 0, errStoreDown
}
func (f *failingCollection) InsertOne(ctx context.Context, doc store.Document) (store.ObjectID, error) {
	return store.NilObjectID, errStoreDown
}
func (f *failingCollection) ReplaceOne(ctx context.Context, filter store.Filter, doc store.Document) (int64, error) {
	return 0, errStoreDown
}
func (f *failingCollection) DeleteOne(ctx context.Context, filter store.Filter) (int64, error) {
	return 0, errStoreDown
}

package crud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/conduit-lang/docmodel/internal/orm/assets"
	"github.com/conduit-lang/docmodel/internal/orm/cache"
	"github.com/conduit-lang/docmodel/internal/orm/dynamic"
	"github.com/conduit-lang/docmodel/internal/orm/hooks"
	"github.com/conduit-lang/docmodel/internal/orm/schema"
	"github.com/conduit-lang/docmodel/internal/orm/validation"
	"github.com/conduit-lang/docmodel/internal/store"
	"github.com/conduit-lang/docmodel/internal/store/memstore"
)

// fakeClock advances one second per call
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type testEnv struct {
	ops      *Operations
	store    store.Store
	registry *schema.Registry
	hooks    *hooks.Registry
	media    string
	scope    tally.TestScope
}

func declarations() []*schema.ModelDeclaration {
	return []*schema.ModelDeclaration{
		{
			Key:  "accounts_user",
			Name: "User",
			Fields: []schema.FieldDeclaration{
				{Name: "username", Type: "InputText", Required: true, Unique: true, MaxLength: 30},
				{Name: "email", Type: "InputEmail", Unique: true},
				{Name: "password", Type: "InputPassword", MinLength: 8},
				{Name: "confirm_password", Type: "InputPassword"},
				{Name: "slug", Type: "InputSlug", SlugSources: []string{"username", "hash"}},
				{Name: "age", Type: "InputU32"},
				{Name: "resume", Type: "InputFile", TargetDir: "resumes"},
			},
			Ignore: []string{"confirm_password"},
		},
		{
			Key:  "events_event",
			Name: "Event",
			Fields: []schema.FieldDeclaration{
				{Name: "title", Type: "InputText"},
				{Name: "starts_at", Type: "InputDateTime"},
				{Name: "category", Type: "SelectI64Dyn"},
			},
		},
		{
			Key:           "audit_entry",
			Name:          "AuditEntry",
			Fields:        []schema.FieldDeclaration{{Name: "message", Type: "InputText"}},
			DisableUpdate: true,
			DisableDelete: true,
		},
	}
}

func newEnv(t *testing.T, st store.Store) *testEnv {
	t.Helper()
	if st == nil {
		st = memstore.New()
	}

	registry := schema.NewRegistry()
	for _, decl := range declarations() {
		registry.MustRegister(decl)
	}

	env := &testEnv{
		store:    st,
		registry: registry,
		hooks:    hooks.NewRegistry(),
		media:    t.TempDir(),
		scope:    tally.NewTestScope("", nil),
	}

	enricher := dynamic.New(st.Collection("test_technical"), nil)
	require.NoError(t, enricher.EnsureDocument(context.Background(), "events", []string{"category"}))

	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	env.ops = NewOperations(
		cache.New(registry, st, nil),
		nil,
		WithEnricher(enricher),
		WithAssets(assets.New(env.media, "/media", nil)),
		WithHooks(env.hooks),
		WithScope(env.scope),
		WithClock(clock.Now),
		WithBcryptCost(bcrypt.MinCost),
	)
	return env
}

func newUser(username, email string) *Instance {
	return NewInstance("accounts_user", map[string]interface{}{
		"username": username,
		"email":    email,
		"password": "S3cretpass",
	})
}

func counter(scope tally.TestScope, name string) int64 {
	for _, c := range scope.Snapshot().Counters() {
		if c.Name() == name {
			return c.Value()
		}
	}
	return 0
}

func TestCheck_AllDefaultsValid(t *testing.T) {
	env := newEnv(t, nil)

	out, err := env.ops.Check(context.Background(), NewInstance("events_event", nil))
	require.NoError(t, err)

	assert.True(t, out.IsValid())
	assert.NoError(t, out.Err())
	assert.Empty(t, out.Document())
	assert.Empty(t, out.Hash())
	_, err = out.ObjectID()
	assert.ErrorIs(t, err, ErrMissingHash)
}

func TestCheck_Required(t *testing.T) {
	env := newEnv(t, nil)

	out, err := env.ops.Check(context.Background(), NewInstance("accounts_user", nil))
	require.NoError(t, err)

	assert.False(t, out.IsValid())
	assert.Equal(t, map[string][]string{"username": {"is required"}}, out.Errors())
	assert.Equal(t, "username: is required", out.ErrMsg())

	var verrs *validation.ValidationErrors
	require.ErrorAs(t, out.Err(), &verrs)
	assert.Equal(t, "accounts_user", verrs.Model)
	require.Len(t, verrs.Fields, 1)
	assert.Equal(t, "username", verrs.Fields[0].Field)

	assert.Equal(t, int64(1), counter(env.scope, "check"))
	assert.Equal(t, int64(1), counter(env.scope, "check.invalid"))
}

func TestCheck_ConfigurationErrors(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	_, err := env.ops.Check(ctx, NewInstance("missing", nil))
	assert.ErrorIs(t, err, schema.ErrModelNotRegistered)
	assert.True(t, IsConfigurationError(err))

	_, err = env.ops.Check(ctx, NewInstance("accounts_user", map[string]interface{}{"nickname": "x"}))
	assert.ErrorIs(t, err, ErrUnknownField)
	assert.True(t, IsConfigurationError(err))
}

func TestCheck_CoercionErrorIsFieldError(t *testing.T) {
	env := newEnv(t, nil)

	inst := newUser("jane", "jane@example.com").Set("age", "old")
	out, err := env.ops.Check(context.Background(), inst)
	require.NoError(t, err)

	assert.False(t, out.IsValid())
	errs := out.Errors()
	assert.Len(t, errs, 1)
	assert.Contains(t, errs["age"][0], "invalid value")
}

func TestCheck_ComputesSlugWithoutStoring(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	out, err := env.ops.Check(ctx, newUser("Jöhn Dœ", "john@example.com"))
	require.NoError(t, err)

	slug, _ := out.Value("slug")
	assert.Equal(t, "john-d", slug)

	n, err := env.ops.Count(ctx, "accounts_user", store.Filter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCheck_Idempotent(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	_, err := env.ops.Save(ctx, newUser("jane", "jane@example.com"))
	require.NoError(t, err)

	inst := newUser("jane", "not-an-email").Set("password", "short")
	first, err := env.ops.Check(ctx, inst)
	require.NoError(t, err)
	second, err := env.ops.Check(ctx, inst)
	require.NoError(t, err)

	assert.NotEmpty(t, first.Errors())
	if diff := cmp.Diff(first.Errors(), second.Errors()); diff != "" {
		t.Errorf("errors differ between checks (-first +second):\n%s", diff)
	}
}

func TestSave_CreateAndRead(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	inst := newUser("jane", "jane@example.com").Set("confirm_password", "S3cretpass").Set("age", 41)
	out, err := env.ops.Save(ctx, inst)
	require.NoError(t, err)
	require.True(t, out.IsValid(), out.ErrMsg())

	assert.Len(t, inst.Hash, 32)
	assert.Equal(t, inst.Hash, out.Hash())
	id, err := out.ObjectID()
	require.NoError(t, err)
	assert.Equal(t, inst.Hash, id.Hex())
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 1, 0, time.UTC), out.CreatedAt())
	assert.Equal(t, out.CreatedAt(), out.UpdatedAt())

	doc := out.Document()
	assert.Equal(t, inst.Hash, doc["hash"])
	assert.Equal(t, "jane-"+inst.Hash, doc["slug"])
	assert.Equal(t, "", doc["password"])
	assert.NotContains(t, doc, "confirm_password")
	assert.Equal(t, "2024-05-01T12:00:01", doc["created_at"])

	raw, err := env.store.Collection("users").FindOne(ctx, store.ByID(id))
	require.NoError(t, err)
	assert.NotContains(t, raw, "confirm_password")
	assert.NotContains(t, raw, "hash")
	assert.Equal(t, uint32(41), raw["age"])
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(raw["password"].(string)), []byte("S3cretpass")))

	found, err := env.ops.FindOneInstance(ctx, "accounts_user", store.Filter{"username": "jane"})
	require.NoError(t, err)
	assert.Equal(t, inst.Hash, found.Hash)
	assert.Equal(t, uint32(41), found.Values["age"])
	assert.Equal(t, "", found.Values["password"])
	assert.Equal(t, out.CreatedAt(), found.CreatedAt)

	docs, err := env.ops.FindMany(ctx, "accounts_user", store.Filter{}, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, inst.Hash, docs[0]["hash"])

	js, err := env.ops.FindManyJSON(ctx, "accounts_user", store.Filter{}, nil)
	require.NoError(t, err)
	assert.Contains(t, js, `"username":"jane"`)

	assert.Equal(t, int64(1), counter(env.scope, "save.created"))
}

func TestSave_InvalidSkipsHooksAndWrites(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	called := false
	env.hooks.Register("accounts_user", &hooks.Hooks{
		PreCreate: func(ctx context.Context, ev *hooks.Event) error { called = true; return nil },
	})

	inst := NewInstance("accounts_user", map[string]interface{}{"email": "jane@example.com"})
	out, err := env.ops.Save(ctx, inst)
	require.NoError(t, err)

	assert.False(t, out.IsValid())
	assert.False(t, called)
	assert.Empty(t, inst.Hash)
	assert.Empty(t, out.Document())

	assert.Empty(t, out.Hash())
	_, err = out.ObjectID()
	assert.ErrorIs(t, err, ErrMissingHash)

	js, err := out.ToJSON()
	require.NoError(t, err)
	var widgets map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(js), &widgets))
	assert.Equal(t, "", widgets["hash"]["value"])
	slug, _ := out.Value("slug")
	assert.Equal(t, "", slug, "slug must not carry the unsaved id")

	n, err := env.ops.Count(ctx, "accounts_user", store.Filter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSave_UniquenessAndDelete(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	first := newUser("jane", "jane@example.com")
	out, err := env.ops.Save(ctx, first)
	require.NoError(t, err)
	require.True(t, out.IsValid())

	second := newUser("jane", "other@example.com")
	out, err = env.ops.Save(ctx, second)
	require.NoError(t, err)
	assert.False(t, out.IsValid())
	assert.Equal(t, map[string][]string{"username": {"is already taken"}}, out.Errors())

	res, err := env.ops.Delete(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, DeleteResult{OK: true, Message: "document deleted", Count: 1}, res)
	assert.Empty(t, first.Hash)

	out, err = env.ops.Save(ctx, second)
	require.NoError(t, err)
	assert.True(t, out.IsValid(), out.ErrMsg())
}

func TestSave_RoundTripUpdatesTimestamp(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	inst := newUser("jane", "jane@example.com")
	first, err := env.ops.Save(ctx, inst)
	require.NoError(t, err)
	hash := inst.Hash

	raw, err := env.store.Collection("users").FindOne(ctx, store.Filter{"username": "jane"})
	require.NoError(t, err)
	storedPassword := raw["password"]

	second, err := env.ops.Save(ctx, inst)
	require.NoError(t, err)
	require.True(t, second.IsValid(), second.ErrMsg())

	assert.Equal(t, hash, inst.Hash)
	assert.Equal(t, first.CreatedAt(), second.CreatedAt())
	assert.True(t, second.UpdatedAt().After(first.UpdatedAt()))

	raw, err = env.store.Collection("users").FindOne(ctx, store.Filter{"username": "jane"})
	require.NoError(t, err)
	assert.Equal(t, storedPassword, raw["password"], "updates keep the stored password")
	assert.Equal(t, first.CreatedAt(), raw["created_at"])

	n, err := env.ops.Count(ctx, "accounts_user", store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int64(1), counter(env.scope, "save.updated"))
}

func TestSave_UpdateMissingDocument(t *testing.T) {
	env := newEnv(t, nil)

	inst := newUser("jane", "jane@example.com")
	inst.Hash = store.NewObjectID().Hex()

	_, err := env.ops.Save(context.Background(), inst)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.True(t, IsNotFound(err))
}

func TestSave_PasswordRedaction(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	inst := newUser("jane", "jane@example.com")
	out, err := env.ops.Save(ctx, inst)
	require.NoError(t, err)

	raw, err := env.store.Collection("users").FindOne(ctx, store.Filter{"username": "jane"})
	require.NoError(t, err)
	hashed := raw["password"].(string)

	found, err := env.ops.FindOne(ctx, "accounts_user", store.Filter{"username": "jane"})
	require.NoError(t, err)

	for _, rendering := range []*OutputData{out, found} {
		js, err := rendering.ToJSON()
		require.NoError(t, err)
		admin, err := rendering.ToJSONForAdmin()
		require.NoError(t, err)

		for _, s := range []string{js, admin} {
			assert.NotContains(t, s, "S3cretpass")
			assert.NotContains(t, s, hashed)
		}
		assert.Contains(t, js, `"username"`)
		assert.Contains(t, admin, `"name":"password"`)
	}
}

func TestPasswords(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	inst := newUser("jane", "jane@example.com")
	_, err := env.ops.Save(ctx, inst)
	require.NoError(t, err)

	ok, err := env.ops.VerifyPassword(ctx, "accounts_user", inst.Hash, "password", "S3cretpass")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = env.ops.VerifyPassword(ctx, "accounts_user", inst.Hash, "password", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	err = env.ops.UpdatePassword(ctx, "accounts_user", inst.Hash, "password", "wrong", "N3wpassword")
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	err = env.ops.UpdatePassword(ctx, "accounts_user", inst.Hash, "password", "S3cretpass", "short")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 8 characters")

	require.NoError(t, env.ops.UpdatePassword(ctx, "accounts_user", inst.Hash, "password", "S3cretpass", "N3wpassword"))

	ok, err = env.ops.VerifyPassword(ctx, "accounts_user", inst.Hash, "password", "N3wpassword")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = env.ops.VerifyPassword(ctx, "accounts_user", inst.Hash, "username", "jane")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestSave_DateTimeTruncation(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	inst := NewInstance("events_event", map[string]interface{}{
		"title":     "Launch",
		"starts_at": "1970-02-27T00:00",
	})
	out, err := env.ops.Save(ctx, inst)
	require.NoError(t, err)
	require.True(t, out.IsValid(), out.ErrMsg())

	found, err := env.ops.FindOne(ctx, "events_event", store.Filter{"title": "Launch"})
	require.NoError(t, err)

	v, _ := found.Value("starts_at")
	assert.Equal(t, "1970-02-27T00:00", v)
	assert.Equal(t, "1970-02-27T00:00:00", found.Document()["starts_at"])

	raw, err := env.store.Collection("events").FindOne(ctx, store.Filter{"title": "Launch"})
	require.NoError(t, err)
	stored := raw["starts_at"].(time.Time)
	assert.Equal(t, "1970-02-27", stored.Format("2006-01-02"))
}

func TestSave_DynamicOptions(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	inst := NewInstance("events_event", map[string]interface{}{"title": "A", "category": 3})
	out, err := env.ops.Check(ctx, inst)
	require.NoError(t, err)
	assert.False(t, out.IsValid())

	enricher := dynamic.New(env.store.Collection("test_technical"), nil)
	require.NoError(t, enricher.SetOptions(ctx, "events", "category", schema.ScalarI64, []schema.Option{{Value: 3, Label: "Music"}}))

	out, err = env.ops.Check(ctx, inst)
	require.NoError(t, err)
	assert.True(t, out.IsValid(), out.ErrMsg())
	assert.Equal(t, []schema.Option{{Value: int64(3), Label: "Music"}}, out.Widgets()["category"].Options)
}

func TestDelete_CascadesAsset(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "resume.pdf")
	require.NoError(t, os.WriteFile(src, []byte("%PDF"), 0o644))

	inst := newUser("jane", "jane@example.com").Set("resume", src)
	out, err := env.ops.Save(ctx, inst)
	require.NoError(t, err)
	require.True(t, out.IsValid(), out.ErrMsg())

	v, _ := out.Value("resume")
	file := v.(*schema.FileData)
	assert.FileExists(t, file.Path)
	assert.Contains(t, file.URL, "/media/resumes/")

	before, err := env.ops.Count(ctx, "accounts_user", store.Filter{})
	require.NoError(t, err)

	res, err := env.ops.Delete(ctx, inst)
	require.NoError(t, err)
	assert.True(t, res.OK)

	after, err := env.ops.Count(ctx, "accounts_user", store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, before-1, after)
	assert.NoFileExists(t, file.Path)
	assert.Equal(t, int64(1), counter(env.scope, "delete"))
}

func TestSave_ReplacesAndDeletesAssets(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()
	dir := t.TempDir()

	first := filepath.Join(dir, "v1.pdf")
	second := filepath.Join(dir, "v2.pdf")
	require.NoError(t, os.WriteFile(first, []byte("one"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("two"), 0o644))

	inst := newUser("jane", "jane@example.com").Set("resume", first)
	out, err := env.ops.Save(ctx, inst)
	require.NoError(t, err)
	v, _ := out.Value("resume")
	oldPath := v.(*schema.FileData).Path

	// unchanged path keeps the stored asset
	inst.Set("resume", oldPath)
	out, err = env.ops.Save(ctx, inst)
	require.NoError(t, err)
	assert.FileExists(t, oldPath)

	inst.Set("resume", second)
	out, err = env.ops.Save(ctx, inst)
	require.NoError(t, err)
	v, _ = out.Value("resume")
	newPath := v.(*schema.FileData).Path
	assert.FileExists(t, newPath)
	assert.NoFileExists(t, oldPath)

	inst.Set("resume", &schema.FileData{Path: newPath, IsDelete: true})
	out, err = env.ops.Save(ctx, inst)
	require.NoError(t, err)
	assert.NoFileExists(t, newPath)
	assert.Nil(t, out.Document()["resume"])
}

func TestSave_MissingAssetSourceFailsBeforeWrite(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	inst := newUser("jane", "jane@example.com").Set("resume", filepath.Join(t.TempDir(), "missing.pdf"))
	_, err := env.ops.Save(ctx, inst)
	assert.ErrorIs(t, err, assets.ErrSourceNotFound)

	n, err := env.ops.Count(ctx, "accounts_user", store.Filter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSave_WriteFailureRollsBackStagedAssets(t *testing.T) {
	env := newEnv(t, &failingStore{Store: memstore.New()})
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "resume.pdf")
	require.NoError(t, os.WriteFile(src, []byte("%PDF"), 0o644))

	_, err := env.ops.Save(ctx, newUser("jane", "jane@example.com").Set("resume", src))
	assert.ErrorIs(t, err, errInsertFailed)

	entries, err := os.ReadDir(filepath.Join(env.media, "resumes"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSave_Hooks(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	var seen []string
	record := func(ctx context.Context, ev *hooks.Event) error {
		seen = append(seen, ev.Type.String())
		return nil
	}
	env.hooks.Register("accounts_user", &hooks.Hooks{
		PreCreate: record, PostCreate: record,
		PreUpdate: record, PostUpdate: record,
		PreDelete: record, PostDelete: record,
	})

	inst := newUser("jane", "jane@example.com")
	_, err := env.ops.Save(ctx, inst)
	require.NoError(t, err)
	_, err = env.ops.Save(ctx, inst)
	require.NoError(t, err)
	_, err = env.ops.Delete(ctx, inst)
	require.NoError(t, err)

	assert.Equal(t, []string{"pre_create", "post_create", "pre_update", "post_update", "pre_delete", "post_delete"}, seen)
}

func TestSave_HookErrors(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()
	refused := errors.New("refused")

	env.hooks.Register("accounts_user", &hooks.Hooks{
		PreCreate: func(ctx context.Context, ev *hooks.Event) error {
			if ev.Document["username"] == "blocked" {
				return refused
			}
			return nil
		},
		PostCreate: func(ctx context.Context, ev *hooks.Event) error {
			if ev.Document["username"] == "noisy" {
				return refused
			}
			return nil
		},
	})

	_, err := env.ops.Save(ctx, newUser("blocked", "b@example.com"))
	assert.ErrorIs(t, err, refused)

	n, err := env.ops.Count(ctx, "accounts_user", store.Filter{})
	require.NoError(t, err)
	assert.Zero(t, n, "pre-hook errors abort before the write")

	out, err := env.ops.Save(ctx, newUser("noisy", "n@example.com"))
	assert.ErrorIs(t, err, refused)
	require.NotNil(t, out)
	assert.NotEmpty(t, out.Hash())

	n, err = env.ops.Count(ctx, "accounts_user", store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "post-hook errors do not undo the write")
}

func TestCapabilityFlags(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	inst := NewInstance("audit_entry", map[string]interface{}{"message": "hello"})
	_, err := env.ops.Save(ctx, inst)
	require.NoError(t, err)

	_, err = env.ops.Save(ctx, inst)
	assert.ErrorIs(t, err, ErrOperationNotAllowed)
	assert.True(t, IsOperationNotAllowed(err))

	res, err := env.ops.Delete(ctx, inst)
	assert.ErrorIs(t, err, ErrOperationNotAllowed)
	assert.False(t, res.OK)
}

func TestDelete_Unsaved(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	res, err := env.ops.Delete(ctx, newUser("jane", "jane@example.com"))
	require.NoError(t, err)
	assert.False(t, res.OK)

	inst := newUser("jane", "jane@example.com")
	inst.Hash = store.NewObjectID().Hex()
	res, err = env.ops.Delete(ctx, inst)
	require.NoError(t, err)
	assert.Equal(t, DeleteResult{Message: "document not found"}, res)
}

func TestOutputData_PrintErr(t *testing.T) {
	color.NoColor = true
	env := newEnv(t, nil)

	out, err := env.ops.Check(context.Background(), NewInstance("accounts_user", map[string]interface{}{"email": "bad"}))
	require.NoError(t, err)

	var buf bytes.Buffer
	out.PrintErr(&buf)
	assert.Contains(t, buf.String(), "ACCOUNTS_USER: validation failed")
	assert.Contains(t, buf.String(), "username: is required")
	assert.Contains(t, buf.String(), "email: must be a valid email address")
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Hello World":          "hello-world",
		"  Ünïcödé -- Title! ": "unicode-title",
		"already-a-slug":       "already-a-slug",
		"":                     "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

var errInsertFailed = errors.New("insert failed")

type failingStore struct {
	store.Store
}

func (f *failingStore) Collection(name string) store.Collection {
	return &failingInsertCollection{Collection: f.Store.Collection(name)}
}

type failingInsertCollection struct {
	store.Collection
}

func (c *failingInsertCollection) InsertOne(ctx context.Context, doc store.Document) (store.ObjectID, error) {
	if c.Name() == "users" {
		return store.NilObjectID, errInsertFailed
	}
	return c.Collection.InsertOne(ctx, doc)
}

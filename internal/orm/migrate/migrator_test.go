package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/docmodel/internal/orm/cache"
	"github.com/conduit-lang/docmodel/internal/orm/dynamic"
	"github.com/conduit-lang/docmodel/internal/orm/schema"
	"github.com/conduit-lang/docmodel/internal/store"
	"github.com/conduit-lang/docmodel/internal/store/memstore"
)

func newMigrator(t *testing.T, st store.Store, decls ...*schema.ModelDeclaration) (*Migrator, *dynamic.Enricher) {
	t.Helper()
	registry := schema.NewRegistry()
	for _, decl := range decls {
		require.NoError(t, registry.Register(decl))
	}
	technical := st.Collection("technical")
	enricher := dynamic.New(technical, nil)
	return NewMigrator(cache.New(registry, st, nil), technical, WithEnricher(enricher)), enricher
}

func userV1() *schema.ModelDeclaration {
	return &schema.ModelDeclaration{
		Key:  "accounts_user",
		Name: "User",
		Fields: []schema.FieldDeclaration{
			{Name: "username", Type: "InputText"},
			{Name: "age", Type: "InputU32"},
			{Name: "nickname", Type: "InputText"},
		},
	}
}

func userV2() *schema.ModelDeclaration {
	return &schema.ModelDeclaration{
		Key:  "accounts_user",
		Name: "User",
		Fields: []schema.FieldDeclaration{
			{Name: "username", Type: "InputText"},
			{Name: "email", Type: "InputEmail", Default: "nobody@example.com"},
			{Name: "nickname", Type: "InputI64"},
			{Name: "team", Type: "SelectTextDyn"},
		},
	}
}

func TestMigrator_FirstRunRecordsState(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	m, _ := newMigrator(t, st, userV1())

	report, err := m.Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Models, 1)
	assert.Equal(t, []SchemaChange{{Type: ChangeAddModel, Model: "accounts_user"}}, report.Models[0].Changes)
	assert.Equal(t, "add_model_accounts_user", report.Name)

	state, err := m.Tracker().Load(ctx, "accounts_user")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "users", state.Collection)
	assert.Equal(t, map[string]string{
		"username":   "InputText",
		"age":        "InputU32",
		"nickname":   "InputText",
		"created_at": "HiddenDateTime",
		"updated_at": "HiddenDateTime",
	}, state.Fields)
}

func TestMigrator_RewritesStoredDocuments(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()

	m1, _ := newMigrator(t, st, userV1())
	_, err := m1.Run(ctx)
	require.NoError(t, err)

	users := st.Collection("users")
	id, err := users.InsertOne(ctx, store.Document{
		"username":   "jane",
		"age":        uint32(41),
		"nickname":   "jj",
		"created_at": nil,
		"updated_at": nil,
	})
	require.NoError(t, err)

	m2, enricher := newMigrator(t, st, userV2())

	plan, err := m2.Plan(ctx)
	require.NoError(t, err)
	assert.Len(t, plan, 4)

	report, err := m2.Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Models, 1)
	assert.Equal(t, 1, report.Models[0].Rewritten)

	doc, err := users.FindOne(ctx, store.ByID(id))
	require.NoError(t, err)
	assert.Equal(t, "jane", doc["username"])
	assert.Equal(t, "nobody@example.com", doc["email"])
	assert.NotContains(t, doc, "age")
	assert.Nil(t, doc["nickname"], "a type change resets the stored value")
	assert.Contains(t, doc, "team")

	options, err := enricher.Options(ctx, "users", "team", schema.ScalarText)
	require.NoError(t, err)
	assert.Empty(t, options)

	again, err := m2.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, again.Changes())
	assert.Equal(t, "no_changes", again.Name)
}

func TestMigrator_DropsUnregisteredModelState(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()

	m1, _ := newMigrator(t, st, userV1())
	_, err := m1.Run(ctx)
	require.NoError(t, err)

	m2, _ := newMigrator(t, st)
	report, err := m2.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"accounts_user"}, report.Dropped)
	assert.Equal(t, "drop_model_accounts_user", report.Name)

	state, err := m2.Tracker().Load(ctx, "accounts_user")
	require.NoError(t, err)
	assert.Nil(t, state)
}

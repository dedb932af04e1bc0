package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/docmodel/internal/store"
	"github.com/conduit-lang/docmodel/internal/store/memstore"
)

func TestTracker_RecordAndLoad(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(memstore.New().Collection("technical"))

	state, err := tracker.Load(ctx, "accounts_user")
	require.NoError(t, err)
	assert.Nil(t, state)

	want := userState(map[string]string{"username": "InputText", "age": "InputU32"})
	require.NoError(t, tracker.Record(ctx, want))

	got, err := tracker.Load(ctx, "accounts_user")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	want.Fields["email"] = "InputEmail"
	require.NoError(t, tracker.Record(ctx, want))

	all, err := tracker.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "InputEmail", all["accounts_user"].Fields["email"])
}

func TestTracker_LoadAllSkipsOtherDocuments(t *testing.T) {
	ctx := context.Background()
	coll := memstore.New().Collection("technical")
	tracker := NewTracker(coll)

	_, err := coll.InsertOne(ctx, store.Document{"collection": "events", "fields": map[string]interface{}{}})
	require.NoError(t, err)
	require.NoError(t, tracker.Record(ctx, userState(map[string]string{})))

	all, err := tracker.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Contains(t, all, "accounts_user")
}

func TestTracker_Remove(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(memstore.New().Collection("technical"))

	require.NoError(t, tracker.Record(ctx, userState(map[string]string{})))
	require.NoError(t, tracker.Remove(ctx, "accounts_user"))

	err := tracker.Remove(ctx, "accounts_user")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTracker_RejectsMalformedState(t *testing.T) {
	ctx := context.Background()
	coll := memstore.New().Collection("technical")

	_, err := coll.InsertOne(ctx, store.Document{"model_state": "accounts_user", "fields": "oops"})
	require.NoError(t, err)

	_, err = NewTracker(coll).Load(ctx, "accounts_user")
	assert.Error(t, err)
}

package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/docmodel/internal/store"
)

func setupTestRedis(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	s := NewWithClient(client, DefaultConfig().Prefix)
	t.Cleanup(func() {
		s.Close()
		mr.Close()
	})
	return s, mr
}

func TestNew(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s, err := New(Config{Addr: mr.Addr(), Prefix: "test:"})
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}

func TestNew_ConnectionError(t *testing.T) {
	_, err := New(Config{Addr: "localhost:99999"})
	assert.Error(t, err)
}

func TestCollection_CRUD(t *testing.T) {
	s, mr := setupTestRedis(t)
	ctx := context.Background()
	coll := s.Collection("users")

	joined := time.Date(1970, 2, 27, 0, 0, 0, 0, time.UTC)
	id, err := coll.InsertOne(ctx, store.Document{"email": "a@example.com", "age": int32(41), "joined": joined})
	require.NoError(t, err)

	assert.True(t, mr.Exists("docmodel:users"))

	doc, err := coll.FindOne(ctx, store.ByID(id))
	require.NoError(t, err)
	assert.Equal(t, int32(41), doc["age"])
	assert.True(t, joined.Equal(doc["joined"].(time.Time)))

	doc, err = coll.FindOne(ctx, store.Filter{"email": "a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, id, doc[store.IDField])

	n, err := coll.ReplaceOne(ctx, store.ByID(id), store.Document{"email": "b@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := coll.Count(ctx, store.Filter{"email": "b@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = coll.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	n, err = coll.DeleteOne(ctx, store.ByID(id))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = coll.FindOne(ctx, store.ByID(id))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCollection_DuplicateID(t *testing.T) {
	s, _ := setupTestRedis(t)
	ctx := context.Background()
	coll := s.Collection("users")
	id := store.NewObjectID()

	_, err := coll.InsertOne(ctx, store.Document{store.IDField: id})
	require.NoError(t, err)
	_, err = coll.InsertOne(ctx, store.Document{store.IDField: id})
	assert.ErrorIs(t, err, store.ErrDuplicateID)
}

func TestCollection_FindSorted(t *testing.T) {
	s, _ := setupTestRedis(t)
	ctx := context.Background()
	coll := s.Collection("items")

	for _, n := range []int64{3, 1, 2} {
		_, err := coll.InsertOne(ctx, store.Document{"n": n, "kind": "x"})
		require.NoError(t, err)
	}

	docs, err := coll.Find(ctx, store.Filter{"kind": "x"}, &store.FindOptions{
		Sort:  []store.SortField{{Field: "n"}},
		Limit: 2,
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, int64(1), docs[0]["n"])
	assert.Equal(t, int64(2), docs[1]["n"])
}

func TestCollection_ServerError(t *testing.T) {
	s, mr := setupTestRedis(t)
	mr.Close()

	_, err := s.Collection("users").FindOne(context.Background(), store.Filter{"email": "x"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrNotFound)
}

package kv_test

import (
	"context"
	"sort"
	"testing"

	"experts-geo/core/kv"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	srv := miniredis.RunT(t)
	conn := kv.NewRedisConnector(kv.Config{Addr: srv.Addr()})
	ctx := context.Background()

	store, err := conn.Connect(ctx)
	require.NoError(t, err)
	defer store.Close()

	t.Run("HSet and HGetAll", func(t *testing.T) {
		err := store.HSet(ctx, "expert:1", map[string]string{"name": "Alice Smith", "url": "https://experts.ucdavis.edu/expert/1"})
		require.NoError(t, err)

		got, err := store.HGetAll(ctx, "expert:1")
		require.NoError(t, err)
		assert.Equal(t, "Alice Smith", got["name"])
		assert.Len(t, got, 2)
	})

	t.Run("HGetAll missing key", func(t *testing.T) {
		got, err := store.HGetAll(ctx, "expert:missing")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Keys", func(t *testing.T) {
		require.NoError(t, store.HSet(ctx, "expert:2", map[string]string{"name": "Bob"}))
		require.NoError(t, store.HSet(ctx, "work:1", map[string]string{"title": "Delta"}))

		keys, err := store.Keys(ctx, "expert:*")
		require.NoError(t, err)
		sort.Strings(keys)
		assert.Equal(t, []string{"expert:1", "expert:2"}, keys)
	})

	t.Run("Replace drops stale fields and keys", func(t *testing.T) {
		require.NoError(t, store.HSet(ctx, "place:Davis", map[string]string{"name": "Davis", "country": "USA"}))
		require.NoError(t, store.HSet(ctx, "place:Davis:entry:0", map[string]string{"title": "Soil"}))
		require.NoError(t, store.HSet(ctx, "place:Davis:entry:1", map[string]string{"title": "Water"}))

		err := store.Replace(ctx, "place:Davis", map[string]string{"name": "Davis"}, "place:Davis:entry:1")
		require.NoError(t, err)

		got, err := store.HGetAll(ctx, "place:Davis")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"name": "Davis"}, got)
		assert.False(t, srv.Exists("place:Davis:entry:1"))
		assert.True(t, srv.Exists("place:Davis:entry:0"))
	})

	t.Run("RPush and LRange", func(t *testing.T) {
		require.NoError(t, store.RPush(ctx, "expert:sessions", "s1", "s2"))
		require.NoError(t, store.RPush(ctx, "expert:sessions", "s3"))

		all, err := store.LRange(ctx, "expert:sessions", 0, -1)
		require.NoError(t, err)
		assert.Equal(t, []string{"s1", "s2", "s3"}, all)

		last, err := store.LRange(ctx, "expert:sessions", -1, -1)
		require.NoError(t, err)
		assert.Equal(t, []string{"s3"}, last)
	})
}

func TestRedisConnector_Unreachable(t *testing.T) {
	conn := kv.NewRedisConnector(kv.Config{Addr: "127.0.0.1:1", TimeoutSeconds: 1})
	store, err := conn.Connect(context.Background())
	assert.Error(t, err)
	assert.Nil(t, store)
}

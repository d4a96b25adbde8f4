package storage_test

import (
	"context"
	"testing"
	"time"

	"dreambot/domain"
	"dreambot/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*storage.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })
	return storage.NewRedisStoreFromClient(client), server
}

func TestRedisStore_Sessions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, server := newRedisStore(t)

	_, err := store.Load(ctx, "1234")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ok, err := store.Insert(ctx, "1234", []byte(`{"v":1}`))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Insert(ctx, "1234", []byte(`{"v":2}`))
	require.NoError(t, err)
	assert.False(t, ok, "insert must not overwrite an existing session")

	require.NoError(t, store.Save(ctx, "1234", []byte(`{"v":3}`)))
	blob, err := store.Load(ctx, "1234")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":3}`, string(blob))

	locked, err := store.Lock(ctx, "1234", time.Second)
	require.NoError(t, err)
	require.True(t, locked)

	require.NoError(t, store.Remove(ctx, "1234"))
	assert.False(t, server.Exists("game:session:1234"))
	assert.False(t, server.Exists("game:session:1234:lock"))
}

func TestRedisStore_Lock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, server := newRedisStore(t)

	ok, err := store.Lock(ctx, "0001", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Lock(ctx, "0001", time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "second lock must fail while the marker exists")

	server.FastForward(2 * time.Second)
	ok, err = store.Lock(ctx, "0001", time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "expired marker must not block forever")

	require.NoError(t, store.Unlock(ctx, "0001"))
	ok, err = store.Lock(ctx, "0001", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStore_OpenLobbies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newRedisStore(t)

	codes, err := store.ListOpen(ctx)
	require.NoError(t, err)
	assert.Empty(t, codes)

	require.NoError(t, store.AddOpen(ctx, "5555"))
	require.NoError(t, store.AddOpen(ctx, "1111"))
	require.NoError(t, store.AddOpen(ctx, "5555"))

	codes, err = store.ListOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1111", "5555"}, codes)

	require.NoError(t, store.RemoveOpen(ctx, "5555"))
	codes, err = store.ListOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1111"}, codes)
}

func TestRedisStore_UserPointers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, server := newRedisStore(t)

	_, err := store.PlayerSession(ctx, 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	claimed, err := store.ClaimPlayerSession(ctx, 7, "4321")
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = store.ClaimPlayerSession(ctx, 7, "9999")
	require.NoError(t, err)
	assert.False(t, claimed, "a second session must not take over the pointer")

	code, err := store.PlayerSession(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "4321", code)

	require.NoError(t, store.ClearPlayerSession(ctx, 7))
	_, err = store.PlayerSession(ctx, 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.SetJoinDraft(ctx, 7, "4321"))
	draft, err := store.JoinDraft(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "4321", draft)

	server.FastForward(11 * time.Minute)
	_, err = store.JoinDraft(ctx, 7)
	assert.ErrorIs(t, err, domain.ErrNotFound, "join drafts expire")

	require.NoError(t, store.SetJoinDraft(ctx, 7, ""))
	require.NoError(t, store.ClearJoinDraft(ctx, 7))
	_, err = store.JoinDraft(ctx, 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedisStore_Unreachable(t *testing.T) {
	t.Parallel()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()
	store := storage.NewRedisStoreFromClient(client)
	server.Close()

	_, err := store.Load(context.Background(), "1234")
	assert.ErrorIs(t, err, domain.CacheError)
}

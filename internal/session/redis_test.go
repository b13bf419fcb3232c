package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, ttl), mr
}

func TestRedisStore_CreateAndLookup(t *testing.T) {
	store, mr := setupTestRedis(t, time.Hour)
	ctx := context.Background()

	id, err := store.Create(ctx, "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	stored, err := mr.Get(sessionKey(id))
	require.NoError(t, err)
	assert.Equal(t, "user-1", stored)
	assert.Equal(t, time.Hour, mr.TTL(sessionKey(id)))

	userID, err := store.Lookup(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestRedisStore_LookupSlidesExpiry(t *testing.T) {
	store, mr := setupTestRedis(t, time.Hour)
	ctx := context.Background()

	id, err := store.Create(ctx, "user-1")
	require.NoError(t, err)
	mr.FastForward(50 * time.Minute)

	_, err = store.Lookup(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL(sessionKey(id)))

	mr.FastForward(61 * time.Minute)
	_, err = store.Lookup(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore_Delete(t *testing.T) {
	store, mr := setupTestRedis(t, 0)
	ctx := context.Background()

	id, err := store.Create(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, mr.TTL(sessionKey(id)))

	require.NoError(t, store.Delete(ctx, id))
	assert.False(t, mr.Exists(sessionKey(id)))

	_, err = store.Lookup(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.NoError(t, store.Delete(ctx, "never-existed"))
}

func TestRedisStore_ServerDown(t *testing.T) {
	store, mr := setupTestRedis(t, time.Hour)
	mr.Close()

	_, err := store.Lookup(context.Background(), "any")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
	assert.Error(t, store.Ping(context.Background()))
}

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a test Redis client using miniredis
func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := &Client{
		Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
	}

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return client, mr
}

func TestClient_SetNX(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	ok, err := client.SetNX(ctx, "lock", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.SetNX(ctx, "lock", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	val, _ := mr.Get("lock")
	assert.Equal(t, "a", val)
}

func TestClient_IncrWithTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	n, err := client.IncrWithTTL(ctx, "counter", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = client.IncrWithTTL(ctx, "counter", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	assert.Equal(t, time.Hour, mr.TTL("counter"))

	mr.FastForward(2 * time.Hour)
	got, err := client.GetInt(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)
}

func TestClient_GetMultiInt(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	_, _ = client.IncrWithTTL(ctx, "a", time.Hour)
	_, _ = client.IncrWithTTL(ctx, "a", time.Hour)
	_, _ = client.IncrWithTTL(ctx, "c", time.Hour)

	got, err := client.GetMultiInt(ctx, "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 0, 1}, got)

	empty, err := client.GetMultiInt(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEventLog(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	events := NewEventLog(client)

	seen, err := events.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, events.Mark(ctx, "evt_1"))
	require.NoError(t, events.Mark(ctx, "evt_1"))

	seen, err = events.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)
	assert.Equal(t, EventTTL, mr.TTL("stripe:event:evt_1"))
}

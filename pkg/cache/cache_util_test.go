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

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return FromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func TestCacheNamespacesKeys(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "otp", "a@b.c:login", "123456", time.Minute))
	assert.True(t, mr.Exists("otp:a@b.c:login"))

	v, err := c.Get(ctx, "otp", "a@b.c:login")
	require.NoError(t, err)
	assert.Equal(t, "123456", v)

	ok, err := c.Exists(ctx, "otp", "a@b.c:login")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "otp", "a@b.c:login"))
	_, err = c.Get(ctx, "otp", "a@b.c:login")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestIncrWithExpireSetsWindowOnFirstHit(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	n, err := c.IncrWithExpire(ctx, "rate", "k", 30*time.Second)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, 30*time.Second, mr.TTL("rate:k"))

	mr.FastForward(10 * time.Second)
	n, err = c.IncrWithExpire(ctx, "rate", "k", 30*time.Second)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, 20*time.Second, mr.TTL("rate:k"))
}

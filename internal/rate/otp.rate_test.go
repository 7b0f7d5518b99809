package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"spark-service/pkg/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T, max int, cooldown time.Duration) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := cache.FromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	return NewLimiter(c, 10*time.Minute, max, cooldown), mr
}

func TestCanRequestEnforcesCooldown(t *testing.T) {
	l, mr := newLimiter(t, 5, 45*time.Second)
	ctx := context.Background()

	require.NoError(t, l.CanRequest(ctx, "a@b.c", "login"))

	err := l.CanRequest(ctx, "A@B.C", "login")
	require.ErrorIs(t, err, ErrTooSoon)
	var le *LimitError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, 45*time.Second, le.RetryAfter)

	// other purposes are independent
	assert.NoError(t, l.CanRequest(ctx, "a@b.c", "email_verification"))

	mr.FastForward(46 * time.Second)
	assert.NoError(t, l.CanRequest(ctx, "a@b.c", "login"))
}

func TestCanRequestBlocksAfterMax(t *testing.T) {
	l, mr := newLimiter(t, 2, 0)
	ctx := context.Background()

	require.NoError(t, l.CanRequest(ctx, "a@b.c", "login"))
	require.NoError(t, l.CanRequest(ctx, "a@b.c", "login"))

	err := l.CanRequest(ctx, "a@b.c", "login")
	require.ErrorIs(t, err, ErrBlocked)
	assert.Equal(t, 30*time.Minute, mr.TTL("otp_rate:block:a@b.c:login"))

	// still blocked after the counting window closes
	mr.FastForward(11 * time.Minute)
	assert.ErrorIs(t, l.CanRequest(ctx, "a@b.c", "login"), ErrBlocked)

	mr.FastForward(20 * time.Minute)
	assert.NoError(t, l.CanRequest(ctx, "a@b.c", "login"))
}

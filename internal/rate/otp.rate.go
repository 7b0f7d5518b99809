package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"spark-service/pkg/cache"
)

const namespace = "otp_rate"

var (
	ErrTooSoon = errors.New("please wait before requesting another OTP")
	ErrBlocked = errors.New("too many OTP requests; try again later")
)

// LimitError carries how long the caller has to wait.
type LimitError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s (retry in %d seconds)", e.Err.Error(), int(e.RetryAfter.Seconds()))
}

func (e *LimitError) Unwrap() error { return e.Err }

type Limiter struct {
	cache       *cache.Cache
	window      time.Duration
	maxInWindow int
	cooldown    time.Duration
}

func NewLimiter(cache *cache.Cache, window time.Duration, max int, cooldown time.Duration) *Limiter {
	return &Limiter{cache: cache, window: window, maxInWindow: max, cooldown: cooldown}
}

// CanRequest enforces a cooldown between requests and a cap per window.
// Exceeding the cap blocks the subject for three windows.
func (l *Limiter) CanRequest(ctx context.Context, subject, purpose string) error {
	subject = strings.ToLower(subject)
	blockKey := fmt.Sprintf("block:%s:%s", subject, purpose)
	lastKey := fmt.Sprintf("last:%s:%s", subject, purpose)
	countKey := fmt.Sprintf("count:%s:%s", subject, purpose)

	if ttl, _ := l.cache.GetTTL(ctx, namespace, blockKey); ttl > 0 {
		return &LimitError{Err: ErrBlocked, RetryAfter: ttl}
	}

	if ttl, _ := l.cache.GetTTL(ctx, namespace, lastKey); ttl > 0 {
		return &LimitError{Err: ErrTooSoon, RetryAfter: ttl}
	}

	cnt, err := l.cache.IncrWithExpire(ctx, namespace, countKey, l.window)
	if err != nil {
		return err
	}

	if int(cnt) > l.maxInWindow {
		block := l.window * 3
		_ = l.cache.Set(ctx, namespace, blockKey, "1", block)
		return &LimitError{Err: ErrBlocked, RetryAfter: block}
	}

	if l.cooldown > 0 {
		_ = l.cache.Set(ctx, namespace, lastKey, "1", l.cooldown)
	}
	return nil
}

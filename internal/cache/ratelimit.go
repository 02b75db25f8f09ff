package cache

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is a fixed-window counter keyed by caller.
type RateLimiter struct {
	cache  Cache
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter allows limit hits per window. A limit of 0 disables it.
func NewRateLimiter(c Cache, prefix string, limit int, window time.Duration) *RateLimiter {
	if window < time.Second {
		window = time.Second
	}
	return &RateLimiter{cache: c, prefix: prefix, limit: limit, window: window, now: time.Now}
}

// Allow records a hit for key and reports whether it is within the limit.
// Cache errors fail open.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil || l.limit <= 0 {
		return true, nil
	}
	bucket := l.now().Unix() / int64(l.window.Seconds())
	n, err := l.cache.Incr(ctx, fmt.Sprintf("%s:%s:%d", l.prefix, key, bucket), l.window)
	if err != nil {
		return true, err
	}
	return n <= int64(l.limit), nil
}

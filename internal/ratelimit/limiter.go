// ABOUTME: Thread-safe per-key token bucket limiter with idle expiry.
// ABOUTME: Used by the HTTP layer to throttle login attempts per client IP.

package ratelimit

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// Limiter hands out one token bucket per key. Buckets idle for longer than
// ttl are forgotten; at most maxSize buckets are kept, least recently used
// first out.
type Limiter struct {
	mu      sync.Mutex
	buckets *expirable.LRU[string, *rate.Limiter]
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// New creates a limiter allowing limit events per second with the given
// burst for every key.
func New(limit rate.Limit, burst int, ttl time.Duration, maxSize int) *Limiter {
	return &Limiter{
		buckets: expirable.NewLRU[string, *rate.Limiter](maxSize, nil, ttl),
		limit:   limit,
		burst:   burst,
		now:     time.Now,
	}
}

// PerMinute converts a per-minute budget to a rate.Limit.
func PerMinute(n int) rate.Limit {
	if n <= 0 {
		return rate.Inf
	}
	return rate.Every(time.Minute / time.Duration(n))
}

// Allow reports whether an event for key may happen now and consumes a
// token if so.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	b, ok := l.buckets.Get(key)
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
	}
	// Re-adding restarts the idle timer.
	l.buckets.Add(key, b)
	l.mu.Unlock()

	return b.AllowN(l.now(), 1)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	return l.buckets.Len()
}

// Close forgets every bucket. It is safe to call multiple times.
func (l *Limiter) Close() {
	l.buckets.Purge()
}

// ABOUTME: Tests for the per-key login limiter.
// ABOUTME: Validates burst handling, key isolation, idle expiry, eviction and concurrency safety.

package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

// fakeClock lets tests move time without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter(limit rate.Limit, burst int, ttl time.Duration, maxSize int) (*Limiter, *fakeClock) {
	l := New(limit, burst, ttl, maxSize)
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l.now = clock.now
	return l, clock
}

func TestLimiter_Burst(t *testing.T) {
	l, _ := newTestLimiter(PerMinute(1), 3, time.Hour, 100)
	defer l.Close()

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(PerMinute(1), 1, time.Hour, 100)
	defer l.Close()

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
}

func TestLimiter_Refills(t *testing.T) {
	l, clock := newTestLimiter(PerMinute(6), 1, time.Hour, 100)
	defer l.Close()

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	clock.advance(10 * time.Second)
	assert.True(t, l.Allow("a"))
}

func TestLimiter_PerMinuteZeroIsUnlimited(t *testing.T) {
	assert.Equal(t, rate.Inf, PerMinute(0))
}

func TestLimiter_DropsIdleBuckets(t *testing.T) {
	l, _ := newTestLimiter(PerMinute(1), 1, 50*time.Millisecond, 100)
	defer l.Close()

	assert.True(t, l.Allow("old"))
	assert.False(t, l.Allow("old"))

	assert.Eventually(t, func() bool { return l.Len() == 0 }, 2*time.Second, 10*time.Millisecond)

	// The dropped key starts with a full bucket again.
	assert.True(t, l.Allow("old"))
}

func TestLimiter_CloseForgetsBuckets(t *testing.T) {
	l, _ := newTestLimiter(PerMinute(1), 1, time.Hour, 100)

	l.Allow("a")
	l.Close()
	assert.Equal(t, 0, l.Len())
}

func TestLimiter_EvictsLeastRecentlyUsed(t *testing.T) {
	l, _ := newTestLimiter(PerMinute(1), 1, time.Hour, 2)
	defer l.Close()

	l.Allow("a")
	l.Allow("b")
	l.Allow("a") // a is now most recent
	l.Allow("c") // evicts b

	assert.Equal(t, 2, l.Len())
	assert.True(t, l.Allow("b"), "b was evicted and gets a fresh bucket")
}

func TestLimiter_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(PerMinute(1), 5, time.Hour, 1000)
	defer l.Close()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if l.Allow("shared") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
			l.Allow(fmt.Sprintf("key-%d", i))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, allowed)
}

func TestLimiter_CloseTwice(t *testing.T) {
	l := New(PerMinute(1), 1, time.Minute, 10)
	l.Close()
	l.Close()
}

package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(limit int, window time.Duration) (*Limiter, *time.Time) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(limit, window)
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestAllowExhaustsAndRefills(t *testing.T) {
	l, clock := newTestLimiter(2, 10*time.Second)

	ok, _ := l.Allow("a")
	assert.True(t, ok)
	ok, _ = l.Allow("a")
	assert.True(t, ok)
	ok, wait := l.Allow("a")
	assert.False(t, ok)
	assert.InDelta(t, float64(5*time.Second), float64(wait), float64(time.Millisecond))

	ok, _ = l.Allow("b")
	assert.True(t, ok, "keys are independent")

	*clock = clock.Add(6 * time.Second)
	ok, _ = l.Allow("a")
	assert.True(t, ok)
}

func TestEvictRemovesIdleKeys(t *testing.T) {
	l, clock := newTestLimiter(1, time.Second)
	l.Allow("a")
	*clock = clock.Add(time.Second)
	l.Allow("b")
	*clock = clock.Add(1500 * time.Millisecond)

	l.evict()
	assert.Equal(t, 1, l.Len())
}

package httpmiddleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(capacity, perMinute int) (*RateLimiter, *time.Time) {
	l := NewRateLimiter(capacity, perMinute)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestAllowExhaustsBurst(t *testing.T) {
	l, _ := newTestLimiter(3, 60)

	for i := 0; i < 3; i++ {
		assert.True(t, l.allow("10.0.0.1"), "request %d within capacity", i)
	}
	assert.False(t, l.allow("10.0.0.1"))
}

func TestAllowRefillsOverTime(t *testing.T) {
	l, now := newTestLimiter(2, 60)

	assert.True(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))

	// 60/min refill means one token per second.
	*now = now.Add(2 * time.Second)
	assert.True(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
}

func TestAllowIsPerKey(t *testing.T) {
	l, _ := newTestLimiter(1, 60)

	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.2"))
}

func TestPruneDropsIdleBuckets(t *testing.T) {
	l, now := newTestLimiter(1, 60)

	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))

	*now = now.Add(staleAfter + time.Minute)
	assert.True(t, l.allow("10.0.0.2"))
	assert.Len(t, l.state, 1, "idle bucket should have been evicted")
	assert.True(t, l.allow("10.0.0.1"), "evicted key starts with a full bucket")
}

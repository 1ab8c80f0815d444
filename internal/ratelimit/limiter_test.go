package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *fakeClock) {
	t.Helper()
	l, err := New(cfg)
	require.NoError(t, err)
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	l.now = clock.Now
	return l, clock
}

func TestLimiter_BurstThenThrottle(t *testing.T) {
	l, clock := newTestLimiter(t, Config{Enabled: true, TokensPerSecond: 0.5, BurstSize: 2})

	for range 2 {
		ok, _ := l.Allow("alice")
		require.True(t, ok)
	}

	ok, retryAfter := l.Allow("alice")
	assert.False(t, ok)
	assert.Equal(t, 2*time.Second, retryAfter)

	// Other senders have their own bucket.
	ok, _ = l.Allow("bob")
	assert.True(t, ok)

	clock.Advance(2 * time.Second)
	ok, _ = l.Allow("alice")
	assert.True(t, ok)
}

func TestLimiter_DeniedCallsDoNotConsume(t *testing.T) {
	l, clock := newTestLimiter(t, Config{Enabled: true, TokensPerSecond: 1, BurstSize: 1})

	ok, _ := l.Allow("u")
	require.True(t, ok)
	for range 5 {
		ok, _ = l.Allow("u")
		require.False(t, ok)
	}

	clock.Advance(time.Second)
	ok, _ = l.Allow("u")
	assert.True(t, ok)
}

func TestLimiter_MinimumRetryAfter(t *testing.T) {
	l, _ := newTestLimiter(t, Config{Enabled: true, TokensPerSecond: 10, BurstSize: 1})

	ok, _ := l.Allow("u")
	require.True(t, ok)
	ok, retryAfter := l.Allow("u")
	require.False(t, ok)
	assert.Equal(t, time.Second, retryAfter)
}

func TestLimiter_Disabled(t *testing.T) {
	l, err := New(Config{Enabled: false})
	require.NoError(t, err)
	for range 100 {
		ok, _ := l.Allow("u")
		require.True(t, ok)
	}
	assert.Zero(t, l.Len())

	var nilLimiter *Limiter
	ok, _ := nilLimiter.Allow("u")
	assert.True(t, ok)
}

func TestLimiter_InvalidConfig(t *testing.T) {
	_, err := New(Config{Enabled: true, TokensPerSecond: 0, BurstSize: 1})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{Enabled: true, TokensPerSecond: 1, BurstSize: 0})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLimiter_CleanupStale(t *testing.T) {
	l, clock := newTestLimiter(t, DefaultConfig())

	l.Allow("old")
	clock.Advance(2 * time.Hour)
	l.Allow("fresh")

	removed := l.CleanupStale(clock.Now().Add(-time.Hour))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, l.Len())
}

func TestLimiter_StartStopIdempotent(t *testing.T) {
	l, err := New(DefaultConfig())
	require.NoError(t, err)

	l.Start()
	l.Start()
	l.Stop()
	l.Stop()
}

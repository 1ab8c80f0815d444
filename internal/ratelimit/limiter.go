// Package ratelimit throttles inbound requests per sender with token buckets.
// Limiters are created on first use and removed by a background sweep once
// a sender has been idle for longer than the configured TTL.
package ratelimit

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Defaults for per-sender limiting.
const (
	DefaultTokensPerSecond = 0.5
	DefaultBurstSize       = 5
	DefaultIdleTTL         = time.Hour
	CleanupInterval        = 10 * time.Minute
)

// ErrInvalidConfig is returned for non-positive rates or bursts.
var ErrInvalidConfig = errors.New("invalid rate limit config")

// Config controls per-sender token buckets. A disabled limiter allows
// everything.
type Config struct {
	Enabled         bool          `json:"enabled"           yaml:"enabled"`
	TokensPerSecond float64       `json:"tokens_per_second" yaml:"tokens_per_second"`
	BurstSize       int           `json:"burst_size"        yaml:"burst_size"`
	IdleTTL         time.Duration `json:"idle_ttl"          yaml:"idle_ttl"`
}

// DefaultConfig returns the production limits.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		TokensPerSecond: DefaultTokensPerSecond,
		BurstSize:       DefaultBurstSize,
		IdleTTL:         DefaultIdleTTL,
	}
}

// Validate checks the bucket parameters of an enabled config.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.TokensPerSecond <= 0 {
		return fmt.Errorf("%w: tokens_per_second must be positive, got %f", ErrInvalidConfig, c.TokensPerSecond)
	}
	if c.BurstSize <= 0 {
		return fmt.Errorf("%w: burst_size must be positive, got %d", ErrInvalidConfig, c.BurstSize)
	}
	return nil
}

// timedLimiter pairs a bucket with its last access time in Unix nanoseconds.
type timedLimiter struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64
}

// Limiter holds one token bucket per sender.
type Limiter struct {
	cfg    Config
	now    func() time.Time
	logger *slog.Logger

	mu       sync.RWMutex
	limiters map[string]*timedLimiter

	cleanupMu     sync.Mutex
	cleanupTicker *time.Ticker
	cleanupStop   chan struct{}
	cleanupDone   sync.WaitGroup
}

// New creates a limiter. It returns an error for an invalid enabled config.
func New(cfg Config) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	return &Limiter{
		cfg:      cfg,
		now:      time.Now,
		limiters: make(map[string]*timedLimiter),
		logger:   slog.Default().With("component", "ratelimit"),
	}, nil
}

// Allow consumes a token for key. When the bucket is empty it returns false
// and the wait until the next token, rounded up to whole seconds. Denied
// calls do not consume capacity.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	if l == nil || !l.cfg.Enabled {
		return true, 0
	}

	lim := l.getOrCreate(key)
	now := l.now()
	if lim.AllowN(now, 1) {
		return true, 0
	}

	reservation := lim.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	reservation.CancelAt(now)

	retryAfter := time.Duration(math.Ceil(delay.Seconds())) * time.Second
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	l.logger.Debug("sender throttled", "sender", key, "retry_after", retryAfter)
	return false, retryAfter
}

// getOrCreate uses double-checked locking so the common path only takes the
// read lock.
func (l *Limiter) getOrCreate(key string) *rate.Limiter {
	now := l.now().UnixNano()

	l.mu.RLock()
	if tl, ok := l.limiters[key]; ok {
		// Touch under RLock so CleanupStale cannot delete before the update.
		tl.lastUsed.Store(now)
		lim := tl.limiter
		l.mu.RUnlock()
		return lim
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if tl, ok := l.limiters[key]; ok {
		tl.lastUsed.Store(now)
		return tl.limiter
	}
	tl := &timedLimiter{limiter: rate.NewLimiter(rate.Limit(l.cfg.TokensPerSecond), l.cfg.BurstSize)}
	tl.lastUsed.Store(now)
	l.limiters[key] = tl
	return tl.limiter
}

// CleanupStale removes limiters not used since before.
func (l *Limiter) CleanupStale(before time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := before.UnixNano()
	removed := 0
	for key, tl := range l.limiters {
		if tl.lastUsed.Load() < cutoff {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked senders.
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.limiters)
}

// Start launches the background sweep. It is idempotent.
func (l *Limiter) Start() {
	l.cleanupMu.Lock()
	defer l.cleanupMu.Unlock()

	if l.cleanupTicker != nil {
		return
	}
	l.cleanupStop = make(chan struct{})
	l.cleanupTicker = time.NewTicker(CleanupInterval)

	l.cleanupDone.Add(1)
	go l.cleanupLoop(l.cleanupTicker, l.cleanupStop)
}

// Stop terminates the background sweep and waits for it. It is idempotent.
func (l *Limiter) Stop() {
	l.cleanupMu.Lock()
	defer l.cleanupMu.Unlock()

	if l.cleanupTicker == nil {
		return
	}
	close(l.cleanupStop)
	l.cleanupTicker.Stop()
	l.cleanupDone.Wait()
	l.cleanupTicker = nil
}

func (l *Limiter) cleanupLoop(ticker *time.Ticker, stop <-chan struct{}) {
	defer l.cleanupDone.Done()
	for {
		select {
		case <-ticker.C:
			if n := l.CleanupStale(l.now().Add(-l.cfg.IdleTTL)); n > 0 {
				l.logger.Debug("removed idle sender limiters", "count", n)
			}
		case <-stop:
			return
		}
	}
}

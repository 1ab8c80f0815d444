// Package retry wraps generation calls in per-class retry policies. Every
// failure is classified (connection, rate limit, status, unexpected) and the
// class's policy decides whether another attempt is made and how long to
// wait before it.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahrav/go-mentor/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-mentor/internal/llm/errors"
)

// Policy bounds retries for one class of failure.
type Policy struct {
	// MaxAttempts counts the first call; 1 disables retries.
	MaxAttempts int
	Schedule    Schedule
	// Retryable optionally narrows which errors of the class are retried.
	Retryable func(error) bool
}

func (p Policy) allows(attempt int, err error) bool {
	if attempt >= p.MaxAttempts {
		return false
	}
	return p.Retryable == nil || p.Retryable(err)
}

// ClassPolicies maps failure classes onto policies. Classes without an entry
// are never retried.
type ClassPolicies map[llmerrors.Class]Policy

// PoliciesFromConfig builds the class policies from configuration.
func PoliciesFromConfig(cfg configuration.RetryConfig) ClassPolicies {
	build := func(c configuration.ClassRetryConfig) Policy {
		return Policy{MaxAttempts: c.MaxAttempts, Schedule: ScheduleFromConfig(c)}
	}
	return ClassPolicies{
		llmerrors.ClassConnection: build(cfg.Connection),
		llmerrors.ClassRateLimit:  build(cfg.RateLimit),
		llmerrors.ClassStatus:     build(cfg.Status),
		llmerrors.ClassUnexpected: build(cfg.Unexpected),
	}
}

// Retrier executes calls under a set of class policies.
type Retrier struct {
	policies ClassPolicies
	classify func(error) llmerrors.Class
	sleep    func(context.Context, time.Duration) error
	logger   *slog.Logger
	stats    *retryStats
}

// Option customizes a Retrier.
type Option func(*Retrier)

// WithSleep replaces the wait between attempts.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(r *Retrier) { r.sleep = sleep }
}

// WithClassifier replaces the error classifier.
func WithClassifier(classify func(error) llmerrors.Class) Option {
	return func(r *Retrier) { r.classify = classify }
}

// WithLogger sets the logger used for retry decisions.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retrier) { r.logger = logger }
}

// NewRetrier creates a retrier over the given policies.
func NewRetrier(policies ClassPolicies, opts ...Option) *Retrier {
	r := &Retrier{
		policies: policies,
		classify: llmerrors.Classify,
		sleep:    sleepContext,
		logger:   slog.Default().With("component", "retry"),
		stats:    &retryStats{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do runs fn until it succeeds or the policy for its latest failure class is
// exhausted. It returns the result and the number of attempts made.
func Do[T any](ctx context.Context, r *Retrier, fn func(context.Context) (T, error)) (T, int, error) {
	var result T
	attempts, err := r.run(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err == nil {
			result = v
		}
		return err
	})
	return result, attempts, err
}

func (r *Retrier) run(ctx context.Context, fn func(context.Context) error) (int, error) {
	for attempt := 1; ; attempt++ {
		r.stats.totalAttempts.Add(1)
		err := fn(ctx)
		if err == nil {
			if attempt == 1 {
				r.stats.successfulFirstAttempts.Add(1)
			} else {
				r.stats.successfulRetries.Add(1)
			}
			return attempt, nil
		}

		class := r.classify(err)
		policy, ok := r.policies[class]
		if !ok || !policy.allows(attempt, err) {
			r.stats.failedRetries.Add(1)
			r.logTerminal(class, attempt, err)
			if attempt > 1 {
				return attempt, fmt.Errorf("%w after %d attempts: %w", llmerrors.ErrMaxRetriesExceeded, attempt, err)
			}
			return attempt, err
		}

		delay := policy.Schedule.Delay(attempt)
		if after := retryAfter(err); after > delay {
			delay = after
		}
		r.stats.recordBackoff(delay)
		r.logger.Warn("retrying generation call",
			"attempt", attempt,
			"class", class,
			"delay", delay,
			"error", err)

		if err := r.sleep(ctx, delay); err != nil {
			r.stats.failedRetries.Add(1)
			return attempt, fmt.Errorf("retry wait interrupted: %w", err)
		}
	}
}

func (r *Retrier) logTerminal(class llmerrors.Class, attempt int, err error) {
	if class == llmerrors.ClassUnexpected {
		r.logger.Error("unexpected generation failure", "attempt", attempt, "error", err)
		return
	}
	r.logger.Warn("generation call failed", "attempt", attempt, "class", class, "error", err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package retry

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/ahrav/go-mentor/internal/llm/configuration"
)

// Schedule yields the delay before the next attempt given how many attempts
// have already failed.
type Schedule interface {
	Delay(failures int) time.Duration
}

// Linear waits Step, 2·Step, 3·Step, ...
type Linear struct {
	Step time.Duration
}

// Delay implements Schedule.
func (l Linear) Delay(failures int) time.Duration {
	if failures <= 0 {
		return 0
	}
	return time.Duration(failures) * l.Step
}

// Exponential grows the delay by Multiplier per failure up to Max. With
// Jitter the delay is drawn uniformly from [0, computed] (full jitter).
type Exponential struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     bool
}

// Delay implements Schedule.
func (e Exponential) Delay(failures int) time.Duration {
	if failures <= 0 {
		return 0
	}
	backoff := e.Initial
	if backoff <= 0 {
		backoff = time.Millisecond
	}
	multiplier := max(e.Multiplier, 1.0)
	for i := 1; i < failures; i++ {
		backoff = time.Duration(float64(backoff) * multiplier)
		if e.Max > 0 && backoff > e.Max {
			backoff = e.Max
			break
		}
	}
	if e.Jitter {
		jitterMs := rand.Int64N(backoff.Milliseconds() + 1) // #nosec G404 -- non-cryptographic jitter is appropriate here
		return time.Duration(jitterMs) * time.Millisecond
	}
	return backoff
}

// ScheduleFromConfig builds the schedule a class policy describes.
func ScheduleFromConfig(cfg configuration.ClassRetryConfig) Schedule {
	if cfg.Strategy == configuration.BackoffExponential {
		return Exponential{
			Initial:    cfg.InitialInterval,
			Max:        cfg.MaxInterval,
			Multiplier: cfg.Multiplier,
			Jitter:     cfg.UseJitter,
		}
	}
	return Linear{Step: cfg.InitialInterval}
}

// AfterProvider is implemented by errors that carry a server-requested wait.
type AfterProvider interface {
	GetRetryAfter() time.Duration
}

// retryAfter returns the wait requested by err, if any.
func retryAfter(err error) time.Duration {
	var p AfterProvider
	if errors.As(err, &p) {
		return p.GetRetryAfter()
	}
	return 0
}

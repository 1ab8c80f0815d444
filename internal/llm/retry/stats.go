package retry

import (
	"sync/atomic"
	"time"
)

// retryStats provides thread-safe retry metrics using atomic operations.
type retryStats struct {
	totalAttempts           atomic.Int64
	successfulRetries       atomic.Int64
	failedRetries           atomic.Int64
	successfulFirstAttempts atomic.Int64
	maxBackoff              atomic.Int64 // nanoseconds
}

// Stats is a snapshot of retry activity.
type Stats struct {
	TotalAttempts           int64         `json:"total_attempts"`
	SuccessfulFirstAttempts int64         `json:"successful_first_attempts"`
	SuccessfulRetries       int64         `json:"successful_retries"`
	FailedRetries           int64         `json:"failed_retries"`
	AverageAttempts         float64       `json:"average_attempts"`
	MaxBackoff              time.Duration `json:"max_backoff"`
}

func (s *retryStats) recordBackoff(backoff time.Duration) {
	nanos := backoff.Nanoseconds()
	for {
		current := s.maxBackoff.Load()
		if nanos <= current || s.maxBackoff.CompareAndSwap(current, nanos) {
			return
		}
	}
}

// Stats returns a snapshot of this retrier's activity.
func (r *Retrier) Stats() Stats {
	total := r.stats.totalAttempts.Load()
	first := r.stats.successfulFirstAttempts.Load()
	retried := r.stats.successfulRetries.Load()
	failed := r.stats.failedRetries.Load()

	avg := 1.0
	if calls := first + retried + failed; calls > 0 {
		avg = float64(total) / float64(calls)
	}
	return Stats{
		TotalAttempts:           total,
		SuccessfulFirstAttempts: first,
		SuccessfulRetries:       retried,
		FailedRetries:           failed,
		AverageAttempts:         avg,
		MaxBackoff:              time.Duration(r.stats.maxBackoff.Load()),
	}
}

package activity

import (
	"errors"

	"go.temporal.io/sdk/temporal"
)

// Application error types reported to workflows.
const (
	ErrTypeValidation         = "Validation"
	ErrTypeExtraction         = "Extraction"
	ErrTypeServiceUnavailable = "ServiceUnavailable"
)

// ErrActivityValidation is returned when activity input is structurally
// invalid. It is never retried.
var ErrActivityValidation = errors.New("activity input validation failed")

// nonRetryable wraps cause as a Temporal application error that stops the
// retry policy.
func nonRetryable(tag string, cause error, msg string) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause)
}

// retryable wraps cause as a Temporal application error the retry policy may
// retry. userMessage travels as the error details so the workflow can show
// it once retries are exhausted.
func retryable(tag string, cause error, msg, userMessage string) error {
	return temporal.NewApplicationErrorWithCause(msg, tag, cause, userMessage)
}

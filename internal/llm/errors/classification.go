package errors

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// Class is the coarse failure category that selects a retry policy and the
// message shown to the user.
type Class string

const (
	// ClassNone is the class of a nil error.
	ClassNone Class = ""
	// ClassConnection covers network failures and timeouts.
	ClassConnection Class = "connection"
	// ClassRateLimit covers provider throttling.
	ClassRateLimit Class = "rate_limit"
	// ClassStatus covers terminal provider responses such as auth failures.
	ClassStatus Class = "status"
	// ClassUnexpected is everything else.
	ClassUnexpected Class = "unexpected"
)

var networkIndicators = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"i/o timeout",
	"tls handshake timeout",
	"unexpected eof",
	"server closed idle connection",
}

// Classify maps err onto a Class. Typed provider errors win over network
// inspection, which wins over message matching.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}

	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return ClassRateLimit
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		switch provErr.Type {
		case ErrorTypeRateLimit:
			return ClassRateLimit
		case ErrorTypeTimeout, ErrorTypeNetwork:
			return ClassConnection
		default:
			return ClassStatus
		}
	}

	if errors.Is(err, context.Canceled) {
		return ClassUnexpected
	}
	if IsNetworkError(err) {
		return ClassConnection
	}
	return ClassUnexpected
}

// StatusCode returns the provider status carried by err, or 0.
func StatusCode(err error) int {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.StatusCode
	}
	return 0
}

// IsNetworkError reports whether err looks like a transport-level failure.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, indicator := range networkIndicators {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}

// IsRetryableError reports whether err is worth another attempt.
func IsRetryableError(err error) bool {
	switch Classify(err) {
	case ClassConnection, ClassRateLimit:
		return true
	default:
		return false
	}
}

// ClassifyLLMError converts err into a WorkflowError carrying retry guidance
// for activity boundaries.
func ClassifyLLMError(err error) *WorkflowError {
	if err == nil {
		return nil
	}

	var wfErr *WorkflowError
	if errors.As(err, &wfErr) {
		return wfErr
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return &WorkflowError{
			Type:      provErr.Type,
			Message:   provErr.Message,
			Code:      provErr.Code,
			Retryable: provErr.IsRetryable(),
			Details: map[string]any{
				"provider":    provErr.Provider,
				"status_code": provErr.StatusCode,
			},
			Cause: err,
		}
	}

	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return &WorkflowError{
			Type:      ErrorTypeRateLimit,
			Message:   rateErr.Error(),
			Code:      "RATE_LIMIT",
			Retryable: true,
			Details:   map[string]any{"provider": rateErr.Provider, "retry_after": rateErr.RetryAfter},
			Cause:     err,
		}
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return &WorkflowError{
			Type:      ErrorTypeValidation,
			Message:   valErr.Error(),
			Code:      "VALIDATION",
			Retryable: false,
			Details:   map[string]any{"field": valErr.Field},
			Cause:     err,
		}
	}

	if IsNetworkError(err) {
		return &WorkflowError{
			Type:      ErrorTypeNetwork,
			Message:   "Network error",
			Code:      "NETWORK_ERROR",
			Retryable: true,
			Details:   map[string]any{"original_error": err.Error()},
			Cause:     err,
		}
	}

	return &WorkflowError{
		Type:      ErrorTypeUnknown,
		Message:   "Unknown error",
		Code:      "UNKNOWN",
		Retryable: false,
		Details:   map[string]any{"original_error": err.Error()},
		Cause:     err,
	}
}

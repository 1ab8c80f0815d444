// Package configuration holds the settings of the generation pipeline:
// provider credentials, call parameters, session polling and the per-class
// retry policies.
package configuration

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Configuration validation errors.
var (
	ErrMissingAPIKey     = errors.New("provider API key is required")
	ErrUnknownProvider   = errors.New("default provider is not configured")
	ErrMissingModel      = errors.New("model is required")
	ErrInvalidRetry      = errors.New("invalid retry policy")
	ErrInvalidTimeout    = errors.New("timeout must be positive")
	ErrInvalidPollPeriod = errors.New("session poll interval must be positive")
)

// BackoffStrategy selects how the delay grows between attempts.
type BackoffStrategy string

// Supported strategies.
const (
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// Config holds the configuration of the generation client.
type Config struct {
	// HTTP client configuration
	HTTPTimeout time.Duration `json:"http_timeout" yaml:"http_timeout"`
	HTTPClient  *http.Client  `json:"-"            yaml:"-"`

	// Provider is the key into Providers used for every call.
	Provider  string                    `json:"provider"  yaml:"provider"`
	Model     string                    `json:"model"     yaml:"model"`
	Providers map[string]ProviderConfig `json:"providers" yaml:"providers"`

	// Call parameters.
	Temperature float64       `json:"temperature" yaml:"temperature"`
	MaxTokens   int           `json:"max_tokens"  yaml:"max_tokens"`
	Timeout     time.Duration `json:"timeout"     yaml:"timeout"`

	Session       SessionConfig       `json:"session"       yaml:"session"`
	Retry         RetryConfig         `json:"retry"         yaml:"retry"`
	Observability ObservabilityConfig `json:"observability" yaml:"observability"`
}

// ProviderConfig holds provider-specific endpoint and authentication.
type ProviderConfig struct {
	Endpoint  string            `json:"endpoint"    yaml:"endpoint"`
	APIKey    string            `json:"-"           yaml:"-"` // Sensitive, not serialized
	APIKeyEnv string            `json:"api_key_env" yaml:"api_key_env"`
	Headers   map[string]string `json:"headers"     yaml:"headers"`
}

// SessionConfig controls persistent sessions bound to a knowledge source.
type SessionConfig struct {
	Name         string        `json:"name"          yaml:"name"`
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`
	RunTimeout   time.Duration `json:"run_timeout"   yaml:"run_timeout"`
}

// ClassRetryConfig is the retry policy for one failure class.
type ClassRetryConfig struct {
	MaxAttempts     int             `json:"max_attempts"     yaml:"max_attempts"`
	Strategy        BackoffStrategy `json:"strategy"         yaml:"strategy"`
	InitialInterval time.Duration   `json:"initial_interval" yaml:"initial_interval"`
	MaxInterval     time.Duration   `json:"max_interval"     yaml:"max_interval"`
	Multiplier      float64         `json:"multiplier"       yaml:"multiplier"`
	UseJitter       bool            `json:"use_jitter"       yaml:"use_jitter"`
}

// RetryConfig maps each failure class onto a policy. A class with
// MaxAttempts of 1 is never retried.
type RetryConfig struct {
	Connection ClassRetryConfig `json:"connection" yaml:"connection"`
	RateLimit  ClassRetryConfig `json:"rate_limit" yaml:"rate_limit"`
	Status     ClassRetryConfig `json:"status"     yaml:"status"`
	Unexpected ClassRetryConfig `json:"unexpected" yaml:"unexpected"`
}

// ObservabilityConfig controls request logging.
type ObservabilityConfig struct {
	// LogPrompts includes prompt and completion text in debug logs.
	LogPrompts bool `json:"log_prompts" yaml:"log_prompts"`
}

// Validate checks that the configuration can make calls.
func (c *Config) Validate() error {
	p, ok := c.Providers[c.Provider]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}
	if p.APIKey == "" {
		return fmt.Errorf("%w: %s", ErrMissingAPIKey, c.Provider)
	}
	if c.Model == "" {
		return ErrMissingModel
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: call timeout %v", ErrInvalidTimeout, c.Timeout)
	}
	if c.Session.PollInterval <= 0 {
		return ErrInvalidPollPeriod
	}
	for name, rc := range map[string]ClassRetryConfig{
		"connection": c.Retry.Connection,
		"rate_limit": c.Retry.RateLimit,
		"status":     c.Retry.Status,
		"unexpected": c.Retry.Unexpected,
	} {
		if err := rc.Validate(); err != nil {
			return fmt.Errorf("retry.%s: %w", name, err)
		}
	}
	return nil
}

// Validate checks a single class policy.
func (r ClassRetryConfig) Validate() error {
	if r.MaxAttempts <= 0 {
		return fmt.Errorf("%w: max_attempts must be greater than 0, got %d", ErrInvalidRetry, r.MaxAttempts)
	}
	if r.InitialInterval < 0 {
		return fmt.Errorf("%w: initial_interval must be >= 0", ErrInvalidRetry)
	}
	switch r.Strategy {
	case BackoffLinear, "":
	case BackoffExponential:
		if r.Multiplier < 1.0 {
			return fmt.Errorf("%w: multiplier must be >= 1.0, got %f", ErrInvalidRetry, r.Multiplier)
		}
		if r.MaxInterval > 0 && r.MaxInterval < r.InitialInterval {
			return fmt.Errorf("%w: max_interval must be >= initial_interval", ErrInvalidRetry)
		}
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidRetry, r.Strategy)
	}
	return nil
}

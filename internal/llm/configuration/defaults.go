package configuration

import "time"

// Provider identifiers.
const (
	ProviderOpenAI = "openai"
)

// Call defaults.
const (
	DefaultModel       = "gpt-4o-mini"
	DefaultEndpoint    = "https://api.openai.com/v1"
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 1800
	DefaultTimeout     = 60 * time.Second
	DefaultHTTPTimeout = 90 * time.Second
)

// Session defaults.
const (
	DefaultSessionName  = "study-mentor"
	DefaultPollInterval = time.Second
	DefaultRunTimeout   = 120 * time.Second
)

// Retry defaults. Connection failures wait 2s, 4s; rate limits wait 3s, 6s.
const (
	DefaultConnectionAttempts = 3
	DefaultConnectionStep     = 2 * time.Second
	DefaultRateLimitAttempts  = 3
	DefaultRateLimitStep      = 3 * time.Second
)

// DefaultConfig returns the production configuration without credentials.
func DefaultConfig() *Config {
	return &Config{
		HTTPTimeout: DefaultHTTPTimeout,
		Provider:    ProviderOpenAI,
		Model:       DefaultModel,
		Providers: map[string]ProviderConfig{
			ProviderOpenAI: {
				Endpoint:  DefaultEndpoint,
				APIKeyEnv: "OPENAI_API_KEY",
			},
		},
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Timeout:     DefaultTimeout,
		Session: SessionConfig{
			Name:         DefaultSessionName,
			PollInterval: DefaultPollInterval,
			RunTimeout:   DefaultRunTimeout,
		},
		Retry: DefaultRetryConfig(),
	}
}

// DefaultRetryConfig returns the per-class retry policies.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Connection: ClassRetryConfig{
			MaxAttempts:     DefaultConnectionAttempts,
			Strategy:        BackoffLinear,
			InitialInterval: DefaultConnectionStep,
		},
		RateLimit: ClassRetryConfig{
			MaxAttempts:     DefaultRateLimitAttempts,
			Strategy:        BackoffLinear,
			InitialInterval: DefaultRateLimitStep,
		},
		Status:     ClassRetryConfig{MaxAttempts: 1},
		Unexpected: ClassRetryConfig{MaxAttempts: 1},
	}
}

package transport

import "time"

// OperationType distinguishes the calls the pipeline can make.
type OperationType string

const (
	// OpGeneration is a stateless chat completion.
	OpGeneration OperationType = "generation"
	// OpCreateSession creates a persistent session bound to a knowledge source.
	OpCreateSession OperationType = "create_session"
	// OpSessionRun runs one exchange against an existing session.
	OpSessionRun OperationType = "session_run"
)

// Request is the provider-agnostic description of one generation call.
type Request struct {
	Operation OperationType `json:"operation"`
	Provider  string        `json:"provider"`
	Model     string        `json:"model"`

	SystemPrompt string `json:"system_prompt,omitempty"`
	Content      string `json:"content,omitempty"`

	// SessionID is the opaque handle for OpSessionRun.
	SessionID string `json:"session_id,omitempty"`
	// KnowledgeSourceID binds an OpCreateSession call to a document collection.
	KnowledgeSourceID string `json:"knowledge_source_id,omitempty"`
	// SessionName labels a created session on the provider side.
	SessionName string `json:"session_name,omitempty"`

	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature"`
	// JSONMode asks the provider for a single JSON object.
	JSONMode bool `json:"json_mode,omitempty"`

	// Timeout bounds the whole call, including any polling.
	Timeout time.Duration `json:"timeout,omitempty"`
	TraceID string        `json:"trace_id,omitempty"`
}

// Usage reports token consumption and latency for one call.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
	LatencyMs        int64 `json:"latency_ms"`
}

// Response is the normalized result of a call.
type Response struct {
	// Content is the generated text. Empty for OpCreateSession.
	Content string `json:"content"`
	// ResourceID is the identifier of a created resource, such as a session.
	ResourceID         string   `json:"resource_id,omitempty"`
	FinishReason       string   `json:"finish_reason,omitempty"`
	ProviderRequestIDs []string `json:"provider_request_ids,omitempty"`
	Usage              Usage    `json:"usage"`
	// Attempts is filled in by the retry middleware.
	Attempts int `json:"attempts,omitempty"`
}

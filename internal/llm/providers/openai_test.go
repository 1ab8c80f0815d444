package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-mentor/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-mentor/internal/llm/errors"
	"github.com/ahrav/go-mentor/internal/llm/transport"
)

func TestNewOpenAIAdapter(t *testing.T) {
	tests := []struct {
		name             string
		config           configuration.ProviderConfig
		expectedEndpoint string
	}{
		{
			name:             "default_endpoint_when_empty",
			config:           configuration.ProviderConfig{APIKey: "test-key"},
			expectedEndpoint: "https://api.openai.com/v1",
		},
		{
			name:             "custom_endpoint_trailing_slash_trimmed",
			config:           configuration.ProviderConfig{APIKey: "test-key", Endpoint: "https://proxy.local/v1/"},
			expectedEndpoint: "https://proxy.local/v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := NewOpenAIAdapter(tt.config)
			assert.Equal(t, ProviderOpenAI, adapter.Name())
			assert.Equal(t, tt.expectedEndpoint, adapter.config.Endpoint)
		})
	}
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	b, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &body))
	return body
}

func TestOpenAIAdapter_Build(t *testing.T) {
	adapter := NewOpenAIAdapter(configuration.ProviderConfig{
		APIKey:   "test-key",
		Endpoint: "https://api.openai.com/v1",
		Headers:  map[string]string{"X-Custom-Header": "custom-value"},
	})

	t.Run("chat_completion", func(t *testing.T) {
		req, err := adapter.Build(context.Background(), &transport.Request{
			Operation:    transport.OpGeneration,
			Model:        "gpt-4o-mini",
			SystemPrompt: "You are a strict examiner.",
			Content:      "Score this answer.",
			Temperature:  0.2,
			MaxTokens:    500,
			JSONMode:     true,
		})
		require.NoError(t, err)
		assert.Equal(t, "https://api.openai.com/v1/chat/completions", req.URL.String())
		assert.Equal(t, "Bearer test-key", req.Header.Get("Authorization"))
		assert.Equal(t, "custom-value", req.Header.Get("X-Custom-Header"))
		assert.Empty(t, req.Header.Get("OpenAI-Beta"))

		body := decodeBody(t, req)
		assert.Equal(t, "gpt-4o-mini", body["model"])
		assert.InDelta(t, 500, body["max_tokens"], 0)
		assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])
		messages := body["messages"].([]any)
		require.Len(t, messages, 2)
		assert.Equal(t, "system", messages[0].(map[string]any)["role"])
		assert.Equal(t, "Score this answer.", messages[1].(map[string]any)["content"])
	})

	t.Run("create_session", func(t *testing.T) {
		req, err := adapter.Build(context.Background(), &transport.Request{
			Operation:         transport.OpCreateSession,
			Model:             "gpt-4o-mini",
			SystemPrompt:      "Answer only from the notes.",
			KnowledgeSourceID: "vs_123",
			SessionName:       "study-mentor",
		})
		require.NoError(t, err)
		assert.Equal(t, "https://api.openai.com/v1/assistants", req.URL.String())
		assert.Equal(t, "assistants=v2", req.Header.Get("OpenAI-Beta"))

		body := decodeBody(t, req)
		assert.Equal(t, "study-mentor", body["name"])
		resources := body["tool_resources"].(map[string]any)["file_search"].(map[string]any)
		assert.Equal(t, []any{"vs_123"}, resources["vector_store_ids"])
	})

	t.Run("create_session_requires_knowledge_source", func(t *testing.T) {
		_, err := adapter.Build(context.Background(), &transport.Request{Operation: transport.OpCreateSession})
		assert.ErrorIs(t, err, ErrUnsupportedOperation)
	})

	t.Run("session_run_not_single_round_trip", func(t *testing.T) {
		_, err := adapter.Build(context.Background(), &transport.Request{Operation: transport.OpSessionRun})
		assert.ErrorIs(t, err, ErrUnsupportedOperation)
	})
}

func response(status int, body string, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body)), Header: header}
}

func TestOpenAIAdapter_Parse(t *testing.T) {
	adapter := NewOpenAIAdapter(configuration.ProviderConfig{APIKey: "k"})

	t.Run("chat_success", func(t *testing.T) {
		h := http.Header{}
		h.Set("x-request-id", "req_1")
		resp, err := adapter.Parse(&transport.Request{Operation: transport.OpGeneration}, response(200,
			`{"choices":[{"message":{"content":"\"Swaraj is my birthright\""},"finish_reason":"stop"}],
			  "usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`, h))
		require.NoError(t, err)
		assert.Equal(t, `"Swaraj is my birthright"`, resp.Content)
		assert.Equal(t, "stop", resp.FinishReason)
		assert.Equal(t, int64(15), resp.Usage.TotalTokens)
		assert.Equal(t, []string{"req_1"}, resp.ProviderRequestIDs)
	})

	t.Run("session_created", func(t *testing.T) {
		resp, err := adapter.Parse(&transport.Request{Operation: transport.OpCreateSession},
			response(200, `{"id":"asst_abc","object":"assistant"}`, nil))
		require.NoError(t, err)
		assert.Equal(t, "asst_abc", resp.ResourceID)
	})

	t.Run("session_missing_id", func(t *testing.T) {
		_, err := adapter.Parse(&transport.Request{Operation: transport.OpCreateSession}, response(200, `{}`, nil))
		assert.ErrorIs(t, err, llmerrors.ErrInvalidResponse)
	})
}

// TestParseOpenAIError checks the status/code mapping that drives retry classes.
func TestParseOpenAIError(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		retryAfter string
		wantType   llmerrors.ErrorType
		wantClass  llmerrors.Class
	}{
		{"rate_limited", 429, `{"error":{"message":"slow down","type":"requests","code":"rate_limit_exceeded"}}`, "3", llmerrors.ErrorTypeRateLimit, llmerrors.ClassRateLimit},
		{"quota_exhausted", 429, `{"error":{"message":"no credit","type":"insufficient_quota","code":"insufficient_quota"}}`, "", llmerrors.ErrorTypeQuota, llmerrors.ClassStatus},
		{"bad_key", 401, `{"error":{"message":"Incorrect API key","type":"invalid_request_error","code":"invalid_api_key"}}`, "", llmerrors.ErrorTypeAuth, llmerrors.ClassStatus},
		{"unknown_model", 404, `{"error":{"message":"model not found","type":"invalid_request_error","code":"model_not_found"}}`, "", llmerrors.ErrorTypeNotFound, llmerrors.ClassStatus},
		{"gateway_timeout", 504, `upstream timed out`, "", llmerrors.ErrorTypeTimeout, llmerrors.ClassConnection},
		{"server_error", 500, `{"error":{"message":"oops","type":"server_error"}}`, "", llmerrors.ErrorTypeProvider, llmerrors.ClassStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.retryAfter != "" {
				h.Set("Retry-After", tt.retryAfter)
			}
			err := parseOpenAIError(tt.status, h, []byte(tt.body))

			var provErr *llmerrors.ProviderError
			require.ErrorAs(t, err, &provErr)
			assert.Equal(t, tt.status, provErr.StatusCode)
			assert.Equal(t, tt.wantType, provErr.Type)
			assert.Equal(t, tt.wantClass, llmerrors.Classify(err))
			if tt.retryAfter != "" {
				assert.Equal(t, 3, provErr.RetryAfter)
			}
		})
	}
}

func TestRouter(t *testing.T) {
	r, err := NewRouter(map[string]configuration.ProviderConfig{ProviderOpenAI: {APIKey: "k"}})
	require.NoError(t, err)

	a, err := r.Pick(ProviderOpenAI, "gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, a.Name())

	_, err = r.Pick("anthropic", "claude")
	assert.ErrorIs(t, err, llmerrors.ErrUnknownProvider)

	_, err = NewRouter(map[string]configuration.ProviderConfig{"mystery": {}})
	assert.ErrorIs(t, err, llmerrors.ErrUnknownProvider)
}

func TestOpenAIAdapter_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"ok"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	router, err := NewRouter(map[string]configuration.ProviderConfig{
		ProviderOpenAI: {APIKey: "k", Endpoint: srv.URL + "/v1"},
	})
	require.NoError(t, err)

	h := transport.NewHTTPHandler(srv.Client(), router)
	resp, err := h.Handle(context.Background(), &transport.Request{
		Operation: transport.OpGeneration,
		Provider:  ProviderOpenAI,
		Content:   "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
}

package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ahrav/go-mentor/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-mentor/internal/llm/errors"
	"github.com/ahrav/go-mentor/internal/llm/transport"
)

// assistantsBeta is the header value required by the assistants endpoints.
const assistantsBeta = "assistants=v2"

// OpenAIAdapter implements transport.ProviderAdapter for OpenAI. It covers
// chat completions and session creation; running a session takes several
// round trips and lives in SessionRunner.
type OpenAIAdapter struct {
	config configuration.ProviderConfig
}

// NewOpenAIAdapter creates an OpenAI adapter, defaulting the endpoint to the
// production API.
func NewOpenAIAdapter(cfg configuration.ProviderConfig) *OpenAIAdapter {
	if cfg.Endpoint == "" {
		cfg.Endpoint = configuration.DefaultEndpoint
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &OpenAIAdapter{config: cfg}
}

// Name returns the provider name.
func (a *OpenAIAdapter) Name() string {
	return ProviderOpenAI
}

// Build constructs the provider request for a normalized request.
func (a *OpenAIAdapter) Build(ctx context.Context, req *transport.Request) (*http.Request, error) {
	var (
		endpoint string
		body     map[string]any
		beta     bool
	)

	switch req.Operation {
	case transport.OpGeneration:
		endpoint = a.config.Endpoint + "/chat/completions"
		body = chatBody(req)
	case transport.OpCreateSession:
		if req.KnowledgeSourceID == "" {
			return nil, fmt.Errorf("%w: session requires a knowledge source", ErrUnsupportedOperation)
		}
		endpoint = a.config.Endpoint + "/assistants"
		body = map[string]any{
			"model":        req.Model,
			"name":         req.SessionName,
			"instructions": req.SystemPrompt,
			"temperature":  req.Temperature,
			"tools":        []map[string]any{{"type": "file_search"}},
			"tool_resources": map[string]any{
				"file_search": map[string]any{"vector_store_ids": []string{req.KnowledgeSourceID}},
			},
		}
		beta = true
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperation, req.Operation)
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	a.authorize(httpReq, beta)
	httpReq.Header.Set("Content-Type", "application/json")
	return httpReq, nil
}

func chatBody(req *transport.Request) map[string]any {
	messages := []map[string]any{}
	if req.SystemPrompt != "" {
		messages = append(messages, map[string]any{"role": "system", "content": req.SystemPrompt})
	}
	messages = append(messages, map[string]any{"role": "user", "content": req.Content})

	body := map[string]any{
		"model":       req.Model,
		"messages":    messages,
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if req.JSONMode {
		body["response_format"] = map[string]string{"type": "json_object"}
	}
	return body
}

func (a *OpenAIAdapter) authorize(httpReq *http.Request, beta bool) {
	httpReq.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	if beta {
		httpReq.Header.Set("OpenAI-Beta", assistantsBeta)
	}
	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}
}

// Parse extracts normalized data from an OpenAI response.
func (a *OpenAIAdapter) Parse(req *transport.Request, httpResp *http.Response) (*transport.Response, error) {
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, parseOpenAIError(httpResp.StatusCode, httpResp.Header, body)
	}

	requestIDs := []string{}
	if reqID := httpResp.Header.Get("x-request-id"); reqID != "" {
		requestIDs = append(requestIDs, reqID)
	}

	if req.Operation == transport.OpCreateSession {
		var created struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(body, &created); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		if created.ID == "" {
			return nil, fmt.Errorf("%w: assistant id missing", llmerrors.ErrInvalidResponse)
		}
		return &transport.Response{ResourceID: created.ID, ProviderRequestIDs: requestIDs}, nil
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage usagePayload `json:"usage"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	out := &transport.Response{
		ProviderRequestIDs: requestIDs,
		Usage:              resp.Usage.normalize(),
	}
	if len(resp.Choices) > 0 {
		out.Content = resp.Choices[0].Message.Content
		out.FinishReason = resp.Choices[0].FinishReason
	}
	return out, nil
}

type usagePayload struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

func (u usagePayload) normalize() transport.Usage {
	return transport.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

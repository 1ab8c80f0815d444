package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ahrav/go-mentor/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-mentor/internal/llm/errors"
	"github.com/ahrav/go-mentor/internal/llm/transport"
)

// Run states reported by the threads API.
const (
	runQueued     = "queued"
	runInProgress = "in_progress"
	runCompleted  = "completed"
	runFailed     = "failed"
	runExpired    = "expired"
	runIncomplete = "incomplete"
)

// citationMarker matches file_search annotations such as 【4:0†notes.pdf】.
var citationMarker = regexp.MustCompile(`【[^】]*】`)

// SessionRunner executes OpSessionRun requests against an OpenAI assistant:
// it starts a thread with the user content, polls the run until it settles
// and returns the assistant's reply.
type SessionRunner struct {
	config       configuration.ProviderConfig
	client       *http.Client
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewSessionRunner creates a runner polling at the given interval.
func NewSessionRunner(cfg configuration.ProviderConfig, client *http.Client, pollInterval time.Duration) *SessionRunner {
	if cfg.Endpoint == "" {
		cfg.Endpoint = configuration.DefaultEndpoint
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if client == nil {
		client = http.DefaultClient
	}
	if pollInterval <= 0 {
		pollInterval = configuration.DefaultPollInterval
	}
	return &SessionRunner{
		config:       cfg,
		client:       client,
		pollInterval: pollInterval,
		logger:       slog.Default().With("component", "session_runner"),
	}
}

type runPayload struct {
	ID        string `json:"id"`
	ThreadID  string `json:"thread_id"`
	Status    string `json:"status"`
	LastError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_error"`
	IncompleteDetails *struct {
		Reason string `json:"reason"`
	} `json:"incomplete_details"`
	Usage *usagePayload `json:"usage"`
}

// Handle implements transport.Handler.
func (r *SessionRunner) Handle(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	if req.Operation != transport.OpSessionRun {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperation, req.Operation)
	}
	if req.SessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrUnsupportedOperation)
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	start := time.Now()
	body := map[string]any{
		"assistant_id": req.SessionID,
		"thread": map[string]any{
			"messages": []map[string]any{{"role": "user", "content": req.Content}},
		},
		"temperature": req.Temperature,
	}
	if req.SystemPrompt != "" {
		body["instructions"] = req.SystemPrompt
	}
	if req.MaxTokens > 0 {
		body["max_completion_tokens"] = req.MaxTokens
	}

	var run runPayload
	if err := r.do(ctx, http.MethodPost, "/threads/runs", body, &run); err != nil {
		return nil, err
	}

	run, err := r.await(ctx, run)
	if err != nil {
		return nil, err
	}

	content, err := r.reply(ctx, run)
	if err != nil {
		return nil, err
	}

	resp := &transport.Response{
		Content:      content,
		FinishReason: run.Status,
		Usage:        transport.Usage{LatencyMs: time.Since(start).Milliseconds()},
	}
	if run.Usage != nil {
		usage := run.Usage.normalize()
		usage.LatencyMs = resp.Usage.LatencyMs
		resp.Usage = usage
	}
	return resp, nil
}

// await polls until the run leaves the queued/in-progress states.
func (r *SessionRunner) await(ctx context.Context, run runPayload) (runPayload, error) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	path := fmt.Sprintf("/threads/%s/runs/%s", url.PathEscape(run.ThreadID), url.PathEscape(run.ID))
	for run.Status == runQueued || run.Status == runInProgress || run.Status == "" {
		select {
		case <-ctx.Done():
			return run, fmt.Errorf("waiting for run %s: %w", run.ID, ctx.Err())
		case <-ticker.C:
		}
		if err := r.do(ctx, http.MethodGet, path, nil, &run); err != nil {
			return run, err
		}
	}

	switch run.Status {
	case runCompleted:
		return run, nil
	case runExpired:
		return run, &llmerrors.ProviderError{
			Provider:   ProviderOpenAI,
			StatusCode: http.StatusRequestTimeout,
			Message:    "session run expired",
			Type:       llmerrors.ErrorTypeTimeout,
		}
	case runFailed:
		if run.LastError != nil && run.LastError.Code == "rate_limit_exceeded" {
			return run, &llmerrors.RateLimitError{Provider: ProviderOpenAI}
		}
		msg := "unknown failure"
		if run.LastError != nil {
			msg = run.LastError.Code + ": " + run.LastError.Message
		}
		return run, fmt.Errorf("%w: %s", llmerrors.ErrRunFailed, msg)
	case runIncomplete:
		reason := "incomplete"
		if run.IncompleteDetails != nil {
			reason = run.IncompleteDetails.Reason
		}
		r.logger.Warn("session run incomplete, using partial reply", "run_id", run.ID, "reason", reason)
		return run, nil
	default:
		// cancelled, requires_action and anything new are terminal for us.
		return run, fmt.Errorf("%w: status %s", llmerrors.ErrRunFailed, run.Status)
	}
}

// reply fetches the newest assistant message produced by the run.
func (r *SessionRunner) reply(ctx context.Context, run runPayload) (string, error) {
	q := url.Values{}
	q.Set("order", "desc")
	q.Set("limit", "1")
	q.Set("run_id", run.ID)
	path := fmt.Sprintf("/threads/%s/messages?%s", url.PathEscape(run.ThreadID), q.Encode())

	var list struct {
		Data []struct {
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
				Text struct {
					Value string `json:"value"`
				} `json:"text"`
			} `json:"content"`
		} `json:"data"`
	}
	if err := r.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, msg := range list.Data {
		if msg.Role != "assistant" {
			continue
		}
		for _, part := range msg.Content {
			if part.Type != "text" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(part.Text.Value)
		}
		break
	}
	return strings.TrimSpace(citationMarker.ReplaceAllString(b.String(), "")), nil
}

func (r *SessionRunner) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, r.config.Endpoint+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+r.config.APIKey)
	httpReq.Header.Set("OpenAI-Beta", assistantsBeta)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.config.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := r.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return parseOpenAIError(httpResp.StatusCode, httpResp.Header, respBody)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

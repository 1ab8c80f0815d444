package llm

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-mentor/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-mentor/internal/llm/errors"
	"github.com/ahrav/go-mentor/internal/llm/transport"
)

const responsePreviewLen = 200

// loggingMiddleware records the lifecycle of each logical call. Prompt and
// completion text are only logged when LogPrompts is set.
type loggingMiddleware struct {
	logger     *slog.Logger
	logPrompts bool
}

// NewLoggingMiddleware creates request logging middleware.
func NewLoggingMiddleware(cfg configuration.ObservabilityConfig, logger *slog.Logger) transport.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	m := &loggingMiddleware{logger: logger, logPrompts: cfg.LogPrompts}
	return m.wrap
}

func (m *loggingMiddleware) wrap(next transport.Handler) transport.Handler {
	return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		if req.TraceID == "" {
			req.TraceID = uuid.NewString()
		}
		m.logRequest(ctx, req)

		start := time.Now()
		resp, err := next.Handle(ctx, req)
		duration := time.Since(start)

		if err != nil {
			m.logger.ErrorContext(ctx, "llm request failed",
				"request_id", req.TraceID,
				"operation", req.Operation,
				"model", req.Model,
				"duration_ms", duration.Milliseconds(),
				"error_class", llmerrors.Classify(err),
				"error", err)
			return nil, err
		}
		m.logSuccess(ctx, req, resp, duration)
		return resp, nil
	})
}

func (m *loggingMiddleware) logRequest(ctx context.Context, req *transport.Request) {
	fields := []any{
		"request_id", req.TraceID,
		"provider", req.Provider,
		"model", req.Model,
		"operation", req.Operation,
		"max_tokens", req.MaxTokens,
		"timeout_seconds", req.Timeout.Seconds(),
	}
	if req.SessionID != "" {
		fields = append(fields, "session_id", req.SessionID)
	}
	if m.logPrompts {
		fields = append(fields, "system_prompt", req.SystemPrompt, "content", req.Content)
	} else {
		fields = append(fields, "system_prompt_length", len(req.SystemPrompt), "content_length", len(req.Content))
	}
	m.logger.InfoContext(ctx, "llm request started", fields...)
}

func (m *loggingMiddleware) logSuccess(ctx context.Context, req *transport.Request, resp *transport.Response, d time.Duration) {
	fields := []any{
		"request_id", req.TraceID,
		"operation", req.Operation,
		"model", req.Model,
		"duration_ms", d.Milliseconds(),
		"attempts", resp.Attempts,
		"finish_reason", resp.FinishReason,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"total_tokens", resp.Usage.TotalTokens,
		"provider_request_ids", strings.Join(resp.ProviderRequestIDs, ","),
	}
	if m.logPrompts {
		content := resp.Content
		if len(content) > responsePreviewLen {
			content = content[:responsePreviewLen] + "..."
		}
		fields = append(fields, "response_preview", content)
	} else {
		fields = append(fields, "response_length", len(resp.Content))
	}
	m.logger.InfoContext(ctx, "llm request completed", fields...)
}

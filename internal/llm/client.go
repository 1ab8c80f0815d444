// Package llm provides the generation client used by the answer and scoring
// engines. Every call flows through the same pipeline: structured logging,
// per-class retries, then an operation mux that dispatches to either a single
// round-trip provider adapter or the session runner.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ahrav/go-mentor/internal/llm/configuration"
	"github.com/ahrav/go-mentor/internal/llm/providers"
	"github.com/ahrav/go-mentor/internal/llm/retry"
	"github.com/ahrav/go-mentor/internal/llm/transport"
)

// Transport tuning for the default HTTP client.
const (
	defaultMaxIdleConns    = 20
	defaultIdleConnTimeout = 90 * time.Second
	defaultTLSTimeout      = 10 * time.Second
)

// ErrEmptySession is returned when session creation yields no handle.
var ErrEmptySession = errors.New("provider returned an empty session id")

// RetrievalToolRef binds a generation call to a persistent session whose
// retrieval tool searches the study material.
type RetrievalToolRef struct {
	SessionID string
}

// GenerateRequest is one call to the generation service.
type GenerateRequest struct {
	System  string
	Content string
	// Tools routes the call through a session when set.
	Tools *RetrievalToolRef
	// JSON asks for a single JSON object. Ignored for session calls.
	JSON      bool
	MaxTokens int
}

// Generator produces text for a request.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// SessionCreator creates persistent sessions bound to a knowledge source.
type SessionCreator interface {
	CreateSession(ctx context.Context, knowledgeSourceID string) (string, error)
}

// Client is the production Generator and SessionCreator.
type Client struct {
	config  *configuration.Config
	handler transport.Handler
	retrier *retry.Retrier
	logger  *slog.Logger
}

// Option customizes a Client.
type Option func(*clientOptions)

type clientOptions struct {
	retryOpts []retry.Option
	logger    *slog.Logger
}

// WithRetryOptions forwards options to the retrier, e.g. a test sleep.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(o *clientOptions) { o.retryOpts = append(o.retryOpts, opts...) }
}

// WithLogger sets the logger used by the client and its middleware.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = logger }
}

// New builds a client from cfg. A nil cfg uses the defaults, which still
// require an API key.
func New(cfg *configuration.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = configuration.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid llm configuration: %w", err)
	}

	o := clientOptions{logger: slog.Default().With("component", "llm")}
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConns:          defaultMaxIdleConns,
				IdleConnTimeout:       defaultIdleConnTimeout,
				TLSHandshakeTimeout:   defaultTLSTimeout,
				ExpectContinueTimeout: time.Second,
			},
			Timeout: cfg.HTTPTimeout,
		}
	}

	router, err := providers.NewRouter(cfg.Providers)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize router: %w", err)
	}

	core := transport.NewHTTPHandler(httpClient, router)
	runner := providers.NewSessionRunner(cfg.Providers[cfg.Provider], httpClient, cfg.Session.PollInterval)
	mux := transport.Mux{
		transport.OpGeneration:    core,
		transport.OpCreateSession: core,
		transport.OpSessionRun:    runner,
	}

	retrier := retry.NewRetrier(
		retry.PoliciesFromConfig(cfg.Retry),
		append([]retry.Option{retry.WithLogger(o.logger.With("component", "retry"))}, o.retryOpts...)...,
	)

	handler := transport.Chain(mux,
		NewLoggingMiddleware(cfg.Observability, o.logger),
		retry.NewMiddleware(retrier),
	)

	return &Client{
		config:  cfg,
		handler: handler,
		retrier: retrier,
		logger:  o.logger,
	}, nil
}

// Generate runs one generation call and returns the produced text. Errors
// are classified provider errors suitable for retry.UserMessage.
func (c *Client) Generate(ctx context.Context, in GenerateRequest) (string, error) {
	req := &transport.Request{
		Operation:    transport.OpGeneration,
		Provider:     c.config.Provider,
		Model:        c.config.Model,
		SystemPrompt: in.System,
		Content:      in.Content,
		MaxTokens:    c.config.MaxTokens,
		Temperature:  c.config.Temperature,
		JSONMode:     in.JSON,
		Timeout:      c.config.Timeout,
	}
	if in.MaxTokens > 0 {
		req.MaxTokens = in.MaxTokens
	}
	if in.Tools != nil {
		req.Operation = transport.OpSessionRun
		req.SessionID = in.Tools.SessionID
		req.JSONMode = false
		req.Timeout = c.config.Session.RunTimeout
	}

	resp, err := c.handler.Handle(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

// CreateSession creates a persistent session bound to knowledgeSourceID and
// returns its opaque handle.
func (c *Client) CreateSession(ctx context.Context, knowledgeSourceID string) (string, error) {
	resp, err := c.handler.Handle(ctx, &transport.Request{
		Operation:         transport.OpCreateSession,
		Provider:          c.config.Provider,
		Model:             c.config.Model,
		SystemPrompt:      SessionInstructions,
		KnowledgeSourceID: knowledgeSourceID,
		SessionName:       c.config.Session.Name,
		Temperature:       c.config.Temperature,
		Timeout:           c.config.Timeout,
	})
	if err != nil {
		return "", err
	}
	if resp.ResourceID == "" {
		return "", ErrEmptySession
	}
	c.logger.Info("session created", "session_id", resp.ResourceID, "knowledge_source_id", knowledgeSourceID)
	return resp.ResourceID, nil
}

// RetryStats reports the retry activity of this client.
func (c *Client) RetryStats() retry.Stats {
	return c.retrier.Stats()
}

// SessionInstructions are the standing instructions of every created session.
const SessionInstructions = "You are a study mentor for History. Answer only from the attached study material " +
	"using the file search tool. Quote the material verbatim in double quotes to support every claim. " +
	"If the material does not cover the question, reply exactly: Not found in the provided study material."

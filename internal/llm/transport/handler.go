// Package transport defines the request/response pipeline every generation
// call flows through: a core handler that talks HTTP to a provider, wrapped by
// composable middleware for logging and retries.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// ErrNoHandler is returned by Mux for operations without a registered handler.
var ErrNoHandler = errors.New("no handler for operation")

// Router selects the adapter for a provider/model pair.
type Router interface {
	Pick(provider, model string) (ProviderAdapter, error)
}

// ProviderAdapter translates between normalized requests and one provider's
// HTTP API. Adapters only cover calls that complete in a single round trip.
type ProviderAdapter interface {
	Build(ctx context.Context, req *Request) (*http.Request, error)
	Parse(req *Request, httpResp *http.Response) (*Response, error)
	Name() string
}

// Handler processes generation requests through a composable pipeline.
type Handler interface {
	Handle(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, *Request) (*Response, error)

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Middleware transforms a Handler into an enhanced Handler.
type Middleware func(Handler) Handler

// Chain builds a middleware pipeline around a core handler. The first
// middleware is outermost.
func Chain(h Handler, middlewares ...Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// Mux dispatches requests to a handler per operation.
type Mux map[OperationType]Handler

// Handle implements Handler.
func (m Mux) Handle(ctx context.Context, req *Request) (*Response, error) {
	h, ok := m[req.Operation]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, req.Operation)
	}
	return h.Handle(ctx, req)
}

// NewHTTPHandler creates the core handler that performs single round-trip
// provider calls.
func NewHTTPHandler(client *http.Client, router Router) Handler {
	return &httpHandler{
		client: client,
		router: router,
		logger: slog.Default().With("component", "transport"),
	}
}

type httpHandler struct {
	client *http.Client
	router Router
	logger *slog.Logger
}

// Handle implements Handler by making one HTTP request to the provider.
// The per-request timeout is applied here, so it also bounds body reads.
func (h *httpHandler) Handle(ctx context.Context, req *Request) (*Response, error) {
	adapter, err := h.router.Pick(req.Provider, req.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to select provider: %w", err)
	}

	reqCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := adapter.Build(reqCtx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	start := time.Now()
	httpResp, err := h.client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() {
		if closeErr := httpResp.Body.Close(); closeErr != nil {
			h.logger.Debug("closing response body", "error", closeErr)
		}
	}()

	resp, err := adapter.Parse(req, httpResp)
	if err != nil {
		return nil, err
	}
	resp.Usage.LatencyMs = latency.Milliseconds()
	return resp, nil
}

package transport_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-mentor/internal/llm/transport"
)

// echoAdapter posts the request content and returns the body as content.
type echoAdapter struct {
	endpoint string
}

func (a *echoAdapter) Name() string { return "echo" }

func (a *echoAdapter) Build(ctx context.Context, req *transport.Request) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, strings.NewReader(req.Content))
}

func (a *echoAdapter) Parse(_ *transport.Request, httpResp *http.Response) (*transport.Response, error) {
	b, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	return &transport.Response{Content: string(b)}, nil
}

type staticRouter struct {
	adapter transport.ProviderAdapter
	err     error
}

func (r staticRouter) Pick(string, string) (transport.ProviderAdapter, error) { return r.adapter, r.err }

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) transport.Middleware {
		return func(next transport.Handler) transport.Handler {
			return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
				order = append(order, name+":before")
				resp, err := next.Handle(ctx, req)
				order = append(order, name+":after")
				return resp, err
			})
		}
	}
	core := transport.HandlerFunc(func(context.Context, *transport.Request) (*transport.Response, error) {
		order = append(order, "core")
		return &transport.Response{Content: "ok"}, nil
	})

	resp, err := transport.Chain(core, mw("outer"), mw("inner")).Handle(context.Background(), &transport.Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, []string{"outer:before", "inner:before", "core", "inner:after", "outer:after"}, order)
}

func TestMux_Dispatch(t *testing.T) {
	mux := transport.Mux{
		transport.OpGeneration: transport.HandlerFunc(func(context.Context, *transport.Request) (*transport.Response, error) {
			return &transport.Response{Content: "generated"}, nil
		}),
	}

	resp, err := mux.Handle(context.Background(), &transport.Request{Operation: transport.OpGeneration})
	require.NoError(t, err)
	assert.Equal(t, "generated", resp.Content)

	_, err = mux.Handle(context.Background(), &transport.Request{Operation: transport.OpSessionRun})
	assert.ErrorIs(t, err, transport.ErrNoHandler)
}

func TestHTTPHandler_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = json.NewEncoder(w).Encode(string(b))
	}))
	defer srv.Close()

	h := transport.NewHTTPHandler(srv.Client(), staticRouter{adapter: &echoAdapter{endpoint: srv.URL}})
	resp, err := h.Handle(context.Background(), &transport.Request{Content: "who built the Qutub Minar?"})
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "who built the Qutub Minar?")
	assert.GreaterOrEqual(t, resp.Usage.LatencyMs, int64(0))
}

func TestHTTPHandler_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	h := transport.NewHTTPHandler(srv.Client(), staticRouter{adapter: &echoAdapter{endpoint: srv.URL}})
	_, err := h.Handle(context.Background(), &transport.Request{Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPHandler_RouterError(t *testing.T) {
	routeErr := errors.New("unknown provider")
	h := transport.NewHTTPHandler(http.DefaultClient, staticRouter{err: routeErr})

	_, err := h.Handle(context.Background(), &transport.Request{Provider: "nope"})
	assert.ErrorIs(t, err, routeErr)
}

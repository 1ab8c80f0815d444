package llm

import (
	"context"

	llmerrors "github.com/ahrav/go-mentor/internal/llm/errors"
	"github.com/ahrav/go-mentor/internal/llm/retry"
)

// Outcome is the result of a call that never surfaces raw errors: on failure
// Text holds the fixed user message for the failure class.
type Outcome struct {
	Text  string
	Err   error
	Class llmerrors.Class
}

// Failed reports whether the call failed after its retries.
func (o Outcome) Failed() bool { return o.Err != nil }

// Gateway turns generation failures into user-facing messages.
type Gateway struct {
	gen Generator
}

// NewGateway wraps gen.
func NewGateway(gen Generator) *Gateway {
	return &Gateway{gen: gen}
}

// Ask performs one call. Callers always receive displayable text.
func (g *Gateway) Ask(ctx context.Context, req GenerateRequest) Outcome {
	text, err := g.gen.Generate(ctx, req)
	if err != nil {
		return Outcome{
			Text:  retry.UserMessage(err),
			Err:   err,
			Class: llmerrors.Classify(err),
		}
	}
	return Outcome{Text: text}
}

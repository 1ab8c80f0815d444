// Package answer implements the evidence-gated answer engine. A generated
// answer is only returned when it quotes the study material; anything else
// collapses to the refusal sentinel. Long-form requests must also carry a
// fixed set of sections and get exactly one reformat attempt when they
// don't.
package answer

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/ahrav/go-mentor/internal/detect"
	"github.com/ahrav/go-mentor/internal/domain"
	"github.com/ahrav/go-mentor/internal/llm"
	llmerrors "github.com/ahrav/go-mentor/internal/llm/errors"
	"github.com/ahrav/go-mentor/internal/llm/retry"
	"github.com/ahrav/go-mentor/internal/session"
)

// MinQuestionLength is the shortest question, in characters, that is answered.
const MinQuestionLength = 2

// Sessions supplies the session handle used for retrieval.
type Sessions interface {
	Handle(ctx context.Context) (string, error)
	Invalidate()
}

// Engine answers questions from the study material.
type Engine struct {
	gateway   *llm.Gateway
	sessions  Sessions
	detectors *detect.Set
	logger    *slog.Logger
}

// New creates an engine. sessions may be nil, in which case generation runs
// without retrieval and the evidence gate still applies.
func New(gen llm.Generator, sessions Sessions, detectors *detect.Set) *Engine {
	if detectors == nil {
		detectors = detect.NewSet()
	}
	return &Engine{
		gateway:   llm.NewGateway(gen),
		sessions:  sessions,
		detectors: detectors,
		logger:    slog.Default().With("component", "answer"),
	}
}

// Answer returns a grounded answer, the refusal sentinel, or a fixed failure
// message. It never returns an error.
func (e *Engine) Answer(ctx context.Context, question string) domain.EvidenceCheckResult {
	question = strings.TrimSpace(question)
	if utf8.RuneCountInString(question) < MinQuestionLength {
		return domain.EvidenceCheckResult{Text: domain.ShortQuestionMessage, Reason: domain.ReasonShortQuestion}
	}

	structured := e.detectors.IsStructuredRequest(question)
	tools, failure, ok := e.retrievalTool(ctx)
	if !ok {
		return failure
	}

	out := e.gateway.Ask(ctx, llm.GenerateRequest{
		System:  systemPrompt(structured),
		Content: question,
		Tools:   tools,
	})
	if out.Failed() {
		e.onFailure(out)
		return domain.EvidenceCheckResult{Text: out.Text, Reason: domain.ReasonServiceFailure}
	}

	if reason := gate(out.Text); reason != domain.ReasonGrounded {
		e.logger.Info("answer rejected by evidence gate", "reason", reason, "structured", structured)
		return domain.Refusal(reason)
	}
	if !structured {
		return domain.EvidenceCheckResult{Passed: true, Text: out.Text, Reason: domain.ReasonGrounded}
	}

	missing := MissingSections(out.Text)
	if len(missing) == 0 {
		return domain.EvidenceCheckResult{Passed: true, Text: out.Text, Reason: domain.ReasonGrounded}
	}
	return e.reformat(ctx, out.Text, missing)
}

// reformat issues the single restructuring call and re-applies every gate.
func (e *Engine) reformat(ctx context.Context, text string, missing []Section) domain.EvidenceCheckResult {
	e.logger.Info("structured answer missing sections, reformatting", "missing", missing)

	out := e.gateway.Ask(ctx, llm.GenerateRequest{
		System:  reformatRules,
		Content: reformatContent(text, missing),
	})
	if out.Failed() {
		e.onFailure(out)
		return domain.EvidenceCheckResult{Text: out.Text, Reason: domain.ReasonServiceFailure}
	}

	if reason := gate(out.Text); reason != domain.ReasonGrounded {
		e.logger.Info("reformatted answer rejected by evidence gate", "reason", reason)
		return domain.Refusal(reason)
	}
	if still := MissingSections(out.Text); len(still) > 0 {
		e.logger.Info("reformatted answer still missing sections", "missing", still)
		return domain.Refusal(domain.ReasonFormatMissing)
	}
	return domain.EvidenceCheckResult{Passed: true, Text: out.Text, Reason: domain.ReasonGrounded, Reformatted: true}
}

func (e *Engine) retrievalTool(ctx context.Context) (*llm.RetrievalToolRef, domain.EvidenceCheckResult, bool) {
	if e.sessions == nil {
		return nil, domain.EvidenceCheckResult{}, true
	}
	handle, err := e.sessions.Handle(ctx)
	switch {
	case errors.Is(err, session.ErrNoKnowledgeSource):
		e.logger.Warn("no knowledge source configured, answering without retrieval")
		return nil, domain.EvidenceCheckResult{}, true
	case err != nil:
		e.logger.Error("failed to obtain session", "error", err)
		return nil, domain.EvidenceCheckResult{Text: retry.UserMessage(err), Reason: domain.ReasonServiceFailure}, false
	}
	return &llm.RetrievalToolRef{SessionID: handle}, domain.EvidenceCheckResult{}, true
}

// onFailure drops the session when the provider no longer knows it, so the
// next question binds a fresh one.
func (e *Engine) onFailure(out llm.Outcome) {
	if e.sessions != nil && llmerrors.StatusCode(out.Err) == http.StatusNotFound {
		e.sessions.Invalidate()
	}
}

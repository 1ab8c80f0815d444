// Package scoring evaluates written answers against a fixed five-dimension
// rubric. The heavy lifting is delegated to the generation service under a
// JSON contract; this package owns everything that must hold regardless of
// what the service returns: marker inference, the readability and scope
// gates, score clamping, the nonzero floor for genuine attempts, and
// rendering.
package scoring

import (
	"context"
	"log/slog"

	"github.com/ahrav/go-mentor/internal/domain"
	"github.com/ahrav/go-mentor/internal/llm"
	"github.com/ahrav/go-mentor/internal/readability"
)

// Outcome names how an evaluation ended.
type Outcome string

// Evaluation outcomes.
const (
	OutcomeScored         Outcome = "scored"
	OutcomeBlank          Outcome = "blank"
	OutcomeUnreadable     Outcome = "unreadable"
	OutcomeOutOfScope     Outcome = "out_of_scope"
	OutcomeServiceFailure Outcome = "service_failure"
	OutcomeInvalidVerdict Outcome = "invalid_verdict"
)

// Submission is an answer to evaluate.
type Submission struct {
	Text string                `json:"text"`
	Hint string                `json:"hint,omitempty"`
	Mode domain.ExtractionMode `json:"mode"`
}

// Evaluation is the result of one evaluation. Text is always displayable.
type Evaluation struct {
	Outcome Outcome             `json:"outcome"`
	Text    string              `json:"text"`
	Level   domain.MarkerLevel  `json:"level,omitempty"`
	Score   *domain.RubricScore `json:"score,omitempty"`
	// Floored is true when the nonzero floor raised the delegated total.
	Floored bool `json:"floored,omitempty"`
	// Err carries the service failure behind OutcomeServiceFailure.
	Err error `json:"-"`
}

// Scored reports whether the evaluation produced a score.
func (e Evaluation) Scored() bool { return e.Outcome == OutcomeScored }

// Engine scores submissions.
type Engine struct {
	gateway    *llm.Gateway
	classifier *readability.Classifier
	cfg        Config
	logger     *slog.Logger
}

// New creates a scoring engine.
func New(gen llm.Generator, classifier *readability.Classifier, cfg Config) *Engine {
	if classifier == nil {
		classifier = readability.New(readability.DefaultConfig())
	}
	return &Engine{
		gateway:    llm.NewGateway(gen),
		classifier: classifier,
		cfg:        cfg.withDefaults(),
		logger:     slog.Default().With("component", "scoring"),
	}
}

// Evaluate scores sub. Zero credit is only possible through the blank,
// unreadable and out-of-scope outcomes, none of which carry a score.
func (e *Engine) Evaluate(ctx context.Context, sub Submission) Evaluation {
	doc := domain.NewExtractedDocument(sub.Text, sub.Mode)
	if doc.Empty() {
		return Evaluation{Outcome: OutcomeBlank, Text: domain.ResubmitMessage}
	}

	if verdict := e.classifier.Assess(doc.Text); verdict.Unreliable {
		e.logger.Info("submission failed readability gate",
			"reason", verdict.Reason,
			"words", verdict.Words,
			"readable_ratio", verdict.ReadableRatio,
			"non_alnum_ratio", verdict.NonAlnumRatio)
		return Evaluation{Outcome: OutcomeUnreadable, Text: domain.UnreadableMessage}
	}

	level := InferMarker(sub.Hint, doc.WordCount)
	out := e.gateway.Ask(ctx, llm.GenerateRequest{
		System:  instructions(e.cfg, level),
		Content: content(sub, level, doc.WordCount),
		JSON:    true,
	})
	if out.Failed() {
		return Evaluation{Outcome: OutcomeServiceFailure, Text: out.Text, Level: level, Err: out.Err}
	}

	v, repaired, err := ParseVerdict(out.Text)
	if err != nil {
		e.logger.Warn("scorer returned an unusable verdict", "level", int(level), "error", err)
		return Evaluation{Outcome: OutcomeInvalidVerdict, Text: domain.ScoringUnavailableMessage, Level: level}
	}
	if repaired {
		e.logger.Info("scorer verdict repaired", "level", int(level))
	}
	if !*v.InScope {
		return Evaluation{Outcome: OutcomeOutOfScope, Text: domain.OutOfScopeMessage, Level: level}
	}

	score := buildScore(v, level)
	floored := false
	if doc.WordCount >= e.cfg.GenuineAttemptWords {
		delegated := score.Total
		if floored = applyFloor(&score, e.cfg.MinimumBand(level)); floored {
			e.logger.Info("raised genuine attempt to minimum band",
				"level", int(level), "delegated_total", delegated, "total", score.Total)
		}
	}

	return Evaluation{
		Outcome: OutcomeScored,
		Text:    Render(score),
		Level:   level,
		Score:   &score,
		Floored: floored,
	}
}

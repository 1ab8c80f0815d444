// Package activity implements the Temporal activities of the durable
// evaluation pipeline: extracting a submission and scoring it.
package activity

import (
	"context"
	"fmt"

	"github.com/ahrav/go-mentor/internal/domain"
	"github.com/ahrav/go-mentor/internal/scoring"
	"github.com/ahrav/go-mentor/internal/store"
	base "github.com/ahrav/go-mentor/pkg/activity"
	"github.com/ahrav/go-mentor/pkg/events"
)

// Event types emitted by the activities.
const (
	EventSubmissionExtracted = "extraction.submission_extracted"
	EventSubmissionScored    = "scoring.submission_scored"
)

// Extractor turns a raw submission into text.
type Extractor interface {
	Extract(ctx context.Context, sub domain.RawSubmission) (domain.ExtractedDocument, error)
}

// Scorer evaluates an extracted answer.
type Scorer interface {
	Evaluate(ctx context.Context, sub scoring.Submission) scoring.Evaluation
}

// Activities holds the collaborators of the evaluation activities. Register
// its methods individually with the worker.
type Activities struct {
	base      base.BaseActivities
	extractor Extractor
	scorer    Scorer
	store     store.SubmissionStore
}

// NewActivities creates the activity set. submissions may be nil.
func NewActivities(b base.BaseActivities, extractor Extractor, scorer Scorer, submissions store.SubmissionStore) *Activities {
	return &Activities{base: b, extractor: extractor, scorer: scorer, store: submissions}
}

// ExtractInput is the input of ExtractSubmission.
type ExtractInput struct {
	Sender     string               `json:"sender,omitempty"`
	Submission domain.RawSubmission `json:"submission"`
}

// ScoreInput is the input of ScoreSubmission.
type ScoreInput struct {
	Document domain.ExtractedDocument `json:"document"`
	Hint     string                   `json:"hint,omitempty"`
}

// Validate checks that there is text to score.
func (in ScoreInput) Validate() error {
	if in.Document.Empty() {
		return fmt.Errorf("%w: document has no text", ErrActivityValidation)
	}
	if in.Document.WordCount != domain.CountWords(in.Document.Text) {
		return fmt.Errorf("%w: word count %d does not match text", ErrActivityValidation, in.Document.WordCount)
	}
	return nil
}

type extractedPayload struct {
	Mode      domain.ExtractionMode `json:"mode"`
	WordCount int                   `json:"word_count"`
}

type scoredPayload struct {
	Outcome scoring.Outcome    `json:"outcome"`
	Level   domain.MarkerLevel `json:"level,omitempty"`
	Total   int                `json:"total,omitempty"`
	Floored bool               `json:"floored,omitempty"`
}

func (a *Activities) emit(ctx context.Context, eventType, source string, payload any) {
	wfCtx := a.base.GetWorkflowContext(ctx)
	env, err := events.NewEnvelope(eventType, source, wfCtx.Ref(), payload)
	if err != nil {
		base.SafeLogError(ctx, "failed to build event", "event_type", eventType, "error", err)
		return
	}
	a.base.EmitEventSafe(ctx, env)
}

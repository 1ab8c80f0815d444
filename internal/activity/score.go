package activity

import (
	"context"

	llmerrors "github.com/ahrav/go-mentor/internal/llm/errors"
	"github.com/ahrav/go-mentor/internal/scoring"
	base "github.com/ahrav/go-mentor/pkg/activity"
)

// ScoreSubmission evaluates an extracted answer. Transient generation
// failures are returned as retryable errors carrying the user-visible
// message; every other outcome, including terminal service failures, is a
// successful result whose Text is ready to show.
func (a *Activities) ScoreSubmission(ctx context.Context, in ScoreInput) (*scoring.Evaluation, error) {
	if err := in.Validate(); err != nil {
		return nil, nonRetryable(ErrTypeValidation, err, "invalid input")
	}

	a.base.RecordHeartbeat(ctx, "scoring")
	eval := a.scorer.Evaluate(ctx, scoring.Submission{
		Text: in.Document.Text,
		Hint: in.Hint,
		Mode: in.Document.Mode,
	})

	if eval.Outcome == scoring.OutcomeServiceFailure {
		if wfErr := llmerrors.ClassifyLLMError(eval.Err); wfErr != nil && wfErr.ShouldRetry() {
			return nil, retryable(ErrTypeServiceUnavailable, eval.Err, wfErr.Message, eval.Text)
		}
		base.SafeLogError(ctx, "scoring failed", "error", eval.Err)
	}

	payload := scoredPayload{Outcome: eval.Outcome, Level: eval.Level, Floored: eval.Floored}
	if eval.Score != nil {
		payload.Total = eval.Score.Total
	}
	a.emit(ctx, EventSubmissionScored, "scoring-activity", payload)
	return &eval, nil
}

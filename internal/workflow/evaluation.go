package workflow

import (
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/ahrav/go-mentor/internal/activity"
	"github.com/ahrav/go-mentor/internal/domain"
	"github.com/ahrav/go-mentor/internal/scoring"
)

// Activity timeouts.
const (
	ExtractTimeout = 3 * time.Minute
	ScoreTimeout   = 5 * time.Minute
)

// TaskQueue is the default task queue for evaluation workers.
const TaskQueue = "mentor-evaluation"

// EvaluationInput is the input of EvaluationWorkflow.
type EvaluationInput struct {
	// Sender keys the last-submission store; it may be empty.
	Sender     string               `json:"sender,omitempty"`
	Submission domain.RawSubmission `json:"submission"`
}

// Validate checks the submission before any activity runs.
func (in EvaluationInput) Validate() error {
	if err := in.Submission.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidEvaluationRequest, err)
	}
	return nil
}

// EvaluationResult is the displayable outcome of an evaluation.
type EvaluationResult struct {
	Outcome   scoring.Outcome     `json:"outcome"`
	Text      string              `json:"text"`
	Level     domain.MarkerLevel  `json:"level,omitempty"`
	Score     *domain.RubricScore `json:"score,omitempty"`
	WordCount int                 `json:"word_count"`
}

// EvaluationWorkflow extracts the submission and scores it. Extraction
// failures end with the resubmission message and transient scoring failures
// that outlast the retry policy end with the service message; neither is a
// workflow error. Only invalid input fails the workflow.
func EvaluationWorkflow(ctx workflow.Context, in EvaluationInput) (*EvaluationResult, error) {
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, "evaluation.v", workflow.DefaultVersion, currentVersion)

	if err := in.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(
			"invalid evaluation request",
			activity.ErrTypeValidation,
			err,
		)
	}

	logger := workflow.GetLogger(ctx)
	var a *activity.Activities

	extractCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: ExtractTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        30 * time.Second,
			MaximumAttempts:        2,
			NonRetryableErrorTypes: []string{activity.ErrTypeValidation, activity.ErrTypeExtraction},
		},
	})
	var doc domain.ExtractedDocument
	err := workflow.ExecuteActivity(extractCtx, a.ExtractSubmission, activity.ExtractInput{
		Sender:     in.Sender,
		Submission: in.Submission,
	}).Get(ctx, &doc)
	if err != nil {
		logger.Warn("extraction failed", "error", err)
		return &EvaluationResult{Outcome: scoring.OutcomeBlank, Text: domain.ResubmitMessage}, nil
	}
	if doc.Empty() {
		return &EvaluationResult{Outcome: scoring.OutcomeBlank, Text: domain.ResubmitMessage}, nil
	}

	scoreCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: ScoreTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        5 * time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{activity.ErrTypeValidation},
		},
	})
	var eval scoring.Evaluation
	err = workflow.ExecuteActivity(scoreCtx, a.ScoreSubmission, activity.ScoreInput{
		Document: doc,
		Hint:     in.Submission.Caption,
	}).Get(ctx, &eval)
	if err != nil {
		logger.Error("scoring failed", "error", err)
		return &EvaluationResult{
			Outcome:   scoring.OutcomeServiceFailure,
			Text:      failureMessage(err),
			WordCount: doc.WordCount,
		}, nil
	}

	return &EvaluationResult{
		Outcome:   eval.Outcome,
		Text:      eval.Text,
		Level:     eval.Level,
		Score:     eval.Score,
		WordCount: doc.WordCount,
	}, nil
}

// failureMessage recovers the user message attached to a retryable scoring
// failure.
func failureMessage(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.HasDetails() {
		var msg string
		if appErr.Details(&msg) == nil && msg != "" {
			return msg
		}
	}
	return domain.UnexpectedFailureMessage
}

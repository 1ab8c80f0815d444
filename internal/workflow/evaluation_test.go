package workflow

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/ahrav/go-mentor/internal/activity"
	"github.com/ahrav/go-mentor/internal/domain"
	llmerrors "github.com/ahrav/go-mentor/internal/llm/errors"
	"github.com/ahrav/go-mentor/internal/scoring"
	"github.com/ahrav/go-mentor/internal/store"
	base "github.com/ahrav/go-mentor/pkg/activity"
)

type textExtractor struct{ mode domain.ExtractionMode }

func (e textExtractor) Extract(_ context.Context, sub domain.RawSubmission) (domain.ExtractedDocument, error) {
	return domain.NewExtractedDocument(string(sub.Bytes), e.mode), nil
}

type countingScorer struct {
	calls atomic.Int32
	eval  func(sub scoring.Submission) scoring.Evaluation
}

func (s *countingScorer) Evaluate(_ context.Context, sub scoring.Submission) scoring.Evaluation {
	s.calls.Add(1)
	return s.eval(sub)
}

func newEnv(t *testing.T, acts *activity.Activities) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivity(acts.ExtractSubmission)
	env.RegisterActivity(acts.ScoreSubmission)
	return env
}

func imageInput(text string) EvaluationInput {
	return EvaluationInput{
		Sender:     "student-1",
		Submission: domain.RawSubmission{Kind: domain.KindImage, Bytes: []byte(text), Caption: "15 marker"},
	}
}

func TestEvaluationWorkflow(t *testing.T) {
	answer := "The Regulating Act of 1773 created the office of Governor-General of Bengal."

	t.Run("extracts and scores", func(t *testing.T) {
		scorer := &countingScorer{eval: func(sub scoring.Submission) scoring.Evaluation {
			return scoring.Evaluation{
				Outcome: scoring.OutcomeScored,
				Text:    "Evaluation (15 marker)",
				Level:   domain.Marker15,
				Score:   &domain.RubricScore{Level: domain.Marker15, Total: 8},
			}
		}}
		submissions := store.NewMemoryStore()
		acts := activity.NewActivities(base.NewBaseActivities(nil), textExtractor{mode: domain.ModeOCR}, scorer, submissions)
		env := newEnv(t, acts)

		env.ExecuteWorkflow(EvaluationWorkflow, imageInput(answer))
		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())

		var result EvaluationResult
		require.NoError(t, env.GetWorkflowResult(&result))
		assert.Equal(t, scoring.OutcomeScored, result.Outcome)
		assert.Equal(t, "Evaluation (15 marker)", result.Text)
		assert.Equal(t, domain.Marker15, result.Level)
		require.NotNil(t, result.Score)
		assert.Equal(t, 8, result.Score.Total)
		assert.Equal(t, domain.CountWords(answer), result.WordCount)

		stored, ok, err := submissions.Get(context.Background(), "student-1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, answer, stored.Text)
	})

	t.Run("invalid input fails without retries", func(t *testing.T) {
		acts := activity.NewActivities(base.NewBaseActivities(nil), textExtractor{}, &countingScorer{}, nil)
		env := newEnv(t, acts)

		env.ExecuteWorkflow(EvaluationWorkflow, EvaluationInput{})
		require.True(t, env.IsWorkflowCompleted())

		err := env.GetWorkflowError()
		require.Error(t, err)
		var appErr *temporal.ApplicationError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, activity.ErrTypeValidation, appErr.Type())
		assert.True(t, appErr.NonRetryable())
	})

	t.Run("blank extraction asks for resubmission", func(t *testing.T) {
		scorer := &countingScorer{}
		acts := activity.NewActivities(base.NewBaseActivities(nil), textExtractor{}, scorer, nil)
		env := newEnv(t, acts)

		env.ExecuteWorkflow(EvaluationWorkflow, imageInput("   \n  "))
		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())

		var result EvaluationResult
		require.NoError(t, env.GetWorkflowResult(&result))
		assert.Equal(t, scoring.OutcomeBlank, result.Outcome)
		assert.Equal(t, domain.ResubmitMessage, result.Text)
		assert.Zero(t, scorer.calls.Load())
	})

	t.Run("transient failures are retried then reported", func(t *testing.T) {
		scorer := &countingScorer{eval: func(scoring.Submission) scoring.Evaluation {
			return scoring.Evaluation{
				Outcome: scoring.OutcomeServiceFailure,
				Text:    domain.RateLimitedMessage,
				Err:     &llmerrors.RateLimitError{Provider: "openai"},
			}
		}}
		acts := activity.NewActivities(base.NewBaseActivities(nil), textExtractor{}, scorer, nil)
		env := newEnv(t, acts)

		env.ExecuteWorkflow(EvaluationWorkflow, imageInput(answer))
		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())

		var result EvaluationResult
		require.NoError(t, env.GetWorkflowResult(&result))
		assert.Equal(t, scoring.OutcomeServiceFailure, result.Outcome)
		assert.Equal(t, domain.RateLimitedMessage, result.Text)
		assert.Equal(t, int32(3), scorer.calls.Load())
	})

	t.Run("terminal failures are not retried", func(t *testing.T) {
		scorer := &countingScorer{eval: func(scoring.Submission) scoring.Evaluation {
			return scoring.Evaluation{
				Outcome: scoring.OutcomeServiceFailure,
				Text:    "Answer service error (status 401). Please check the API key/model and try again.",
				Err:     &llmerrors.ProviderError{Provider: "openai", StatusCode: 401, Type: llmerrors.ErrorTypeAuth},
			}
		}}
		acts := activity.NewActivities(base.NewBaseActivities(nil), textExtractor{}, scorer, nil)
		env := newEnv(t, acts)

		env.ExecuteWorkflow(EvaluationWorkflow, imageInput(answer))
		require.NoError(t, env.GetWorkflowError())

		var result EvaluationResult
		require.NoError(t, env.GetWorkflowResult(&result))
		assert.Contains(t, result.Text, "status 401")
		assert.Equal(t, int32(1), scorer.calls.Load())
	})
}

func TestEvaluationWorkflowDeterminism(t *testing.T) {
	scorer := &countingScorer{eval: func(sub scoring.Submission) scoring.Evaluation {
		return scoring.Evaluation{Outcome: scoring.OutcomeScored, Text: "scored " + sub.Hint}
	}}
	acts := activity.NewActivities(base.NewBaseActivities(nil), textExtractor{}, scorer, nil)

	var results []string
	for range 3 {
		env := newEnv(t, acts)
		env.ExecuteWorkflow(EvaluationWorkflow, imageInput("Battle of Plassey 1757"))
		require.NoError(t, env.GetWorkflowError())
		var result EvaluationResult
		require.NoError(t, env.GetWorkflowResult(&result))
		results = append(results, result.Text)
	}
	for _, r := range results[1:] {
		assert.Equal(t, results[0], r)
	}
}

func TestFailureMessage(t *testing.T) {
	withDetails := temporal.NewApplicationError("rate limited", activity.ErrTypeServiceUnavailable, domain.RateLimitedMessage)
	assert.Equal(t, domain.RateLimitedMessage, failureMessage(withDetails))

	bare := temporal.NewApplicationError("boom", "Other")
	assert.Equal(t, domain.UnexpectedFailureMessage, failureMessage(bare))
}

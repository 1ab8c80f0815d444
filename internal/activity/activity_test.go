package activity

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"

	"github.com/ahrav/go-mentor/internal/domain"
	llmerrors "github.com/ahrav/go-mentor/internal/llm/errors"
	"github.com/ahrav/go-mentor/internal/scoring"
	"github.com/ahrav/go-mentor/internal/store"
	base "github.com/ahrav/go-mentor/pkg/activity"
	"github.com/ahrav/go-mentor/pkg/events"
)

type stubExtractor struct {
	doc domain.ExtractedDocument
	err error
}

func (s stubExtractor) Extract(context.Context, domain.RawSubmission) (domain.ExtractedDocument, error) {
	return s.doc, s.err
}

type stubScorer struct {
	eval scoring.Evaluation
	got  []scoring.Submission
}

func (s *stubScorer) Evaluate(_ context.Context, sub scoring.Submission) scoring.Evaluation {
	s.got = append(s.got, sub)
	return s.eval
}

type recordingSink struct {
	mu     sync.Mutex
	events []events.Envelope
}

func (r *recordingSink) Append(_ context.Context, e events.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func validSubmission() domain.RawSubmission {
	return domain.RawSubmission{Kind: domain.KindImage, Bytes: []byte{0x89, 'P', 'N', 'G'}, Caption: "15 marker"}
}

func requireAppError(t *testing.T, err error, errType string, nonRetryable bool) *temporal.ApplicationError {
	t.Helper()
	var appErr *temporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errType, appErr.Type())
	assert.Equal(t, nonRetryable, appErr.NonRetryable())
	return appErr
}

func TestExtractSubmission(t *testing.T) {
	ctx := context.Background()
	doc := domain.NewExtractedDocument("The Permanent Settlement of 1793 fixed land revenue.", domain.ModeOCR)

	t.Run("invalid submission is not retried", func(t *testing.T) {
		acts := NewActivities(base.NewBaseActivities(nil), stubExtractor{doc: doc}, &stubScorer{}, nil)
		_, err := acts.ExtractSubmission(ctx, ExtractInput{Submission: domain.RawSubmission{Kind: domain.KindPDF}})
		requireAppError(t, err, ErrTypeValidation, true)
	})

	t.Run("extractor error is not retried", func(t *testing.T) {
		acts := NewActivities(base.NewBaseActivities(nil), stubExtractor{err: errors.New("boom")}, &stubScorer{}, nil)
		_, err := acts.ExtractSubmission(ctx, ExtractInput{Submission: validSubmission()})
		requireAppError(t, err, ErrTypeExtraction, true)
	})

	t.Run("stores the document as the last submission", func(t *testing.T) {
		submissions := store.NewMemoryStore()
		sink := &recordingSink{}
		acts := NewActivities(base.NewBaseActivities(sink), stubExtractor{doc: doc}, &stubScorer{}, submissions)

		got, err := acts.ExtractSubmission(ctx, ExtractInput{Sender: "s1", Submission: validSubmission()})
		require.NoError(t, err)
		assert.Equal(t, doc, got)

		stored, ok, err := submissions.Get(ctx, "s1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, doc, stored)

		require.Len(t, sink.events, 1)
		assert.Equal(t, EventSubmissionExtracted, sink.events[0].Type)
	})

	t.Run("empty document is returned but not stored", func(t *testing.T) {
		submissions := store.NewMemoryStore()
		empty := domain.NewExtractedDocument("", domain.ModeOCR)
		acts := NewActivities(base.NewBaseActivities(nil), stubExtractor{doc: empty}, &stubScorer{}, submissions)

		got, err := acts.ExtractSubmission(ctx, ExtractInput{Sender: "s1", Submission: validSubmission()})
		require.NoError(t, err)
		assert.True(t, got.Empty())

		_, ok, err := submissions.Get(ctx, "s1")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestScoreSubmission(t *testing.T) {
	ctx := context.Background()
	doc := domain.NewExtractedDocument("The Permanent Settlement of 1793 fixed land revenue.", domain.ModeTyped)

	t.Run("rejects empty and inconsistent documents", func(t *testing.T) {
		acts := NewActivities(base.NewBaseActivities(nil), stubExtractor{}, &stubScorer{}, nil)

		_, err := acts.ScoreSubmission(ctx, ScoreInput{})
		requireAppError(t, err, ErrTypeValidation, true)

		bad := doc
		bad.WordCount = 99
		_, err = acts.ScoreSubmission(ctx, ScoreInput{Document: bad})
		requireAppError(t, err, ErrTypeValidation, true)
	})

	t.Run("scored result emits an event", func(t *testing.T) {
		score := &domain.RubricScore{Level: domain.Marker10, Total: 6}
		scorer := &stubScorer{eval: scoring.Evaluation{
			Outcome: scoring.OutcomeScored, Text: "Evaluation (10 marker)", Level: domain.Marker10, Score: score,
		}}
		sink := &recordingSink{}
		acts := NewActivities(base.NewBaseActivities(sink), stubExtractor{}, scorer, nil)

		eval, err := acts.ScoreSubmission(ctx, ScoreInput{Document: doc, Hint: "10 marker"})
		require.NoError(t, err)
		assert.Equal(t, "Evaluation (10 marker)", eval.Text)
		assert.Equal(t, "10 marker", scorer.got[0].Hint)
		assert.Equal(t, domain.ModeTyped, scorer.got[0].Mode)

		require.Len(t, sink.events, 1)
		var payload map[string]any
		require.NoError(t, json.Unmarshal(sink.events[0].Payload, &payload))
		assert.Equal(t, "scored", payload["outcome"])
		assert.InDelta(t, 6, payload["total"], 0)
	})

	t.Run("transient failure is retryable with the user message", func(t *testing.T) {
		scorer := &stubScorer{eval: scoring.Evaluation{
			Outcome: scoring.OutcomeServiceFailure,
			Text:    domain.RateLimitedMessage,
			Err:     &llmerrors.RateLimitError{Provider: "openai", RetryAfter: 3},
		}}
		acts := NewActivities(base.NewBaseActivities(nil), stubExtractor{}, scorer, nil)

		_, err := acts.ScoreSubmission(ctx, ScoreInput{Document: doc})
		appErr := requireAppError(t, err, ErrTypeServiceUnavailable, false)
		require.True(t, appErr.HasDetails())
		var msg string
		require.NoError(t, appErr.Details(&msg))
		assert.Equal(t, domain.RateLimitedMessage, msg)
	})

	t.Run("terminal failure returns the fixed message", func(t *testing.T) {
		scorer := &stubScorer{eval: scoring.Evaluation{
			Outcome: scoring.OutcomeServiceFailure,
			Text:    "Answer service error (status 401). Please check the API key/model and try again.",
			Err: &llmerrors.ProviderError{
				Provider: "openai", StatusCode: 401, Type: llmerrors.ErrorTypeAuth,
			},
		}}
		acts := NewActivities(base.NewBaseActivities(nil), stubExtractor{}, scorer, nil)

		eval, err := acts.ScoreSubmission(ctx, ScoreInput{Document: doc})
		require.NoError(t, err)
		assert.Equal(t, scoring.OutcomeServiceFailure, eval.Outcome)
		assert.Contains(t, eval.Text, "status 401")
	})
}

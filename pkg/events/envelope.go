// Package events defines the envelope used to publish domain events from
// activities and the sinks that receive them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Envelope wraps a domain event with routing and correlation metadata.
type Envelope struct {
	// ID uniquely identifies this emission.
	ID string `json:"id"`
	// Type routes the event, e.g. "scoring.submission_scored".
	Type string `json:"type"`
	// Source names the emitting component.
	Source  string `json:"source"`
	Version string `json:"version"`

	Timestamp time.Time `json:"timestamp"`

	// IdempotencyKey is stable across activity retries so sinks can drop
	// duplicates.
	IdempotencyKey string `json:"idempotency_key"`

	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`

	Payload json.RawMessage `json:"payload"`
}

// Ref identifies the workflow run that produced an event.
type Ref struct {
	WorkflowID string
	RunID      string
}

// NewEnvelope builds an envelope around payload. The idempotency key is
// derived from the workflow id and event type, so a retried activity emits
// the same key.
func NewEnvelope(eventType, source string, ref Ref, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		ID:             uuid.NewString(),
		Type:           eventType,
		Source:         source,
		Version:        "1.0.0",
		Timestamp:      time.Now().UTC(),
		IdempotencyKey: ref.WorkflowID + ":" + eventType,
		WorkflowID:     ref.WorkflowID,
		RunID:          ref.RunID,
		Payload:        data,
	}, nil
}

// EventSink receives events. Append should return quickly; callers treat
// failures as non-fatal.
type EventSink interface {
	Append(ctx context.Context, envelope Envelope) error
}

// NoOpEventSink discards every event.
type NoOpEventSink struct{}

// Append implements EventSink.
func (NoOpEventSink) Append(context.Context, Envelope) error { return nil }

// NewNoOpEventSink creates a sink that discards events.
func NewNoOpEventSink() EventSink {
	return NoOpEventSink{}
}

// LogSink writes events to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink logging at info level. A nil logger selects the
// default logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "events")}
}

// Append implements EventSink.
func (s *LogSink) Append(ctx context.Context, e Envelope) error {
	s.logger.InfoContext(ctx, "event",
		"type", e.Type,
		"source", e.Source,
		"idempotency_key", e.IdempotencyKey,
		"workflow_id", e.WorkflowID,
		"payload", string(e.Payload))
	return nil
}

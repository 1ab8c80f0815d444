// Package activity provides the infrastructure shared by Temporal activity
// implementations: workflow context extraction, best-effort event emission
// and logging that degrades to slog outside an activity context.
package activity

import (
	"context"
	"log/slog"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/ahrav/go-mentor/pkg/events"
)

// WorkflowContext identifies the workflow execution running an activity.
type WorkflowContext struct {
	WorkflowID string
	RunID      string
	ActivityID string
	Attempt    int32
}

// Ref returns the event reference for the execution.
func (w WorkflowContext) Ref() events.Ref {
	return events.Ref{WorkflowID: w.WorkflowID, RunID: w.RunID}
}

// BaseActivities carries the event sink shared by activity types.
type BaseActivities struct {
	eventSink events.EventSink
}

// NewBaseActivities creates a BaseActivities. sink may be nil to disable
// event emission.
func NewBaseActivities(sink events.EventSink) BaseActivities {
	return BaseActivities{eventSink: sink}
}

// GetWorkflowContext extracts execution details from ctx. Outside an activity
// context, where activity.GetInfo panics, it returns fixed local ids.
func (b *BaseActivities) GetWorkflowContext(ctx context.Context) WorkflowContext {
	wfCtx := WorkflowContext{WorkflowID: "local", RunID: "local", ActivityID: "local", Attempt: 1}
	func() {
		defer func() { _ = recover() }()
		info := activity.GetInfo(ctx)
		wfCtx = WorkflowContext{
			WorkflowID: info.WorkflowExecution.ID,
			RunID:      info.WorkflowExecution.RunID,
			ActivityID: info.ActivityID,
			Attempt:    info.Attempt,
		}
	}()
	return wfCtx
}

// EmitEventSafe appends envelope to the sink, retrying once after a short
// delay. Failures are logged and never returned.
func (b *BaseActivities) EmitEventSafe(ctx context.Context, envelope events.Envelope) {
	if b.eventSink == nil {
		return
	}

	const maxAttempts = 2
	const retryDelay = 200 * time.Millisecond

	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				SafeLogError(ctx, "event emission cancelled", "event_type", envelope.Type)
				return
			}
		}
		if lastErr = b.eventSink.Append(ctx, envelope); lastErr == nil {
			return
		}
	}
	SafeLogError(ctx, "failed to emit event",
		"event_type", envelope.Type,
		"attempts", maxAttempts,
		"error", lastErr)
}

// RecordHeartbeat records a heartbeat when running inside an activity.
func (b *BaseActivities) RecordHeartbeat(ctx context.Context, details ...any) {
	RecordHeartbeat(ctx, details...)
}

// SafeLog logs at info level through the activity logger, or through slog
// when ctx is not an activity context.
func SafeLog(ctx context.Context, msg string, keyvals ...any) {
	defer func() {
		if recover() != nil {
			slog.Default().InfoContext(ctx, msg, keyvals...)
		}
	}()
	activity.GetLogger(ctx).Info(msg, keyvals...)
}

// SafeLogError is SafeLog at error level.
func SafeLogError(ctx context.Context, msg string, keyvals ...any) {
	defer func() {
		if recover() != nil {
			slog.Default().ErrorContext(ctx, msg, keyvals...)
		}
	}()
	activity.GetLogger(ctx).Error(msg, keyvals...)
}

// RecordHeartbeat records activity progress; it is a no-op outside an
// activity context.
func RecordHeartbeat(ctx context.Context, details ...any) {
	defer func() { _ = recover() }()
	activity.RecordHeartbeat(ctx, details...)
}

package activity

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-mentor/pkg/events"
)

type flakySink struct {
	failures int32
	calls    atomic.Int32
}

func (s *flakySink) Append(context.Context, events.Envelope) error {
	if s.calls.Add(1) <= s.failures {
		return errors.New("sink unavailable")
	}
	return nil
}

func TestGetWorkflowContext_OutsideActivity(t *testing.T) {
	base := NewBaseActivities(nil)
	wfCtx := base.GetWorkflowContext(context.Background())
	assert.Equal(t, "local", wfCtx.WorkflowID)
	assert.Equal(t, int32(1), wfCtx.Attempt)
	assert.Equal(t, events.Ref{WorkflowID: "local", RunID: "local"}, wfCtx.Ref())
}

func TestEmitEventSafe(t *testing.T) {
	env, err := events.NewEnvelope("test.event", "test", events.Ref{WorkflowID: "wf"}, nil)
	require.NoError(t, err)

	t.Run("retries once", func(t *testing.T) {
		sink := &flakySink{failures: 1}
		base := NewBaseActivities(sink)
		base.EmitEventSafe(context.Background(), env)
		assert.Equal(t, int32(2), sink.calls.Load())
	})

	t.Run("gives up without failing the caller", func(t *testing.T) {
		sink := &flakySink{failures: 10}
		base := NewBaseActivities(sink)
		base.EmitEventSafe(context.Background(), env)
		assert.Equal(t, int32(2), sink.calls.Load())
	})

	t.Run("nil sink", func(t *testing.T) {
		base := NewBaseActivities(nil)
		base.EmitEventSafe(context.Background(), env)
	})
}

func TestSafeHelpersOutsideActivity(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		SafeLog(ctx, "info", "k", "v")
		SafeLogError(ctx, "error", "k", "v")
		RecordHeartbeat(ctx, "progress")
	})
}

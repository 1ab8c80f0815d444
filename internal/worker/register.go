// Package worker registers the evaluation workflow and its activities with a
// Temporal worker.
package worker

import (
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/go-mentor/internal/activity"
	"github.com/ahrav/go-mentor/internal/workflow"
)

// Registry is the subset of a Temporal worker used for registration.
type Registry interface {
	RegisterWorkflow(w any)
	RegisterActivity(a any)
}

var _ Registry = sdkworker.Worker(nil)

// RegisterAll registers the evaluation workflow and activities. Call it once
// before starting the worker.
func RegisterAll(w Registry, acts *activity.Activities) {
	w.RegisterWorkflow(workflow.EvaluationWorkflow)
	w.RegisterActivity(acts.ExtractSubmission)
	w.RegisterActivity(acts.ScoreSubmission)
}

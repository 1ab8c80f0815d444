package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/go-mentor/internal/activity"
	"github.com/ahrav/go-mentor/internal/workflow"
)

// Config locates the Temporal frontend and task queue.
type Config struct {
	HostPort  string `json:"host_port"  yaml:"host_port"`
	Namespace string `json:"namespace"  yaml:"namespace"`
	TaskQueue string `json:"task_queue" yaml:"task_queue"`
}

// DefaultConfig targets a local Temporal development server.
func DefaultConfig() Config {
	return Config{
		HostPort:  client.DefaultHostPort,
		Namespace: client.DefaultNamespace,
		TaskQueue: workflow.TaskQueue,
	}
}

// Dial connects to Temporal with slog-backed SDK logging.
func Dial(cfg Config, logger *slog.Logger) (client.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    newSDKLogger(logger.With("component", "temporal")),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to temporal at %s: %w", cfg.HostPort, err)
	}
	return c, nil
}

// Run starts a worker on cfg.TaskQueue and blocks until ctx is done.
func Run(ctx context.Context, c client.Client, cfg Config, acts *activity.Activities) error {
	w := sdkworker.New(c, cfg.TaskQueue, sdkworker.Options{})
	RegisterAll(w, acts)

	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	<-ctx.Done()
	w.Stop()
	return nil
}

// StartEvaluation starts EvaluationWorkflow and waits for its result.
func StartEvaluation(ctx context.Context, c client.Client, cfg Config, in workflow.EvaluationInput) (*workflow.EvaluationResult, error) {
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "evaluation-" + uuid.NewString(),
		TaskQueue: cfg.TaskQueue,
	}, workflow.EvaluationWorkflow, in)
	if err != nil {
		return nil, fmt.Errorf("failed to start evaluation: %w", err)
	}

	var result workflow.EvaluationResult
	if err := run.Get(ctx, &result); err != nil {
		return nil, fmt.Errorf("evaluation %s failed: %w", run.GetID(), err)
	}
	return &result, nil
}

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-mentor/internal/worker"
)

func newWorkerCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the durable evaluation worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				c, err := worker.Dial(a.cfg.Temporal, slog.Default())
				if err != nil {
					return err
				}
				defer c.Close()

				slog.Info("evaluation worker started", "task_queue", a.cfg.Temporal.TaskQueue)
				return worker.Run(cmd.Context(), c, a.cfg.Temporal, a.activities())
			})
		},
	}
}

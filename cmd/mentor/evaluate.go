package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-mentor/internal/assistant"
	"github.com/ahrav/go-mentor/internal/domain"
	"github.com/ahrav/go-mentor/internal/worker"
	"github.com/ahrav/go-mentor/internal/workflow"
)

func newEvaluateCmd(opts *rootOptions) *cobra.Command {
	var (
		caption string
		sender  string
		durable bool
	)
	cmd := &cobra.Command{
		Use:   "evaluate <file>",
		Short: "Evaluate an answer from a PDF, image or text file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				ev, err := fileEvent(sender, args[0], caption)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()

				if !durable {
					for _, chunk := range a.service.Respond(cmd.Context(), ev, a.cfg.Segment.Limit) {
						fmt.Fprintf(out, "%s\n\n", chunk)
					}
					return nil
				}

				c, err := worker.Dial(a.cfg.Temporal, slog.Default())
				if err != nil {
					return err
				}
				defer c.Close()

				res, err := worker.StartEvaluation(cmd.Context(), c, a.cfg.Temporal, workflow.EvaluationInput{
					Sender: sender,
					Submission: domain.RawSubmission{
						Kind:     domain.KindFromFileName(ev.File.FileName, ev.File.MIMEType),
						Bytes:    ev.File.Data,
						FileName: ev.File.FileName,
						MIMEType: ev.File.MIMEType,
						Caption:  caption,
					},
				})
				if err != nil {
					return err
				}
				for _, chunk := range assistant.Chunks([]string{res.Text}, a.cfg.Segment.Limit) {
					fmt.Fprintf(out, "%s\n\n", chunk)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&caption, "caption", "", "caption sent with the answer, e.g. \"15 marker\"")
	cmd.Flags().StringVar(&sender, "sender", consoleSender, "sender identity for submission history")
	cmd.Flags().BoolVar(&durable, "durable", false, "run the evaluation as a workflow on the evaluation worker")
	return cmd
}

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newKnowledgeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "knowledge",
		Short: "Manage the knowledge source answers are grounded in",
	}
	cmd.AddCommand(
		newKnowledgeCreateCmd(opts),
		newKnowledgeUploadCmd(opts),
		newKnowledgeListCmd(opts),
	)
	return cmd
}

func newKnowledgeCreateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a knowledge source and print its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				id, err := a.index.CreateKnowledgeSource(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				fmt.Fprintln(cmd.ErrOrStderr(), "Set VECTOR_STORE_ID to this id to ground answers in it.")
				return nil
			})
		},
	}
}

func newKnowledgeUploadCmd(opts *rootOptions) *cobra.Command {
	var uploader string
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a document and attach it to the knowledge source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				ev, err := fileEvent(uploader, args[0], "")
				if err != nil {
					return err
				}
				for _, line := range a.service.IngestDocument(cmd.Context(), uploader, *ev.File) {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&uploader, "uploader", consoleSender, "identity recorded in the ingestion ledger")
	return cmd
}

func newKnowledgeListCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent ingestions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				records, err := a.ingestor.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "CREATED\tFILE\tSTATUS\tDOCUMENT\tBY")
				for _, r := range records {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						r.CreatedAt.Format("2006-01-02 15:04"), r.FileName, r.Status, r.DocumentID, r.UploadedBy)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of records, 0 for all")
	return cmd
}

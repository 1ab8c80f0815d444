package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-mentor/internal/mcptool"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve ask_question and evaluate_answer as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				a.startLimiter()
				tools := mcptool.New(a.service, a.cfg.Segment.Limit)
				return mcptool.NewServer(version, tools).Run(cmd.Context(), &mcp.StdioTransport{})
			})
		},
	}
}

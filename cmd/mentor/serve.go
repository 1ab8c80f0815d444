package main

import (
	"github.com/spf13/cobra"

	"github.com/ahrav/go-mentor/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the assistant over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				a.startLimiter()
				cfg := a.cfg.Server
				srv := server.New(server.Config{
					Addr:         cfg.Addr,
					ReadTimeout:  cfg.ReadTimeout,
					WriteTimeout: cfg.WriteTimeout,
					BodyLimit:    cfg.BodyLimit,
					ChunkLimit:   a.cfg.Segment.Limit,
					AdminSecret:  a.cfg.Admin.Secret,
				}, a.service, a.ingestor)
				return srv.Run(cmd.Context())
			})
		},
	}
}

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-mentor/internal/config"
	"github.com/ahrav/go-mentor/internal/logging"
)

type rootOptions struct {
	configPath string
	envFile    string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "mentor",
		Short:         "Grounded History study assistant",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath, opts.envFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if _, err := logging.Setup(cfg.Logging, os.Stderr); err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("MENTOR_CONFIG"), "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	cmd.AddCommand(
		newServeCmd(opts),
		newChatCmd(opts),
		newMCPCmd(opts),
		newWorkerCmd(opts),
		newEvaluateCmd(opts),
		newKnowledgeCmd(opts),
	)
	return cmd
}

// withApp wires the components for one command run and closes them after.
func withApp(cmd *cobra.Command, opts *rootOptions, run func(a *app) error) error {
	a, err := newApp(cmd.Context(), opts.cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return run(a)
}

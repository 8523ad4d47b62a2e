// Package cli wires configuration, storage and HTTP into the content-api
// commands.
package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blogem/content-api/config"
	"github.com/blogem/content-api/logging"
)

// Run executes the command line. With no subcommand the server is started.
func Run(args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.Execute()
}

type rootOptions struct {
	cfgPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "content-api",
		Short:         "Dynamic content API for the shop admin",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.cfgPath, "config", "c", "config.yaml", "config yaml path")
	cmd.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newPruneLogsCmd(opts),
	)
	return cmd
}

// load reads the configuration and builds the logger every command uses.
func (o *rootOptions) load() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(o.cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, log, nil
}

// Package commands defines all Cobra CLI commands for the agrirag binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/farmsight/agrirag/internal/audit"
	"github.com/farmsight/agrirag/internal/config"
	"github.com/farmsight/agrirag/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "agrirag",
		Short: "agrirag — retrieval-augmented agricultural advisory service",
		Long: `agrirag answers farmer questions by combining ingested PDF field
manuals with live sensor telemetry.

Ingest manuals with 'agrirag ingest', start the HTTP API with
'agrirag serve', or ask a one-off question with 'agrirag ask'.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.agrirag/config.yaml).
See 'agrirag --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.agrirag/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewServeCmd(),
		NewIngestCmd(),
		NewVersionCmd(),
	)

	return root
}

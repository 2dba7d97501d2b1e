// Package cli wires the assistant's commands: serve runs the HTTP front end,
// seed imports record fixtures, version prints build information.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/reslab/reslab/config"
	"github.com/reslab/reslab/logging"
)

var (
	cfgFile  string
	logLevel string
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reslab",
		Short: "Research lifecycle management assistant",
		Long: `reslab is a chat assistant that manages research project and people
records through a text-completion model. It exposes a JSON chat endpoint and
persists records in memory or SQLite.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "reslab.yaml", "path to config file")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSeedCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// loadConfig reads the configured file and applies command line overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cfg, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// buildLogger constructs the process logger from the logging section.
func buildLogger(cfg config.Config) *logging.AssistantLogger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
	})
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/caphost/caphost/internal/config"
	"github.com/caphost/caphost/internal/logging"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the caphost CLI.
func NewRootCmd() *cobra.Command {
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "caphost",
		Short: "Caphost - a plugin driver for content plugins",
		Long: `Caphost manages content plugins: it discovers plugin manifests,
supervises plugin processes and maintains a catalogue of the
capabilities they provide.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	cmd.PersistentFlags().String("plugin-dir", defaults.PluginDir, "plugin root directory")
	cmd.PersistentFlags().String("log-level", defaults.LogLevel, "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", defaults.LogFormat, "log format (text, json)")

	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewEnvCmd())
	cmd.AddCommand(NewLoadCmd())

	return cmd
}

// loadConfig builds the effective configuration for a command and
// installs the default logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logging.SetDefault("caphost", version, cfg.LogFormat, logging.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

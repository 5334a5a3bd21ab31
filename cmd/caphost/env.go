package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/caphost/caphost/internal/xdg"
)

// NewEnvCmd creates the env subcommand.
func NewEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Show the driver's effective environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			cmd.Printf("plugin directory:  %s\n", cfg.PluginDir)
			cmd.Printf("config directory:  %s\n", xdg.ConfigDir())
			cmd.Printf("data directory:    %s\n", xdg.DataDir())
			cmd.Printf("log level:         %s\n", cfg.LogLevel)
			cmd.Printf("log format:        %s\n", cfg.LogFormat)
			cmd.Printf("start timeout:     %s\n", cfg.StartTimeout)
			if override := os.Getenv(xdg.PluginDirEnv); override != "" {
				cmd.Printf("%s=%s\n", xdg.PluginDirEnv, override)
			}
			return nil
		},
	}
}

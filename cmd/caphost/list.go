package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/caphost/caphost/pkg/plugin"
)

// NewListCmd creates the list subcommand.
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed plugins",
		Long:  `List the plugins installed in the plugin directory, newest version first.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			store := plugin.NewStore(cfg.PluginDir)
			manifests, err := store.List()
			if err != nil {
				return err
			}
			if len(manifests) == 0 {
				cmd.Printf("no plugins installed in %s\n", cfg.PluginDir)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tVERSION\tTYPE\tENTRY POINT\tDIR")
			for _, m := range manifests {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					m.Name, m.Version, m.ExecutableType, m.EntryPoint, m.Dir)
			}
			return w.Flush()
		},
	}
}

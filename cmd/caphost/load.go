package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/caphost/caphost/internal/logging"
	"github.com/caphost/caphost/pkg/catalogue"
	"github.com/caphost/caphost/pkg/driver"
	"github.com/caphost/caphost/pkg/driver/goplugin"
	"github.com/caphost/caphost/pkg/plugin"
)

// coreEntries are the capabilities provided by the driver itself.
var coreEntries = []catalogue.CoreEntry{
	{Type: catalogue.Interaction, Key: "http", Values: map[string]string{}},
	{Type: catalogue.Interaction, Key: "https", Values: map[string]string{}},
}

// NewLoadCmd creates the load subcommand.
func NewLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <name[/version]>",
		Short: "Start a plugin and show the capabilities it registers",
		Long: `Start the named plugin, run the initialization handshake and print
the resulting catalogue. The plugin is shut down again afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			dep, err := plugin.ParseDependency(args[0])
			if err != nil {
				return err
			}

			childLevel := logging.LevelString(logging.ParseLevel(cfg.LogLevel))
			sup := goplugin.NewSupervisor(
				goplugin.WithLogLevel(childLevel),
				goplugin.WithClientFactory(&goplugin.DefaultClientFactory{
					StartTimeout: cfg.StartTimeout,
				}),
			)
			d := driver.New(plugin.NewStore(cfg.PluginDir), sup,
				driver.WithImplementation("caphost", version))
			defer d.ShutdownAll()

			d.RegisterCoreEntries(coreEntries)

			p, err := d.Load(cmd.Context(), dep)
			if err != nil {
				return err
			}

			cmd.Printf("loaded %s (instance %s)\n", p.Key(), p.ID)
			if addr := p.Addr(); addr != "" {
				cmd.Printf("listening on %s\n", addr)
			}
			cmd.Println()

			entries := d.Catalogue().Entries()
			keys := make([]string, 0, len(entries))
			for key := range entries {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tTYPE\tPROVIDER")
			for _, key := range keys {
				e := entries[key]
				fmt.Fprintf(w, "%s\t%s\t%s\n", key, e.Type, e.Provider)
			}
			return w.Flush()
		},
	}
}

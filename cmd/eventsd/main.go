// Command eventsd serves the typed event store over HTTP.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/typed-eventstore-go/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

type configLoader func() (*config.Config, error)

func newRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "eventsd",
		Short:        "Typed append-only event store",
		Long:         "eventsd validates events against the registered event types, stores them and serves paginated queries.",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config.yaml (default $"+config.EnvConfigDir+"/config.yaml)")

	load := func() (*config.Config, error) {
		return config.Load(configPath)
	}

	rootCmd.AddCommand(
		newServeCommand(load),
		newMigrateCommand(load),
		newTypesCommand(),
		newSeedCommand(load),
		newConfigCommand(load),
	)

	return rootCmd
}

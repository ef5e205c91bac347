package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/typed-eventstore-go/config"
	"github.com/AntonStoeckl/typed-eventstore-go/events"
	"github.com/AntonStoeckl/typed-eventstore-go/eventstore/postgresengine"
)

func newServeCommand(load configLoader) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			addr, _ := cmd.Flags().GetString("addr")
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg, cmd.ErrOrStderr())
		},
	}

	serveCmd.Flags().String("addr", "", "Listen address, overrides server.addr")

	return serveCmd
}

func newMigrateCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the storage schema of the configured backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			return runMigrate(cmd, cfg.Storage)
		},
	}
}

func runMigrate(cmd *cobra.Command, cfg config.StorageConfig) error {
	out := cmd.OutOrStdout()

	switch cfg.Backend {
	case config.BackendPostgres:
		if err := migratePostgres(cmd.Context(), cfg.Postgres.DSN); err != nil {
			return err
		}

	case config.BackendSQLite:
		db, err := sql.Open(driverSQLite, cfg.SQLite.Path)
		if err != nil {
			return fmt.Errorf("failed to open sqlite: %w", err)
		}

		if err := postgresengine.MigrateSQLite(db); err != nil {
			return errors.Join(err, db.Close())
		}

		if err := db.Close(); err != nil {
			return err
		}

	case config.BackendOpenSearch:
		if _, _, err := openOpenSearch(cmd.Context(), cfg.OpenSearch, instrumentation{}); err != nil {
			return err
		}

	case config.BackendMemory, config.BackendRedis:
		_, err := fmt.Fprintf(out, "storage backend %s has no schema\n", cfg.Backend)
		return err

	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedBackend, cfg.Backend)
	}

	_, err := fmt.Fprintf(out, "storage backend %s is up to date\n", cfg.Backend)

	return err
}

func newTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the registered event types and their required payload properties",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printTypes(cmd.OutOrStdout())
		},
	}
}

func printTypes(out io.Writer) error {
	registry := events.NewTypeRegistry()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "EVENT TYPE\tREQUIRED PROPERTIES")

	for _, name := range registry.ListTypes() {
		s, _ := registry.TryGetType(name)

		required := strings.Join(s.RequiredProperties(), ", ")
		if required == "" {
			required = "-"
		}

		fmt.Fprintf(w, "%s\t%s\n", name, required)
	}

	return w.Flush()
}

func newConfigCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML, secrets redacted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			rendered, err := cfg.YAML()
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(rendered)

			return err
		},
	}
}

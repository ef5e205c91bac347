package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/typed-eventstore-go/events"
	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
	"github.com/AntonStoeckl/typed-eventstore-go/testutil/fixtures"
)

var ErrInvalidSeedOptions = errors.New("invalid seed options")

type seedOptions struct {
	count   int
	batch   int
	tenants int
	seed    int64
	types   []string
}

func newSeedCommand(load configLoader) *cobra.Command {
	var opts seedOptions

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the configured backend with generated events",
		Long: "seed writes fake events of the registered types in batches, spread over several iTwins and accounts. " +
			"Payloads are deterministic for a given --seed.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			repo, closer, err := openRepository(cmd.Context(), cfg.Storage, instrumentation{linkBase: eventstore.DefaultLinkBase})
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			return runSeed(cmd.Context(), repo, opts, cmd.OutOrStdout())
		},
	}

	seedCmd.Flags().IntVar(&opts.count, "count", 1000, "Number of events to generate")
	seedCmd.Flags().IntVar(&opts.batch, "batch", 500, "Events per AddEvents call")
	seedCmd.Flags().IntVar(&opts.tenants, "tenants", 4, "Number of iTwin/account pairs")
	seedCmd.Flags().Int64Var(&opts.seed, "seed", 1, "Seed of the payload generator")
	seedCmd.Flags().StringSliceVar(&opts.types, "types", nil, "Event types to generate (default all registered types)")

	return seedCmd
}

func runSeed(ctx context.Context, repo eventstore.EventRepository, opts seedOptions, out io.Writer) error {
	if opts.count < 1 || opts.batch < 1 || opts.tenants < 1 {
		return fmt.Errorf("%w: count, batch and tenants must be positive", ErrInvalidSeedOptions)
	}

	registry := events.NewTypeRegistry()

	types := opts.types
	if len(types) == 0 {
		types = registry.ListTypes()
	}

	for _, name := range types {
		if !registry.IsValidType(name) {
			return fmt.Errorf("%w: %q is not a registered event type", ErrInvalidSeedOptions, name)
		}
	}

	generators := make([]*fixtures.Generator, 0, opts.tenants)
	for i := range opts.tenants {
		generators = append(generators, fixtures.NewGenerator(opts.seed+int64(i)))
	}

	start := time.Now()
	seeded := 0

	for b := 0; seeded < opts.count; b++ {
		size := min(opts.batch, opts.count-seeded)

		added, err := repo.AddEvents(ctx, generators[b%len(generators)].MixedEvents(size, types...))
		if err != nil {
			return fmt.Errorf("seeding failed after %d events: %w", seeded, err)
		}

		seeded += added

		if _, err := fmt.Fprintf(out, "seeded %d/%d events\n", seeded, opts.count); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(out, "done in %s\n", time.Since(start).Round(time.Millisecond))

	return err
}

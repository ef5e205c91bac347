//go:build integration

package postgresengine_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/typed-eventstore-go/events"
	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
	"github.com/AntonStoeckl/typed-eventstore-go/eventstore/postgresengine"
	"github.com/AntonStoeckl/typed-eventstore-go/testutil/fixtures"
	"github.com/AntonStoeckl/typed-eventstore-go/testutil/postgreswrapper"
	"github.com/AntonStoeckl/typed-eventstore-go/testutil/repositorytest"
)

func Test_Postgres_RepositoryContract(t *testing.T) {
	dsn := postgreswrapper.StartContainer(t)

	for _, adapterType := range postgreswrapper.AdapterTypes {
		t.Run(adapterType, func(t *testing.T) {
			wrapper := postgreswrapper.CreateWrapper(t, adapterType, dsn)
			defer wrapper.Close()

			repositorytest.Run(
				t,
				func(t *testing.T) eventstore.EventRepository {
					wrapper.Truncate(t)
					return wrapper.EventStore()
				},
				repositorytest.RejectBatch,
			)
		})
	}
}

func Test_Postgres_MigrateTwice(t *testing.T) {
	// setup
	dsn := postgreswrapper.StartContainer(t)

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	// act
	err = postgresengine.MigratePostgres(context.Background(), db)

	// assert
	assert.NoError(t, err)
	assert.NoError(t, db.Ping(), "migrating must leave the database open")
}

func Test_Postgres_EventualConsistency_ReadsFromReplica(t *testing.T) {
	// setup
	ctx := context.Background()
	primaryDSN := postgreswrapper.StartContainer(t)
	replicaDSN := postgreswrapper.StartContainer(t)

	primary, err := pgxpool.New(ctx, primaryDSN)
	require.NoError(t, err)
	defer primary.Close()

	replica, err := pgxpool.New(ctx, replicaDSN)
	require.NoError(t, err)
	defer replica.Close()

	es, err := postgresengine.NewEventStoreFromPGXPoolAndReplica(primary, replica)
	require.NoError(t, err)

	// arrange
	_, err = es.AddEvents(ctx, fixtures.NewGenerator(31).Events(events.PaginationTestEventType, 3))
	require.NoError(t, err)

	// act
	strong, strongErr := eventstore.Collect(es.QueryEvents(eventstore.WithStrongConsistency(ctx), eventstore.BuildQuery()))
	eventual, eventualErr := eventstore.Collect(es.QueryEvents(eventstore.WithEventualConsistency(ctx), eventstore.BuildQuery()))

	// assert
	require.NoError(t, strongErr)
	require.NoError(t, eventualErr)
	assert.Len(t, strong, 3, "strong consistency reads from the primary")
	assert.Empty(t, eventual, "the unreplicated container stands in for a lagging replica")
}

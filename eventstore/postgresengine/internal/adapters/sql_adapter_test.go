package adapters_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
	"github.com/AntonStoeckl/typed-eventstore-go/eventstore/postgresengine/internal/adapters"
)

func givenNamedDB(t *testing.T, name string) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), name+".db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec("CREATE TABLE origin (name TEXT NOT NULL)")
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO origin (name) VALUES ('" + name + "')")
	require.NoError(t, err)

	return db
}

func queryOrigin(t *testing.T, ctx context.Context, adapter adapters.DBAdapter) string {
	t.Helper()

	rows, err := adapter.Query(ctx, "SELECT name FROM origin")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	require.True(t, rows.Next())

	var name string
	require.NoError(t, rows.Scan(&name))
	require.NoError(t, rows.Err())

	return name
}

func Test_Adapters_RouteReadsByConsistency(t *testing.T) {
	primary := givenNamedDB(t, "primary")
	replica := givenNamedDB(t, "replica")

	tests := []struct {
		name    string
		adapter adapters.DBAdapter
	}{
		{name: "sql", adapter: adapters.NewSQLAdapterWithReplica(primary, replica)},
		{name: "sqlx", adapter: adapters.NewSQLXAdapterWithReplica(sqlx.NewDb(primary, "sqlite"), sqlx.NewDb(replica, "sqlite"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()

			eventual := eventstore.WithEventualConsistency(ctx)

			assert.Equal(t, "primary", queryOrigin(t, ctx, tt.adapter), "default is strong consistency")
			assert.Equal(t, "primary", queryOrigin(t, eventstore.WithStrongConsistency(ctx), tt.adapter))
			assert.Equal(t, "replica", queryOrigin(t, eventual, tt.adapter))
			assert.Equal(t, adapters.NodePrimary, tt.adapter.ReadNode(ctx))
			assert.Equal(t, adapters.NodeReplica, tt.adapter.ReadNode(eventual))
		})
	}
}

func Test_Adapters_WithoutReplica_ReadFromPrimary(t *testing.T) {
	// setup
	primary := givenNamedDB(t, "primary")
	adapter := adapters.NewSQLAdapter(primary)

	// act
	origin := queryOrigin(t, eventstore.WithEventualConsistency(context.Background()), adapter)

	// assert
	assert.Equal(t, "primary", origin)
	assert.Equal(t, adapters.NodePrimary, adapter.ReadNode(eventstore.WithEventualConsistency(context.Background())))
}

func Test_Adapters_WritesGoToPrimary(t *testing.T) {
	// setup
	primary := givenNamedDB(t, "primary")
	replica := givenNamedDB(t, "replica")
	adapter := adapters.NewSQLAdapterWithReplica(primary, replica)

	// act
	result, err := adapter.Exec(eventstore.WithEventualConsistency(context.Background()), "DELETE FROM origin")

	// assert
	require.NoError(t, err)
	affected, err := result.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	var remaining int
	require.NoError(t, replica.QueryRow("SELECT COUNT(*) FROM origin").Scan(&remaining))
	assert.Equal(t, 1, remaining)
}

func Test_Adapters_PingChecksBothNodes(t *testing.T) {
	// setup
	primary := givenNamedDB(t, "primary")
	replica := givenNamedDB(t, "replica")
	adapter := adapters.NewSQLXAdapterWithReplica(sqlx.NewDb(primary, "sqlite"), sqlx.NewDb(replica, "sqlite"))

	// act
	healthyErr := adapter.Ping(context.Background())
	require.NoError(t, replica.Close())
	brokenErr := adapter.Ping(context.Background())

	// assert
	assert.NoError(t, healthyErr)
	require.Error(t, brokenErr)
	assert.Contains(t, brokenErr.Error(), adapters.NodeReplica+":")
}

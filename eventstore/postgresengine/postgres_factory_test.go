package postgresengine_test

import (
	"database/sql"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
	"github.com/AntonStoeckl/typed-eventstore-go/eventstore/postgresengine"
)

func Test_FactoryFunctions_RejectNilConnections(t *testing.T) {
	tests := []struct {
		name   string
		create func() (*postgresengine.EventStore, error)
	}{
		{name: "pgx pool", create: func() (*postgresengine.EventStore, error) {
			return postgresengine.NewEventStoreFromPGXPool(nil)
		}},
		{name: "pgx pool with nil replica", create: func() (*postgresengine.EventStore, error) {
			return postgresengine.NewEventStoreFromPGXPoolAndReplica(&pgxpool.Pool{}, nil)
		}},
		{name: "sql db", create: func() (*postgresengine.EventStore, error) {
			return postgresengine.NewEventStoreFromSQLDB(nil)
		}},
		{name: "sql db with nil replica", create: func() (*postgresengine.EventStore, error) {
			return postgresengine.NewEventStoreFromSQLDBAndReplica(&sql.DB{}, nil)
		}},
		{name: "sqlx db", create: func() (*postgresengine.EventStore, error) {
			return postgresengine.NewEventStoreFromSQLX(nil)
		}},
		{name: "sqlx db with nil replica", create: func() (*postgresengine.EventStore, error) {
			return postgresengine.NewEventStoreFromSQLXAndReplica(&sqlx.DB{}, nil)
		}},
		{name: "sqlite", create: func() (*postgresengine.EventStore, error) {
			return postgresengine.NewEventStoreFromSQLite(nil)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// act
			es, err := tt.create()

			// assert
			assert.ErrorIs(t, err, eventstore.ErrNilDatabaseConnection)
			assert.Nil(t, es)
		})
	}
}

func Test_FactoryFunctions_RejectEmptyTableName(t *testing.T) {
	// act
	es, err := postgresengine.NewEventStoreFromSQLite(givenMigratedSQLiteDB(t), postgresengine.WithTableName(""))

	// assert
	assert.ErrorIs(t, err, eventstore.ErrEmptyEventsTableName)
	assert.Nil(t, es)
}

func Test_Migrate_RejectsNilDB(t *testing.T) {
	assert.ErrorIs(t, postgresengine.MigrateSQLite(nil), postgresengine.ErrNilMigrationDB)
}

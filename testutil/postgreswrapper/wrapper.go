package postgreswrapper

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/AntonStoeckl/typed-eventstore-go/eventstore/postgresengine"
)

// Adapter type constants
const (
	TypePGXPool = "pgx.pool"
	TypeSQLDB   = "sql.db"
	TypeSQLXDB  = "sqlx.db"

	postgresImage = "postgres:17-alpine"
	driverName    = "postgres"
)

// AdapterTypes lists all adapters the relational event store supports for PostgreSQL.
var AdapterTypes = []string{TypePGXPool, TypeSQLDB, TypeSQLXDB}

// Wrapper abstracts over the different adapter types.
type Wrapper interface {
	EventStore() *postgresengine.EventStore
	// Truncate removes all events, so sub tests start from an empty table.
	Truncate(t testing.TB)
	Close()
}

// StartContainer runs a PostgreSQL container with the events table migrated and returns its DSN.
// The container is terminated when the test finishes.
func StartContainer(t testing.TB) string {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		postgresImage,
		postgres.WithDatabase("eventstore"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")

	t.Cleanup(func() {
		if terminateErr := container.Terminate(ctx); terminateErr != nil {
			t.Logf("failed to terminate container: %v", terminateErr)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	db, err := sql.Open(driverName, dsn)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	require.NoError(t, postgresengine.MigratePostgres(ctx, db), "failed to migrate")

	return dsn
}

// CreateWrapper connects to dsn with the given adapter type.
func CreateWrapper(t testing.TB, adapterType string, dsn string, options ...postgresengine.Option) Wrapper {
	t.Helper()

	switch adapterType {
	case TypePGXPool:
		pool, err := pgxpool.New(context.Background(), dsn)
		require.NoError(t, err, "error connecting to DB pool in test setup")

		es, err := postgresengine.NewEventStoreFromPGXPool(pool, options...)
		require.NoError(t, err)

		return &PGXPoolWrapper{pool: pool, es: es}

	case TypeSQLDB:
		db, err := sql.Open(driverName, dsn)
		require.NoError(t, err)

		es, err := postgresengine.NewEventStoreFromSQLDB(db, options...)
		require.NoError(t, err)

		return &SQLDBWrapper{db: db, es: es}

	case TypeSQLXDB:
		db, err := sqlx.Open(driverName, dsn)
		require.NoError(t, err)

		es, err := postgresengine.NewEventStoreFromSQLX(db, options...)
		require.NoError(t, err)

		return &SQLXWrapper{db: db, es: es}

	default:
		t.Fatalf("unsupported adapter type: %s", adapterType)
		return nil
	}
}

// PGXPoolWrapper wraps pgxpool-based testing
type PGXPoolWrapper struct {
	pool *pgxpool.Pool
	es   *postgresengine.EventStore
}

func (w *PGXPoolWrapper) EventStore() *postgresengine.EventStore {
	return w.es
}

func (w *PGXPoolWrapper) Truncate(t testing.TB) {
	_, err := w.pool.Exec(context.Background(), truncateStatement)
	require.NoError(t, err)
}

func (w *PGXPoolWrapper) Close() {
	w.pool.Close()
}

// SQLDBWrapper wraps sql.DB-based testing
type SQLDBWrapper struct {
	db *sql.DB
	es *postgresengine.EventStore
}

func (w *SQLDBWrapper) EventStore() *postgresengine.EventStore {
	return w.es
}

func (w *SQLDBWrapper) Truncate(t testing.TB) {
	_, err := w.db.ExecContext(context.Background(), truncateStatement)
	require.NoError(t, err)
}

func (w *SQLDBWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// SQLXWrapper wraps sqlx.DB-based testing
type SQLXWrapper struct {
	db *sqlx.DB
	es *postgresengine.EventStore
}

func (w *SQLXWrapper) EventStore() *postgresengine.EventStore {
	return w.es
}

func (w *SQLXWrapper) Truncate(t testing.TB) {
	_, err := w.db.ExecContext(context.Background(), truncateStatement)
	require.NoError(t, err)
}

func (w *SQLXWrapper) Close() {
	_ = w.db.Close() // ignore error
}

const truncateStatement = "TRUNCATE TABLE events"

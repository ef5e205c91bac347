package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/AntonStoeckl/typed-eventstore-go/config"
	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
	"github.com/AntonStoeckl/typed-eventstore-go/eventstore/memoryengine"
	"github.com/AntonStoeckl/typed-eventstore-go/eventstore/opensearchengine"
	"github.com/AntonStoeckl/typed-eventstore-go/eventstore/postgresengine"
	"github.com/AntonStoeckl/typed-eventstore-go/eventstore/redisengine"
)

const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

var ErrUnsupportedBackend = errors.New("unsupported storage backend")

// repository is what eventsd serves: the event store contract plus a backend health check.
type repository interface {
	eventstore.EventRepository
	Ping(ctx context.Context) error
}

type memoryRepository struct {
	*memoryengine.EventStore
}

func (memoryRepository) Ping(context.Context) error {
	return nil
}

// instrumentation carries the collectors and the link base into every engine.
type instrumentation struct {
	logger   eventstore.ContextualLogger
	metrics  eventstore.MetricsCollector
	tracing  eventstore.TracingCollector
	linkBase string
}

// closers releases backend connections in reverse order.
type closers []io.Closer

func (c closers) Close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		errs = append(errs, c[i].Close())
	}

	return errors.Join(errs...)
}

type closeFunc func()

func (f closeFunc) Close() error {
	f()
	return nil
}

// openRepository connects to the configured backend. The returned closer releases its connections.
func openRepository(ctx context.Context, cfg config.StorageConfig, in instrumentation) (repository, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return openMemory(in)
	case config.BackendPostgres:
		return openPostgres(ctx, cfg.Postgres, in)
	case config.BackendSQLite:
		return openSQLite(cfg.SQLite, in)
	case config.BackendOpenSearch:
		return openOpenSearch(ctx, cfg.OpenSearch, in)
	case config.BackendRedis:
		return openRedis(ctx, cfg.Redis, in)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, cfg.Backend)
	}
}

func openMemory(in instrumentation) (repository, io.Closer, error) {
	options := []memoryengine.Option{memoryengine.WithLinkBase(in.linkBase)}
	if in.logger != nil {
		options = append(options, memoryengine.WithContextualLogger(in.logger))
	}

	if in.metrics != nil {
		options = append(options, memoryengine.WithMetrics(in.metrics))
	}

	if in.tracing != nil {
		options = append(options, memoryengine.WithTracing(in.tracing))
	}

	store, err := memoryengine.NewEventStore(options...)
	if err != nil {
		return nil, nil, err
	}

	return memoryRepository{EventStore: store}, closers{}, nil
}

func postgresOptions(table string, in instrumentation) []postgresengine.Option {
	options := []postgresengine.Option{postgresengine.WithLinkBase(in.linkBase)}
	if table != "" {
		options = append(options, postgresengine.WithTableName(table))
	}

	if in.logger != nil {
		options = append(options, postgresengine.WithContextualLogger(in.logger))
	}

	if in.metrics != nil {
		options = append(options, postgresengine.WithMetrics(in.metrics))
	}

	if in.tracing != nil {
		options = append(options, postgresengine.WithTracing(in.tracing))
	}

	return options
}

func openPostgres(ctx context.Context, cfg config.PostgresConfig, in instrumentation) (repository, io.Closer, error) {
	if cfg.AutoMigrate {
		if err := migratePostgres(ctx, cfg.DSN); err != nil {
			return nil, nil, err
		}
	}

	options := postgresOptions(cfg.Table, in)

	switch cfg.Adapter {
	case config.AdapterPGX:
		return openPGX(ctx, cfg, options)
	case config.AdapterSQL:
		return openSQLDB(cfg, options)
	case config.AdapterSQLX:
		return openSQLX(cfg, options)
	default:
		return nil, nil, fmt.Errorf("%w: postgres adapter %q", ErrUnsupportedBackend, cfg.Adapter)
	}
}

func pgxPoolConfig(dsn string, cfg config.PostgresConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}

	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}

	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}

	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	return poolConfig, nil
}

func openPGX(ctx context.Context, cfg config.PostgresConfig, options []postgresengine.Option) (repository, io.Closer, error) {
	primaryConfig, err := pgxPoolConfig(cfg.DSN, cfg)
	if err != nil {
		return nil, nil, err
	}

	primary, err := pgxpool.NewWithConfig(ctx, primaryConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	closing := closers{closeFunc(primary.Close)}

	if cfg.ReplicaDSN == "" {
		store, storeErr := postgresengine.NewEventStoreFromPGXPool(primary, options...)
		if storeErr != nil {
			return nil, nil, errors.Join(storeErr, closing.Close())
		}

		return store, closing, nil
	}

	replicaConfig, err := pgxPoolConfig(cfg.ReplicaDSN, cfg)
	if err != nil {
		return nil, nil, errors.Join(err, closing.Close())
	}

	replica, err := pgxpool.NewWithConfig(ctx, replicaConfig)
	if err != nil {
		return nil, nil, errors.Join(fmt.Errorf("failed to connect to postgres replica: %w", err), closing.Close())
	}

	closing = append(closing, closeFunc(replica.Close))

	store, err := postgresengine.NewEventStoreFromPGXPoolAndReplica(primary, replica, options...)
	if err != nil {
		return nil, nil, errors.Join(err, closing.Close())
	}

	return store, closing, nil
}

func openSQLPool(dsn string, cfg config.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open(driverPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(int(cfg.MaxConns))
	db.SetMaxIdleConns(int(cfg.MinConns))
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	return db, nil
}

func openSQLDB(cfg config.PostgresConfig, options []postgresengine.Option) (repository, io.Closer, error) {
	primary, err := openSQLPool(cfg.DSN, cfg)
	if err != nil {
		return nil, nil, err
	}

	closing := closers{primary}

	if cfg.ReplicaDSN == "" {
		store, storeErr := postgresengine.NewEventStoreFromSQLDB(primary, options...)
		if storeErr != nil {
			return nil, nil, errors.Join(storeErr, closing.Close())
		}

		return store, closing, nil
	}

	replica, err := openSQLPool(cfg.ReplicaDSN, cfg)
	if err != nil {
		return nil, nil, errors.Join(err, closing.Close())
	}

	closing = append(closing, replica)

	store, err := postgresengine.NewEventStoreFromSQLDBAndReplica(primary, replica, options...)
	if err != nil {
		return nil, nil, errors.Join(err, closing.Close())
	}

	return store, closing, nil
}

func openSQLX(cfg config.PostgresConfig, options []postgresengine.Option) (repository, io.Closer, error) {
	primary, err := openSQLPool(cfg.DSN, cfg)
	if err != nil {
		return nil, nil, err
	}

	closing := closers{primary}
	primaryX := sqlx.NewDb(primary, driverPostgres)

	if cfg.ReplicaDSN == "" {
		store, storeErr := postgresengine.NewEventStoreFromSQLX(primaryX, options...)
		if storeErr != nil {
			return nil, nil, errors.Join(storeErr, closing.Close())
		}

		return store, closing, nil
	}

	replica, err := openSQLPool(cfg.ReplicaDSN, cfg)
	if err != nil {
		return nil, nil, errors.Join(err, closing.Close())
	}

	closing = append(closing, replica)

	store, err := postgresengine.NewEventStoreFromSQLXAndReplica(primaryX, sqlx.NewDb(replica, driverPostgres), options...)
	if err != nil {
		return nil, nil, errors.Join(err, closing.Close())
	}

	return store, closing, nil
}

func openSQLite(cfg config.SQLiteConfig, in instrumentation) (repository, io.Closer, error) {
	db, err := sql.Open(driverSQLite, cfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// SQLite allows one writer, a single connection serializes the batches.
	db.SetMaxOpenConns(1)

	if cfg.AutoMigrate {
		if err := postgresengine.MigrateSQLite(db); err != nil {
			return nil, nil, errors.Join(err, db.Close())
		}
	}

	store, err := postgresengine.NewEventStoreFromSQLite(db, postgresOptions("", in)...)
	if err != nil {
		return nil, nil, errors.Join(err, db.Close())
	}

	return store, db, nil
}

func openOpenSearch(ctx context.Context, cfg config.OpenSearchConfig, in instrumentation) (repository, io.Closer, error) {
	client, err := opensearchengine.NewClient(ctx, opensearchengine.ClientConfig{
		URL:      cfg.URL,
		Username: cfg.Username,
		Password: cfg.Password,
		Insecure: cfg.Insecure,
	})
	if err != nil {
		return nil, nil, err
	}

	options := []opensearchengine.Option{
		opensearchengine.WithIndex(cfg.Index),
		opensearchengine.WithRefresh(cfg.Refresh),
		opensearchengine.WithLinkBase(in.linkBase),
	}

	if in.logger != nil {
		options = append(options, opensearchengine.WithContextualLogger(in.logger))
	}

	if in.metrics != nil {
		options = append(options, opensearchengine.WithMetrics(in.metrics))
	}

	if in.tracing != nil {
		options = append(options, opensearchengine.WithTracing(in.tracing))
	}

	store, err := opensearchengine.NewEventStore(client, options...)
	if err != nil {
		return nil, nil, err
	}

	if err := store.EnsureIndex(ctx); err != nil {
		return nil, nil, err
	}

	return store, closers{}, nil
}

func openRedis(ctx context.Context, cfg config.RedisConfig, in instrumentation) (repository, io.Closer, error) {
	client, err := redisengine.NewClient(ctx, cfg.URL)
	if err != nil {
		return nil, nil, err
	}

	options := []redisengine.Option{
		redisengine.WithKeyPrefix(cfg.KeyPrefix),
		redisengine.WithLinkBase(in.linkBase),
	}

	if in.logger != nil {
		options = append(options, redisengine.WithContextualLogger(in.logger))
	}

	if in.metrics != nil {
		options = append(options, redisengine.WithMetrics(in.metrics))
	}

	if in.tracing != nil {
		options = append(options, redisengine.WithTracing(in.tracing))
	}

	store, err := redisengine.NewEventStore(client, options...)
	if err != nil {
		return nil, nil, errors.Join(err, client.Close())
	}

	return store, client, nil
}

func migratePostgres(ctx context.Context, dsn string) error {
	db, err := sql.Open(driverPostgres, dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres: %w", err)
	}
	defer db.Close()

	return postgresengine.MigratePostgres(ctx, db)
}

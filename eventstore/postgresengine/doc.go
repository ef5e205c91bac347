// Package postgresengine provides a relational implementation of eventstore.EventRepository
// for PostgreSQL and SQLite.
//
// Events are stored one row per event in a table keyed by the event ID. SQL is rendered with goqu,
// so the same query translation serves both dialects, and executed through one of several adapters:
// pgxpool.Pool, sql.DB (lib/pq or modernc.org/sqlite) and sqlx.DB.
//
// Key features:
//   - Atomic batch inserts: one multi-row INSERT, a duplicate ID rejects the whole batch
//   - Keyset pagination on the primary key, ORDER BY id with LIMIT
//   - Optional read replica, used for contexts created with eventstore.WithEventualConsistency
//   - Embedded migrations, see MigratePostgres and MigrateSQLite
//
// Usage examples:
//
//	// PostgreSQL with pgx
//	pool, _ := pgxpool.New(ctx, dsn)
//	store, _ := postgresengine.NewEventStoreFromPGXPool(pool, postgresengine.WithLogger(logger))
//
//	// SQLite file
//	db, _ := sql.Open("sqlite", "events.db")
//	_ = postgresengine.MigrateSQLite(db)
//	store, _ := postgresengine.NewEventStoreFromSQLite(db)
//
//	added, _ := store.AddEvents(ctx, events)
//	page, _ := store.GetPaginatedEvents(ctx, eventstore.BuildQuery().WhereITwinID(iTwinID), 0)
package postgresengine

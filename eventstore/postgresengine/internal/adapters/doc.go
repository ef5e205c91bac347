// Package adapters lets the relational event store run on pgxpool.Pool, sql.DB (lib/pq or modernc.org/sqlite)
// or sqlx.DB behind one DBAdapter.
//
// Each adapter has a primary and an optional replica. Query reads from the replica only when the context
// asks for eventual consistency, see eventstore.WithEventualConsistency. Exec always goes to the primary.
package adapters

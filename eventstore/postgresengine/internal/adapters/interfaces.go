package adapters

import "context"

// Nodes a statement can be sent to.
const (
	NodePrimary = "primary"
	NodeReplica = "replica"
)

// DBAdapter is the driver independent connection the relational event store renders its statements for.
// Statements arrive fully rendered by goqu, so no driver sees placeholders.
type DBAdapter interface {
	// Query runs a SELECT on ReadNode(ctx).
	Query(ctx context.Context, query string) (DBRows, error)

	// Exec runs an INSERT on the primary.
	Exec(ctx context.Context, query string) (DBResult, error)

	// ReadNode returns NodeReplica if a replica is configured and ctx asks for eventual consistency.
	ReadNode(ctx context.Context) string

	// Ping checks the primary and, if configured, the replica.
	Ping(ctx context.Context) error
}

// DBRows is the part of a driver's result set the event store scans.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// DBResult reports how many events an INSERT stored.
type DBResult interface {
	RowsAffected() (int64, error)
}

package adapters

import (
	"context"
	"database/sql"
)

// SQLAdapter runs statements through database/sql, with lib/pq or modernc.org/sqlite underneath.
type SQLAdapter struct {
	nodes nodes[*sql.DB]
}

// NewSQLAdapter creates a SQLAdapter without replica.
func NewSQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{nodes: primaryOnly(db)}
}

// NewSQLAdapterWithReplica creates a SQLAdapter that may read from replica.
func NewSQLAdapterWithReplica(db *sql.DB, replica *sql.DB) *SQLAdapter {
	return &SQLAdapter{nodes: withReplica(db, replica)}
}

func (s *SQLAdapter) Query(ctx context.Context, query string) (DBRows, error) {
	rows, err := s.nodes.forRead(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return sqlRows{Rows: rows}, nil
}

func (s *SQLAdapter) Exec(ctx context.Context, query string) (DBResult, error) {
	result, err := s.nodes.primary.ExecContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return sqlResult{Result: result}, nil
}

func (s *SQLAdapter) ReadNode(ctx context.Context) string {
	return s.nodes.readNode(ctx)
}

func (s *SQLAdapter) Ping(ctx context.Context) error {
	return s.nodes.ping(ctx, func(ctx context.Context, db *sql.DB) error {
		return db.PingContext(ctx)
	})
}

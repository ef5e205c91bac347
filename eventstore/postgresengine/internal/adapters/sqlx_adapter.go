package adapters

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// SQLXAdapter runs statements through sqlx.
type SQLXAdapter struct {
	nodes nodes[*sqlx.DB]
}

// NewSQLXAdapter creates a SQLXAdapter without replica.
func NewSQLXAdapter(db *sqlx.DB) *SQLXAdapter {
	return &SQLXAdapter{nodes: primaryOnly(db)}
}

// NewSQLXAdapterWithReplica creates a SQLXAdapter that may read from replica.
func NewSQLXAdapterWithReplica(db *sqlx.DB, replica *sqlx.DB) *SQLXAdapter {
	return &SQLXAdapter{nodes: withReplica(db, replica)}
}

func (s *SQLXAdapter) Query(ctx context.Context, query string) (DBRows, error) {
	rows, err := s.nodes.forRead(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return sqlRows{Rows: rows.Rows}, nil
}

func (s *SQLXAdapter) Exec(ctx context.Context, query string) (DBResult, error) {
	result, err := s.nodes.primary.ExecContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return sqlResult{Result: result}, nil
}

func (s *SQLXAdapter) ReadNode(ctx context.Context) string {
	return s.nodes.readNode(ctx)
}

func (s *SQLXAdapter) Ping(ctx context.Context) error {
	return s.nodes.ping(ctx, func(ctx context.Context, db *sqlx.DB) error {
		return db.PingContext(ctx)
	})
}

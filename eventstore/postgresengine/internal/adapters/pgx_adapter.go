package adapters

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGXAdapter runs statements on pgx connection pools.
type PGXAdapter struct {
	nodes nodes[*pgxpool.Pool]
}

// NewPGXAdapter creates a PGXAdapter without replica.
func NewPGXAdapter(pool *pgxpool.Pool) *PGXAdapter {
	return &PGXAdapter{nodes: primaryOnly(pool)}
}

// NewPGXAdapterWithReplica creates a PGXAdapter that may read from the replica pool.
func NewPGXAdapterWithReplica(pool *pgxpool.Pool, replica *pgxpool.Pool) *PGXAdapter {
	return &PGXAdapter{nodes: withReplica(pool, replica)}
}

func (p *PGXAdapter) Query(ctx context.Context, query string) (DBRows, error) {
	rows, err := p.nodes.forRead(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}

	return pgxRows{Rows: rows}, nil
}

func (p *PGXAdapter) Exec(ctx context.Context, query string) (DBResult, error) {
	tag, err := p.nodes.primary.Exec(ctx, query)
	if err != nil {
		return nil, err
	}

	return pgxResult(tag), nil
}

func (p *PGXAdapter) ReadNode(ctx context.Context) string {
	return p.nodes.readNode(ctx)
}

func (p *PGXAdapter) Ping(ctx context.Context) error {
	return p.nodes.ping(ctx, func(ctx context.Context, pool *pgxpool.Pool) error {
		return pool.Ping(ctx)
	})
}

// pgxRows adapts pgx.Rows, whose Close reports nothing.
type pgxRows struct {
	pgx.Rows
}

func (r pgxRows) Close() error {
	r.Rows.Close()
	return nil
}

// pgxResult adapts the command tag of an INSERT.
type pgxResult pgconn.CommandTag

func (r pgxResult) RowsAffected() (int64, error) {
	return pgconn.CommandTag(r).RowsAffected(), nil
}

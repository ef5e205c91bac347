package adapters

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
)

// nodes holds the primary handle of one driver and an optional replica handle.
type nodes[T any] struct {
	primary    T
	replica    T
	hasReplica bool
}

func primaryOnly[T any](primary T) nodes[T] {
	return nodes[T]{primary: primary}
}

func withReplica[T any](primary T, replica T) nodes[T] {
	return nodes[T]{primary: primary, replica: replica, hasReplica: true}
}

func (n nodes[T]) readNode(ctx context.Context) string {
	if n.hasReplica && eventstore.GetConsistencyLevel(ctx) == eventstore.EventualConsistency {
		return NodeReplica
	}

	return NodePrimary
}

// forRead returns the handle Query uses for ctx.
func (n nodes[T]) forRead(ctx context.Context) T {
	if n.readNode(ctx) == NodeReplica {
		return n.replica
	}

	return n.primary
}

func (n nodes[T]) ping(ctx context.Context, ping func(context.Context, T) error) error {
	if err := ping(ctx, n.primary); err != nil {
		return fmt.Errorf("%s: %w", NodePrimary, err)
	}

	if !n.hasReplica {
		return nil
	}

	if err := ping(ctx, n.replica); err != nil {
		return fmt.Errorf("%s: %w", NodeReplica, err)
	}

	return nil
}

// sqlRows adapts *sql.Rows, which sqlx also hands out.
type sqlRows struct {
	*sql.Rows
}

// sqlResult adapts sql.Result.
type sqlResult struct {
	sql.Result
}

// errNoRowsAffected is returned by drivers that cannot report affected rows.
var errNoRowsAffected = errors.New("driver did not report affected rows")

func (r sqlResult) RowsAffected() (int64, error) {
	n, err := r.Result.RowsAffected()
	if err != nil {
		return 0, errors.Join(errNoRowsAffected, err)
	}

	return n, nil
}

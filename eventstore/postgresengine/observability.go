package postgresengine

import (
	"context"

	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
	"github.com/AntonStoeckl/typed-eventstore-go/eventstore/postgresengine/internal/adapters"
)

const logMsgCloseRowsFailed = "failed to close database rows"

// readAttrs returns the span attributes of a read: the consistency ctx asks for and the node serving it.
func (es *EventStore) readAttrs(ctx context.Context) map[string]string {
	return map[string]string{
		eventstore.SpanAttrConsistency: eventstore.GetConsistencyLevel(ctx).String(),
		eventstore.SpanAttrReadNode:    es.db.ReadNode(ctx),
	}
}

// closeRows closes database rows and logs a warning if that fails.
func (es *EventStore) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		es.instrumentation.Warn(ctx, logMsgCloseRowsFailed, closeErr)
	}
}

package eventstore

import "context"

// ConsistencyLevel defines where an engine with read replicas sends reads.
type ConsistencyLevel int

const (
	// StrongConsistency reads from the primary, so a caller always sees its own writes.
	// This is the default.
	StrongConsistency ConsistencyLevel = iota

	// EventualConsistency allows reads from a replica, trading freshness for a reduced load on the primary.
	// Suitable for the query API, where a just-added event may show up a moment later.
	EventualConsistency
)

type contextKey string

// ConsistencyLevelKey is the context key used to store consistency level preferences.
const ConsistencyLevelKey contextKey = "eventstore.consistency_level"

// WithStrongConsistency returns a context that routes reads to the primary.
func WithStrongConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, StrongConsistency)
}

// WithEventualConsistency returns a context that allows reads from a replica.
//
// Example usage:
//
//	ctx = eventstore.WithEventualConsistency(ctx)
//	page, err := repository.GetPaginatedEvents(ctx, query, size)
func WithEventualConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, EventualConsistency)
}

// GetConsistencyLevel extracts the consistency level from the context, StrongConsistency if none is set.
func GetConsistencyLevel(ctx context.Context) ConsistencyLevel {
	if level, ok := ctx.Value(ConsistencyLevelKey).(ConsistencyLevel); ok {
		return level
	}

	return StrongConsistency
}

func (c ConsistencyLevel) String() string {
	switch c {
	case StrongConsistency:
		return "strong"
	case EventualConsistency:
		return "eventual"
	default:
		return "unknown"
	}
}

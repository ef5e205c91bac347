package eventstore

import (
	"context"
	"iter"
)

// EventRepository is the storage contract every engine implements.
//
// All engines order events by ID ascending, evaluate Criteria as a conjunction and never re-validate
// payloads. What happens for an already stored ID differs per engine and is documented there.
type EventRepository interface {
	// AddEvents persists events and returns how many were written.
	AddEvents(ctx context.Context, events Events) (int, error)

	// QueryEvents returns all events matching the query, lazily and in ascending ID order.
	// Reading stops at the first error, which is yielded as the last element.
	QueryEvents(ctx context.Context, query QueryBuilder) iter.Seq2[Event, error]

	// GetPaginatedEvents returns one Page of events matching the query.
	GetPaginatedEvents(ctx context.Context, query QueryBuilder, size PageSize) (Page, error)
}

// Collect drains a sequence returned by QueryEvents into a slice.
func Collect(seq iter.Seq2[Event, error]) (Events, error) {
	events := make(Events, 0)

	for event, err := range seq {
		if err != nil {
			return events, err
		}

		events = append(events, event)
	}

	return events, nil
}

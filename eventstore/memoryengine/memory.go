package memoryengine

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
)

const (
	backendName    = "memory"
	queryBatchSize = 500
)

// EventStore keeps events in memory, sorted by ID. It is safe for concurrent use.
type EventStore struct {
	mu              sync.RWMutex
	events          eventstore.Events
	ids             map[uuid.UUID]struct{}
	instrumentation eventstore.Instrumentation
	linkBase        string
}

// NewEventStore creates an empty EventStore with optional configuration.
func NewEventStore(options ...Option) (*EventStore, error) {
	es := &EventStore{
		events:          make(eventstore.Events, 0),
		ids:             make(map[uuid.UUID]struct{}),
		instrumentation: eventstore.Instrumentation{Backend: backendName},
		linkBase:        eventstore.DefaultLinkBase,
	}

	for _, option := range options {
		if err := option(es); err != nil {
			return nil, err
		}
	}

	return es, nil
}

// AddEvents stores events and returns how many were stored.
//
// The batch is rejected with eventstore.ErrDuplicateEventID and nothing is stored when one of its IDs
// is already stored or occurs twice. A canceled context is detected before anything is stored.
func (es *EventStore) AddEvents(ctx context.Context, events eventstore.Events) (int, error) {
	ctx, observation := es.instrumentation.Start(ctx, eventstore.OperationAdd, nil)

	if err := ctx.Err(); err != nil {
		return 0, observation.Fail(eventstore.ErrorTypeCanceled, errors.Join(eventstore.ErrAddingEventsFailed, err))
	}

	es.mu.Lock()
	defer es.mu.Unlock()

	batchIDs := make(map[uuid.UUID]struct{}, len(events))
	for _, event := range events {
		_, stored := es.ids[event.ID]
		_, seen := batchIDs[event.ID]

		if stored || seen {
			return 0, observation.Fail(
				eventstore.ErrorTypeDuplicate,
				fmt.Errorf("%w: %s", eventstore.ErrDuplicateEventID, event.ID),
			)
		}

		batchIDs[event.ID] = struct{}{}
	}

	for _, event := range events {
		es.events = append(es.events, cloneEvent(event))
		es.ids[event.ID] = struct{}{}
	}

	slices.SortFunc(es.events, func(a, b eventstore.Event) int {
		return eventstore.CompareIDs(a.ID, b.ID)
	})

	observation.Succeed(len(events))

	return len(events), nil
}

// QueryEvents returns all events matching query in ascending ID order.
// The events are read lazily in batches, each batch holding the read lock only while it is copied.
func (es *EventStore) QueryEvents(ctx context.Context, query eventstore.QueryBuilder) iter.Seq2[eventstore.Event, error] {
	criteria, err := query.Criteria()
	if err != nil {
		return eventstore.Failed(err)
	}

	return es.instrumentation.ObserveQuery(ctx, func(ctx context.Context) iter.Seq2[eventstore.Event, error] {
		return eventstore.ReadAll(ctx, es.readPage, criteria, queryBatchSize)
	})
}

// GetPaginatedEvents returns one page of events matching query.
func (es *EventStore) GetPaginatedEvents(
	ctx context.Context,
	query eventstore.QueryBuilder,
	size eventstore.PageSize,
) (eventstore.Page, error) {

	ctx, observation := es.instrumentation.Start(ctx, eventstore.OperationPaginate, nil)

	page, err := eventstore.Paginate(ctx, es.readPage, query, size, es.linkBase)
	if err != nil {
		return eventstore.Page{}, observation.Fail(eventstore.ClassifyError(err), err)
	}

	observation.Succeed(len(page.Items))

	return page, nil
}

// Len returns the number of stored events.
func (es *EventStore) Len() int {
	es.mu.RLock()
	defer es.mu.RUnlock()

	return len(es.events)
}

func (es *EventStore) readPage(ctx context.Context, criteria eventstore.Criteria, limit int) (eventstore.Events, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Join(eventstore.ErrQueryingEventsFailed, err)
	}

	es.mu.RLock()
	defer es.mu.RUnlock()

	found := make(eventstore.Events, 0, min(limit, len(es.events)))

	for _, event := range es.events[es.firstCandidate(criteria):] {
		if !criteria.Matches(event) {
			continue
		}

		found = append(found, cloneEvent(event))
		if len(found) == limit {
			break
		}
	}

	return found, nil
}

// firstCandidate skips all events at or below the highest "ID greater than" bound of criteria.
func (es *EventStore) firstCandidate(criteria eventstore.Criteria) int {
	var after *uuid.UUID

	for _, p := range criteria.Predicates() {
		if p.Field() != eventstore.FieldID || p.Operator() != eventstore.OpGreaterThan {
			continue
		}

		id := p.Value().(uuid.UUID)
		if after == nil || eventstore.CompareIDs(id, *after) > 0 {
			after = &id
		}
	}

	if after == nil {
		return 0
	}

	index, found := slices.BinarySearchFunc(es.events, *after, func(e eventstore.Event, id uuid.UUID) int {
		return eventstore.CompareIDs(e.ID, id)
	})

	if found {
		return index + 1
	}

	return index
}

func cloneEvent(event eventstore.Event) eventstore.Event {
	event.Data = slices.Clone(event.Data)

	if event.Time != nil {
		t := *event.Time
		event.Time = &t
	}

	return event
}

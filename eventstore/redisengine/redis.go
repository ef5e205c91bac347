package redisengine

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
)

const (
	defaultKeyPrefix = "eventstore:"
	backendName      = "redis"
	queryBatchSize   = 500
	scanBatchSize    = 1000
	indexKeySuffix   = "ids"
	eventKeyInfix    = "event:"

	lexMin       = "-"
	lexMax       = "+"
	lexInclusive = "["
	lexExclusive = "("
)

// ErrEmptyKeyPrefix is returned when WithKeyPrefix receives an empty prefix.
var ErrEmptyKeyPrefix = errors.New("key prefix must not be empty")

var documentJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// EventStore stores events as JSON documents indexed by a lexicographically ordered sorted set.
type EventStore struct {
	client          *redis.Client
	keyPrefix       string
	instrumentation eventstore.Instrumentation
	linkBase        string
}

// NewEventStore creates an EventStore on client with optional configuration.
func NewEventStore(client *redis.Client, options ...Option) (*EventStore, error) {
	if client == nil {
		return nil, eventstore.ErrNilDatabaseConnection
	}

	es := &EventStore{
		client:          client,
		keyPrefix:       defaultKeyPrefix,
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

// AddEvents writes all events in one MULTI/EXEC transaction and returns how many were written.
// Events whose ID is already stored replace the stored event.
func (es *EventStore) AddEvents(ctx context.Context, events eventstore.Events) (int, error) {
	ctx, observation := es.instrumentation.Start(ctx, eventstore.OperationAdd, nil)

	if err := ctx.Err(); err != nil {
		return 0, observation.Fail(eventstore.ErrorTypeCanceled, errors.Join(eventstore.ErrAddingEventsFailed, err))
	}

	if len(events) == 0 {
		observation.Succeed(0)
		return 0, nil
	}

	documents := make([][]byte, len(events))
	for i, event := range events {
		document, err := documentJSON.Marshal(event)
		if err != nil {
			return 0, observation.Fail(
				eventstore.ErrorTypeBackend,
				errors.Join(eventstore.ErrAddingEventsFailed, fmt.Errorf("%s: %w", event.ID, err)),
			)
		}

		documents[i] = document
	}

	start := time.Now()
	_, err := es.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, event := range events {
			id := event.ID.String()
			pipe.Set(ctx, es.eventKey(id), documents[i], 0)
			pipe.ZAdd(ctx, es.indexKey(), redis.Z{Score: 0, Member: id})
		}

		return nil
	})
	observation.LogStatement(fmt.Sprintf("MULTI SET+ZADD x%d EXEC", len(events)), time.Since(start))

	if err != nil {
		err = errors.Join(eventstore.ErrAddingEventsFailed, err)
		return 0, observation.Fail(eventstore.ClassifyError(err), err)
	}

	observation.Succeed(len(events))

	return len(events), nil
}

// QueryEvents returns all events matching query in ascending ID order, read lazily in batches.
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

// Ping verifies that the server answers.
func (es *EventStore) Ping(ctx context.Context) error {
	return es.client.Ping(ctx).Err()
}

func (es *EventStore) indexKey() string {
	return es.keyPrefix + indexKeySuffix
}

func (es *EventStore) eventKey(id string) string {
	return es.keyPrefix + eventKeyInfix + id
}

// readPage walks the ID index from the lower bound of criteria and keeps the first limit matching events.
func (es *EventStore) readPage(ctx context.Context, criteria eventstore.Criteria, limit int) (eventstore.Events, error) {
	lower, upper := idBounds(criteria)
	found := make(eventstore.Events, 0, limit)

	for len(found) < limit {
		rangeBy := &redis.ZRangeBy{Min: lower, Max: upper, Count: scanBatchSize}

		start := time.Now()
		ids, err := es.client.ZRangeByLex(ctx, es.indexKey(), rangeBy).Result()
		es.instrumentation.LogStatement(
			ctx,
			eventstore.OperationQuery,
			fmt.Sprintf("ZRANGEBYLEX %s %s %s LIMIT 0 %d", es.indexKey(), lower, upper, scanBatchSize),
			time.Since(start),
		)

		if err != nil {
			return nil, errors.Join(eventstore.ErrQueryingEventsFailed, err)
		}

		if len(ids) == 0 {
			break
		}

		loaded, err := es.loadEvents(ctx, ids)
		if err != nil {
			return nil, err
		}

		for _, event := range loaded {
			if criteria.Matches(event) {
				found = append(found, event)
			}

			if len(found) == limit {
				return found, nil
			}
		}

		if len(ids) < scanBatchSize {
			break
		}

		lower = lexExclusive + ids[len(ids)-1]
	}

	return found, nil
}

func (es *EventStore) loadEvents(ctx context.Context, ids []string) (eventstore.Events, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = es.eventKey(id)
	}

	values, err := es.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Join(eventstore.ErrQueryingEventsFailed, err)
	}

	events := make(eventstore.Events, 0, len(values))
	for i, value := range values {
		document, ok := value.(string)
		if !ok {
			continue // indexed but never written
		}

		var event eventstore.Event
		if unmarshalErr := documentJSON.UnmarshalFromString(document, &event); unmarshalErr != nil {
			return nil, errors.Join(eventstore.ErrScanningDBRowFailed, fmt.Errorf("%s: %w", ids[i], unmarshalErr))
		}

		if event.Time != nil {
			utc := event.Time.UTC()
			event.Time = &utc
		}

		events = append(events, event)
	}

	return events, nil
}

// idBounds narrows the index range with the ID predicates of criteria. The remaining predicates are
// evaluated on the loaded events.
func idBounds(criteria eventstore.Criteria) (string, string) {
	lower, upper := lexMin, lexMax
	var after string

	for _, predicate := range criteria.Predicates() {
		if predicate.Field() != eventstore.FieldID {
			continue
		}

		id := fmt.Sprint(predicate.Value())

		switch predicate.Operator() {
		case eventstore.OpEqual:
			return lexInclusive + id, lexInclusive + id
		case eventstore.OpGreaterThan:
			if id > after {
				after = id
			}
		}
	}

	if after != "" {
		lower = lexExclusive + after
	}

	return lower, upper
}

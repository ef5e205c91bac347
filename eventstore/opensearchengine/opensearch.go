package opensearchengine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchutil"

	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
)

const (
	defaultIndex        = "events"
	backendName         = "opensearch"
	queryBatchSize      = 500
	actionCreate        = "create"
	timeFormat          = "strict_date_optional_time_nanos"
	errTypeAlreadyExist = "resource_already_exists_exception"
	fieldID             = "id"
	fieldITwinID        = "iTwinId"
	fieldAccountID      = "accountId"
	fieldCorrelationID  = "correlationId"
	fieldType           = "type"
	fieldTime           = "time"
)

var documentJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// indexMapping keeps every envelope field exact-match and the payload unindexed.
var indexMapping = map[string]any{
	"mappings": map[string]any{
		"dynamic": "strict",
		"properties": map[string]any{
			"id":            map[string]any{"type": "keyword"},
			"iTwinId":       map[string]any{"type": "keyword"},
			"accountId":     map[string]any{"type": "keyword"},
			"correlationId": map[string]any{"type": "keyword"},
			"specVersion":   map[string]any{"type": "keyword"},
			"source":        map[string]any{"type": "keyword"},
			"type":          map[string]any{"type": "keyword"},
			"time":          map[string]any{"type": "date_nanos", "format": timeFormat},
			"data":          map[string]any{"type": "object", "enabled": false},
		},
	},
}

// EventStore stores events as documents of one OpenSearch index.
type EventStore struct {
	client          *opensearch.Client
	index           string
	refresh         bool
	instrumentation eventstore.Instrumentation
	linkBase        string
}

// NewEventStore creates an EventStore on client with optional configuration.
func NewEventStore(client *opensearch.Client, options ...Option) (*EventStore, error) {
	if client == nil {
		return nil, eventstore.ErrNilDatabaseConnection
	}

	es := &EventStore{
		client:          client,
		index:           defaultIndex,
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

// EnsureIndex creates the index with its mapping unless it exists.
func (es *EventStore) EnsureIndex(ctx context.Context) error {
	exists, err := es.client.Indices.Exists([]string{es.index}, es.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return err
	}
	defer exists.Body.Close()

	if exists.StatusCode == http.StatusOK {
		return nil
	}

	body, err := documentJSON.Marshal(indexMapping)
	if err != nil {
		return err
	}

	res, err := es.client.Indices.Create(
		es.index,
		es.client.Indices.Create.WithBody(bytes.NewReader(body)),
		es.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		if bytes.Contains(bodyBytes, []byte(errTypeAlreadyExist)) {
			return nil
		}

		return fmt.Errorf("failed to create index %s: %s - %s", es.index, res.Status(), string(bodyBytes))
	}

	return nil
}

// AddEvents creates one document per event with the bulk API and returns how many were created.
//
// Items whose ID is already stored fail with eventstore.ErrDuplicateEventID while the other items are stored.
func (es *EventStore) AddEvents(ctx context.Context, events eventstore.Events) (int, error) {
	ctx, observation := es.instrumentation.Start(ctx, eventstore.OperationAdd, nil)

	if err := ctx.Err(); err != nil {
		return 0, observation.Fail(eventstore.ErrorTypeCanceled, errors.Join(eventstore.ErrAddingEventsFailed, err))
	}

	if len(events) == 0 {
		observation.Succeed(0)
		return 0, nil
	}

	start := time.Now()
	created, bulkErr := es.bulkCreate(ctx, events)
	observation.LogStatement(fmt.Sprintf("bulk %s of %d documents into %s", actionCreate, len(events), es.index), time.Since(start))

	if es.refresh && created > 0 {
		if refreshErr := es.refreshIndex(ctx); refreshErr != nil {
			bulkErr = errors.Join(bulkErr, refreshErr)
		}
	}

	if bulkErr != nil {
		return created, observation.Fail(eventstore.ClassifyError(bulkErr), bulkErr)
	}

	observation.Succeed(created)

	return created, nil
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

// Ping verifies that the cluster answers.
func (es *EventStore) Ping(ctx context.Context) error {
	res, err := es.client.Info(es.client.Info.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch returned error: %s", res.Status())
	}

	return nil
}

func (es *EventStore) bulkCreate(ctx context.Context, events eventstore.Events) (int, error) {
	var (
		mu       sync.Mutex
		created  int
		failures []error
	)

	bi, err := opensearchutil.NewBulkIndexer(opensearchutil.BulkIndexerConfig{
		Client:     es.client,
		Index:      es.index,
		NumWorkers: 1,
	})
	if err != nil {
		return 0, errors.Join(eventstore.ErrAddingEventsFailed, err)
	}

	for _, event := range events {
		document, marshalErr := documentJSON.Marshal(event)
		if marshalErr != nil {
			mu.Lock()
			failures = append(failures, fmt.Errorf("%s: %w", event.ID, marshalErr))
			mu.Unlock()

			continue
		}

		addErr := bi.Add(ctx, opensearchutil.BulkIndexerItem{
			Action:     actionCreate,
			DocumentID: event.ID.String(),
			Body:       bytes.NewReader(document),
			OnSuccess: func(context.Context, opensearchutil.BulkIndexerItem, opensearchutil.BulkIndexerResponseItem) {
				mu.Lock()
				defer mu.Unlock()

				created++
			},
			OnFailure: func(_ context.Context, item opensearchutil.BulkIndexerItem, res opensearchutil.BulkIndexerResponseItem, err error) {
				mu.Lock()
				defer mu.Unlock()

				failures = append(failures, itemError(item.DocumentID, res, err))
			},
		})

		if addErr != nil {
			mu.Lock()
			failures = append(failures, fmt.Errorf("%s: %w", event.ID, addErr))
			mu.Unlock()
		}
	}

	if closeErr := bi.Close(ctx); closeErr != nil {
		failures = append(failures, closeErr)
	}

	if len(failures) > 0 {
		return created, errors.Join(append([]error{eventstore.ErrAddingEventsFailed}, failures...)...)
	}

	return created, nil
}

func itemError(documentID string, res opensearchutil.BulkIndexerResponseItem, err error) error {
	switch {
	case err != nil:
		return fmt.Errorf("%s: %w", documentID, err)
	case res.Status == http.StatusConflict:
		return fmt.Errorf("%w: %s", eventstore.ErrDuplicateEventID, documentID)
	default:
		return fmt.Errorf("%s: %s: %s", documentID, res.Error.Type, res.Error.Reason)
	}
}

func (es *EventStore) refreshIndex(ctx context.Context) error {
	res, err := es.client.Indices.Refresh(
		es.client.Indices.Refresh.WithIndex(es.index),
		es.client.Indices.Refresh.WithContext(ctx),
	)
	if err != nil {
		return errors.Join(eventstore.ErrAddingEventsFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.Join(eventstore.ErrAddingEventsFailed, fmt.Errorf("refresh failed: %s", res.Status()))
	}

	return nil
}

type searchResult struct {
	Hits struct {
		Hits []struct {
			ID     string              `json:"_id"`
			Source jsoniter.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (es *EventStore) readPage(ctx context.Context, criteria eventstore.Criteria, limit int) (eventstore.Events, error) {
	body, err := documentJSON.Marshal(searchBody(criteria, limit))
	if err != nil {
		return nil, errors.Join(eventstore.ErrBuildingQueryFailed, err)
	}

	start := time.Now()
	res, err := es.client.Search(
		es.client.Search.WithContext(ctx),
		es.client.Search.WithIndex(es.index),
		es.client.Search.WithBody(bytes.NewReader(body)),
	)
	es.instrumentation.LogStatement(ctx, eventstore.OperationQuery, string(body), time.Since(start))

	if err != nil {
		return nil, errors.Join(eventstore.ErrQueryingEventsFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		return nil, errors.Join(
			eventstore.ErrQueryingEventsFailed,
			fmt.Errorf("opensearch error: %s - %s", res.Status(), string(bodyBytes)),
		)
	}

	var result searchResult
	if decodeErr := documentJSON.NewDecoder(res.Body).Decode(&result); decodeErr != nil {
		return nil, errors.Join(eventstore.ErrScanningDBRowFailed, decodeErr)
	}

	events := make(eventstore.Events, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		var event eventstore.Event
		if unmarshalErr := documentJSON.Unmarshal(hit.Source, &event); unmarshalErr != nil {
			return nil, errors.Join(eventstore.ErrScanningDBRowFailed, fmt.Errorf("%s: %w", hit.ID, unmarshalErr))
		}

		if event.Time != nil {
			utc := event.Time.UTC()
			event.Time = &utc
		}

		events = append(events, event)
	}

	return events, nil
}

// searchBody translates criteria into a bool query with one filter clause per predicate.
// Documents without "time" never match a range clause on it.
func searchBody(criteria eventstore.Criteria, limit int) map[string]any {
	predicates := criteria.Predicates()
	filters := make([]map[string]any, 0, len(predicates))

	for _, predicate := range predicates {
		field := fieldFor(predicate.Field())
		value := predicateValue(predicate)

		if predicate.Operator() == eventstore.OpEqual {
			filters = append(filters, map[string]any{"term": map[string]any{field: value}})
			continue
		}

		bounds := map[string]any{string(predicate.Operator()): value}
		if predicate.Field() == eventstore.FieldTime {
			bounds["format"] = timeFormat
		}

		filters = append(filters, map[string]any{"range": map[string]any{field: bounds}})
	}

	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"filter": filters,
			},
		},
		"sort": []map[string]any{
			{fieldID: map[string]string{"order": "asc"}},
		},
		"size":             limit,
		"track_total_hits": false,
	}
}

func fieldFor(field eventstore.Field) string {
	switch field {
	case eventstore.FieldITwinID:
		return fieldITwinID
	case eventstore.FieldAccountID:
		return fieldAccountID
	case eventstore.FieldCorrelationID:
		return fieldCorrelationID
	case eventstore.FieldType:
		return fieldType
	case eventstore.FieldTime:
		return fieldTime
	default:
		return fieldID
	}
}

func predicateValue(predicate eventstore.Predicate) any {
	switch v := predicate.Value().(type) {
	case uuid.UUID:
		return v.String()
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

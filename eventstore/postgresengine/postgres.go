package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
	"github.com/AntonStoeckl/typed-eventstore-go/eventstore/postgresengine/internal/adapters"
)

const (
	defaultEventTableName = "events"
	backendPostgres       = "postgres"
	backendSQLite         = "sqlite"
	queryBatchSize        = 500
	colID                 = "id"
	colITwinID            = "itwin_id"
	colAccountID          = "account_id"
	colCorrelationID      = "correlation_id"
	colSpecVersion        = "spec_version"
	colSource             = "source"
	colType               = "type"
	colTime               = "time"
	colData               = "data"
)

var selectColumns = []any{
	colID, colITwinID, colAccountID, colCorrelationID, colSpecVersion, colSource, colType, colTime, colData,
}

// EventStore stores events in a relational table and reads them back in ascending ID order.
// It renders SQL with goqu for PostgreSQL or SQLite and runs it through a database adapter.
type EventStore struct {
	db              adapters.DBAdapter
	dialect         goqu.DialectWrapper
	eventTableName  string
	instrumentation eventstore.Instrumentation
	linkBase        string
}

type queryResultRow struct {
	id            any
	iTwinID       any
	accountID     any
	correlationID string
	specVersion   string
	source        string
	eventType     string
	occurredAt    any
	data          []byte
}

// NewEventStoreFromPGXPool creates a new EventStore using a pgx Pool with optional configuration.
func NewEventStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*EventStore, error) {
	if db == nil {
		return nil, eventstore.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewPGXAdapter(db), dialectPostgres, backendPostgres, options)
}

// NewEventStoreFromPGXPoolAndReplica creates a new EventStore using a primary and a replica pgx Pool.
// Reads use the replica when the context carries eventstore.WithEventualConsistency.
func NewEventStoreFromPGXPoolAndReplica(db *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (*EventStore, error) {
	if db == nil || replica == nil {
		return nil, eventstore.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewPGXAdapterWithReplica(db, replica), dialectPostgres, backendPostgres, options)
}

// NewEventStoreFromSQLDB creates a new EventStore using a PostgreSQL sql.DB with optional configuration.
func NewEventStoreFromSQLDB(db *sql.DB, options ...Option) (*EventStore, error) {
	if db == nil {
		return nil, eventstore.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewSQLAdapter(db), dialectPostgres, backendPostgres, options)
}

// NewEventStoreFromSQLDBAndReplica creates a new EventStore using a primary and a replica PostgreSQL sql.DB.
func NewEventStoreFromSQLDBAndReplica(db *sql.DB, replica *sql.DB, options ...Option) (*EventStore, error) {
	if db == nil || replica == nil {
		return nil, eventstore.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewSQLAdapterWithReplica(db, replica), dialectPostgres, backendPostgres, options)
}

// NewEventStoreFromSQLX creates a new EventStore using a PostgreSQL sqlx.DB with optional configuration.
func NewEventStoreFromSQLX(db *sqlx.DB, options ...Option) (*EventStore, error) {
	if db == nil {
		return nil, eventstore.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewSQLXAdapter(db), dialectPostgres, backendPostgres, options)
}

// NewEventStoreFromSQLXAndReplica creates a new EventStore using a primary and a replica PostgreSQL sqlx.DB.
func NewEventStoreFromSQLXAndReplica(db *sqlx.DB, replica *sqlx.DB, options ...Option) (*EventStore, error) {
	if db == nil || replica == nil {
		return nil, eventstore.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewSQLXAdapterWithReplica(db, replica), dialectPostgres, backendPostgres, options)
}

// NewEventStoreFromSQLite creates a new EventStore on a sql.DB opened with the modernc.org/sqlite driver.
// The table must have been created with MigrateSQLite.
func NewEventStoreFromSQLite(db *sql.DB, options ...Option) (*EventStore, error) {
	if db == nil {
		return nil, eventstore.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewSQLAdapter(db), dialectSQLite, backendSQLite, options)
}

func newEventStore(db adapters.DBAdapter, dialect string, backend string, options []Option) (*EventStore, error) {
	es := &EventStore{
		db:              db,
		dialect:         goqu.Dialect(dialect),
		eventTableName:  defaultEventTableName,
		instrumentation: eventstore.Instrumentation{Backend: backend},
		linkBase:        eventstore.DefaultLinkBase,
	}

	for _, option := range options {
		if err := option(es); err != nil {
			return nil, err
		}
	}

	return es, nil
}

// AddEvents inserts events with one multi-row INSERT statement and returns how many were stored.
//
// The statement is atomic: if one ID is already stored, the whole batch is rejected
// with eventstore.ErrDuplicateEventID and nothing is stored.
func (es *EventStore) AddEvents(ctx context.Context, events eventstore.Events) (int, error) {
	ctx, observation := es.instrumentation.Start(ctx, eventstore.OperationAdd, nil)

	if len(events) == 0 {
		observation.Succeed(0)
		return 0, nil
	}

	sqlQuery, buildQueryErr := es.buildInsertQuery(events)
	if buildQueryErr != nil {
		return 0, observation.Fail(eventstore.ErrorTypeBuildQuery, buildQueryErr)
	}

	start := time.Now()
	result, execErr := es.db.Exec(ctx, sqlQuery)
	observation.LogStatement(sqlQuery, time.Since(start))

	if execErr != nil {
		if isDuplicateKeyError(execErr) {
			return 0, observation.Fail(
				eventstore.ErrorTypeDuplicate,
				errors.Join(eventstore.ErrAddingEventsFailed, eventstore.ErrDuplicateEventID, execErr),
			)
		}

		err := errors.Join(eventstore.ErrAddingEventsFailed, execErr)

		return 0, observation.Fail(eventstore.ClassifyError(err), err)
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		return 0, observation.Fail(
			eventstore.ErrorTypeBackend,
			errors.Join(eventstore.ErrAddingEventsFailed, rowsAffectedErr),
		)
	}

	observation.Succeed(int(rowsAffected))

	return int(rowsAffected), nil
}

// QueryEvents returns all events matching query in ascending ID order.
// The rows are read lazily with keyset pagination in batches.
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

	ctx, observation := es.instrumentation.Start(ctx, eventstore.OperationPaginate, es.readAttrs(ctx))

	page, err := eventstore.Paginate(ctx, es.readPage, query, size, es.linkBase)
	if err != nil {
		return eventstore.Page{}, observation.Fail(eventstore.ClassifyError(err), err)
	}

	observation.Succeed(len(page.Items))

	return page, nil
}

// Ping verifies the connection to the primary database and, if configured, the replica.
func (es *EventStore) Ping(ctx context.Context) error {
	return es.db.Ping(ctx)
}

func (es *EventStore) readPage(ctx context.Context, criteria eventstore.Criteria, limit int) (eventstore.Events, error) {
	sqlQuery, buildQueryErr := es.buildSelectQuery(criteria, limit)
	if buildQueryErr != nil {
		return nil, buildQueryErr
	}

	start := time.Now()
	rows, queryErr := es.db.Query(ctx, sqlQuery)
	es.instrumentation.LogStatement(ctx, eventstore.OperationQuery, sqlQuery, time.Since(start))

	if queryErr != nil {
		return nil, errors.Join(eventstore.ErrQueryingEventsFailed, queryErr)
	}
	defer es.closeRows(ctx, rows)

	return processQueryResults(rows, limit)
}

// processQueryResults converts database rows into events.
func processQueryResults(rows adapters.DBRows, limit int) (eventstore.Events, error) {
	result := queryResultRow{}
	events := make(eventstore.Events, 0, limit)

	for rows.Next() {
		rowScanErr := rows.Scan(
			&result.id,
			&result.iTwinID,
			&result.accountID,
			&result.correlationID,
			&result.specVersion,
			&result.source,
			&result.eventType,
			&result.occurredAt,
			&result.data,
		)
		if rowScanErr != nil {
			return nil, errors.Join(eventstore.ErrScanningDBRowFailed, rowScanErr)
		}

		event, convertErr := result.toEvent()
		if convertErr != nil {
			return nil, errors.Join(eventstore.ErrScanningDBRowFailed, convertErr)
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Join(eventstore.ErrQueryingEventsFailed, err)
	}

	return events, nil
}

func (r queryResultRow) toEvent() (eventstore.Event, error) {
	id, err := uuidFromColumn(r.id)
	if err != nil {
		return eventstore.Event{}, fmt.Errorf("%s: %w", colID, err)
	}

	iTwinID, err := uuidFromColumn(r.iTwinID)
	if err != nil {
		return eventstore.Event{}, fmt.Errorf("%s: %w", colITwinID, err)
	}

	accountID, err := uuidFromColumn(r.accountID)
	if err != nil {
		return eventstore.Event{}, fmt.Errorf("%s: %w", colAccountID, err)
	}

	occurredAt, err := timeFromColumn(r.occurredAt)
	if err != nil {
		return eventstore.Event{}, fmt.Errorf("%s: %w", colTime, err)
	}

	data := make([]byte, len(r.data))
	copy(data, r.data)

	return eventstore.Event{
		ID:            id,
		ITwinID:       iTwinID,
		AccountID:     accountID,
		CorrelationID: r.correlationID,
		SpecVersion:   r.specVersion,
		Source:        r.source,
		Type:          r.eventType,
		Time:          occurredAt,
		Data:          data,
	}, nil
}

func (es *EventStore) buildSelectQuery(criteria eventstore.Criteria, limit int) (string, error) {
	selectStmt := es.dialect.
		From(es.eventTableName).
		Select(selectColumns...).
		Where(whereExpressions(criteria)...).
		Order(goqu.C(colID).Asc()).
		Limit(uint(limit))

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (es *EventStore) buildInsertQuery(events eventstore.Events) (string, error) {
	rows := make([]any, 0, len(events))

	for _, event := range events {
		var occurredAt any
		if event.Time != nil {
			occurredAt = event.Time.UTC()
		}

		rows = append(rows, goqu.Record{
			colID:            event.ID.String(),
			colITwinID:       event.ITwinID.String(),
			colAccountID:     event.AccountID.String(),
			colCorrelationID: event.CorrelationID,
			colSpecVersion:   event.SpecVersion,
			colSource:        event.Source,
			colType:          event.Type,
			colTime:          occurredAt,
			colData:          string(event.Data),
		})
	}

	insertStmt := es.dialect.
		Insert(es.eventTableName).
		Rows(rows...)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// whereExpressions translates the predicates of criteria into goqu expressions, combined with AND.
// A NULL time never satisfies a comparison, so events without time are excluded by time predicates.
func whereExpressions(criteria eventstore.Criteria) []exp.Expression {
	predicates := criteria.Predicates()
	expressions := make([]exp.Expression, 0, len(predicates))

	for _, predicate := range predicates {
		column := goqu.C(columnFor(predicate.Field()))
		value := predicateValue(predicate)

		switch predicate.Operator() {
		case eventstore.OpEqual:
			expressions = append(expressions, column.Eq(value))
		case eventstore.OpGreaterThan:
			expressions = append(expressions, column.Gt(value))
		case eventstore.OpGreaterOrEqual:
			expressions = append(expressions, column.Gte(value))
		case eventstore.OpLessOrEqual:
			expressions = append(expressions, column.Lte(value))
		}
	}

	return expressions
}

func columnFor(field eventstore.Field) string {
	switch field {
	case eventstore.FieldITwinID:
		return colITwinID
	case eventstore.FieldAccountID:
		return colAccountID
	case eventstore.FieldCorrelationID:
		return colCorrelationID
	case eventstore.FieldType:
		return colType
	case eventstore.FieldTime:
		return colTime
	default:
		return colID
	}
}

func predicateValue(predicate eventstore.Predicate) any {
	switch v := predicate.Value().(type) {
	case uuid.UUID:
		return v.String()
	case time.Time:
		return v.UTC()
	default:
		return v
	}
}

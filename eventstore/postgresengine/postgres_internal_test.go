package postgresengine

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
)

var (
	testITwinID = uuid.MustParse("6a1f1b8e-3c3e-4b43-9a87-2c1f0fd2c6a0")
	testEventID = uuid.MustParse("01913d5e-7a4b-7c2d-8e9f-0a1b2c3d4e5f")
)

func postgresEventStore() *EventStore {
	return &EventStore{dialect: goqu.Dialect(dialectPostgres), eventTableName: defaultEventTableName}
}

func Test_BuildSelectQuery_Postgres(t *testing.T) {
	from := time.Date(2025, 6, 1, 12, 0, 0, 0, time.FixedZone("UTC+2", 2*60*60))

	criteria, err := eventstore.BuildQuery().
		WhereITwinID(testITwinID).
		WhereType("imodels.changeset.pushed.v1").
		WhereTimeAfter(from).
		Criteria()
	require.NoError(t, err)

	// act
	sqlQuery, err := postgresEventStore().buildSelectQuery(criteria.WithIDAfter(testEventID), 51)

	// assert
	require.NoError(t, err)
	assert.Equal(
		t,
		`SELECT "id", "itwin_id", "account_id", "correlation_id", "spec_version", "source", "type", "time", "data" `+
			`FROM "events" WHERE (("itwin_id" = '6a1f1b8e-3c3e-4b43-9a87-2c1f0fd2c6a0') `+
			`AND ("type" = 'imodels.changeset.pushed.v1') `+
			`AND ("time" >= '2025-06-01T10:00:00Z') `+
			`AND ("id" > '01913d5e-7a4b-7c2d-8e9f-0a1b2c3d4e5f')) `+
			`ORDER BY "id" ASC LIMIT 51`,
		sqlQuery,
	)
}

func Test_BuildSelectQuery_WithoutPredicates(t *testing.T) {
	// act
	sqlQuery, err := postgresEventStore().buildSelectQuery(eventstore.Criteria{}, 10)

	// assert
	require.NoError(t, err)
	assert.NotContains(t, sqlQuery, "WHERE")
	assert.Contains(t, sqlQuery, `ORDER BY "id" ASC LIMIT 10`)
}

func Test_BuildSelectQuery_SQLiteUsesFixedWidthTimes(t *testing.T) {
	// setup
	es := &EventStore{dialect: goqu.Dialect(dialectSQLite), eventTableName: defaultEventTableName}

	criteria, err := eventstore.BuildQuery().
		WhereTimeBefore(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)).
		Criteria()
	require.NoError(t, err)

	// act
	sqlQuery, err := es.buildSelectQuery(criteria, 10)

	// assert
	require.NoError(t, err)
	assert.Contains(t, sqlQuery, "'2025-06-01T10:00:00.000000000Z'")
}

func Test_BuildInsertQuery_Postgres(t *testing.T) {
	// setup
	occurredAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	withTime, err := eventstore.BuildEventWithID(testEventID, testITwinID, testITwinID, "c-1", "/test", "test.pagination.default", &occurredAt, []byte(`{"it's":1}`))
	require.NoError(t, err)

	withoutTime := withTime
	withoutTime.ID = uuid.MustParse("01913d5e-7a4b-7c2d-8e9f-0a1b2c3d4e60")
	withoutTime.Time = nil

	// act
	sqlQuery, err := postgresEventStore().buildInsertQuery(eventstore.Events{withTime, withoutTime})

	// assert
	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `INSERT INTO "events"`)
	assert.Contains(t, sqlQuery, `'2025-06-01T12:00:00Z'`)
	assert.Contains(t, sqlQuery, `NULL`)
	assert.Contains(t, sqlQuery, `'{"it''s":1}'`, "quotes in payloads must be escaped")
	assert.Contains(t, sqlQuery, "), (", "all events must be inserted with one statement")
}

func Test_IsDuplicateKeyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "pgx unique violation", err: &pgconn.PgError{Code: "23505"}, expected: true},
		{name: "pgx other error", err: &pgconn.PgError{Code: "23502"}, expected: false},
		{name: "lib/pq unique violation", err: &pq.Error{Code: "23505"}, expected: true},
		{name: "wrapped pgx unique violation", err: fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505"}), expected: true},
		{name: "plain error", err: errors.New("connection refused"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isDuplicateKeyError(tt.err))
		})
	}
}

func Test_UUIDFromColumn(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{name: "pgx bytes", value: [16]byte(testEventID)},
		{name: "text", value: testEventID.String()},
		{name: "lib/pq text bytes", value: []byte(testEventID.String())},
		{name: "raw bytes", value: testEventID[:]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := uuidFromColumn(tt.value)

			require.NoError(t, err)
			assert.Equal(t, testEventID, id)
		})
	}

	_, err := uuidFromColumn(42)
	assert.Error(t, err)
}

func Test_TimeFromColumn(t *testing.T) {
	expected := time.Date(2025, 6, 1, 12, 0, 0, 5, time.UTC)

	fromTime, err := timeFromColumn(expected.In(time.FixedZone("UTC+2", 2*60*60)))
	require.NoError(t, err)
	assert.Equal(t, expected, *fromTime)
	assert.Equal(t, time.UTC, fromTime.Location())

	fromText, err := timeFromColumn(expected.Format(sqliteTimeLayout))
	require.NoError(t, err)
	assert.Equal(t, expected, *fromText)

	missing, err := timeFromColumn(nil)
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = timeFromColumn("yesterday")
	assert.Error(t, err)
}

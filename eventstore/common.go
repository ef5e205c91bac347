package eventstore

import (
	"errors"
)

var (
	// ErrNilDatabaseConnection is returned when an engine is constructed without a connection.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrEmptyEventsTableName is returned when an empty table, index or key prefix is configured.
	ErrEmptyEventsTableName = errors.New("events table name must not be empty")

	// ErrDuplicateEventID is returned by engines that reject events whose ID is already stored.
	ErrDuplicateEventID = errors.New("event with the same id already exists")

	// ErrMalformedContinuationToken is returned when a continuation token cannot be decoded.
	ErrMalformedContinuationToken = errors.New("malformed continuation token")

	// ErrUnknownQueryParameter is returned for query parameter names the store does not filter by.
	ErrUnknownQueryParameter = errors.New("unknown query parameter")

	// ErrInvalidParameterValue is returned for query parameter values that cannot be parsed.
	ErrInvalidParameterValue = errors.New("invalid query parameter value")

	// ErrInvalidPageSize is returned for page sizes below 1.
	ErrInvalidPageSize = errors.New("page size must be greater than zero")

	// ErrBuildingQueryFailed is returned when a backend query cannot be rendered.
	ErrBuildingQueryFailed = errors.New("building the query failed")

	// ErrQueryingEventsFailed is returned when reading events from the backend fails.
	ErrQueryingEventsFailed = errors.New("querying events failed")

	// ErrScanningDBRowFailed is returned when a stored event cannot be read back.
	ErrScanningDBRowFailed = errors.New("scanning db row failed")

	// ErrAddingEventsFailed is returned when writing events to the backend fails.
	ErrAddingEventsFailed = errors.New("adding events failed")
)

package schema

import "errors"

var (
	// ErrEmptyEventType is returned when a schema is defined without a discriminator.
	ErrEmptyEventType = errors.New("event type must not be empty")

	// ErrDuplicateEventType is returned when two schemas declare the same discriminator.
	ErrDuplicateEventType = errors.New("event type registered more than once")

	// ErrUnknownEventType is carried by validation results for discriminators missing from the registry.
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrSchemaValidation is carried by validation results for payloads violating their schema.
	ErrSchemaValidation = errors.New("payload does not match the event type schema")
)

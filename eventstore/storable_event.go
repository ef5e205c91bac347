package eventstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

const DefaultSpecVersion = "1.0"

var (
	ErrInvalidDataJSON = errors.New("data json is not valid")
	ErrEmptyEventType  = errors.New("event type must not be empty")
	ErrNilEventID      = errors.New("event id must not be the nil uuid")
)

// Events is an alias type for a slice of Event.
type Events = []Event

// Event is a stored event with its envelope and the raw payload.
//
// ID is the sole ordering key. It is assigned by the producer before the event becomes visible,
// normally with NewEventID, and never changed by a repository.
// Data is opaque to every backend; its shape is determined by Type.
type Event struct {
	ID            uuid.UUID       `json:"id"`
	ITwinID       uuid.UUID       `json:"iTwinId"`
	AccountID     uuid.UUID       `json:"accountId"`
	CorrelationID string          `json:"correlationId,omitempty"`
	SpecVersion   string          `json:"specVersion"`
	Source        string          `json:"source"`
	Type          string          `json:"type"`
	Time          *time.Time      `json:"time,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// NewEventID returns a new time-ordered identifier (UUID version 7).
//
// Identifiers created by one process are strictly increasing; identifiers created concurrently
// by different processes are ordered by their millisecond timestamp prefix.
func NewEventID() (uuid.UUID, error) {
	return uuid.NewV7()
}

// CompareIDs returns -1, 0 or +1 depending on whether a sorts before, equal to or after b.
// The byte order of UUIDv7 values is their time order.
func CompareIDs(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}

// BuildEvent is a factory method for Event with a fresh ID and the default spec version.
//
// Returns an error if eventType is empty or data is not valid JSON.
func BuildEvent(
	iTwinID uuid.UUID,
	accountID uuid.UUID,
	correlationID string,
	source string,
	eventType string,
	occurredAt *time.Time,
	data []byte,
) (Event, error) {

	id, err := NewEventID()
	if err != nil {
		return Event{}, err
	}

	return BuildEventWithID(id, iTwinID, accountID, correlationID, source, eventType, occurredAt, data)
}

// BuildEventWithID is like BuildEvent but with an externally assigned ID.
func BuildEventWithID(
	id uuid.UUID,
	iTwinID uuid.UUID,
	accountID uuid.UUID,
	correlationID string,
	source string,
	eventType string,
	occurredAt *time.Time,
	data []byte,
) (Event, error) {

	if id == uuid.Nil {
		return Event{}, ErrNilEventID
	}

	if eventType == "" {
		return Event{}, ErrEmptyEventType
	}

	if !jsoniter.ConfigFastest.Valid(data) {
		return Event{}, ErrInvalidDataJSON
	}

	if occurredAt != nil {
		utc := occurredAt.UTC()
		occurredAt = &utc
	}

	return Event{
		ID:            id,
		ITwinID:       iTwinID,
		AccountID:     accountID,
		CorrelationID: correlationID,
		SpecVersion:   DefaultSpecVersion,
		Source:        source,
		Type:          eventType,
		Time:          occurredAt,
		Data:          data,
	}, nil
}

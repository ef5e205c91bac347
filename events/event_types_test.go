package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/typed-eventstore-go/events"
	"github.com/AntonStoeckl/typed-eventstore-go/schema"
)

func Test_NewTypeRegistry_ContainsAllCompiledPayloadTypes(t *testing.T) {
	registry := events.NewTypeRegistry()

	assert.Equal(
		t,
		[]string{
			events.AccountCreatedV1EventType,
			events.AccountDeletedV1EventType,
			events.ChangesetPushedV1EventType,
			events.IModelCreatedV1EventType,
			events.SynchronizationRunCompletedEventType,
			events.PaginationTestEventType,
			events.ConstraintsTestEventType,
		},
		registry.ListTypes(),
	)
}

//nolint:funlen
func Test_PayloadConstraints(t *testing.T) {
	validator := schema.NewValidator(events.NewTypeRegistry())

	tests := []struct {
		name         string
		eventType    string
		payload      string
		expectErrors []string
	}{
		{
			name:      "changeset index below range",
			eventType: events.ChangesetPushedV1EventType,
			payload:   `{"iModelId": "0198a4c2-4f3c-7a61-9b1e-4b6a7e0c2d11", "changesetId": "cs-1", "index": 0}`,
			expectErrors: []string{
				"The field Index must be between 1 and 2147483647.",
			},
		},
		{
			name:      "changeset valid",
			eventType: events.ChangesetPushedV1EventType,
			payload:   `{"iModelId": "0198a4c2-4f3c-7a61-9b1e-4b6a7e0c2d11", "changesetId": "cs-1", "index": 7, "fileSize": 1024}`,
		},
		{
			name:      "synchronization run without files and negative duration",
			eventType: events.SynchronizationRunCompletedEventType,
			payload:   `{"runId": "run-1", "state": "Completed", "durationSeconds": -1}`,
			expectErrors: []string{
				"The field DurationSeconds must be between 0 and 604800.",
				"The Files field must not be empty.",
			},
		},
		{
			name:      "synchronization run valid",
			eventType: events.SynchronizationRunCompletedEventType,
			payload:   `{"runId": "run-1", "state": "Completed", "durationSeconds": 12, "files": ["a.dgn"]}`,
		},
		{
			name:      "imodel created with empty name",
			eventType: events.IModelCreatedV1EventType,
			payload:   `{"iModelId": "0198a4c2-4f3c-7a61-9b1e-4b6a7e0c2d11", "name": ""}`,
			expectErrors: []string{
				"The Name field is required.",
			},
		},
		{
			name:      "account deleted valid",
			eventType: events.AccountDeletedV1EventType,
			payload:   `{"accountId": "0198a4c2-4f3c-7a61-9b1e-4b6a7e0c2d11", "reason": "closed"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validator.Validate(tt.eventType, []byte(tt.payload))

			if tt.expectErrors == nil {
				assert.True(t, result.IsValid, "unexpected errors: %v", result.Errors)
				return
			}

			assert.False(t, result.IsValid)
			assert.Equal(t, tt.expectErrors, result.Errors)
		})
	}
}

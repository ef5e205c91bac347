package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/typed-eventstore-go/events"
	"github.com/AntonStoeckl/typed-eventstore-go/schema"
)

//nolint:funlen
func Test_Validator_Validate(t *testing.T) {
	validator := schema.NewValidator(events.NewTypeRegistry())

	tests := []struct {
		name           string
		eventType      string
		payload        string
		expectValid    bool
		expectErrors   []string
		expectContains string
		expectCause    error
	}{
		{
			name:         "unknown event type",
			eventType:    "bogus.type",
			payload:      `{}`,
			expectErrors: []string{`"bogus.type" is not a valid Event Type.`},
			expectCause:  schema.ErrUnknownEventType,
		},
		{
			name:           "all required properties absent",
			eventType:      events.AccountCreatedV1EventType,
			payload:        `{}`,
			expectContains: "missing required properties",
			expectCause:    schema.ErrSchemaValidation,
		},
		{
			name:           "one required property absent",
			eventType:      events.AccountCreatedV1EventType,
			payload:        `{"accountId": "0198a4c2-4f3c-7a61-9b1e-4b6a7e0c2d11"}`,
			expectContains: "including the following: name",
			expectCause:    schema.ErrSchemaValidation,
		},
		{
			name:         "required field empty",
			eventType:    events.AccountCreatedV1EventType,
			payload:      `{"accountId": "0198a4c2-4f3c-7a61-9b1e-4b6a7e0c2d11", "name": ""}`,
			expectErrors: []string{"The Name field is required."},
			expectCause:  schema.ErrSchemaValidation,
		},
		{
			name:        "valid account created",
			eventType:   events.AccountCreatedV1EventType,
			payload:     `{"accountId": "0198a4c2-4f3c-7a61-9b1e-4b6a7e0c2d11", "name": "Contoso"}`,
			expectValid: true,
		},
		{
			name:         "malformed json",
			eventType:    events.AccountCreatedV1EventType,
			payload:      `{"accountId": `,
			expectErrors: []string{"The payload is not valid JSON."},
			expectCause:  schema.ErrSchemaValidation,
		},
		{
			name:         "payload is an array",
			eventType:    events.PaginationTestEventType,
			payload:      `[1, 2]`,
			expectErrors: []string{"The payload must be a JSON object."},
			expectCause:  schema.ErrSchemaValidation,
		},
		{
			name:           "wrong shape",
			eventType:      events.ChangesetPushedV1EventType,
			payload:        `{"iModelId": "0198a4c2-4f3c-7a61-9b1e-4b6a7e0c2d11", "changesetId": "abc", "index": "first"}`,
			expectContains: "could not be decoded",
			expectCause:    schema.ErrSchemaValidation,
		},
		{
			name:      "all constraints violated in declaration order",
			eventType: events.ConstraintsTestEventType,
			payload:   `{"name": " ", "count": 11, "tags": []}`,
			expectErrors: []string{
				"The Name field is required.",
				"The field Count must be between 1 and 10.",
				"The Tags field must not be empty.",
			},
			expectCause: schema.ErrSchemaValidation,
		},
		{
			name:         "malformed uuid",
			eventType:    events.AccountDeletedV1EventType,
			payload:      `{"accountId": "not-a-uuid"}`,
			expectErrors: []string{"The AccountId field must be a valid UUID."},
			expectCause:  schema.ErrSchemaValidation,
		},
		{
			name:        "payload without required properties",
			eventType:   events.PaginationTestEventType,
			payload:     `{}`,
			expectValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validator.Validate(tt.eventType, []byte(tt.payload))

			assert.Equal(t, tt.expectValid, result.IsValid)

			if tt.expectValid {
				assert.Empty(t, result.Errors)
				assert.NoError(t, result.Err())
				return
			}

			if tt.expectErrors != nil {
				assert.Equal(t, tt.expectErrors, result.Errors)
			}

			if tt.expectContains != "" {
				assert.Len(t, result.Errors, 1)
				assert.Contains(t, result.Errors[0], tt.expectContains)
			}

			assert.ErrorIs(t, result.Err(), tt.expectCause)
		})
	}
}

func Test_Validator_Validate_IsDeterministic(t *testing.T) {
	validator := schema.NewValidator(events.NewTypeRegistry())
	payload := []byte(`{"name": "", "count": 0, "tags": []}`)

	first := validator.Validate(events.ConstraintsTestEventType, payload)
	second := validator.Validate(events.ConstraintsTestEventType, payload)

	assert.Equal(t, first, second)
}

func Test_Schema_Decode_ShouldPanic_WhenNotBuiltWithDefine(t *testing.T) {
	assert.Panics(t, func() {
		schema.Schema{}.Decode([]byte(`{}`))
	})
}

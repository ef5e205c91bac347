package events

import (
	"github.com/AntonStoeckl/typed-eventstore-go/schema"
)

type EventTypeString = string

const (
	AccountCreatedV1EventType            EventTypeString = "control.account.created.v1"
	AccountDeletedV1EventType            EventTypeString = "control.account.deleted.v1"
	IModelCreatedV1EventType             EventTypeString = "imodels.imodel.created.v1"
	ChangesetPushedV1EventType           EventTypeString = "imodels.changeset.pushed.v1"
	SynchronizationRunCompletedEventType EventTypeString = "synchronization.run.completed.v1"
	PaginationTestEventType              EventTypeString = "test.pagination.default"
	ConstraintsTestEventType             EventTypeString = "test.validation.constraints.v1"
)

// Schemas returns the schemas of all compiled payload types.
func Schemas() []schema.Schema {
	return []schema.Schema{
		schema.Define[AccountCreatedV1](AccountCreatedV1EventType, "accountId", "name"),
		schema.Define[AccountDeletedV1](AccountDeletedV1EventType, "accountId"),
		schema.Define[IModelCreatedV1](IModelCreatedV1EventType, "iModelId", "name"),
		schema.Define[ChangesetPushedV1](ChangesetPushedV1EventType, "iModelId", "changesetId", "index"),
		schema.Define[SynchronizationRunCompletedV1](SynchronizationRunCompletedEventType, "runId", "state"),
		schema.Define[PaginationTest](PaginationTestEventType),
		schema.Define[ConstraintsTest](ConstraintsTestEventType),
	}
}

// NewTypeRegistry builds the registry of all compiled payload types.
// It panics if two payload types claim the same discriminator.
func NewTypeRegistry() *schema.TypeRegistry {
	return schema.MustNewTypeRegistry(Schemas()...)
}

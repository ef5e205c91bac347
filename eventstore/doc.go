// Package eventstore provides the core types of a typed, append-only event store
// with filterable, cursor-paginated queries.
//
// It defines the storage-agnostic contract implemented by the engines in the sub packages:
//   - Event: the stored envelope with a raw JSON payload, ordered by its UUIDv7 ID
//   - QueryBuilder: an immutable description of a filter rendered into Criteria
//   - ContinuationToken: the opaque cursor that resumes a query after a given ID
//   - EventRepository: AddEvents, QueryEvents and GetPaginatedEvents
//
// Common usage pattern:
//
//	query := eventstore.BuildQuery().
//		WhereITwinID(iTwinID).
//		WhereType("imodels.changeset.pushed.v1")
//
//	page, err := repository.GetPaginatedEvents(ctx, query, eventstore.DefaultPageSize)
//	if err != nil {
//		// handle error
//	}
//
//	if page.Links.Next != nil {
//		// the next link carries a continuation token
//	}
//
// Payload validation is not part of this package, see the schema package.
package eventstore

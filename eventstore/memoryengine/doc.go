// Package memoryengine provides an in-process implementation of eventstore.EventRepository.
//
// Events are kept in a slice sorted by ID and guarded by a sync.RWMutex. AddEvents is all-or-nothing:
// a batch containing an ID that is already stored, or the same ID twice, is rejected as a whole
// with eventstore.ErrDuplicateEventID.
//
// Usage:
//
//	store, _ := memoryengine.NewEventStore(memoryengine.WithLogger(slog.Default()))
//	added, err := store.AddEvents(ctx, events)
//	page, err := store.GetPaginatedEvents(ctx, eventstore.BuildQuery().WhereITwinID(iTwinID), 0)
package memoryengine

// Package redisengine provides a Redis implementation of eventstore.EventRepository.
//
// Every event is stored as a JSON document under "<prefix>event:<id>". All IDs are members of the sorted set
// "<prefix>ids" with score 0, so ZRANGEBYLEX walks them in ascending ID order. Queries scan that index from the
// continuation ID on and filter the loaded documents in process.
//
// AddEvents applies a batch in one MULTI/EXEC transaction. An ID that is already stored is overwritten.
//
// Usage:
//
//	client, _ := redisengine.NewClient(ctx, "redis://localhost:6379/0")
//	store, _ := redisengine.NewEventStore(client, redisengine.WithKeyPrefix("tenant-a:"))
//	added, err := store.AddEvents(ctx, events)
package redisengine

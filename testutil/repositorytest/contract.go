// Package repositorytest holds the behavior every eventstore.EventRepository must show,
// as a suite each engine runs against its own backend.
package repositorytest

import (
	"context"
	"net/url"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/typed-eventstore-go/events"
	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
	"github.com/AntonStoeckl/typed-eventstore-go/testutil/fixtures"
)

// DuplicatePolicy is what an engine does when AddEvents meets an already stored ID.
type DuplicatePolicy int

const (
	// RejectBatch fails with eventstore.ErrDuplicateEventID and stores nothing of the batch.
	RejectBatch DuplicatePolicy = iota

	// Overwrite replaces the stored event.
	Overwrite

	// RejectItem fails with eventstore.ErrDuplicateEventID for the already stored IDs
	// and stores the other events of the batch.
	RejectItem
)

// Factory creates an empty repository for one sub test.
type Factory func(t *testing.T) eventstore.EventRepository

// Run executes the contract suite.
//
//nolint:funlen
func Run(t *testing.T, newRepository Factory, policy DuplicatePolicy) {
	t.Run("query returns all events in ascending id order", func(t *testing.T) {
		// setup
		ctx := context.Background()
		repo := newRepository(t)
		all := fixtures.NewGenerator(1).MixedEvents(12, events.AccountCreatedV1EventType, events.IModelCreatedV1EventType)

		reversed := slices.Clone(all)
		slices.Reverse(reversed)

		// act
		added, err := repo.AddEvents(ctx, reversed)
		require.NoError(t, err)

		found, err := eventstore.Collect(repo.QueryEvents(ctx, eventstore.BuildQuery()))

		// assert
		require.NoError(t, err)
		assert.Equal(t, len(all), added)
		AssertSameEvents(t, all, found)
	})

	t.Run("adding no events is a no-op", func(t *testing.T) {
		// setup
		ctx := context.Background()
		repo := newRepository(t)

		// act
		added, err := repo.AddEvents(ctx, eventstore.Events{})

		// assert
		require.NoError(t, err)
		assert.Equal(t, 0, added)
	})

	t.Run("filters are a conjunction", func(t *testing.T) {
		// setup
		ctx := context.Background()
		repo := newRepository(t)

		generatorA := fixtures.NewGenerator(2)
		generatorB := generatorA.ForITwin(uuid.MustParse("2c1a6f8e-77c4-4c53-a9a4-0d2f1f6b8e11"))

		var all eventstore.Events
		for range 5 {
			all = append(all,
				generatorA.Event(events.ChangesetPushedV1EventType),
				generatorA.Event(events.IModelCreatedV1EventType),
				generatorB.Event(events.ChangesetPushedV1EventType),
			)
		}

		_, err := repo.AddEvents(ctx, all)
		require.NoError(t, err)

		query := eventstore.BuildQuery().
			WhereITwinID(generatorA.ITwinID()).
			WhereType(events.ChangesetPushedV1EventType)

		// act
		found, err := eventstore.Collect(repo.QueryEvents(ctx, query))

		// assert
		require.NoError(t, err)
		AssertSameEvents(t, matching(t, all, query), found)
		assert.Len(t, found, 5)
	})

	t.Run("single field filters", func(t *testing.T) {
		// setup
		ctx := context.Background()
		repo := newRepository(t)
		generator := fixtures.NewGenerator(3)
		other := generator.ForAccount(uuid.MustParse("e3b0c442-98fc-4c14-9afb-f4c8996fb924"))

		all := append(generator.Events(events.AccountCreatedV1EventType, 4), other.Events(events.AccountDeletedV1EventType, 3)...)
		_, err := repo.AddEvents(ctx, all)
		require.NoError(t, err)

		queries := map[string]eventstore.QueryBuilder{
			"id":             eventstore.BuildQuery().WhereID(all[2].ID),
			"account id":     eventstore.BuildQuery().WhereAccountID(other.AccountID()),
			"correlation id": eventstore.BuildQuery().WhereCorrelationID(all[5].CorrelationID),
			"unknown type":   eventstore.BuildQuery().WhereType("not.stored.v1"),
		}

		for name, query := range queries {
			// act
			found, queryErr := eventstore.Collect(repo.QueryEvents(ctx, query))

			// assert
			require.NoError(t, queryErr, name)
			AssertSameEvents(t, matching(t, all, query), found)
		}
	})

	t.Run("time filters are inclusive and skip events without time", func(t *testing.T) {
		// setup
		ctx := context.Background()
		repo := newRepository(t)
		all := fixtures.NewGenerator(4).Events(events.PaginationTestEventType, 6)
		all[3] = fixtures.WithoutTime(all[3])

		_, err := repo.AddEvents(ctx, all)
		require.NoError(t, err)

		query := eventstore.BuildQuery().WhereTimeBetween(*all[1].Time, *all[4].Time)

		// act
		found, err := eventstore.Collect(repo.QueryEvents(ctx, query))

		// assert
		require.NoError(t, err)
		AssertSameEvents(t, eventstore.Events{all[1], all[2], all[4]}, found)
	})

	t.Run("sixty events paginate into fifty and ten", func(t *testing.T) {
		// setup
		ctx := context.Background()
		repo := newRepository(t)
		all := fixtures.NewGenerator(5).Events(events.PaginationTestEventType, 60)

		_, err := repo.AddEvents(ctx, all)
		require.NoError(t, err)

		query := eventstore.BuildQuery().WhereType(events.PaginationTestEventType)

		// act
		first, err := repo.GetPaginatedEvents(ctx, query, 0)
		require.NoError(t, err)
		require.NotNil(t, first.Links.Next)

		second, err := repo.GetPaginatedEvents(ctx, queryFromLink(t, first.Links.Next), 0)
		require.NoError(t, err)

		// assert
		AssertSameEvents(t, all[:50], first.Items)
		AssertSameEvents(t, all[50:], second.Items)
		assert.Nil(t, second.Links.Next)
	})

	t.Run("pagination visits every matching event exactly once", func(t *testing.T) {
		// setup
		ctx := context.Background()
		repo := newRepository(t)
		all := fixtures.NewGenerator(6).MixedEvents(
			40,
			events.ChangesetPushedV1EventType,
			events.SynchronizationRunCompletedEventType,
		)

		_, err := repo.AddEvents(ctx, all)
		require.NoError(t, err)

		query := eventstore.BuildQuery().WhereType(events.ChangesetPushedV1EventType)
		expected := matching(t, all, query)
		visited := make(eventstore.Events, 0)

		// act
		for {
			page, pageErr := repo.GetPaginatedEvents(ctx, query, 7)
			require.NoError(t, pageErr)

			visited = append(visited, page.Items...)
			if page.Links.Next == nil {
				break
			}

			query = queryFromLink(t, page.Links.Next)
		}

		// assert
		AssertSameEvents(t, expected, visited)
	})

	t.Run("empty result has no next link", func(t *testing.T) {
		// setup
		repo := newRepository(t)

		// act
		page, err := repo.GetPaginatedEvents(context.Background(), eventstore.BuildQuery().WhereType("nothing.here.v1"), 0)

		// assert
		require.NoError(t, err)
		assert.NotNil(t, page.Items)
		assert.Empty(t, page.Items)
		assert.Nil(t, page.Links.Next)
	})

	t.Run("already stored ids", func(t *testing.T) {
		// setup
		ctx := context.Background()
		repo := newRepository(t)
		generator := fixtures.NewGenerator(7)
		stored := generator.Events(events.AccountCreatedV1EventType, 2)

		_, err := repo.AddEvents(ctx, stored)
		require.NoError(t, err)

		replacement := stored[1]
		replacement.Source = "/replaced"
		batch := eventstore.Events{generator.Event(events.AccountDeletedV1EventType), replacement}

		// act
		_, addErr := repo.AddEvents(ctx, batch)
		found, err := eventstore.Collect(repo.QueryEvents(ctx, eventstore.BuildQuery()))
		require.NoError(t, err)

		// assert
		switch policy {
		case RejectBatch:
			assert.ErrorIs(t, addErr, eventstore.ErrDuplicateEventID)
			AssertSameEvents(t, stored, found)

		case Overwrite:
			assert.NoError(t, addErr)
			AssertSameEvents(t, eventstore.Events{stored[0], replacement, batch[0]}, found)

		case RejectItem:
			assert.ErrorIs(t, addErr, eventstore.ErrDuplicateEventID)
			AssertSameEvents(t, eventstore.Events{stored[0], stored[1], batch[0]}, found)
		}
	})

	t.Run("canceled add stores nothing", func(t *testing.T) {
		// setup
		repo := newRepository(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// act
		_, addErr := repo.AddEvents(ctx, fixtures.NewGenerator(8).Events(events.PaginationTestEventType, 3))
		found, err := eventstore.Collect(repo.QueryEvents(context.Background(), eventstore.BuildQuery()))

		// assert
		assert.Error(t, addErr)
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("lazy query can be stopped early", func(t *testing.T) {
		// setup
		ctx := context.Background()
		repo := newRepository(t)
		all := fixtures.NewGenerator(9).Events(events.PaginationTestEventType, 10)

		_, err := repo.AddEvents(ctx, all)
		require.NoError(t, err)

		// act
		var firstThree eventstore.Events
		for event, iterErr := range repo.QueryEvents(ctx, eventstore.BuildQuery()) {
			require.NoError(t, iterErr)

			firstThree = append(firstThree, event)
			if len(firstThree) == 3 {
				break
			}
		}

		// assert
		AssertSameEvents(t, all[:3], firstThree)
	})
}

// AssertSameEvents compares events field by field. Payloads are compared as JSON documents,
// because backends may normalize their formatting.
func AssertSameEvents(t *testing.T, expected eventstore.Events, actual eventstore.Events) {
	t.Helper()

	require.Len(t, actual, len(expected))

	for i := range expected {
		want, got := expected[i], actual[i]

		assert.Equal(t, want.ID, got.ID, "event %d: id", i)
		assert.Equal(t, want.ITwinID, got.ITwinID, "event %d: iTwinId", i)
		assert.Equal(t, want.AccountID, got.AccountID, "event %d: accountId", i)
		assert.Equal(t, want.CorrelationID, got.CorrelationID, "event %d: correlationId", i)
		assert.Equal(t, want.SpecVersion, got.SpecVersion, "event %d: specVersion", i)
		assert.Equal(t, want.Source, got.Source, "event %d: source", i)
		assert.Equal(t, want.Type, got.Type, "event %d: type", i)
		assert.JSONEq(t, string(want.Data), string(got.Data), "event %d: data", i)

		if want.Time == nil {
			assert.Nil(t, got.Time, "event %d: time", i)
			continue
		}

		if assert.NotNil(t, got.Time, "event %d: time", i) {
			assert.WithinDuration(t, *want.Time, *got.Time, time.Microsecond, "event %d: time", i)
		}
	}
}

func matching(t *testing.T, all eventstore.Events, query eventstore.QueryBuilder) eventstore.Events {
	t.Helper()

	criteria, err := query.Criteria()
	require.NoError(t, err)

	found := make(eventstore.Events, 0)
	for _, event := range all {
		if criteria.Matches(event) {
			found = append(found, event)
		}
	}

	slices.SortFunc(found, func(a, b eventstore.Event) int { return eventstore.CompareIDs(a.ID, b.ID) })

	return found
}

func queryFromLink(t *testing.T, link *eventstore.Link) eventstore.QueryBuilder {
	t.Helper()

	parsed, err := url.Parse(link.Href)
	require.NoError(t, err)

	token, err := eventstore.ParseToken(parsed.Query().Get(eventstore.ParamContinuationToken))
	require.NoError(t, err)

	return eventstore.BuildQuery().WithContinuationToken(token)
}

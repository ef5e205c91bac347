package eventstore_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
)

const paginationEventType = "test.pagination.default"

func givenOrderedEvents(t *testing.T, count int, typeOf func(i int) string) eventstore.Events {
	t.Helper()

	events := make(eventstore.Events, 0, count)
	for i := range count {
		event, err := eventstore.BuildEvent(iTwinA, accountA, "", "/test", typeOf(i), nil, []byte(fmt.Sprintf(`{"sequence":%d}`, i)))
		require.NoError(t, err)

		events = append(events, event)
	}

	slices.SortFunc(events, func(a, b eventstore.Event) int { return eventstore.CompareIDs(a.ID, b.ID) })

	return events
}

func sliceReader(all eventstore.Events) eventstore.PageReader {
	return func(_ context.Context, criteria eventstore.Criteria, limit int) (eventstore.Events, error) {
		found := make(eventstore.Events, 0)

		for _, event := range all {
			if !criteria.Matches(event) {
				continue
			}

			found = append(found, event)
			if len(found) == limit {
				break
			}
		}

		return found, nil
	}
}

func tokenFromLink(t *testing.T, link *eventstore.Link) eventstore.ContinuationToken {
	t.Helper()
	require.NotNil(t, link)

	parsed, err := url.Parse(link.Href)
	require.NoError(t, err)

	token, err := eventstore.ParseToken(parsed.Query().Get(eventstore.ParamContinuationToken))
	require.NoError(t, err)

	return token
}

func Test_NewPageSize(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		expected  int
		wantErr   bool
	}{
		{name: "regular size", requested: 10, expected: 10},
		{name: "maximum size", requested: eventstore.MaxPageSize, expected: eventstore.MaxPageSize},
		{name: "larger sizes are capped", requested: 5000, expected: eventstore.MaxPageSize},
		{name: "zero is rejected", requested: 0, wantErr: true},
		{name: "negative is rejected", requested: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// act
			size, err := eventstore.NewPageSize(tt.requested)

			// assert
			if tt.wantErr {
				assert.ErrorIs(t, err, eventstore.ErrInvalidPageSize)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, size.Int())
		})
	}

	assert.Equal(t, eventstore.DefaultPageSize, eventstore.PageSize(0).Int())
}

func Test_Paginate_SixtyEventsWithDefaultPageSize(t *testing.T) {
	// setup
	ctx := context.Background()
	all := givenOrderedEvents(t, 60, func(int) string { return paginationEventType })
	read := sliceReader(all)
	query := eventstore.BuildQuery().WhereType(paginationEventType)

	// act
	first, err := eventstore.Paginate(ctx, read, query, 0, "")
	require.NoError(t, err)

	second, err := eventstore.Paginate(
		ctx,
		read,
		eventstore.BuildQuery().WithContinuationToken(tokenFromLink(t, first.Links.Next)),
		0,
		"",
	)
	require.NoError(t, err)

	// assert
	assert.Len(t, first.Items, 50)
	assert.Equal(t, all[:50], first.Items)
	assert.Equal(t, "/events?top=50&type="+paginationEventType, first.Links.Self.Href)
	require.NotNil(t, first.Links.Next)

	assert.Len(t, second.Items, 10)
	assert.Equal(t, all[50:], second.Items)
	assert.Nil(t, second.Links.Next)
}

func Test_Paginate_NextLinkShape(t *testing.T) {
	// setup
	all := givenOrderedEvents(t, 3, func(int) string { return paginationEventType })
	query := eventstore.BuildQuery().WhereITwinID(iTwinA)

	// act
	page, err := eventstore.Paginate(context.Background(), sliceReader(all), query, 2, "https://api.example.com/events")

	// assert
	require.NoError(t, err)
	require.NotNil(t, page.Links.Next)

	next, err := url.Parse(page.Links.Next.Href)
	require.NoError(t, err)
	assert.Equal(t, "/events", next.Path)
	assert.Equal(t, "2", next.Query().Get(eventstore.ParamTop))
	assert.Empty(t, next.Query().Get(eventstore.ParamITwinID))

	token := tokenFromLink(t, page.Links.Next)
	assert.Equal(t, all[1].ID, token.ID)
	assert.Equal(t, eventstore.QueryParameters{eventstore.ParamITwinID: {iTwinA.String()}}, token.QueryParameters)
}

func Test_Paginate_SelfLinkCarriesContinuationToken(t *testing.T) {
	// setup
	all := givenOrderedEvents(t, 5, func(int) string { return paginationEventType })
	token := eventstore.ContinuationToken{ID: all[1].ID, QueryParameters: eventstore.QueryParameters{}}
	encoded, err := token.Encode()
	require.NoError(t, err)

	// act
	page, err := eventstore.Paginate(
		context.Background(),
		sliceReader(all),
		eventstore.BuildQuery().WithContinuationToken(token),
		10,
		"",
	)

	// assert
	require.NoError(t, err)
	assert.Equal(t, all[2:], page.Items)

	self, err := url.Parse(page.Links.Self.Href)
	require.NoError(t, err)
	assert.Equal(t, encoded, self.Query().Get(eventstore.ParamContinuationToken))
	assert.Equal(t, "10", self.Query().Get(eventstore.ParamTop))
	assert.Nil(t, page.Links.Next)
}

func Test_Paginate_EmptyResult(t *testing.T) {
	// act
	page, err := eventstore.Paginate(context.Background(), sliceReader(nil), eventstore.BuildQuery(), 0, "")

	// assert
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Nil(t, page.Links.Next)
	assert.Equal(t, "/events?top=50", page.Links.Self.Href)
}

func Test_Paginate_VisitsEveryMatchingEventExactlyOnce(t *testing.T) {
	// setup
	all := givenOrderedEvents(t, 61, func(i int) string { return fmt.Sprintf("type.%d", i%3) })
	read := sliceReader(all)

	expected := make(eventstore.Events, 0)
	for _, event := range all {
		if event.Type == "type.1" {
			expected = append(expected, event)
		}
	}

	query := eventstore.BuildQuery().WhereType("type.1")
	visited := make(eventstore.Events, 0)

	// act
	for {
		page, err := eventstore.Paginate(context.Background(), read, query, 4, "")
		require.NoError(t, err)

		visited = append(visited, page.Items...)

		if page.Links.Next == nil {
			break
		}

		query = eventstore.BuildQuery().WithContinuationToken(tokenFromLink(t, page.Links.Next))
	}

	// assert
	assert.Equal(t, expected, visited)
}

func Test_Paginate_ReaderError(t *testing.T) {
	// setup
	readerErr := errors.New("backend down")
	read := func(context.Context, eventstore.Criteria, int) (eventstore.Events, error) {
		return nil, readerErr
	}

	// act
	_, err := eventstore.Paginate(context.Background(), read, eventstore.BuildQuery(), 0, "")

	// assert
	assert.ErrorIs(t, err, readerErr)
}

func Test_ReadAll(t *testing.T) {
	// setup
	all := givenOrderedEvents(t, 23, func(int) string { return paginationEventType })
	criteria, err := eventstore.BuildQuery().Criteria()
	require.NoError(t, err)

	// act
	collected, err := eventstore.Collect(eventstore.ReadAll(context.Background(), sliceReader(all), criteria, 5))

	// assert
	require.NoError(t, err)
	assert.Equal(t, all, collected)
}

func Test_ReadAll_StopsWhenConsumerBreaks(t *testing.T) {
	// setup
	all := givenOrderedEvents(t, 10, func(int) string { return paginationEventType })
	criteria, err := eventstore.BuildQuery().Criteria()
	require.NoError(t, err)

	reads := 0
	read := func(ctx context.Context, c eventstore.Criteria, limit int) (eventstore.Events, error) {
		reads++
		return sliceReader(all)(ctx, c, limit)
	}

	// act
	seen := 0
	for _, iterErr := range eventstore.ReadAll(context.Background(), read, criteria, 3) {
		require.NoError(t, iterErr)

		seen++
		if seen == 2 {
			break
		}
	}

	// assert
	assert.Equal(t, 2, seen)
	assert.Equal(t, 1, reads)
}

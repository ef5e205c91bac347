package opensearchengine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
)

func Test_SearchBody_TimeRangeAndContinuation(t *testing.T) {
	// setup
	from := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*60*60))
	to := from.Add(time.Hour)
	after := uuid.MustParse("0190a5b2-7c3e-7000-8000-000000000001")

	criteria, err := eventstore.BuildQuery().WhereTimeBetween(from, to).Criteria()
	require.NoError(t, err)

	// act
	body, err := documentJSON.Marshal(searchBody(criteria.WithIDAfter(after), 51))
	require.NoError(t, err)

	// assert
	assert.JSONEq(t, `{
		"query": {"bool": {"filter": [
			{"range": {"time": {"gte": "2024-05-01T10:00:00Z", "format": "strict_date_optional_time_nanos"}}},
			{"range": {"time": {"lte": "2024-05-01T11:00:00Z", "format": "strict_date_optional_time_nanos"}}},
			{"range": {"id": {"gt": "0190a5b2-7c3e-7000-8000-000000000001"}}}
		]}},
		"sort": [{"id": {"order": "asc"}}],
		"size": 51,
		"track_total_hits": false
	}`, string(body))
}

func Test_SearchBody_WithoutPredicates(t *testing.T) {
	// setup
	criteria, err := eventstore.BuildQuery().Criteria()
	require.NoError(t, err)

	// act
	body := searchBody(criteria, 10)

	// assert
	filters := body["query"].(map[string]any)["bool"].(map[string]any)["filter"]
	assert.Empty(t, filters)
}

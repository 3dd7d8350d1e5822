// internal/services/retention_test.go
package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyhop/flightcache/internal/models"
)

func seedTree(t *testing.T, env *testEnv, searchID string, createdAt time.Time) {
	t.Helper()
	search := &models.FlightSearch{
		SearchID:     searchID,
		CacheKey:     "key-" + searchID,
		Origin:       "LAX",
		Destination:  "JFK",
		OutboundDate: "2030-06-01",
		FlightType:   models.FlightTypeOneWay,
		Adults:       1,
		Currency:     "USD",
		Status:       "complete",
		Results: []models.FlightResult{
			{
				ResultRank: 1,
				ResultType: models.ResultTypeBest,
				TotalPrice: 249,
				Currency:   "USD",
				Segments: []models.FlightSegment{
					{
						SegmentOrder:         1,
						DepartureAirportCode: "LAX",
						ArrivalAirportCode:   "JFK",
						AirlineCode:          "DL",
						FlightNumber:         "DL 423",
					},
				},
			},
		},
		PriceInsight: &models.PriceInsight{LowestPrice: 249, PriceLevel: "typical"},
	}
	search.CreatedAt = createdAt
	search.UpdatedAt = createdAt
	require.NoError(t, env.repos.Searches.UpsertTree(search, nil, nil))
}

func seedRaw(t *testing.T, env *testEnv, createdAt time.Time) {
	t.Helper()
	record := &models.APIQuery{
		QueryParameters: `{"departure_id":"lax"}`,
		RawResponse:     `{}`,
		QueryType:       "flight_search",
		StatusCode:      200,
		SearchTerm:      "LAX-JFK-2030-06-01",
	}
	record.CreatedAt = createdAt
	require.NoError(t, env.repos.RawQueries.Create(record))
}

func TestSweep_RemovesOnlyExpiredTrees(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()

	seedTree(t, env, "search_expired_000000000001", now.Add(-25*time.Hour))
	seedTree(t, env, "search_fresh_00000000000002", now.Add(-time.Hour))
	seedRaw(t, env, now.Add(-48*time.Hour))

	removed, err := env.retention.Sweep(now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	assert.Equal(t, int64(1), countRows(t, env, &models.FlightSearch{}))
	assert.Equal(t, int64(1), countRows(t, env, &models.FlightResult{}))
	assert.Equal(t, int64(1), countRows(t, env, &models.FlightSegment{}))
	assert.Equal(t, int64(1), countRows(t, env, &models.PriceInsight{}))

	// The raw archive is never part of a sweep.
	assert.Equal(t, int64(1), countRows(t, env, &models.APIQuery{}))

	survivor, err := env.repos.Searches.GetBySearchID("search_fresh_00000000000002")
	require.NoError(t, err)
	require.NotNil(t, survivor)
}

func TestSweep_ExactTTLAgeIsExpired(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()

	seedTree(t, env, "search_boundary_0000000001", now.Add(-24*time.Hour-time.Millisecond))

	removed, err := env.retention.Sweep(now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestMaybeSweep_Cooldown(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()

	assert.True(t, env.retention.MaybeSweep(now))
	assert.False(t, env.retention.MaybeSweep(now.Add(time.Minute)))
	assert.False(t, env.retention.MaybeSweep(now.Add(14*time.Minute)))
	assert.True(t, env.retention.MaybeSweep(now.Add(16*time.Minute)))
}

func TestMaintain_PrunesRawOnlyWhenAsked(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()

	seedTree(t, env, "search_old_0000000000000001", now.Add(-30*time.Hour))
	seedRaw(t, env, now.AddDate(0, 0, -10))
	seedRaw(t, env, now.Add(-time.Hour))

	report, err := env.retention.Maintain(now, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.SearchesRemoved)
	assert.Equal(t, int64(0), report.RawRemoved)
	assert.True(t, report.Vacuumed)
	assert.Equal(t, int64(2), countRows(t, env, &models.APIQuery{}))

	report, err = env.retention.Maintain(now, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.RawRemoved)
	assert.Equal(t, int64(1), countRows(t, env, &models.APIQuery{}))
}

func TestMaintain_ReportsOrphanCount(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()

	for i := 0; i < 3; i++ {
		seedTree(t, env, fmt.Sprintf("search_clean_%014d", i), now.Add(-time.Hour))
	}

	report, err := env.retention.Maintain(now, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), report.OrphansRemoved)
	assert.Equal(t, int64(3), countRows(t, env, &models.FlightSearch{}))
}

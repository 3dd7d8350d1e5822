// internal/services/search_test.go
package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyhop/flightcache/internal/models"
)

func TestSearch_ValidationShortCircuits(t *testing.T) {
	env := newTestEnv(t)
	calls := 0
	env.handler = func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, oneWayResponse(249))
	}

	params := oneWayParams()
	params.Destination = "LAX"

	outcome, err := env.search.Search(context.Background(), params)
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.Equal(t, models.SourceValidation, outcome.Source)
	assert.Contains(t, outcome.Error, "destination")

	// Nothing reached the provider or the stores.
	assert.Equal(t, 0, calls)
	assert.Equal(t, int64(0), countRows(t, env, &models.APIQuery{}))
	assert.Equal(t, int64(0), countRows(t, env, &models.FlightSearch{}))
}

func TestSearch_MissFetchesAndPersists(t *testing.T) {
	env := newTestEnv(t)

	outcome, err := env.search.Search(context.Background(), oneWayParams())
	require.NoError(t, err)
	require.True(t, outcome.Success)
	assert.Equal(t, models.SourceAPI, outcome.Source)
	assert.True(t, outcome.RawStored)
	assert.True(t, outcome.StructuredStored)
	assert.Regexp(t, `^search_\d{8}_\d{6}_[0-9a-f]{12}$`, outcome.SearchID)
	assert.Len(t, outcome.CacheKey, 64)

	assert.Equal(t, int64(1), countRows(t, env, &models.APIQuery{}))
	assert.Equal(t, int64(1), countRows(t, env, &models.FlightSearch{}))
	assert.Equal(t, int64(1), countRows(t, env, &models.Airline{}))

	require.NotNil(t, outcome.Search)
	require.Len(t, outcome.Search.Results, 1)
	assert.Equal(t, float64(249), outcome.Search.Results[0].TotalPrice)
}

func TestSearch_SecondIdenticalQueryHitsCache(t *testing.T) {
	env := newTestEnv(t)
	calls := 0
	env.handler = func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, oneWayResponse(249))
	}

	first, err := env.search.Search(context.Background(), oneWayParams())
	require.NoError(t, err)
	require.True(t, first.Success)
	assert.Equal(t, models.SourceAPI, first.Source)

	second, err := env.search.Search(context.Background(), oneWayParams())
	require.NoError(t, err)
	require.True(t, second.Success)
	assert.Equal(t, models.SourceCache, second.Source)
	assert.Equal(t, first.SearchID, second.SearchID)
	assert.Equal(t, first.CacheKey, second.CacheKey)

	// One provider call and one raw record for two searches.
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(1), countRows(t, env, &models.APIQuery{}))

	hits, misses := env.index.Counters()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestSearch_EquivalentQueryHitsCacheRegardlessOfCase(t *testing.T) {
	env := newTestEnv(t)
	calls := 0
	env.handler = func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, oneWayResponse(249))
	}

	_, err := env.search.Search(context.Background(), oneWayParams())
	require.NoError(t, err)

	lower := oneWayParams()
	lower.Origin = "lax"
	lower.Destination = "jfk"

	second, err := env.search.Search(context.Background(), lower)
	require.NoError(t, err)
	assert.Equal(t, models.SourceCache, second.Source)
	assert.Equal(t, 1, calls)
}

func TestSearch_ProviderFailureStillArchivesRaw(t *testing.T) {
	env := newTestEnv(t)
	env.handler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"Invalid arrival_id"}`))
	}

	outcome, err := env.search.Search(context.Background(), oneWayParams())
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.Equal(t, models.SourceAPIError, outcome.Source)
	assert.True(t, outcome.RawStored)
	assert.False(t, outcome.StructuredStored)

	// The failed exchange is archived; no structured tree exists.
	assert.Equal(t, int64(1), countRows(t, env, &models.APIQuery{}))
	assert.Equal(t, int64(0), countRows(t, env, &models.FlightSearch{}))

	recent, rerr := env.repos.RawQueries.GetRecent(1)
	require.NoError(t, rerr)
	require.Len(t, recent, 1)
	assert.Equal(t, http.StatusUnprocessableEntity, recent[0].StatusCode)
}

func TestSearch_FailedFetchIsNotCached(t *testing.T) {
	env := newTestEnv(t)
	failing := true
	calls := 0
	env.handler = func(w http.ResponseWriter, r *http.Request) {
		calls++
		if failing {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"error":"nope"}`))
			return
		}
		writeJSON(w, oneWayResponse(249))
	}

	outcome, err := env.search.Search(context.Background(), oneWayParams())
	require.NoError(t, err)
	assert.False(t, outcome.Success)

	failing = false
	outcome, err = env.search.Search(context.Background(), oneWayParams())
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, models.SourceAPI, outcome.Source)
	assert.Equal(t, 2, calls)
}

func TestSearch_RoundTripTriggersCompletion(t *testing.T) {
	env := newTestEnv(t)
	var outboundCalls, inboundCalls int
	env.handler = func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("departure_id") == "LAX" {
			outboundCalls++
			writeJSON(w, oneWayResponse(249))
			return
		}
		inboundCalls++
		writeJSON(w, oneWayResponse(199))
	}

	outcome, err := env.search.Search(context.Background(), roundTripParams())
	require.NoError(t, err)
	require.True(t, outcome.Success)
	assert.True(t, outcome.InboundMerged)
	assert.Equal(t, 1, outboundCalls)
	assert.Equal(t, 1, inboundCalls)

	stored, err := env.repos.Searches.GetBySearchID(outcome.SearchID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "merged", stored.Status)

	require.NoError(t, env.repos.Searches.LoadTree(stored))
	var returns int
	for _, r := range stored.Results {
		if r.ResultType == models.ResultTypeReturn {
			returns++
		}
	}
	assert.Equal(t, 1, returns)
}

func TestSearch_CompletionFailureDegradesGracefully(t *testing.T) {
	env := newTestEnv(t)
	env.handler = func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("departure_id") == "LAX" {
			writeJSON(w, oneWayResponse(249))
			return
		}
		http.Error(w, "down", http.StatusInternalServerError)
	}

	outcome, err := env.search.Search(context.Background(), roundTripParams())
	require.NoError(t, err)
	require.True(t, outcome.Success)
	assert.False(t, outcome.InboundMerged)
	assert.True(t, outcome.RawStored)
	assert.True(t, outcome.StructuredStored)

	stored, err := env.repos.Searches.GetBySearchID(outcome.SearchID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "complete", stored.Status)
}

// failingRawRepo rejects every write so the raw-persist step can be forced
// to fail.
type failingRawRepo struct {
	models.RawQueryRepository
}

func (f *failingRawRepo) Create(*models.APIQuery) error {
	return errors.New("disk full")
}

func TestSearch_RawFailureBlocksStructuredWrite(t *testing.T) {
	env := newTestEnv(t)
	env.repos.RawQueries = &failingRawRepo{RawQueryRepository: env.repos.RawQueries}

	outcome, err := env.search.Search(context.Background(), oneWayParams())
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.Equal(t, models.SourceAPIError, outcome.Source)
	assert.False(t, outcome.RawStored)
	assert.False(t, outcome.StructuredStored)

	// Nothing structured may exist when the raw record was never committed.
	assert.Equal(t, int64(0), countRows(t, env, &models.FlightSearch{}))
}

type failingSearchRepo struct {
	models.SearchRepository
}

func (f *failingSearchRepo) UpsertTree(*models.FlightSearch, []models.Airport, []models.Airline) error {
	return errors.New("table locked")
}

func TestSearch_StructuredFailureDegradesToAPISuccess(t *testing.T) {
	env := newTestEnv(t)
	env.repos.Searches = &failingSearchRepo{SearchRepository: env.repos.Searches}

	outcome, err := env.search.Search(context.Background(), oneWayParams())
	require.NoError(t, err)

	// The response is still served; only the cache write was lost.
	assert.True(t, outcome.Success)
	assert.Equal(t, models.SourceAPI, outcome.Source)
	assert.True(t, outcome.RawStored)
	assert.False(t, outcome.StructuredStored)
	assert.NotEmpty(t, outcome.Error)

	assert.Equal(t, int64(1), countRows(t, env, &models.APIQuery{}))
	assert.Equal(t, int64(0), countRows(t, env, &models.FlightSearch{}))
}

func TestSearch_ContextCancellationPropagates(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.search.Search(ctx, oneWayParams())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearch_TransientFailureRetriesThenSucceeds(t *testing.T) {
	env := newTestEnv(t)
	calls := 0
	env.handler = func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "busy", http.StatusTooManyRequests)
			return
		}
		writeJSON(w, oneWayResponse(249))
	}

	outcome, err := env.search.Search(context.Background(), oneWayParams())
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, 2, calls)
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.search.Search(context.Background(), oneWayParams())
	require.NoError(t, err)
	_, err = env.search.Search(context.Background(), oneWayParams())
	require.NoError(t, err)

	stats, err := env.search.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.SearchEntries)
	assert.Equal(t, int64(1), stats.RawEntries)
	assert.Equal(t, int64(2), stats.AirportEntries)
	assert.Equal(t, int64(1), stats.AirlineEntries)
}

// internal/services/week_test.go
package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyhop/flightcache/internal/models"
	"github.com/skyhop/flightcache/internal/provider"
)

// 2030-06-03 is a Monday, so the seven-day window covers five weekdays and
// one full weekend.
func weekParams() provider.SearchParams {
	p := oneWayParams()
	p.OutboundDate = "2030-06-03"
	return p
}

func TestSearchWeek_AggregatesSevenDays(t *testing.T) {
	env := newTestEnv(t)

	// Price climbs by day so the first day is the cheapest.
	prices := map[string]float64{
		"2030-06-03": 200,
		"2030-06-04": 210,
		"2030-06-05": 220,
		"2030-06-06": 230,
		"2030-06-07": 240,
		"2030-06-08": 300,
		"2030-06-09": 310,
	}
	env.handler = func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("outbound_date")
		writeJSON(w, oneWayResponse(prices[date]))
	}

	summary, err := env.week.SearchWeek(context.Background(), weekParams())
	require.NoError(t, err)

	assert.Equal(t, 7, summary.SuccessfulDays)
	require.Len(t, summary.Days, 7)
	assert.Equal(t, "2030-06-03", summary.CheapestDay)
	assert.Equal(t, float64(200), summary.CheapestPrice)

	// Mon-Fri average and Sat-Sun average.
	assert.InDelta(t, 220, summary.WeekdayAvg, 0.001)
	assert.InDelta(t, 305, summary.WeekendAvg, 0.001)

	require.NotEmpty(t, summary.TopResults)
	assert.Equal(t, float64(200), summary.TopResults[0].TotalPrice)
	for i := 1; i < len(summary.TopResults); i++ {
		assert.GreaterOrEqual(t, summary.TopResults[i].TotalPrice, summary.TopResults[i-1].TotalPrice)
	}
}

func TestSearchWeek_PartialFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	env.handler = func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("outbound_date") == "2030-06-05" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"error":"no flights"}`))
			return
		}
		writeJSON(w, oneWayResponse(250))
	}

	summary, err := env.week.SearchWeek(context.Background(), weekParams())
	require.NoError(t, err)

	assert.Equal(t, 6, summary.SuccessfulDays)
	require.Len(t, summary.Days, 7)

	var failed *models.WeekDayOutcome
	for i := range summary.Days {
		if !summary.Days[i].Success {
			failed = &summary.Days[i]
		}
	}
	require.NotNil(t, failed)
	assert.Equal(t, "2030-06-05", failed.Date)
	assert.NotEmpty(t, failed.Error)
}

func TestSearchWeek_AllDaysFailedIsAnError(t *testing.T) {
	env := newTestEnv(t)
	env.handler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"no flights"}`))
	}

	summary, err := env.week.SearchWeek(context.Background(), weekParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 7 days failed")
	assert.Equal(t, 0, summary.SuccessfulDays)
	assert.Len(t, summary.Days, 7)
}

func TestSearchWeek_TopResultsCappedAtTen(t *testing.T) {
	env := newTestEnv(t)
	env.handler = func(w http.ResponseWriter, r *http.Request) {
		// Two results per day gives fourteen candidates across the week.
		writeJSON(w, connectingResponse(250))
	}

	summary, err := env.week.SearchWeek(context.Background(), weekParams())
	require.NoError(t, err)
	assert.Len(t, summary.TopResults, 10)
}

func TestSearchWeek_RoundTripKeepsTripLength(t *testing.T) {
	env := newTestEnv(t)
	var gotPairs [][2]string
	env.handler = func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("departure_id") == "LAX" {
			gotPairs = append(gotPairs, [2]string{q.Get("outbound_date"), q.Get("return_date")})
			writeJSON(w, returnTaggedResponse(250))
			return
		}
		writeJSON(w, oneWayResponse(199))
	}

	params := weekParams()
	params.ReturnDate = "2030-06-10"
	params.FlightType = models.FlightTypeRoundTrip

	_, err := env.week.SearchWeek(context.Background(), params)
	require.NoError(t, err)

	require.Len(t, gotPairs, 7)
	for i, pair := range gotPairs {
		out := pair[0]
		ret := pair[1]
		assert.NotEmpty(t, ret, "day %d", i)
		assert.Equal(t, 7, dayDiff(t, out, ret), "day %d keeps the trip length", i)
	}
}

func TestSearchWeek_BadStartDate(t *testing.T) {
	env := newTestEnv(t)

	params := weekParams()
	params.OutboundDate = "June 3rd"

	_, err := env.week.SearchWeek(context.Background(), params)
	var ve *provider.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "outbound_date", ve.Field)
}

func dayDiff(t *testing.T, from, to string) int {
	t.Helper()
	a, err := time.Parse("2006-01-02", from)
	require.NoError(t, err)
	b, err := time.Parse("2006-01-02", to)
	require.NoError(t, err)
	return int(b.Sub(a).Hours() / 24)
}

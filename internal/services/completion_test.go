// internal/services/completion_test.go
package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyhop/flightcache/internal/provider"
)

// returnDateOnlyResponse holds an itinerary that never flies back to the
// origin but does operate on the return date. Date alone marks the inbound
// direction as covered.
func returnDateOnlyResponse(price float64) *provider.SearchResponse {
	resp := oneWayResponse(price)
	resp.OtherFlights = append(resp.OtherFlights, provider.Itinerary{
		Flights: []provider.Flight{
			{
				DepartureAirport: provider.AirportStop{Name: "John F. Kennedy International", ID: "JFK", Time: "2030-06-08 10:30"},
				ArrivalAirport:   provider.AirportStop{Name: "Boston Logan International", ID: "BOS", Time: "2030-06-08 11:45"},
				Duration:         75,
				Airline:          "Delta",
				FlightNumber:     "DL 5102",
			},
		},
		TotalDuration: 75,
		Price:         price - 60,
	})
	return resp
}

func TestNeedsInbound(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name   string
		params provider.SearchParams
		resp   *provider.SearchResponse
		want   bool
	}{
		{"one way never needs it", oneWayParams(), oneWayResponse(249), false},
		{"round trip without return leg", roundTripParams(), oneWayResponse(249), true},
		{"round trip already tagged", roundTripParams(), returnTaggedResponse(249), false},
		{"round trip with untagged reverse leg", roundTripParams(), untaggedInboundResponse(249), false},
		{"round trip with segment on return date", roundTripParams(), returnDateOnlyResponse(249), false},
		{"empty response has nothing to complete", roundTripParams(), &provider.SearchResponse{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, env.completion.NeedsInbound(tc.params, tc.resp))
		})
	}
}

func TestComplete_MergesReversedDirection(t *testing.T) {
	env := newTestEnv(t)
	env.handler = func(w http.ResponseWriter, r *http.Request) {
		// The supplementary fetch is the reversed one-way.
		assert.Equal(t, "JFK", r.URL.Query().Get("departure_id"))
		assert.Equal(t, "LAX", r.URL.Query().Get("arrival_id"))
		assert.Equal(t, "2030-06-08", r.URL.Query().Get("outbound_date"))
		writeJSON(w, oneWayResponse(199))
	}

	resp := oneWayResponse(249)
	merged, err := env.completion.Complete(context.Background(), roundTripParams(), resp)
	require.NoError(t, err)
	assert.True(t, merged)

	require.Len(t, resp.OtherFlights, 1)
	assert.Equal(t, "Return", resp.OtherFlights[0].Type)
	assert.True(t, resp.HasReturnLeg())
}

func TestComplete_FailsOpenOnSupplementError(t *testing.T) {
	env := newTestEnv(t)
	env.handler = func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}

	resp := oneWayResponse(249)
	merged, err := env.completion.Complete(context.Background(), roundTripParams(), resp)
	assert.False(t, merged)

	var ce *provider.CompletionError
	require.ErrorAs(t, err, &ce)

	// The original response is untouched.
	assert.Len(t, resp.BestFlights, 1)
	assert.Empty(t, resp.OtherFlights)
}

func TestComplete_NoopWhenAlreadyComplete(t *testing.T) {
	env := newTestEnv(t)
	calls := 0
	env.handler = func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, oneWayResponse(199))
	}

	resp := returnTaggedResponse(249)
	before := len(resp.OtherFlights)

	merged, err := env.completion.Complete(context.Background(), roundTripParams(), resp)
	require.NoError(t, err)
	assert.False(t, merged)
	assert.Equal(t, 0, calls)
	assert.Len(t, resp.OtherFlights, before)
}

func TestComplete_SkipsUntaggedReverseLeg(t *testing.T) {
	env := newTestEnv(t)
	calls := 0
	env.handler = func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, oneWayResponse(199))
	}

	// The provider already answered with both directions but left the
	// inbound itinerary untyped. No supplement must be fetched.
	resp := untaggedInboundResponse(249)
	before := len(resp.Itineraries())
	require.False(t, env.completion.NeedsInbound(roundTripParams(), resp))

	merged, err := env.completion.Complete(context.Background(), roundTripParams(), resp)
	require.NoError(t, err)
	assert.False(t, merged)
	assert.Equal(t, 0, calls)
	assert.Len(t, resp.Itineraries(), before)
}

func TestComplete_SecondPassIsNoop(t *testing.T) {
	env := newTestEnv(t)
	calls := 0
	env.handler = func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, oneWayResponse(199))
	}

	resp := oneWayResponse(249)
	merged, err := env.completion.Complete(context.Background(), roundTripParams(), resp)
	require.NoError(t, err)
	assert.True(t, merged)
	assert.Equal(t, 1, calls)
	after := len(resp.Itineraries())

	merged, err = env.completion.Complete(context.Background(), roundTripParams(), resp)
	require.NoError(t, err)
	assert.False(t, merged)
	assert.Equal(t, 1, calls)
	assert.Len(t, resp.Itineraries(), after)
}

func TestComplete_EmptySupplementIsNotAnError(t *testing.T) {
	env := newTestEnv(t)
	env.handler = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, &provider.SearchResponse{})
	}

	resp := oneWayResponse(249)
	merged, err := env.completion.Complete(context.Background(), roundTripParams(), resp)
	require.NoError(t, err)
	assert.False(t, merged)
	assert.Empty(t, resp.OtherFlights)
}

// internal/services/helpers_test.go
package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/skyhop/flightcache/internal/cache"
	"github.com/skyhop/flightcache/internal/database"
	"github.com/skyhop/flightcache/internal/models"
	"github.com/skyhop/flightcache/internal/provider"
	"github.com/skyhop/flightcache/internal/repository"
	"github.com/skyhop/flightcache/pkg/metrics"
)

// testEnv wires the full pipeline against an in-memory store and a swappable
// fake provider.
type testEnv struct {
	manager    *database.Manager
	repos      *repository.RepositoryManager
	metrics    *metrics.Metrics
	client     *provider.Client
	index      *cache.Index
	writer     *StructuredWriter
	completion *CompletionService
	retention  *RetentionService
	search     *SearchService
	week       *WeekService
	server     *httptest.Server

	// handler is called for every provider request. Swap it per test.
	handler func(w http.ResponseWriter, r *http.Request)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	env := &testEnv{}
	env.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.handler(w, r)
	}))
	t.Cleanup(env.server.Close)
	env.handler = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, oneWayResponse(249))
	}

	manager, err := database.NewManager(&database.Config{Path: "file::memory:"}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	require.NoError(t, manager.Migrate())
	env.manager = manager

	env.repos = repository.NewRepositoryManager(manager.DB)
	env.metrics = metrics.New(nil)

	limiter := provider.NewRateLimiter(60000)
	retry := provider.RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	env.client = provider.NewClient(env.server.URL, "test-key", 5*time.Second, limiter, retry, logger)

	env.index = cache.NewIndex(env.repos.Searches, 24*time.Hour, logger)
	env.writer = NewStructuredWriter(env.repos, logger)
	env.completion = NewCompletionService(env.client, logger)
	env.retention = NewRetentionService(env.repos, manager, 24*time.Hour, 15*time.Minute, logger)
	env.search = NewSearchService(env.client, env.index, env.writer, env.completion, env.retention, env.repos, env.metrics, logger)
	env.week = NewWeekService(env.search, logger)

	return env
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func oneWayParams() provider.SearchParams {
	return provider.SearchParams{
		Origin:       "LAX",
		Destination:  "JFK",
		OutboundDate: "2030-06-01",
		FlightType:   models.FlightTypeOneWay,
		Adults:       1,
		Currency:     "USD",
	}
}

func roundTripParams() provider.SearchParams {
	p := oneWayParams()
	p.ReturnDate = "2030-06-08"
	p.FlightType = models.FlightTypeRoundTrip
	return p
}

func oneWayResponse(price float64) *provider.SearchResponse {
	return &provider.SearchResponse{
		BestFlights: []provider.Itinerary{
			{
				Flights: []provider.Flight{
					{
						DepartureAirport: provider.AirportStop{Name: "Los Angeles International", ID: "LAX", Time: "2030-06-01 08:15"},
						ArrivalAirport:   provider.AirportStop{Name: "John F. Kennedy International", ID: "JFK", Time: "2030-06-01 16:40"},
						Duration:         325,
						Airline:          "Delta",
						FlightNumber:     "DL 423",
						Airplane:         "Boeing 767",
						TravelClass:      "Economy",
					},
				},
				TotalDuration: 325,
				Price:         price,
				CarbonEmissions: &provider.CarbonEmissions{
					ThisFlight: 412000,
				},
				BookingToken: "tok-outbound",
			},
		},
		PriceInsights: &provider.PriceInsights{
			LowestPrice:       price,
			PriceLevel:        "typical",
			TypicalPriceRange: []float64{price - 30, price + 90},
		},
	}
}

func connectingResponse(price float64) *provider.SearchResponse {
	resp := oneWayResponse(price)
	resp.OtherFlights = []provider.Itinerary{
		{
			Flights: []provider.Flight{
				{
					DepartureAirport: provider.AirportStop{Name: "Los Angeles International", ID: "LAX", Time: "2030-06-01 06:00"},
					ArrivalAirport:   provider.AirportStop{Name: "Denver International", ID: "DEN", Time: "2030-06-01 09:20"},
					Duration:         140,
					Airline:          "United",
					FlightNumber:     "UA 1502",
				},
				{
					DepartureAirport: provider.AirportStop{Name: "Denver International", ID: "DEN", Time: "2030-06-01 11:05"},
					ArrivalAirport:   provider.AirportStop{Name: "John F. Kennedy International", ID: "JFK", Time: "2030-06-01 17:00"},
					Duration:         235,
					Airline:          "United",
					FlightNumber:     "UA 288",
				},
			},
			Layovers: []provider.Layover{
				{Duration: 105, Name: "Denver International", ID: "DEN"},
			},
			TotalDuration: 480,
			Price:         price + 40,
		},
	}
	return resp
}

func returnTaggedResponse(price float64) *provider.SearchResponse {
	resp := oneWayResponse(price)
	inbound := provider.Itinerary{
		Flights: []provider.Flight{
			{
				DepartureAirport: provider.AirportStop{Name: "John F. Kennedy International", ID: "JFK", Time: "2030-06-08 09:00"},
				ArrivalAirport:   provider.AirportStop{Name: "Los Angeles International", ID: "LAX", Time: "2030-06-08 12:10"},
				Duration:         370,
				Airline:          "Delta",
				FlightNumber:     "DL 424",
			},
		},
		TotalDuration: 370,
		Price:         price + 15,
		Type:          "Return",
	}
	resp.OtherFlights = append(resp.OtherFlights, inbound)
	return resp
}

// untaggedInboundResponse is a round-trip payload the way the provider
// actually ships it: the inbound itinerary is present but carries no type
// marker, so only its JFK->LAX direction identifies it.
func untaggedInboundResponse(price float64) *provider.SearchResponse {
	resp := returnTaggedResponse(price)
	resp.OtherFlights[len(resp.OtherFlights)-1].Type = ""
	return resp
}

func countRows(t *testing.T, env *testEnv, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.manager.DB.Model(model).Count(&n).Error)
	return n
}

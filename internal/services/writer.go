// internal/services/writer.go
package services

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/skyhop/flightcache/internal/models"
	"github.com/skyhop/flightcache/internal/provider"
	"github.com/skyhop/flightcache/internal/repository"
)

const (
	unknownAirlineCode = "ZZ"
	unknownAirlineName = "unknown"
)

// airlineCodePattern pulls the carrier designator off a flight number like
// "UA 123" or "PAL1234".
var airlineCodePattern = regexp.MustCompile(`^([A-Z]{2,3})\s*\d+`)

// StructuredWriter projects provider responses into the relational tree and
// archives the raw exchange that produced them.
type StructuredWriter struct {
	repoManager *repository.RepositoryManager
	logger      *logrus.Logger
}

func NewStructuredWriter(repoManager *repository.RepositoryManager, logger *logrus.Logger) *StructuredWriter {
	return &StructuredWriter{
		repoManager: repoManager,
		logger:      logger,
	}
}

// ArchiveRaw appends the exchange to the raw store. This MUST succeed before
// WriteStructured runs for the same response.
func (w *StructuredWriter) ArchiveRaw(exchange *provider.RawExchange) error {
	paramsJSON, err := json.Marshal(exchange.Params.Canonical())
	if err != nil {
		return err
	}

	record := &models.APIQuery{
		QueryParameters: string(paramsJSON),
		RawResponse:     string(exchange.Body),
		QueryType:       "flight_search",
		StatusCode:      exchange.StatusCode,
		ResponseSize:    len(exchange.Body),
		APIEndpoint:     exchange.Endpoint,
		SearchTerm:      exchange.Params.SearchTerm(),
	}
	if err := w.repoManager.RawQueries.Create(record); err != nil {
		w.logger.WithError(err).WithField("event", "store.raw.error").Error("Raw archive failed")
		return err
	}

	w.logger.WithFields(logrus.Fields{
		"event":       "store.raw.success",
		"search_term": record.SearchTerm,
		"size":        record.ResponseSize,
	}).Debug("Raw exchange archived")
	return nil
}

// WriteStructured maps the response onto the tree and upserts it under
// searchID. Running it twice with the same payload is a no-op for the final
// state.
func (w *StructuredWriter) WriteStructured(searchID, cacheKey string, params provider.SearchParams, resp *provider.SearchResponse, merged bool) (*models.FlightSearch, error) {
	search := w.buildTree(searchID, cacheKey, params, resp, merged)
	airports, airlines := collectRegistries(resp)

	if err := w.repoManager.Searches.UpsertTree(search, airports, airlines); err != nil {
		w.logger.WithError(err).WithFields(logrus.Fields{
			"event":     "store.structured.error",
			"search_id": searchID,
		}).Error("Structured write failed")
		return nil, &provider.PersistenceError{Op: "upsert tree", Cause: err}
	}

	w.logger.WithFields(logrus.Fields{
		"event":     "store.structured.success",
		"search_id": searchID,
		"results":   len(search.Results),
	}).Info("Structured tree stored")
	return search, nil
}

func (w *StructuredWriter) buildTree(searchID, cacheKey string, params provider.SearchParams, resp *provider.SearchResponse, merged bool) *models.FlightSearch {
	status := "complete"
	if merged {
		status = "merged"
	}

	search := &models.FlightSearch{
		SearchID:     searchID,
		CacheKey:     cacheKey,
		Origin:       params.Origin,
		Destination:  params.Destination,
		OutboundDate: params.OutboundDate,
		FlightType:   params.FlightType,
		Adults:       params.Adults,
		Children:     params.Children,
		InfantsLap:   params.InfantsLap,
		InfantsSeat:  params.InfantsSeat,
		Currency:     params.Currency,
		Status:       status,
	}
	if params.ReturnDate != "" {
		rd := params.ReturnDate
		search.ReturnDate = &rd
	}

	rank := 0
	appendItineraries := func(itineraries []provider.Itinerary, defaultType string) {
		for _, it := range itineraries {
			rank++
			result := models.FlightResult{
				ResultRank:           rank,
				TotalPrice:           it.Price,
				Currency:             params.Currency,
				TotalDurationMinutes: it.TotalDuration,
				ResultType:           resultType(it.Type, defaultType),
				BookingToken:         it.BookingToken,
			}
			if it.CarbonEmissions != nil {
				result.CarbonGrams = it.CarbonEmissions.ThisFlight
			}

			for si, f := range it.Flights {
				result.Segments = append(result.Segments, models.FlightSegment{
					SegmentOrder:         si + 1,
					DepartureAirportCode: strings.ToUpper(f.DepartureAirport.ID),
					DepartureAirportName: f.DepartureAirport.Name,
					DepartureTime:        f.DepartureAirport.Time,
					ArrivalAirportCode:   strings.ToUpper(f.ArrivalAirport.ID),
					ArrivalAirportName:   f.ArrivalAirport.Name,
					ArrivalTime:          f.ArrivalAirport.Time,
					DurationMinutes:      f.Duration,
					Airline:              f.Airline,
					AirlineCode:          ExtractAirlineCode(f.FlightNumber),
					FlightNumber:         f.FlightNumber,
					Airplane:             f.Airplane,
					TravelClass:          travelClass(f.TravelClass),
					Legroom:              f.Legroom,
					Overnight:            f.Overnight,
					OftenDelayed:         f.OftenDelayed,
				})
			}
			for li, l := range it.Layovers {
				result.Layovers = append(result.Layovers, models.Layover{
					LayoverOrder:    li + 1,
					AirportCode:     strings.ToUpper(l.ID),
					AirportName:     l.Name,
					DurationMinutes: l.Duration,
					Overnight:       l.Overnight,
				})
			}

			search.Results = append(search.Results, result)
		}
	}

	appendItineraries(resp.BestFlights, models.ResultTypeBest)
	appendItineraries(resp.OtherFlights, models.ResultTypeOther)

	if pi := resp.PriceInsights; pi != nil {
		insight := &models.PriceInsight{
			LowestPrice: pi.LowestPrice,
			PriceLevel:  pi.PriceLevel,
		}
		if len(pi.TypicalPriceRange) == 2 {
			insight.TypicalLow = pi.TypicalPriceRange[0]
			insight.TypicalHigh = pi.TypicalPriceRange[1]
		}
		search.PriceInsight = insight
	}

	return search
}

// collectRegistries gathers every airport and airline the response mentions,
// deduplicated by code.
func collectRegistries(resp *provider.SearchResponse) ([]models.Airport, []models.Airline) {
	airportSeen := map[string]bool{}
	airlineSeen := map[string]bool{}
	var airports []models.Airport
	var airlines []models.Airline

	addAirport := func(id, name string) {
		code := strings.ToUpper(strings.TrimSpace(id))
		if len(code) != 3 || airportSeen[code] {
			return
		}
		airportSeen[code] = true
		a := models.Airport{Code: code}
		if name != "" {
			n := name
			a.Name = &n
		}
		airports = append(airports, a)
	}

	for _, it := range resp.Itineraries() {
		for _, f := range it.Flights {
			addAirport(f.DepartureAirport.ID, f.DepartureAirport.Name)
			addAirport(f.ArrivalAirport.ID, f.ArrivalAirport.Name)

			code := ExtractAirlineCode(f.FlightNumber)
			if airlineSeen[code] {
				continue
			}
			airlineSeen[code] = true
			al := models.Airline{Code: code}
			name := f.Airline
			if name == "" {
				name = unknownAirlineName
			}
			al.Name = &name
			if f.AirlineLogo != "" {
				logo := f.AirlineLogo
				al.LogoURL = &logo
			}
			airlines = append(airlines, al)
		}
		for _, l := range it.Layovers {
			addAirport(l.ID, l.Name)
		}
	}

	return airports, airlines
}

// ExtractAirlineCode pulls the 2-3 letter carrier designator from a flight
// number, falling back to the unknown sentinel when the shape is off.
func ExtractAirlineCode(flightNumber string) string {
	m := airlineCodePattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(flightNumber)))
	if m == nil {
		return unknownAirlineCode
	}
	return m[1]
}

func resultType(raw, fallback string) string {
	switch strings.ToLower(raw) {
	case "return":
		return models.ResultTypeReturn
	case "best":
		return models.ResultTypeBest
	case "other":
		return models.ResultTypeOther
	default:
		return fallback
	}
}

func travelClass(raw string) string {
	if raw == "" {
		return "Economy"
	}
	return raw
}

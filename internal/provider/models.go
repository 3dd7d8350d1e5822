package provider

import "strings"

// Response models for the flight-data API. Field names follow the provider's
// JSON wire format.

type SearchResponse struct {
	SearchMetadata   SearchMetadata   `json:"search_metadata"`
	SearchParameters SearchParameters `json:"search_parameters"`
	BestFlights      []Itinerary      `json:"best_flights,omitempty"`
	OtherFlights     []Itinerary      `json:"other_flights,omitempty"`
	PriceInsights    *PriceInsights   `json:"price_insights,omitempty"`
	Error            string           `json:"error,omitempty"`
}

type SearchMetadata struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

type SearchParameters struct {
	DepartureID  string `json:"departure_id"`
	ArrivalID    string `json:"arrival_id"`
	OutboundDate string `json:"outbound_date"`
	ReturnDate   string `json:"return_date,omitempty"`
	Type         int    `json:"type"`
	Currency     string `json:"currency"`
}

// Itinerary is one priced option: an ordered run of flights plus the ground
// waits between them.
type Itinerary struct {
	Flights         []Flight         `json:"flights"`
	Layovers        []Layover        `json:"layovers,omitempty"`
	TotalDuration   int              `json:"total_duration"`
	Price           float64          `json:"price"`
	Type            string           `json:"type,omitempty"`
	CarbonEmissions *CarbonEmissions `json:"carbon_emissions,omitempty"`
	BookingToken    string           `json:"booking_token,omitempty"`
}

type Flight struct {
	DepartureAirport AirportStop `json:"departure_airport"`
	ArrivalAirport   AirportStop `json:"arrival_airport"`
	Duration         int         `json:"duration"`
	Airplane         string      `json:"airplane,omitempty"`
	Airline          string      `json:"airline,omitempty"`
	AirlineLogo      string      `json:"airline_logo,omitempty"`
	TravelClass      string      `json:"travel_class,omitempty"`
	FlightNumber     string      `json:"flight_number,omitempty"`
	Legroom          string      `json:"legroom,omitempty"`
	Overnight        bool        `json:"overnight,omitempty"`
	OftenDelayed     bool        `json:"often_delayed_by_over_30_min,omitempty"`
}

type AirportStop struct {
	Name string `json:"name"`
	ID   string `json:"id"`
	Time string `json:"time"`
}

type Layover struct {
	Duration  int    `json:"duration"`
	Name      string `json:"name"`
	ID        string `json:"id"`
	Overnight bool   `json:"overnight,omitempty"`
}

type CarbonEmissions struct {
	ThisFlight        int `json:"this_flight"`
	TypicalForRoute   int `json:"typical_for_this_route"`
	DifferencePercent int `json:"difference_percent"`
}

type PriceInsights struct {
	LowestPrice       float64   `json:"lowest_price"`
	PriceLevel        string    `json:"price_level"`
	TypicalPriceRange []float64 `json:"typical_price_range,omitempty"`
}

// Itineraries returns best and other options in rank order.
func (r *SearchResponse) Itineraries() []Itinerary {
	out := make([]Itinerary, 0, len(r.BestFlights)+len(r.OtherFlights))
	out = append(out, r.BestFlights...)
	out = append(out, r.OtherFlights...)
	return out
}

// HasReturnLeg reports whether any itinerary is already tagged as the
// inbound direction.
func (r *SearchResponse) HasReturnLeg() bool {
	for _, it := range r.Itineraries() {
		if it.Type == "Return" || it.Type == "return" {
			return true
		}
	}
	return false
}

// HasInboundLeg reports whether the response already covers the return
// direction of a round trip. The provider does not tag inbound results, so
// besides the tag short-circuit this scans every segment for one flying
// destination back to origin, or one departing or arriving on the return
// date.
func (r *SearchResponse) HasInboundLeg(origin, destination, returnDate string) bool {
	if r.HasReturnLeg() {
		return true
	}
	for _, it := range r.Itineraries() {
		for _, f := range it.Flights {
			if strings.EqualFold(f.DepartureAirport.ID, destination) && strings.EqualFold(f.ArrivalAirport.ID, origin) {
				return true
			}
			if returnDate != "" && (strings.HasPrefix(f.DepartureAirport.Time, returnDate) || strings.HasPrefix(f.ArrivalAirport.Time, returnDate)) {
				return true
			}
		}
	}
	return false
}

package provider

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/skyhop/flightcache/internal/models"
)

// SearchParams is one validated flight query as the pipeline sees it.
type SearchParams struct {
	Origin       string
	Destination  string
	OutboundDate string
	ReturnDate   string
	FlightType   int
	Adults       int
	Children     int
	InfantsLap   int
	InfantsSeat  int
	Currency     string
}

// Normalize fills defaults and upper-cases the codes. Called by Validate;
// safe to call repeatedly.
func (p *SearchParams) Normalize() {
	p.Origin = strings.ToUpper(strings.TrimSpace(p.Origin))
	p.Destination = strings.ToUpper(strings.TrimSpace(p.Destination))
	p.OutboundDate = strings.TrimSpace(p.OutboundDate)
	p.ReturnDate = strings.TrimSpace(p.ReturnDate)
	if p.Adults == 0 {
		p.Adults = 1
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}
	p.Currency = strings.ToUpper(p.Currency)
	if p.FlightType == 0 {
		if p.ReturnDate == "" {
			p.FlightType = models.FlightTypeOneWay
		} else {
			p.FlightType = models.FlightTypeRoundTrip
		}
	}
}

// Canonical returns the semantic fields as a flat map with lower-cased
// values and empty optionals dropped. Fingerprinting hashes exactly this.
func (p SearchParams) Canonical() map[string]string {
	m := map[string]string{
		"departure_id":  strings.ToLower(p.Origin),
		"arrival_id":    strings.ToLower(p.Destination),
		"outbound_date": strings.ToLower(p.OutboundDate),
		"type":          strconv.Itoa(p.FlightType),
		"adults":        strconv.Itoa(p.Adults),
		"currency":      strings.ToLower(p.Currency),
	}
	if p.ReturnDate != "" {
		m["return_date"] = strings.ToLower(p.ReturnDate)
	}
	if p.Children > 0 {
		m["children"] = strconv.Itoa(p.Children)
	}
	if p.InfantsLap > 0 {
		m["infants_in_lap"] = strconv.Itoa(p.InfantsLap)
	}
	if p.InfantsSeat > 0 {
		m["infants_in_seat"] = strconv.Itoa(p.InfantsSeat)
	}
	return m
}

// QueryValues builds the provider request query. The API key is attached by
// the client, never here.
func (p SearchParams) QueryValues() url.Values {
	v := url.Values{}
	v.Set("engine", "google_flights")
	v.Set("departure_id", p.Origin)
	v.Set("arrival_id", p.Destination)
	v.Set("outbound_date", p.OutboundDate)
	v.Set("type", strconv.Itoa(p.FlightType))
	v.Set("adults", strconv.Itoa(p.Adults))
	v.Set("currency", p.Currency)
	if p.ReturnDate != "" && p.FlightType == models.FlightTypeRoundTrip {
		v.Set("return_date", p.ReturnDate)
	}
	if p.Children > 0 {
		v.Set("children", strconv.Itoa(p.Children))
	}
	if p.InfantsLap > 0 {
		v.Set("infants_in_lap", strconv.Itoa(p.InfantsLap))
	}
	if p.InfantsSeat > 0 {
		v.Set("infants_in_seat", strconv.Itoa(p.InfantsSeat))
	}
	return v
}

// SearchTerm is the human-readable route label stored on raw records.
func (p SearchParams) SearchTerm() string {
	return p.Origin + "-" + p.Destination + "-" + p.OutboundDate
}

// Reversed builds the supplementary one-way query that fetches the missing
// inbound direction of a round trip.
func (p SearchParams) Reversed() SearchParams {
	r := p
	r.Origin = p.Destination
	r.Destination = p.Origin
	r.OutboundDate = p.ReturnDate
	r.ReturnDate = ""
	r.FlightType = models.FlightTypeOneWay
	return r
}

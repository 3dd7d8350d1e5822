package provider

import (
	"fmt"
	"regexp"
	"time"

	"github.com/skyhop/flightcache/internal/models"
)

const dateLayout = "2006-01-02"

var codePattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Validate normalizes the parameters and checks every rule before any
// network or database work. A round trip with no return date gets one filled
// in a week after departure.
func (p *SearchParams) Validate(now time.Time) error {
	p.Normalize()

	if !codePattern.MatchString(p.Origin) {
		return &ValidationError{Field: "origin", Reason: fmt.Sprintf("%q is not a 3-letter airport code", p.Origin)}
	}
	if !codePattern.MatchString(p.Destination) {
		return &ValidationError{Field: "destination", Reason: fmt.Sprintf("%q is not a 3-letter airport code", p.Destination)}
	}
	if p.Origin == p.Destination {
		return &ValidationError{Field: "destination", Reason: "origin and destination are the same"}
	}

	outbound, err := time.Parse(dateLayout, p.OutboundDate)
	if err != nil {
		return &ValidationError{Field: "outbound_date", Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", p.OutboundDate)}
	}
	today := now.Truncate(24 * time.Hour)
	if outbound.Before(today) {
		return &ValidationError{Field: "outbound_date", Reason: "departure date is in the past"}
	}

	if p.FlightType == models.FlightTypeRoundTrip && p.ReturnDate == "" {
		p.ReturnDate = outbound.AddDate(0, 0, 7).Format(dateLayout)
	}
	if p.ReturnDate != "" {
		ret, err := time.Parse(dateLayout, p.ReturnDate)
		if err != nil {
			return &ValidationError{Field: "return_date", Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", p.ReturnDate)}
		}
		if !ret.After(outbound) {
			return &ValidationError{Field: "return_date", Reason: "return date must be after the departure date"}
		}
	}

	if p.Adults < 1 {
		return &ValidationError{Field: "adults", Reason: "at least one adult is required"}
	}
	total := p.Adults + p.Children + p.InfantsLap + p.InfantsSeat
	if total > 9 {
		return &ValidationError{Field: "passengers", Reason: fmt.Sprintf("%d passengers exceed the limit of 9", total)}
	}
	if p.InfantsLap > p.Adults {
		return &ValidationError{Field: "infants_lap", Reason: "lap infants cannot outnumber adults"}
	}

	return nil
}

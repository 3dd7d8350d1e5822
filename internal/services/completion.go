// internal/services/completion.go
package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/skyhop/flightcache/internal/models"
	"github.com/skyhop/flightcache/internal/provider"
)

// CompletionService repairs round-trip responses that came back without an
// inbound leg by fetching the reverse one-way and merging its results.
type CompletionService struct {
	client *provider.Client
	logger *logrus.Logger
}

func NewCompletionService(client *provider.Client, logger *logrus.Logger) *CompletionService {
	return &CompletionService{
		client: client,
		logger: logger,
	}
}

// NeedsInbound reports whether a response is a round trip missing its return
// direction. A response counts as complete when any itinerary already flies
// destination back to origin or operates on the return date, whether or not
// the provider tagged it.
func (cs *CompletionService) NeedsInbound(params provider.SearchParams, resp *provider.SearchResponse) bool {
	if params.FlightType != models.FlightTypeRoundTrip || params.ReturnDate == "" {
		return false
	}
	if len(resp.Itineraries()) == 0 {
		return false
	}
	return !resp.HasInboundLeg(params.Origin, params.Destination, params.ReturnDate)
}

// Complete merges the inbound direction into resp in place. It fails open:
// on any supplementary failure the original response is left untouched and
// the error is wrapped for logging only.
func (cs *CompletionService) Complete(ctx context.Context, params provider.SearchParams, resp *provider.SearchResponse) (bool, error) {
	if !cs.NeedsInbound(params, resp) {
		return false, nil
	}

	reversed := params.Reversed()
	cs.logger.WithFields(logrus.Fields{
		"event": "inbound.missing",
		"route": reversed.SearchTerm(),
	}).Info("Round trip missing inbound leg, fetching supplement")

	supplement, _, err := cs.client.SearchWithRetry(ctx, reversed)
	if err != nil {
		cs.logger.WithError(err).WithField("event", "inbound.error").Warn("Supplementary inbound fetch failed")
		return false, &provider.CompletionError{Cause: err}
	}

	merged := 0
	for _, it := range supplement.Itineraries() {
		it.Type = "Return"
		resp.OtherFlights = append(resp.OtherFlights, it)
		merged++
	}
	if merged == 0 {
		cs.logger.WithField("event", "inbound.error").Warn("Supplementary inbound fetch returned no itineraries")
		return false, nil
	}

	cs.logger.WithFields(logrus.Fields{
		"event":  "inbound.merged",
		"merged": merged,
	}).Info("Inbound leg merged")
	return true, nil
}

// internal/services/week.go
package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/skyhop/flightcache/internal/models"
	"github.com/skyhop/flightcache/internal/provider"
)

// WeekService runs the same route for seven consecutive departure days and
// aggregates the outcomes.
type WeekService struct {
	search *SearchService
	logger *logrus.Logger
}

func NewWeekService(search *SearchService, logger *logrus.Logger) *WeekService {
	return &WeekService{
		search: search,
		logger: logger,
	}
}

// SearchWeek runs seven one-day searches starting at params.OutboundDate.
// Per-day failures are recorded, never fatal; the week fails only when every
// day failed.
func (ws *WeekService) SearchWeek(ctx context.Context, params provider.SearchParams) (*models.WeekSummary, error) {
	start, err := time.Parse("2006-01-02", params.OutboundDate)
	if err != nil {
		return nil, &provider.ValidationError{Field: "outbound_date", Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", params.OutboundDate)}
	}

	summary := &models.WeekSummary{
		Origin:      params.Origin,
		Destination: params.Destination,
		StartDate:   params.OutboundDate,
	}

	ws.logger.WithFields(logrus.Fields{
		"event": "week.start",
		"route": params.SearchTerm(),
	}).Info("Week aggregation started")

	var allResults []models.FlightResult
	var weekdaySum, weekendSum float64
	var weekdayCount, weekendCount int

	for day := 0; day < 7; day++ {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		date := start.AddDate(0, 0, day)
		dayParams := params
		dayParams.OutboundDate = date.Format("2006-01-02")
		if dayParams.ReturnDate != "" {
			// Keep the trip length constant as the window slides.
			ret, rerr := time.Parse("2006-01-02", params.ReturnDate)
			if rerr == nil {
				dayParams.ReturnDate = ret.AddDate(0, 0, day).Format("2006-01-02")
			}
		}

		dayOutcome := models.WeekDayOutcome{Date: dayParams.OutboundDate}

		outcome, err := ws.search.Search(ctx, dayParams)
		if err != nil {
			return summary, err
		}
		if !outcome.Success {
			dayOutcome.Error = outcome.Error
			summary.Days = append(summary.Days, dayOutcome)
			ws.logger.WithFields(logrus.Fields{
				"event": "week.day",
				"date":  dayOutcome.Date,
				"error": outcome.Error,
			}).Warn("Week day failed")
			continue
		}

		dayOutcome.Success = true
		dayOutcome.Source = outcome.Source
		summary.SuccessfulDays++

		cheapest := cheapestPrice(outcome.Search)
		dayOutcome.CheapestPrice = cheapest
		if cheapest > 0 && (summary.CheapestPrice == 0 || cheapest < summary.CheapestPrice) {
			summary.CheapestPrice = cheapest
			summary.CheapestDay = dayOutcome.Date
		}

		if outcome.Search != nil {
			allResults = append(allResults, outcome.Search.Results...)
		}
		if cheapest > 0 {
			switch date.Weekday() {
			case time.Saturday, time.Sunday:
				weekendSum += cheapest
				weekendCount++
			default:
				weekdaySum += cheapest
				weekdayCount++
			}
		}

		summary.Days = append(summary.Days, dayOutcome)
		ws.logger.WithFields(logrus.Fields{
			"event":  "week.day",
			"date":   dayOutcome.Date,
			"source": outcome.Source,
			"price":  cheapest,
		}).Info("Week day completed")
	}

	if summary.SuccessfulDays == 0 {
		ws.logger.WithField("event", "week.summary").Warn("Every day of the week failed")
		return summary, fmt.Errorf("all 7 days failed for %s", params.SearchTerm())
	}

	sort.Slice(allResults, func(i, j int) bool {
		return allResults[i].TotalPrice < allResults[j].TotalPrice
	})
	if len(allResults) > 10 {
		allResults = allResults[:10]
	}
	summary.TopResults = allResults

	if weekdayCount > 0 {
		summary.WeekdayAvg = weekdaySum / float64(weekdayCount)
	}
	if weekendCount > 0 {
		summary.WeekendAvg = weekendSum / float64(weekendCount)
	}

	ws.logger.WithFields(logrus.Fields{
		"event":           "week.summary",
		"successful_days": summary.SuccessfulDays,
		"cheapest_day":    summary.CheapestDay,
	}).Info("Week aggregation completed")
	return summary, nil
}

func cheapestPrice(search *models.FlightSearch) float64 {
	if search == nil {
		return 0
	}
	var best float64
	for _, r := range search.Results {
		if r.TotalPrice > 0 && (best == 0 || r.TotalPrice < best) {
			best = r.TotalPrice
		}
	}
	return best
}

// internal/api/handlers/search.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/skyhop/flightcache/internal/models"
	"github.com/skyhop/flightcache/internal/provider"
	"github.com/skyhop/flightcache/internal/services"
	"github.com/skyhop/flightcache/pkg/utils"
)

type SearchHandler struct {
	searchService *services.SearchService
	weekService   *services.WeekService
	logger        *logrus.Logger
}

func NewSearchHandler(
	searchService *services.SearchService,
	weekService *services.WeekService,
	logger *logrus.Logger,
) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		weekService:   weekService,
		logger:        logger,
	}
}

// HandleSearch runs one query through the pipeline.
func (h *SearchHandler) HandleSearch(c *gin.Context) {
	var req models.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Invalid search request")
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	params := paramsFromRequest(req)

	h.logger.WithFields(logrus.Fields{
		"route":      params.SearchTerm(),
		"request_id": c.GetString("request_id"),
		"ip_address": c.ClientIP(),
	}).Info("Processing search request")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Minute)
	defer cancel()

	outcome, err := h.searchService.Search(ctx, params)
	if err != nil {
		utils.ErrorResponse(c, http.StatusGatewayTimeout, "Search cancelled", err)
		return
	}

	switch outcome.Source {
	case models.SourceValidation:
		utils.ErrorResponse(c, http.StatusBadRequest, outcome.Error, nil)
	case models.SourceAPIError:
		c.JSON(http.StatusBadGateway, utils.APIResponse{
			Success: false,
			Message: "Provider search failed",
			Error:   outcome.Error,
			Data:    outcome,
		})
	default:
		utils.SuccessResponse(c, http.StatusOK, "Search completed", outcome)
	}
}

// HandleWeekSearch runs the 7-day aggregation for a route.
func (h *SearchHandler) HandleWeekSearch(c *gin.Context) {
	params := weekParamsFromQuery(c)

	if err := params.Validate(time.Now()); err != nil {
		var verr *provider.ValidationError
		if errors.As(err, &verr) {
			utils.ErrorResponse(c, http.StatusBadRequest, verr.Error(), nil)
			return
		}
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid parameters", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Minute)
	defer cancel()

	summary, err := h.weekService.SearchWeek(ctx, params)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			utils.ErrorResponse(c, http.StatusGatewayTimeout, "Week search cancelled", err)
			return
		}
		c.JSON(http.StatusBadGateway, utils.APIResponse{
			Success: false,
			Message: "Week search failed",
			Error:   err.Error(),
			Data:    summary,
		})
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Week search completed", summary)
}

// HandleStats reports cache counters and store sizes.
func (h *SearchHandler) HandleStats(c *gin.Context) {
	stats, err := h.searchService.Stats()
	if err != nil {
		h.logger.WithError(err).Error("Failed to collect stats")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to collect stats", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Stats retrieved", stats)
}

// weekParamsFromQuery builds the per-day template for a week search. A
// return_date turns the whole week into round trips, each day keeping the
// same trip length.
func weekParamsFromQuery(c *gin.Context) provider.SearchParams {
	params := provider.SearchParams{
		Origin:       c.Query("origin"),
		Destination:  c.Query("destination"),
		OutboundDate: c.Query("outbound_date"),
		ReturnDate:   c.Query("return_date"),
		Currency:     c.Query("currency"),
	}
	if adults, err := strconv.Atoi(c.DefaultQuery("adults", "1")); err == nil {
		params.Adults = adults
	}
	if params.ReturnDate != "" {
		params.FlightType = models.FlightTypeRoundTrip
	} else {
		params.FlightType = models.FlightTypeOneWay
	}
	return params
}

func paramsFromRequest(req models.SearchRequest) provider.SearchParams {
	params := provider.SearchParams{
		Origin:       req.Origin,
		Destination:  req.Destination,
		OutboundDate: req.OutboundDate,
		ReturnDate:   req.ReturnDate,
		Adults:       req.Adults,
		Children:     req.Children,
		InfantsLap:   req.InfantsLap,
		InfantsSeat:  req.InfantsSeat,
		Currency:     req.Currency,
	}
	if req.OneWay {
		params.FlightType = models.FlightTypeOneWay
		params.ReturnDate = ""
	}
	return params
}

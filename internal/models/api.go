package models

// Outcome sources reported on every search envelope.
const (
	SourceCache      = "cache"
	SourceAPI        = "api"
	SourceValidation = "validation"
	SourceAPIError   = "api_error"
)

type SearchRequest struct {
	Origin       string `json:"origin" binding:"required"`
	Destination  string `json:"destination" binding:"required"`
	OutboundDate string `json:"outbound_date" binding:"required"`
	ReturnDate   string `json:"return_date"`
	OneWay       bool   `json:"one_way"`
	Adults       int    `json:"adults"`
	Children     int    `json:"children"`
	InfantsLap   int    `json:"infants_lap"`
	InfantsSeat  int    `json:"infants_seat"`
	Currency     string `json:"currency"`
}

// SearchOutcome is the envelope every pipeline run returns, whether the
// answer came from the cache, the provider, or a failure path.
type SearchOutcome struct {
	Success          bool          `json:"success"`
	Source           string        `json:"source"`
	SearchID         string        `json:"search_id,omitempty"`
	CacheKey         string        `json:"cache_key,omitempty"`
	Search           *FlightSearch `json:"search,omitempty"`
	Error            string        `json:"error,omitempty"`
	RawStored        bool          `json:"raw_stored"`
	StructuredStored bool          `json:"structured_stored"`
	InboundMerged    bool          `json:"inbound_merged"`
	ResponseTimeMs   int64         `json:"response_time_ms"`
}

// WeekDayOutcome is one day of a week-mode run.
type WeekDayOutcome struct {
	Date          string  `json:"date"`
	Success       bool    `json:"success"`
	Source        string  `json:"source,omitempty"`
	CheapestPrice float64 `json:"cheapest_price,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// WeekSummary aggregates seven daily searches.
type WeekSummary struct {
	Origin         string           `json:"origin"`
	Destination    string           `json:"destination"`
	StartDate      string           `json:"start_date"`
	Days           []WeekDayOutcome `json:"days"`
	SuccessfulDays int              `json:"successful_days"`
	CheapestDay    string           `json:"cheapest_day,omitempty"`
	CheapestPrice  float64          `json:"cheapest_price,omitempty"`
	TopResults     []FlightResult   `json:"top_results,omitempty"`
	WeekdayAvg     float64          `json:"weekday_avg,omitempty"`
	WeekendAvg     float64          `json:"weekend_avg,omitempty"`
}

// CacheStats reports index counters for the stats endpoint and CLI.
type CacheStats struct {
	Hits           uint64 `json:"hits"`
	Misses         uint64 `json:"misses"`
	SearchEntries  int64  `json:"search_entries"`
	RawEntries     int64  `json:"raw_entries"`
	AirportEntries int64  `json:"airport_entries"`
	AirlineEntries int64  `json:"airline_entries"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

package models

// GORM models

import (
	"fmt"
	"regexp"
	"time"

	"gorm.io/gorm"
)

// Flight type codes used by the remote provider.
const (
	FlightTypeRoundTrip = 1
	FlightTypeOneWay    = 2
	FlightTypeMultiCity = 3
)

// Result type tags on flight_results rows.
const (
	ResultTypeBest   = "best"
	ResultTypeOther  = "other"
	ResultTypeReturn = "return"
)

// Base model with common fields
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// APIQuery is the append-only raw record of one provider exchange. Rows are
// inserted once and never updated.
type APIQuery struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	QueryParameters string    `json:"query_parameters" gorm:"not null"`
	RawResponse     string    `json:"raw_response" gorm:"not null"`
	QueryType       string    `json:"query_type" gorm:"default:'flight_search'"`
	StatusCode      int       `json:"status_code"`
	ResponseSize    int       `json:"response_size"`
	APIEndpoint     string    `json:"api_endpoint"`
	SearchTerm      string    `json:"search_term" gorm:"index"`
	CreatedAt       time.Time `json:"created_at" gorm:"index"`
}

// FlightSearch is the root of one structured search tree.
type FlightSearch struct {
	BaseModel
	SearchID     string  `json:"search_id" gorm:"uniqueIndex;not null"`
	CacheKey     string  `json:"cache_key" gorm:"index;not null"`
	Origin       string  `json:"origin" gorm:"not null;size:3"`
	Destination  string  `json:"destination" gorm:"not null;size:3"`
	OutboundDate string  `json:"outbound_date" gorm:"not null"`
	ReturnDate   *string `json:"return_date"`
	FlightType   int     `json:"flight_type" gorm:"default:1;check:flight_type IN (1,2,3)"`
	Adults       int     `json:"adults" gorm:"default:1"`
	Children     int     `json:"children" gorm:"default:0"`
	InfantsLap   int     `json:"infants_lap" gorm:"default:0"`
	InfantsSeat  int     `json:"infants_seat" gorm:"default:0"`
	Currency     string  `json:"currency" gorm:"default:'USD';size:3"`
	Status       string  `json:"status" gorm:"default:'complete';check:status IN ('complete','partial','merged')"`

	// Associations
	Results      []FlightResult `json:"results" gorm:"foreignKey:SearchRef;references:ID"`
	PriceInsight *PriceInsight  `json:"price_insight" gorm:"foreignKey:SearchRef;references:ID"`
}

// FlightResult is one priced itinerary inside a search.
type FlightResult struct {
	BaseModel
	SearchRef            uint    `json:"search_ref" gorm:"index;not null"`
	ResultRank           int     `json:"result_rank" gorm:"not null"`
	TotalPrice           float64 `json:"total_price"`
	Currency             string  `json:"currency" gorm:"default:'USD';size:3"`
	TotalDurationMinutes int     `json:"total_duration_minutes"`
	ResultType           string  `json:"result_type" gorm:"default:'best';check:result_type IN ('best','other','return')"`
	CarbonGrams          int     `json:"carbon_grams"`
	BookingToken         string  `json:"booking_token"`

	// Associations
	Segments []FlightSegment `json:"segments" gorm:"foreignKey:ResultRef;references:ID"`
	Layovers []Layover       `json:"layovers" gorm:"foreignKey:ResultRef;references:ID"`
}

// FlightSegment is one flown leg of a result.
type FlightSegment struct {
	BaseModel
	ResultRef            uint   `json:"result_ref" gorm:"index;not null"`
	SegmentOrder         int    `json:"segment_order" gorm:"not null"`
	DepartureAirportCode string `json:"departure_airport_code" gorm:"size:3"`
	DepartureAirportName string `json:"departure_airport_name"`
	DepartureTime        string `json:"departure_time"`
	ArrivalAirportCode   string `json:"arrival_airport_code" gorm:"size:3"`
	ArrivalAirportName   string `json:"arrival_airport_name"`
	ArrivalTime          string `json:"arrival_time"`
	DurationMinutes      int    `json:"duration_minutes"`
	Airline              string `json:"airline"`
	AirlineCode          string `json:"airline_code" gorm:"index"`
	FlightNumber         string `json:"flight_number"`
	Airplane             string `json:"airplane"`
	TravelClass          string `json:"travel_class" gorm:"default:'Economy'"`
	Legroom              string `json:"legroom"`
	Overnight            bool   `json:"overnight" gorm:"default:false"`
	OftenDelayed         bool   `json:"often_delayed" gorm:"default:false"`
}

// Layover is a ground wait between two segments of a result.
type Layover struct {
	BaseModel
	ResultRef       uint   `json:"result_ref" gorm:"index;not null"`
	LayoverOrder    int    `json:"layover_order" gorm:"not null"`
	AirportCode     string `json:"airport_code" gorm:"size:3"`
	AirportName     string `json:"airport_name"`
	DurationMinutes int    `json:"duration_minutes"`
	Overnight       bool   `json:"overnight" gorm:"default:false"`
}

// Airport reference registry row.
type Airport struct {
	BaseModel
	Code    string  `json:"code" gorm:"uniqueIndex;not null;size:3"`
	Name    *string `json:"name"`
	City    *string `json:"city"`
	Country *string `json:"country"`
}

// Airline reference registry row.
type Airline struct {
	BaseModel
	Code    string  `json:"code" gorm:"uniqueIndex;not null;size:3"`
	Name    *string `json:"name"`
	LogoURL *string `json:"logo_url"`
}

// PriceInsight is provider price context for one search.
type PriceInsight struct {
	BaseModel
	SearchRef   uint    `json:"search_ref" gorm:"uniqueIndex;not null"`
	LowestPrice float64 `json:"lowest_price"`
	PriceLevel  string  `json:"price_level"`
	TypicalLow  float64 `json:"typical_low"`
	TypicalHigh float64 `json:"typical_high"`
}

// SchemaVersion is the single-row version manifest.
type SchemaVersion struct {
	ID        uint      `json:"id" gorm:"primaryKey;check:id = 1"`
	Version   int       `json:"version" gorm:"not null"`
	Checksum  string    `json:"checksum" gorm:"not null"`
	AppliedAt time.Time `json:"applied_at"`
}

// SchemaMigration is one row of the applied-migration ledger.
type SchemaMigration struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	Checksum  string    `json:"checksum" gorm:"not null"`
	AppliedAt time.Time `json:"applied_at"`
}

// Database interfaces for repository pattern
type RawQueryRepository interface {
	Create(query *APIQuery) error
	GetByID(id uint) (*APIQuery, error)
	GetRecent(limit int) ([]APIQuery, error)
	CountAll() (int64, error)
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

type SearchRepository interface {
	// UpsertTree writes the whole search tree in one transaction: upsert the
	// search by search_id, replace its children, and register the airports
	// and airlines the segments mention. The search carries its Results
	// (with Segments and Layovers) and PriceInsight.
	UpsertTree(search *FlightSearch, airports []Airport, airlines []Airline) error
	GetBySearchID(searchID string) (*FlightSearch, error)
	FindFreshByCacheKey(cacheKey string, since time.Time) (*FlightSearch, error)
	LoadTree(search *FlightSearch) error
	DeleteOlderThan(cutoff time.Time) (int64, error)
	DeleteOrphans() (int64, error)
	CountSearches() (int64, error)
}

type AirportRepository interface {
	Upsert(airport *Airport) error
	GetByCode(code string) (*Airport, error)
	CountAll() (int64, error)
}

type AirlineRepository interface {
	Upsert(airline *Airline) error
	GetByCode(code string) (*Airline, error)
	CountAll() (int64, error)
}

// TableName methods for custom table names
func (APIQuery) TableName() string        { return "api_queries" }
func (FlightSearch) TableName() string    { return "flight_searches" }
func (FlightResult) TableName() string    { return "flight_results" }
func (FlightSegment) TableName() string   { return "flight_segments" }
func (Layover) TableName() string         { return "layovers" }
func (Airport) TableName() string         { return "airports" }
func (Airline) TableName() string         { return "airlines" }
func (PriceInsight) TableName() string    { return "price_insights" }
func (SchemaVersion) TableName() string   { return "schema_version" }
func (SchemaMigration) TableName() string { return "schema_migrations" }

var airportCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Model validation methods
func (fs *FlightSearch) Validate() error {
	if fs.SearchID == "" {
		return fmt.Errorf("search ID is required")
	}
	if fs.CacheKey == "" {
		return fmt.Errorf("cache key is required")
	}
	if !airportCodePattern.MatchString(fs.Origin) {
		return fmt.Errorf("invalid origin code: %s", fs.Origin)
	}
	if !airportCodePattern.MatchString(fs.Destination) {
		return fmt.Errorf("invalid destination code: %s", fs.Destination)
	}
	if fs.FlightType < FlightTypeRoundTrip || fs.FlightType > FlightTypeMultiCity {
		return fmt.Errorf("invalid flight type: %d", fs.FlightType)
	}
	if fs.Adults < 1 {
		return fmt.Errorf("at least one adult is required")
	}
	return nil
}

func (a *Airport) Validate() error {
	if !airportCodePattern.MatchString(a.Code) {
		return fmt.Errorf("invalid airport code: %s", a.Code)
	}
	return nil
}

func (a *Airline) Validate() error {
	if len(a.Code) < 2 || len(a.Code) > 3 {
		return fmt.Errorf("invalid airline code: %s", a.Code)
	}
	return nil
}

// GORM hooks
func (fs *FlightSearch) BeforeCreate(tx *gorm.DB) error {
	return fs.Validate()
}

func (a *Airport) BeforeCreate(tx *gorm.DB) error {
	return a.Validate()
}

func (a *Airline) BeforeCreate(tx *gorm.DB) error {
	return a.Validate()
}

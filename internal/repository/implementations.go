package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/skyhop/flightcache/internal/models"
)

// RawQueryRepositoryImpl implements RawQueryRepository
type RawQueryRepositoryImpl struct {
	db *gorm.DB
}

func NewRawQueryRepository(db *gorm.DB) models.RawQueryRepository {
	return &RawQueryRepositoryImpl{db: db}
}

func (r *RawQueryRepositoryImpl) Create(query *models.APIQuery) error {
	return r.db.Create(query).Error
}

func (r *RawQueryRepositoryImpl) GetByID(id uint) (*models.APIQuery, error) {
	var query models.APIQuery
	err := r.db.First(&query, id).Error
	if err != nil {
		return nil, err
	}
	return &query, nil
}

func (r *RawQueryRepositoryImpl) GetRecent(limit int) ([]models.APIQuery, error) {
	var queries []models.APIQuery
	err := r.db.Order("created_at DESC").
		Limit(limit).
		Find(&queries).Error
	return queries, err
}

func (r *RawQueryRepositoryImpl) CountAll() (int64, error) {
	var count int64
	err := r.db.Model(&models.APIQuery{}).Count(&count).Error
	return count, err
}

func (r *RawQueryRepositoryImpl) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res := r.db.Where("created_at < ?", cutoff).Delete(&models.APIQuery{})
	return res.RowsAffected, res.Error
}

// SearchRepositoryImpl implements SearchRepository
type SearchRepositoryImpl struct {
	db *gorm.DB
}

func NewSearchRepository(db *gorm.DB) models.SearchRepository {
	return &SearchRepositoryImpl{db: db}
}

// UpsertTree replaces the whole tree for search.SearchID in one transaction.
// Re-running it with the same payload leaves the database in the same final
// state.
func (r *SearchRepositoryImpl) UpsertTree(search *models.FlightSearch, airports []models.Airport, airlines []models.Airline) error {
	results := search.Results
	insight := search.PriceInsight
	search.Results = nil
	search.PriceInsight = nil

	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.FlightSearch
		err := tx.Where("search_id = ?", search.SearchID).First(&existing).Error
		switch {
		case err == nil:
			search.ID = existing.ID
			search.CreatedAt = existing.CreatedAt
			if err := tx.Model(&existing).Updates(map[string]interface{}{
				"cache_key":     search.CacheKey,
				"origin":        search.Origin,
				"destination":   search.Destination,
				"outbound_date": search.OutboundDate,
				"return_date":   search.ReturnDate,
				"flight_type":   search.FlightType,
				"adults":        search.Adults,
				"children":      search.Children,
				"infants_lap":   search.InfantsLap,
				"infants_seat":  search.InfantsSeat,
				"currency":      search.Currency,
				"status":        search.Status,
			}).Error; err != nil {
				return err
			}
			if err := deleteChildren(tx, existing.ID); err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(search).Error; err != nil {
				return err
			}
		default:
			return err
		}

		for ri := range results {
			result := &results[ri]
			segments := result.Segments
			layovers := result.Layovers
			result.ID = 0
			result.SearchRef = search.ID
			result.Segments = nil
			result.Layovers = nil
			if err := tx.Create(result).Error; err != nil {
				return err
			}
			for si := range segments {
				segments[si].ID = 0
				segments[si].ResultRef = result.ID
			}
			if len(segments) > 0 {
				if err := tx.Create(&segments).Error; err != nil {
					return err
				}
			}
			for li := range layovers {
				layovers[li].ID = 0
				layovers[li].ResultRef = result.ID
			}
			if len(layovers) > 0 {
				if err := tx.Create(&layovers).Error; err != nil {
					return err
				}
			}
			result.Segments = segments
			result.Layovers = layovers
		}

		if insight != nil {
			insight.ID = 0
			insight.SearchRef = search.ID
			if err := tx.Create(insight).Error; err != nil {
				return err
			}
		}

		for i := range airports {
			if err := upsertAirport(tx, &airports[i]); err != nil {
				return err
			}
		}
		for i := range airlines {
			if err := upsertAirline(tx, &airlines[i]); err != nil {
				return err
			}
		}

		search.Results = results
		search.PriceInsight = insight
		return nil
	})
}

// deleteChildren removes the tree below one search in foreign-key order:
// layovers, segments, price insights, then results.
func deleteChildren(tx *gorm.DB, searchRef uint) error {
	resultIDs := tx.Model(&models.FlightResult{}).
		Select("id").
		Where("search_ref = ?", searchRef)

	if err := tx.Where("result_ref IN (?)", resultIDs).Delete(&models.Layover{}).Error; err != nil {
		return err
	}
	if err := tx.Where("result_ref IN (?)", resultIDs).Delete(&models.FlightSegment{}).Error; err != nil {
		return err
	}
	if err := tx.Where("search_ref = ?", searchRef).Delete(&models.PriceInsight{}).Error; err != nil {
		return err
	}
	return tx.Where("search_ref = ?", searchRef).Delete(&models.FlightResult{}).Error
}

func (r *SearchRepositoryImpl) GetBySearchID(searchID string) (*models.FlightSearch, error) {
	var search models.FlightSearch
	err := r.db.Where("search_id = ?", searchID).First(&search).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &search, nil
}

func (r *SearchRepositoryImpl) FindFreshByCacheKey(cacheKey string, since time.Time) (*models.FlightSearch, error) {
	var search models.FlightSearch
	err := r.db.Where("cache_key = ? AND created_at > ?", cacheKey, since).
		Order("created_at DESC").
		First(&search).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &search, nil
}

func (r *SearchRepositoryImpl) LoadTree(search *models.FlightSearch) error {
	return r.db.
		Preload("Results", func(db *gorm.DB) *gorm.DB {
			return db.Order("flight_results.result_rank")
		}).
		Preload("Results.Segments", func(db *gorm.DB) *gorm.DB {
			return db.Order("flight_segments.segment_order")
		}).
		Preload("Results.Layovers", func(db *gorm.DB) *gorm.DB {
			return db.Order("layovers.layover_order")
		}).
		Preload("PriceInsight").
		First(search, search.ID).Error
}

// DeleteOlderThan removes every search tree created before the cutoff.
// Returns the number of searches removed.
func (r *SearchRepositoryImpl) DeleteOlderThan(cutoff time.Time) (int64, error) {
	var removed int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&models.FlightSearch{}).
			Where("created_at < ?", cutoff).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		for _, id := range ids {
			if err := deleteChildren(tx, id); err != nil {
				return err
			}
		}
		res := tx.Where("id IN ?", ids).Delete(&models.FlightSearch{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return nil
	})
	return removed, err
}

// DeleteOrphans removes child rows whose parent is gone. Only manual
// maintenance calls this; the regular delete paths keep the tree consistent.
func (r *SearchRepositoryImpl) DeleteOrphans() (int64, error) {
	var total int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`DELETE FROM layovers WHERE result_ref NOT IN (SELECT id FROM flight_results)`)
		if res.Error != nil {
			return res.Error
		}
		total += res.RowsAffected

		res = tx.Exec(`DELETE FROM flight_segments WHERE result_ref NOT IN (SELECT id FROM flight_results)`)
		if res.Error != nil {
			return res.Error
		}
		total += res.RowsAffected

		res = tx.Exec(`DELETE FROM price_insights WHERE search_ref NOT IN (SELECT id FROM flight_searches)`)
		if res.Error != nil {
			return res.Error
		}
		total += res.RowsAffected

		res = tx.Exec(`DELETE FROM flight_results WHERE search_ref NOT IN (SELECT id FROM flight_searches)`)
		if res.Error != nil {
			return res.Error
		}
		total += res.RowsAffected
		return nil
	})
	return total, err
}

func (r *SearchRepositoryImpl) CountSearches() (int64, error) {
	var count int64
	err := r.db.Model(&models.FlightSearch{}).Count(&count).Error
	return count, err
}

// AirportRepositoryImpl implements AirportRepository
type AirportRepositoryImpl struct {
	db *gorm.DB
}

func NewAirportRepository(db *gorm.DB) models.AirportRepository {
	return &AirportRepositoryImpl{db: db}
}

func (r *AirportRepositoryImpl) Upsert(airport *models.Airport) error {
	if err := airport.Validate(); err != nil {
		return err
	}
	return upsertAirport(r.db, airport)
}

// upsertAirport inserts the code if absent; on conflict it only fills
// columns that are still NULL. An existing value is never overwritten.
func upsertAirport(tx *gorm.DB, airport *models.Airport) error {
	return tx.Exec(`
		INSERT INTO airports (code, name, city, country, created_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (code)
		DO UPDATE SET
			name = COALESCE(airports.name, excluded.name),
			city = COALESCE(airports.city, excluded.city),
			country = COALESCE(airports.country, excluded.country),
			updated_at = CURRENT_TIMESTAMP
	`, airport.Code, airport.Name, airport.City, airport.Country).Error
}

func (r *AirportRepositoryImpl) GetByCode(code string) (*models.Airport, error) {
	var airport models.Airport
	err := r.db.Where("code = ?", code).First(&airport).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &airport, nil
}

func (r *AirportRepositoryImpl) CountAll() (int64, error) {
	var count int64
	err := r.db.Model(&models.Airport{}).Count(&count).Error
	return count, err
}

// AirlineRepositoryImpl implements AirlineRepository
type AirlineRepositoryImpl struct {
	db *gorm.DB
}

func NewAirlineRepository(db *gorm.DB) models.AirlineRepository {
	return &AirlineRepositoryImpl{db: db}
}

func (r *AirlineRepositoryImpl) Upsert(airline *models.Airline) error {
	if err := airline.Validate(); err != nil {
		return err
	}
	return upsertAirline(r.db, airline)
}

func upsertAirline(tx *gorm.DB, airline *models.Airline) error {
	return tx.Exec(`
		INSERT INTO airlines (code, name, logo_url, created_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (code)
		DO UPDATE SET
			name = COALESCE(airlines.name, excluded.name),
			logo_url = COALESCE(airlines.logo_url, excluded.logo_url),
			updated_at = CURRENT_TIMESTAMP
	`, airline.Code, airline.Name, airline.LogoURL).Error
}

func (r *AirlineRepositoryImpl) GetByCode(code string) (*models.Airline, error) {
	var airline models.Airline
	err := r.db.Where("code = ?", code).First(&airline).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &airline, nil
}

func (r *AirlineRepositoryImpl) CountAll() (int64, error) {
	var count int64
	err := r.db.Model(&models.Airline{}).Count(&count).Error
	return count, err
}

// RepositoryManager bundles all repositories
type RepositoryManager struct {
	RawQueries models.RawQueryRepository
	Searches   models.SearchRepository
	Airports   models.AirportRepository
	Airlines   models.AirlineRepository
}

func NewRepositoryManager(db *gorm.DB) *RepositoryManager {
	return &RepositoryManager{
		RawQueries: NewRawQueryRepository(db),
		Searches:   NewSearchRepository(db),
		Airports:   NewAirportRepository(db),
		Airlines:   NewAirlineRepository(db),
	}
}

package cache

import (
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/skyhop/flightcache/internal/models"
)

// Index answers queries from the structured store when a fresh equivalent
// search exists. It owns no storage of its own; the flight_searches table is
// the index.
type Index struct {
	searches models.SearchRepository
	window   time.Duration
	logger   *logrus.Logger

	hits   uint64
	misses uint64
}

func NewIndex(searches models.SearchRepository, window time.Duration, logger *logrus.Logger) *Index {
	if window == 0 {
		window = 24 * time.Hour
	}
	return &Index{
		searches: searches,
		window:   window,
		logger:   logger,
	}
}

// Lookup returns the newest fresh search tree for the key, fully hydrated,
// or nil on a miss. A row aged exactly the freshness window is stale.
func (i *Index) Lookup(cacheKey string, now time.Time) (*models.FlightSearch, error) {
	since := now.Add(-i.window)

	search, err := i.searches.FindFreshByCacheKey(cacheKey, since)
	if err != nil {
		return nil, err
	}
	if search == nil {
		atomic.AddUint64(&i.misses, 1)
		i.logger.WithFields(logrus.Fields{
			"event":     "cache.miss",
			"cache_key": cacheKey[:12],
		}).Debug("Cache miss")
		return nil, nil
	}

	if err := i.searches.LoadTree(search); err != nil {
		return nil, err
	}

	atomic.AddUint64(&i.hits, 1)
	i.logger.WithFields(logrus.Fields{
		"event":     "cache.hit",
		"cache_key": cacheKey[:12],
		"search_id": search.SearchID,
		"age":       now.Sub(search.CreatedAt).Round(time.Second).String(),
	}).Info("Cache hit")

	return search, nil
}

// Counters reports hit and miss totals since process start.
func (i *Index) Counters() (hits, misses uint64) {
	return atomic.LoadUint64(&i.hits), atomic.LoadUint64(&i.misses)
}

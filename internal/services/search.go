// internal/services/search.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/skyhop/flightcache/internal/cache"
	"github.com/skyhop/flightcache/internal/models"
	"github.com/skyhop/flightcache/internal/provider"
	"github.com/skyhop/flightcache/internal/repository"
	"github.com/skyhop/flightcache/pkg/metrics"
)

// SearchService runs the cache-first pipeline: validate, look up, sweep,
// fetch, complete, archive raw, project structured.
type SearchService struct {
	client      *provider.Client
	index       *cache.Index
	writer      *StructuredWriter
	completion  *CompletionService
	retention   *RetentionService
	repoManager *repository.RepositoryManager
	metrics     *metrics.Metrics
	logger      *logrus.Logger
}

func NewSearchService(
	client *provider.Client,
	index *cache.Index,
	writer *StructuredWriter,
	completion *CompletionService,
	retention *RetentionService,
	repoManager *repository.RepositoryManager,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *SearchService {
	s := &SearchService{
		client:      client,
		index:       index,
		writer:      writer,
		completion:  completion,
		retention:   retention,
		repoManager: repoManager,
		metrics:     m,
		logger:      logger,
	}
	client.OnRetry = m.RetryAttempts.Inc
	return s
}

// Search runs one query through the whole pipeline and always returns an
// outcome envelope; the error return is reserved for context cancellation.
func (s *SearchService) Search(ctx context.Context, params provider.SearchParams) (*models.SearchOutcome, error) {
	start := time.Now()
	outcome := &models.SearchOutcome{}
	defer func() {
		outcome.ResponseTimeMs = time.Since(start).Milliseconds()
		s.metrics.SearchDuration.Observe(time.Since(start).Seconds())
	}()

	// VALIDATE
	if err := params.Validate(start); err != nil {
		outcome.Source = models.SourceValidation
		outcome.Error = err.Error()
		return outcome, nil
	}

	cacheKey := cache.Fingerprint(params)
	outcome.CacheKey = cacheKey

	s.logger.WithFields(logrus.Fields{
		"event":     "search.start",
		"route":     params.SearchTerm(),
		"cache_key": cacheKey[:12],
	}).Info("Search started")

	// CACHE_LOOKUP
	cached, err := s.index.Lookup(cacheKey, start)
	if err != nil {
		s.logger.WithError(err).Warn("Cache lookup failed, treating as miss")
	}
	if cached != nil {
		s.metrics.CacheHits.Inc()
		outcome.Success = true
		outcome.Source = models.SourceCache
		outcome.SearchID = cached.SearchID
		outcome.Search = cached
		outcome.RawStored = true
		outcome.StructuredStored = true
		return outcome, nil
	}
	s.metrics.CacheMisses.Inc()

	// RETENTION_SWEEP, throttled and non-fatal
	if s.retention != nil && s.retention.MaybeSweep(start) {
		s.metrics.RetentionSweeps.Inc()
	}

	// REMOTE_FETCH
	s.metrics.APICalls.Inc()
	resp, exchange, err := s.client.SearchWithRetry(ctx, params)
	if err != nil {
		s.metrics.APIFailures.Inc()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return outcome, err
		}
		// A failed exchange is still archived when a body was read.
		if exchange != nil {
			if archiveErr := s.writer.ArchiveRaw(exchange); archiveErr == nil {
				outcome.RawStored = true
			}
		}
		outcome.Source = models.SourceAPIError
		outcome.Error = err.Error()
		return outcome, nil
	}

	// COMPLETION, fail-open
	merged, completionErr := s.completion.Complete(ctx, params, resp)
	if completionErr != nil && (errors.Is(completionErr, context.Canceled) || errors.Is(completionErr, context.DeadlineExceeded)) {
		return outcome, completionErr
	}
	if merged {
		s.metrics.CompletionMerges.Inc()
	}
	outcome.InboundMerged = merged

	// RAW_PERSIST comes strictly before STRUCTURED_PERSIST.
	if err := s.writer.ArchiveRaw(exchange); err != nil {
		outcome.Source = models.SourceAPIError
		outcome.Error = err.Error()
		return outcome, nil
	}
	outcome.RawStored = true

	// STRUCTURED_PERSIST, degradable: a failure here still returns the
	// response to the caller.
	searchID := provider.NewSearchID(params, start)
	outcome.SearchID = searchID

	search, err := s.writer.WriteStructured(searchID, cacheKey, params, resp, merged)
	if err != nil {
		s.metrics.StructuredStorageFailures.Inc()
		outcome.Success = true
		outcome.Source = models.SourceAPI
		outcome.Error = err.Error()
		return outcome, nil
	}

	outcome.Success = true
	outcome.Source = models.SourceAPI
	outcome.StructuredStored = true
	outcome.Search = search
	return outcome, nil
}

// Stats reports index counters and table sizes.
func (s *SearchService) Stats() (*models.CacheStats, error) {
	hits, misses := s.index.Counters()
	stats := &models.CacheStats{Hits: hits, Misses: misses}

	var err error
	if stats.SearchEntries, err = s.repoManager.Searches.CountSearches(); err != nil {
		return nil, err
	}
	if stats.RawEntries, err = s.repoManager.RawQueries.CountAll(); err != nil {
		return nil, err
	}
	if stats.AirportEntries, err = s.repoManager.Airports.CountAll(); err != nil {
		return nil, err
	}
	if stats.AirlineEntries, err = s.repoManager.Airlines.CountAll(); err != nil {
		return nil, err
	}
	return stats, nil
}

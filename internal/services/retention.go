// internal/services/retention.go
package services

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/skyhop/flightcache/internal/database"
	"github.com/skyhop/flightcache/internal/repository"
)

// RetentionService removes expired search trees. The opportunistic path runs
// during searches under a cooldown; the manual path also prunes the raw
// archive and compacts the file.
type RetentionService struct {
	repoManager *repository.RepositoryManager
	dbManager   *database.Manager
	ttl         time.Duration
	cooldown    time.Duration
	logger      *logrus.Logger

	mu        sync.Mutex
	lastSweep time.Time
}

func NewRetentionService(repoManager *repository.RepositoryManager, dbManager *database.Manager, ttl, cooldown time.Duration, logger *logrus.Logger) *RetentionService {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	if cooldown == 0 {
		cooldown = 15 * time.Minute
	}
	return &RetentionService{
		repoManager: repoManager,
		dbManager:   dbManager,
		ttl:         ttl,
		cooldown:    cooldown,
		logger:      logger,
	}
}

// MaybeSweep runs a sweep unless one ran within the cooldown. Returns true
// when a sweep actually executed. Failures are logged, never fatal to the
// search that triggered them.
func (rs *RetentionService) MaybeSweep(now time.Time) bool {
	rs.mu.Lock()
	if now.Sub(rs.lastSweep) < rs.cooldown {
		rs.mu.Unlock()
		return false
	}
	rs.lastSweep = now
	rs.mu.Unlock()

	if _, err := rs.Sweep(now); err != nil {
		rs.logger.WithError(err).WithField("event", "retention.sweep").Warn("Opportunistic sweep failed")
	}
	return true
}

// Sweep deletes structured trees older than the TTL. The raw archive is
// never touched here.
func (rs *RetentionService) Sweep(now time.Time) (int64, error) {
	cutoff := now.Add(-rs.ttl)
	removed, err := rs.repoManager.Searches.DeleteOlderThan(cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		rs.logger.WithFields(logrus.Fields{
			"event":   "retention.sweep",
			"removed": removed,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("Expired search trees removed")
	}
	return removed, nil
}

// MaintenanceReport summarizes one manual cleanup run.
type MaintenanceReport struct {
	SearchesRemoved int64 `json:"searches_removed"`
	RawRemoved      int64 `json:"raw_removed"`
	OrphansRemoved  int64 `json:"orphans_removed"`
	Vacuumed        bool  `json:"vacuumed"`
}

// Maintain is the manual cleanup path: expired trees, orphaned child rows,
// and, only when rawRetentionDays is positive, old raw records. Finishes
// with a VACUUM.
func (rs *RetentionService) Maintain(now time.Time, rawRetentionDays int) (*MaintenanceReport, error) {
	report := &MaintenanceReport{}

	removed, err := rs.Sweep(now)
	if err != nil {
		return report, err
	}
	report.SearchesRemoved = removed

	orphans, err := rs.repoManager.Searches.DeleteOrphans()
	if err != nil {
		return report, err
	}
	report.OrphansRemoved = orphans

	if rawRetentionDays > 0 {
		cutoff := now.AddDate(0, 0, -rawRetentionDays)
		rawRemoved, err := rs.repoManager.RawQueries.DeleteOlderThan(cutoff)
		if err != nil {
			return report, err
		}
		report.RawRemoved = rawRemoved
	}

	if err := rs.dbManager.Vacuum(); err != nil {
		return report, err
	}
	report.Vacuumed = true

	rs.logger.WithFields(logrus.Fields{
		"event":    "retention.maintain",
		"searches": report.SearchesRemoved,
		"orphans":  report.OrphansRemoved,
		"raw":      report.RawRemoved,
	}).Info("Manual maintenance completed")
	return report, nil
}

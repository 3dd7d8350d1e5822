package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/skyhop/flightcache/internal/models"
)

// Database connection manager
type Manager struct {
	DB     *gorm.DB
	logger *logrus.Logger
}

// Database configuration
type Config struct {
	Path     string
	LogLevel string
}

// NewManager opens the file-backed store and applies the pragmas the whole
// pipeline depends on: WAL for concurrent readers, foreign_keys for the
// child-row constraints, busy_timeout so competing writers queue instead of
// failing.
func NewManager(config *Config, log *logrus.Logger) (*Manager, error) {
	gormLogger := gormlogger.Default.LogMode(gormlogger.Silent)
	if config.LogLevel == "debug" {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", config.Path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true, // Improve performance
		PrepareStmt:            true, // Cache prepared statements
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// sqlite allows a single writer. Keep one connection so writes serialize
	// in-process instead of hitting SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.WithField("path", config.Path).Info("Database connection established")

	return &Manager{
		DB:     db,
		logger: log,
	}, nil
}

// Migrate runs database migrations
func (m *Manager) Migrate() error {
	m.logger.Info("Running database migrations...")

	return m.DB.AutoMigrate(
		&models.APIQuery{},
		&models.FlightSearch{},
		&models.FlightResult{},
		&models.FlightSegment{},
		&models.Layover{},
		&models.Airport{},
		&models.Airline{},
		&models.PriceInsight{},
		&models.SchemaVersion{},
		&models.SchemaMigration{},
	)
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.DB != nil {
		sqlDB, err := m.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return nil
}

// PingDatabase reports whether the store is reachable.
func (m *Manager) PingDatabase() error {
	sqlDB, err := m.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Vacuum reclaims space after large deletes. Manual maintenance only.
func (m *Manager) Vacuum() error {
	return m.DB.Exec("VACUUM").Error
}

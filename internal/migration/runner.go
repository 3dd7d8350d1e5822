package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/skyhop/flightcache/internal/database"
	"github.com/skyhop/flightcache/internal/models"
)

type Runner struct {
	dbManager *database.Manager
	logger    *logrus.Logger
}

func NewRunner(dbManager *database.Manager, logger *logrus.Logger) *Runner {
	return &Runner{
		dbManager: dbManager,
		logger:    logger,
	}
}

// RunMigrations executes all pending migrations and updates the version
// manifest. A migration whose file content changed after it was recorded in
// the ledger aborts the run.
func (r *Runner) RunMigrations(migrationsPath string) error {
	r.logger.Info("Starting database migrations...")

	// First run GORM auto-migrations
	if err := r.dbManager.Migrate(); err != nil {
		return fmt.Errorf("GORM auto-migration failed: %w", err)
	}

	// Then run SQL migrations
	if migrationsPath != "" {
		if err := r.runSQLMigrations(migrationsPath); err != nil {
			return fmt.Errorf("SQL migrations failed: %w", err)
		}
	}

	if err := r.updateManifest(); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}

	r.logger.Info("Database migrations completed successfully")
	return nil
}

func (r *Runner) runSQLMigrations(migrationsPath string) error {
	files, err := ioutil.ReadDir(migrationsPath)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, file := range files {
		if strings.HasSuffix(file.Name(), ".sql") {
			sqlFiles = append(sqlFiles, file.Name())
		}
	}

	sort.Strings(sqlFiles) // Ensure migrations run in order

	for _, fileName := range sqlFiles {
		applied, err := r.applySQLFile(migrationsPath, fileName)
		if err != nil {
			return fmt.Errorf("failed to run migration %s: %w", fileName, err)
		}
		if applied {
			r.logger.WithField("file", fileName).Info("Migration executed successfully")
		}
	}

	return nil
}

// applySQLFile runs one migration file unless the ledger already records it.
// Returns true when the file was executed this run.
func (r *Runner) applySQLFile(dir, fileName string) (bool, error) {
	content, err := ioutil.ReadFile(filepath.Join(dir, fileName))
	if err != nil {
		return false, err
	}

	sum := sha256.Sum256(content)
	checksum := hex.EncodeToString(sum[:])

	var existing models.SchemaMigration
	err = r.dbManager.DB.Where("name = ?", fileName).First(&existing).Error
	switch {
	case err == nil:
		if existing.Checksum != checksum {
			return false, fmt.Errorf("migration %s changed after it was applied (ledger %s, file %s)",
				fileName, existing.Checksum[:8], checksum[:8])
		}
		return false, nil
	case err != gorm.ErrRecordNotFound:
		return false, err
	}

	for i, stmt := range r.splitSQLStatements(string(content)) {
		r.logger.WithFields(logrus.Fields{
			"file":      fileName,
			"statement": i + 1,
		}).Debug("Executing SQL statement")

		if err := r.dbManager.DB.Exec(stmt).Error; err != nil {
			return false, fmt.Errorf("failed to execute statement %d in %s: %w", i+1, fileName, err)
		}
	}

	ledger := models.SchemaMigration{
		Name:      fileName,
		Checksum:  checksum,
		AppliedAt: time.Now().UTC(),
	}
	if err := r.dbManager.DB.Create(&ledger).Error; err != nil {
		return false, err
	}

	return true, nil
}

// updateManifest recomputes the single-row schema version from the ledger:
// version is the number of applied migrations, checksum the hash of the
// ordered name:checksum lines.
func (r *Runner) updateManifest() error {
	var ledger []models.SchemaMigration
	if err := r.dbManager.DB.Order("name").Find(&ledger).Error; err != nil {
		return err
	}

	h := sha256.New()
	for _, m := range ledger {
		fmt.Fprintf(h, "%s:%s\n", m.Name, m.Checksum)
	}

	version := models.SchemaVersion{
		ID:        1,
		Version:   len(ledger),
		Checksum:  hex.EncodeToString(h.Sum(nil)),
		AppliedAt: time.Now().UTC(),
	}

	return r.dbManager.DB.Save(&version).Error
}

// CurrentVersion reads the manifest row, if any.
func (r *Runner) CurrentVersion() (*models.SchemaVersion, error) {
	var version models.SchemaVersion
	if err := r.dbManager.DB.First(&version, 1).Error; err != nil {
		return nil, err
	}
	return &version, nil
}

// splitSQLStatements splits SQL content into individual statements
func (r *Runner) splitSQLStatements(sql string) []string {
	lines := strings.Split(sql, "\n")
	var cleanedLines []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		// Skip comment lines and empty lines
		if line != "" && !strings.HasPrefix(line, "--") {
			cleanedLines = append(cleanedLines, line)
		}
	}

	// Join back and split by semicolon
	cleanedSQL := strings.Join(cleanedLines, " ")
	statements := strings.Split(cleanedSQL, ";")

	var result []string
	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			result = append(result, stmt)
		}
	}

	return result
}

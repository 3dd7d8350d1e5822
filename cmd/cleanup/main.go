// cmd/cleanup/main.go
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/skyhop/flightcache/internal/config"
	"github.com/skyhop/flightcache/internal/database"
	"github.com/skyhop/flightcache/internal/repository"
	"github.com/skyhop/flightcache/internal/services"
	"github.com/skyhop/flightcache/pkg/utils"
)

var (
	rawRetentionDays = flag.Int("raw-retention-days", 0, "Also prune raw records older than N days (0 = never touch the raw archive)")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	logger := utils.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	dbManager, err := database.NewManager(&database.Config{
		Path:     cfg.Database.Path,
		LogLevel: os.Getenv("LOG_LEVEL"),
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize database manager")
		os.Exit(1)
	}
	defer dbManager.Close()

	repoManager := repository.NewRepositoryManager(dbManager.DB)
	retention := services.NewRetentionService(repoManager, dbManager, cfg.Retention.TTL, cfg.Retention.Cooldown, logger)

	days := *rawRetentionDays
	if days == 0 {
		days = cfg.Retention.RawRetentionDays
	}

	report, err := retention.Maintain(time.Now(), days)
	if err != nil {
		logger.WithError(err).Error("Maintenance failed")
		os.Exit(1)
	}

	fmt.Printf("searches removed: %d\norphans removed: %d\nraw removed: %d\nvacuumed: %v\n",
		report.SearchesRemoved, report.OrphansRemoved, report.RawRemoved, report.Vacuumed)
}

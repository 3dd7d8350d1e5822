// cmd/seed/main.go
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/skyhop/flightcache/internal/config"
	"github.com/skyhop/flightcache/internal/database"
	"github.com/skyhop/flightcache/internal/repository"
	"github.com/skyhop/flightcache/internal/seeder"
	"github.com/skyhop/flightcache/pkg/utils"
)

var (
	seedAirports = flag.Bool("airports", false, "Seed the airport registry")
	seedAirlines = flag.Bool("airlines", false, "Seed the airline registry")
	limit        = flag.Int("limit", 0, "Limit rows per registry (0 = all)")
	delay        = flag.Duration("delay", 2*time.Second, "Delay between requests")
	dryRun       = flag.Bool("dry-run", false, "Print rows instead of writing them")
	verbose      = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	logger := utils.GetLogger()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if !*seedAirports && !*seedAirlines {
		*seedAirports = true
		*seedAirlines = true
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	var repoManager *repository.RepositoryManager
	if !*dryRun {
		dbManager, err := database.NewManager(&database.Config{
			Path:     cfg.Database.Path,
			LogLevel: os.Getenv("LOG_LEVEL"),
		}, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize database manager")
		}
		defer dbManager.Close()

		if err := dbManager.Migrate(); err != nil {
			logger.WithError(err).Fatal("Migration failed")
		}
		repoManager = repository.NewRepositoryManager(dbManager.DB)
	}

	rs := seeder.NewRegistrySeeder(repoManager, seeder.Options{
		Limit:  *limit,
		Delay:  *delay,
		DryRun: *dryRun,
	}, logger)

	if *seedAirports {
		if _, err := rs.SeedAirports(); err != nil {
			logger.WithError(err).Fatal("Airport seeding failed")
		}
	}
	if *seedAirlines {
		if _, err := rs.SeedAirlines(); err != nil {
			logger.WithError(err).Fatal("Airline seeding failed")
		}
	}

	logger.Info("Registry seeding completed")
}

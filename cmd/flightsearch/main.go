// cmd/flightsearch/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/skyhop/flightcache/internal/cache"
	"github.com/skyhop/flightcache/internal/config"
	"github.com/skyhop/flightcache/internal/database"
	"github.com/skyhop/flightcache/internal/migration"
	"github.com/skyhop/flightcache/internal/models"
	"github.com/skyhop/flightcache/internal/provider"
	"github.com/skyhop/flightcache/internal/repository"
	"github.com/skyhop/flightcache/internal/services"
	"github.com/skyhop/flightcache/pkg/metrics"
	"github.com/skyhop/flightcache/pkg/utils"
)

var (
	week     = flag.Bool("week", false, "Search 7 consecutive departure days")
	oneWay   = flag.Bool("one-way", false, "Force a one-way search")
	adults   = flag.Int("adults", 1, "Number of adult passengers")
	children = flag.Int("children", 0, "Number of child passengers")
	currency = flag.String("currency", "USD", "Price currency")
	jsonOut  = flag.Bool("json", false, "Print the raw outcome as JSON")
	verbose  = flag.Bool("verbose", false, "Enable verbose logging")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] ORIGIN DEST DATE [RETURN]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Searches flights cache-first; ORIGIN and DEST are 3-letter airport codes,\nDATE and RETURN are YYYY-MM-DD.\n\nFlags:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	logger := utils.GetLogger()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}

	args := flag.Args()
	if len(args) < 3 {
		usage()
		os.Exit(1)
	}

	params := provider.SearchParams{
		Origin:       args[0],
		Destination:  args[1],
		OutboundDate: args[2],
		Adults:       *adults,
		Children:     *children,
		Currency:     *currency,
	}
	if len(args) > 3 {
		params.ReturnDate = args[3]
	}
	// A week search with RETURN runs round trips, sliding both dates so
	// every day keeps the same trip length.
	if *oneWay {
		params.FlightType = models.FlightTypeOneWay
		params.ReturnDate = ""
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.ValidateProvider(); err != nil {
		logger.WithError(err).Fatal("Provider configuration validation failed")
	}

	dbManager, err := database.NewManager(&database.Config{
		Path:     cfg.Database.Path,
		LogLevel: os.Getenv("LOG_LEVEL"),
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database manager")
	}
	defer dbManager.Close()

	runner := migration.NewRunner(dbManager, logger)
	if err := runner.RunMigrations(os.Getenv("MIGRATIONS_PATH")); err != nil {
		logger.WithError(err).Fatal("Migrations failed")
	}

	repoManager := repository.NewRepositoryManager(dbManager.DB)
	m := metrics.New(nil)

	limiter := provider.NewRateLimiter(cfg.RateLimit.RequestsPerMinute)
	client := provider.NewClient(
		cfg.Provider.BaseURL,
		cfg.Provider.APIKey,
		cfg.Provider.Timeout,
		limiter,
		provider.RetryConfig{
			MaxRetries: cfg.Provider.MaxRetries,
			BaseDelay:  cfg.Provider.BaseDelay,
			MaxDelay:   cfg.Provider.MaxDelay,
		},
		logger,
	)

	index := cache.NewIndex(repoManager.Searches, cfg.Cache.FreshnessWindow, logger)
	writer := services.NewStructuredWriter(repoManager, logger)
	completion := services.NewCompletionService(client, logger)
	retention := services.NewRetentionService(repoManager, dbManager, cfg.Retention.TTL, cfg.Retention.Cooldown, logger)
	searchService := services.NewSearchService(client, index, writer, completion, retention, repoManager, m, logger)

	ctx := context.Background()

	if *week {
		weekService := services.NewWeekService(searchService, logger)
		summary, err := weekService.SearchWeek(ctx, params)
		if err != nil {
			fmt.Fprintf(os.Stderr, "week search failed: %v\n", err)
			os.Exit(1)
		}
		printWeek(summary)
		return
	}

	outcome, err := searchService.Search(ctx, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "search cancelled: %v\n", err)
		os.Exit(1)
	}
	printOutcome(outcome)
	if !outcome.Success {
		os.Exit(1)
	}
}

func printOutcome(outcome *models.SearchOutcome) {
	if *jsonOut {
		data, _ := json.MarshalIndent(outcome, "", "  ")
		fmt.Println(string(data))
		return
	}

	if !outcome.Success {
		fmt.Printf("FAILED (%s): %s\n", outcome.Source, outcome.Error)
		return
	}

	fmt.Printf("source: %s  search_id: %s  (%d ms)\n", outcome.Source, outcome.SearchID, outcome.ResponseTimeMs)
	if outcome.Search == nil {
		return
	}
	for _, r := range outcome.Search.Results {
		route := ""
		for i, seg := range r.Segments {
			if i == 0 {
				route = seg.DepartureAirportCode
			}
			route += "->" + seg.ArrivalAirportCode
		}
		fmt.Printf("  #%-3d %-8s %8.2f %s  %4d min  %s\n",
			r.ResultRank, r.ResultType, r.TotalPrice, r.Currency, r.TotalDurationMinutes, route)
	}
}

func printWeek(summary *models.WeekSummary) {
	if *jsonOut {
		data, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("week of %s, %s -> %s (%d/7 days succeeded)\n",
		summary.StartDate, summary.Origin, summary.Destination, summary.SuccessfulDays)
	for _, day := range summary.Days {
		if !day.Success {
			fmt.Printf("  %s  FAILED: %s\n", day.Date, day.Error)
			continue
		}
		fmt.Printf("  %s  %8.2f  (%s)\n", day.Date, day.CheapestPrice, day.Source)
	}
	if summary.CheapestDay != "" {
		fmt.Printf("cheapest: %s at %.2f\n", summary.CheapestDay, summary.CheapestPrice)
	}
	if summary.WeekdayAvg > 0 || summary.WeekendAvg > 0 {
		fmt.Printf("avg weekday %.2f / weekend %.2f\n", summary.WeekdayAvg, summary.WeekendAvg)
	}
}

// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skyhop/flightcache/internal/api/handlers"
	"github.com/skyhop/flightcache/internal/cache"
	"github.com/skyhop/flightcache/internal/config"
	"github.com/skyhop/flightcache/internal/database"
	"github.com/skyhop/flightcache/internal/health"
	"github.com/skyhop/flightcache/internal/middleware"
	"github.com/skyhop/flightcache/internal/migration"
	"github.com/skyhop/flightcache/internal/provider"
	"github.com/skyhop/flightcache/internal/repository"
	"github.com/skyhop/flightcache/internal/services"
	"github.com/skyhop/flightcache/pkg/metrics"
	"github.com/skyhop/flightcache/pkg/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	logger := utils.GetLogger()

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
	weekService := services.NewWeekService(searchService, logger)

	searchHandler := handlers.NewSearchHandler(searchService, weekService, logger)
	healthChecker := health.NewHealthChecker(dbManager, cfg.Provider.BaseURL, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.SecurityHeaders())

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.RequestsPerHour)
	router.Use(rateLimiter.RateLimit())

	v1 := router.Group("/api/v1")
	{
		v1.POST("/search", searchHandler.HandleSearch)
		v1.GET("/search/week", searchHandler.HandleWeekSearch)
		v1.GET("/stats", searchHandler.HandleStats)
	}

	router.GET("/health", func(c *gin.Context) {
		overall := healthChecker.CheckAll()
		status := http.StatusOK
		if overall.Status == "unhealthy" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, overall)
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Forced shutdown")
	}
	logger.Info("Server stopped")
}

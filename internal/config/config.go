package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port            string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
	}
	Database struct {
		Path string
	}
	Provider struct {
		APIKey     string
		BaseURL    string
		Timeout    time.Duration
		MaxRetries int
		BaseDelay  time.Duration
		MaxDelay   time.Duration
	}
	Cache struct {
		FreshnessWindow time.Duration
	}
	Retention struct {
		TTL              time.Duration
		Cooldown         time.Duration
		RawRetentionDays int
	}
	RateLimit struct {
		RequestsPerMinute int
		RequestsPerHour   int
	}
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	var config Config

	// Set defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.shutdown_timeout", "10s")
	viper.SetDefault("database.path", "flightcache.db")
	viper.SetDefault("provider.timeout", "30s")
	viper.SetDefault("provider.max_retries", 3)
	viper.SetDefault("provider.base_delay", "1s")
	viper.SetDefault("provider.max_delay", "30s")
	viper.SetDefault("cache.freshness_window", "24h")
	viper.SetDefault("retention.ttl", "24h")
	viper.SetDefault("retention.cooldown", "15m")
	viper.SetDefault("retention.raw_retention_days", 0)
	viper.SetDefault("ratelimit.requests_per_minute", 60)
	viper.SetDefault("ratelimit.requests_per_hour", 1000)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	config.Server.Port = viper.GetString("server.port")
	config.Server.ReadTimeout = viper.GetDuration("server.read_timeout")
	config.Server.WriteTimeout = viper.GetDuration("server.write_timeout")
	config.Server.ShutdownTimeout = viper.GetDuration("server.shutdown_timeout")
	config.Database.Path = viper.GetString("database.path")
	config.Provider.Timeout = viper.GetDuration("provider.timeout")
	config.Provider.MaxRetries = viper.GetInt("provider.max_retries")
	config.Provider.BaseDelay = viper.GetDuration("provider.base_delay")
	config.Provider.MaxDelay = viper.GetDuration("provider.max_delay")
	config.Cache.FreshnessWindow = viper.GetDuration("cache.freshness_window")
	config.Retention.TTL = viper.GetDuration("retention.ttl")
	config.Retention.Cooldown = viper.GetDuration("retention.cooldown")
	config.Retention.RawRetentionDays = viper.GetInt("retention.raw_retention_days")
	config.RateLimit.RequestsPerMinute = viper.GetInt("ratelimit.requests_per_minute")
	config.RateLimit.RequestsPerHour = viper.GetInt("ratelimit.requests_per_hour")

	// The key lives in the process environment only. It is never written to
	// disk and never logged.
	config.Provider.APIKey = os.Getenv("FLIGHTS_API_KEY")
	config.Provider.BaseURL = os.Getenv("FLIGHTS_API_BASE_URL")
	if config.Provider.BaseURL == "" {
		config.Provider.BaseURL = "https://serpapi.com/search"
	}

	return &config, nil
}

func (c *Config) ValidateProvider() error {
	if c.Provider.APIKey == "" {
		return fmt.Errorf("FLIGHTS_API_KEY is required")
	}
	return nil
}

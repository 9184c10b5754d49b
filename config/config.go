package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Storage configuration
	DatabasePath string

	// Selector overrides (YAML), empty means built-in selectors
	SelectorsFile string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Memcache configuration
	MemcacheAddr string

	// Check cycle configuration
	CheckInterval      time.Duration
	CheckConcurrency   int
	CheckRatePerSecond float64
	FetchTimeout       time.Duration

	// Operator alerts
	AlertAfterFailures int
	AlertFile          string

	// Limits
	MaxSubscriptionsPerUser int

	// Metrics endpoint, empty disables it
	MetricsAddr string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		DatabasePath:            getEnv("DATABASE_PATH", "geizhals.db"),
		SelectorsFile:           getEnv("SELECTORS_FILE", ""),
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:                 getEnvInt("REDIS_DB", 0),
		RedisStream:             getEnv("REDIS_STREAM", "price_notifications"),
		RedisStreamCount:        getEnvInt("REDIS_STREAM_COUNT", 1),
		RedisStreamMaxLength:    getEnvInt("REDIS_STREAM_MAX_LENGTH", 1000),
		MemcacheAddr:            getEnv("MEMCACHE_ADDR", "localhost:11211"),
		CheckInterval:           time.Duration(getEnvInt("CHECK_INTERVAL_SECONDS", 3600)) * time.Second,
		CheckConcurrency:        getEnvInt("CHECK_CONCURRENCY", 4),
		CheckRatePerSecond:      getEnvFloat("CHECK_RATE_PER_SECOND", 1),
		FetchTimeout:            time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 10)) * time.Second,
		AlertAfterFailures:      getEnvInt("ALERT_AFTER_FAILURES", 3),
		AlertFile:               getEnv("ALERT_FILE", "alerts.log"),
		MaxSubscriptionsPerUser: getEnvInt("MAX_SUBSCRIPTIONS_PER_USER", 5),
		MetricsAddr:             getEnv("METRICS_ADDR", ""),
		Environment:             getEnv("GEIZHALS_ENVIRONMENT", "development"),
	}
}

// Validate checks that the configuration values are usable
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH must not be empty")
	}
	if c.RedisStreamCount <= 0 {
		return fmt.Errorf("REDIS_STREAM_COUNT must be > 0, got %d", c.RedisStreamCount)
	}
	if c.RedisStreamMaxLength <= 0 {
		return fmt.Errorf("REDIS_STREAM_MAX_LENGTH must be > 0, got %d", c.RedisStreamMaxLength)
	}
	if c.CheckInterval < time.Minute {
		return fmt.Errorf("CHECK_INTERVAL_SECONDS must be at least 60, got %s", c.CheckInterval)
	}
	if c.CheckConcurrency <= 0 {
		return fmt.Errorf("CHECK_CONCURRENCY must be > 0, got %d", c.CheckConcurrency)
	}
	if c.CheckRatePerSecond <= 0 {
		return fmt.Errorf("CHECK_RATE_PER_SECOND must be > 0, got %v", c.CheckRatePerSecond)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT_SECONDS must be > 0")
	}
	if c.AlertAfterFailures <= 0 {
		return fmt.Errorf("ALERT_AFTER_FAILURES must be > 0, got %d", c.AlertAfterFailures)
	}
	if c.MaxSubscriptionsPerUser < 0 {
		return fmt.Errorf("MAX_SUBSCRIPTIONS_PER_USER must be >= 0, got %d", c.MaxSubscriptionsPerUser)
	}
	return nil
}

// IsProduction reports whether the bot runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// Package config handles loading and validating configuration from environment
// variables, with an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the router service.
type Config struct {
	// Server
	Port        string
	LogLevel    string
	CORSOrigins []string

	// Storage: "sqlite" (default) or "postgres".
	DBDriver string
	DBPath   string // sqlite file path

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// Redis; empty host disables rate limiting.
	RedisHost     string
	RedisPort     int
	RedisPassword string

	// Upstream credential; empty means DEMO-only operation.
	OpenRouterKey string

	// Daily spend cap in cents for LIVE mode.
	SpendCapCents float64

	// Per-client rate limits, by mode.
	DemoRateLimit  int64
	DemoRateWindow time.Duration
	LiveRateLimit  int64
	LiveRateWindow time.Duration

	// Seed demo data into an empty database at startup.
	SeedOnStart bool
}

// Load reads configuration from the environment with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	// Missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("ROUTER_PORT", "8000"),
		LogLevel:    getEnv("ROUTER_LOG_LEVEL", "info"),
		CORSOrigins: []string{getEnv("ROUTER_CORS_ORIGIN", "*")},

		DBDriver: getEnv("ROUTER_DB_DRIVER", "sqlite"),
		DBPath:   getEnv("ROUTER_DB_PATH", "router.db"),

		DBHost:     getEnv("POSTGRES_HOST", "localhost"),
		DBName:     getEnv("POSTGRES_DB", "llmrouter"),
		DBUser:     getEnv("POSTGRES_USER", "router"),
		DBPassword: getEnv("POSTGRES_PASSWORD", ""),
		DBSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		OpenRouterKey: os.Getenv("OPENROUTER_API_KEY"),

		SeedOnStart: getEnv("ROUTER_SEED", "true") == "true",
	}

	if cfg.DBDriver != "sqlite" && cfg.DBDriver != "postgres" {
		return nil, fmt.Errorf("invalid ROUTER_DB_DRIVER %q: want sqlite or postgres", cfg.DBDriver)
	}

	dbPort, err := strconv.Atoi(getEnv("POSTGRES_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid POSTGRES_PORT: %w", err)
	}
	cfg.DBPort = dbPort

	redisPort, err := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}
	cfg.RedisPort = redisPort

	spendCap, err := strconv.ParseFloat(getEnv("ROUTER_SPEND_CAP_CENTS", "200"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ROUTER_SPEND_CAP_CENTS: %w", err)
	}
	cfg.SpendCapCents = spendCap

	if cfg.DemoRateLimit, err = getEnvInt64("ROUTER_DEMO_RATE_LIMIT", 30); err != nil {
		return nil, err
	}
	if cfg.LiveRateLimit, err = getEnvInt64("ROUTER_LIVE_RATE_LIMIT", 20); err != nil {
		return nil, err
	}

	demoWindow, err := getEnvInt64("ROUTER_DEMO_RATE_WINDOW_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	cfg.DemoRateWindow = time.Duration(demoWindow) * time.Second

	liveWindow, err := getEnvInt64("ROUTER_LIVE_RATE_WINDOW_SECONDS", 3600)
	if err != nil {
		return nil, err
	}
	cfg.LiveRateWindow = time.Duration(liveWindow) * time.Second

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// RedactedDSN returns the DSN with the password masked for safe logging.
func (c *Config) RedactedDSN() string {
	return fmt.Sprintf("postgres://%s:***@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// RedisAddr returns the Redis address in host:port format, or "" when Redis
// is not configured.
func (c *Config) RedisAddr() string {
	if c.RedisHost == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

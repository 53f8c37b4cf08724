package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full environment-driven configuration for the tool server.
type Config struct {
	// Dune analytics provider
	DuneAPIKey  string
	DuneBaseURL string
	DuneQueryID int64

	// Query poll loop
	QueryPollInterval time.Duration
	QueryMaxAttempts  int

	// 1inch swap-quote provider
	OneInchAPIKey  string
	OneInchBaseURL string

	// HTTP API
	APIAddr string
	APIKey  string
	DevMode bool

	// Redis cache (optional; empty addr disables caching)
	RedisAddr string
	CacheTTL  time.Duration

	// ClickHouse invocation log (optional; empty addr disables auditing)
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// LLM agent (optional)
	OpenRouterAPIKey string

	// HTTP client settings
	HTTPTimeout time.Duration
}

// Load reads configuration from the process environment, applying defaults.
func Load() *Config {
	return &Config{
		// Dune
		DuneAPIKey:  getEnv("DUNE_API_KEY", ""),
		DuneBaseURL: getEnv("DUNE_BASE_URL", "https://api.dune.com"),
		DuneQueryID: int64(getIntEnv("DUNE_QUERY_ID", 0)),

		// Poll loop
		QueryPollInterval: getDurationEnv("QUERY_POLL_INTERVAL", 2*time.Second),
		QueryMaxAttempts:  getIntEnv("QUERY_MAX_ATTEMPTS", 30),

		// 1inch: key optional, unauthenticated requests fall back to the
		// public rate limit.
		OneInchAPIKey:  getEnv("ONEINCH_API_KEY", ""),
		OneInchBaseURL: getEnv("ONEINCH_BASE_URL", ""),

		// API
		APIAddr: getEnv("API_ADDR", ":8090"),
		APIKey:  getEnv("API_KEY", ""),
		DevMode: getBoolEnv("DEV_MODE", false),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", ""),
		CacheTTL:  getDurationEnv("CACHE_TTL", 60*time.Second),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "analytics"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// LLM
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),

		// HTTP
		HTTPTimeout: getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
	}
}

// Validate enforces the required settings.
func (c *Config) Validate() error {
	if c.DuneAPIKey == "" {
		return fmt.Errorf("DUNE_API_KEY is required")
	}
	if c.DuneQueryID <= 0 {
		return fmt.Errorf("DUNE_QUERY_ID must be a positive query id")
	}
	if c.QueryMaxAttempts <= 0 {
		return fmt.Errorf("QUERY_MAX_ATTEMPTS must be positive")
	}
	if c.QueryPollInterval <= 0 {
		return fmt.Errorf("QUERY_POLL_INTERVAL must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	Port    int
	DevMode bool

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	FinnhubAPIKey    string
	FinnhubBaseURL   string
	CoinGeckoBaseURL string
	PriceTimeout     time.Duration

	GrowthRate     decimal.Decimal // base daily growth rate, e.g. 0.10
	GrowthSchedule string          // cron expression for the accrual job
	TradeWorkers   int
	LockTimeout    time.Duration

	LogLevel string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:    getEnvAsInt("PORT", 8080),
		DevMode: getEnvAsBool("DEV_MODE", false),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "vertex"),
		DBPassword: getEnv("DB_PASSWORD", "vertex"),
		DBName:     getEnv("DB_NAME", "vertex_capital"),

		FinnhubAPIKey:    getEnv("FINNHUB_API_KEY", ""),
		FinnhubBaseURL:   getEnv("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
		CoinGeckoBaseURL: getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
		PriceTimeout:     getEnvAsDuration("PRICE_TIMEOUT", 8*time.Second),

		GrowthSchedule: getEnv("GROWTH_SCHEDULE", "0 0 * * *"),
		TradeWorkers:   getEnvAsInt("TRADE_WORKERS", 5),
		LockTimeout:    getEnvAsDuration("LOCK_TIMEOUT", 5*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	rate, err := decimal.NewFromString(getEnv("GROWTH_RATE", "0.10"))
	if err != nil {
		return nil, fmt.Errorf("invalid GROWTH_RATE: %w", err)
	}
	cfg.GrowthRate = rate

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DBName == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.GrowthRate.IsNegative() {
		return fmt.Errorf("GROWTH_RATE must not be negative")
	}
	if c.TradeWorkers < 1 {
		return fmt.Errorf("TRADE_WORKERS must be at least 1")
	}
	return nil
}

// DSN returns the postgres connection string
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

package config

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	DataAPIURL         string  `env:"DATA_API_URL" envDefault:"http://127.0.0.1:8023"`
	DataAPIToken       string  `env:"DATA_API_TOKEN" envDefault:"-"`
	DefaultStockCode   string  `env:"DEFAULT_STOCK_CODE" envDefault:"sh.600000"`
	LogLevel           string  `env:"LOG_LEVEL" envDefault:"info"`
	RequestTimeout     int     `env:"REQUEST_TIMEOUT" envDefault:"30"` // seconds
	RequestsPerSec     int     `env:"REQUESTS_PER_SEC" envDefault:"5"`
	DCFYearsBack       int     `env:"DCF_YEARS_BACK" envDefault:"5"`
	DCFDiscountRate    float64 `env:"DCF_DISCOUNT_RATE" envDefault:"0.10"`
	DCFTerminalGrowth  float64 `env:"DCF_TERMINAL_GROWTH" envDefault:"0.025"`
	MetricsHistoryDays int     `env:"METRICS_HISTORY_DAYS" envDefault:"365"`
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	// Load values from environment variables
	cfg.DataAPIURL = getEnvWithDefault("DATA_API_URL", "http://127.0.0.1:8023")
	cfg.DataAPIToken = os.Getenv("DATA_API_TOKEN")
	cfg.DefaultStockCode = getEnvWithDefault("DEFAULT_STOCK_CODE", "sh.600000")
	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", 30)
	cfg.RequestsPerSec = getEnvIntWithDefault("REQUESTS_PER_SEC", 5)
	cfg.DCFYearsBack = getEnvIntWithDefault("DCF_YEARS_BACK", 5)
	cfg.DCFDiscountRate = getEnvFloatWithDefault("DCF_DISCOUNT_RATE", 0.10)
	cfg.DCFTerminalGrowth = getEnvFloatWithDefault("DCF_TERMINAL_GROWTH", 0.025)
	cfg.MetricsHistoryDays = getEnvIntWithDefault("METRICS_HISTORY_DAYS", 365)

	return &cfg, nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

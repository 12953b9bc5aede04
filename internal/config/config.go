// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir      string // Base directory for the cache database (always absolute)
	Port         int
	DevMode      bool
	LogLevel     string
	BaseCurrency string // Reporting currency for all aggregates, e.g. "EUR"

	TiingoAPIKey  string
	FinnhubAPIKey string
	GeminiAPIKey  string // Real-estate estimation provider
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FOLIOSCOPE_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:       absDataDir,
		Port:          getEnvAsInt("PORT", 8080),
		DevMode:       getEnvAsBool("DEV_MODE", false),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		BaseCurrency:  strings.ToUpper(getEnv("BASE_CURRENCY", "EUR")),
		TiingoAPIKey:  getEnv("TIINGO_API_KEY", ""),
		FinnhubAPIKey: getEnv("FINNHUB_API_KEY", ""),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	// Note: provider credentials are optional. A missing key disables that
	// provider and the resolver falls through to the next one in the chain.
	if len(c.BaseCurrency) != 3 {
		return fmt.Errorf("invalid base currency %q: expected a 3-letter code", c.BaseCurrency)
	}
	return nil
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

// Package config provides configuration management functionality.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/domain"
)

// Config holds application configuration.
type Config struct {
	DataDir        string // Base directory for all databases, always absolute
	PortfolioPath  string // Path to the portfolio definition JSON
	Port           int
	LogLevel       string
	DevMode        bool
	RiskFreeRate   float64
	InitialCapital float64 // Fallback when the portfolio JSON omits it
	StartDate      time.Time
	EndDate        time.Time
	RefreshCron    string // Cron expression for the daily price refresh
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("TRACKER_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:        absDataDir,
		PortfolioPath:  getEnv("TRACKER_PORTFOLIO", "./portfolio.json"),
		Port:           getEnvAsInt("TRACKER_PORT", 8080),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		RiskFreeRate:   getEnvAsFloat("TRACKER_RISK_FREE_RATE", 0.02),
		InitialCapital: getEnvAsFloat("TRACKER_INITIAL_CAPITAL", 100000),
		RefreshCron:    getEnv("TRACKER_REFRESH_CRON", "0 19 * * 1-5"),
	}

	cfg.StartDate, err = getEnvAsDate("TRACKER_START_DATE", time.Now().AddDate(-1, 0, 0))
	if err != nil {
		return nil, err
	}
	cfg.EndDate, err = getEnvAsDate("TRACKER_END_DATE", time.Now())
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded values for consistency.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.RiskFreeRate < 0 || c.RiskFreeRate > 1 {
		return fmt.Errorf("risk-free rate %.4f outside [0, 1]", c.RiskFreeRate)
	}
	if c.InitialCapital <= 0 {
		return fmt.Errorf("initial capital must be positive, got %.2f", c.InitialCapital)
	}
	if !c.EndDate.After(c.StartDate) {
		return fmt.Errorf("end date %s is not after start date %s",
			c.EndDate.Format(domain.DateFormat), c.StartDate.Format(domain.DateFormat))
	}
	return nil
}

// LoadPortfolio reads the portfolio definition JSON and validates it.
// A missing initial_capital falls back to the configured default.
func (c *Config) LoadPortfolio() (domain.PortfolioConfig, error) {
	data, err := os.ReadFile(c.PortfolioPath)
	if err != nil {
		return domain.PortfolioConfig{}, fmt.Errorf("failed to read portfolio file: %w", err)
	}

	var portfolio domain.PortfolioConfig
	if err := json.Unmarshal(data, &portfolio); err != nil {
		return domain.PortfolioConfig{}, fmt.Errorf("failed to parse portfolio file %s: %w", c.PortfolioPath, err)
	}
	if portfolio.InitialCapital == 0 {
		portfolio.InitialCapital = c.InitialCapital
	}

	if err := portfolio.Validate(); err != nil {
		return domain.PortfolioConfig{}, err
	}
	return portfolio, nil
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDate(key string, defaultValue time.Time) (time.Time, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	date, err := time.Parse(domain.DateFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date in %s: %w", key, err)
	}
	return date, nil
}

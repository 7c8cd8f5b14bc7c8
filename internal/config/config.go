package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OddsAPI  OddsAPIConfig
	Results  ResultsConfig
	Jobs     JobsConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// OddsAPIConfig holds The Odds API settings
type OddsAPIConfig struct {
	BaseURL string
	APIKey  string
}

// ResultsConfig holds result-matching settings
type ResultsConfig struct {
	SourceTimezone string // timezone the results CSV commence times are written in
}

// JobsConfig holds scheduler settings
type JobsConfig struct {
	SportsInterval time.Duration
	EventsInterval time.Duration
	OddsInterval   time.Duration
	Sport          string // sport key the scheduled events/odds jobs run against
	Regions        string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "oddsley"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		OddsAPI: OddsAPIConfig{
			BaseURL: getEnv("THE_ODDS_API_BASE_URL", "https://api.the-odds-api.com/v4"),
			APIKey:  getEnv("THE_ODDS_API_KEY", ""),
		},
		Results: ResultsConfig{
			SourceTimezone: getEnv("RESULTS_SOURCE_TIMEZONE", "Australia/Sydney"),
		},
		Jobs: JobsConfig{
			SportsInterval: getEnvMinutes("JOB_SPORTS_INTERVAL_MINUTES", 24*60),
			EventsInterval: getEnvMinutes("JOB_EVENTS_INTERVAL_MINUTES", 60),
			OddsInterval:   getEnvMinutes("JOB_ODDS_INTERVAL_MINUTES", 30),
			Sport:          getEnv("JOB_SPORT", ""),
			Regions:        getEnv("JOB_REGIONS", "au"),
		},
	}

	// Validate required fields
	if config.OddsAPI.APIKey == "" {
		return nil, fmt.Errorf("THE_ODDS_API_KEY is required")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvMinutes reads a minutes-valued environment variable as a duration
func getEnvMinutes(key string, defaultMinutes int) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return time.Duration(defaultMinutes) * time.Minute
	}
	minutes, err := strconv.Atoi(value)
	if err != nil {
		return time.Duration(defaultMinutes) * time.Minute
	}
	return time.Duration(minutes) * time.Minute
}

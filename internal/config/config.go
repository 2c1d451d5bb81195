// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port int    // HTTP port to listen on
	Env  string // development, staging, production

	// Database
	DatabasePath string // SQLite month store

	// Authentication
	APIKey string // guards the admin endpoints

	// Inbound rate limiting, per client address
	RateLimitRPS   float64 // 0 disables
	RateLimitBurst int

	// Metrics
	MetricsEnabled bool

	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text

	// Remote calendar
	AladhanBaseURL    string
	CalendarTimeout   time.Duration // per month fetch
	MonthsBack        int
	MonthsForward     int
	RequestsPerMinute int // 0 disables pacing
	Retries           int // retries of 429 and 5xx responses
	MaxResolvers      int

	// Defaults for requests that omit them
	DefaultMethod    int
	DefaultSchool    int
	DefaultLatitude  *float64
	DefaultLongitude *float64
	Timezone         string // IANA zone used for "today"
}

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Load reads configuration from environment variables, after loading a .env
// file if one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Port = getEnvInt("PORT", 8080)
	cfg.Env = getEnv("ENV", EnvDevelopment)

	cfg.DatabasePath = getEnv("DATABASE_PATH", "./data/hijri.db")
	cfg.APIKey = getEnv("API_KEY", "")

	if v := getEnvFloat("RATE_LIMIT_RPS"); v != nil {
		cfg.RateLimitRPS = *v
	}
	cfg.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 20)
	cfg.MetricsEnabled = getEnv("METRICS_ENABLED", "true") == "true"

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "text")

	cfg.AladhanBaseURL = getEnv("ALADHAN_BASE_URL", "https://api.aladhan.com/v1")
	cfg.CalendarTimeout = getEnvDuration("CALENDAR_TIMEOUT", 15*time.Second)
	cfg.MonthsBack = getEnvInt("CALENDAR_MONTHS_BACK", 12)
	cfg.MonthsForward = getEnvInt("CALENDAR_MONTHS_FORWARD", 12)
	cfg.RequestsPerMinute = getEnvInt("CALENDAR_REQUESTS_PER_MINUTE", 0)
	cfg.Retries = getEnvInt("CALENDAR_RETRIES", 2)
	cfg.MaxResolvers = getEnvInt("CALENDAR_MAX_RESOLVERS", 256)

	cfg.DefaultMethod = getEnvInt("DEFAULT_METHOD", 3)
	cfg.DefaultSchool = getEnvInt("DEFAULT_SCHOOL", 0)
	cfg.DefaultLatitude = getEnvFloat("DEFAULT_LATITUDE")
	cfg.DefaultLongitude = getEnvFloat("DEFAULT_LONGITUDE")
	cfg.Timezone = getEnv("TIMEZONE", "UTC")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and valid.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}

	switch c.Env {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("ENV must be one of: development, staging, production; got %q", c.Env))
	}

	if c.DatabasePath == "" {
		errs = append(errs, errors.New("DATABASE_PATH is required"))
	}

	if c.Env == EnvProduction && c.APIKey == "" {
		errs = append(errs, errors.New("API_KEY is required in production"))
	}

	if c.RateLimitRPS < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS must not be negative, got %g", c.RateLimitRPS))
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BURST must be at least 1, got %d", c.RateLimitBurst))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error; got %q", c.LogLevel))
	}

	switch c.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be one of: json, text; got %q", c.LogFormat))
	}

	if c.AladhanBaseURL == "" {
		errs = append(errs, errors.New("ALADHAN_BASE_URL is required"))
	}
	if c.CalendarTimeout <= 0 {
		errs = append(errs, fmt.Errorf("CALENDAR_TIMEOUT must be positive, got %s", c.CalendarTimeout))
	}
	if c.MonthsBack < 0 || c.MonthsForward < 0 {
		errs = append(errs, fmt.Errorf("CALENDAR_MONTHS_BACK and CALENDAR_MONTHS_FORWARD must not be negative, got %d and %d",
			c.MonthsBack, c.MonthsForward))
	}
	if c.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("CALENDAR_REQUESTS_PER_MINUTE must not be negative, got %d", c.RequestsPerMinute))
	}
	if c.Retries < 0 {
		errs = append(errs, fmt.Errorf("CALENDAR_RETRIES must not be negative, got %d", c.Retries))
	}

	if c.DefaultSchool != 0 && c.DefaultSchool != 1 {
		errs = append(errs, fmt.Errorf("DEFAULT_SCHOOL must be 0 or 1, got %d", c.DefaultSchool))
	}
	if c.DefaultMethod < 0 {
		errs = append(errs, fmt.Errorf("DEFAULT_METHOD must not be negative, got %d", c.DefaultMethod))
	}
	if (c.DefaultLatitude == nil) != (c.DefaultLongitude == nil) {
		errs = append(errs, errors.New("DEFAULT_LATITUDE and DEFAULT_LONGITUDE must be set together"))
	}
	if c.DefaultLatitude != nil && (*c.DefaultLatitude < -90 || *c.DefaultLatitude > 90) {
		errs = append(errs, fmt.Errorf("DEFAULT_LATITUDE must be between -90 and 90, got %g", *c.DefaultLatitude))
	}
	if c.DefaultLongitude != nil && (*c.DefaultLongitude < -180 || *c.DefaultLongitude > 180) {
		errs = append(errs, fmt.Errorf("DEFAULT_LONGITUDE must be between -180 and 180, got %g", *c.DefaultLongitude))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err))
	}

	return errors.Join(errs...)
}

// Location returns the configured time zone, or UTC if it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvFloat returns nil when key is unset or not a number.
func getEnvFloat(key string) *float64 {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &f
}

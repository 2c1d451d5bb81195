package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	clearEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with defaults failed: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Env != EnvDevelopment {
		t.Errorf("Env = %q, want %q", cfg.Env, EnvDevelopment)
	}
	if cfg.DatabasePath != "./data/hijri.db" {
		t.Errorf("DatabasePath = %q, want %q", cfg.DatabasePath, "./data/hijri.db")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, want %q", cfg.LogFormat, "text")
	}
	if cfg.CalendarTimeout != 15*time.Second {
		t.Errorf("CalendarTimeout = %s, want 15s", cfg.CalendarTimeout)
	}
	if cfg.MonthsBack != 12 || cfg.MonthsForward != 12 {
		t.Errorf("MonthsBack/MonthsForward = %d/%d, want 12/12", cfg.MonthsBack, cfg.MonthsForward)
	}
	if cfg.DefaultMethod != 3 || cfg.DefaultSchool != 0 {
		t.Errorf("DefaultMethod/DefaultSchool = %d/%d, want 3/0", cfg.DefaultMethod, cfg.DefaultSchool)
	}
	if cfg.DefaultLatitude != nil || cfg.DefaultLongitude != nil {
		t.Error("default location set without DEFAULT_LATITUDE/DEFAULT_LONGITUDE")
	}
	if cfg.Location() != time.UTC {
		t.Errorf("Location() = %v, want UTC", cfg.Location())
	}
	if cfg.RateLimitRPS != 0 || cfg.RateLimitBurst != 20 {
		t.Errorf("RateLimitRPS/RateLimitBurst = %g/%d, want 0/20", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if !cfg.MetricsEnabled {
		t.Error("MetricsEnabled = false, want true")
	}
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv()

	os.Setenv("PORT", "3000")
	os.Setenv("ENV", "production")
	os.Setenv("DATABASE_PATH", "/data/test.db")
	os.Setenv("API_KEY", "secret-key-123")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("LOG_FORMAT", "json")
	os.Setenv("CALENDAR_TIMEOUT", "5s")
	os.Setenv("CALENDAR_MONTHS_BACK", "2")
	os.Setenv("CALENDAR_MONTHS_FORWARD", "6")
	os.Setenv("DEFAULT_METHOD", "4")
	os.Setenv("DEFAULT_LATITUDE", "21.4225")
	os.Setenv("DEFAULT_LONGITUDE", "39.8262")
	os.Setenv("TIMEZONE", "Asia/Riyadh")
	defer clearEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if cfg.Env != EnvProduction {
		t.Errorf("Env = %q, want %q", cfg.Env, EnvProduction)
	}
	if cfg.DatabasePath != "/data/test.db" {
		t.Errorf("DatabasePath = %q, want %q", cfg.DatabasePath, "/data/test.db")
	}
	if cfg.APIKey != "secret-key-123" {
		t.Errorf("APIKey = %q, want %q", cfg.APIKey, "secret-key-123")
	}
	if cfg.CalendarTimeout != 5*time.Second {
		t.Errorf("CalendarTimeout = %s, want 5s", cfg.CalendarTimeout)
	}
	if cfg.MonthsBack != 2 || cfg.MonthsForward != 6 {
		t.Errorf("MonthsBack/MonthsForward = %d/%d, want 2/6", cfg.MonthsBack, cfg.MonthsForward)
	}
	if cfg.DefaultMethod != 4 {
		t.Errorf("DefaultMethod = %d, want 4", cfg.DefaultMethod)
	}
	if cfg.DefaultLatitude == nil || *cfg.DefaultLatitude != 21.4225 {
		t.Errorf("DefaultLatitude = %v, want 21.4225", cfg.DefaultLatitude)
	}
	if cfg.Location().String() != "Asia/Riyadh" {
		t.Errorf("Location() = %v, want Asia/Riyadh", cfg.Location())
	}
}

func validConfig() Config {
	return Config{
		Port:            8080,
		Env:             EnvDevelopment,
		DatabasePath:    "./data/test.db",
		LogLevel:        "info",
		LogFormat:       "text",
		AladhanBaseURL:  "https://api.aladhan.com/v1",
		CalendarTimeout: 15 * time.Second,
		MonthsBack:      12,
		MonthsForward:   12,
		DefaultMethod:   3,
		Timezone:        "UTC",
	}
}

func TestConfig_Validate(t *testing.T) {
	lat, lng := 21.4225, 39.8262
	bad := 123.0

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid development config", func(c *Config) {}, false},
		{"valid production config", func(c *Config) {
			c.Env = EnvProduction
			c.APIKey = "required-in-prod"
		}, false},
		{"production requires API key", func(c *Config) { c.Env = EnvProduction }, true},
		{"invalid port - too low", func(c *Config) { c.Port = 0 }, true},
		{"invalid port - too high", func(c *Config) { c.Port = 70000 }, true},
		{"invalid environment", func(c *Config) { c.Env = "invalid" }, true},
		{"invalid log level", func(c *Config) { c.LogLevel = "verbose" }, true},
		{"invalid log format", func(c *Config) { c.LogFormat = "xml" }, true},
		{"empty database path", func(c *Config) { c.DatabasePath = "" }, true},
		{"empty base url", func(c *Config) { c.AladhanBaseURL = "" }, true},
		{"zero timeout", func(c *Config) { c.CalendarTimeout = 0 }, true},
		{"negative window", func(c *Config) { c.MonthsBack = -1 }, true},
		{"zero window", func(c *Config) { c.MonthsBack, c.MonthsForward = 0, 0 }, false},
		{"negative rate", func(c *Config) { c.RequestsPerMinute = -1 }, true},
		{"invalid school", func(c *Config) { c.DefaultSchool = 2 }, true},
		{"negative inbound rate", func(c *Config) { c.RateLimitRPS = -1 }, true},
		{"inbound rate without burst", func(c *Config) { c.RateLimitRPS = 5 }, true},
		{"inbound rate with burst", func(c *Config) {
			c.RateLimitRPS, c.RateLimitBurst = 5, 10
		}, false},
		{"default location", func(c *Config) {
			c.DefaultLatitude, c.DefaultLongitude = &lat, &lng
		}, false},
		{"latitude without longitude", func(c *Config) { c.DefaultLatitude = &lat }, true},
		{"latitude out of range", func(c *Config) {
			c.DefaultLatitude, c.DefaultLongitude = &bad, &lng
		}, true},
		{"unknown timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{Env: EnvDevelopment}
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true")
	}

	cfg.Env = EnvProduction
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true, want false")
	}
}

func TestConfig_IsProduction(t *testing.T) {
	cfg := &Config{Env: EnvProduction}
	if !cfg.IsProduction() {
		t.Error("IsProduction() = false, want true")
	}

	cfg.Env = EnvDevelopment
	if cfg.IsProduction() {
		t.Error("IsProduction() = true, want false")
	}
}

// clearEnv removes all config-related environment variables
func clearEnv() {
	vars := []string{
		"PORT", "ENV", "DATABASE_PATH", "API_KEY",
		"LOG_LEVEL", "LOG_FORMAT",
		"ALADHAN_BASE_URL", "CALENDAR_TIMEOUT", "CALENDAR_MONTHS_BACK", "CALENDAR_MONTHS_FORWARD",
		"CALENDAR_REQUESTS_PER_MINUTE", "CALENDAR_RETRIES", "CALENDAR_MAX_RESOLVERS",
		"DEFAULT_METHOD", "DEFAULT_SCHOOL", "DEFAULT_LATITUDE", "DEFAULT_LONGITUDE", "TIMEZONE",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "METRICS_ENABLED",
	}
	for _, v := range vars {
		os.Unsetenv(v)
	}
}

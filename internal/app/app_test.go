package app

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zapponejosh/hijri-calendar-api/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Port:            8080,
		Env:             config.EnvDevelopment,
		DatabasePath:    ":memory:",
		LogLevel:        "error",
		LogFormat:       "text",
		AladhanBaseURL:  baseURL,
		CalendarTimeout: 2 * time.Second,
		MonthsBack:      1,
		MonthsForward:   1,
		DefaultMethod:   4,
		Timezone:        "UTC",
	}
}

func TestNew(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:0")
	cfg.MetricsEnabled = true

	a, err := New(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.Metrics == nil {
		t.Error("Metrics = nil with metrics enabled")
	}
	if err := a.DB.Health(context.Background()); err != nil {
		t.Errorf("Health: %v", err)
	}
	if n, err := a.DB.CountMonths(context.Background()); err != nil || n != 0 {
		t.Errorf("CountMonths = %d, %v; want 0, nil", n, err)
	}
}

func TestDefaultSettings(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:0")
	a, err := New(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.Metrics != nil {
		t.Error("Metrics set with metrics disabled")
	}
	if s := a.DefaultSettings(); s.Location != nil || s.Method != 4 {
		t.Errorf("DefaultSettings() = %+v, want no location and method 4", s)
	}

	lat, lng := 21.4225, 39.8262
	cfg.DefaultLatitude, cfg.DefaultLongitude = &lat, &lng
	s := a.DefaultSettings()
	if s.Location == nil || s.Location.Latitude != lat || s.Location.Longitude != lng {
		t.Errorf("DefaultSettings().Location = %+v, want %g,%g", s.Location, lat, lng)
	}
}

func TestPrewarm(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	a, err := New(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	a.Prewarm(context.Background())
	if got := hits.Load(); got != 0 {
		t.Fatalf("remote hit %d times without a default location", got)
	}
	if a.Registry.Len() != 0 {
		t.Errorf("Registry.Len() = %d, want 0", a.Registry.Len())
	}

	lat, lng := 21.4225, 39.8262
	cfg.DefaultLatitude, cfg.DefaultLongitude = &lat, &lng
	a.Prewarm(context.Background())
	if got := hits.Load(); got != 3 {
		t.Errorf("remote hits = %d, want 3 for a three month window", got)
	}
	if a.Registry.Len() != 1 {
		t.Errorf("Registry.Len() = %d, want 1", a.Registry.Len())
	}
}

// Package app assembles the calendar stack from configuration: the month
// store, the Al Adhan client, the shared fetcher and the resolver registry.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zapponejosh/hijri-calendar-api/internal/aladhan"
	"github.com/zapponejosh/hijri-calendar-api/internal/calendar"
	"github.com/zapponejosh/hijri-calendar-api/internal/config"
	"github.com/zapponejosh/hijri-calendar-api/internal/database"
	"github.com/zapponejosh/hijri-calendar-api/internal/hijri"
	"github.com/zapponejosh/hijri-calendar-api/internal/metrics"
)

// retryBackoff is the first wait before retrying a throttled or failed
// Al Adhan request; later waits double.
const retryBackoff = time.Second

// App holds the wired components. Close releases the database.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	DB       *database.DB
	Client   *aladhan.Client
	Source   *calendar.AladhanSource
	Fetcher  *calendar.Fetcher
	Registry *calendar.Registry
	Metrics  *metrics.Metrics // nil when disabled
}

// New opens and migrates the database and builds the calendar stack on it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := database.Open(database.DefaultConfig(cfg.DatabasePath), logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	var m *metrics.Metrics
	fcfg := calendar.FetcherConfig{Timeout: cfg.CalendarTimeout, Store: db}
	if cfg.MetricsEnabled {
		m = metrics.New()
		fcfg.Observer = m
	}

	opts := aladhan.Options{
		BaseURL:           cfg.AladhanBaseURL,
		Timeout:           cfg.CalendarTimeout,
		RequestsPerMinute: cfg.RequestsPerMinute,
	}
	if cfg.Retries > 0 {
		opts.BackoffStart = retryBackoff
		opts.BackoffSteps = cfg.Retries
	}
	client := aladhan.NewClient(opts, logger.With(slog.String("component", "aladhan")))
	source := calendar.NewAladhanSource(client, logger)
	fetcher := calendar.NewFetcher(source, nil, fcfg, logger.With(slog.String("component", "fetcher")))

	registry := calendar.NewRegistry(fetcher, calendar.ResolverConfig{
		MonthsBack:    cfg.MonthsBack,
		MonthsForward: cfg.MonthsForward,
		Location:      cfg.Location(),
		Primitive:     hijri.Tabular{},
		Schedule:      source,
	}, cfg.MaxResolvers, logger.With(slog.String("component", "resolver")))

	return &App{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Client:   client,
		Source:   source,
		Fetcher:  fetcher,
		Registry: registry,
		Metrics:  m,
	}, nil
}

// Close closes the database.
func (a *App) Close() error {
	return a.DB.Close()
}

// DefaultSettings returns the settings of the configured default location,
// method and school. Location is nil when no default location is set.
func (a *App) DefaultSettings() calendar.Settings {
	s := calendar.Settings{Method: a.Config.DefaultMethod, School: a.Config.DefaultSchool}
	if a.Config.DefaultLatitude != nil && a.Config.DefaultLongitude != nil {
		s.Location = &calendar.Location{
			Latitude:  *a.Config.DefaultLatitude,
			Longitude: *a.Config.DefaultLongitude,
		}
	}
	return s
}

// Prewarm fetches the window for the default settings. It does nothing when
// no default location is configured.
func (a *App) Prewarm(ctx context.Context) {
	s := a.DefaultSettings()
	if s.Location == nil {
		return
	}
	start := time.Now()
	r := a.Registry.Resolver(ctx, s)
	a.Logger.Info("calendar window prewarmed",
		slog.String("settings", s.Key()),
		slog.Int("days", r.IndexLen()),
		slog.String("source", string(r.Source())),
		slog.Duration("duration", time.Since(start)),
	)
}

package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zapponejosh/hijri-calendar-api/internal/config"
	"github.com/zapponejosh/hijri-calendar-api/internal/metrics"
)

// SetupRoutes configures all HTTP routes and returns the router.
//
//	GET /health
//	GET /api/v1/hijri/today
//	GET /api/v1/hijri/gregorian?day=&month=&year=
//	GET /api/v1/hijri/days-until?day=&month=&year=
//	GET /api/v1/hijri/observances
//	GET /api/v1/hijri/ramadan
//	GET /api/v1/hijri/convert/{date}
//	GET /api/v1/admin/cache        (X-API-Key)
//	GET /metrics                   (when m is non-nil)
//
// The /hijri routes accept lat, lng, method and school query parameters.
func SetupRoutes(handlers *Handlers, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		RecoveryMiddleware(logger),
		middleware.RealIP,
		RequestIDMiddleware(),
		LoggingMiddleware(logger),
		CORSMiddleware(),
	)
	if m != nil {
		r.Use(m.Middleware)
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, "Route not found")
	})

	r.Get("/health", handlers.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimitRPS > 0 {
			r.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))
		}
		r.Route("/hijri", func(r chi.Router) {
			r.Get("/today", handlers.GetToday)
			r.Get("/gregorian", handlers.GetGregorian)
			r.Get("/days-until", handlers.GetDaysUntil)
			r.Get("/observances", handlers.GetObservances)
			r.Get("/ramadan", handlers.GetRamadan)
			r.Get("/convert/{date}", handlers.ConvertGregorian)
		})

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg, logger))
			r.Get("/admin/cache", handlers.GetCacheStats)
		})
	})

	return r
}

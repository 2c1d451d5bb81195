package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zapponejosh/hijri-calendar-api/internal/calendar"
	"github.com/zapponejosh/hijri-calendar-api/internal/config"
	"github.com/zapponejosh/hijri-calendar-api/internal/hijri"
)

const dateLayout = "2006-01-02"

// Store is the part of the month store the handlers use.
type Store interface {
	Health(ctx context.Context) error
	CountMonths(ctx context.Context) (int, error)
}

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	registry *calendar.Registry
	store    Store
	cfg      *config.Config
	logger   *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(registry *calendar.Registry, store Store, cfg *config.Config, logger *slog.Logger) *Handlers {
	return &Handlers{
		registry: registry,
		store:    store,
		cfg:      cfg,
		logger:   logger,
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Health(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "health check failed", slog.Any("error", err))
		WriteError(w, http.StatusServiceUnavailable, "Database unhealthy", "HEALTH_CHECK_FAILED")
		return
	}
	WriteSuccess(w, map[string]string{"status": "healthy"})
}

// TodayResponse is the body of GET /hijri/today.
type TodayResponse struct {
	Hijri     hijri.Date      `json:"hijri"`
	Key       string          `json:"key"`
	Display   string          `json:"display"`
	Gregorian string          `json:"gregorian"`
	Source    calendar.Source `json:"source"`
}

// GetToday handles GET /api/v1/hijri/today
func (h *Handlers) GetToday(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resolver(w, r)
	if !ok {
		return
	}
	d, src, ok := res.CurrentHijriDate(r.Context())
	if !ok {
		WriteUnavailable(w, "Hijri date unavailable")
		return
	}
	WriteSuccess(w, TodayResponse{
		Hijri:     d,
		Key:       d.Key(),
		Display:   d.String(),
		Gregorian: res.Today().Format(dateLayout),
		Source:    src,
	})
}

// ConversionResponse is the body of GET /hijri/gregorian.
type ConversionResponse struct {
	Hijri     hijri.Date      `json:"hijri"`
	Display   string          `json:"display"`
	Gregorian string          `json:"gregorian"`
	DaysUntil int             `json:"days_until"`
	Source    calendar.Source `json:"source"`
}

// GetGregorian handles GET /api/v1/hijri/gregorian?day=&month=&year=
func (h *Handlers) GetGregorian(w http.ResponseWriter, r *http.Request) {
	target, err := parseHijriQuery(r)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}
	res, ok := h.resolver(w, r)
	if !ok {
		return
	}
	g, src, ok := res.GregorianDateForHijri(r.Context(), target)
	if !ok {
		WriteUnavailable(w, fmt.Sprintf("No Gregorian date available for %s", target))
		return
	}
	WriteSuccess(w, ConversionResponse{
		Hijri:     target,
		Display:   target.String(),
		Gregorian: g.Format(dateLayout),
		DaysUntil: hijri.CalendarDaysBetween(res.Today(), g),
		Source:    src,
	})
}

// DaysUntilResponse is the body of GET /hijri/days-until.
type DaysUntilResponse struct {
	Hijri     hijri.Date      `json:"hijri"`
	DaysUntil int             `json:"days_until"`
	Source    calendar.Source `json:"source"`
}

// GetDaysUntil handles GET /api/v1/hijri/days-until?day=&month=&year=
func (h *Handlers) GetDaysUntil(w http.ResponseWriter, r *http.Request) {
	target, err := parseHijriQuery(r)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}
	res, ok := h.resolver(w, r)
	if !ok {
		return
	}
	days, src, ok := res.DaysUntilHijri(r.Context(), target)
	if !ok {
		WriteUnavailable(w, fmt.Sprintf("Cannot count days until %s", target))
		return
	}
	WriteSuccess(w, DaysUntilResponse{Hijri: target, DaysUntil: days, Source: src})
}

// ObservanceResponse is one entry of GET /hijri/observances.
type ObservanceResponse struct {
	Name      string     `json:"name"`
	Hijri     hijri.Date `json:"hijri"`
	Display   string     `json:"display"`
	Gregorian *string    `json:"gregorian"`
	DaysUntil *int       `json:"days_until"`
}

// GetObservances handles GET /api/v1/hijri/observances
func (h *Handlers) GetObservances(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resolver(w, r)
	if !ok {
		return
	}
	upcoming, ok := res.UpcomingObservances(r.Context())
	if !ok {
		WriteUnavailable(w, "Hijri date unavailable")
		return
	}
	out := make([]ObservanceResponse, len(upcoming))
	for i, o := range upcoming {
		out[i] = ObservanceResponse{
			Name:      o.Name,
			Hijri:     o.Hijri,
			Display:   o.Hijri.String(),
			DaysUntil: o.DaysUntil,
		}
		if o.Gregorian != nil {
			s := o.Gregorian.Format(dateLayout)
			out[i].Gregorian = &s
		}
	}
	WriteSuccess(w, out)
}

// RamadanResponse is the body of GET /hijri/ramadan.
type RamadanResponse struct {
	IsRamadan   bool   `json:"is_ramadan"`
	IsEidPeriod bool   `json:"is_eid_period"`
	Year        int    `json:"year"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	CurrentDay  int    `json:"current_day"`
	DaysLeft    int    `json:"days_left"`
	TotalDays   int    `json:"total_days"`
}

// GetRamadan handles GET /api/v1/hijri/ramadan
func (h *Handlers) GetRamadan(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resolver(w, r)
	if !ok {
		return
	}
	st, ok := res.RamadanStatus(r.Context())
	if !ok {
		WriteUnavailable(w, "Hijri date unavailable")
		return
	}
	WriteSuccess(w, RamadanResponse{
		IsRamadan:   st.IsRamadan,
		IsEidPeriod: st.IsEidPeriod,
		Year:        st.Year,
		StartDate:   st.StartDate.Format(dateLayout),
		EndDate:     st.EndDate.Format(dateLayout),
		CurrentDay:  st.CurrentDay,
		DaysLeft:    st.DaysLeft,
		TotalDays:   st.TotalDays,
	})
}

// GregorianConversionResponse is the body of GET /hijri/convert/{date}.
type GregorianConversionResponse struct {
	Gregorian string          `json:"gregorian"`
	Hijri     hijri.Date      `json:"hijri"`
	Key       string          `json:"key"`
	Display   string          `json:"display"`
	Source    calendar.Source `json:"source"`
}

// ConvertGregorian handles GET /api/v1/hijri/convert/{YYYY-MM-DD}
func (h *Handlers) ConvertGregorian(w http.ResponseWriter, r *http.Request) {
	dateStr := chi.URLParam(r, "date")
	day, err := calendar.ParseGregorianKey(dateStr, h.cfg.Location())
	if err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid date format: %s. Use YYYY-MM-DD", dateStr))
		return
	}
	res, ok := h.resolver(w, r)
	if !ok {
		return
	}
	d, src, ok := res.HijriDateForGregorian(day)
	if !ok {
		WriteUnavailable(w, fmt.Sprintf("No Hijri date available for %s", dateStr))
		return
	}
	WriteSuccess(w, GregorianConversionResponse{
		Gregorian: day.Format(dateLayout),
		Hijri:     d,
		Key:       d.Key(),
		Display:   d.String(),
		Source:    src,
	})
}

// CacheStats is the body of GET /admin/cache.
type CacheStats struct {
	CachedMonths int `json:"cached_months"`
	StoredMonths int `json:"stored_months"`
	Resolvers    int `json:"resolvers"`
}

// GetCacheStats handles GET /api/v1/admin/cache
func (h *Handlers) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	stored, err := h.store.CountMonths(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to count stored months", slog.Any("error", err))
		WriteInternalError(w, "Failed to read month store")
		return
	}
	WriteSuccess(w, CacheStats{
		CachedMonths: h.registry.Fetcher().Cache().Len(),
		StoredMonths: stored,
		Resolvers:    h.registry.Len(),
	})
}

// resolver returns the resolver for the request's settings, writing a 400
// and returning false if they are malformed.
func (h *Handlers) resolver(w http.ResponseWriter, r *http.Request) (*calendar.Resolver, bool) {
	s, err := h.parseSettings(r)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return nil, false
	}
	return h.registry.Resolver(r.Context(), s), true
}

// parseSettings reads lat, lng, method and school, falling back to the
// configured defaults.
func (h *Handlers) parseSettings(r *http.Request) (calendar.Settings, error) {
	q := r.URL.Query()
	s := calendar.Settings{Method: h.cfg.DefaultMethod, School: h.cfg.DefaultSchool}

	latStr, lngStr := q.Get("lat"), q.Get("lng")
	switch {
	case latStr == "" && lngStr == "":
		if h.cfg.DefaultLatitude != nil && h.cfg.DefaultLongitude != nil {
			s.Location = &calendar.Location{Latitude: *h.cfg.DefaultLatitude, Longitude: *h.cfg.DefaultLongitude}
		}
	case latStr == "" || lngStr == "":
		return s, fmt.Errorf("lat and lng must be given together")
	default:
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil || lat < -90 || lat > 90 {
			return s, fmt.Errorf("invalid lat: %q", latStr)
		}
		lng, err := strconv.ParseFloat(lngStr, 64)
		if err != nil || lng < -180 || lng > 180 {
			return s, fmt.Errorf("invalid lng: %q", lngStr)
		}
		s.Location = &calendar.Location{Latitude: lat, Longitude: lng}
	}

	if v := q.Get("method"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 0 || m > 99 {
			return s, fmt.Errorf("invalid method: %q", v)
		}
		s.Method = m
	}
	if v := q.Get("school"); v != "" {
		sc, err := strconv.Atoi(v)
		if err != nil || (sc != 0 && sc != 1) {
			return s, fmt.Errorf("invalid school: %q (want 0 or 1)", v)
		}
		s.School = sc
	}
	return s, nil
}

// parseHijriQuery reads day, month and year. Day 30 is accepted in every
// month since sighting-based calendars can have a 30th where the tabular
// calendar does not; the resolver reports such a date as unavailable when no
// source knows it.
func parseHijriQuery(r *http.Request) (hijri.Date, error) {
	q := r.URL.Query()
	var vals [3]int
	for i, name := range []string{"day", "month", "year"} {
		v := q.Get(name)
		if v == "" {
			return hijri.Date{}, fmt.Errorf("%s is required", name)
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return hijri.Date{}, fmt.Errorf("invalid %s: %q", name, v)
		}
		vals[i] = n
	}
	d := hijri.Date{Day: vals[0], Month: vals[1], Year: vals[2]}
	if d.Month < 1 || d.Month > 12 {
		return hijri.Date{}, &hijri.InvalidMonthError{Month: d.Month}
	}
	if d.Year < 1 {
		return hijri.Date{}, fmt.Errorf("invalid hijri year: %d", d.Year)
	}
	if d.Day < 1 || d.Day > 30 {
		return hijri.Date{}, fmt.Errorf("invalid hijri day: %d (1-30)", d.Day)
	}
	return d, nil
}

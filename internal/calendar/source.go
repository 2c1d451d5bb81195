package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zapponejosh/hijri-calendar-api/internal/aladhan"
	"github.com/zapponejosh/hijri-calendar-api/internal/hijri"
)

// Location is a point on the earth in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Settings identifies the calendar a Resolver serves: where, and by which
// calculation method and Asr school. A nil Location means none is configured.
type Settings struct {
	Location *Location
	Method   int
	School   int
}

// Key returns a string that is equal for equal settings, with coordinates
// rounded to 4 decimal places.
func (s Settings) Key() string {
	if s.Location == nil {
		return fmt.Sprintf("none:%d:%d", s.Method, s.School)
	}
	return fmt.Sprintf("%.4f:%.4f:%d:%d", s.Location.Latitude, s.Location.Longitude, s.Method, s.School)
}

func (s Settings) query() aladhan.Query {
	q := aladhan.Query{Method: s.Method, School: s.School}
	if s.Location != nil {
		q.Latitude = s.Location.Latitude
		q.Longitude = s.Location.Longitude
	}
	return q
}

// MonthKey identifies one cached month request.
type MonthKey struct {
	Latitude  string
	Longitude string
	Method    int
	School    int
	Year      int
	Month     int
}

// NewMonthKey returns the key for a month request, rounding the coordinates
// to 4 decimal places.
func NewMonthKey(loc Location, method, school, year, month int) MonthKey {
	return MonthKey{
		Latitude:  fmt.Sprintf("%.4f", loc.Latitude),
		Longitude: fmt.Sprintf("%.4f", loc.Longitude),
		Method:    method,
		School:    school,
		Year:      year,
		Month:     month,
	}
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%s:%s:%d:%d:%d-%d", k.Latitude, k.Longitude, k.Method, k.School, k.Year, k.Month)
}

// MonthRequest asks for one Gregorian month of the remote calendar.
type MonthRequest struct {
	Location Location
	Method   int
	School   int
	Year     int
	Month    int
}

// Key returns the cache key of the request.
func (r MonthRequest) Key() MonthKey {
	return NewMonthKey(r.Location, r.Method, r.School, r.Year, r.Month)
}

// MonthSource fetches the authoritative calendar for one month.
type MonthSource interface {
	FetchMonth(ctx context.Context, req MonthRequest) ([]Entry, error)
}

// ScheduleSource returns the Hijri date reported with a day's prayer schedule.
type ScheduleSource interface {
	ScheduleHijriDate(ctx context.Context, s Settings, day time.Time) (hijri.Date, error)
}

// Primitive converts a Gregorian day to an approximate Hijri date without
// any remote data.
type Primitive interface {
	FromGregorian(t time.Time) hijri.Date
}

// AladhanSource adapts an aladhan.Client to MonthSource and ScheduleSource.
type AladhanSource struct {
	client *aladhan.Client
	logger *slog.Logger
}

// NewAladhanSource returns a source backed by client.
func NewAladhanSource(client *aladhan.Client, logger *slog.Logger) *AladhanSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &AladhanSource{client: client, logger: logger}
}

// FetchMonth implements MonthSource. Days that fail to parse are skipped.
func (s *AladhanSource) FetchMonth(ctx context.Context, req MonthRequest) ([]Entry, error) {
	q := aladhan.Query{
		Latitude:  req.Location.Latitude,
		Longitude: req.Location.Longitude,
		Method:    req.Method,
		School:    req.School,
	}
	days, err := s.client.Calendar(ctx, q, req.Year, req.Month)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(days))
	for _, day := range days {
		e, err := entryFromData(day)
		if err != nil {
			s.logger.Debug("skipping calendar day",
				slog.String("month", req.Key().String()),
				slog.Any("error", err),
			)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ScheduleHijriDate implements ScheduleSource.
func (s *AladhanSource) ScheduleHijriDate(ctx context.Context, settings Settings, day time.Time) (hijri.Date, error) {
	if settings.Location == nil {
		return hijri.Date{}, fmt.Errorf("prayer schedule: no location configured")
	}
	data, err := s.client.Timings(ctx, settings.query(), day)
	if err != nil {
		return hijri.Date{}, err
	}
	h := data.Date.Hijri
	return parseRemoteHijri(h.Day, h.Month.Number, h.Year)
}

func entryFromData(d aladhan.Data) (Entry, error) {
	g, err := parseRemoteGregorian(d.Date.Gregorian.Date)
	if err != nil {
		return Entry{}, err
	}
	h := d.Date.Hijri
	hd, err := parseRemoteHijri(h.Day, h.Month.Number, h.Year)
	if err != nil {
		return Entry{}, err
	}
	return NewEntry(g, hd), nil
}

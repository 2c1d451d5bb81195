package calendar

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zapponejosh/hijri-calendar-api/internal/hijri"
)

var errOutage = errors.New("network outage")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// fakeSource serves the tabular calendar shifted by shift days. Requests for
// a latitude in gateLat block until gate is closed, and requests for which
// delay returns a positive duration answer after it.
type fakeSource struct {
	shift    func(MonthRequest) int
	fail     func(MonthRequest) bool
	delay    func(MonthRequest) time.Duration
	gateLat  float64
	gate     chan struct{}
	started  chan struct{}
	startOne sync.Once
	calls    atomic.Int32
}

func (f *fakeSource) FetchMonth(ctx context.Context, req MonthRequest) ([]Entry, error) {
	f.calls.Add(1)
	if f.gate != nil && req.Location.Latitude == f.gateLat {
		if f.started != nil {
			f.startOne.Do(func() { close(f.started) })
		}
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.delay != nil {
		if d := f.delay(req); d > 0 {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if f.fail != nil && f.fail(req) {
		return nil, errOutage
	}
	shift := 0
	if f.shift != nil {
		shift = f.shift(req)
	}
	return monthEntries(req.Year, time.Month(req.Month), shift), nil
}

// monthEntries returns one entry per day of a Gregorian month, mapped through
// the tabular calendar and shifted by shift days.
func monthEntries(year int, month time.Month, shift int) []Entry {
	var out []Entry
	for g := time.Date(year, month, 1, 12, 0, 0, 0, time.UTC); g.Month() == month; g = g.AddDate(0, 0, 1) {
		h := hijri.AddDays(hijri.Tabular{}.FromGregorian(g), shift)
		out = append(out, NewEntry(g, h))
	}
	return out
}

type fakeSchedule struct {
	date  hijri.Date
	err   error
	calls atomic.Int32
}

func (f *fakeSchedule) ScheduleHijriDate(ctx context.Context, s Settings, day time.Time) (hijri.Date, error) {
	f.calls.Add(1)
	return f.date, f.err
}

// memStore is an in-memory Store.
type memStore struct {
	mu     sync.Mutex
	months map[MonthKey][]Entry
	saves  int
}

func newMemStore() *memStore {
	return &memStore{months: make(map[MonthKey][]Entry)}
}

func (s *memStore) LoadMonth(ctx context.Context, key MonthKey) ([]Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.months[key]
	return e, ok, nil
}

func (s *memStore) SaveMonth(ctx context.Context, key MonthKey, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.months[key] = entries
	s.saves++
	return nil
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *clock { return &clock{now: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var mecca = &Location{Latitude: 21.4225, Longitude: 39.8262}

func settingsAt(loc *Location) Settings {
	return Settings{Location: loc, Method: 4, School: 0}
}

// Package calendar reconciles the remote Hijri calendar with local
// approximations and answers "what is today's Hijri date" and "when is Hijri
// date X" for a location and calculation configuration.
package calendar

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/zapponejosh/hijri-calendar-api/internal/hijri"
)

// Source reports which path produced an answer.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
)

// Strategy names one way of resolving a date.
type Strategy string

const (
	// RemoteIndexLookup answers from the fetched window.
	RemoteIndexLookup Strategy = "remote_index"
	// PrayerScheduleLookup answers today's date from the prayer schedule.
	PrayerScheduleLookup Strategy = "prayer_schedule"
	// PlatformPrimitive answers today's date from the tabular calendar.
	PlatformPrimitive Strategy = "platform_primitive"
	// ApproximateAnchor converts relative to today's resolved Hijri date.
	ApproximateAnchor Strategy = "approximate_anchor"
)

// Default resolution orders.
var (
	DefaultCurrentChain    = []Strategy{RemoteIndexLookup, PrayerScheduleLookup, PlatformPrimitive}
	DefaultConversionChain = []Strategy{RemoteIndexLookup, ApproximateAnchor}
)

// todayOffsets are tried in order against the remote index. The remote
// authority may be on a different calendar day than the local clock near
// midnight.
var todayOffsets = []int{0, -1, 1}

// ResolverConfig configures a Resolver. Zero values take defaults.
type ResolverConfig struct {
	MonthsBack      int
	MonthsForward   int
	Location        *time.Location // zone "today" is computed in; UTC if nil
	Primitive       Primitive      // nil disables PlatformPrimitive
	Schedule        ScheduleSource // nil disables PrayerScheduleLookup
	CurrentChain    []Strategy
	ConversionChain []Strategy
	RetryInterval   time.Duration // minimum time between refreshes of an empty or partial window
	Now             func() time.Time
}

func (c *ResolverConfig) setDefaults() {
	if c.MonthsBack <= 0 {
		c.MonthsBack = DefaultMonthsBack
	}
	if c.MonthsForward <= 0 {
		c.MonthsForward = DefaultMonthsForward
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.CurrentChain == nil {
		c.CurrentChain = DefaultCurrentChain
	}
	if c.ConversionChain == nil {
		c.ConversionChain = DefaultConversionChain
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = time.Minute
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

type scheduleAnswer struct {
	settingsKey  string
	gregorianKey string
	date         hijri.Date
}

// Resolver is the single entry point for current-date and conversion
// queries. Its operations never fail: an unknown answer is reported with
// ok == false. Resolver is safe for concurrent use.
type Resolver struct {
	fetcher *Fetcher
	cfg     ResolverConfig
	logger  *slog.Logger

	configureMu sync.Mutex

	mu          sync.RWMutex
	settings    Settings
	configured  bool
	generation  uint64
	index       *Index
	center      string // YYYY-MM of the installed window; empty unless complete
	lastAttempt time.Time
	source      Source
	schedule    *scheduleAnswer
}

// NewResolver returns a Resolver with no settings and an empty index.
func NewResolver(fetcher *Fetcher, cfg ResolverConfig, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.setDefaults()
	return &Resolver{
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger,
		index:   BuildIndex(nil),
		source:  SourceFallback,
	}
}

func (r *Resolver) today() time.Time {
	return hijri.Noon(r.cfg.Now().In(r.cfg.Location))
}

// Configure makes s the resolver's settings, refreshing the window when the
// settings changed, when today's month moved past the window center, or when
// the window is empty or partial and RetryInterval has passed since the last
// attempt.
func (r *Resolver) Configure(ctx context.Context, s Settings) {
	r.configureMu.Lock()
	defer r.configureMu.Unlock()
	if r.needsRefresh(s) {
		r.Refresh(ctx, s)
	}
}

func (r *Resolver) needsRefresh(s Settings) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.configured || r.settings.Key() != s.Key() {
		return true
	}
	if s.Location == nil {
		return false
	}
	if r.center == "" {
		return r.cfg.Now().Sub(r.lastAttempt) >= r.cfg.RetryInterval
	}
	return r.center != r.today().Format("2006-01")
}

// Refresh fetches the window for s around today and installs its index. The
// fetch is not bound to ctx's cancellation, so a caller that gives up does not
// leave holes in the window. If another Refresh starts before this one
// finishes, this one's result is discarded.
func (r *Resolver) Refresh(ctx context.Context, s Settings) {
	today := r.today()

	r.mu.Lock()
	r.generation++
	gen := r.generation
	if !r.configured || r.settings.Key() != s.Key() {
		r.index = BuildIndex(nil)
		r.center = ""
		r.schedule = nil
	}
	r.settings = s
	r.configured = true
	r.lastAttempt = r.cfg.Now()
	r.mu.Unlock()

	if s.Location == nil {
		return
	}

	entries, err := r.fetcher.FetchWindow(context.WithoutCancel(ctx), WindowRequest{
		Location:      *s.Location,
		Method:        s.Method,
		School:        s.School,
		Center:        today,
		MonthsBack:    r.cfg.MonthsBack,
		MonthsForward: r.cfg.MonthsForward,
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		r.logger.Debug("discarding superseded calendar window",
			slog.String("settings", s.Key()),
		)
		return
	}
	switch {
	case errors.Is(err, ErrPartialWindow):
		r.logger.Info("calendar window is partial, will retry",
			slog.String("settings", s.Key()),
			slog.Int("days", len(entries)),
		)
		r.index = BuildIndex(entries)
		r.center = ""
	case err != nil:
		r.logger.Warn("calendar window unavailable, using fallback",
			slog.String("settings", s.Key()),
			slog.Any("error", err),
		)
		r.index = BuildIndex(nil)
		r.center = ""
	default:
		r.index = BuildIndex(entries)
		r.center = today.Format("2006-01")
	}
}

// Settings returns the settings last passed to Configure or Refresh.
func (r *Resolver) Settings() Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings
}

// IndexLen returns the number of days in the installed window.
func (r *Resolver) IndexLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.Len()
}

// Source reports whether the most recent answer, from any caller, came from
// the remote calendar or a fallback. Callers that need the source of their
// own answer use the Source returned with it.
func (r *Resolver) Source() Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.source
}

func (r *Resolver) setSource(s Strategy) Source {
	src := SourceFallback
	if s == RemoteIndexLookup {
		src = SourceRemote
	}
	r.mu.Lock()
	r.source = src
	r.mu.Unlock()
	return src
}

func (r *Resolver) snapshot() (*Index, Settings) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index, r.settings
}

// CurrentHijriDate returns today's Hijri date and the source that produced
// it.
func (r *Resolver) CurrentHijriDate(ctx context.Context) (hijri.Date, Source, bool) {
	d, s, ok := r.currentHijriDate(ctx)
	if !ok {
		return hijri.Date{}, "", false
	}
	return d, r.setSource(s), true
}

func (r *Resolver) currentHijriDate(ctx context.Context) (hijri.Date, Strategy, bool) {
	idx, settings := r.snapshot()
	today := r.today()
	for _, s := range r.cfg.CurrentChain {
		var (
			d  hijri.Date
			ok bool
		)
		switch s {
		case RemoteIndexLookup:
			d, ok = lookupToday(idx, today)
		case PrayerScheduleLookup:
			d, ok = r.scheduleDate(ctx, settings, today)
		case PlatformPrimitive:
			if r.cfg.Primitive != nil {
				d, ok = r.cfg.Primitive.FromGregorian(today), true
			}
		}
		if ok {
			return d, s, true
		}
	}
	return hijri.Date{}, "", false
}

func lookupToday(idx *Index, today time.Time) (hijri.Date, bool) {
	for _, off := range todayOffsets {
		if e, ok := idx.ByGregorianKey(GregorianKey(today.AddDate(0, 0, off))); ok {
			return e.HijriDate, true
		}
	}
	return hijri.Date{}, false
}

func (r *Resolver) scheduleDate(ctx context.Context, s Settings, today time.Time) (hijri.Date, bool) {
	if r.cfg.Schedule == nil || s.Location == nil {
		return hijri.Date{}, false
	}
	gk := GregorianKey(today)

	r.mu.RLock()
	cached := r.schedule
	r.mu.RUnlock()
	if cached != nil && cached.settingsKey == s.Key() && cached.gregorianKey == gk {
		return cached.date, true
	}

	d, err := r.cfg.Schedule.ScheduleHijriDate(ctx, s, today)
	if err != nil {
		r.logger.Warn("prayer schedule hijri date unavailable", slog.Any("error", err))
		return hijri.Date{}, false
	}
	r.mu.Lock()
	r.schedule = &scheduleAnswer{settingsKey: s.Key(), gregorianKey: gk, date: d}
	r.mu.Unlock()
	return d, true
}

// GregorianDateForHijri returns noon of the Gregorian day corresponding to
// target, in the resolver's time zone, and the source that produced it.
func (r *Resolver) GregorianDateForHijri(ctx context.Context, target hijri.Date) (time.Time, Source, bool) {
	idx, _ := r.snapshot()
	for _, s := range r.cfg.ConversionChain {
		switch s {
		case RemoteIndexLookup:
			if e, ok := idx.ByHijriKey(target.Key()); ok {
				y, m, d := e.GregorianDate.Date()
				return time.Date(y, m, d, 12, 0, 0, 0, r.cfg.Location), r.setSource(s), true
			}
		case ApproximateAnchor:
			current, _, ok := r.currentHijriDate(ctx)
			if !ok {
				continue
			}
			anchor := hijri.Anchor{Hijri: current, Gregorian: r.today()}
			return anchor.GregorianFor(target), r.setSource(s), true
		}
	}
	return time.Time{}, "", false
}

// HijriDateForGregorian returns the Hijri date of day's calendar day, from the
// remote window if it covers day and from the platform primitive otherwise.
func (r *Resolver) HijriDateForGregorian(day time.Time) (hijri.Date, Source, bool) {
	idx, _ := r.snapshot()
	if e, ok := idx.ByGregorianKey(GregorianKey(day)); ok {
		return e.HijriDate, r.setSource(RemoteIndexLookup), true
	}
	if r.cfg.Primitive == nil {
		return hijri.Date{}, "", false
	}
	return r.cfg.Primitive.FromGregorian(day), r.setSource(PlatformPrimitive), true
}

// DaysUntilHijri returns the number of calendar days from today to target,
// negative if target has passed.
func (r *Resolver) DaysUntilHijri(ctx context.Context, target hijri.Date) (int, Source, bool) {
	g, src, ok := r.GregorianDateForHijri(ctx, target)
	if !ok {
		return 0, "", false
	}
	return hijri.CalendarDaysBetween(r.today(), g), src, true
}

// Today returns noon of the current day in the resolver's time zone.
func (r *Resolver) Today() time.Time {
	return r.today()
}

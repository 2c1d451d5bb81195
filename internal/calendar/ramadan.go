package calendar

import (
	"context"
	"slices"
	"time"

	"github.com/zapponejosh/hijri-calendar-api/internal/hijri"
)

// RamadanStatus describes the current Ramadan, or the next one when today is
// neither in Ramadan nor in the first three days of Shawwal.
type RamadanStatus struct {
	IsRamadan   bool      `json:"is_ramadan"`
	IsEidPeriod bool      `json:"is_eid_period"`
	Year        int       `json:"year"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	CurrentDay  int       `json:"current_day"`
	DaysLeft    int       `json:"days_left"`
	TotalDays   int       `json:"total_days"`
}

// RamadanStatus returns the Ramadan status for today. ok is false when
// today's Hijri date cannot be resolved.
func (r *Resolver) RamadanStatus(ctx context.Context) (RamadanStatus, bool) {
	current, _, ok := r.CurrentHijriDate(ctx)
	if !ok {
		return RamadanStatus{}, false
	}
	today := r.today()
	anchor := hijri.Anchor{Hijri: current, Gregorian: today}

	year := current.Year
	isRamadan := current.Month == hijri.Ramadan
	isEid := current.Month == hijri.Shawwal && current.Day <= 3
	if !isRamadan && !isEid && current.Month > hijri.Ramadan {
		year++
	}

	start := r.gregorianOr(ctx, hijri.New(year, hijri.Ramadan, 1), anchor)
	eid := r.gregorianOr(ctx, hijri.New(year, hijri.Shawwal, 1), anchor)

	st := RamadanStatus{
		IsRamadan:   isRamadan,
		IsEidPeriod: isEid,
		Year:        year,
		StartDate:   start,
		EndDate:     eid.AddDate(0, 0, -1),
		TotalDays:   max(hijri.CalendarDaysBetween(start, eid), hijri.MonthLength(year, hijri.Ramadan)),
	}
	switch {
	case isRamadan:
		st.CurrentDay = current.Day
		st.DaysLeft = max(hijri.CalendarDaysBetween(today, eid), 0)
	case isEid:
	default:
		st.DaysLeft = max(hijri.CalendarDaysBetween(today, start), 0)
	}
	return st, true
}

// gregorianOr resolves target, falling back to anchor when the conversion
// chain has no answer.
func (r *Resolver) gregorianOr(ctx context.Context, target hijri.Date, anchor hijri.Anchor) time.Time {
	if g, _, ok := r.GregorianDateForHijri(ctx, target); ok {
		return g
	}
	return anchor.GregorianFor(target)
}

// UpcomingObservance is the next occurrence of an observance.
type UpcomingObservance struct {
	Name      string     `json:"name"`
	Hijri     hijri.Date `json:"hijri"`
	Gregorian *time.Time `json:"gregorian"`
	DaysUntil *int       `json:"days_until"`
}

// UpcomingObservances returns the next occurrence of each observance ordered
// by Hijri date. ok is false when today's Hijri date cannot be resolved.
// Occurrences that cannot be converted have nil Gregorian and DaysUntil.
func (r *Resolver) UpcomingObservances(ctx context.Context) ([]UpcomingObservance, bool) {
	current, _, ok := r.CurrentHijriDate(ctx)
	if !ok {
		return nil, false
	}
	today := r.today()
	out := make([]UpcomingObservance, 0, len(hijri.Observances))
	for _, o := range hijri.Observances {
		u := UpcomingObservance{Name: o.Name, Hijri: o.Next(current)}
		if g, _, ok := r.GregorianDateForHijri(ctx, u.Hijri); ok {
			days := hijri.CalendarDaysBetween(today, g)
			u.Gregorian = &g
			u.DaysUntil = &days
		}
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b UpcomingObservance) int {
		return hijri.Compare(a.Hijri, b.Hijri)
	})
	return out, true
}

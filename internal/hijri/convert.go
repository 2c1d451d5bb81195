package hijri

import "time"

// Anchor is a trusted correspondence between a Hijri day and a Gregorian day.
type Anchor struct {
	Hijri     Date
	Gregorian time.Time
}

// GregorianFor converts target to a Gregorian date relative to the anchor.
// Both calendars advance one day per day, so the result is exact relative to
// the anchor even when the anchor itself is approximate. The result is noon
// of the calendar day in the anchor's location.
func (a Anchor) GregorianFor(target Date) time.Time {
	return Noon(a.Gregorian).AddDate(0, 0, DayDifference(a.Hijri, target))
}

// Noon returns 12:00 on t's calendar day in t's location. Noon keeps day
// arithmetic clear of DST transitions.
func Noon(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 12, 0, 0, 0, t.Location())
}

// CalendarDaysBetween returns the number of calendar days from a to b,
// ignoring time of day. Each value is read in its own location.
func CalendarDaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

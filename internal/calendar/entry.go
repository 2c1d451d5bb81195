package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zapponejosh/hijri-calendar-api/internal/hijri"
)

// Entry is one verified correspondence between a Gregorian day and a Hijri
// day as reported by the remote calendar.
type Entry struct {
	GregorianDate time.Time  `json:"gregorian_date"`
	GregorianKey  string     `json:"gregorian_key"`
	HijriDate     hijri.Date `json:"hijri_date"`
	HijriKey      string     `json:"hijri_key"`
}

// NewEntry builds an Entry with both keys filled in.
func NewEntry(gregorian time.Time, h hijri.Date) Entry {
	return Entry{
		GregorianDate: hijri.Noon(gregorian),
		GregorianKey:  GregorianKey(gregorian),
		HijriDate:     h,
		HijriKey:      h.Key(),
	}
}

// GregorianKey returns the YYYY-MM-DD key of t's calendar day in t's location.
func GregorianKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// ParseGregorianKey parses a YYYY-MM-DD key to noon of that day in loc.
func ParseGregorianKey(key string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", key, loc)
	if err != nil {
		return time.Time{}, err
	}
	return hijri.Noon(t), nil
}

// parseRemoteGregorian parses the DD-MM-YYYY form used by the remote calendar.
func parseRemoteGregorian(s string) (time.Time, error) {
	t, err := time.Parse("02-01-2006", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse gregorian date %q: %w", s, err)
	}
	return hijri.Noon(t), nil
}

// parseRemoteHijri builds a Hijri date from the string day/year and numeric
// month of the remote payload. Sighting-based sources may report day 30 of a
// month the tabular rules give 29 days, so only the ranges are checked.
func parseRemoteHijri(day string, month int, year string) (hijri.Date, error) {
	d, err := strconv.Atoi(strings.TrimSpace(day))
	if err != nil {
		return hijri.Date{}, fmt.Errorf("parse hijri day %q: %w", day, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return hijri.Date{}, fmt.Errorf("parse hijri year %q: %w", year, err)
	}
	if d < 1 || d > 30 || month < 1 || month > 12 || y < 1 {
		return hijri.Date{}, fmt.Errorf("hijri date out of range: %d-%d-%d", y, month, d)
	}
	return hijri.Date{Day: d, Month: month, Year: y}, nil
}

// Index maps entries by both Gregorian and Hijri key. An Index is never
// mutated after BuildIndex returns it.
type Index struct {
	byGregorian map[string]Entry
	byHijri     map[string]Entry
}

// BuildIndex indexes entries. A later entry replaces an earlier one with the
// same key.
func BuildIndex(entries []Entry) *Index {
	idx := &Index{
		byGregorian: make(map[string]Entry, len(entries)),
		byHijri:     make(map[string]Entry, len(entries)),
	}
	for _, e := range entries {
		idx.byGregorian[e.GregorianKey] = e
		idx.byHijri[e.HijriKey] = e
	}
	return idx
}

// Len returns the number of distinct Gregorian days in the index.
func (idx *Index) Len() int {
	return len(idx.byGregorian)
}

// HijriLen returns the number of distinct Hijri days in the index.
func (idx *Index) HijriLen() int {
	return len(idx.byHijri)
}

// ByGregorianKey returns the entry for a Gregorian key.
func (idx *Index) ByGregorianKey(key string) (Entry, bool) {
	e, ok := idx.byGregorian[key]
	return e, ok
}

// ByHijriKey returns the entry for a Hijri key.
func (idx *Index) ByHijriKey(key string) (Entry, bool) {
	e, ok := idx.byHijri[key]
	return e, ok
}

// Package hijri implements tabular Islamic (Hijri) calendar arithmetic.
//
// The month-length and leap-year rules are the fixed 30-year arithmetical
// cycle, not astronomical observation. Dates produced here can differ from a
// moon-sighting authority by a day, occasionally two, around month starts.
package hijri

import (
	"fmt"
	"strconv"
	"strings"
)

// Date is a day in the Hijri calendar. It carries no time of day.
type Date struct {
	Day   int `json:"day"`
	Month int `json:"month"`
	Year  int `json:"year"`
}

// Month numbers.
const (
	Muharram      = 1
	Safar         = 2
	RabiAlAwwal   = 3
	RabiAlThani   = 4
	JumadaAlUla   = 5
	JumadaAlAkhir = 6
	Rajab         = 7
	Shaban        = 8
	Ramadan       = 9
	Shawwal       = 10
	DhuAlQadah    = 11
	DhuAlHijjah   = 12
)

var monthNames = [...]string{
	"Muharram",
	"Safar",
	"Rabi' al-Awwal",
	"Rabi' al-Thani",
	"Jumada al-Ula",
	"Jumada al-Akhirah",
	"Rajab",
	"Sha'ban",
	"Ramadan",
	"Shawwal",
	"Dhu al-Qa'dah",
	"Dhu al-Hijjah",
}

// MonthName returns the transliterated name of a Hijri month,
// or an empty string if month is outside 1-12.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}

// New returns the Date for the given components. It panics if they do not
// form a valid date.
func New(year, month, day int) Date {
	d := Date{Day: day, Month: month, Year: year}
	if err := d.Validate(); err != nil {
		panic(err)
	}
	return d
}

// Validate reports whether d names a day that exists in the tabular calendar.
func (d Date) Validate() error {
	if d.Month < 1 || d.Month > 12 {
		return &InvalidMonthError{Month: d.Month}
	}
	if d.Year < 1 {
		return fmt.Errorf("invalid hijri year: %d", d.Year)
	}
	if n := MonthLength(d.Year, d.Month); d.Day < 1 || d.Day > n {
		return fmt.Errorf("invalid hijri day %d for %s %d (1-%d)", d.Day, MonthName(d.Month), d.Year, n)
	}
	return nil
}

// Key returns the canonical, sortable YYYY-MM-DD encoding of d.
func (d Date) Key() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// String returns d as "27 Ramadan 1446".
func (d Date) String() string {
	name := MonthName(d.Month)
	if name == "" {
		name = strconv.Itoa(d.Month)
	}
	return fmt.Sprintf("%d %s %d", d.Day, name, d.Year)
}

// ParseKey parses a key produced by Date.Key.
func ParseKey(key string) (Date, error) {
	parts := strings.Split(key, "-")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("invalid hijri key %q: want YYYY-MM-DD", key)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Date{}, fmt.Errorf("invalid hijri key %q: %w", key, err)
		}
		nums[i] = n
	}
	d := Date{Year: nums[0], Month: nums[1], Day: nums[2]}
	if err := d.Validate(); err != nil {
		return Date{}, err
	}
	return d, nil
}

// InvalidMonthError is the panic value of MonthLength for a month outside 1-12.
type InvalidMonthError struct {
	Month int
}

func (e *InvalidMonthError) Error() string {
	return fmt.Sprintf("invalid hijri month: %d", e.Month)
}

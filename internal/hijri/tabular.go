package hijri

import "time"

const (
	// civilEpochJDN is the Julian day number of 1 Muharram 1 AH in the civil
	// (Friday) reckoning, 16 July 622 in the Julian calendar.
	civilEpochJDN = 1948440

	// unixEpochJDN is the Julian day number of 1970-01-01.
	unixEpochJDN = 2440588
)

// Tabular converts between Gregorian days and the arithmetical Islamic
// calendar. It uses the same leap cycle and month lengths as MonthLength and
// stands in for a runtime-provided Islamic calendar.
type Tabular struct{}

// FromGregorian returns the Hijri date for t's calendar day in t's location.
func (Tabular) FromGregorian(t time.Time) Date {
	return fromJDN(gregorianJDN(t))
}

// ToGregorian returns noon of the Gregorian day corresponding to d in loc.
func (Tabular) ToGregorian(d Date, loc *time.Location) time.Time {
	days := toJDN(d) - unixEpochJDN
	return time.Date(1970, time.January, 1+days, 12, 0, 0, 0, loc)
}

func gregorianJDN(t time.Time) int {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int(midnight.Unix()/86400) + unixEpochJDN
}

func toJDN(d Date) int {
	return d.Day +
		ceilDiv(59*(d.Month-1), 2) +
		(d.Year-1)*354 +
		floorDiv(3+11*d.Year, 30) +
		civilEpochJDN - 1
}

func fromJDN(jdn int) Date {
	year := floorDiv(30*(jdn-civilEpochJDN)+10646, 10631)
	month := min(12, ceilDiv(2*(jdn-29-toJDN(Date{Day: 1, Month: 1, Year: year})), 59)+1)
	day := jdn - toJDN(Date{Day: 1, Month: month, Year: year}) + 1
	return Date{Day: day, Month: month, Year: year}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv(a, b int) int {
	return -floorDiv(-a, b)
}

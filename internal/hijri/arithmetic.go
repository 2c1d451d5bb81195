package hijri

// leapPositions are the leap years within each 30-year cycle.
var leapPositions = map[int]bool{
	2: true, 5: true, 7: true, 10: true, 13: true, 16: true,
	18: true, 21: true, 24: true, 26: true, 29: true,
}

// IsLeapYear reports whether Dhu al-Hijjah of year has 30 days.
func IsLeapYear(year int) bool {
	pos := ((year-1)%30+30)%30 + 1
	return leapPositions[pos]
}

// MonthLength returns the number of days in month of year. Odd months have
// 30 days, even months 29, except Dhu al-Hijjah which has 30 in a leap year.
// It panics with *InvalidMonthError if month is outside 1-12.
func MonthLength(year, month int) int {
	if month < 1 || month > 12 {
		panic(&InvalidMonthError{Month: month})
	}
	if month == DhuAlHijjah {
		if IsLeapYear(year) {
			return 30
		}
		return 29
	}
	if month%2 == 1 {
		return 30
	}
	return 29
}

// YearLength returns 355 for a leap year and 354 otherwise.
func YearLength(year int) int {
	if IsLeapYear(year) {
		return 355
	}
	return 354
}

// Compare returns -1, 0 or +1 ordering a and b by year, month then day.
func Compare(a, b Date) int {
	switch {
	case a.Year != b.Year:
		return sign(a.Year - b.Year)
	case a.Month != b.Month:
		return sign(a.Month - b.Month)
	}
	return sign(a.Day - b.Day)
}

// Before reports whether d is earlier than o.
func (d Date) Before(o Date) bool { return Compare(d, o) < 0 }

// After reports whether d is later than o.
func (d Date) After(o Date) bool { return Compare(d, o) > 0 }

// AddOneDay returns the day following d.
func AddOneDay(d Date) Date {
	if d.Day < MonthLength(d.Year, d.Month) {
		return Date{Day: d.Day + 1, Month: d.Month, Year: d.Year}
	}
	if d.Month < 12 {
		return Date{Day: 1, Month: d.Month + 1, Year: d.Year}
	}
	return Date{Day: 1, Month: 1, Year: d.Year + 1}
}

// SubtractOneDay returns the day preceding d.
func SubtractOneDay(d Date) Date {
	if d.Day > 1 {
		return Date{Day: d.Day - 1, Month: d.Month, Year: d.Year}
	}
	if d.Month > 1 {
		prev := d.Month - 1
		return Date{Day: MonthLength(d.Year, prev), Month: prev, Year: d.Year}
	}
	prevYear := d.Year - 1
	return Date{Day: MonthLength(prevYear, 12), Month: 12, Year: prevYear}
}

// AddDays walks |n| single days from d in the direction of n.
func AddDays(d Date, n int) Date {
	step := AddOneDay
	if n < 0 {
		step = SubtractOneDay
		n = -n
	}
	for range n {
		d = step(d)
	}
	return d
}

// DayDifference returns the number of days to add to from to reach to.
// The result is positive when to is later than from. The walk stops at the
// first day that is not before to (not after, walking back), so a to that
// the tabular rules never produce, such as 30 Safar, still terminates.
func DayDifference(from, to Date) int {
	dir := Compare(from, to)
	if dir == 0 {
		return 0
	}
	step, delta := AddOneDay, 1
	if dir > 0 {
		step, delta = SubtractOneDay, -1
	}
	diff := 0
	for cursor := from; Compare(cursor, to) == dir; cursor = step(cursor) {
		diff += delta
	}
	return diff
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

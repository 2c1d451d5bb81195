package hijri

// Observance is a yearly commemoration fixed to a Hijri month and day.
type Observance struct {
	Name  string `json:"name"`
	Month int    `json:"month"`
	Day   int    `json:"day"`
}

// Observances lists the commemorations shown in the calendar, in year order.
var Observances = []Observance{
	{Name: "Islamic New Year", Month: Muharram, Day: 1},
	{Name: "Day of Ashura", Month: Muharram, Day: 10},
	{Name: "Mawlid al-Nabi", Month: RabiAlAwwal, Day: 12},
	{Name: "Isra and Mi'raj", Month: Rajab, Day: 27},
	{Name: "Laylat al-Bara'ah", Month: Shaban, Day: 15},
	{Name: "Beginning of Ramadan", Month: Ramadan, Day: 1},
	{Name: "Laylat al-Qadr", Month: Ramadan, Day: 27},
	{Name: "Eid al-Fitr", Month: Shawwal, Day: 1},
	{Name: "Day of Arafah", Month: DhuAlHijjah, Day: 9},
	{Name: "Eid al-Adha", Month: DhuAlHijjah, Day: 10},
}

// Next returns the first occurrence of o on or after today.
func (o Observance) Next(today Date) Date {
	d := Date{Day: o.Day, Month: o.Month, Year: today.Year}
	if d.Before(today) {
		d.Year++
	}
	return d
}

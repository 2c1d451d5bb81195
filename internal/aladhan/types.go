package aladhan

// Response is the envelope of the timings endpoint.
type Response struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   Data   `json:"data"`
}

// CalendarResponse is the envelope of the calendar endpoint: one Data per
// day of the requested Gregorian month.
type CalendarResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   []Data `json:"data"`
}

// Data holds one day's timings, date info and metadata.
type Data struct {
	Timings Timings  `json:"timings"`
	Date    DateInfo `json:"date"`
	Meta    Meta     `json:"meta"`
}

// Timings are HH:MM strings, possibly suffixed with a zone such as " (BST)".
type Timings struct {
	Fajr     string `json:"Fajr"`
	Sunrise  string `json:"Sunrise"`
	Dhuhr    string `json:"Dhuhr"`
	Asr      string `json:"Asr"`
	Sunset   string `json:"Sunset"`
	Maghrib  string `json:"Maghrib"`
	Isha     string `json:"Isha"`
	Imsak    string `json:"Imsak"`
	Midnight string `json:"Midnight"`
}

// DateInfo carries both calendar representations of the day.
type DateInfo struct {
	Readable  string        `json:"readable"`
	Timestamp string        `json:"timestamp"`
	Hijri     HijriDate     `json:"hijri"`
	Gregorian GregorianDate `json:"gregorian"`
}

// HijriDate is the Hijri date as reported by the service.
type HijriDate struct {
	Date  string     `json:"date"` // "01-09-1446"
	Day   string     `json:"day"`
	Month HijriMonth `json:"month"`
	Year  string     `json:"year"`
}

// HijriMonth is the month of a HijriDate.
type HijriMonth struct {
	Number int    `json:"number"`
	En     string `json:"en"`
	Ar     string `json:"ar"`
}

// GregorianDate is the Gregorian date as reported by the service.
type GregorianDate struct {
	Date  string         `json:"date"` // "01-03-2025"
	Day   string         `json:"day"`
	Month GregorianMonth `json:"month"`
	Year  string         `json:"year"`
}

// GregorianMonth is the month of a GregorianDate.
type GregorianMonth struct {
	Number int    `json:"number"`
	En     string `json:"en"`
}

// Meta echoes the request parameters the service used.
type Meta struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Timezone  string     `json:"timezone"`
	Method    MethodInfo `json:"method"`
	School    string     `json:"school"`
}

// MethodInfo identifies the calculation method.
type MethodInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

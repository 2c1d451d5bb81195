package database

// migrationsSQL holds the schema, applied in version order.
var migrationsSQL = map[int]string{
	1: migrationV1CalendarMonths,
}

// migrationV1CalendarMonths stores each successfully fetched month and its
// days. A month row exists only once all of its days are written.
const migrationV1CalendarMonths = `
CREATE TABLE calendar_months (
	cache_key  TEXT PRIMARY KEY,
	latitude   TEXT NOT NULL,
	longitude  TEXT NOT NULL,
	method     INTEGER NOT NULL,
	school     INTEGER NOT NULL,
	year       INTEGER NOT NULL,
	month      INTEGER NOT NULL CHECK (month BETWEEN 1 AND 12),
	fetched_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);

CREATE TABLE calendar_days (
	cache_key     TEXT NOT NULL REFERENCES calendar_months(cache_key) ON DELETE CASCADE,
	gregorian_key TEXT NOT NULL,
	hijri_key     TEXT NOT NULL,
	hijri_day     INTEGER NOT NULL CHECK (hijri_day BETWEEN 1 AND 30),
	hijri_month   INTEGER NOT NULL CHECK (hijri_month BETWEEN 1 AND 12),
	hijri_year    INTEGER NOT NULL,
	PRIMARY KEY (cache_key, gregorian_key)
);

CREATE INDEX idx_calendar_months_settings
	ON calendar_months(latitude, longitude, method, school);
`

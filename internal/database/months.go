package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/zapponejosh/hijri-calendar-api/internal/calendar"
	"github.com/zapponejosh/hijri-calendar-api/internal/hijri"
)

// StoredMonth describes one persisted month.
type StoredMonth struct {
	Key       string     `json:"key"`
	Latitude  string     `json:"latitude"`
	Longitude string     `json:"longitude"`
	Method    int        `json:"method"`
	School    int        `json:"school"`
	Year      int        `json:"year"`
	Month     int        `json:"month"`
	Days      int        `json:"days"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
}

// LoadMonth returns the stored entries for key. ok is false if the month was
// never saved.
func (db *DB) LoadMonth(ctx context.Context, key calendar.MonthKey) ([]calendar.Entry, bool, error) {
	var exists int
	err := db.QueryRowContext(ctx,
		"SELECT 1 FROM calendar_months WHERE cache_key = ?", key.String(),
	).Scan(&exists)
	if IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query month %s: %w", key, err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT gregorian_key, hijri_day, hijri_month, hijri_year
		FROM calendar_days
		WHERE cache_key = ?
		ORDER BY gregorian_key
	`, key.String())
	if err != nil {
		return nil, false, fmt.Errorf("query days of %s: %w", key, err)
	}
	defer rows.Close()

	var entries []calendar.Entry
	for rows.Next() {
		var (
			gk string
			h  hijri.Date
		)
		if err := rows.Scan(&gk, &h.Day, &h.Month, &h.Year); err != nil {
			return nil, false, fmt.Errorf("scan day: %w", err)
		}
		g, err := calendar.ParseGregorianKey(gk, time.UTC)
		if err != nil {
			return nil, false, fmt.Errorf("stored day %q: %w", gk, err)
		}
		entries = append(entries, calendar.NewEntry(g, h))
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate days: %w", err)
	}
	return entries, true, nil
}

// SaveMonth replaces the stored entries for key.
func (db *DB) SaveMonth(ctx context.Context, key calendar.MonthKey, entries []calendar.Entry) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM calendar_days WHERE cache_key = ?", key.String()); err != nil {
			return fmt.Errorf("clear days of %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM calendar_months WHERE cache_key = ?", key.String()); err != nil {
			return fmt.Errorf("clear month %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO calendar_months (cache_key, latitude, longitude, method, school, year, month)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, key.String(), key.Latitude, key.Longitude, key.Method, key.School, key.Year, key.Month); err != nil {
			return fmt.Errorf("insert month %s: %w", key, err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO calendar_days
				(cache_key, gregorian_key, hijri_key, hijri_day, hijri_month, hijri_year)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare day insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx,
				key.String(), e.GregorianKey, e.HijriKey,
				e.HijriDate.Day, e.HijriDate.Month, e.HijriDate.Year,
			); err != nil {
				return fmt.Errorf("insert day %s: %w", e.GregorianKey, err)
			}
		}
		return nil
	})
}

// CountMonths returns the number of stored months.
func (db *DB) CountMonths(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM calendar_months").Scan(&n); err != nil {
		return 0, fmt.Errorf("count months: %w", err)
	}
	return n, nil
}

// ListMonths returns the stored months, most recently fetched first.
func (db *DB) ListMonths(ctx context.Context, limit int) ([]StoredMonth, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `
		SELECT m.cache_key, m.latitude, m.longitude, m.method, m.school, m.year, m.month,
		       m.fetched_at, (SELECT COUNT(*) FROM calendar_days d WHERE d.cache_key = m.cache_key)
		FROM calendar_months m
		ORDER BY m.fetched_at DESC, m.cache_key
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query months: %w", err)
	}
	defer rows.Close()

	var months []StoredMonth
	for rows.Next() {
		var (
			m         StoredMonth
			fetchedAt sql.NullString
		)
		if err := rows.Scan(&m.Key, &m.Latitude, &m.Longitude, &m.Method, &m.School,
			&m.Year, &m.Month, &fetchedAt, &m.Days); err != nil {
			return nil, fmt.Errorf("scan month: %w", err)
		}
		m.FetchedAt = parseTimestamp(fetchedAt)
		months = append(months, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate months: %w", err)
	}
	return months, nil
}

// DeleteMonths removes every stored month. The in-process cache is not
// affected.
func (db *DB) DeleteMonths(ctx context.Context) (int64, error) {
	var n int64
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM calendar_days"); err != nil {
			return fmt.Errorf("delete days: %w", err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM calendar_months")
		if err != nil {
			return fmt.Errorf("delete months: %w", err)
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

// parseTimestamp parses a SQLite TEXT timestamp, returning nil if it is
// empty or in an unknown format.
func parseTimestamp(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, ns.String); err == nil {
			return &t
		}
	}
	return nil
}

var _ calendar.Store = (*DB)(nil)

package store

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// UpsertWellness stores one wellness sample per calendar day.
// A measured sample is never overwritten by a simulated one.
func (db *DB) UpsertWellness(w WellnessSample) error {
	_, err := db.Exec(`
		INSERT INTO wellness (date, hrv, sleep_hours, resting_hr, source, is_simulated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			hrv = excluded.hrv,
			sleep_hours = excluded.sleep_hours,
			resting_hr = excluded.resting_hr,
			source = excluded.source,
			is_simulated = excluded.is_simulated
		WHERE excluded.is_simulated = 0 OR wellness.is_simulated = 1
	`, DayKey(w.Date).Format(dateLayout), w.HRV, w.SleepHours, w.RestingHR, w.Source, boolToInt(w.IsSimulated))
	return err
}

// ListWellness returns samples on or after since, ascending by date.
// A zero since returns everything.
func (db *DB) ListWellness(since time.Time) ([]WellnessSample, error) {
	rows, err := db.Query(`
		SELECT date, hrv, sleep_hours, resting_hr, source, is_simulated
		FROM wellness
		WHERE date >= ?
		ORDER BY date ASC
	`, DayKey(since).Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []WellnessSample
	for rows.Next() {
		var w WellnessSample
		var date string
		var simulated int
		if err := rows.Scan(&date, &w.HRV, &w.SleepHours, &w.RestingHR, &w.Source, &simulated); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parsing wellness date %q: %w", date, err)
		}
		w.Date = parsed
		w.IsSimulated = simulated == 1
		samples = append(samples, w)
	}
	return samples, rows.Err()
}

// CountMeasuredWellness returns the number of non-simulated samples
func (db *DB) CountMeasuredWellness() (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM wellness WHERE is_simulated = 0`).Scan(&count)
	return count, err
}

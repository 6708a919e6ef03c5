package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const activityColumns = `id, name, sport, source, start_date, start_date_local, duration_min,
	distance, average_heartrate, average_speed, average_power, has_heartrate, streams_synced`

// UpsertActivity inserts or updates an activity.
// streams_synced is preserved on update so a re-sync doesn't refetch streams.
func (db *DB) UpsertActivity(a *Activity) error {
	_, err := db.Exec(`
		INSERT INTO activities (`+activityColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			sport = excluded.sport,
			source = excluded.source,
			start_date = excluded.start_date,
			start_date_local = excluded.start_date_local,
			duration_min = excluded.duration_min,
			distance = excluded.distance,
			average_heartrate = excluded.average_heartrate,
			average_speed = excluded.average_speed,
			average_power = excluded.average_power,
			has_heartrate = excluded.has_heartrate,
			updated_at = CURRENT_TIMESTAMP
	`,
		a.ID, a.Name, string(a.Sport), a.Source,
		a.StartDate.UTC().Format(time.RFC3339), formatLocal(a.StartDateLocal),
		a.DurationMin, a.Distance, a.AverageHeartrate, a.AverageSpeed, a.AveragePower,
		boolToInt(a.HasHeartrate), boolToInt(a.StreamsSynced),
	)
	return err
}

// GetActivity retrieves an activity by ID
func (db *DB) GetActivity(id int64) (*Activity, error) {
	row := db.QueryRow(`SELECT `+activityColumns+` FROM activities WHERE id = ?`, id)

	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActivityNotFound
	}
	return a, err
}

// ListActivities returns every activity in ascending chronological order.
// The load model depends on this ordering.
func (db *DB) ListActivities() ([]Activity, error) {
	rows, err := db.Query(`
		SELECT ` + activityColumns + `
		FROM activities
		ORDER BY start_date_local ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActivities(rows)
}

// ListRecentActivities returns the most recent activities, newest first
func (db *DB) ListRecentActivities(limit int) ([]Activity, error) {
	rows, err := db.Query(`
		SELECT `+activityColumns+`
		FROM activities
		ORDER BY start_date_local DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActivities(rows)
}

// GetActivitiesNeedingStreams returns heart-rate activities whose streams haven't been fetched
func (db *DB) GetActivitiesNeedingStreams(limit int) ([]Activity, error) {
	rows, err := db.Query(`
		SELECT `+activityColumns+`
		FROM activities
		WHERE streams_synced = 0 AND has_heartrate = 1 AND source = 'strava'
		ORDER BY start_date_local DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActivities(rows)
}

// MarkStreamsSynced marks an activity's streams as synced
func (db *DB) MarkStreamsSynced(id int64) error {
	result, err := db.Exec(`
		UPDATE activities
		SET streams_synced = 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrActivityNotFound
	}
	return nil
}

// CountActivities returns the total number of activities
func (db *DB) CountActivities() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM activities").Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanActivity(row scanner) (*Activity, error) {
	var a Activity
	var sport, startDate, startDateLocal string
	var hasHR, streamsSynced int

	err := row.Scan(
		&a.ID, &a.Name, &sport, &a.Source, &startDate, &startDateLocal, &a.DurationMin,
		&a.Distance, &a.AverageHeartrate, &a.AverageSpeed, &a.AveragePower, &hasHR, &streamsSynced,
	)
	if err != nil {
		return nil, err
	}

	a.Sport = Sport(sport)
	if a.StartDate, err = time.Parse(time.RFC3339, startDate); err != nil {
		return nil, fmt.Errorf("parsing start_date %q: %w", startDate, err)
	}
	if a.StartDateLocal, err = parseLocal(startDateLocal); err != nil {
		return nil, fmt.Errorf("parsing start_date_local %q: %w", startDateLocal, err)
	}
	a.HasHeartrate = hasHR == 1
	a.StreamsSynced = streamsSynced == 1

	return &a, nil
}

func scanActivities(rows *sql.Rows) ([]Activity, error) {
	var activities []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, *a)
	}
	return activities, rows.Err()
}

// localLayout stores the wall clock without an offset so lexical order is chronological
const localLayout = "2006-01-02T15:04:05"

func formatLocal(t time.Time) string {
	return t.Format(localLayout)
}

func parseLocal(s string) (time.Time, error) {
	if t, err := time.Parse(localLayout, s); err == nil {
		return t, nil
	}
	// Older rows were written as RFC3339
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

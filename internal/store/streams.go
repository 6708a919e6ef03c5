package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// SaveStreams saves stream data for an activity.
// It replaces any existing stream data for the activity.
func (db *DB) SaveStreams(activityID int64, s *Streams) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM streams WHERE activity_id = ?", activityID); err != nil {
		return fmt.Errorf("deleting existing streams: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO streams (
			activity_id, sample_index, time_offset, heartrate, speed, altitude, cadence, power
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < s.Len(); i++ {
		_, err := stmt.Exec(
			activityID, i, s.Time[i],
			sampleAt(s.Heartrate, i), sampleAt(s.Speed, i), sampleAt(s.Altitude, i),
			sampleAt(s.Cadence, i), sampleAt(s.Power, i),
		)
		if err != nil {
			return fmt.Errorf("inserting stream sample %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// GetStreams retrieves the streams of an activity, or nil if none are stored
func (db *DB) GetStreams(activityID int64) (*Streams, error) {
	rows, err := db.Query(`
		SELECT activity_id, time_offset, heartrate, speed, altitude, cadence, power
		FROM streams
		WHERE activity_id = ?
		ORDER BY sample_index
	`, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byActivity, err := scanStreams(rows)
	if err != nil {
		return nil, err
	}
	return byActivity[activityID], nil
}

// GetStreamsForActivities retrieves streams for several activities in one query
func (db *DB) GetStreamsForActivities(ids []int64) (map[int64]*Streams, error) {
	if len(ids) == 0 {
		return map[int64]*Streams{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := db.Query(`
		SELECT activity_id, time_offset, heartrate, speed, altitude, cadence, power
		FROM streams
		WHERE activity_id IN (`+strings.Join(placeholders, ",")+`)
		ORDER BY activity_id, sample_index
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStreams(rows)
}

// DeleteStreams removes all stream data for an activity
func (db *DB) DeleteStreams(activityID int64) error {
	_, err := db.Exec("DELETE FROM streams WHERE activity_id = ?", activityID)
	return err
}

// streamBuilder accumulates nullable columns; a column becomes an array
// only if at least one sample carried a value.
type streamBuilder struct {
	time []int
	hr   []sql.NullFloat64

	speed, altitude, cadence, power []sql.NullFloat64
}

func scanStreams(rows *sql.Rows) (map[int64]*Streams, error) {
	builders := make(map[int64]*streamBuilder)
	for rows.Next() {
		var id int64
		var t int
		var hr, speed, alt, cad, pwr sql.NullFloat64
		if err := rows.Scan(&id, &t, &hr, &speed, &alt, &cad, &pwr); err != nil {
			return nil, err
		}
		b, ok := builders[id]
		if !ok {
			b = &streamBuilder{}
			builders[id] = b
		}
		b.time = append(b.time, t)
		b.hr = append(b.hr, hr)
		b.speed = append(b.speed, speed)
		b.altitude = append(b.altitude, alt)
		b.cadence = append(b.cadence, cad)
		b.power = append(b.power, pwr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make(map[int64]*Streams, len(builders))
	for id, b := range builders {
		result[id] = &Streams{
			Time:      b.time,
			Heartrate: column(b.hr),
			Speed:     column(b.speed),
			Altitude:  column(b.altitude),
			Cadence:   column(b.cadence),
			Power:     column(b.power),
		}
	}
	return result, nil
}

func column(values []sql.NullFloat64) []float64 {
	present := false
	for _, v := range values {
		if v.Valid {
			present = true
			break
		}
	}
	if !present {
		return nil
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v.Float64
	}
	return out
}

func sampleAt(values []float64, i int) sql.NullFloat64 {
	if i >= len(values) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: values[i], Valid: true}
}

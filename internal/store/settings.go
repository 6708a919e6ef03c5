package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// GetAthleteSettings returns the stored athlete settings
func (db *DB) GetAthleteSettings() (*AthleteSettings, error) {
	var settings AthleteSettings
	var updatedAt string
	err := db.QueryRow(`
		SELECT weight_kg, resting_hr, version, updated_at
		FROM athlete_profile
		WHERE id = 1
	`).Scan(&settings.WeightKg, &settings.RestingHR, &settings.Version, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSettings
	}
	if err != nil {
		return nil, err
	}
	if settings.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at %q: %w", updatedAt, err)
	}

	rows, err := db.Query(`SELECT sport, lthr, max_hr, zones FROM sport_settings ORDER BY sport`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings.Sports = make(map[Sport]SportSettings)
	for rows.Next() {
		var sport, zones string
		var ss SportSettings
		if err := rows.Scan(&sport, &ss.LTHR, &ss.MaxHR, &zones); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(zones), &ss.Zones); err != nil {
			return nil, fmt.Errorf("decoding zones for %s: %w", sport, err)
		}
		settings.Sports[Sport(sport)] = ss
	}

	return &settings, rows.Err()
}

// SaveAthleteSettings replaces the stored settings and bumps the version.
// The new version is written back into s.
func (db *DB) SaveAthleteSettings(s *AthleteSettings) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var current int64
	err = tx.QueryRow(`SELECT version FROM athlete_profile WHERE id = 1`).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("reading settings version: %w", err)
	}

	version := current + 1
	now := time.Now().UTC()
	if _, err := tx.Exec(`
		INSERT INTO athlete_profile (id, weight_kg, resting_hr, version, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			weight_kg = excluded.weight_kg,
			resting_hr = excluded.resting_hr,
			version = excluded.version,
			updated_at = excluded.updated_at
	`, s.WeightKg, s.RestingHR, version, now.Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("saving athlete profile: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM sport_settings`); err != nil {
		return fmt.Errorf("clearing sport settings: %w", err)
	}
	for sport, ss := range s.Sports {
		zones, err := json.Marshal(ss.Zones)
		if err != nil {
			return fmt.Errorf("encoding zones for %s: %w", sport, err)
		}
		if _, err := tx.Exec(`
			INSERT INTO sport_settings (sport, lthr, max_hr, zones) VALUES (?, ?, ?, ?)
		`, string(sport), ss.LTHR, ss.MaxHR, string(zones)); err != nil {
			return fmt.Errorf("saving settings for %s: %w", sport, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.Version = version
	s.UpdatedAt = now
	return nil
}

package store

import "database/sql"

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// Authentication (singleton row)
		`CREATE TABLE IF NOT EXISTS auth (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			athlete_id INTEGER NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			scope TEXT NOT NULL DEFAULT '',
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Activities; tss is derived on read, never stored
		`CREATE TABLE IF NOT EXISTS activities (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			sport TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT 'strava',
			start_date TEXT NOT NULL,
			start_date_local TEXT NOT NULL,
			duration_min REAL NOT NULL,
			distance REAL NOT NULL DEFAULT 0,
			average_heartrate REAL NOT NULL DEFAULT 0,
			average_speed REAL NOT NULL DEFAULT 0,
			average_power REAL NOT NULL DEFAULT 0,
			has_heartrate INTEGER NOT NULL DEFAULT 0,
			streams_synced INTEGER NOT NULL DEFAULT 0,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_activities_start_date ON activities(start_date_local)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_sport ON activities(sport)`,

		// Streams, one row per sample; sample_index keeps order when time repeats
		`CREATE TABLE IF NOT EXISTS streams (
			activity_id INTEGER NOT NULL,
			sample_index INTEGER NOT NULL,
			time_offset INTEGER NOT NULL,
			heartrate REAL,
			speed REAL,
			altitude REAL,
			cadence REAL,
			power REAL,
			PRIMARY KEY (activity_id, sample_index),
			FOREIGN KEY (activity_id) REFERENCES activities(id) ON DELETE CASCADE
		)`,

		// Athlete profile (singleton row) and per-sport anchors
		`CREATE TABLE IF NOT EXISTS athlete_profile (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			weight_kg REAL NOT NULL,
			resting_hr REAL NOT NULL,
			version INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS sport_settings (
			sport TEXT PRIMARY KEY,
			lthr REAL NOT NULL,
			max_hr REAL NOT NULL,
			zones TEXT NOT NULL
		)`,

		// Wellness samples, real or simulated, one per day
		`CREATE TABLE IF NOT EXISTS wellness (
			date TEXT PRIMARY KEY,
			hrv REAL NOT NULL DEFAULT 0,
			sleep_hours REAL NOT NULL DEFAULT 0,
			resting_hr REAL NOT NULL DEFAULT 0,
			source TEXT NOT NULL,
			is_simulated INTEGER NOT NULL DEFAULT 0
		)`,

		// Sync State (key-value store for sync tracking)
		`CREATE TABLE IF NOT EXISTS sync_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}

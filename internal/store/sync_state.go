package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Sync state keys
const (
	SyncKeyLastActivityAt = "last_activity_at"
	SyncKeyLastRunID      = "last_run_id"
	SyncKeyLastRunAt      = "last_run_at"
)

// GetSyncState returns the value stored under key, or "" if unset
func (db *DB) GetSyncState(key string) (string, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetSyncState stores value under key
func (db *DB) SetSyncState(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO sync_state (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// GetSyncTime reads a timestamp sync key. An unset key yields the zero time.
func (db *DB) GetSyncTime(key string) (time.Time, error) {
	value, err := db.GetSyncState(key)
	if err != nil || value == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing sync state %s=%q: %w", key, value, err)
	}
	return t, nil
}

// SetSyncTime stores t under key in RFC 3339
func (db *DB) SetSyncTime(key string, t time.Time) error {
	return db.SetSyncState(key, t.UTC().Format(time.RFC3339))
}

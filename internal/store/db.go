package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrActivityNotFound is returned when an activity doesn't exist
var ErrActivityNotFound = errors.New("activity not found")

// ErrNoSettings is returned when no athlete settings have been saved yet
var ErrNoSettings = errors.New("athlete settings not found")

// DB wraps the SQLite connection and provides the application's data access layer
type DB struct {
	*sql.DB
}

// Open opens the SQLite database at path, creating it and its directory if necessary.
// An empty path uses ~/.trainload/data.db.
func Open(path string) (*DB, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("getting db path: %w", err)
		}
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db, err := wrap(sqlDB)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// OpenMemory opens a private in-memory database with migrations applied.
// A single connection is kept so every query sees the same database.
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	db, err := wrap(sqlDB)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func wrap(sqlDB *sql.DB) (*DB, error) {
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if err := migrate(sqlDB); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &DB{sqlDB}, nil
}

// DefaultPath returns ~/.trainload/data.db
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".trainload", "data.db"), nil
}

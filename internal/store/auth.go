package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoAuth is returned when no provider credentials are stored
var ErrNoAuth = errors.New("no authentication stored")

// GetAuth returns the stored provider credentials
func (db *DB) GetAuth() (*Auth, error) {
	var auth Auth
	var expiresAt int64
	err := db.QueryRow(`
		SELECT athlete_id, access_token, refresh_token, expires_at, scope
		FROM auth
		WHERE id = 1
	`).Scan(&auth.AthleteID, &auth.AccessToken, &auth.RefreshToken, &expiresAt, &auth.Scope)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNoAuth
	case err != nil:
		return nil, fmt.Errorf("reading auth: %w", err)
	}

	auth.ExpiresAt = time.Unix(expiresAt, 0)
	return &auth, nil
}

// SaveAuth replaces the stored credentials after a fresh authorization
func (db *DB) SaveAuth(auth *Auth) error {
	_, err := db.Exec(`
		INSERT INTO auth (id, athlete_id, access_token, refresh_token, expires_at, scope, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			athlete_id = excluded.athlete_id,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			scope = excluded.scope,
			updated_at = CURRENT_TIMESTAMP
	`, auth.AthleteID, auth.AccessToken, auth.RefreshToken, auth.ExpiresAt.Unix(), auth.Scope)
	if err != nil {
		return fmt.Errorf("saving auth: %w", err)
	}
	return nil
}

// UpdateTokens persists a refreshed token pair, keeping athlete and scope
func (db *DB) UpdateTokens(accessToken, refreshToken string, expiresAt time.Time) error {
	result, err := db.Exec(`
		UPDATE auth
		SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`, accessToken, refreshToken, expiresAt.Unix())
	if err != nil {
		return fmt.Errorf("updating tokens: %w", err)
	}

	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNoAuth
	}
	return nil
}

// DeleteAuth forgets the stored credentials
func (db *DB) DeleteAuth() error {
	_, err := db.Exec(`DELETE FROM auth WHERE id = 1`)
	return err
}

package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// RefreshBuffer is how long before expiry a token is treated as expired
const RefreshBuffer = 60 * time.Second

// TokenStore persists refreshed tokens. *store.DB satisfies it.
type TokenStore interface {
	UpdateTokens(accessToken, refreshToken string, expiresAt time.Time) error
}

// TokenSource wraps oauth2.TokenSource with persistence
// It automatically refreshes tokens and calls onRefresh when a new token is obtained
type TokenSource struct {
	config    *oauth2.Config
	token     *oauth2.Token
	onRefresh func(*oauth2.Token) error
	mu        sync.Mutex

	ctx context.Context
	now func() time.Time
}

// NewTokenSource creates a new TokenSource that will refresh tokens as needed
// and call onRefresh to persist new tokens
func NewTokenSource(cfg *oauth2.Config, token *oauth2.Token, onRefresh func(*oauth2.Token) error) *TokenSource {
	return &TokenSource{
		config:    cfg,
		token:     token,
		onRefresh: onRefresh,
		ctx:       context.Background(),
		now:       time.Now,
	}
}

// NewPersistentTokenSource refreshes tokens and writes them back to ts
func NewPersistentTokenSource(cfg *oauth2.Config, token *oauth2.Token, ts TokenStore) *TokenSource {
	return NewTokenSource(cfg, token, func(t *oauth2.Token) error {
		return ts.UpdateTokens(t.AccessToken, t.RefreshToken, t.Expiry)
	})
}

// WithContext sets the context used for refresh requests
func (ts *TokenSource) WithContext(ctx context.Context) *TokenSource {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.ctx = ctx
	return ts
}

// Token returns a valid token, refreshing if necessary
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !ts.expiredLocked() {
		return ts.token, nil
	}

	// Force a refresh: the expiry check above is stricter than oauth2's own
	expired := *ts.token
	expired.Expiry = ts.now().Add(-time.Second)
	newToken, err := ts.config.TokenSource(ts.ctx, &expired).Token()
	if err != nil {
		return nil, err
	}

	// Strava may rotate the refresh token; keep the old one if it doesn't
	if newToken.RefreshToken == "" {
		newToken.RefreshToken = ts.token.RefreshToken
	}

	// Persist the new token if callback is set
	if ts.onRefresh != nil {
		if err := ts.onRefresh(newToken); err != nil {
			return nil, err
		}
	}

	ts.token = newToken
	return newToken, nil
}

func (ts *TokenSource) expiredLocked() bool {
	return ts.token.Expiry.Sub(ts.now()) <= RefreshBuffer
}

// IsExpired checks if the current token is expired or will expire within the buffer
func (ts *TokenSource) IsExpired() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.expiredLocked()
}

// CurrentToken returns the current token without refreshing
func (ts *TokenSource) CurrentToken() *oauth2.Token {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.token
}

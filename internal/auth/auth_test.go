package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"trainload/internal/store"
)

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCode   string
		wantErr    error
	}{
		{"success", "?state=s1&code=abc&scope=read,activity:read_all", http.StatusOK, "abc", nil},
		{"state mismatch", "?state=other&code=abc", http.StatusBadRequest, "", ErrStateMismatch},
		{"provider error", "?state=s1&error=access_denied", http.StatusBadRequest, "", nil},
		{"missing code", "?state=s1", http.StatusBadRequest, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make(chan callbackResult, 1)
			rec := httptest.NewRecorder()
			callbackHandler("s1", results).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			res := <-results
			if tt.wantCode != "" {
				require.NoError(t, res.err)
				assert.Equal(t, tt.wantCode, res.code)
				assert.Equal(t, "read,activity:read_all", res.scope)
				return
			}
			require.Error(t, res.err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, res.err, tt.wantErr)
			}
		})
	}
}

func TestCallbackHandler_DeliversOnce(t *testing.T) {
	results := make(chan callbackResult, 1)
	h := callbackHandler("s1", results)
	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=x", nil))
	}
	assert.Len(t, results, 1)
}

type recordingStore struct {
	access, refresh string
	expires         time.Time
	calls           int
}

func (r *recordingStore) UpdateTokens(access, refresh string, expires time.Time) error {
	r.access, r.refresh, r.expires = access, refresh, expires
	r.calls++
	return nil
}

func tokenServer(t *testing.T, refreshToken string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	hits := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "new-access",
			"refresh_token": refreshToken,
			"token_type":    "Bearer",
			"expires_in":    21600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv, hits
}

func testOAuthConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}
}

func TestTokenSource_ValidTokenNotRefreshed(t *testing.T) {
	srv, hits := tokenServer(t, "new-refresh")
	db := &recordingStore{}
	token := &oauth2.Token{AccessToken: "old", RefreshToken: "r", Expiry: time.Now().Add(time.Hour)}

	ts := NewPersistentTokenSource(testOAuthConfig(srv.URL), token, db)
	got, err := ts.Token()
	require.NoError(t, err)

	assert.Equal(t, "old", got.AccessToken)
	assert.Zero(t, hits.Load())
	assert.Zero(t, db.calls)
	assert.False(t, ts.IsExpired())
}

func TestTokenSource_RefreshesWithinBuffer(t *testing.T) {
	srv, hits := tokenServer(t, "")
	db := &recordingStore{}
	// 30s left is inside the refresh buffer
	token := &oauth2.Token{AccessToken: "old", RefreshToken: "keep-me", Expiry: time.Now().Add(30 * time.Second)}

	ts := NewPersistentTokenSource(testOAuthConfig(srv.URL), token, db)
	assert.True(t, ts.IsExpired())

	got, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "new-access", got.AccessToken)
	assert.Equal(t, "keep-me", got.RefreshToken, "refresh token kept when the provider does not rotate it")
	assert.EqualValues(t, 1, hits.Load())

	assert.Equal(t, 1, db.calls)
	assert.Equal(t, "new-access", db.access)
	assert.Equal(t, "keep-me", db.refresh)

	// Second call uses the cached token
	_, err = ts.Token()
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load())
	assert.Equal(t, "new-access", ts.CurrentToken().AccessToken)
}

func TestTokenSource_PersistFailure(t *testing.T) {
	srv, _ := tokenServer(t, "rotated")
	token := &oauth2.Token{AccessToken: "old", RefreshToken: "r", Expiry: time.Now().Add(-time.Minute)}
	boom := errors.New("disk full")

	ts := NewTokenSource(testOAuthConfig(srv.URL), token, func(*oauth2.Token) error { return boom })
	_, err := ts.Token()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "old", ts.CurrentToken().AccessToken)
}

func TestConversions(t *testing.T) {
	token := (&oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: time.Unix(1700000000, 0)}).
		WithExtra(map[string]interface{}{"athlete": map[string]interface{}{"id": float64(1234)}})
	assert.Equal(t, int64(1234), ExtractAthleteID(token))
	assert.Zero(t, ExtractAthleteID(&oauth2.Token{}))

	result := &AuthResult{Token: token, AthleteID: 1234, Scope: "read"}
	a := result.StoreAuth()
	assert.Equal(t, store.Auth{AthleteID: 1234, AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Unix(1700000000, 0), Scope: "read"}, *a)

	back := TokenFromAuth(a)
	assert.Equal(t, "a", back.AccessToken)
	assert.True(t, back.Expiry.Equal(a.ExpiresAt))

	assert.Equal(t, "http://localhost:8089/callback", Config{}.RedirectURL())
	assert.Equal(t, "http://localhost:9000/callback", NewOAuthConfig(Config{CallbackPort: 9000}).RedirectURL)
}

func TestAuthenticate_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := Authenticate(ctx, testOAuthConfig("http://127.0.0.1:1/token"), 0, io.Discard, logger)
	// Either the port is busy or the cancelled context wins; never a token
	assert.Error(t, err)
}

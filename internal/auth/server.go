package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const (
	// CallbackPort is the default port for the OAuth callback server
	CallbackPort = 8089
	// AuthTimeout is how long to wait for the user to complete auth
	AuthTimeout = 5 * time.Minute
)

// ErrStateMismatch is returned when the callback's state doesn't match the request
var ErrStateMismatch = errors.New("state mismatch - possible CSRF attack")

const successPage = `<!DOCTYPE html>
<html>
<head><title>Authentication Successful</title></head>
<body style="font-family: system-ui; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0;">
<div style="text-align: center;">
<h1 style="color: #10B981;">Success!</h1>
<p>You can close this window and return to the terminal.</p>
</div>
</body>
</html>`

// callbackResult is what the provider redirect carried
type callbackResult struct {
	code  string
	scope string
	err   error
}

// callbackHandler validates the redirect and delivers exactly one result
func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	deliver := func(r callbackResult) {
		select {
		case results <- r:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			deliver(callbackResult{err: ErrStateMismatch})
			http.Error(w, "State mismatch", http.StatusBadRequest)
			return
		}

		if errMsg := q.Get("error"); errMsg != "" {
			deliver(callbackResult{err: fmt.Errorf("auth error: %s", errMsg)})
			http.Error(w, "Authentication failed", http.StatusBadRequest)
			return
		}

		code := q.Get("code")
		if code == "" {
			deliver(callbackResult{err: errors.New("no code in callback")})
			http.Error(w, "No authorization code", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, successPage)
		deliver(callbackResult{code: code, scope: q.Get("scope")})
	})
	return mux
}

// Authenticate runs the OAuth flow with a local callback server.
// The authorization URL is written to out for the user to open.
func Authenticate(ctx context.Context, cfg *oauth2.Config, port int, out io.Writer, logger *slog.Logger) (*AuthResult, error) {
	if port == 0 {
		port = CallbackPort
	}

	// Generate state for CSRF protection
	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("generating state: %w", err)
	}

	results := make(chan callbackResult, 1)
	serveErr := make(chan error, 1)

	// Start local server
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("starting callback server: %w", err)
	}

	server := &http.Server{Handler: callbackHandler(state, results), ReadHeaderTimeout: 10 * time.Second}
	defer shutdownServer(server, logger)

	go func() {
		if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Generate auth URL and prompt user
	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "To authenticate with Strava, open this URL in your browser:")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %s\n", authURL)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Waiting for authentication...")
	logger.Info("waiting for oauth callback", "port", port)

	// Wait for callback with timeout
	var res callbackResult
	select {
	case res = <-results:
	case err := <-serveErr:
		return nil, err
	case <-time.After(AuthTimeout):
		return nil, fmt.Errorf("authentication timeout after %v", AuthTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.err != nil {
		return nil, res.err
	}

	// Exchange code for token
	token, err := cfg.Exchange(ctx, res.code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for token: %w", err)
	}

	return &AuthResult{
		Token:     token,
		AthleteID: ExtractAthleteID(token),
		Scope:     res.scope,
	}, nil
}

// generateState creates a random state string for CSRF protection
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// shutdownServer gracefully shuts down the HTTP server
func shutdownServer(server *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("callback server shutdown", "error", err)
	}
}

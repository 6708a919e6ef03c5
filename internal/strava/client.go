package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

const BaseURL = "https://www.strava.com/api/v3"

// PerPage is the largest page Strava allows
const PerPage = 200

// streamKeys are the stream types requested for every activity
const streamKeys = "time,altitude,velocity_smooth,heartrate,cadence,watts,distance"

// ErrRateLimited is returned when Strava answers 429
var ErrRateLimited = errors.New("strava rate limit exceeded")

// APIError is a non-200 response from the API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

// Client is a Strava API client
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *RateLimiter
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another API root
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithRateLimiter replaces the default Strava limiter
func WithRateLimiter(r *RateLimiter) Option {
	return func(c *Client) { c.rateLimiter = r }
}

// NewClient creates a new Strava API client authorized by tokenSource
func NewClient(tokenSource oauth2.TokenSource, opts ...Option) *Client {
	return NewHTTPClient(oauth2.NewClient(context.Background(), tokenSource), opts...)
}

// NewHTTPClient creates a client on an already-authorized http.Client
func NewHTTPClient(hc *http.Client, opts ...Option) *Client {
	c := &Client{
		httpClient:  hc,
		baseURL:     BaseURL,
		rateLimiter: NewRateLimiter(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetActivities fetches activities with pagination
// Returns activities after 'after' timestamp, up to 'perPage' results
func (c *Client) GetActivities(ctx context.Context, after time.Time, page, perPage int) ([]Activity, error) {
	params := url.Values{}
	if !after.IsZero() {
		params.Set("after", strconv.FormatInt(after.Unix(), 10))
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	var activities []Activity
	if err := c.getJSON(ctx, "/athlete/activities", params, &activities); err != nil {
		return nil, fmt.Errorf("fetching activities: %w", err)
	}
	return activities, nil
}

// GetAllActivities fetches all activities after a given time
// It handles pagination automatically and respects rate limits
func (c *Client) GetAllActivities(ctx context.Context, after time.Time, onProgress func(fetched int)) ([]Activity, error) {
	var allActivities []Activity

	for page := 1; ; page++ {
		activities, err := c.GetActivities(ctx, after, page, PerPage)
		if err != nil {
			return allActivities, fmt.Errorf("fetching page %d: %w", page, err)
		}

		allActivities = append(allActivities, activities...)
		if onProgress != nil && len(activities) > 0 {
			onProgress(len(allActivities))
		}

		if len(activities) < PerPage {
			break // Last page
		}
	}

	return allActivities, nil
}

// GetActivityStreams fetches detailed stream data for an activity
func (c *Client) GetActivityStreams(ctx context.Context, activityID int64) (*Streams, error) {
	params := url.Values{}
	params.Set("keys", streamKeys)
	params.Set("key_by_type", "true")

	var streams Streams
	path := fmt.Sprintf("/activities/%d/streams", activityID)
	if err := c.getJSON(ctx, path, params, &streams); err != nil {
		return nil, fmt.Errorf("fetching streams for %d: %w", activityID, err)
	}
	return &streams, nil
}

// RateLimitStatus returns the current rate limit status
func (c *Client) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return c.rateLimiter.Status()
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, dst any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Update rate limiter from response headers
	c.rateLimiter.UpdateFromHeaders(resp.Header)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		c.rateLimiter.Exhaust()
		return ErrRateLimited
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

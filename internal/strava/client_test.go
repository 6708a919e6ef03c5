package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainload/internal/store"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.Client(),
		WithBaseURL(srv.URL),
		WithRateLimiter(NewRateLimiterWithLimits(100, 1000, 0)),
	)
}

func TestGetAllActivities_Paginates(t *testing.T) {
	var pages []int
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/athlete/activities", r.URL.Path)
		assert.Equal(t, "1700000000", r.URL.Query().Get("after"))

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		pages = append(pages, page)

		n := PerPage
		if page == 2 {
			n = 3
		}
		out := make([]Activity, n)
		for i := range out {
			out[i] = Activity{ID: int64(page*1000 + i), SportType: "Ride"}
		}
		w.Header().Set("X-RateLimit-Usage", "12,340")
		json.NewEncoder(w).Encode(out)
	}))

	var progress []int
	activities, err := client.GetAllActivities(context.Background(), time.Unix(1700000000, 0), func(n int) {
		progress = append(progress, n)
	})
	require.NoError(t, err)

	assert.Len(t, activities, PerPage+3)
	assert.Equal(t, []int{1, 2}, pages)
	assert.Equal(t, []int{PerPage, PerPage + 3}, progress)

	short, daily := client.RateLimitStatus()
	assert.Equal(t, 88, short)
	assert.Equal(t, 660, daily)
}

func TestGetActivityStreams(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/activities/42/streams", r.URL.Path)
		assert.Equal(t, streamKeys, r.URL.Query().Get("keys"))
		fmt.Fprint(w, `{
			"time": {"data": [0, 1, 2]},
			"heartrate": {"data": [120, 125, 130]},
			"velocity_smooth": {"data": [2.5, 2.6, 2.7]},
			"watts": {"data": [180, 190, 200]}
		}`)
	}))

	streams, err := client.GetActivityStreams(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, 3, streams.Len())
	assert.True(t, streams.HasHeartrate())

	s := streams.ToStore()
	assert.Equal(t, []int{0, 1, 2}, s.Time)
	assert.Equal(t, []float64{120, 125, 130}, s.Heartrate)
	assert.Equal(t, []float64{180, 190, 200}, s.Power)
	assert.Nil(t, s.Altitude)
}

func TestClientErrors(t *testing.T) {
	t.Run("rate limited", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		_, err := client.GetActivities(context.Background(), time.Time{}, 1, 10)
		assert.ErrorIs(t, err, ErrRateLimited)
		short, _ := client.RateLimitStatus()
		assert.Equal(t, 0, short)
	})

	t.Run("api error", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "not found", http.StatusNotFound)
		}))
		_, err := client.GetActivityStreams(context.Background(), 7)

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
		assert.Contains(t, apiErr.Body, "not found")
	})

	t.Run("bad json", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[{"id": "nope"`)
		}))
		_, err := client.GetActivities(context.Background(), time.Time{}, 1, 10)
		assert.Error(t, err)
	})
}

func TestActivityToStore(t *testing.T) {
	local := time.Date(2024, 3, 10, 6, 30, 0, 0, time.UTC)
	a := Activity{
		ID:               9,
		Name:             "Morning Ride",
		Type:             "Ride",
		SportType:        "GravelRide",
		StartDate:        local.Add(5 * time.Hour),
		StartDateLocal:   local,
		Distance:         40000,
		MovingTime:       5400,
		ElapsedTime:      6000,
		AverageHeartrate: 142,
		AverageSpeed:     7.4,
		AverageWatts:     185,
		DeviceWatts:      true,
		HasHeartrate:     true,
	}

	got := a.ToStore()
	assert.Equal(t, store.SportBike, got.Sport)
	assert.Equal(t, Source, got.Source)
	assert.Equal(t, 90.0, got.DurationMin)
	assert.Equal(t, 185.0, got.AveragePower)
	assert.Equal(t, local, got.StartDateLocal)
	assert.False(t, got.StreamsSynced)

	// Estimated power is not measured power
	a.DeviceWatts = false
	a.MovingTime = 0
	got = a.ToStore()
	assert.Zero(t, got.AveragePower)
	assert.Equal(t, 100.0, got.DurationMin)

	// Older payloads only carry type
	a.SportType = ""
	a.Type = "Run"
	assert.Equal(t, store.SportRun, a.ToStore().Sport)
}

func TestStreamsToStore_Empty(t *testing.T) {
	var s *Streams
	assert.Nil(t, s.ToStore())
	assert.Nil(t, (&Streams{Time: &StreamData[int]{}}).ToStore())
}

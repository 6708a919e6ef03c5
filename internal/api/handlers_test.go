package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainload/internal/analysis"
	"trainload/internal/service"
	"trainload/internal/store"
)

var day = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

type fakeSnapshotter struct {
	snap  *service.Snapshot
	err   error
	calls []service.ComputeOptions
}

func (f *fakeSnapshotter) Compute(ctx context.Context, opts service.ComputeOptions) (*service.Snapshot, error) {
	f.calls = append(f.calls, opts)
	if f.err != nil {
		return nil, f.err
	}
	snap := *f.snap
	snap.Lookback = opts.Lookback
	return &snap, nil
}

func testSnapshot() *service.Snapshot {
	series := make([]analysis.DailyLoadPoint, 14)
	for i := range series {
		series[i] = analysis.DailyLoadPoint{Date: day.AddDate(0, 0, i), CTL: float64(i), ATL: 2 * float64(i), TSB: -float64(i), DailyTSS: 60}
	}
	run := analysis.SportScope(store.SportRun)
	return &service.Snapshot{
		GeneratedAt: day.AddDate(0, 0, 13),
		Series:      series,
		Current:     series[13],
		Weekly:      analysis.WeeklyStats{WeeklyTSS: 420, Mean: 60, Monotony: 10, Saturated: true, ACWR: 1},
		RampRate:    7,
		Phase:       analysis.PhaseProductive,
		Form:        "Fatigued",
		Scopes:      []analysis.Scope{analysis.ScopeAll, run},
		Peaks: map[analysis.Scope][]analysis.PeakRecord{
			analysis.ScopeAll: {{Scope: analysis.ScopeAll, Metric: analysis.MetricSpeed, WindowSeconds: 300, Value: 4, ActivityID: 3, ActivityName: "Tempo", Date: day}},
			run:               {{Scope: run, Metric: analysis.MetricHeartRate, WindowSeconds: 60, Value: 178, ActivityID: 3, ActivityName: "Tempo", Date: day}},
		},
		Skipped: []analysis.SkippedActivity{{ActivityID: 9, Reason: analysis.ErrTimeNotMonotonic}},
		VO2max: map[store.Sport]analysis.VO2maxEstimate{
			store.SportBike: {Sport: store.SportBike, Value: 48, Method: analysis.MethodHRRatio, Heuristic: true},
			store.SportRun:  {Sport: store.SportRun, Value: 52.5, Method: analysis.MethodRunSpeed, ActivityID: 3, Date: day},
		},
		Readiness: []analysis.ReadinessSample{
			{Date: day.AddDate(0, 0, 12), Score: 80, IsSimulated: true},
			{Date: day.AddDate(0, 0, 13), Score: 63, Penalties: analysis.ReadinessPenalties{Load: 12, Sleep: 25}, SleepHours: 4.5, IsSimulated: true},
		},
		SimulatedWellness: true,
	}
}

func newTestHandler(f *fakeSnapshotter) http.Handler {
	h := NewHandler(f, analysis.Lookback90Days, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.now = func() time.Time { return day.AddDate(0, 0, 13) }
	return h.Routes()
}

func get(t *testing.T, handler http.Handler, target string, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func TestLoad(t *testing.T) {
	f := &fakeSnapshotter{snap: testSnapshot()}
	handler := newTestHandler(f)

	var view LoadView
	rec := get(t, handler, "/v1/load", &view)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Len(t, view.Series, 14)
	assert.Equal(t, "2024-03-17", view.Current.Date)
	assert.Equal(t, 13.0, view.Current.CTL)
	assert.Equal(t, "productive", view.Phase)
	assert.Equal(t, 7.0, view.RampRate)

	require.Len(t, f.calls, 1)
	assert.Equal(t, analysis.Lookback90Days, f.calls[0].Lookback)
	assert.True(t, f.calls[0].Now.Equal(day.AddDate(0, 0, 13)))

	rec = get(t, handler, "/v1/load?days=3", &view)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, view.Series, 3)
	assert.Equal(t, "2024-03-15", view.Series[0].Date)

	rec = get(t, handler, "/v1/load?days=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWeekly(t *testing.T) {
	var view WeeklyView
	rec := get(t, newTestHandler(&fakeSnapshotter{snap: testSnapshot()}), "/v1/weekly", &view)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 420.0, view.WeeklyTSS)
	assert.Equal(t, 10.0, view.Monotony)
	assert.True(t, view.Saturated)
	assert.Contains(t, rec.Body.String(), `"monotony_saturated":true`)
}

func TestPeaks(t *testing.T) {
	f := &fakeSnapshotter{snap: testSnapshot()}
	handler := newTestHandler(f)

	var view PeaksView
	rec := get(t, handler, "/v1/peaks?lookback=1y", &view)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, analysis.LookbackYear, f.calls[0].Lookback)
	assert.Equal(t, "365d", view.Lookback)

	require.Len(t, view.Scopes["all"], 1)
	speed := view.Scopes["all"][0]
	assert.Equal(t, "speed", speed.Metric)
	assert.Equal(t, 250.0, speed.PaceSecPerKm)
	assert.Zero(t, view.Scopes["Run"][0].PaceSecPerKm)

	require.Len(t, view.Skipped, 1)
	assert.Equal(t, int64(9), view.Skipped[0].ActivityID)

	rec = get(t, handler, "/v1/peaks?lookback=soon", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, f.calls, 1, "invalid requests do not compute")
}

func TestVO2max(t *testing.T) {
	var body map[string][]VO2maxView
	rec := get(t, newTestHandler(&fakeSnapshotter{snap: testSnapshot()}), "/v1/vo2max", &body)
	require.Equal(t, http.StatusOK, rec.Code)

	estimates := body["estimates"]
	require.Len(t, estimates, 2)
	assert.Equal(t, "Run", estimates[0].Sport)
	assert.Equal(t, "2024-03-04", estimates[0].Date)
	assert.Equal(t, "Bike", estimates[1].Sport)
	assert.True(t, estimates[1].Heuristic)
	assert.Equal(t, "hr_ratio", estimates[1].Method)
	assert.Empty(t, estimates[1].Date)
}

func TestReadiness(t *testing.T) {
	var view ReadinessListView
	rec := get(t, newTestHandler(&fakeSnapshotter{snap: testSnapshot()}), "/v1/readiness?days=1", &view)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.True(t, view.Simulated)
	assert.Equal(t, 1.0, view.SimulatedShare)
	require.Len(t, view.Days, 1)
	require.NotNil(t, view.Latest)
	assert.Equal(t, "2024-03-17", view.Latest.Date)
	assert.Equal(t, 63.0, view.Latest.Score)
	assert.Equal(t, 25.0, view.Latest.Penalties["sleep"])
	assert.True(t, view.Latest.IsSimulated)
}

func TestReadiness_Empty(t *testing.T) {
	snap := testSnapshot()
	snap.Readiness = nil
	snap.SimulatedWellness = false

	rec := get(t, newTestHandler(&fakeSnapshotter{snap: snap}), "/v1/readiness", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"simulated":false,"simulated_share":0,"days":[]}`, rec.Body.String())
}

func TestErrors(t *testing.T) {
	handler := newTestHandler(&fakeSnapshotter{err: errors.New("database is locked")})

	rec := get(t, handler, "/v1/load", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"type":"server_error","detail":"database is locked"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/weekly", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	handler := newTestHandler(&fakeSnapshotter{snap: testSnapshot()})

	rec := get(t, handler, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = get(t, handler, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "trainload_pipeline_duration_seconds")
}

func TestServer_Serve(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(ln.Addr().String(), newTestHandler(&fakeSnapshotter{snap: testSnapshot()}), logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", strings.TrimSpace(string(body)))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

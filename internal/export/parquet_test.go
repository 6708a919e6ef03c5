package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/reader"

	"trainload/internal/analysis"
	"trainload/internal/service"
	"trainload/internal/store"
)

var day = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func readRows[T any](t *testing.T, data []byte) []T {
	t.Helper()
	pf := parquetbuffer.NewBufferFileFromBytes(data)
	pr, err := reader.NewParquetReader(pf, new(T), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	rows := make([]T, pr.GetNumRows())
	require.NoError(t, pr.Read(&rows))
	return rows
}

func testSnapshot() *service.Snapshot {
	series := make([]analysis.DailyLoadPoint, 10)
	for i := range series {
		series[i] = analysis.DailyLoadPoint{
			Date:     day.AddDate(0, 0, i),
			CTL:      float64(i),
			ATL:      float64(2 * i),
			TSB:      float64(-i),
			DailyTSS: 50,
		}
	}
	run := analysis.SportScope(store.SportRun)
	return &service.Snapshot{
		Series: series,
		Readiness: []analysis.ReadinessSample{{
			Date:        day.AddDate(0, 0, 9),
			Score:       72,
			Penalties:   analysis.ReadinessPenalties{Load: 20, Sleep: 8},
			PriorDayTSS: 50,
			SleepHours:  6.5,
			IsSimulated: true,
		}},
		Lookback: analysis.Lookback90Days,
		Scopes:   []analysis.Scope{analysis.ScopeAll, run},
		Peaks: map[analysis.Scope][]analysis.PeakRecord{
			analysis.ScopeAll: {{Scope: analysis.ScopeAll, Metric: analysis.MetricHeartRate, WindowSeconds: 60, Value: 171, ActivityID: 7, ActivityName: "Intervals", Date: day}},
			run:               {{Scope: run, Metric: analysis.MetricSpeed, WindowSeconds: 300, Value: 4.2, ActivityID: 7, ActivityName: "Intervals", Date: day}},
		},
	}
}

func TestLoadSeries(t *testing.T) {
	snap := testSnapshot()
	data, err := LoadSeries(snap.Series)
	require.NoError(t, err)
	assert.Equal(t, "PAR1", string(data[:4]))

	rows := readRows[loadRow](t, data)
	require.Len(t, rows, 10)
	assert.Equal(t, "2024-03-04", rows[0].Date)
	assert.Equal(t, 9.0, rows[9].CTL)
	assert.Equal(t, 50.0, rows[9].DailyTSS)
	assert.Zero(t, rows[0].RampRate, "no ramp before a week of history")
	assert.Equal(t, analysis.RampRate(snap.Series, 9), rows[9].RampRate)
}

func TestReadiness(t *testing.T) {
	data, err := Readiness(testSnapshot().Readiness)
	require.NoError(t, err)

	rows := readRows[readinessRow](t, data)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-03-13", rows[0].Date)
	assert.Equal(t, 72.0, rows[0].Score)
	assert.Equal(t, 20.0, rows[0].LoadPenalty)
	assert.Equal(t, 8.0, rows[0].SleepPenalty)
	assert.True(t, rows[0].IsSimulated)
}

func TestPeaks(t *testing.T) {
	snap := testSnapshot()
	data, err := Peaks(snap.Peaks, snap.Scopes, snap.Lookback)
	require.NoError(t, err)

	rows := readRows[peakRow](t, data)
	require.Len(t, rows, 2)
	assert.Equal(t, "all", rows[0].Scope)
	assert.Equal(t, "heartrate", rows[0].Metric)
	assert.Equal(t, int64(60), rows[0].WindowSeconds)
	assert.Equal(t, "Run", rows[1].Scope)
	assert.Equal(t, "90d", rows[1].Lookback)
}

func TestWriteSnapshot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := WriteSnapshot(dir, testSnapshot())
	require.NoError(t, err)
	require.Len(t, paths, 3)

	for _, name := range []string{LoadFile, ReadinessFile, PeaksFile} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Equal(t, "PAR1", string(data[:4]), name)
	}
}

func TestEmptyInputs(t *testing.T) {
	data, err := LoadSeries(nil)
	require.NoError(t, err)
	assert.Empty(t, readRows[loadRow](t, data))

	data, err = Peaks(nil, nil, analysis.LookbackAll)
	require.NoError(t, err)
	assert.Empty(t, readRows[peakRow](t, data))
}

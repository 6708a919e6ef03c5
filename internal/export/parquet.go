// Package export writes derived training series as parquet files.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"trainload/internal/analysis"
	"trainload/internal/service"
)

const dateLayout = "2006-01-02"

// File names written by WriteSnapshot
const (
	LoadFile      = "load.parquet"
	ReadinessFile = "readiness.parquet"
	PeaksFile     = "peaks.parquet"
)

type loadRow struct {
	Date     string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	DailyTSS float64 `parquet:"name=daily_tss, type=DOUBLE"`
	CTL      float64 `parquet:"name=ctl, type=DOUBLE"`
	ATL      float64 `parquet:"name=atl, type=DOUBLE"`
	TSB      float64 `parquet:"name=tsb, type=DOUBLE"`
	RampRate float64 `parquet:"name=ramp_rate, type=DOUBLE"`
}

type readinessRow struct {
	Date             string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Score            float64 `parquet:"name=score, type=DOUBLE"`
	PriorDayTSS      float64 `parquet:"name=prior_day_tss, type=DOUBLE"`
	HRV              float64 `parquet:"name=hrv_ms, type=DOUBLE"`
	HRVBaseline      float64 `parquet:"name=hrv_baseline_ms, type=DOUBLE"`
	SleepHours       float64 `parquet:"name=sleep_hours, type=DOUBLE"`
	RestingHR        float64 `parquet:"name=resting_hr, type=DOUBLE"`
	RHRBaseline      float64 `parquet:"name=resting_hr_baseline, type=DOUBLE"`
	LoadPenalty      float64 `parquet:"name=load_penalty, type=DOUBLE"`
	SleepPenalty     float64 `parquet:"name=sleep_penalty, type=DOUBLE"`
	HRVPenalty       float64 `parquet:"name=hrv_penalty, type=DOUBLE"`
	RestingHRPenalty float64 `parquet:"name=resting_hr_penalty, type=DOUBLE"`
	IsSimulated      bool    `parquet:"name=is_simulated, type=BOOLEAN"`
}

type peakRow struct {
	Scope         string  `parquet:"name=scope, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Metric        string  `parquet:"name=metric, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	WindowSeconds int64   `parquet:"name=window_s, type=INT64"`
	Value         float64 `parquet:"name=value, type=DOUBLE"`
	ActivityID    int64   `parquet:"name=activity_id, type=INT64"`
	ActivityName  string  `parquet:"name=activity_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Date          string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Lookback      string  `parquet:"name=lookback, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
}

// LoadSeries encodes the daily load series
func LoadSeries(series []analysis.DailyLoadPoint) ([]byte, error) {
	rows := make([]loadRow, len(series))
	for i, p := range series {
		rows[i] = loadRow{
			Date:     p.Date.Format(dateLayout),
			DailyTSS: p.DailyTSS,
			CTL:      p.CTL,
			ATL:      p.ATL,
			TSB:      p.TSB,
			RampRate: analysis.RampRate(series, i),
		}
	}
	return marshal(rows)
}

// Readiness encodes readiness samples with their penalty breakdown
func Readiness(samples []analysis.ReadinessSample) ([]byte, error) {
	rows := make([]readinessRow, len(samples))
	for i, r := range samples {
		rows[i] = readinessRow{
			Date:             r.Date.Format(dateLayout),
			Score:            r.Score,
			PriorDayTSS:      r.PriorDayTSS,
			HRV:              r.HRV,
			HRVBaseline:      r.HRVBaseline,
			SleepHours:       r.SleepHours,
			RestingHR:        r.RestingHR,
			RHRBaseline:      r.RHRBaseline,
			LoadPenalty:      r.Penalties.Load,
			SleepPenalty:     r.Penalties.Sleep,
			HRVPenalty:       r.Penalties.HRV,
			RestingHRPenalty: r.Penalties.RestingHR,
			IsSimulated:      r.IsSimulated,
		}
	}
	return marshal(rows)
}

// Peaks encodes peak records of every scope in scope order
func Peaks(peaks map[analysis.Scope][]analysis.PeakRecord, scopes []analysis.Scope, lookback analysis.Lookback) ([]byte, error) {
	var rows []peakRow
	for _, scope := range scopes {
		for _, r := range peaks[scope] {
			rows = append(rows, peakRow{
				Scope:         string(r.Scope),
				Metric:        string(r.Metric),
				WindowSeconds: int64(r.WindowSeconds),
				Value:         r.Value,
				ActivityID:    r.ActivityID,
				ActivityName:  r.ActivityName,
				Date:          r.Date.Format(dateLayout),
				Lookback:      lookback.String(),
			})
		}
	}
	return marshal(rows)
}

// WriteSnapshot writes the load, readiness and peak files into dir and
// returns the paths written
func WriteSnapshot(dir string, snap *service.Snapshot) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating export dir: %w", err)
	}

	files := []struct {
		name   string
		encode func() ([]byte, error)
	}{
		{LoadFile, func() ([]byte, error) { return LoadSeries(snap.Series) }},
		{ReadinessFile, func() ([]byte, error) { return Readiness(snap.Readiness) }},
		{PeaksFile, func() ([]byte, error) { return Peaks(snap.Peaks, snap.Scopes, snap.Lookback) }},
	}

	var written []string
	for _, f := range files {
		data, err := f.encode()
		if err != nil {
			return written, fmt.Errorf("encoding %s: %w", f.name, err)
		}
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return written, fmt.Errorf("writing %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func marshal[T any](rows []T) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	pw, err := writer.NewParquetWriter(fw, new(T), 4)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return nil, err
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}

package service

import (
	"fmt"

	"trainload/internal/analysis"
	"trainload/internal/store"
)

// QueryService provides read-only queries for the TUI and API
type QueryService struct {
	store    *store.DB
	pipeline *Pipeline
}

// NewQueryService creates a new query service
func NewQueryService(db *store.DB, pipeline *Pipeline) *QueryService {
	return &QueryService{store: db, pipeline: pipeline}
}

// KmSplit represents stats for a single kilometer
type KmSplit struct {
	Km       int
	Duration int // seconds
	AvgHR    float64
}

// HRZoneTime represents time spent in an HR zone
type HRZoneTime struct {
	Zone    int
	Name    string
	Ceiling float64 // bpm
	Seconds int
	Percent float64
}

// ActivityDetail contains detailed info for a single activity
type ActivityDetail struct {
	Activity  store.Activity
	Metrics   analysis.ActivityMetrics
	Splits    []KmSplit
	HRZones   []HRZoneTime
	SpeedData []float64 // per-minute mean speed for charting (m/s)
	HRData    []float64 // per-minute mean HR for charting
	MaxHR     float64   // observed
}

// RecentActivities returns the newest activities of a snapshot, newest first
func RecentActivities(snap *Snapshot, limit int) []store.Activity {
	if snap == nil {
		return nil
	}
	n := len(snap.Activities)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]store.Activity, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, snap.Activities[i])
	}
	return out
}

// GetActivityDetailByID returns detailed analysis for a single activity
func (q *QueryService) GetActivityDetailByID(id int64) (*ActivityDetail, error) {
	activity, err := q.store.GetActivity(id)
	if err != nil {
		return nil, err
	}

	streams, err := q.store.GetStreams(id)
	if err != nil {
		return nil, fmt.Errorf("loading streams for %d: %w", id, err)
	}
	activity.Streams = streams

	settings, err := q.pipeline.Settings()
	if err != nil {
		return nil, err
	}

	metrics := analysis.ComputeActivityMetrics(*activity, settings)
	activity.TSS = metrics.TSS

	detail := &ActivityDetail{
		Activity: *activity,
		Metrics:  metrics,
	}
	if analysis.ValidateStreams(streams) != nil {
		return detail, nil
	}

	ss, _ := analysis.ResolveSportSettings(settings, activity.Sport)
	zones := ss.Zones
	if zones[4] <= 0 {
		zones = analysis.DefaultZones(ss.MaxHR)
	}

	detail.HRZones = calculateHRZones(streams, zones)
	detail.Splits = calculateSplits(streams)
	detail.SpeedData, detail.HRData = perMinute(streams)
	for _, hr := range streams.Heartrate {
		if hr > detail.MaxHR {
			detail.MaxHR = hr
		}
	}
	return detail, nil
}

var zoneNames = [5]string{"Recovery", "Endurance", "Tempo", "Threshold", "Maximum"}

// calculateHRZones attributes each sample interval to the zone of its closing heart rate
func calculateHRZones(s *store.Streams, ceilings [5]float64) []HRZoneTime {
	zones := make([]HRZoneTime, len(ceilings))
	for i := range zones {
		zones[i] = HRZoneTime{Zone: i + 1, Name: zoneNames[i], Ceiling: ceilings[i]}
	}
	if !s.HasHeartrate() {
		return zones
	}

	total := 0
	for i := 1; i < s.Len(); i++ {
		hr := s.Heartrate[i]
		dt := s.Time[i] - s.Time[i-1]
		if hr < analysis.MinPlausibleHR || dt <= 0 {
			continue
		}
		idx := len(ceilings) - 1
		for z, ceiling := range ceilings {
			if hr <= ceiling {
				idx = z
				break
			}
		}
		zones[idx].Seconds += dt
		total += dt
	}

	if total > 0 {
		for i := range zones {
			zones[i].Percent = float64(zones[i].Seconds) / float64(total) * 100
		}
	}
	return zones
}

// calculateSplits integrates speed over time into whole-kilometer splits
func calculateSplits(s *store.Streams) []KmSplit {
	if len(s.Speed) == 0 {
		return nil
	}

	var splits []KmSplit
	var distance, hrSum float64
	var hrCount int
	splitStart := s.Time[0]

	for i := 1; i < s.Len(); i++ {
		dt := s.Time[i] - s.Time[i-1]
		if dt <= 0 {
			continue
		}
		distance += s.Speed[i] * float64(dt)
		if s.HasHeartrate() && s.Heartrate[i] > 0 {
			hrSum += s.Heartrate[i]
			hrCount++
		}

		if distance >= 1000*float64(len(splits)+1) {
			split := KmSplit{Km: len(splits) + 1, Duration: s.Time[i] - splitStart}
			if hrCount > 0 {
				split.AvgHR = hrSum / float64(hrCount)
			}
			splits = append(splits, split)
			splitStart = s.Time[i]
			hrSum, hrCount = 0, 0
		}
	}
	return splits
}

// perMinute buckets samples by elapsed minute
func perMinute(s *store.Streams) (speed, hr []float64) {
	minutes := s.Time[s.Len()-1]/60 + 1
	speedSum := make([]float64, minutes)
	hrSum := make([]float64, minutes)
	speedN := make([]int, minutes)
	hrN := make([]int, minutes)

	for i, t := range s.Time {
		m := t / 60
		if m < 0 {
			continue
		}
		if len(s.Speed) > 0 && s.Speed[i] >= 0 {
			speedSum[m] += s.Speed[i]
			speedN[m]++
		}
		if s.HasHeartrate() && s.Heartrate[i] > 0 {
			hrSum[m] += s.Heartrate[i]
			hrN[m]++
		}
	}

	speed = make([]float64, minutes)
	hr = make([]float64, minutes)
	for m := 0; m < minutes; m++ {
		if speedN[m] > 0 {
			speed[m] = speedSum[m] / float64(speedN[m])
		}
		if hrN[m] > 0 {
			hr[m] = hrSum[m] / float64(hrN[m])
		}
	}
	return speed, hr
}

package api

import (
	"time"

	"trainload/internal/analysis"
	"trainload/internal/service"
)

const dateLayout = "2006-01-02"

// LoadPointView is one day of the load series
type LoadPointView struct {
	Date     string  `json:"date"`
	DailyTSS float64 `json:"daily_tss"`
	CTL      float64 `json:"ctl"`
	ATL      float64 `json:"atl"`
	TSB      float64 `json:"tsb"`
}

// LoadView is the response of /v1/load
type LoadView struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Current     LoadPointView   `json:"current"`
	RampRate    float64         `json:"ramp_rate"`
	Phase       string          `json:"phase"`
	Form        string          `json:"form"`
	Series      []LoadPointView `json:"series"`
}

// WeeklyView is the response of /v1/weekly
type WeeklyView struct {
	WeeklyTSS float64 `json:"weekly_tss"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std_dev"`
	Monotony  float64 `json:"monotony"`
	Strain    float64 `json:"strain"`
	ACWR      float64 `json:"acwr"`
	Saturated bool    `json:"monotony_saturated"`
}

// PeakView is one best rolling average
type PeakView struct {
	Metric        string  `json:"metric"`
	WindowSeconds int     `json:"window_s"`
	Value         float64 `json:"value"`
	PaceSecPerKm  float64 `json:"pace_s_per_km,omitempty"`
	ActivityID    int64   `json:"activity_id"`
	ActivityName  string  `json:"activity_name"`
	Date          string  `json:"date"`
}

// PeaksView is the response of /v1/peaks
type PeaksView struct {
	Lookback string                `json:"lookback"`
	Scopes   map[string][]PeakView `json:"scopes"`
	Skipped  []SkippedView         `json:"skipped,omitempty"`
}

// SkippedView names an activity left out of stream calculations
type SkippedView struct {
	ActivityID int64  `json:"activity_id"`
	Reason     string `json:"reason"`
}

// VO2maxView is one sport's estimate
type VO2maxView struct {
	Sport      string  `json:"sport"`
	Value      float64 `json:"value"`
	Method     string  `json:"method"`
	Heuristic  bool    `json:"heuristic"`
	ActivityID int64   `json:"activity_id,omitempty"`
	Date       string  `json:"date,omitempty"`
}

// ReadinessView is one day's readiness score with its breakdown
type ReadinessView struct {
	Date        string             `json:"date"`
	Score       float64            `json:"score"`
	Penalties   map[string]float64 `json:"penalties"`
	PriorDayTSS float64            `json:"prior_day_tss"`
	HRV         float64            `json:"hrv_ms,omitempty"`
	HRVBaseline float64            `json:"hrv_baseline_ms,omitempty"`
	HRVNormal   bool               `json:"hrv_in_normal_band"`
	RestingHR   float64            `json:"resting_hr,omitempty"`
	SleepHours  float64            `json:"sleep_hours,omitempty"`
	IsSimulated bool               `json:"is_simulated"`
}

// ReadinessListView is the response of /v1/readiness
type ReadinessListView struct {
	Simulated      bool            `json:"simulated"`
	SimulatedShare float64         `json:"simulated_share"` // of the returned days
	Latest         *ReadinessView  `json:"latest,omitempty"`
	Days           []ReadinessView `json:"days"`
}

func toLoadPointView(p analysis.DailyLoadPoint) LoadPointView {
	v := LoadPointView{DailyTSS: p.DailyTSS, CTL: p.CTL, ATL: p.ATL, TSB: p.TSB}
	if !p.Date.IsZero() {
		v.Date = p.Date.Format(dateLayout)
	}
	return v
}

func toLoadView(snap *service.Snapshot, days int) LoadView {
	series := snap.Series
	if days > 0 && len(series) > days {
		series = series[len(series)-days:]
	}
	points := make([]LoadPointView, len(series))
	for i, p := range series {
		points[i] = toLoadPointView(p)
	}
	return LoadView{
		GeneratedAt: snap.GeneratedAt,
		Current:     toLoadPointView(snap.Current),
		RampRate:    snap.RampRate,
		Phase:       string(snap.Phase),
		Form:        snap.Form,
		Series:      points,
	}
}

func toWeeklyView(w analysis.WeeklyStats) WeeklyView {
	return WeeklyView{
		WeeklyTSS: w.WeeklyTSS,
		Mean:      w.Mean,
		StdDev:    w.StdDev,
		Monotony:  w.Monotony,
		Strain:    w.Strain,
		ACWR:      w.ACWR,
		Saturated: w.Saturated,
	}
}

func toPeaksView(snap *service.Snapshot) PeaksView {
	view := PeaksView{
		Lookback: snap.Lookback.String(),
		Scopes:   make(map[string][]PeakView, len(snap.Scopes)),
	}
	for _, scope := range snap.Scopes {
		records := snap.Peaks[scope]
		peaks := make([]PeakView, len(records))
		for i, r := range records {
			peaks[i] = PeakView{
				Metric:        string(r.Metric),
				WindowSeconds: r.WindowSeconds,
				Value:         r.Value,
				ActivityID:    r.ActivityID,
				ActivityName:  r.ActivityName,
				Date:          r.Date.Format(dateLayout),
			}
			if r.Metric == analysis.MetricSpeed {
				peaks[i].PaceSecPerKm = analysis.PaceSecondsPerKm(r.Value)
			}
		}
		view.Scopes[string(scope)] = peaks
	}
	for _, s := range snap.Skipped {
		view.Skipped = append(view.Skipped, SkippedView{ActivityID: s.ActivityID, Reason: s.Reason.Error()})
	}
	return view
}

func toVO2maxViews(snap *service.Snapshot) []VO2maxView {
	views := make([]VO2maxView, 0, len(snap.VO2max))
	for _, sport := range service.VO2maxSports {
		est, ok := snap.VO2max[sport]
		if !ok {
			continue
		}
		v := VO2maxView{
			Sport:      string(est.Sport),
			Value:      est.Value,
			Method:     string(est.Method),
			Heuristic:  est.Heuristic,
			ActivityID: est.ActivityID,
		}
		if !est.Date.IsZero() {
			v.Date = est.Date.Format(dateLayout)
		}
		views = append(views, v)
	}
	return views
}

func toReadinessView(r analysis.ReadinessSample) ReadinessView {
	return ReadinessView{
		Date:  r.Date.Format(dateLayout),
		Score: r.Score,
		Penalties: map[string]float64{
			"load":       r.Penalties.Load,
			"sleep":      r.Penalties.Sleep,
			"hrv":        r.Penalties.HRV,
			"resting_hr": r.Penalties.RestingHR,
		},
		PriorDayTSS: r.PriorDayTSS,
		HRV:         r.HRV,
		HRVBaseline: r.HRVBaseline,
		HRVNormal:   r.InNormalBand(),
		RestingHR:   r.RestingHR,
		SleepHours:  r.SleepHours,
		IsSimulated: r.IsSimulated,
	}
}

func toReadinessListView(snap *service.Snapshot, days int) ReadinessListView {
	samples := snap.Readiness
	if days > 0 && len(samples) > days {
		samples = samples[len(samples)-days:]
	}
	view := ReadinessListView{
		Simulated:      snap.SimulatedWellness,
		SimulatedShare: analysis.SimulatedShare(samples),
		Days:           make([]ReadinessView, len(samples)),
	}
	for i, r := range samples {
		view.Days[i] = toReadinessView(r)
	}
	if latest, ok := snap.LatestReadiness(); ok {
		v := toReadinessView(latest)
		view.Latest = &v
	}
	return view
}

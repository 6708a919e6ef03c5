package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"trainload/internal/analysis"
	"trainload/internal/observability"
	"trainload/internal/store"
)

// PipelineOptions are the analysis settings taken from configuration
type PipelineOptions struct {
	Constants           analysis.LoadConstants
	MonotonySentinel    float64
	Coverage            float64
	BaselineDays        int
	SimulateWhenMissing bool

	// Seed is written to the store when no athlete settings exist yet
	Seed store.AthleteSettings
}

// ComputeOptions select the view of one pipeline run
type ComputeOptions struct {
	Lookback analysis.Lookback
	Now      time.Time
}

// Snapshot is the full derived state of one pipeline run
type Snapshot struct {
	GeneratedAt     time.Time
	SettingsVersion int64
	Activities      []store.Activity // ascending, with TSS set

	Series   []analysis.DailyLoadPoint
	Current  analysis.DailyLoadPoint
	Weekly   analysis.WeeklyStats
	RampRate float64
	Phase    analysis.TrainingPhase
	Form     string

	Lookback analysis.Lookback
	Peaks    map[analysis.Scope][]analysis.PeakRecord
	Scopes   []analysis.Scope

	VO2max map[store.Sport]analysis.VO2maxEstimate

	Readiness         []analysis.ReadinessSample
	SimulatedWellness bool

	Substitutions []analysis.Substitution
	Skipped       []analysis.SkippedActivity
}

// LatestReadiness returns the most recent readiness sample
func (s *Snapshot) LatestReadiness() (analysis.ReadinessSample, bool) {
	if len(s.Readiness) == 0 {
		return analysis.ReadinessSample{}, false
	}
	return s.Readiness[len(s.Readiness)-1], true
}

// Pipeline recomputes every derived series from the stored activities.
// Each Compute is a pure function of the store contents and options;
// the caches only avoid repeated work.
type Pipeline struct {
	db     *store.DB
	opts   PipelineOptions
	logger *slog.Logger
	loads  *analysis.LoadCache
	peaks  *analysis.PeakCache
	now    func() time.Time
}

// NewPipeline creates a pipeline over db
func NewPipeline(db *store.DB, opts PipelineOptions, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		db:     db,
		opts:   opts,
		logger: logger,
		loads:  analysis.NewLoadCache(opts.Constants),
		peaks:  analysis.NewPeakCache(nil, opts.Coverage),
		now:    time.Now,
	}
}

// Settings returns the stored athlete settings. The configured seed is the
// source of truth: it is written on first use and again whenever it differs
// from what is stored, which bumps the version.
func (p *Pipeline) Settings() (store.AthleteSettings, error) {
	settings, err := p.db.GetAthleteSettings()
	if err != nil && !errors.Is(err, store.ErrNoSettings) {
		return store.AthleteSettings{}, fmt.Errorf("reading athlete settings: %w", err)
	}

	seed := p.opts.Seed
	if settings != nil && (isZeroSettings(seed) || sameSettings(*settings, seed)) {
		return *settings, nil
	}

	if err := p.db.SaveAthleteSettings(&seed); err != nil {
		return store.AthleteSettings{}, fmt.Errorf("saving athlete settings: %w", err)
	}
	if settings == nil {
		p.logger.Info("seeded athlete settings", "version", seed.Version)
	} else {
		p.logger.Info("athlete settings changed", "from_version", settings.Version, "version", seed.Version)
	}
	return seed, nil
}

func isZeroSettings(s store.AthleteSettings) bool {
	return len(s.Sports) == 0 && s.WeightKg == 0 && s.RestingHR == 0
}

// sameSettings compares the analysis inputs, ignoring version and timestamps
func sameSettings(a, b store.AthleteSettings) bool {
	return a.WeightKg == b.WeightKg &&
		a.RestingHR == b.RestingHR &&
		maps.Equal(a.Sports, b.Sports)
}

// Invalidate drops cached peaks for an activity whose streams changed
func (p *Pipeline) Invalidate(activityID int64) {
	p.peaks.Invalidate(activityID)
}

// Compute runs the whole pipeline
func (p *Pipeline) Compute(ctx context.Context, opts ComputeOptions) (snap *Snapshot, err error) {
	started := time.Now()
	defer func() {
		observability.RecordPipelineRun(time.Since(started), err)
	}()

	now := opts.Now
	if now.IsZero() {
		now = p.now()
	}

	settings, err := p.Settings()
	if err != nil {
		return nil, err
	}

	activities, err := p.loadActivities()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap = &Snapshot{
		GeneratedAt:     now,
		SettingsVersion: settings.Version,
		Lookback:        opts.Lookback,
		Peaks:           make(map[analysis.Scope][]analysis.PeakRecord),
		VO2max:          make(map[store.Sport]analysis.VO2maxEstimate),
	}

	annotated, subs := analysis.AnnotateTSS(activities, settings)
	_, constSubs := p.opts.Constants.Resolve()
	snap.Activities = annotated
	snap.Substitutions = append(constSubs, subs...)

	p.computeLoad(snap, annotated, settings, now)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.computePeaks(snap, annotated, settings, opts.Lookback, now)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, sport := range VO2maxSports {
		est, ok := analysis.EstimateVO2max(annotated, settings, sport, analysis.VO2maxOptions{Now: now})
		if !ok {
			continue
		}
		snap.VO2max[sport] = est
		snap.Substitutions = append(snap.Substitutions, est.Substitutions...)
	}

	if err := p.computeReadiness(snap, settings); err != nil {
		return nil, err
	}

	p.report(snap)
	return snap, nil
}

// loadActivities reads every activity in ascending order and attaches stored streams
func (p *Pipeline) loadActivities() ([]store.Activity, error) {
	activities, err := p.db.ListActivities()
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}

	var ids []int64
	for _, a := range activities {
		if a.StreamsSynced {
			ids = append(ids, a.ID)
		}
	}
	if len(ids) == 0 {
		return activities, nil
	}

	streams, err := p.db.GetStreamsForActivities(ids)
	if err != nil {
		return nil, fmt.Errorf("loading streams: %w", err)
	}
	for i := range activities {
		activities[i].Streams = streams[activities[i].ID]
	}
	return activities, nil
}

func (p *Pipeline) computeLoad(snap *Snapshot, activities []store.Activity, settings store.AthleteSettings, now time.Time) {
	p.loads.SetConstants(p.opts.Constants)
	snap.Series = p.loads.Series(activities, settings.Version, now)
	snap.Current = analysis.CurrentLoad(snap.Series)
	snap.Weekly = analysis.ComputeWeeklyStats(snap.Series, p.opts.MonotonySentinel)
	if n := len(snap.Series); n > 0 {
		snap.RampRate = analysis.RampRate(snap.Series, n-1)
	}
	snap.Phase = analysis.ClassifyPhase(snap.RampRate)
	snap.Form = analysis.FormDescription(snap.Current.TSB)

	p.logger.Debug("load series computed",
		"days", len(snap.Series),
		"resumed_days", p.loads.Resumed(),
		"ctl", snap.Current.CTL,
		"atl", snap.Current.ATL,
	)
}

func (p *Pipeline) computePeaks(snap *Snapshot, activities []store.Activity, settings store.AthleteSettings, lookback analysis.Lookback, now time.Time) {
	p.peaks.Prune(settings.Version)

	seen := make(map[int64]bool)
	snap.Scopes = analysis.ScopesFor(activities)
	for _, scope := range snap.Scopes {
		records, skipped := p.peaks.Curves(activities, scope, analysis.PeakOptions{Lookback: lookback, Now: now}, settings.Version)
		snap.Peaks[scope] = records
		for _, s := range skipped {
			if !seen[s.ActivityID] {
				seen[s.ActivityID] = true
				snap.Skipped = append(snap.Skipped, s)
			}
		}
	}

	hits, misses, size := p.peaks.Stats()
	observability.RecordPeakCache(hits, misses, size)
}

func (p *Pipeline) computeReadiness(snap *Snapshot, settings store.AthleteSettings) error {
	wellness, err := p.db.ListWellness(time.Time{})
	if err != nil {
		return fmt.Errorf("listing wellness: %w", err)
	}

	measured := 0
	for _, w := range wellness {
		if !w.IsSimulated {
			measured++
		}
	}

	if measured == 0 {
		wellness = nil
		if p.opts.SimulateWhenMissing {
			_, restingHR, _ := analysis.ResolveBody(settings)
			wellness = analysis.SimulateWellness(snap.Series, restingHR, time.Time{})
			snap.SimulatedWellness = len(wellness) > 0
		}
	}
	observability.RecordSimulatedDays(len(wellness) - measured)

	snap.Readiness = analysis.ComputeReadinessWindow(snap.Series, wellness, p.opts.BaselineDays)
	return nil
}

// report logs substitutions and skips and feeds the metrics
func (p *Pipeline) report(snap *Snapshot) {
	for _, s := range snap.Substitutions {
		attrs := []any{"field", s.Field, "given", s.Given, "used", s.Used}
		if s.Sport != "" {
			attrs = append(attrs, "sport", s.Sport)
		}
		p.logger.Warn("invalid setting replaced by default", attrs...)
	}
	for _, s := range snap.Skipped {
		p.logger.Debug("activity skipped from stream analysis", "activity_id", s.ActivityID, "reason", s.Reason)
	}
	observability.RecordSubstitutions(snap.Substitutions)
	observability.RecordSkipped(snap.Skipped)

	p.logger.Info("pipeline computed",
		"activities", len(snap.Activities),
		"days", len(snap.Series),
		"readiness_days", len(snap.Readiness),
		"simulated_wellness", snap.SimulatedWellness,
		"settings_version", snap.SettingsVersion,
	)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"trainload/internal/observability"
	"trainload/internal/store"
	"trainload/internal/strava"
)

// ActivityProvider is the part of the Strava client the sync needs
type ActivityProvider interface {
	GetActivities(ctx context.Context, after time.Time, page, perPage int) ([]strava.Activity, error)
	GetActivityStreams(ctx context.Context, activityID int64) (*strava.Streams, error)
	RateLimitStatus() (shortRemaining, dailyRemaining int)
}

// Sync phases reported in SyncProgress
const (
	PhaseActivities = "activities"
	PhaseStreams    = "streams"
)

// SyncService orchestrates syncing data from Strava
type SyncService struct {
	client   ActivityProvider
	store    *store.DB
	pipeline *Pipeline
	logger   *slog.Logger
	now      func() time.Time
}

// NewSyncService creates a new sync service. pipeline may be nil; when set,
// its caches are invalidated for every activity whose streams change.
func NewSyncService(client ActivityProvider, db *store.DB, pipeline *Pipeline, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{
		client:   client,
		store:    db,
		pipeline: pipeline,
		logger:   logger,
		now:      time.Now,
	}
}

// SyncProgress reports progress during sync
type SyncProgress struct {
	RunID           string
	Phase           string
	Total           int
	Completed       int
	CurrentActivity string
	Error           error
}

// SyncResult contains the results of a sync operation
type SyncResult struct {
	RunID             string
	ActivitiesFetched int
	ActivitiesStored  int
	StreamsFetched    int
	StreamsPending    int
	RateLimited       bool
	Errors            []error
}

// SyncAll performs a full sync: activities -> streams.
// progress, if non-nil, is closed when the sync returns.
func (s *SyncService) SyncAll(ctx context.Context, progress chan<- SyncProgress) (*SyncResult, error) {
	if progress != nil {
		defer close(progress)
	}

	result := &SyncResult{RunID: uuid.NewString()}
	logger := s.logger.With("run_id", result.RunID)
	logger.Info("sync started")

	if err := s.syncActivities(ctx, logger, progress, result); err != nil {
		return result, fmt.Errorf("syncing activities: %w", err)
	}

	if err := s.syncStreams(ctx, logger, progress, result); err != nil {
		return result, fmt.Errorf("syncing streams: %w", err)
	}

	now := s.now()
	if err := s.store.SetSyncState(store.SyncKeyLastRunID, result.RunID); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("recording run id: %w", err))
	}
	if err := s.store.SetSyncTime(store.SyncKeyLastRunAt, now); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("recording run time: %w", err))
	}

	observability.RecordSynced(result.ActivitiesStored, result.StreamsFetched)
	observability.RecordSyncCompleted(now)

	logger.Info("sync finished",
		"activities_fetched", result.ActivitiesFetched,
		"activities_stored", result.ActivitiesStored,
		"streams_fetched", result.StreamsFetched,
		"streams_pending", result.StreamsPending,
		"errors", len(result.Errors),
	)
	return result, nil
}

// syncActivities pages through activity summaries newer than the last synced start time
func (s *SyncService) syncActivities(ctx context.Context, logger *slog.Logger, progress chan<- SyncProgress, result *SyncResult) error {
	after, err := s.store.GetSyncTime(store.SyncKeyLastActivityAt)
	if err != nil {
		return fmt.Errorf("reading last sync time: %w", err)
	}
	latest := after

	s.send(ctx, progress, SyncProgress{RunID: result.RunID, Phase: PhaseActivities})

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		activities, err := s.client.GetActivities(ctx, after, page, strava.PerPage)
		if err != nil {
			return fmt.Errorf("fetching page %d: %w", page, err)
		}
		if len(activities) == 0 {
			break
		}

		result.ActivitiesFetched += len(activities)
		for _, a := range activities {
			if err := s.store.UpsertActivity(a.ToStore()); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("storing activity %d: %w", a.ID, err))
				continue
			}
			result.ActivitiesStored++
			if a.StartDate.After(latest) {
				latest = a.StartDate
			}
		}

		logger.Debug("activity page stored", "page", page, "count", len(activities))
		s.send(ctx, progress, SyncProgress{
			RunID:     result.RunID,
			Phase:     PhaseActivities,
			Total:     result.ActivitiesFetched,
			Completed: result.ActivitiesStored,
		})

		if len(activities) < strava.PerPage {
			break
		}
	}

	if latest.After(after) {
		if err := s.store.SetSyncTime(store.SyncKeyLastActivityAt, latest); err != nil {
			return fmt.Errorf("recording last activity time: %w", err)
		}
	}
	return nil
}

// syncStreams fetches stream data sequentially for activities that need it.
// A rate limit response ends the phase; the rest are picked up next run.
func (s *SyncService) syncStreams(ctx context.Context, logger *slog.Logger, progress chan<- SyncProgress, result *SyncResult) error {
	activities, err := s.store.GetActivitiesNeedingStreams(StreamBatchSize)
	if err != nil {
		return fmt.Errorf("getting activities needing streams: %w", err)
	}
	if len(activities) == 0 {
		return nil
	}

	total := len(activities)
	for i, activity := range activities {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.send(ctx, progress, SyncProgress{
			RunID:           result.RunID,
			Phase:           PhaseStreams,
			Total:           total,
			Completed:       i,
			CurrentActivity: activity.Name,
		})

		streams, err := s.client.GetActivityStreams(ctx, activity.ID)
		if errors.Is(err, strava.ErrRateLimited) {
			result.RateLimited = true
			result.StreamsPending = total - i
			result.Errors = append(result.Errors, err)
			logger.Warn("rate limited, deferring remaining streams", "pending", result.StreamsPending)
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Some activities (manual entries) have no streams at all
			result.Errors = append(result.Errors, fmt.Errorf("activity %d (%s): %w", activity.ID, activity.Name, err))
			continue
		}

		if converted := streams.ToStore(); converted != nil {
			if err := s.store.SaveStreams(activity.ID, converted); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("saving streams for %d: %w", activity.ID, err))
				continue
			}
		}

		if err := s.store.MarkStreamsSynced(activity.ID); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("marking synced for %d: %w", activity.ID, err))
			continue
		}
		if s.pipeline != nil {
			s.pipeline.Invalidate(activity.ID)
		}
		result.StreamsFetched++
	}

	s.send(ctx, progress, SyncProgress{
		RunID:     result.RunID,
		Phase:     PhaseStreams,
		Total:     total,
		Completed: result.StreamsFetched,
	})
	return nil
}

// send delivers a progress update unless ctx is done
func (s *SyncService) send(ctx context.Context, progress chan<- SyncProgress, p SyncProgress) {
	if progress == nil {
		return
	}
	select {
	case progress <- p:
	case <-ctx.Done():
	}
}

// RateLimitStatus returns the current rate limit status from the client
func (s *SyncService) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return s.client.RateLimitStatus()
}

// LastRun returns the id and time of the last completed sync, if any
func (s *SyncService) LastRun() (runID string, at time.Time, err error) {
	if runID, err = s.store.GetSyncState(store.SyncKeyLastRunID); err != nil {
		return "", time.Time{}, err
	}
	at, err = s.store.GetSyncTime(store.SyncKeyLastRunAt)
	return runID, at, err
}

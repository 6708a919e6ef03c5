package service

import (
	"fmt"
	"log/slog"

	"trainload/internal/fitimport"
	"trainload/internal/store"
)

// ImportService stores activities decoded from FIT files
type ImportService struct {
	store    *store.DB
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewImportService creates an import service. pipeline may be nil.
func NewImportService(db *store.DB, pipeline *Pipeline, logger *slog.Logger) *ImportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportService{store: db, pipeline: pipeline, logger: logger}
}

// ImportResult reports the outcome of an import
type ImportResult struct {
	Imported []store.Activity // without streams attached
	Errors   []error
}

// ImportFiles decodes and stores each FIT file. A file that fails is reported
// in Errors and the rest are still imported.
func (s *ImportService) ImportFiles(paths []string) *ImportResult {
	result := &ImportResult{}
	for _, path := range paths {
		a, err := fitimport.ImportFile(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if err := s.Store(a); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", path, err))
			continue
		}

		s.logger.Info("imported activity",
			"path", path,
			"activity_id", a.ID,
			"sport", a.Sport,
			"samples", a.Streams.Len(),
		)
		stored := *a
		stored.Streams = nil
		result.Imported = append(result.Imported, stored)
	}
	return result
}

// Store upserts a decoded activity together with its streams
func (s *ImportService) Store(a *store.Activity) error {
	if err := s.store.UpsertActivity(a); err != nil {
		return fmt.Errorf("storing activity %d: %w", a.ID, err)
	}
	if a.Streams.Len() > 0 {
		if err := s.store.SaveStreams(a.ID, a.Streams); err != nil {
			return fmt.Errorf("saving streams for %d: %w", a.ID, err)
		}
	}
	if err := s.store.MarkStreamsSynced(a.ID); err != nil {
		return fmt.Errorf("marking synced for %d: %w", a.ID, err)
	}
	if s.pipeline != nil {
		s.pipeline.Invalidate(a.ID)
	}
	return nil
}

package core

// scheduler.go runs the import-history retention job. It purges entries
// older than the retention window once at startup and then on every tick
// until the context is cancelled. A failed run is logged and retried on
// the next tick.

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig controls the import-history purge job.
type RetentionConfig struct {
	ImportHistoryDays int
	CheckInterval     time.Duration
}

// StartRetentionScheduler blocks running the purge job until ctx ends.
// It returns immediately when no import log is configured.
func (s *Service) StartRetentionScheduler(ctx context.Context, cfg RetentionConfig) {
	if s.deps.Imports == nil || cfg.ImportHistoryDays <= 0 || cfg.CheckInterval <= 0 {
		return
	}
	slog.Info("retention scheduler started",
		"import_history_days", cfg.ImportHistoryDays,
		"interval", cfg.CheckInterval.String(),
	)

	s.runRetentionJob(ctx, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("retention scheduler stopped")
			return
		case <-ticker.C:
			s.runRetentionJob(ctx, cfg)
		}
	}
}

func (s *Service) runRetentionJob(ctx context.Context, cfg RetentionConfig) {
	start := time.Now()
	cutoff := start.AddDate(0, 0, -cfg.ImportHistoryDays)

	purged, err := s.deps.Imports.PurgeImports(ctx, cutoff)
	if err != nil {
		slog.Error("import history purge failed", "error", err)
		return
	}
	slog.Info("import history purged",
		"entries_purged", purged,
		"cutoff", cutoff.Format(time.DateOnly),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	importservice "github.com/agrocampo/farm-ops/internal/domain/bulkimport/service"
)

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron          *cron.Cron
	importService *importservice.ImportService
	logger        *slog.Logger
}

// NewScheduler creates a new job scheduler.
func NewScheduler(importService *importservice.ImportService, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:          c,
		importService: importService,
		logger:        logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	// Stale session janitor: an abandoned confirmation dialog holds the
	// whole validated batch in memory, so sweep every 15 minutes.
	_, err := s.cron.AddFunc("*/15 * * * *", s.purgeStaleSessions)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the janitor (for testing/admin).
func (s *Scheduler) RunNow() {
	go s.purgeStaleSessions()
}

func (s *Scheduler) purgeStaleSessions() {
	if purged := s.importService.PurgeStale(time.Now()); purged > 0 {
		s.logger.Info("stale import sessions purged", slog.Int("count", purged))
	}
}

package ingest

import (
	"context"
	"log"
	"time"
)

// Scheduler drives the ingestion lifecycle: one historical backfill at
// startup, then a fleet sync on a fixed interval. Failures at this
// boundary are logged and swallowed so the timer keeps running.
type Scheduler struct {
	syncer     *Syncer
	backfiller *Backfiller
	interval   time.Duration
	window     Window
	logger     *log.Logger
}

// NewScheduler constructs a Scheduler.
func NewScheduler(syncer *Syncer, backfiller *Backfiller, cfg Config, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		syncer:     syncer,
		backfiller: backfiller,
		interval:   cfg.Interval,
		window:     Window{NumDays: cfg.SyncWindowDays, IncludeStatus: cfg.IncludeStatus},
		logger:     logger,
	}
}

// Start begins the scheduler loop. It blocks until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.syncer == nil {
		return
	}

	if s.backfiller != nil {
		s.logger.Printf("starting historical backfill")
		if results, err := s.backfiller.BackfillFleet(ctx); err != nil {
			s.logger.Printf("backfill error: %v", err)
		} else {
			for tankID, result := range results {
				s.logger.Printf("backfill complete for tank [%d]: stored %d total %d", tankID, result.Stored, result.Total)
			}
		}
	}

	s.logger.Printf("polling apex readings every %s", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Overlapping runs are tolerated: the store's conflict
			// key makes concurrent submissions idempotent.
			go func() {
				if _, err := s.syncer.SyncFleet(ctx, s.window); err != nil {
					s.logger.Printf("sync error: %v", err)
				}
			}()
		}
	}
}

package ingest

import (
	"context"
	"errors"
	"log"
	"sync"

	masterdata "reef-cloud/internal/masterdata/domain"
	"reef-cloud/internal/observability/metrics"
)

// Backfiller walks a controller's history backward in fixed-size day
// windows until a window stores nothing new.
//
// Termination deliberately keys on zero *stored*, not zero *total*:
// an all-duplicates window means the history from here back is already
// in the store, so a restarted backfill stops after one window instead
// of re-scanning years of data. The cost is that a transient empty
// window ends the walk early; MaxLookbackDays bounds the walk either
// way.
type Backfiller struct {
	syncer          *Syncer
	batchDays       int
	startOffsetDays int
	maxLookbackDays int
	logger          *log.Logger
}

// NewBackfiller constructs a Backfiller.
func NewBackfiller(syncer *Syncer, cfg Config, logger *log.Logger) (*Backfiller, error) {
	if syncer == nil {
		return nil, errors.New("ingest: nil syncer")
	}
	if cfg.BatchDays <= 0 {
		return nil, errors.New("ingest: backfill batch must be positive")
	}
	if logger == nil {
		logger = log.Default()
	}
	startOffset := cfg.StartOffsetDays
	if startOffset <= 0 {
		startOffset = cfg.BatchDays
	}
	maxLookback := cfg.MaxLookbackDays
	if maxLookback <= 0 {
		maxLookback = 3650
	}
	return &Backfiller{
		syncer:          syncer,
		batchDays:       cfg.BatchDays,
		startOffsetDays: startOffset,
		maxLookbackDays: maxLookback,
		logger:          logger,
	}, nil
}

// BackfillTank drains one tank's history. Tanks without a controller
// host return (nil, nil).
func (b *Backfiller) BackfillTank(ctx context.Context, tank masterdata.Tank, parametersByName map[string]masterdata.Parameter) (*SyncResult, error) {
	aggregate := SyncResult{}
	offset := b.startOffsetDays

	for offset <= b.maxLookbackDays {
		b.logger.Printf("backfilling tank [%d] %s, day range %d - %d", tank.ID, tank.Name, offset, offset-b.batchDays)

		window := Window{NumDays: b.batchDays, StartDaysAgo: offset, IncludeStatus: false}
		result, err := b.syncer.SyncTank(ctx, tank, parametersByName, window)
		if err != nil {
			return nil, err
		}
		if result == nil {
			return nil, nil
		}
		metrics.IncBackfillWindow()

		aggregate.Stored += result.Stored
		aggregate.Total += result.Total
		b.logger.Printf("backfill running totals for tank [%d] %s: stored %d total %d", tank.ID, tank.Name, aggregate.Stored, aggregate.Total)

		if result.Stored == 0 {
			b.logger.Printf("no more readings found for tank [%d] %s", tank.ID, tank.Name)
			return &aggregate, nil
		}
		offset += b.batchDays
	}

	b.logger.Printf("backfill lookback limit reached for tank [%d] %s", tank.ID, tank.Name)
	return &aggregate, nil
}

// BackfillFleet backfills every tank concurrently with per-tank
// failure isolation.
func (b *Backfiller) BackfillFleet(ctx context.Context) (map[int64]SyncResult, error) {
	tanks, parametersByName, err := b.syncer.loadMasterData(ctx)
	if err != nil {
		return nil, err
	}

	results := make(map[int64]SyncResult)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, tank := range tanks {
		wg.Add(1)
		go func(tank masterdata.Tank) {
			defer wg.Done()
			result, err := b.BackfillTank(ctx, tank, parametersByName)
			if err != nil {
				metrics.IncSyncFailure()
				b.logger.Printf("backfill failed for tank [%d] %s: %v", tank.ID, tank.Name, err)
				return
			}
			if result == nil {
				return
			}
			mu.Lock()
			results[tank.ID] = *result
			mu.Unlock()
		}(tank)
	}
	wg.Wait()
	return results, nil
}

package apex

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Reading is one normalized measurement from a controller, keyed by
// canonical parameter name. Resolution to store identifiers happens in
// the ingestion layer.
type Reading struct {
	Time      time.Time
	Parameter string
	Value     float64
}

// FetchReadings retrieves and merges instant-log, trend-log, and
// optionally live-status readings for the window starting at startDay
// (YYMMDD) and spanning numDays days. The three requests are issued
// concurrently; the merged order is fixed regardless of completion
// order: instant-log first, then trend-log, then status. Readings with
// unmapped device codes are dropped. Status readings are stamped with
// the wall-clock time of assembly, not any device-reported time. No
// deduplication happens here: the same moment may appear in both logs,
// and the store's conflict key absorbs the overlap.
func (c *Client) FetchReadings(ctx context.Context, startDay string, numDays int, includeStatus bool) ([]Reading, error) {
	var (
		instant *InstantLog
		trend   *TrendLog
		status  *Status
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		instant, err = c.GetInstantLog(groupCtx, startDay, numDays)
		return err
	})
	group.Go(func() error {
		var err error
		trend, err = c.GetTrendLog(groupCtx, startDay, numDays)
		return err
	})
	if includeStatus {
		group.Go(func() error {
			var err error
			status, err = c.GetStatus(groupCtx)
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var readings []Reading
	for _, record := range instant.Record {
		for _, entry := range record.Data {
			parameter, ok := CanonicalParameter(entry.Type)
			if !ok {
				continue
			}
			readings = append(readings, Reading{
				Time:      record.Date.Time,
				Parameter: parameter,
				Value:     float64(entry.Value),
			})
		}
	}
	for _, record := range trend.Record {
		parameter, ok := CanonicalParameter(record.DID)
		if !ok {
			continue
		}
		readings = append(readings, Reading{
			Time:      record.Date.Time,
			Parameter: parameter,
			Value:     float64(record.Value),
		})
	}
	if status != nil {
		now := time.Now()
		for _, input := range status.Inputs {
			// Inputs carry the probe type mnemonic; older firmware
			// only sets the bus address on did.
			parameter, ok := statusParameter(input.Type)
			if !ok {
				parameter, ok = statusParameter(input.DID)
			}
			if !ok {
				continue
			}
			readings = append(readings, Reading{
				Time:      now,
				Parameter: parameter,
				Value:     float64(input.Value),
			})
		}
	}
	return readings, nil
}

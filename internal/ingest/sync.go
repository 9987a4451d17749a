package ingest

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"reef-cloud/internal/apex"
	masterdata "reef-cloud/internal/masterdata/domain"
	"reef-cloud/internal/observability/metrics"
	readings "reef-cloud/internal/readings/domain"
)

// TankLister lists tanks from the central store.
type TankLister interface {
	List(ctx context.Context) ([]masterdata.Tank, error)
}

// ParameterLister lists parameters from the central store.
type ParameterLister interface {
	List(ctx context.Context) ([]masterdata.Parameter, error)
}

// ReadingStore persists readings idempotently.
type ReadingStore interface {
	BulkStore(ctx context.Context, rows []readings.ParameterReading) ([]readings.StoreOutcome, error)
}

// DeviceFetcher assembles normalized readings from one controller.
type DeviceFetcher interface {
	FetchReadings(ctx context.Context, startDay string, numDays int, includeStatus bool) ([]apex.Reading, error)
}

// ClientFactory builds a fetcher for a controller host.
type ClientFactory func(host string) (DeviceFetcher, error)

// StoredListener is invoked with the readings a sync newly stored.
// Listener failures never fail the sync.
type StoredListener interface {
	ReadingsStored(ctx context.Context, tankID int64, stored []readings.ParameterReading)
}

// SyncResult counts one tank's submission outcome. Stored is the
// subset of Total that did not already exist.
type SyncResult struct {
	Stored int `json:"stored"`
	Total  int `json:"total"`
}

// Window selects the day range of a sync.
type Window struct {
	// NumDays is the width of the window; 0 means the 2-day default.
	NumDays int
	// StartDaysAgo is the day offset the window starts at; 0 means
	// the window width (a window ending today).
	StartDaysAgo int
	// IncludeStatus merges a live snapshot into the window.
	IncludeStatus bool
}

func (w Window) normalize() Window {
	if w.NumDays <= 0 {
		w.NumDays = 2
	}
	if w.StartDaysAgo <= 0 {
		w.StartDaysAgo = w.NumDays
	}
	return w
}

// Syncer pulls readings from controllers and pushes them to the store.
type Syncer struct {
	tanks      TankLister
	parameters ParameterLister
	store      ReadingStore
	clients    ClientFactory
	listener   StoredListener
	logger     *log.Logger
}

// SyncerOption configures the syncer.
type SyncerOption func(*Syncer)

// WithStoredListener attaches a listener for newly stored readings.
func WithStoredListener(listener StoredListener) SyncerOption {
	return func(s *Syncer) {
		s.listener = listener
	}
}

// NewSyncer constructs a Syncer.
func NewSyncer(tanks TankLister, parameters ParameterLister, store ReadingStore, clients ClientFactory, logger *log.Logger, opts ...SyncerOption) (*Syncer, error) {
	if tanks == nil || parameters == nil || store == nil {
		return nil, errors.New("ingest: nil store collaborator")
	}
	if clients == nil {
		return nil, errors.New("ingest: nil client factory")
	}
	if logger == nil {
		logger = log.Default()
	}
	syncer := &Syncer{
		tanks:      tanks,
		parameters: parameters,
		store:      store,
		clients:    clients,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(syncer)
	}
	return syncer, nil
}

// SyncTank pulls one window of readings for one tank. Tanks without a
// configured controller host return (nil, nil) with no network call.
// Readings whose parameter name has no store id are dropped silently.
func (s *Syncer) SyncTank(ctx context.Context, tank masterdata.Tank, parametersByName map[string]masterdata.Parameter, window Window) (*SyncResult, error) {
	if tank.ApexHost == nil || *tank.ApexHost == "" {
		return nil, nil
	}
	window = window.normalize()

	fetcher, err := s.clients(*tank.ApexHost)
	if err != nil {
		return nil, err
	}

	fetched, err := fetcher.FetchReadings(ctx, apex.DayCode(window.StartDaysAgo), window.NumDays, window.IncludeStatus)
	if err != nil {
		metrics.IncDeviceFetchError(*tank.ApexHost)
		return nil, err
	}
	s.logger.Printf("found %d apex readings on tank [%d] %s", len(fetched), tank.ID, tank.Name)

	rows := make([]readings.ParameterReading, 0, len(fetched))
	for _, reading := range fetched {
		parameter, ok := parametersByName[reading.Parameter]
		if !ok {
			continue
		}
		rows = append(rows, readings.ParameterReading{
			TankID:          tank.ID,
			ParameterID:     parameter.ID,
			Value:           reading.Value,
			Time:            reading.Time,
			ShowInDashboard: true,
		})
	}

	outcomes, err := s.store.BulkStore(ctx, rows)
	if err != nil {
		return nil, err
	}

	result := SyncResult{Total: len(outcomes)}
	var stored []readings.ParameterReading
	for _, outcome := range outcomes {
		if outcome.AlreadyExists || outcome.Reading == nil {
			continue
		}
		result.Stored++
		stored = append(stored, *outcome.Reading)
	}

	metrics.AddReadingsSubmitted(result.Total)
	metrics.AddReadingsStored(result.Stored)
	s.logger.Printf("stored %d of %d for tank [%d] %s", result.Stored, result.Total, tank.ID, tank.Name)

	if s.listener != nil && len(stored) > 0 {
		s.listener.ReadingsStored(ctx, tank.ID, stored)
	}
	return &result, nil
}

// SyncFleet syncs every tank concurrently. A failing tank is logged
// and skipped; it never aborts the other tanks.
func (s *Syncer) SyncFleet(ctx context.Context, window Window) (map[int64]SyncResult, error) {
	started := time.Now()
	defer func() {
		metrics.ObserveSyncLatency(time.Since(started))
	}()

	tanks, parametersByName, err := s.loadMasterData(ctx)
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
			result, err := s.SyncTank(ctx, tank, parametersByName, window)
			if err != nil {
				metrics.IncSyncFailure()
				s.logger.Printf("sync failed for tank [%d] %s: %v", tank.ID, tank.Name, err)
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

func (s *Syncer) loadMasterData(ctx context.Context) ([]masterdata.Tank, map[string]masterdata.Parameter, error) {
	var (
		tanks      []masterdata.Tank
		parameters []masterdata.Parameter
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		tanks, err = s.tanks.List(groupCtx)
		return err
	})
	group.Go(func() error {
		var err error
		parameters, err = s.parameters.List(groupCtx)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, nil, err
	}
	return tanks, masterdata.ParametersByName(parameters), nil
}

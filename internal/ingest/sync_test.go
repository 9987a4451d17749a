package ingest

import (
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"reef-cloud/internal/apex"
	masterdata "reef-cloud/internal/masterdata/domain"
	readings "reef-cloud/internal/readings/domain"
)

type stubTanks struct {
	tanks []masterdata.Tank
	err   error
}

func (s *stubTanks) List(ctx context.Context) ([]masterdata.Tank, error) {
	return s.tanks, s.err
}

type stubParameters struct {
	parameters []masterdata.Parameter
	err        error
}

func (s *stubParameters) List(ctx context.Context) ([]masterdata.Parameter, error) {
	return s.parameters, s.err
}

type stubStore struct {
	mu        sync.Mutex
	received  [][]readings.ParameterReading
	duplicate func(row readings.ParameterReading) bool
	err       error
}

func (s *stubStore) BulkStore(ctx context.Context, rows []readings.ParameterReading) ([]readings.StoreOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.received = append(s.received, rows)
	outcomes := make([]readings.StoreOutcome, 0, len(rows))
	for i := range rows {
		row := rows[i]
		if s.duplicate != nil && s.duplicate(row) {
			outcomes = append(outcomes, readings.StoreOutcome{AlreadyExists: true})
			continue
		}
		outcomes = append(outcomes, readings.StoreOutcome{Reading: &row})
	}
	return outcomes, nil
}

type stubFetcher struct {
	mu       sync.Mutex
	calls    int
	readings []apex.Reading
	err      error
}

func (s *stubFetcher) FetchReadings(ctx context.Context, startDay string, numDays int, includeStatus bool) ([]apex.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.readings, nil
}

type stubListener struct {
	mu     sync.Mutex
	tankID int64
	stored []readings.ParameterReading
	calls  int
}

func (s *stubListener) ReadingsStored(ctx context.Context, tankID int64, stored []readings.ParameterReading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.tankID = tankID
	s.stored = stored
}

func strptr(v string) *string { return &v }

func testParameters() []masterdata.Parameter {
	return []masterdata.Parameter{
		{ID: 1, Name: apex.ParamTemperature},
		{ID: 2, Name: apex.ParamAlkalinity},
	}
}

func newTestSyncer(t *testing.T, fetcher DeviceFetcher, store *stubStore, opts ...SyncerOption) *Syncer {
	t.Helper()
	tanks := &stubTanks{tanks: []masterdata.Tank{{ID: 4, Name: "display", ApexHost: strptr("apex.local")}}}
	parameters := &stubParameters{parameters: testParameters()}
	factory := func(host string) (DeviceFetcher, error) { return fetcher, nil }
	syncer, err := NewSyncer(tanks, parameters, store, factory, log.New(testWriter{t}, "", 0), opts...)
	if err != nil {
		t.Fatalf("new syncer: %v", err)
	}
	return syncer
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestSyncTank_SkipsTanksWithoutHost(t *testing.T) {
	fetcher := &stubFetcher{}
	syncer := newTestSyncer(t, fetcher, &stubStore{})

	result, err := syncer.SyncTank(context.Background(), masterdata.Tank{ID: 9, Name: "quarantine"}, nil, Window{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Fatalf("expected nil result, got %+v", result)
	}
	if fetcher.calls != 0 {
		t.Fatalf("expected no fetch, got %d calls", fetcher.calls)
	}
}

func TestSyncTank_DropsUnresolvedParameters(t *testing.T) {
	now := time.Now()
	fetcher := &stubFetcher{readings: []apex.Reading{
		{Time: now, Parameter: apex.ParamTemperature, Value: 25.4},
		{Time: now, Parameter: apex.ParamNitrate, Value: 5},
	}}
	store := &stubStore{}
	syncer := newTestSyncer(t, fetcher, store)

	tank := masterdata.Tank{ID: 4, Name: "display", ApexHost: strptr("apex.local")}
	result, err := syncer.SyncTank(context.Background(), tank, masterdata.ParametersByName(testParameters()), Window{})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if result.Total != 1 || result.Stored != 1 {
		t.Fatalf("got %+v, want 1/1", result)
	}
	if len(store.received) != 1 || len(store.received[0]) != 1 {
		t.Fatalf("store received %+v", store.received)
	}
	row := store.received[0][0]
	if row.TankID != 4 || row.ParameterID != 1 || row.Value != 25.4 || !row.ShowInDashboard {
		t.Fatalf("unexpected row %+v", row)
	}
}

func TestSyncTank_CountsDuplicatesAsTotalOnly(t *testing.T) {
	now := time.Now()
	fetcher := &stubFetcher{readings: []apex.Reading{
		{Time: now, Parameter: apex.ParamTemperature, Value: 25.4},
		{Time: now, Parameter: apex.ParamAlkalinity, Value: 8.5},
	}}
	store := &stubStore{duplicate: func(row readings.ParameterReading) bool {
		return row.ParameterID == 2
	}}
	listener := &stubListener{}
	syncer := newTestSyncer(t, fetcher, store, WithStoredListener(listener))

	tank := masterdata.Tank{ID: 4, Name: "display", ApexHost: strptr("apex.local")}
	result, err := syncer.SyncTank(context.Background(), tank, masterdata.ParametersByName(testParameters()), Window{})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if result.Total != 2 || result.Stored != 1 {
		t.Fatalf("got %+v, want total 2 stored 1", result)
	}
	if listener.calls != 1 || listener.tankID != 4 {
		t.Fatalf("listener saw %d calls for tank %d", listener.calls, listener.tankID)
	}
	if len(listener.stored) != 1 || listener.stored[0].ParameterID != 1 {
		t.Fatalf("listener must only see newly stored readings, got %+v", listener.stored)
	}
}

func TestSyncTank_SilentWhenNothingNew(t *testing.T) {
	now := time.Now()
	fetcher := &stubFetcher{readings: []apex.Reading{
		{Time: now, Parameter: apex.ParamTemperature, Value: 25.4},
	}}
	store := &stubStore{duplicate: func(readings.ParameterReading) bool { return true }}
	listener := &stubListener{}
	syncer := newTestSyncer(t, fetcher, store, WithStoredListener(listener))

	tank := masterdata.Tank{ID: 4, Name: "display", ApexHost: strptr("apex.local")}
	result, err := syncer.SyncTank(context.Background(), tank, masterdata.ParametersByName(testParameters()), Window{})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if result.Total != 1 || result.Stored != 0 {
		t.Fatalf("got %+v, want total 1 stored 0", result)
	}
	if listener.calls != 0 {
		t.Fatalf("listener must stay silent on an all-duplicate window, got %d calls", listener.calls)
	}
}

func TestSyncFleet_IsolatesFailingTank(t *testing.T) {
	now := time.Now()
	good := &stubFetcher{readings: []apex.Reading{{Time: now, Parameter: apex.ParamTemperature, Value: 25.4}}}
	bad := &stubFetcher{err: errors.New("controller unreachable")}
	factory := func(host string) (DeviceFetcher, error) {
		if host == "bad.local" {
			return bad, nil
		}
		return good, nil
	}
	tanks := &stubTanks{tanks: []masterdata.Tank{
		{ID: 1, Name: "display", ApexHost: strptr("good.local")},
		{ID: 2, Name: "frag", ApexHost: strptr("bad.local")},
		{ID: 3, Name: "quarantine"},
	}}
	parameters := &stubParameters{parameters: testParameters()}
	store := &stubStore{}
	syncer, err := NewSyncer(tanks, parameters, store, factory, log.New(testWriter{t}, "", 0))
	if err != nil {
		t.Fatalf("new syncer: %v", err)
	}

	results, err := syncer.SyncFleet(context.Background(), Window{})
	if err != nil {
		t.Fatalf("fleet: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected only the healthy tank in results, got %+v", results)
	}
	if result, ok := results[1]; !ok || result.Stored != 1 {
		t.Fatalf("tank 1 result missing or wrong: %+v", results)
	}
}

func TestSyncFleet_MasterDataFailure(t *testing.T) {
	tanks := &stubTanks{err: errors.New("db down")}
	parameters := &stubParameters{parameters: testParameters()}
	syncer, err := NewSyncer(tanks, parameters, &stubStore{}, func(string) (DeviceFetcher, error) {
		return &stubFetcher{}, nil
	}, log.New(testWriter{t}, "", 0))
	if err != nil {
		t.Fatalf("new syncer: %v", err)
	}

	if _, err := syncer.SyncFleet(context.Background(), Window{}); err == nil {
		t.Fatal("expected master-data error to surface")
	}
}

func TestWindow_Normalize(t *testing.T) {
	window := Window{}.normalize()
	if window.NumDays != 2 || window.StartDaysAgo != 2 {
		t.Fatalf("zero window normalized to %+v", window)
	}
	window = Window{NumDays: 10}.normalize()
	if window.StartDaysAgo != 10 {
		t.Fatalf("start offset must default to window width, got %+v", window)
	}
	window = Window{NumDays: 10, StartDaysAgo: 30}.normalize()
	if window.NumDays != 10 || window.StartDaysAgo != 30 {
		t.Fatalf("explicit window mangled: %+v", window)
	}
}

package http

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reef-cloud/internal/apex"
	"reef-cloud/internal/ingest"
	masterdata "reef-cloud/internal/masterdata/domain"
	readings "reef-cloud/internal/readings/domain"
)

type stubTanks struct{ tanks []masterdata.Tank }

func (s *stubTanks) List(ctx context.Context) ([]masterdata.Tank, error) {
	return s.tanks, nil
}

type stubParameters struct{ parameters []masterdata.Parameter }

func (s *stubParameters) List(ctx context.Context) ([]masterdata.Parameter, error) {
	return s.parameters, nil
}

type stubStore struct{}

func (stubStore) BulkStore(ctx context.Context, rows []readings.ParameterReading) ([]readings.StoreOutcome, error) {
	outcomes := make([]readings.StoreOutcome, len(rows))
	for i := range rows {
		outcomes[i] = readings.StoreOutcome{AlreadyExists: true}
	}
	return outcomes, nil
}

type stubFetcher struct{}

func (stubFetcher) FetchReadings(ctx context.Context, startDay string, numDays int, includeStatus bool) ([]apex.Reading, error) {
	return []apex.Reading{{Time: time.Now(), Parameter: apex.ParamTemperature, Value: 25.4}}, nil
}

func strptr(v string) *string { return &v }

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	tanks := &stubTanks{tanks: []masterdata.Tank{{ID: 1, Name: "display", ApexHost: strptr("apex.local")}}}
	parameters := &stubParameters{parameters: []masterdata.Parameter{{ID: 1, Name: apex.ParamTemperature}}}
	syncer, err := ingest.NewSyncer(tanks, parameters, stubStore{}, func(string) (ingest.DeviceFetcher, error) {
		return stubFetcher{}, nil
	}, logger)
	if err != nil {
		t.Fatalf("new syncer: %v", err)
	}
	backfiller, err := ingest.NewBackfiller(syncer, ingest.Config{BatchDays: 10}, logger)
	if err != nil {
		t.Fatalf("new backfiller: %v", err)
	}
	handler, err := NewHandler(syncer, backfiller, logger)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler
}

func TestHandler_SyncRunsFleet(t *testing.T) {
	handler := newTestHandler(t)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/sync", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status %d: %s", recorder.Code, recorder.Body.String())
	}
	var results map[int64]ingest.SyncResult
	if err := json.NewDecoder(recorder.Body).Decode(&results); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result, ok := results[1]; !ok || result.Total != 1 || result.Stored != 0 {
		t.Fatalf("results %+v", results)
	}
}

func TestHandler_SyncAcceptsWindowBody(t *testing.T) {
	handler := newTestHandler(t)

	recorder := httptest.NewRecorder()
	body := strings.NewReader(`{"days":7,"includeStatus":true}`)
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/sync", body))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestHandler_SyncRejectsNegativeDays(t *testing.T) {
	handler := newTestHandler(t)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(`{"days":-1}`)))
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", recorder.Code)
	}
}

func TestHandler_BackfillIsAccepted(t *testing.T) {
	handler := newTestHandler(t)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/backfill", nil))
	if recorder.Code != http.StatusAccepted {
		t.Fatalf("status %d, want 202", recorder.Code)
	}
}

func TestHandler_MethodAndPath(t *testing.T) {
	handler := newTestHandler(t)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/sync", nil))
	if recorder.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/resync", nil))
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("unknown path status %d", recorder.Code)
	}
}

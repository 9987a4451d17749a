package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"reef-cloud/internal/ingest"
)

// Handler exposes manual sync and backfill triggers.
type Handler struct {
	syncer     *ingest.Syncer
	backfiller *ingest.Backfiller
	logger     *log.Logger
}

// NewHandler constructs a Handler.
func NewHandler(syncer *ingest.Syncer, backfiller *ingest.Backfiller, logger *log.Logger) (*Handler, error) {
	if syncer == nil || backfiller == nil {
		return nil, errors.New("ingest handler: nil collaborator")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{syncer: syncer, backfiller: backfiller, logger: logger}, nil
}

// ServeHTTP routes trigger requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch r.URL.Path {
	case "/api/sync":
		h.handleSync(w, r)
	case "/api/backfill":
		h.handleBackfill(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Days          int  `json:"days"`
		IncludeStatus bool `json:"includeStatus"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
	}
	if req.Days < 0 {
		http.Error(w, "days must not be negative", http.StatusBadRequest)
		return
	}

	window := ingest.Window{NumDays: req.Days, IncludeStatus: req.IncludeStatus}
	results, err := h.syncer.SyncFleet(r.Context(), window)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(results)
}

// handleBackfill kicks a fleet backfill in the background. Backfills
// walk years of history, so the request returns 202 immediately.
func (h *Handler) handleBackfill(w http.ResponseWriter, _ *http.Request) {
	go func() {
		results, err := h.backfiller.BackfillFleet(context.Background())
		if err != nil {
			h.logger.Printf("manual backfill failed: %v", err)
			return
		}
		h.logger.Printf("manual backfill finished for %d tanks", len(results))
	}()
	w.WriteHeader(http.StatusAccepted)
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	readings "reef-cloud/internal/readings/domain"
)

const defaultHistoryDays = 30

// Handler serves parameter reading and goal endpoints.
type Handler struct {
	readings readings.ReadingRepository
	goals    readings.GoalRepository
}

// NewHandler constructs a Handler.
func NewHandler(store readings.ReadingRepository, goals readings.GoalRepository) (*Handler, error) {
	if store == nil || goals == nil {
		return nil, errors.New("readings handler: nil repository")
	}
	return &Handler{readings: store, goals: goals}, nil
}

// ServeHTTP routes reading requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/parameter-readings":
		h.serveCollection(w, r)
	case r.URL.Path == "/api/parameter-readings/bulk":
		h.serveBulk(w, r)
	case r.URL.Path == "/api/parameter-readings/latest":
		h.serveLatest(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/parameter-readings/"):
		h.serveItem(w, r)
	case r.URL.Path == "/api/parameter-goals" || strings.HasPrefix(r.URL.Path, "/api/parameter-goals/"):
		h.serveGoals(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) serveCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.serveHistory(w, r)
	case http.MethodPost:
		var reading readings.ParameterReading
		if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		stored, err := h.readings.Create(r.Context(), &reading)
		if err != nil {
			respondReadingError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(stored)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// serveBulk stores a batch idempotently and reports per-row outcomes.
// Conflicts are outcomes, not errors, so re-submitting a batch is safe.
func (h *Handler) serveBulk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var rows []readings.ParameterReading
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	for _, row := range rows {
		if err := row.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	outcomes, err := h.readings.BulkStore(r.Context(), rows)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if outcomes == nil {
		outcomes = []readings.StoreOutcome{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(outcomes)
}

func (h *Handler) serveHistory(w http.ResponseWriter, r *http.Request) {
	tankID, parameterID, err := parsePairQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	numDays := defaultHistoryDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "days must be a positive integer", http.StatusBadRequest)
			return
		}
		numDays = parsed
	}
	list, err := h.readings.History(r.Context(), tankID, parameterID, numDays)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []readings.ParameterReading{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (h *Handler) serveLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tankID, parameterID, err := parsePairQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	reading, err := h.readings.Latest(r.Context(), tankID, parameterID)
	if err != nil {
		respondReadingError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(reading)
}

func (h *Handler) serveItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/parameter-readings/")
	parts := strings.Split(rest, "/")
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch {
	case len(parts) == 2 && parts[1] == "dashboard" && r.Method == http.MethodPut:
		var req struct {
			Show bool `json:"show"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		updated, err := h.readings.SetShowInDashboard(r.Context(), id, req.Show)
		if err != nil {
			respondReadingError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(updated)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		if err := h.readings.Delete(r.Context(), id); err != nil {
			respondReadingError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) serveGoals(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/parameter-goals" {
		switch r.Method {
		case http.MethodGet:
			list, err := h.goals.List(r.Context())
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if list == nil {
				list = []readings.ParameterGoal{}
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(list)
		case http.MethodPost:
			var goal readings.ParameterGoal
			if err := json.NewDecoder(r.Body).Decode(&goal); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
			stored, err := h.goals.Create(r.Context(), &goal)
			if err != nil {
				respondReadingError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(stored)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/parameter-goals/")
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 || strings.Contains(rest, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		goal, err := h.goals.Get(r.Context(), id)
		if err != nil {
			respondReadingError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(goal)
	case http.MethodPut:
		var goal readings.ParameterGoal
		if err := json.NewDecoder(r.Body).Decode(&goal); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		updated, err := h.goals.Update(r.Context(), id, &goal)
		if err != nil {
			respondReadingError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(updated)
	case http.MethodDelete:
		if err := h.goals.Delete(r.Context(), id); err != nil {
			respondReadingError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func parsePairQuery(r *http.Request) (tankID, parameterID int64, err error) {
	tankID, err = strconv.ParseInt(r.URL.Query().Get("tank_id"), 10, 64)
	if err != nil || tankID <= 0 {
		return 0, 0, errors.New("tank_id is required")
	}
	parameterID, err = strconv.ParseInt(r.URL.Query().Get("parameter_id"), 10, 64)
	if err != nil || parameterID <= 0 {
		return 0, 0, errors.New("parameter_id is required")
	}
	return tankID, parameterID, nil
}

func respondReadingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, readings.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, readings.ErrAlreadyExists):
		http.Error(w, "already exists", http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	alarms "reef-cloud/internal/alarms/domain"
)

// Handler serves alarm CRUD endpoints.
type Handler struct {
	alarms alarms.AlarmRepository
}

// NewHandler constructs a Handler.
func NewHandler(repo alarms.AlarmRepository) (*Handler, error) {
	if repo == nil {
		return nil, errors.New("alarms handler: nil repository")
	}
	return &Handler{alarms: repo}, nil
}

// ServeHTTP handles /api/alarms and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/alarms" {
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleCreate(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/alarms/")
	if rest == r.URL.Path || strings.Contains(rest, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		alarm, err := h.alarms.Get(r.Context(), id)
		if err != nil {
			respondAlarmError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, alarm)
	case http.MethodPut:
		var alarm alarms.Alarm
		if err := json.NewDecoder(r.Body).Decode(&alarm); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		alarm.ID = id
		if err := h.alarms.Update(r.Context(), &alarm); err != nil {
			respondAlarmError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, alarm)
	case http.MethodDelete:
		if err := h.alarms.Delete(r.Context(), id); err != nil {
			respondAlarmError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	var (
		list []alarms.Alarm
		err  error
	)
	if raw := r.URL.Query().Get("tank_id"); raw != "" {
		tankID, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil || tankID <= 0 {
			http.Error(w, "tank_id must be a positive integer", http.StatusBadRequest)
			return
		}
		list, err = h.alarms.ListByTank(r.Context(), tankID)
	} else {
		list, err = h.alarms.List(r.Context())
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []alarms.Alarm{}
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var alarm alarms.Alarm
	if err := json.NewDecoder(r.Body).Decode(&alarm); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := h.alarms.Create(r.Context(), &alarm); err != nil {
		respondAlarmError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, alarm)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondAlarmError(w http.ResponseWriter, err error) {
	if errors.Is(err, alarms.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}

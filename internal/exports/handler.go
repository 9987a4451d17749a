package exports

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	masterdata "reef-cloud/internal/masterdata/domain"
	readings "reef-cloud/internal/readings/domain"
)

const defaultExportDays = 30

// Handler serves readings and report exports.
type Handler struct {
	tanks      masterdata.TankRepository
	parameters masterdata.ParameterRepository
	readings   readings.ReadingRepository
	goals      readings.GoalRepository
}

// NewHandler constructs a Handler.
func NewHandler(tanks masterdata.TankRepository, parameters masterdata.ParameterRepository, store readings.ReadingRepository, goals readings.GoalRepository) (*Handler, error) {
	if tanks == nil || parameters == nil || store == nil || goals == nil {
		return nil, errors.New("exports handler: nil repository")
	}
	return &Handler{tanks: tanks, parameters: parameters, readings: store, goals: goals}, nil
}

// ServeHTTP routes export requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch {
	case r.URL.Path == "/api/exports/readings.xlsx":
		h.handleReadingsXLSX(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/exports/tanks/") && strings.HasSuffix(r.URL.Path, "/report.pdf"):
		h.handleTankReportPDF(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleReadingsXLSX(w http.ResponseWriter, r *http.Request) {
	tankID, err := strconv.ParseInt(r.URL.Query().Get("tank_id"), 10, 64)
	if err != nil || tankID <= 0 {
		http.Error(w, "tank_id is required", http.StatusBadRequest)
		return
	}
	parameterID, err := strconv.ParseInt(r.URL.Query().Get("parameter_id"), 10, 64)
	if err != nil || parameterID <= 0 {
		http.Error(w, "parameter_id is required", http.StatusBadRequest)
		return
	}
	numDays := defaultExportDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "days must be a positive integer", http.StatusBadRequest)
			return
		}
		numDays = parsed
	}

	tank, err := h.tanks.Get(r.Context(), tankID)
	if err != nil {
		respondExportError(w, err)
		return
	}
	parameter, err := h.parameters.Get(r.Context(), parameterID)
	if err != nil {
		respondExportError(w, err)
		return
	}
	rows, err := h.readings.History(r.Context(), tankID, parameterID, numDays)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	payload, err := BuildReadingsXLSX(tank, parameter, rows)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="readings.xlsx"`)
	_, _ = w.Write(payload)
}

func (h *Handler) handleTankReportPDF(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/exports/tanks/")
	rest = strings.TrimSuffix(rest, "/report.pdf")
	tankID, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || tankID <= 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	numDays := defaultExportDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "days must be a positive integer", http.StatusBadRequest)
			return
		}
		numDays = parsed
	}

	tank, err := h.tanks.Get(r.Context(), tankID)
	if err != nil {
		respondExportError(w, err)
		return
	}
	parameters, err := h.parameters.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	goals, err := h.goals.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	goalsByParameter := make(map[int64]readings.ParameterGoal)
	for _, goal := range goals {
		if goal.TankID == tankID {
			goalsByParameter[goal.ParameterID] = goal
		}
	}

	lines := make([]ReportLine, 0, len(parameters))
	for _, parameter := range parameters {
		line := ReportLine{Parameter: parameter}
		latest, err := h.readings.Latest(r.Context(), tankID, parameter.ID)
		if err == nil {
			line.Latest = latest
		} else if !errors.Is(err, readings.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		history, err := h.readings.History(r.Context(), tankID, parameter.ID, numDays)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		line.Stats = SummarizeReadings(history)
		if goal, ok := goalsByParameter[parameter.ID]; ok {
			goalCopy := goal
			line.Goal = &goalCopy
		}
		lines = append(lines, line)
	}

	payload, err := BuildTankReportPDF(tank, lines)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="report.pdf"`)
	_, _ = w.Write(payload)
}

func respondExportError(w http.ResponseWriter, err error) {
	if errors.Is(err, masterdata.ErrNotFound) || errors.Is(err, readings.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

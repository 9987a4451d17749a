package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	masterdata "reef-cloud/internal/masterdata/domain"
)

// Handler serves tank, parameter and device CRUD endpoints.
type Handler struct {
	tanks      masterdata.TankRepository
	parameters masterdata.ParameterRepository
	devices    masterdata.DeviceRepository
}

// NewHandler constructs a Handler.
func NewHandler(tanks masterdata.TankRepository, parameters masterdata.ParameterRepository, devices masterdata.DeviceRepository) (*Handler, error) {
	if tanks == nil || parameters == nil || devices == nil {
		return nil, errors.New("masterdata handler: nil repository")
	}
	return &Handler{tanks: tanks, parameters: parameters, devices: devices}, nil
}

// ServeHTTP routes masterdata requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/tanks" || strings.HasPrefix(r.URL.Path, "/api/tanks/"):
		h.serveTanks(w, r)
	case r.URL.Path == "/api/parameters" || strings.HasPrefix(r.URL.Path, "/api/parameters/"):
		h.serveParameters(w, r)
	case r.URL.Path == "/api/devices" || strings.HasPrefix(r.URL.Path, "/api/devices/"):
		h.serveDevices(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) serveTanks(w http.ResponseWriter, r *http.Request) {
	id, hasID, ok := parseID(r.URL.Path, "/api/tanks")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch {
	case !hasID && r.Method == http.MethodGet:
		list, err := h.tanks.List(r.Context())
		respondList(w, list, err)
	case !hasID && r.Method == http.MethodPost:
		var tank masterdata.Tank
		if err := json.NewDecoder(r.Body).Decode(&tank); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		stored, err := h.tanks.Create(r.Context(), &tank)
		respondEntity(w, stored, err, http.StatusCreated)
	case hasID && r.Method == http.MethodGet:
		tank, err := h.tanks.Get(r.Context(), id)
		respondEntity(w, tank, err, http.StatusOK)
	case hasID && r.Method == http.MethodPut:
		var tank masterdata.Tank
		if err := json.NewDecoder(r.Body).Decode(&tank); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		stored, err := h.tanks.Update(r.Context(), id, &tank)
		respondEntity(w, stored, err, http.StatusOK)
	case hasID && r.Method == http.MethodDelete:
		respondDelete(w, h.tanks.Delete(r.Context(), id))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) serveParameters(w http.ResponseWriter, r *http.Request) {
	id, hasID, ok := parseID(r.URL.Path, "/api/parameters")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch {
	case !hasID && r.Method == http.MethodGet:
		list, err := h.parameters.List(r.Context())
		respondList(w, list, err)
	case !hasID && r.Method == http.MethodPost:
		var parameter masterdata.Parameter
		if err := json.NewDecoder(r.Body).Decode(&parameter); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		stored, err := h.parameters.Create(r.Context(), &parameter)
		respondEntity(w, stored, err, http.StatusCreated)
	case hasID && r.Method == http.MethodGet:
		parameter, err := h.parameters.Get(r.Context(), id)
		respondEntity(w, parameter, err, http.StatusOK)
	case hasID && r.Method == http.MethodPut:
		var parameter masterdata.Parameter
		if err := json.NewDecoder(r.Body).Decode(&parameter); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		stored, err := h.parameters.Update(r.Context(), id, &parameter)
		respondEntity(w, stored, err, http.StatusOK)
	case hasID && r.Method == http.MethodDelete:
		respondDelete(w, h.parameters.Delete(r.Context(), id))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) serveDevices(w http.ResponseWriter, r *http.Request) {
	id, hasID, ok := parseID(r.URL.Path, "/api/devices")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch {
	case !hasID && r.Method == http.MethodGet:
		list, err := h.devices.List(r.Context())
		respondList(w, list, err)
	case !hasID && r.Method == http.MethodPost:
		var device masterdata.Device
		if err := json.NewDecoder(r.Body).Decode(&device); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		stored, err := h.devices.Create(r.Context(), &device)
		respondEntity(w, stored, err, http.StatusCreated)
	case hasID && r.Method == http.MethodGet:
		device, err := h.devices.Get(r.Context(), id)
		respondEntity(w, device, err, http.StatusOK)
	case hasID && r.Method == http.MethodPut:
		var device masterdata.Device
		if err := json.NewDecoder(r.Body).Decode(&device); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		stored, err := h.devices.Update(r.Context(), id, &device)
		respondEntity(w, stored, err, http.StatusOK)
	case hasID && r.Method == http.MethodDelete:
		respondDelete(w, h.devices.Delete(r.Context(), id))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// parseID splits "<prefix>/<id>" paths. hasID is false for the bare
// collection path.
func parseID(path, prefix string) (id int64, hasID bool, ok bool) {
	if path == prefix {
		return 0, false, true
	}
	rest := strings.TrimPrefix(path, prefix+"/")
	if rest == "" || strings.Contains(rest, "/") {
		return 0, false, false
	}
	parsed, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || parsed <= 0 {
		return 0, false, false
	}
	return parsed, true, true
}

func respondList[T any](w http.ResponseWriter, list []T, err error) {
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []T{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func respondEntity(w http.ResponseWriter, entity any, err error, status int) {
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(entity)
}

func respondDelete(w http.ResponseWriter, err error) {
	if err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, masterdata.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, masterdata.ErrAlreadyExists):
		http.Error(w, "already exists", http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	masterdata "reef-cloud/internal/masterdata/domain"
)

type stubTankRepo struct {
	tanks  []masterdata.Tank
	nextID int64
}

func (s *stubTankRepo) List(ctx context.Context) ([]masterdata.Tank, error) {
	return s.tanks, nil
}

func (s *stubTankRepo) Get(ctx context.Context, id int64) (*masterdata.Tank, error) {
	for i := range s.tanks {
		if s.tanks[i].ID == id {
			return &s.tanks[i], nil
		}
	}
	return nil, masterdata.ErrNotFound
}

func (s *stubTankRepo) Create(ctx context.Context, tank *masterdata.Tank) (*masterdata.Tank, error) {
	if err := tank.Validate(); err != nil {
		return nil, err
	}
	for _, existing := range s.tanks {
		if existing.Name == tank.Name {
			return nil, masterdata.ErrAlreadyExists
		}
	}
	s.nextID++
	tank.ID = s.nextID
	s.tanks = append(s.tanks, *tank)
	return tank, nil
}

func (s *stubTankRepo) Update(ctx context.Context, id int64, tank *masterdata.Tank) (*masterdata.Tank, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	tank.ID = id
	return tank, nil
}

func (s *stubTankRepo) Delete(ctx context.Context, id int64) error {
	for i := range s.tanks {
		if s.tanks[i].ID == id {
			s.tanks = append(s.tanks[:i], s.tanks[i+1:]...)
			return nil
		}
	}
	return masterdata.ErrNotFound
}

type stubParameterRepo struct {
	parameters []masterdata.Parameter
}

func (s *stubParameterRepo) List(ctx context.Context) ([]masterdata.Parameter, error) {
	return s.parameters, nil
}

func (s *stubParameterRepo) Get(ctx context.Context, id int64) (*masterdata.Parameter, error) {
	for i := range s.parameters {
		if s.parameters[i].ID == id {
			return &s.parameters[i], nil
		}
	}
	return nil, masterdata.ErrNotFound
}

func (s *stubParameterRepo) Create(ctx context.Context, parameter *masterdata.Parameter) (*masterdata.Parameter, error) {
	return parameter, parameter.Validate()
}

func (s *stubParameterRepo) Update(ctx context.Context, id int64, parameter *masterdata.Parameter) (*masterdata.Parameter, error) {
	parameter.ID = id
	return parameter, nil
}

func (s *stubParameterRepo) Delete(ctx context.Context, id int64) error { return nil }

type stubDeviceRepo struct {
	devices []masterdata.Device
}

func (s *stubDeviceRepo) List(ctx context.Context) ([]masterdata.Device, error) {
	return s.devices, nil
}

func (s *stubDeviceRepo) Get(ctx context.Context, id int64) (*masterdata.Device, error) {
	for i := range s.devices {
		if s.devices[i].ID == id {
			return &s.devices[i], nil
		}
	}
	return nil, masterdata.ErrNotFound
}

func (s *stubDeviceRepo) Create(ctx context.Context, device *masterdata.Device) (*masterdata.Device, error) {
	return device, device.Validate()
}

func (s *stubDeviceRepo) Update(ctx context.Context, id int64, device *masterdata.Device) (*masterdata.Device, error) {
	device.ID = id
	return device, nil
}

func (s *stubDeviceRepo) Delete(ctx context.Context, id int64) error { return nil }

func newTestHandler(t *testing.T, tanks *stubTankRepo) *Handler {
	t.Helper()
	handler, err := NewHandler(tanks, &stubParameterRepo{}, &stubDeviceRepo{})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler
}

func TestHandler_TankLifecycle(t *testing.T) {
	repo := &stubTankRepo{}
	handler := newTestHandler(t, repo)

	recorder := httptest.NewRecorder()
	body := strings.NewReader(`{"name":"display","apexHost":"apex.local"}`)
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/tanks", body))
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", recorder.Code, recorder.Body.String())
	}
	var created masterdata.Tank
	if err := json.NewDecoder(recorder.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == 0 || created.ApexHost == nil || *created.ApexHost != "apex.local" {
		t.Fatalf("created %+v", created)
	}

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/tanks/1", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("get status %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodDelete, "/api/tanks/1", nil))
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("delete status %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/tanks/1", nil))
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("get after delete status %d", recorder.Code)
	}
}

func TestHandler_TankDuplicateName(t *testing.T) {
	repo := &stubTankRepo{tanks: []masterdata.Tank{{ID: 1, Name: "display"}}}
	handler := newTestHandler(t, repo)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/tanks", strings.NewReader(`{"name":"display"}`)))
	if recorder.Code != http.StatusConflict {
		t.Fatalf("status %d, want 409", recorder.Code)
	}
}

func TestHandler_TankValidationError(t *testing.T) {
	handler := newTestHandler(t, &stubTankRepo{})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/tanks", strings.NewReader(`{}`)))
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", recorder.Code)
	}
}

func TestHandler_EmptyListIsJSONArray(t *testing.T) {
	handler := newTestHandler(t, &stubTankRepo{})

	for _, path := range []string{"/api/tanks", "/api/parameters", "/api/devices"} {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))
		if recorder.Code != http.StatusOK {
			t.Errorf("%s: status %d", path, recorder.Code)
		}
		if body := strings.TrimSpace(recorder.Body.String()); body != "[]" {
			t.Errorf("%s: body %q", path, body)
		}
	}
}

func TestHandler_UnknownCollection(t *testing.T) {
	handler := newTestHandler(t, &stubTankRepo{})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/corals", nil))
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status %d", recorder.Code)
	}
}

func TestParseID(t *testing.T) {
	if _, hasID, ok := parseID("/api/tanks", "/api/tanks"); hasID || !ok {
		t.Error("bare collection path must parse without id")
	}
	if id, hasID, ok := parseID("/api/tanks/7", "/api/tanks"); id != 7 || !hasID || !ok {
		t.Error("id path must parse")
	}
	for _, path := range []string{"/api/tanks/", "/api/tanks/x", "/api/tanks/0", "/api/tanks/7/sub"} {
		if _, _, ok := parseID(path, "/api/tanks"); ok {
			t.Errorf("%s must not parse", path)
		}
	}
}

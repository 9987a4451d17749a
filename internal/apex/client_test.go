package apex

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

type fakeController struct {
	token      string
	logins     int32
	rejectLogs bool
	ilogBody   string
	tlogBody   string
	statusBody string
}

func (f *fakeController) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/login", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.logins, 1)
		var payload struct {
			Login    string `json:"login"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Login != "admin" || payload.Password != "1234" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"connect.sid": f.token})
	})
	serveLog := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie("connect.sid")
			if err != nil || cookie.Value != f.token || f.rejectLogs {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if r.URL.Query().Get("_") == "" {
				http.Error(w, "missing cache buster", http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(body))
		}
	}
	mux.HandleFunc("/rest/ilog", serveLog(f.ilogBody))
	mux.HandleFunc("/rest/tlog", serveLog(f.tlogBody))
	mux.HandleFunc("/rest/status", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("connect.sid")
		if err != nil || cookie.Value != f.token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(f.statusBody))
	})
	return mux
}

func newTestClient(t *testing.T, controller *fakeController) (*Client, *SessionCache) {
	t.Helper()
	server := httptest.NewServer(controller.handler())
	t.Cleanup(server.Close)
	host := strings.TrimPrefix(server.URL, "http://")
	sessions := NewSessionCache()
	client, err := NewClient(host, Credentials{Username: "admin", Password: "1234"}, sessions)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, sessions
}

const testILog = `{"ilog": {"hostname": "apex", "record": [
	{"date": 1700000000, "data": [
		{"name": "Temp", "did": "base_Temp", "type": "Temp", "value": "25.4"},
		{"name": "Switch", "did": "base_Sw", "type": "Sw", "value": 1}
	]}
]}}`

const testTLog = `{"tlog": {"hostname": "apex", "record": [
	{"date": 1700000100, "did": "2_0", "value": 8.5, "confidence": 10}
]}}`

const testStatus = `{"system": {"hostname": "apex", "date": 1700000200}, "inputs": [
	{"did": "base_pH", "type": "pH", "name": "pH", "value": "8.21"},
	{"did": "3_1", "type": "3_1", "name": "NO3", "value": 5.0}
]}`

func TestClient_LoginOncePerSession(t *testing.T) {
	controller := &fakeController{token: "tok-1", ilogBody: testILog, tlogBody: testTLog}
	client, _ := newTestClient(t, controller)

	for i := 0; i < 3; i++ {
		if _, err := client.GetInstantLog(context.Background(), "231120", 2); err != nil {
			t.Fatalf("ilog %d: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&controller.logins); got != 1 {
		t.Fatalf("expected 1 login, got %d", got)
	}
}

func TestClient_BadCredentials(t *testing.T) {
	controller := &fakeController{token: "tok-1", ilogBody: testILog}
	server := httptest.NewServer(controller.handler())
	t.Cleanup(server.Close)
	host := strings.TrimPrefix(server.URL, "http://")
	client, err := NewClient(host, Credentials{Username: "admin", Password: "wrong"}, NewSessionCache())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.GetInstantLog(context.Background(), "231120", 2)
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
}

func TestClient_SessionRejectionInvalidates(t *testing.T) {
	controller := &fakeController{token: "tok-1", ilogBody: testILog, tlogBody: testTLog}
	client, _ := newTestClient(t, controller)

	if _, err := client.GetInstantLog(context.Background(), "231120", 2); err != nil {
		t.Fatalf("warm up: %v", err)
	}

	controller.rejectLogs = true
	_, err := client.GetInstantLog(context.Background(), "231120", 2)
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}

	// The cached session must be gone: the next call logs in again.
	controller.rejectLogs = false
	if _, err := client.GetInstantLog(context.Background(), "231120", 2); err != nil {
		t.Fatalf("after invalidate: %v", err)
	}
	if got := atomic.LoadInt32(&controller.logins); got != 2 {
		t.Fatalf("expected re-login after rejection, got %d logins", got)
	}
}

func TestClient_MalformedEnvelope(t *testing.T) {
	controller := &fakeController{token: "tok-1", ilogBody: `{"unexpected": true}`}
	client, _ := newTestClient(t, controller)

	_, err := client.GetInstantLog(context.Background(), "231120", 2)
	if !errors.Is(err, ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}

	controller.ilogBody = `not json at all`
	if _, err := client.GetInstantLog(context.Background(), "231120", 2); !errors.Is(err, ErrSchema) {
		t.Fatalf("expected ErrSchema for invalid json, got %v", err)
	}
}

func TestFetchReadings_MergesInFixedOrder(t *testing.T) {
	controller := &fakeController{token: "tok-1", ilogBody: testILog, tlogBody: testTLog, statusBody: testStatus}
	client, _ := newTestClient(t, controller)

	readings, err := client.FetchReadings(context.Background(), "231120", 2, true)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	// The unmapped switch entry and the non-probe status input drop out.
	if len(readings) != 3 {
		t.Fatalf("got %d readings: %+v", len(readings), readings)
	}
	if readings[0].Parameter != ParamTemperature || readings[0].Value != 25.4 {
		t.Errorf("instant-log reading first, got %+v", readings[0])
	}
	if readings[1].Parameter != ParamAlkalinity || readings[1].Value != 8.5 {
		t.Errorf("trend-log reading second, got %+v", readings[1])
	}
	if readings[2].Parameter != ParamPH || readings[2].Value != 8.21 {
		t.Errorf("status reading last, got %+v", readings[2])
	}
	if readings[2].Time.IsZero() {
		t.Error("status reading must be stamped with assembly time")
	}
}

func TestFetchReadings_SkipsStatusWhenDisabled(t *testing.T) {
	controller := &fakeController{token: "tok-1", ilogBody: testILog, tlogBody: testTLog, statusBody: `broken`}
	client, _ := newTestClient(t, controller)

	readings, err := client.FetchReadings(context.Background(), "231120", 2, false)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("got %d readings, want 2", len(readings))
	}
}

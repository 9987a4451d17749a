package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// fakeApexServer emulates an Apex controller's REST surface: session
// login, instant log, trend log and live status. History depth and
// failure injection are tunable so sync and backfill behavior can be
// exercised end to end without hardware.
type fakeApexServer struct {
	start       time.Time
	latency     time.Duration
	failRate    float64
	historyDays int
	username    string
	password    string

	mu         sync.Mutex
	sessions   map[string]time.Time
	sessionSeq int64
	byEndpoint map[string]int64
	totalCalls int64
}

type logEntry struct {
	Name  string  `json:"name"`
	DID   string  `json:"did"`
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

type probe struct {
	name string
	did  string
	kind string
	base float64
	amp  float64
}

var probes = []probe{
	{name: "Temp", did: "Tmp", kind: "Temp", base: 25.4, amp: 0.6},
	{name: "pH", did: "pH", kind: "pH", base: 8.2, amp: 0.15},
	{name: "Alk", did: "2_0", kind: "Alk", base: 8.5, amp: 0.4},
	{name: "Ca", did: "2_1", kind: "Ca", base: 430, amp: 12},
	{name: "Mg", did: "2_2", kind: "Mg", base: 1350, amp: 25},
	{name: "PO4", did: "3_0", kind: "PO4", base: 0.04, amp: 0.02},
	{name: "NO3", did: "3_1", kind: "NO3", base: 5.2, amp: 1.5},
}

func main() {
	addr := getenvDefault("FAKE_APEX_ADDR", ":18080")
	latencyMs := getenvIntDefault("FAKE_APEX_LATENCY_MS", 0)
	failRate := getenvFloatDefault("FAKE_APEX_FAIL_RATE", 0)
	historyDays := getenvIntDefault("FAKE_APEX_HISTORY_DAYS", 30)

	srv := &fakeApexServer{
		start:       time.Now().UTC(),
		latency:     time.Duration(latencyMs) * time.Millisecond,
		failRate:    failRate,
		historyDays: historyDays,
		username:    getenvDefault("FAKE_APEX_USERNAME", "admin"),
		password:    getenvDefault("FAKE_APEX_PASSWORD", "1234"),
		sessions:    make(map[string]time.Time),
		byEndpoint:  make(map[string]int64),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.HandleFunc("/metrics", srv.handleMetrics)
	mux.HandleFunc("/rest/login", srv.handleLogin)
	mux.HandleFunc("/rest/ilog", srv.handleInstantLog)
	mux.HandleFunc("/rest/tlog", srv.handleTrendLog)
	mux.HandleFunc("/rest/status", srv.handleStatus)

	log.Printf("fake apex controller listening on %s (history %d days)", addr, historyDays)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}

func (s *fakeApexServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *fakeApexServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload := map[string]any{
		"started_at":  s.start.Format(time.RFC3339),
		"total":       atomic.LoadInt64(&s.totalCalls),
		"by_endpoint": s.byEndpoint,
		"sessions":    len(s.sessions),
	}
	writeJSON(w, payload)
}

func (s *fakeApexServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.recordCall("login")
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if s.latency > 0 {
		time.Sleep(s.latency)
	}
	var payload struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if payload.Login != s.username || payload.Password != s.password {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	token := fmt.Sprintf("s%%3Afake-%d", atomic.AddInt64(&s.sessionSeq, 1))
	s.mu.Lock()
	s.sessions[token] = time.Now().UTC()
	s.mu.Unlock()
	writeJSON(w, map[string]string{"connect.sid": token})
}

func (s *fakeApexServer) handleInstantLog(w http.ResponseWriter, r *http.Request) {
	s.recordCall("ilog")
	days, startDay, ok := s.validateLogRequest(w, r)
	if !ok {
		return
	}

	var records []map[string]any
	for _, day := range s.availableDays(startDay, days) {
		// Four event-driven snapshots per day.
		for hour := 0; hour < 24; hour += 6 {
			at := day.Add(time.Duration(hour) * time.Hour)
			entries := make([]logEntry, 0, len(probes))
			for _, p := range probes {
				entries = append(entries, logEntry{
					Name:  p.name,
					DID:   p.did,
					Type:  p.kind,
					Value: p.valueAt(at),
				})
			}
			records = append(records, map[string]any{
				"date": at.Unix(),
				"data": entries,
			})
		}
	}

	writeJSON(w, map[string]any{
		"ilog": map[string]any{
			"hostname": "apex",
			"software": "5.12_8A24",
			"hardware": "1.0",
			"serial":   "AC5:12345",
			"type":     "apex",
			"timezone": "0.00",
			"record":   records,
		},
	})
}

func (s *fakeApexServer) handleTrendLog(w http.ResponseWriter, r *http.Request) {
	s.recordCall("tlog")
	days, startDay, ok := s.validateLogRequest(w, r)
	if !ok {
		return
	}

	var records []map[string]any
	for _, day := range s.availableDays(startDay, days) {
		// Hourly samples per probe.
		for hour := 0; hour < 24; hour++ {
			at := day.Add(time.Duration(hour) * time.Hour)
			for _, p := range probes {
				records = append(records, map[string]any{
					"date":       at.Unix(),
					"did":        p.did,
					"value":      p.valueAt(at),
					"confidence": 10,
				})
			}
		}
	}

	writeJSON(w, map[string]any{
		"tlog": map[string]any{
			"hostname": "apex",
			"software": "5.12_8A24",
			"hardware": "1.0",
			"serial":   "AC5:12345",
			"type":     "apex",
			"timezone": "0.00",
			"record":   records,
		},
	})
}

func (s *fakeApexServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.recordCall("status")
	if !s.authorize(w, r) {
		return
	}
	if s.latency > 0 {
		time.Sleep(s.latency)
	}

	now := time.Now()
	inputs := make([]map[string]any, 0, len(probes))
	for _, p := range probes {
		inputs = append(inputs, map[string]any{
			"did":   p.did,
			"type":  p.kind,
			"name":  p.name,
			"value": p.valueAt(now),
		})
	}

	writeJSON(w, map[string]any{
		"system": map[string]any{
			"hostname": "apex",
			"software": "5.12_8A24",
			"hardware": "1.0",
			"serial":   "AC5:12345",
			"type":     "apex",
			"timezone": "0.00",
			"date":     now.Unix(),
		},
		"modules": []any{},
		"outputs": []any{},
		"inputs":  inputs,
	})
}

// validateLogRequest checks the session cookie and the days/sdate query
// parameters shared by both log endpoints.
func (s *fakeApexServer) validateLogRequest(w http.ResponseWriter, r *http.Request) (days int, startDay time.Time, ok bool) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return 0, time.Time{}, false
	}
	if !s.authorize(w, r) {
		return 0, time.Time{}, false
	}
	if s.latency > 0 {
		time.Sleep(s.latency)
	}
	if s.failRate > 0 && rand.Float64() < s.failRate {
		http.Error(w, "injected failure", http.StatusInternalServerError)
		return 0, time.Time{}, false
	}

	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil || days <= 0 {
		http.Error(w, "days must be a positive integer", http.StatusBadRequest)
		return 0, time.Time{}, false
	}
	startDay, err = parseDayCode(r.URL.Query().Get("sdate"))
	if err != nil {
		http.Error(w, "sdate must be YYMMDD", http.StatusBadRequest)
		return 0, time.Time{}, false
	}
	return days, startDay, true
}

func (s *fakeApexServer) authorize(w http.ResponseWriter, r *http.Request) bool {
	cookie, err := r.Cookie("connect.sid")
	if err != nil || cookie.Value == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	s.mu.Lock()
	_, ok := s.sessions[cookie.Value]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

// availableDays intersects the requested window with the configured
// history depth. Days older than historyDays produce no records, which
// is what terminates a backfill walk.
func (s *fakeApexServer) availableDays(startDay time.Time, days int) []time.Time {
	oldest := time.Now().AddDate(0, 0, -s.historyDays)
	now := time.Now()

	var result []time.Time
	for i := 0; i < days; i++ {
		day := startDay.AddDate(0, 0, i)
		if day.Before(oldest) || day.After(now) {
			continue
		}
		result = append(result, day)
	}
	return result
}

// valueAt produces a deterministic daily curve plus small jitter.
func (p probe) valueAt(at time.Time) float64 {
	phase := float64(at.Hour())/24 + float64(at.YearDay())/365
	drift := p.amp * (2*phase - 1)
	jitter := p.amp * 0.1 * (rand.Float64() - 0.5)
	return p.base + drift + jitter
}

func parseDayCode(raw string) (time.Time, error) {
	if len(raw) != 6 {
		return time.Time{}, fmt.Errorf("day code %q", raw)
	}
	year, err1 := strconv.Atoi(raw[0:2])
	month, err2 := strconv.Atoi(raw[2:4])
	day, err3 := strconv.Atoi(raw[4:6])
	if err1 != nil || err2 != nil || err3 != nil || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("day code %q", raw)
	}
	return time.Date(2000+year, time.Month(month), day, 0, 0, 0, 0, time.Local), nil
}

func (s *fakeApexServer) recordCall(endpoint string) {
	atomic.AddInt64(&s.totalCalls, 1)
	s.mu.Lock()
	s.byEndpoint[endpoint]++
	s.mu.Unlock()
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

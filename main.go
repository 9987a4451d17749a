package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	alarmapp "reef-cloud/internal/alarms/application"
	alarmrepo "reef-cloud/internal/alarms/infrastructure/postgres"
	alarmhttp "reef-cloud/internal/alarms/interfaces/http"
	alarmnotify "reef-cloud/internal/alarms/notify"
	"reef-cloud/internal/apex"
	"reef-cloud/internal/auth"
	"reef-cloud/internal/exports"
	"reef-cloud/internal/ingest"
	ingesthttp "reef-cloud/internal/ingest/interfaces/http"
	masterdatarepo "reef-cloud/internal/masterdata/infrastructure/postgres"
	masterdatahttp "reef-cloud/internal/masterdata/interfaces/http"
	"reef-cloud/internal/observability/metrics"
	readingsrepo "reef-cloud/internal/readings/infrastructure/postgres"
	readingshttp "reef-cloud/internal/readings/interfaces/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	ingestCfg, err := ingest.LoadConfig()
	if err != nil {
		logger.Fatalf("ingest config error: %v", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)

	tankRepo := masterdatarepo.NewTankRepository(db)
	parameterRepo := masterdatarepo.NewParameterRepository(db)
	deviceRepo := masterdatarepo.NewDeviceRepository(db)
	readingRepo := readingsrepo.NewReadingRepository(db)
	goalRepo := readingsrepo.NewGoalRepository(db)
	alarmRepo := alarmrepo.NewAlarmRepository(db)

	alarmNotifiers := []alarmapp.AlarmNotifier{alarmnotify.NewLogNotifier(logger)}
	if cfg.AlarmWebhookURL != "" {
		channel, err := alarmnotify.NewWebhookChannel(cfg.AlarmWebhookURL)
		if err != nil {
			logger.Fatalf("alarm webhook error: %v", err)
		}
		tpl, err := alarmnotify.NewTemplate(cfg.AlarmNotifyTemplate)
		if err != nil {
			logger.Fatalf("alarm template error: %v", err)
		}
		webhookNotifier, err := alarmnotify.NewNotifier(tankRepo, parameterRepo, channel, tpl,
			alarmnotify.WithCooldown(cfg.AlarmNotifyCooldown),
			alarmnotify.WithDedupeWindow(cfg.AlarmNotifyDedupeWindow),
		)
		if err != nil {
			logger.Fatalf("alarm notifier error: %v", err)
		}
		alarmNotifiers = append(alarmNotifiers, webhookNotifier)
	}
	alarmService, err := alarmapp.NewService(alarmRepo, alarmnotify.NewMultiNotifier(alarmNotifiers...), logger)
	if err != nil {
		logger.Fatalf("alarm service error: %v", err)
	}

	sessions := apex.NewSessionCache()
	creds := apex.Credentials{Username: ingestCfg.Device.Username, Password: ingestCfg.Device.Password}
	clientFactory := func(host string) (ingest.DeviceFetcher, error) {
		return apex.NewClient(host, creds, sessions)
	}

	syncer, err := ingest.NewSyncer(tankRepo, parameterRepo, readingRepo, clientFactory, logger,
		ingest.WithStoredListener(alarmService))
	if err != nil {
		logger.Fatalf("syncer error: %v", err)
	}
	backfiller, err := ingest.NewBackfiller(syncer, ingestCfg, logger)
	if err != nil {
		logger.Fatalf("backfiller error: %v", err)
	}
	scheduler := ingest.NewScheduler(syncer, backfiller, ingestCfg, logger)
	go scheduler.Start(context.Background())

	masterdataHandler, err := masterdatahttp.NewHandler(tankRepo, parameterRepo, deviceRepo)
	if err != nil {
		logger.Fatalf("masterdata handler error: %v", err)
	}
	readingsHandler, err := readingshttp.NewHandler(readingRepo, goalRepo)
	if err != nil {
		logger.Fatalf("readings handler error: %v", err)
	}
	alarmHandler, err := alarmhttp.NewHandler(alarmRepo)
	if err != nil {
		logger.Fatalf("alarms handler error: %v", err)
	}
	ingestHandler, err := ingesthttp.NewHandler(syncer, backfiller, logger)
	if err != nil {
		logger.Fatalf("ingest handler error: %v", err)
	}
	exportsHandler, err := exports.NewHandler(tankRepo, parameterRepo, readingRepo, goalRepo)
	if err != nil {
		logger.Fatalf("exports handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/tanks", masterdataHandler)
	mux.Handle("/api/tanks/", masterdataHandler)
	mux.Handle("/api/parameters", masterdataHandler)
	mux.Handle("/api/parameters/", masterdataHandler)
	mux.Handle("/api/devices", masterdataHandler)
	mux.Handle("/api/devices/", masterdataHandler)
	mux.Handle("/api/parameter-readings", readingsHandler)
	mux.Handle("/api/parameter-readings/", readingsHandler)
	mux.Handle("/api/parameter-goals", readingsHandler)
	mux.Handle("/api/parameter-goals/", readingsHandler)
	mux.Handle("/api/alarms", alarmHandler)
	mux.Handle("/api/alarms/", alarmHandler)
	mux.Handle("/api/sync", ingestHandler)
	mux.Handle("/api/backfill", ingestHandler)
	mux.Handle("/api/exports/", exportsHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL             string
	HTTPAddr                string
	AlarmWebhookURL         string
	AlarmNotifyTemplate     string
	AlarmNotifyCooldown     time.Duration
	AlarmNotifyDedupeWindow time.Duration
	JWTSecret               string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:             getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:                getenvDefault("HTTP_ADDR", ":8080"),
		AlarmWebhookURL:         getenvDefault("ALARM_WEBHOOK_URL", ""),
		AlarmNotifyTemplate:     getenvDefault("ALARM_NOTIFY_TEMPLATE", ""),
		AlarmNotifyCooldown:     getenvDuration("ALARM_NOTIFY_COOLDOWN", 15*time.Minute),
		AlarmNotifyDedupeWindow: getenvDuration("ALARM_NOTIFY_DEDUP_WINDOW", 0),
		JWTSecret:               getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

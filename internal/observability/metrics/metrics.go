package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "reefcloud_"

var (
	registerOnce sync.Once

	readingsSubmitted prometheus.Counter
	readingsStored    prometheus.Counter
	deviceFetchErrors *prometheus.CounterVec
	syncFailures      prometheus.Counter
	syncLatency       prometheus.Histogram
	backfillWindows   prometheus.Counter
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		readingsSubmitted = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "readings_submitted_total",
				Help: "Readings submitted for storage after normalization",
			},
		)
		readingsStored = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "readings_stored_total",
				Help: "Readings newly persisted (non-conflict outcomes)",
			},
		)
		deviceFetchErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "device_fetch_errors_total",
				Help: "Device log/status fetch failures by host",
			},
			[]string{"host"},
		)
		syncFailures = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "sync_failures_total",
				Help: "Tank sync or backfill operations that aborted",
			},
		)
		syncLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "sync_latency_seconds",
				Help:    "Fleet sync latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		)
		backfillWindows = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "backfill_windows_total",
				Help: "Backfill windows visited",
			},
		)

		prometheus.MustRegister(
			readingsSubmitted,
			readingsStored,
			deviceFetchErrors,
			syncFailures,
			syncLatency,
			backfillWindows,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// AddReadingsSubmitted increments the submitted counter by count.
func AddReadingsSubmitted(count int) {
	if count <= 0 {
		return
	}
	if readingsSubmitted != nil {
		readingsSubmitted.Add(float64(count))
	}
}

// AddReadingsStored increments the stored counter by count.
func AddReadingsStored(count int) {
	if count <= 0 {
		return
	}
	if readingsStored != nil {
		readingsStored.Add(float64(count))
	}
}

// IncDeviceFetchError increments fetch errors for a host.
func IncDeviceFetchError(host string) {
	if host == "" {
		host = "unknown"
	}
	if deviceFetchErrors != nil {
		deviceFetchErrors.WithLabelValues(host).Inc()
	}
}

// IncSyncFailure increments the aborted-operation counter.
func IncSyncFailure() {
	if syncFailures != nil {
		syncFailures.Inc()
	}
}

// ObserveSyncLatency records one fleet sync duration.
func ObserveSyncLatency(duration time.Duration) {
	if syncLatency != nil {
		syncLatency.Observe(duration.Seconds())
	}
}

// IncBackfillWindow increments the visited-window counter.
func IncBackfillWindow() {
	if backfillWindows != nil {
		backfillWindows.Inc()
	}
}

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "parameter_readings_count",
			Help: "Total parameter readings in the store",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM parameter_readings")
		},
	))
}

func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}

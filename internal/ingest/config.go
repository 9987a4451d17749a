package ingest

import (
	"errors"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DeviceCredentials holds the login used for every controller.
// The Apex local firmware ships with admin/1234 and most installations
// keep it; override per deployment.
type DeviceCredentials struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Config defines poller configuration.
type Config struct {
	Interval        time.Duration     `yaml:"interval"`
	SyncWindowDays  int               `yaml:"sync_window_days"`
	IncludeStatus   bool              `yaml:"include_status"`
	BatchDays       int               `yaml:"backfill_batch_days"`
	StartOffsetDays int               `yaml:"backfill_start_offset_days"`
	MaxLookbackDays int               `yaml:"backfill_max_lookback_days"`
	Device          DeviceCredentials `yaml:"device"`
}

// LoadConfig loads poller config from yaml or env.
func LoadConfig() (Config, error) {
	cfg := Config{
		Interval:        getenvDuration("SYNC_INTERVAL", time.Minute),
		SyncWindowDays:  getenvIntDefault("SYNC_WINDOW_DAYS", 2),
		IncludeStatus:   getenvBoolDefault("SYNC_INCLUDE_STATUS", true),
		BatchDays:       getenvIntDefault("BACKFILL_BATCH_DAYS", 10),
		StartOffsetDays: getenvIntDefault("BACKFILL_START_OFFSET_DAYS", 10),
		MaxLookbackDays: getenvIntDefault("BACKFILL_MAX_LOOKBACK_DAYS", 3650),
		Device: DeviceCredentials{
			Username: getenvDefault("APEX_USERNAME", "admin"),
			Password: getenvDefault("APEX_PASSWORD", "1234"),
		},
	}

	if path := os.Getenv("POLLER_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.Interval <= 0 {
		return cfg, errors.New("ingest: interval must be positive")
	}
	if cfg.SyncWindowDays <= 0 {
		return cfg, errors.New("ingest: sync window must be positive")
	}
	if cfg.BatchDays <= 0 {
		return cfg, errors.New("ingest: backfill batch must be positive")
	}
	if cfg.MaxLookbackDays < cfg.StartOffsetDays {
		return cfg, errors.New("ingest: max lookback below start offset")
	}
	return cfg, nil
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

func getenvBoolDefault(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file, applies defaults, validates,
// then applies CERES_* environment overrides and re-validates. An empty
// path yields the pure default configuration (with env overrides still
// applied).
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	applyEnvOverrides(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies CERES_SECTION_FIELD environment variables on top
// of the loaded configuration. Environment always wins over the file.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("CERES_SESSION_TAG"); val != "" {
		cfg.Session.Tag = val
	}
	if val := os.Getenv("CERES_SESSION_TICK_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Session.TickInterval = d
		}
	}

	if val := os.Getenv("CERES_ROUTER_WINDOW_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Router.WindowSize = i
		}
	}
	if val := os.Getenv("CERES_ROUTER_CONFIDENCE_THRESHOLD"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Router.ConfidenceThreshold = f
		}
	}

	if val := os.Getenv("CERES_DETECTOR_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Detector.Enabled = b
		}
	}
	if val := os.Getenv("CERES_DETECTOR_PROVIDER"); val != "" {
		cfg.Detector.Provider = val
	}
	if val := os.Getenv("CERES_DETECTOR_MODEL"); val != "" {
		cfg.Detector.Model = val
	}
	if val := os.Getenv("CERES_DETECTOR_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Detector.Timeout = d
		}
	}

	if val := os.Getenv("CERES_AUDIT_DIR"); val != "" {
		cfg.Audit.Dir = val
	}
	if val := os.Getenv("CERES_AUDIT_QUEUE_CAPACITY"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Audit.QueueCapacity = i
		}
	}

	if val := os.Getenv("CERES_ARCHIVE_PATH"); val != "" {
		cfg.Archive.Path = val
	}

	if val := os.Getenv("CERES_ALERTS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Alerts.Enabled = b
		}
	}
	if val := os.Getenv("CERES_ALERTS_PROJECT_ID"); val != "" {
		cfg.Alerts.ProjectID = val
	}
	if val := os.Getenv("CERES_ALERTS_TOPIC"); val != "" {
		cfg.Alerts.Topic = val
	}

	if val := os.Getenv("CERES_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Metrics.ListenAddress = val
	}

	if val := os.Getenv("CERES_LOGGING_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("CERES_LOGGING_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
}

package config

import (
	"time"

	"helios-hq/ceres/pkg/detector"
)

// DefaultConfig returns a fully-populated configuration with every default
// applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. Booleans
// cannot be defaulted to true here without clobbering explicit false, so
// enabled flags default off and example configs turn them on.
func ApplyDefaults(cfg *Config) {
	if cfg.Session.TickInterval <= 0 {
		cfg.Session.TickInterval = 100 * time.Millisecond
	}

	if cfg.Guardrail.MaxWheelRPM == 0 {
		cfg.Guardrail.MaxWheelRPM = 6000
	}
	if cfg.Guardrail.MaxAngularRate == 0 {
		cfg.Guardrail.MaxAngularRate = 5.0
	}
	if cfg.Guardrail.QuaternionNormTolerance == 0 {
		cfg.Guardrail.QuaternionNormTolerance = 0.01
	}

	if cfg.Router.WindowSize == 0 {
		cfg.Router.WindowSize = 20
	}
	if cfg.Router.ConfidenceThreshold == 0 {
		cfg.Router.ConfidenceThreshold = 0.65
	}

	if len(cfg.Actions.Reversible) == 0 {
		cfg.Actions.Reversible = []string{
			"CONTINUE_MONITORING",
			"INCREASE_SAMPLING_RATE",
			"SOFT_RESET_WHEEL_1",
			"SOFT_RESET_WHEEL_2",
			"SOFT_RESET_WHEEL_3",
		}
	}
	if len(cfg.Actions.Irreversible) == 0 {
		cfg.Actions.Irreversible = []string{
			"ALERT_OPERATOR_MARGINAL",
			"ALERT_OPERATOR_CRITICAL",
		}
	}

	if cfg.Detector.Provider == "" {
		cfg.Detector.Provider = "gemini"
	}
	if cfg.Detector.Model == "" {
		cfg.Detector.Model = detector.DefaultModel
	}
	if cfg.Detector.APIKeyEnv == "" {
		cfg.Detector.APIKeyEnv = "GEMINI_API_KEY"
	}
	if cfg.Detector.Timeout <= 0 {
		cfg.Detector.Timeout = 30 * time.Second
	}
	if cfg.Detector.MaxOutputTokens <= 0 {
		cfg.Detector.MaxOutputTokens = 1024
	}

	if cfg.Audit.Dir == "" {
		cfg.Audit.Dir = "logs/audit"
	}
	if cfg.Audit.QueueCapacity == 0 {
		cfg.Audit.QueueCapacity = 10000
	}
	if cfg.Audit.StopTimeout <= 0 {
		cfg.Audit.StopTimeout = 5 * time.Second
	}

	if cfg.Archive.Path == "" {
		cfg.Archive.Path = "data/audit.db"
	}

	if cfg.Retention.RetentionDays == 0 {
		cfg.Retention.RetentionDays = 90
	}

	if cfg.Alerts.Emitter == "" {
		cfg.Alerts.Emitter = "log"
	}

	if cfg.Metrics.ListenAddress == "" {
		cfg.Metrics.ListenAddress = ":9090"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "helios"
	}
	if cfg.Metrics.Subsystem == "" {
		cfg.Metrics.Subsystem = "ceres"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Sim.Seed == 0 {
		cfg.Sim.Seed = 1
	}
	if cfg.Sim.NominalWheelRPM == 0 {
		cfg.Sim.NominalWheelRPM = 2000
	}
	if cfg.Sim.RateNoiseStdDev == 0 {
		cfg.Sim.RateNoiseStdDev = 0.05
	}
}

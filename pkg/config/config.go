package config

import "time"

// Config is the complete session configuration.
type Config struct {
	Session   SessionConfig   `yaml:"session"`
	Guardrail GuardrailConfig `yaml:"guardrail"`
	Router    RouterConfig    `yaml:"router"`
	Actions   ActionsConfig   `yaml:"actions"`
	Detector  DetectorConfig  `yaml:"detector"`
	Audit     AuditConfig     `yaml:"audit"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Retention RetentionConfig `yaml:"retention"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Sim       SimConfig       `yaml:"sim"`
}

// SessionConfig controls the run loop.
type SessionConfig struct {
	// Tag distinguishes parallel sessions; embedded in the audit log name.
	Tag string `yaml:"tag"`

	// TickInterval is the telemetry sampling period.
	TickInterval time.Duration `yaml:"tick_interval"`

	// MaxTicks bounds the session length. 0 means run until interrupted.
	MaxTicks int `yaml:"max_ticks"`
}

// GuardrailConfig holds the structural constraint limits.
type GuardrailConfig struct {
	// MaxWheelRPM is the reaction wheel speed limit, absolute value.
	MaxWheelRPM float64 `yaml:"max_wheel_rpm"`

	// MaxAngularRate is the body rate limit in deg/s, absolute value.
	MaxAngularRate float64 `yaml:"max_angular_rate"`

	// QuaternionNormTolerance bounds the attitude quaternion norm
	// deviation from unity.
	QuaternionNormTolerance float64 `yaml:"quaternion_norm_tolerance"`
}

// RouterConfig controls the decision router.
type RouterConfig struct {
	// WindowSize is the number of nominal frames accumulated before a
	// detector dispatch.
	WindowSize int `yaml:"window_size"`

	// ConfidenceThreshold is the minimum detector confidence treated as
	// actionable. Hot-reloadable.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

// ActionsConfig is the mitigation action vocabulary. Hot-reloadable.
type ActionsConfig struct {
	// Reversible actions may be taken autonomously.
	Reversible []string `yaml:"reversible"`

	// Irreversible actions always require human approval.
	Irreversible []string `yaml:"irreversible"`
}

// DetectorConfig controls the probabilistic anomaly detector.
type DetectorConfig struct {
	// Enabled toggles the detector. When false every nominal tick skips
	// the probabilistic layer.
	Enabled bool `yaml:"enabled"`

	// Provider selects the backend: "gemini" or "stub".
	Provider string `yaml:"provider"`

	// Model is the Gemini model name.
	Model string `yaml:"model"`

	// APIKeyEnv names the environment variable holding the API key. The
	// key itself never appears in the config file.
	APIKeyEnv string `yaml:"api_key_env"`

	// Timeout bounds one detector round trip.
	Timeout time.Duration `yaml:"timeout"`

	// MaxOutputTokens caps the structured report size.
	MaxOutputTokens int32 `yaml:"max_output_tokens"`
}

// AuditConfig controls the audit logger.
type AuditConfig struct {
	// Dir is where session log files are written.
	Dir string `yaml:"dir"`

	// QueueCapacity bounds the submission queue.
	QueueCapacity int `yaml:"queue_capacity"`

	// StopTimeout bounds the shutdown drain wait.
	StopTimeout time.Duration `yaml:"stop_timeout"`
}

// ArchiveConfig controls the SQLite decision archive.
type ArchiveConfig struct {
	// Path is the database file path.
	Path string `yaml:"path"`
}

// RetentionConfig controls archive pruning.
type RetentionConfig struct {
	// RetentionDays is the age limit; 0 keeps records forever.
	RetentionDays int `yaml:"retention_days"`

	// MaxRecords is the count limit; 0 is unlimited.
	MaxRecords int64 `yaml:"max_records"`

	// PruneSchedule is a cron expression; empty disables scheduling.
	PruneSchedule string `yaml:"prune_schedule"`
}

// AlertsConfig controls operator alerting.
type AlertsConfig struct {
	// Enabled toggles alert emission.
	Enabled bool `yaml:"enabled"`

	// Emitter selects the backend: "log" or "pubsub".
	Emitter string `yaml:"emitter"`

	// ProjectID and Topic configure the Pub/Sub emitter.
	ProjectID string `yaml:"project_id"`
	Topic     string `yaml:"topic"`
}

// MetricsConfig controls Prometheus exposition.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the metrics HTTP server address.
	ListenAddress string `yaml:"listen_address"`

	// Path is the scrape endpoint path.
	Path string `yaml:"path"`

	// Namespace and Subsystem prefix metric names.
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`
}

// LoggingConfig controls the process-wide logger.
type LoggingConfig struct {
	// Level is "debug", "info", "warn", or "error".
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// SimConfig controls the synthetic telemetry source.
type SimConfig struct {
	// Seed makes the telemetry stream reproducible.
	Seed int64 `yaml:"seed"`

	// NominalWheelRPM is the steady-state wheel speed.
	NominalWheelRPM float64 `yaml:"nominal_wheel_rpm"`

	// RateNoiseStdDev is the Gaussian body rate noise in deg/s.
	RateNoiseStdDev float64 `yaml:"rate_noise_std_dev"`
}

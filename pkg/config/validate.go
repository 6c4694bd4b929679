package config

import "fmt"

// Validate checks the configuration for values that would produce an unsafe
// or unrunnable session.
func Validate(cfg *Config) error {
	if cfg.Guardrail.MaxWheelRPM <= 0 {
		return fmt.Errorf("guardrail.max_wheel_rpm must be positive, got %v", cfg.Guardrail.MaxWheelRPM)
	}
	if cfg.Guardrail.MaxAngularRate <= 0 {
		return fmt.Errorf("guardrail.max_angular_rate must be positive, got %v", cfg.Guardrail.MaxAngularRate)
	}
	if cfg.Guardrail.QuaternionNormTolerance <= 0 {
		return fmt.Errorf("guardrail.quaternion_norm_tolerance must be positive, got %v", cfg.Guardrail.QuaternionNormTolerance)
	}

	if cfg.Router.WindowSize < 1 {
		return fmt.Errorf("router.window_size must be at least 1, got %d", cfg.Router.WindowSize)
	}
	if cfg.Router.ConfidenceThreshold < 0 || cfg.Router.ConfidenceThreshold > 1 {
		return fmt.Errorf("router.confidence_threshold must be in [0, 1], got %v", cfg.Router.ConfidenceThreshold)
	}

	if len(cfg.Actions.Reversible) == 0 && len(cfg.Actions.Irreversible) == 0 {
		return fmt.Errorf("actions: vocabulary is empty")
	}
	seen := make(map[string]bool, len(cfg.Actions.Reversible))
	for _, a := range cfg.Actions.Reversible {
		seen[a] = true
	}
	for _, a := range cfg.Actions.Irreversible {
		if seen[a] {
			return fmt.Errorf("actions: %q listed as both reversible and irreversible", a)
		}
	}

	switch cfg.Detector.Provider {
	case "gemini", "stub":
	default:
		return fmt.Errorf("detector.provider must be \"gemini\" or \"stub\", got %q", cfg.Detector.Provider)
	}

	if cfg.Audit.QueueCapacity < 1 {
		return fmt.Errorf("audit.queue_capacity must be at least 1, got %d", cfg.Audit.QueueCapacity)
	}

	switch cfg.Alerts.Emitter {
	case "log", "pubsub":
	default:
		return fmt.Errorf("alerts.emitter must be \"log\" or \"pubsub\", got %q", cfg.Alerts.Emitter)
	}
	if cfg.Alerts.Enabled && cfg.Alerts.Emitter == "pubsub" {
		if cfg.Alerts.ProjectID == "" || cfg.Alerts.Topic == "" {
			return fmt.Errorf("alerts: pubsub emitter requires project_id and topic")
		}
	}

	if cfg.Retention.RetentionDays < 0 {
		return fmt.Errorf("retention.retention_days must not be negative, got %d", cfg.Retention.RetentionDays)
	}
	if cfg.Retention.MaxRecords < 0 {
		return fmt.Errorf("retention.max_records must not be negative, got %d", cfg.Retention.MaxRecords)
	}

	return nil
}

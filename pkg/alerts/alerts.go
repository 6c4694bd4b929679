package alerts

import (
	"context"
	"encoding/json"
	"log/slog"

	"helios-hq/ceres/pkg/router"
)

// Alert is one operator notification.
type Alert struct {
	// EventID links back to the decision event in the audit trail.
	EventID string `json:"event_id"`

	// Outcome is the decision outcome that raised the alert.
	Outcome router.Outcome `json:"outcome"`

	// ProposedAction is the held mitigation, empty for pure violations.
	ProposedAction string `json:"proposed_action,omitempty"`

	// Severity is "fatal" for safe-mode outcomes, "critical" otherwise.
	Severity string `json:"severity"`

	// Message is the decision justification.
	Message string `json:"message"`

	// TimestampNS is the decision timestamp.
	TimestampNS int64 `json:"timestamp_ns"`
}

// FromEvent builds an alert for a decision, or nil when the decision does
// not need an operator.
func FromEvent(event *router.Event) *Alert {
	if !event.RequiresHumanApproval {
		return nil
	}

	severity := "critical"
	if event.Outcome == router.OutcomeViolationFatal {
		severity = "fatal"
	}

	return &Alert{
		EventID:        event.ID,
		Outcome:        event.Outcome,
		ProposedAction: event.ProposedAction,
		Severity:       severity,
		Message:        event.Message,
		TimestampNS:    event.TimestampNS,
	}
}

// Emitter delivers alerts to an operator channel.
type Emitter interface {
	Emit(ctx context.Context, alert *Alert) error
	Close() error
}

// LogEmitter writes alerts to the structured log. It never fails, so it is
// the fallback channel of last resort.
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter creates a log-backed emitter.
func NewLogEmitter() *LogEmitter {
	return &LogEmitter{logger: slog.Default().With("component", "alerts")}
}

// Emit logs the alert at warn level, error level for fatal severity.
func (e *LogEmitter) Emit(_ context.Context, alert *Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	if alert.Severity == "fatal" {
		e.logger.Error("OPERATOR ALERT", "alert", string(data))
	} else {
		e.logger.Warn("OPERATOR ALERT", "alert", string(data))
	}
	return nil
}

// Close is a no-op for the log emitter.
func (e *LogEmitter) Close() error { return nil }

// MultiEmitter fans one alert out to every child emitter. Delivery is
// best-effort per child; the first error is returned after all children
// have been tried.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter creates a fan-out emitter.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	return &MultiEmitter{emitters: emitters}
}

// Emit delivers the alert to every child.
func (m *MultiEmitter) Emit(ctx context.Context, alert *Alert) error {
	var firstErr error
	for _, e := range m.emitters {
		if err := e.Emit(ctx, alert); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes every child.
func (m *MultiEmitter) Close() error {
	var firstErr error
	for _, e := range m.emitters {
		if err := e.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

package guardrail

import (
	"fmt"
	"math"

	"helios-hq/ceres/pkg/telemetry"
)

// Limits holds the hardware constraint bounds evaluated by the Engine.
// The values trace to the physical attributes of the attitude control
// hardware; they are fixed per deployment, not tuned at runtime.
type Limits struct {
	// MaxWheelRPM is the structural reaction wheel speed limit. The
	// constraint is bidirectional: |rpm| must not exceed this value.
	MaxWheelRPM float64

	// MaxAngularRate is the per-axis control stability limit in deg/s.
	MaxAngularRate float64

	// QuaternionNormTolerance is the permitted deviation of the attitude
	// quaternion norm from 1.0.
	QuaternionNormTolerance float64
}

// DefaultLimits returns the constraint bounds for the reference reaction
// wheel assembly: ±6000 RPM structural limit, ±5 deg/s stability limit,
// 0.01 unit-norm tolerance.
func DefaultLimits() Limits {
	return Limits{
		MaxWheelRPM:             6000.0,
		MaxAngularRate:          5.0,
		QuaternionNormTolerance: 0.01,
	}
}

// Engine is the deterministic structural constraint evaluator. It is
// stateless and safe for concurrent use.
type Engine struct {
	limits Limits
}

// NewEngine creates a constraint engine with the given limits.
func NewEngine(limits Limits) *Engine {
	return &Engine{limits: limits}
}

// Evaluate checks one telemetry frame against every hardware constraint and
// returns the aggregate report. All checks run unconditionally so a single
// report can carry multiple violations. Identical input yields an identical
// report across calls.
func (e *Engine) Evaluate(frame *telemetry.Frame) *Report {
	var violations []Violation

	violations = append(violations, e.checkAttitude(frame)...)
	violations = append(violations, e.checkAngularRates(frame)...)
	violations = append(violations, e.checkWheels(frame)...)

	report := &Report{
		Passed:     len(violations) == 0,
		Violations: violations,
	}
	for _, v := range violations {
		if v.Severity == SeverityCatastrophic {
			report.HasFatal = true
		}
		if v.Class == Irreversible {
			report.RequiresIrreversibleAction = true
		}
	}
	return report
}

// checkAttitude enforces the unit-norm constraint on the attitude
// quaternion. A non-unit norm indicates numerical divergence or corrupted
// sensor data.
func (e *Engine) checkAttitude(frame *telemetry.Frame) []Violation {
	if frame.Attitude == nil {
		return []Violation{failClosed(telemetry.SectionAttitude, 1.0, frame)}
	}

	norm := frame.Attitude.Norm()
	if math.Abs(norm-1.0) > e.limits.QuaternionNormTolerance {
		return []Violation{{
			Field:    "attitude_q.norm",
			Observed: norm,
			Limit:    1.0,
			Severity: SeverityCatastrophic,
			Class:    Irreversible,
			Message: fmt.Sprintf(
				"FATAL: quaternion norm %.6f violates unit constraint beyond tolerance %.2f; possible telemetry corruption",
				norm, e.limits.QuaternionNormTolerance),
		}}
	}
	return nil
}

// checkAngularRates enforces the per-axis stability limit on the gyroscope
// rates.
func (e *Engine) checkAngularRates(frame *telemetry.Frame) []Violation {
	if frame.Rates == nil {
		return []Violation{failClosed(telemetry.SectionAngularRates, e.limits.MaxAngularRate, frame)}
	}

	axes := []struct {
		name  string
		value float64
	}{
		{"roll", frame.Rates.Roll},
		{"pitch", frame.Rates.Pitch},
		{"yaw", frame.Rates.Yaw},
	}

	var violations []Violation
	for _, axis := range axes {
		if math.Abs(axis.value) > e.limits.MaxAngularRate {
			violations = append(violations, Violation{
				Field:    telemetry.SectionAngularRates + "." + axis.name,
				Observed: axis.value,
				Limit:    e.limits.MaxAngularRate,
				Severity: SeverityCritical,
				Class:    Irreversible,
				Message: fmt.Sprintf(
					"CRITICAL: %s rate %.4f deg/s exceeds control stability limit ±%.1f deg/s",
					axis.name, axis.value, e.limits.MaxAngularRate),
			})
		}
	}
	return violations
}

// checkWheels enforces the structural RPM limit on every reaction wheel.
// Wheels are visited in sorted identifier order so the violation list is
// deterministic for a given frame.
func (e *Engine) checkWheels(frame *telemetry.Frame) []Violation {
	if frame.WheelRPMs == nil {
		return []Violation{failClosed(telemetry.SectionWheelRPMs, e.limits.MaxWheelRPM, frame)}
	}

	var violations []Violation
	for _, id := range frame.WheelIDs() {
		rpm := frame.WheelRPMs[id]
		if math.Abs(rpm) > e.limits.MaxWheelRPM {
			violations = append(violations, Violation{
				Field:    telemetry.SectionWheelRPMs + "." + id,
				Observed: rpm,
				Limit:    e.limits.MaxWheelRPM,
				Severity: SeverityCatastrophic,
				Class:    Irreversible,
				Message: fmt.Sprintf(
					"FATAL: %s RPM %.2f exceeds structural limit ±%.0f; immediate safe-mode fallback required",
					id, rpm, e.limits.MaxWheelRPM),
			})
		}
	}
	return violations
}

// failClosed synthesizes the violation emitted when a safety-relevant
// section is missing or unparseable. Absence of data is treated as a
// catastrophic breach of the field it should have populated.
func failClosed(section string, limit float64, frame *telemetry.Frame) Violation {
	detail := frame.SectionErrors[section]
	if detail == "" {
		detail = "section unavailable"
	}
	return Violation{
		Field:    section,
		Observed: 0,
		Limit:    limit,
		Severity: SeverityCatastrophic,
		Class:    Irreversible,
		Message:  fmt.Sprintf("FATAL: %s failed structural validation: %s", section, detail),
	}
}

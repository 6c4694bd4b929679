package detector

import (
	"context"

	"helios-hq/ceres/pkg/telemetry"
)

// StaticDetector is a deterministic Detector that returns the same result
// on every dispatch. Used by tests and by offline sessions that exercise
// the full decision path without a live model.
type StaticDetector struct {
	// Result is returned verbatim from every Analyze call.
	Result *Result

	// Err, when non-nil, is returned instead of Result.
	Err error

	// Dispatches counts Analyze invocations.
	Dispatches int

	// LastWindow retains the most recent window, for assertions.
	LastWindow []*telemetry.Frame
}

// Analyze implements Detector.
func (d *StaticDetector) Analyze(_ context.Context, window []*telemetry.Frame) (*Result, error) {
	d.Dispatches++
	d.LastWindow = window
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Result, nil
}

// Nominal returns a detector that always reports no anomaly.
func Nominal() *StaticDetector {
	return &StaticDetector{
		Result: &Result{
			Report: &Report{
				Detected:          false,
				Confidence:        0.1,
				RecommendedAction: "CONTINUE_MONITORING",
				Reasoning:         "telemetry within nominal envelope",
				AffectedSubsystem: "None",
			},
		},
	}
}

// Anomalous returns a detector that always confirms an anomaly with the
// given confidence and action.
func Anomalous(confidence float64, action, subsystem string) *StaticDetector {
	return &StaticDetector{
		Result: &Result{
			Report: &Report{
				Detected:          true,
				Confidence:        confidence,
				RecommendedAction: action,
				Reasoning:         "synthetic anomaly assessment",
				AffectedSubsystem: subsystem,
			},
		},
	}
}

// Failing returns a detector that always breaches its contract.
func Failing(reason string) *StaticDetector {
	return &StaticDetector{Err: &ProtocolError{Reason: reason}}
}

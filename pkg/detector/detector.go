package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"helios-hq/ceres/pkg/telemetry"
)

// Report is the structured anomaly assessment produced by one detector
// dispatch. It is the only accepted output shape; anything else is a
// protocol failure. Immutable once created.
type Report struct {
	// Detected is true if the telemetry window exhibits an anomalous
	// pattern.
	Detected bool `json:"anomaly_detected"`

	// Confidence is the assessment confidence in [0.0, 1.0], rounded to
	// 4 decimal places at the contract boundary.
	Confidence float64 `json:"confidence"`

	// RecommendedAction is the proposed mitigation, drawn from the closed
	// action vocabulary.
	RecommendedAction string `json:"recommended_action"`

	// Reasoning is the detector's justification for the assessment.
	Reasoning string `json:"reasoning"`

	// AffectedSubsystem names the implicated subsystem, e.g.
	// "ReactionWheel_2" or "Gyroscope_Roll".
	AffectedSubsystem string `json:"affected_subsystem"`
}

// Usage carries the token accounting for one detector dispatch.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// Result bundles a validated Report with the dispatch cost telemetry the
// audit trail records alongside it.
type Result struct {
	// Report is the validated anomaly assessment.
	Report *Report

	// Usage is the token accounting for the dispatch, nil for detectors
	// that have no token cost.
	Usage *Usage

	// PromptSHA256 is the hex SHA-256 of the exact prompt dispatched, for
	// reproducibility audits. Empty for detectors without a prompt.
	PromptSHA256 string
}

// Detector is the heuristic anomaly detection capability consulted by the
// decision router. Analyze receives an ordered window of frames that have
// all passed the constraint engine. Any returned error means the detector
// failed to honor its structured-report contract and is routed to human
// review; there is no retry.
type Detector interface {
	Analyze(ctx context.Context, window []*telemetry.Frame) (*Result, error)
}

// ProtocolError signals that the detector produced output outside its
// permitted contract: malformed structure, an out-of-range field, or an
// explicit refusal.
type ProtocolError struct {
	// Reason describes the contract breach.
	Reason string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("detector protocol violation: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("detector protocol violation: %s", e.Reason)
}

// Unwrap returns the underlying cause error.
func (e *ProtocolError) Unwrap() error {
	return e.Cause
}

// ParseReport decodes and validates a raw detector payload against the
// report contract. Confidence outside [0, 1] is a protocol violation;
// in-range confidence is rounded to 4 decimal places.
func ParseReport(raw []byte) (*Report, error) {
	var report Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, &ProtocolError{Reason: "report is not valid JSON", Cause: err}
	}
	if report.Confidence < 0.0 || report.Confidence > 1.0 {
		return nil, &ProtocolError{
			Reason: fmt.Sprintf("confidence %v outside [0.0, 1.0]", report.Confidence),
		}
	}
	if report.RecommendedAction == "" {
		return nil, &ProtocolError{Reason: "recommended_action missing"}
	}
	report.Confidence = math.Round(report.Confidence*10000) / 10000
	return &report, nil
}

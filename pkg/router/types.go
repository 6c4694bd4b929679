package router

import (
	"time"

	"helios-hq/ceres/pkg/detector"
	"helios-hq/ceres/pkg/guardrail"
)

// Outcome enumerates the terminal results of the bimodal decision protocol.
// Exactly one outcome is produced per processed frame.
type Outcome string

const (
	// OutcomePassDetectorSkipped: telemetry nominal, detector window not
	// yet full (or detector disabled).
	OutcomePassDetectorSkipped Outcome = "PASS_DETECTOR_SKIPPED"

	// OutcomePassDetectorNominal: window dispatched, no actionable anomaly.
	OutcomePassDetectorNominal Outcome = "PASS_DETECTOR_NOMINAL"

	// OutcomeAnomalyType2: anomaly confirmed, reversible action approved
	// for autonomous actuation.
	OutcomeAnomalyType2 Outcome = "ANOMALY_TYPE2"

	// OutcomeAnomalyType1: anomaly confirmed, irreversible action held for
	// human approval.
	OutcomeAnomalyType1 Outcome = "ANOMALY_TYPE1"

	// OutcomeViolationFatal: catastrophic structural violation (or frame
	// decode failure). Detector bypassed; safe-mode fallback engaged.
	OutcomeViolationFatal Outcome = "VIOLATION_FATAL"

	// OutcomeViolationCritical: non-fatal structural violation. Detector
	// bypassed; operator alert required.
	OutcomeViolationCritical Outcome = "VIOLATION_CRITICAL"

	// OutcomeTrustBoundaryViolation: the detector produced output outside
	// its permitted contract, or proposed an unknown action. Always routed
	// to human review.
	OutcomeTrustBoundaryViolation Outcome = "TRUST_BOUNDARY_VIOLATION"
)

// Event is the immutable record of one decision protocol execution. Every
// event is handed to the audit logger before any downstream consumption.
type Event struct {
	// ID uniquely identifies this decision.
	ID string `json:"id"`

	// TimestampNS is when the decision was made, nanoseconds since epoch.
	TimestampNS int64 `json:"decision_timestamp_ns"`

	// TelemetryTimestampNS is the source frame timestamp, zero when the
	// frame carried none (e.g. the decode-failure path).
	TelemetryTimestampNS int64 `json:"telemetry_timestamp_ns,omitempty"`

	// Outcome is the terminal protocol result.
	Outcome Outcome `json:"outcome"`

	// Guardrail embeds the constraint report, nil only on the
	// decode-failure path.
	Guardrail *guardrail.Report `json:"guardrail_report,omitempty"`

	// Anomaly embeds the detector report for dispatched ticks.
	Anomaly *detector.Report `json:"anomaly_report,omitempty"`

	// ProposedAction is the detector's recommended action, empty when no
	// action was proposed.
	ProposedAction string `json:"proposed_action,omitempty"`

	// ActuationApproved is true when the decision authorizes autonomous
	// actuation (a reversible mitigation, or the safe-mode fallback on the
	// fatal path).
	ActuationApproved bool `json:"actuation_approved"`

	// RequiresHumanApproval is true when the decision must be reviewed by
	// an operator before (or, for safe-mode, after) taking effect.
	RequiresHumanApproval bool `json:"requires_human_approval"`

	// Message is the human-readable justification for the outcome.
	Message string `json:"message"`
}

// Perf carries the per-tick performance telemetry recorded alongside the
// event in the audit trail.
type Perf struct {
	// GuardrailLatency is the time spent decoding and constraint-checking
	// the frame.
	GuardrailLatency time.Duration

	// DetectorLatency is the detector round-trip time, nil for ticks that
	// did not dispatch.
	DetectorLatency *time.Duration

	// Usage is the detector token accounting, nil when not applicable.
	Usage *detector.Usage

	// PromptSHA256 is the hash of the dispatched prompt, empty when no
	// dispatch occurred.
	PromptSHA256 string
}

package audit

import (
	"time"

	"helios-hq/ceres/pkg/guardrail"
	"helios-hq/ceres/pkg/router"
)

// SchemaVersion identifies the record layout. Bump on any field change so
// downstream consumers can dispatch on it.
const SchemaVersion = "1.0.0"

// Record is one line of the audit trail. Fields are flattened from the
// decision event plus performance data captured while the decision was made.
type Record struct {
	SchemaVersion string `json:"schema_version"`

	ID          string `json:"id"`
	LoggedAtUTC string `json:"logged_at_utc"`

	DecisionTimestampNS  int64 `json:"decision_timestamp_ns"`
	TelemetryTimestampNS int64 `json:"telemetry_timestamp_ns,omitempty"`

	Outcome               router.Outcome `json:"outcome"`
	ProposedAction        string         `json:"proposed_action,omitempty"`
	ActuationApproved     bool           `json:"actuation_approved"`
	RequiresHumanApproval bool           `json:"requires_human_approval"`
	Message               string         `json:"message,omitempty"`

	Guardrail GuardrailRecord `json:"guardrail"`
	Detector  *DetectorRecord `json:"detector,omitempty"`
	Cost      *CostRecord     `json:"cost,omitempty"`
}

// GuardrailRecord summarizes the deterministic check for one frame.
type GuardrailRecord struct {
	Passed                     bool                  `json:"passed"`
	HasFatal                   bool                  `json:"has_fatal"`
	RequiresIrreversibleAction bool                  `json:"requires_irreversible_action"`
	Violations                 []guardrail.Violation `json:"violations,omitempty"`
	LatencyUS                  int64                 `json:"latency_us"`
}

// DetectorRecord is present only when the probabilistic layer was consulted.
type DetectorRecord struct {
	Detected          bool    `json:"anomaly_detected"`
	Confidence        float64 `json:"confidence"`
	RecommendedAction string  `json:"recommended_action"`
	AffectedSubsystem string  `json:"affected_subsystem,omitempty"`
	Reasoning         string  `json:"reasoning,omitempty"`
	LatencyUS         int64   `json:"latency_us"`
}

// CostRecord captures token spend and the hash of the exact prompt sent, so
// a dispatch can be reproduced and billed after the fact.
type CostRecord struct {
	InputTokens      int64  `json:"input_tokens"`
	OutputTokens     int64  `json:"output_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
	PromptHashSHA256 string `json:"prompt_hash_sha256,omitempty"`
}

// NewRecord flattens a decision event and its performance data into one
// audit record. perf may be nil for events produced without timing capture.
func NewRecord(event *router.Event, perf *router.Perf) *Record {
	rec := &Record{
		SchemaVersion:         SchemaVersion,
		ID:                    event.ID,
		LoggedAtUTC:           time.Now().UTC().Format(time.RFC3339Nano),
		DecisionTimestampNS:   event.TimestampNS,
		TelemetryTimestampNS:  event.TelemetryTimestampNS,
		Outcome:               event.Outcome,
		ProposedAction:        event.ProposedAction,
		ActuationApproved:     event.ActuationApproved,
		RequiresHumanApproval: event.RequiresHumanApproval,
		Message:               event.Message,
	}

	if event.Guardrail != nil {
		rec.Guardrail = GuardrailRecord{
			Passed:                     event.Guardrail.Passed,
			HasFatal:                   event.Guardrail.HasFatal,
			RequiresIrreversibleAction: event.Guardrail.RequiresIrreversibleAction,
			Violations:                 event.Guardrail.Violations,
		}
	}

	if perf != nil {
		rec.Guardrail.LatencyUS = perf.GuardrailLatency.Microseconds()
	}

	if event.Anomaly != nil {
		rec.Detector = &DetectorRecord{
			Detected:          event.Anomaly.Detected,
			Confidence:        event.Anomaly.Confidence,
			RecommendedAction: event.Anomaly.RecommendedAction,
			AffectedSubsystem: event.Anomaly.AffectedSubsystem,
			Reasoning:         event.Anomaly.Reasoning,
		}
		if perf != nil && perf.DetectorLatency != nil {
			rec.Detector.LatencyUS = perf.DetectorLatency.Microseconds()
		}
	}

	if perf != nil && perf.Usage != nil {
		rec.Cost = &CostRecord{
			InputTokens:      perf.Usage.InputTokens,
			OutputTokens:     perf.Usage.OutputTokens,
			TotalTokens:      perf.Usage.TotalTokens,
			PromptHashSHA256: perf.PromptSHA256,
		}
	}

	return rec
}

package guardrail

// Severity classifies the hazard level of a constraint violation.
type Severity string

const (
	// SeverityCatastrophic indicates loss of hardware or mission.
	SeverityCatastrophic Severity = "CATASTROPHIC"

	// SeverityCritical indicates major system damage or mission degradation.
	SeverityCritical Severity = "CRITICAL"

	// SeverityMarginal indicates reduced mission performance.
	SeverityMarginal Severity = "MARGINAL"

	// SeverityNegligible indicates no significant impact.
	SeverityNegligible Severity = "NEGLIGIBLE"
)

// Reversibility classifies whether the mitigation for a violation can be
// undone. Irreversible mitigations require human approval before actuation.
type Reversibility string

const (
	// Irreversible mitigations cannot be undone once actuated.
	Irreversible Reversibility = "IRREVERSIBLE"

	// Reversible mitigations are eligible for autonomous actuation.
	Reversible Reversibility = "REVERSIBLE"
)

// Violation records a single telemetry attribute breaching a hardware
// constraint. Immutable once created.
type Violation struct {
	// Field is the dotted path of the violating attribute, e.g.
	// "rw_rpms.wheel_2" or "attitude_q.norm".
	Field string `json:"field"`

	// Observed is the value the telemetry carried.
	Observed float64 `json:"observed_value"`

	// Limit is the constraint bound that was breached.
	Limit float64 `json:"limit_value"`

	// Severity is the hazard classification of the breach.
	Severity Severity `json:"severity"`

	// Class is the reversibility classification of the required mitigation.
	Class Reversibility `json:"reversibility"`

	// Message is a human-readable description of the breach.
	Message string `json:"message"`
}

// Report is the full constraint evaluation for one telemetry frame.
type Report struct {
	// Passed is true iff Violations is empty.
	Passed bool `json:"passed"`

	// Violations lists every constraint breach, in evaluation order.
	Violations []Violation `json:"violations"`

	// HasFatal is true iff any violation is catastrophic.
	HasFatal bool `json:"has_fatal"`

	// RequiresIrreversibleAction is true iff any violation carries an
	// irreversible mitigation class. HasFatal implies this flag.
	RequiresIrreversibleAction bool `json:"requires_irreversible_action"`
}

package detector

import (
	"fmt"
	"sort"
)

// ActionClass is the reversibility classification of a proposed action.
type ActionClass string

const (
	// ActionReversible actions can be mitigated autonomously.
	ActionReversible ActionClass = "REVERSIBLE"

	// ActionIrreversible actions require human approval before actuation.
	ActionIrreversible ActionClass = "IRREVERSIBLE"

	// ActionUnknown marks an action outside the declared vocabulary. An
	// unknown action is never silently actuated.
	ActionUnknown ActionClass = "UNKNOWN"
)

// Vocabulary is the closed set of actions the detector may propose,
// partitioned into disjoint reversible and irreversible subsets. It is
// configuration, not hardcoded logic: sessions may declare their own
// partition.
type Vocabulary struct {
	reversible   map[string]struct{}
	irreversible map[string]struct{}
}

// NewVocabulary builds a vocabulary from the two action sets. The sets must
// be disjoint and together non-empty.
func NewVocabulary(reversible, irreversible []string) (*Vocabulary, error) {
	if len(reversible)+len(irreversible) == 0 {
		return nil, fmt.Errorf("action vocabulary is empty")
	}

	v := &Vocabulary{
		reversible:   make(map[string]struct{}, len(reversible)),
		irreversible: make(map[string]struct{}, len(irreversible)),
	}
	for _, a := range reversible {
		v.reversible[a] = struct{}{}
	}
	for _, a := range irreversible {
		if _, dup := v.reversible[a]; dup {
			return nil, fmt.Errorf("action %q declared both reversible and irreversible", a)
		}
		v.irreversible[a] = struct{}{}
	}
	return v, nil
}

// DefaultVocabulary returns the reference action partition for the attitude
// control subsystem.
func DefaultVocabulary() *Vocabulary {
	v, _ := NewVocabulary(
		[]string{
			"CONTINUE_MONITORING",
			"INCREASE_SAMPLING_RATE",
			"SOFT_RESET_WHEEL_1",
			"SOFT_RESET_WHEEL_2",
			"SOFT_RESET_WHEEL_3",
		},
		[]string{
			"ALERT_OPERATOR_MARGINAL",
			"ALERT_OPERATOR_CRITICAL",
		},
	)
	return v
}

// Classify maps a proposed action onto its reversibility class. Any action
// outside both declared sets classifies as ActionUnknown.
func (v *Vocabulary) Classify(action string) ActionClass {
	if _, ok := v.reversible[action]; ok {
		return ActionReversible
	}
	if _, ok := v.irreversible[action]; ok {
		return ActionIrreversible
	}
	return ActionUnknown
}

// Actions returns every declared action in sorted order, for prompt
// construction and diagnostics.
func (v *Vocabulary) Actions() []string {
	actions := make([]string, 0, len(v.reversible)+len(v.irreversible))
	for a := range v.reversible {
		actions = append(actions, a)
	}
	for a := range v.irreversible {
		actions = append(actions, a)
	}
	sort.Strings(actions)
	return actions
}

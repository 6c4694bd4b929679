package detector

import (
	"errors"
	"testing"
)

func TestParseReport_Valid(t *testing.T) {
	raw := []byte(`{
		"anomaly_detected": true,
		"confidence": 0.87654321,
		"recommended_action": "SOFT_RESET_WHEEL_2",
		"reasoning": "monotonic RPM drift on wheel_2",
		"affected_subsystem": "ReactionWheel_2"
	}`)

	report, err := ParseReport(raw)
	if err != nil {
		t.Fatalf("ParseReport() failed: %v", err)
	}
	if !report.Detected {
		t.Error("Detected = false, want true")
	}
	if report.Confidence != 0.8765 {
		t.Errorf("Confidence = %v, want 0.8765 (rounded to 4 decimals)", report.Confidence)
	}
	if report.RecommendedAction != "SOFT_RESET_WHEEL_2" {
		t.Errorf("RecommendedAction = %q", report.RecommendedAction)
	}
}

func TestParseReport_ProtocolFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `I cannot analyze this telemetry.`},
		{"confidence above range", `{"anomaly_detected":true,"confidence":1.5,"recommended_action":"CONTINUE_MONITORING","reasoning":"x","affected_subsystem":"None"}`},
		{"confidence below range", `{"anomaly_detected":true,"confidence":-0.1,"recommended_action":"CONTINUE_MONITORING","reasoning":"x","affected_subsystem":"None"}`},
		{"missing action", `{"anomaly_detected":false,"confidence":0.2,"reasoning":"x","affected_subsystem":"None"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseReport([]byte(tt.raw))
			if err == nil {
				t.Fatal("Expected protocol error")
			}
			var pe *ProtocolError
			if !errors.As(err, &pe) {
				t.Errorf("Expected *ProtocolError, got %T: %v", err, err)
			}
		})
	}
}

func TestVocabulary_Classify(t *testing.T) {
	vocab := DefaultVocabulary()

	tests := []struct {
		action string
		want   ActionClass
	}{
		{"CONTINUE_MONITORING", ActionReversible},
		{"SOFT_RESET_WHEEL_2", ActionReversible},
		{"INCREASE_SAMPLING_RATE", ActionReversible},
		{"ALERT_OPERATOR_MARGINAL", ActionIrreversible},
		{"ALERT_OPERATOR_CRITICAL", ActionIrreversible},
		{"REBOOT_SATELLITE", ActionUnknown},
		{"", ActionUnknown},
	}

	for _, tt := range tests {
		if got := vocab.Classify(tt.action); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.action, got, tt.want)
		}
	}
}

func TestNewVocabulary_RejectsOverlap(t *testing.T) {
	_, err := NewVocabulary(
		[]string{"SOFT_RESET_WHEEL_1"},
		[]string{"SOFT_RESET_WHEEL_1"},
	)
	if err == nil {
		t.Fatal("Expected error for overlapping action sets")
	}
}

func TestNewVocabulary_RejectsEmpty(t *testing.T) {
	if _, err := NewVocabulary(nil, nil); err == nil {
		t.Fatal("Expected error for empty vocabulary")
	}
}

func TestStaticDetector_CountsDispatches(t *testing.T) {
	stub := Nominal()
	for i := 0; i < 3; i++ {
		if _, err := stub.Analyze(t.Context(), nil); err != nil {
			t.Fatalf("Analyze() failed: %v", err)
		}
	}
	if stub.Dispatches != 3 {
		t.Errorf("Dispatches = %d, want 3", stub.Dispatches)
	}
}

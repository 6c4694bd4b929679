package router

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"helios-hq/ceres/pkg/detector"
	"helios-hq/ceres/pkg/guardrail"
)

func nominalRaw(t *testing.T, tick int) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"timestamp_ns":  int64(1700000000000000000 + tick),
		"attitude_q":    map[string]float64{"w": 1, "x": 0, "y": 0, "z": 0},
		"angular_rates": map[string]float64{"roll": 0.01, "pitch": 0, "yaw": 0},
		"rw_rpms":       map[string]float64{"wheel_1": 2000, "wheel_2": 2003, "wheel_3": 1997},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func fatalRaw(t *testing.T) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"timestamp_ns":  int64(1700000000000000000),
		"attitude_q":    map[string]float64{"w": 1, "x": 0, "y": 0, "z": 0},
		"angular_rates": map[string]float64{"roll": 0, "pitch": 0, "yaw": 0},
		"rw_rpms":       map[string]float64{"wheel_1": 2000, "wheel_2": 7500, "wheel_3": 2000},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func newTestRouter(windowSize int, threshold float64, det detector.Detector) *Router {
	return New(
		&Config{WindowSize: windowSize, ConfidenceThreshold: threshold},
		guardrail.NewEngine(guardrail.DefaultLimits()),
		det,
		detector.DefaultVocabulary(),
	)
}

func TestRoute_DecodeFailureIsFatal(t *testing.T) {
	r := newTestRouter(5, 0.65, detector.Nominal())

	event, perf := r.Route(t.Context(), []byte("not telemetry"))
	if event.Outcome != OutcomeViolationFatal {
		t.Fatalf("Outcome = %s, want VIOLATION_FATAL", event.Outcome)
	}
	if !event.RequiresHumanApproval {
		t.Error("Decode failure must require human approval")
	}
	if event.Guardrail != nil {
		t.Error("Decode failure must not embed a constraint report")
	}
	if perf.DetectorLatency != nil {
		t.Error("Decode failure must not consult the detector")
	}
}

func TestRoute_FatalViolationBypassesDetector(t *testing.T) {
	det := detector.Anomalous(0.99, "CONTINUE_MONITORING", "ReactionWheel_2")
	r := newTestRouter(1, 0.65, det) // window of 1 would dispatch on any pass

	event, _ := r.Route(t.Context(), fatalRaw(t))
	if event.Outcome != OutcomeViolationFatal {
		t.Fatalf("Outcome = %s, want VIOLATION_FATAL", event.Outcome)
	}
	if det.Dispatches != 0 {
		t.Fatalf("Detector consulted on violating frame: %d dispatches", det.Dispatches)
	}
	if !event.ActuationApproved || !event.RequiresHumanApproval {
		t.Errorf("Fatal path flags wrong: approved=%v human=%v",
			event.ActuationApproved, event.RequiresHumanApproval)
	}
	if !event.Guardrail.HasFatal {
		t.Error("Embedded report must carry HasFatal")
	}
}

func TestRoute_CriticalViolation(t *testing.T) {
	r := newTestRouter(5, 0.65, detector.Nominal())

	raw, _ := json.Marshal(map[string]any{
		"attitude_q":    map[string]float64{"w": 1, "x": 0, "y": 0, "z": 0},
		"angular_rates": map[string]float64{"roll": 8.0, "pitch": 0, "yaw": 0},
		"rw_rpms":       map[string]float64{"wheel_1": 2000},
	})

	event, _ := r.Route(t.Context(), raw)
	if event.Outcome != OutcomeViolationCritical {
		t.Fatalf("Outcome = %s, want VIOLATION_CRITICAL", event.Outcome)
	}
	if event.ActuationApproved {
		t.Error("Critical violation must not approve actuation")
	}
	if !event.RequiresHumanApproval {
		t.Error("Critical violation must require human approval")
	}
}

func TestRoute_WindowDispatchProtocol(t *testing.T) {
	const w = 5
	det := detector.Nominal()
	r := newTestRouter(w, 0.65, det)

	// W-1 passing frames accumulate without dispatch.
	for i := 0; i < w-1; i++ {
		event, _ := r.Route(t.Context(), nominalRaw(t, i))
		if event.Outcome != OutcomePassDetectorSkipped {
			t.Fatalf("Tick %d: Outcome = %s, want PASS_DETECTOR_SKIPPED", i, event.Outcome)
		}
	}
	if det.Dispatches != 0 {
		t.Fatalf("Detector dispatched before window full: %d", det.Dispatches)
	}
	if r.WindowLen() != w-1 {
		t.Fatalf("WindowLen = %d, want %d", r.WindowLen(), w-1)
	}

	// The W-th frame triggers exactly one dispatch and empties the window.
	event, perf := r.Route(t.Context(), nominalRaw(t, w-1))
	if event.Outcome != OutcomePassDetectorNominal {
		t.Fatalf("Outcome = %s, want PASS_DETECTOR_NOMINAL", event.Outcome)
	}
	if det.Dispatches != 1 {
		t.Fatalf("Dispatches = %d, want 1", det.Dispatches)
	}
	if len(det.LastWindow) != w {
		t.Fatalf("Dispatched window size = %d, want %d", len(det.LastWindow), w)
	}
	if r.WindowLen() != 0 {
		t.Fatalf("Window not cleared after dispatch: len = %d", r.WindowLen())
	}
	if perf.DetectorLatency == nil {
		t.Error("Dispatched tick must carry detector latency")
	}

	// A second full cycle dispatches exactly once more (no carry-over).
	for i := 0; i < w; i++ {
		r.Route(t.Context(), nominalRaw(t, w+i))
	}
	if det.Dispatches != 2 {
		t.Fatalf("Dispatches after second cycle = %d, want 2", det.Dispatches)
	}
}

func TestRoute_ViolationDoesNotClearWindow(t *testing.T) {
	det := detector.Nominal()
	r := newTestRouter(5, 0.65, det)

	r.Route(t.Context(), nominalRaw(t, 0))
	r.Route(t.Context(), nominalRaw(t, 1))
	r.Route(t.Context(), fatalRaw(t))

	if r.WindowLen() != 2 {
		t.Fatalf("WindowLen after violation = %d, want 2", r.WindowLen())
	}
}

func TestRoute_ConfidenceThresholdBoundary(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		want       Outcome
	}{
		{"exactly at threshold is actionable", 0.65, OutcomeAnomalyType2},
		{"just below threshold is nominal", 0.6499, OutcomePassDetectorNominal},
		{"above threshold is actionable", 0.90, OutcomeAnomalyType2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := detector.Anomalous(tt.confidence, "SOFT_RESET_WHEEL_2", "ReactionWheel_2")
			r := newTestRouter(2, 0.65, det)

			r.Route(t.Context(), nominalRaw(t, 0))
			event, _ := r.Route(t.Context(), nominalRaw(t, 1))
			if event.Outcome != tt.want {
				t.Errorf("Outcome = %s, want %s", event.Outcome, tt.want)
			}
		})
	}
}

func TestRoute_ActionClassification(t *testing.T) {
	tests := []struct {
		action       string
		wantOutcome  Outcome
		wantApproved bool
		wantHuman    bool
	}{
		{"SOFT_RESET_WHEEL_2", OutcomeAnomalyType2, true, false},
		{"ALERT_OPERATOR_CRITICAL", OutcomeAnomalyType1, false, true},
		{"REBOOT_SATELLITE", OutcomeTrustBoundaryViolation, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			det := detector.Anomalous(0.90, tt.action, "ReactionWheel_2")
			r := newTestRouter(5, 0.65, det)

			var event *Event
			for i := 0; i < 5; i++ {
				event, _ = r.Route(t.Context(), nominalRaw(t, i))
			}
			if event.Outcome != tt.wantOutcome {
				t.Fatalf("Outcome = %s, want %s", event.Outcome, tt.wantOutcome)
			}
			if event.ActuationApproved != tt.wantApproved {
				t.Errorf("ActuationApproved = %v, want %v", event.ActuationApproved, tt.wantApproved)
			}
			if event.RequiresHumanApproval != tt.wantHuman {
				t.Errorf("RequiresHumanApproval = %v, want %v", event.RequiresHumanApproval, tt.wantHuman)
			}
			if event.ProposedAction != tt.action {
				t.Errorf("ProposedAction = %q, want %q", event.ProposedAction, tt.action)
			}
		})
	}
}

func TestRoute_DetectorProtocolFailure(t *testing.T) {
	det := detector.Failing("model returned free text instead of the report")
	r := newTestRouter(2, 0.65, det)

	r.Route(t.Context(), nominalRaw(t, 0))
	event, _ := r.Route(t.Context(), nominalRaw(t, 1))

	if event.Outcome != OutcomeTrustBoundaryViolation {
		t.Fatalf("Outcome = %s, want TRUST_BOUNDARY_VIOLATION", event.Outcome)
	}
	if !event.RequiresHumanApproval {
		t.Error("Protocol failure must require human approval")
	}
	// The window must still have been cleared: no stale frames feed the
	// next dispatch.
	if r.WindowLen() != 0 {
		t.Errorf("WindowLen = %d, want 0 after failed dispatch", r.WindowLen())
	}
}

func TestRoute_DisabledDetector(t *testing.T) {
	r := newTestRouter(2, 0.65, nil)

	for i := 0; i < 10; i++ {
		event, _ := r.Route(t.Context(), nominalRaw(t, i))
		if event.Outcome != OutcomePassDetectorSkipped {
			t.Fatalf("Tick %d: Outcome = %s, want PASS_DETECTOR_SKIPPED", i, event.Outcome)
		}
	}
	if r.WindowLen() != 0 {
		t.Errorf("Disabled detector must not accumulate frames: len = %d", r.WindowLen())
	}
}

func TestRoute_OneEventPerTick(t *testing.T) {
	r := newTestRouter(3, 0.65, detector.Nominal())

	seen := map[string]bool{}
	for i := 0; i < 9; i++ {
		event, _ := r.Route(t.Context(), nominalRaw(t, i))
		if event == nil {
			t.Fatalf("Tick %d produced no event", i)
		}
		if seen[event.ID] {
			t.Fatalf("Duplicate event ID %s", event.ID)
		}
		seen[event.ID] = true
	}
	if len(seen) != 9 {
		t.Errorf("Expected 9 distinct events, got %d", len(seen))
	}
}

func TestRoute_HotReloadThreshold(t *testing.T) {
	det := detector.Anomalous(0.70, "SOFT_RESET_WHEEL_1", "ReactionWheel_1")
	r := newTestRouter(1, 0.65, det)

	event, _ := r.Route(t.Context(), nominalRaw(t, 0))
	if event.Outcome != OutcomeAnomalyType2 {
		t.Fatalf("Outcome = %s, want ANOMALY_TYPE2", event.Outcome)
	}

	r.SetConfidenceThreshold(0.95)
	event, _ = r.Route(t.Context(), nominalRaw(t, 1))
	if event.Outcome != OutcomePassDetectorNominal {
		t.Fatalf("After threshold raise: Outcome = %s, want PASS_DETECTOR_NOMINAL", event.Outcome)
	}
}

func ExampleRouter_Route() {
	r := New(
		&Config{WindowSize: 3, ConfidenceThreshold: 0.65},
		guardrail.NewEngine(guardrail.DefaultLimits()),
		nil,
		nil,
	)

	raw := []byte(`{
		"attitude_q": {"w": 1, "x": 0, "y": 0, "z": 0},
		"angular_rates": {"roll": 0, "pitch": 0, "yaw": 0},
		"rw_rpms": {"wheel_1": 7500}
	}`)

	event, _ := r.Route(context.Background(), raw)
	fmt.Println(event.Outcome)
	// Output: VIOLATION_FATAL
}

package guardrail

import (
	"reflect"
	"testing"

	"helios-hq/ceres/pkg/telemetry"
)

func nominalFrame() *telemetry.Frame {
	return &telemetry.Frame{
		TimestampNS: 1700000000000000000,
		Attitude:    &telemetry.Quaternion{W: 1.0},
		Rates:       &telemetry.AngularRates{Roll: 0.01, Pitch: -0.02, Yaw: 0.005},
		WheelRPMs:   map[string]float64{"wheel_1": 2000, "wheel_2": 2005, "wheel_3": 1998},
	}
}

func TestEvaluate_NominalFramePasses(t *testing.T) {
	engine := NewEngine(DefaultLimits())

	report := engine.Evaluate(nominalFrame())
	if !report.Passed {
		t.Fatalf("Expected pass, got violations: %+v", report.Violations)
	}
	if report.HasFatal || report.RequiresIrreversibleAction {
		t.Errorf("Passing report must not carry fatal/irreversible flags: %+v", report)
	}
}

func TestEvaluate_WheelOverspeedIsCatastrophic(t *testing.T) {
	engine := NewEngine(DefaultLimits())

	frame := nominalFrame()
	frame.WheelRPMs["wheel_2"] = 7500

	report := engine.Evaluate(frame)
	if report.Passed {
		t.Fatal("Expected failure for 7500 RPM wheel")
	}
	if len(report.Violations) != 1 {
		t.Fatalf("Expected 1 violation, got %d", len(report.Violations))
	}
	v := report.Violations[0]
	if v.Field != "rw_rpms.wheel_2" {
		t.Errorf("Field = %q, want rw_rpms.wheel_2", v.Field)
	}
	if v.Severity != SeverityCatastrophic || v.Class != Irreversible {
		t.Errorf("Severity/Class = %s/%s, want CATASTROPHIC/IRREVERSIBLE", v.Severity, v.Class)
	}
	if !report.HasFatal || !report.RequiresIrreversibleAction {
		t.Errorf("Fatal report flags wrong: %+v", report)
	}
}

func TestEvaluate_AngularRateBreachIsCritical(t *testing.T) {
	engine := NewEngine(DefaultLimits())

	frame := nominalFrame()
	frame.Rates.Roll = 8.0

	report := engine.Evaluate(frame)
	if report.Passed {
		t.Fatal("Expected failure for 8.0 deg/s roll rate")
	}
	v := report.Violations[0]
	if v.Field != "angular_rates.roll" || v.Severity != SeverityCritical {
		t.Errorf("Got %+v, want CRITICAL angular_rates.roll", v)
	}
	if report.HasFatal {
		t.Error("Critical-only report must not set HasFatal")
	}
	if !report.RequiresIrreversibleAction {
		t.Error("Irreversible violation must set RequiresIrreversibleAction")
	}
}

func TestEvaluate_QuaternionNormBreach(t *testing.T) {
	engine := NewEngine(DefaultLimits())

	frame := nominalFrame()
	frame.Attitude = &telemetry.Quaternion{W: 1.2}

	report := engine.Evaluate(frame)
	if report.Passed || !report.HasFatal {
		t.Fatalf("Expected fatal failure for non-unit quaternion: %+v", report)
	}
	if report.Violations[0].Field != "attitude_q.norm" {
		t.Errorf("Field = %q, want attitude_q.norm", report.Violations[0].Field)
	}
}

func TestEvaluate_BoundaryValuesPass(t *testing.T) {
	engine := NewEngine(DefaultLimits())

	frame := nominalFrame()
	frame.WheelRPMs["wheel_1"] = 6000.0
	frame.WheelRPMs["wheel_2"] = -6000.0
	frame.Rates.Yaw = 5.0
	frame.Rates.Pitch = -5.0
	frame.Attitude = &telemetry.Quaternion{W: 1.009999}

	report := engine.Evaluate(frame)
	if !report.Passed {
		t.Errorf("Values exactly at limit must pass, got: %+v", report.Violations)
	}
}

func TestEvaluate_AllChecksRun(t *testing.T) {
	// One frame carrying breaches in every subsystem must report all of
	// them, not just the first.
	engine := NewEngine(DefaultLimits())

	frame := &telemetry.Frame{
		Attitude:  &telemetry.Quaternion{W: 0.5},
		Rates:     &telemetry.AngularRates{Roll: 9.0, Pitch: 0, Yaw: -7.5},
		WheelRPMs: map[string]float64{"wheel_1": 6500, "wheel_2": -8000, "wheel_3": 2000},
	}

	report := engine.Evaluate(frame)
	if len(report.Violations) != 5 {
		t.Fatalf("Expected 5 violations (norm + 2 rates + 2 wheels), got %d: %+v",
			len(report.Violations), report.Violations)
	}
}

func TestEvaluate_FailClosedOnMissingSections(t *testing.T) {
	engine := NewEngine(DefaultLimits())

	tests := []struct {
		name  string
		frame *telemetry.Frame
		field string
	}{
		{
			name: "missing attitude",
			frame: &telemetry.Frame{
				Rates:         &telemetry.AngularRates{},
				WheelRPMs:     map[string]float64{"wheel_1": 2000},
				SectionErrors: map[string]string{telemetry.SectionAttitude: "section missing from frame"},
			},
			field: telemetry.SectionAttitude,
		},
		{
			name: "missing rates",
			frame: &telemetry.Frame{
				Attitude:      &telemetry.Quaternion{W: 1},
				WheelRPMs:     map[string]float64{"wheel_1": 2000},
				SectionErrors: map[string]string{telemetry.SectionAngularRates: "section missing from frame"},
			},
			field: telemetry.SectionAngularRates,
		},
		{
			name: "missing wheels",
			frame: &telemetry.Frame{
				Attitude:      &telemetry.Quaternion{W: 1},
				Rates:         &telemetry.AngularRates{},
				SectionErrors: map[string]string{telemetry.SectionWheelRPMs: "section missing from frame"},
			},
			field: telemetry.SectionWheelRPMs,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := engine.Evaluate(tt.frame)
			if report.Passed {
				t.Fatal("Missing section must fail closed")
			}
			v := report.Violations[0]
			if v.Field != tt.field {
				t.Errorf("Field = %q, want %q", v.Field, tt.field)
			}
			if v.Severity != SeverityCatastrophic || v.Class != Irreversible {
				t.Errorf("Fail-closed violation must be CATASTROPHIC/IRREVERSIBLE, got %s/%s",
					v.Severity, v.Class)
			}
			if !report.HasFatal {
				t.Error("Fail-closed report must set HasFatal")
			}
		})
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	engine := NewEngine(DefaultLimits())

	frame := &telemetry.Frame{
		Attitude:  &telemetry.Quaternion{W: 0.9},
		Rates:     &telemetry.AngularRates{Roll: 6.25},
		WheelRPMs: map[string]float64{"wheel_3": 6100, "wheel_1": 6400, "wheel_2": 2000},
	}

	first := engine.Evaluate(frame)
	for i := 0; i < 50; i++ {
		if got := engine.Evaluate(frame); !reflect.DeepEqual(first, got) {
			t.Fatalf("Evaluation %d differs from first:\nfirst: %+v\ngot:   %+v", i, first, got)
		}
	}

	// Wheel violations must appear in sorted identifier order regardless of
	// map iteration order.
	var wheelFields []string
	for _, v := range first.Violations {
		if v.Severity == SeverityCatastrophic && v.Field != "attitude_q.norm" {
			wheelFields = append(wheelFields, v.Field)
		}
	}
	want := []string{"rw_rpms.wheel_1", "rw_rpms.wheel_3"}
	if !reflect.DeepEqual(wheelFields, want) {
		t.Errorf("Wheel violation order = %v, want %v", wheelFields, want)
	}
}

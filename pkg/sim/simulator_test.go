package sim

import (
	"bytes"
	"math"
	"testing"
	"time"

	"helios-hq/ceres/pkg/guardrail"
	"helios-hq/ceres/pkg/telemetry"
)

func TestNominalFramesPassConstraints(t *testing.T) {
	s := New(DefaultConfig())
	engine := guardrail.NewEngine(guardrail.DefaultLimits())

	for i := 0; i < 100; i++ {
		frame, err := telemetry.Decode(s.Next())
		if err != nil {
			t.Fatalf("frame %d failed to decode: %v", i, err)
		}
		report := engine.Evaluate(frame)
		if !report.Passed {
			t.Fatalf("nominal frame %d violated constraints: %+v", i, report.Violations)
		}
	}
}

func TestDeterministicStream(t *testing.T) {
	config := DefaultConfig()
	config.Seed = 42

	a, b := New(config), New(config)
	for i := 0; i < 50; i++ {
		fa, fb := a.Next(), b.Next()
		if !bytes.Equal(fa, fb) {
			t.Fatalf("frame %d diverged:\n%s\n%s", i, fa, fb)
		}
	}
}

func TestTimestampsAdvance(t *testing.T) {
	config := DefaultConfig()
	config.TickInterval = 100 * time.Millisecond
	s := New(config)

	var last int64
	for i := 0; i < 10; i++ {
		frame, err := telemetry.Decode(s.Next())
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if frame.TimestampNS <= last {
			t.Fatalf("timestamp did not advance: %d after %d", frame.TimestampNS, last)
		}
		if delta := frame.TimestampNS - last; last != 0 && delta != 100_000_000 {
			t.Errorf("timestamp delta = %d, want 100ms", delta)
		}
		last = frame.TimestampNS
	}
}

func TestRPMFaultBreachesLimit(t *testing.T) {
	s := New(DefaultConfig())
	s.InjectRPMFault("rw_2", 7500)

	frame, err := telemetry.Decode(s.Next())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := frame.WheelRPMs["rw_2"]; got != 7500 {
		t.Fatalf("rw_2 = %v, want 7500", got)
	}

	report := guardrail.NewEngine(guardrail.DefaultLimits()).Evaluate(frame)
	if report.Passed {
		t.Fatal("overspeed frame passed constraints")
	}
	if !report.HasFatal {
		t.Error("wheel overspeed not fatal")
	}
}

func TestDriftStaysSubtle(t *testing.T) {
	config := DefaultConfig()
	config.TickInterval = time.Second
	s := New(config)
	s.InjectDrift("rw_1", 15) // 15 RPM/s

	engine := guardrail.NewEngine(guardrail.DefaultLimits())
	var lastRPM float64
	for i := 0; i < 60; i++ {
		frame, err := telemetry.Decode(s.Next())
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		report := engine.Evaluate(frame)
		if !report.Passed {
			t.Fatalf("drifting frame %d violated constraints early: %+v", i, report.Violations)
		}
		rpm := frame.WheelRPMs["rw_1"]
		if rpm <= lastRPM {
			t.Fatalf("drift not monotonic at frame %d: %v after %v", i, rpm, lastRPM)
		}
		lastRPM = rpm
	}

	// After a minute at 15 RPM/s the wheel is ~900 RPM above nominal,
	// still well inside the structural limit.
	if lastRPM < 2800 || lastRPM > 3000 {
		t.Errorf("rw_1 after drift = %v, want ~2900", lastRPM)
	}
}

func TestRateFault(t *testing.T) {
	s := New(DefaultConfig())
	s.InjectRateFault(8.0, 0, 0)

	frame, err := telemetry.Decode(s.Next())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if frame.Rates.Roll != 8.0 {
		t.Fatalf("roll = %v, want 8.0", frame.Rates.Roll)
	}

	report := guardrail.NewEngine(guardrail.DefaultLimits()).Evaluate(frame)
	if report.Passed {
		t.Fatal("rate fault frame passed constraints")
	}
}

func TestCorruptAttitude(t *testing.T) {
	s := New(DefaultConfig())
	s.CorruptAttitude()

	frame, err := telemetry.Decode(s.Next())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dev := math.Abs(frame.Attitude.Norm() - 1); dev <= 0.01 {
		t.Fatalf("quaternion norm deviation = %v, want > 0.01", dev)
	}
}

func TestMalformedFrames(t *testing.T) {
	s := New(DefaultConfig())
	s.EmitMalformed(2)

	for i := 0; i < 2; i++ {
		if _, err := telemetry.Decode(s.Next()); err == nil {
			t.Fatalf("malformed frame %d decoded cleanly", i)
		}
	}
	if _, err := telemetry.Decode(s.Next()); err != nil {
		t.Fatalf("stream did not recover after malformed burst: %v", err)
	}
}

func TestClearFaultsRestoresNominal(t *testing.T) {
	s := New(DefaultConfig())
	s.InjectRPMFault("rw_1", 9000)
	s.InjectDrift("rw_2", 100)
	s.Next()
	s.ClearFaults()

	frame, err := telemetry.Decode(s.Next())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, wheel := range frame.WheelIDs() {
		if got := frame.WheelRPMs[wheel]; got != 2000 {
			t.Errorf("%s = %v, want 2000 after clear", wheel, got)
		}
	}
}

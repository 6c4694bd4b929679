package session

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"helios-hq/ceres/pkg/alerts"
	"helios-hq/ceres/pkg/audit"
	"helios-hq/ceres/pkg/detector"
	"helios-hq/ceres/pkg/guardrail"
	"helios-hq/ceres/pkg/router"
	"helios-hq/ceres/pkg/sim"
)

type capturingEmitter struct {
	mu     sync.Mutex
	alerts []*alerts.Alert
}

func (c *capturingEmitter) Emit(_ context.Context, alert *alerts.Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, alert)
	return nil
}

func (c *capturingEmitter) Close() error { return nil }

func (c *capturingEmitter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.alerts)
}

func newTestSession(t *testing.T, maxTicks int, det detector.Detector, emitter alerts.Emitter) (*Session, *sim.Simulator, *audit.Logger) {
	t.Helper()

	source := sim.New(sim.DefaultConfig())
	engine := guardrail.NewEngine(guardrail.DefaultLimits())
	r := router.New(&router.Config{WindowSize: 3, ConfidenceThreshold: 0.65},
		engine, det, detector.DefaultVocabulary())

	logger, err := audit.NewLogger(audit.Config{Dir: t.TempDir(), QueueCapacity: 100})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	s := New(Config{
		TickInterval: time.Millisecond,
		MaxTicks:     maxTicks,
		StopTimeout:  2 * time.Second,
	}, source, r, logger, emitter, nil)
	return s, source, logger
}

func TestRunProcessesAllTicks(t *testing.T) {
	s, _, logger := newTestSession(t, 10, detector.Nominal(), nil)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := logger.Written(); got != 10 {
		t.Errorf("audit records = %d, want 10", got)
	}
	if got := logger.Dropped(); got != 0 {
		t.Errorf("dropped = %d, want 0", got)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	s, _, _ := newTestSession(t, 0, detector.Nominal(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("session did not stop after cancel")
	}
}

func TestRunEmitsAlertsForHeldActions(t *testing.T) {
	emitter := &capturingEmitter{}
	// Every dispatch proposes an irreversible action above threshold.
	det := detector.Anomalous(0.92, "ALERT_OPERATOR_CRITICAL", "reaction_wheels")
	s, _, _ := newTestSession(t, 12, det, emitter)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Window size 3 over 12 nominal ticks yields 4 dispatches, each one
	// an ANOMALY_TYPE1, each alerting.
	if got := emitter.count(); got != 4 {
		t.Errorf("alerts = %d, want 4", got)
	}
	emitter.mu.Lock()
	defer emitter.mu.Unlock()
	for _, alert := range emitter.alerts {
		if alert.Outcome != router.OutcomeAnomalyType1 {
			t.Errorf("alert outcome = %v, want ANOMALY_TYPE1", alert.Outcome)
		}
	}
}

func TestRunAlertsOnStructuralFault(t *testing.T) {
	emitter := &capturingEmitter{}
	s, source, logger := newTestSession(t, 5, detector.Nominal(), emitter)
	source.InjectRPMFault("rw_1", 8000)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := emitter.count(); got != 5 {
		t.Errorf("alerts = %d, want 5 (one per fatal tick)", got)
	}

	f, err := os.Open(logger.Path())
	if err != nil {
		t.Fatalf("opening audit log: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec audit.Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("bad audit line: %v", err)
		}
		if rec.Outcome != router.OutcomeViolationFatal {
			t.Errorf("outcome = %v, want VIOLATION_FATAL", rec.Outcome)
		}
		if !rec.ActuationApproved || !rec.RequiresHumanApproval {
			t.Errorf("safe-mode flags wrong: %+v", rec)
		}
	}
}

func TestOnTickHookDrivesScenario(t *testing.T) {
	s, source, _ := newTestSession(t, 6, detector.Nominal(), nil)

	var ticks []int
	s.OnTick = func(tick int) {
		ticks = append(ticks, tick)
		if tick == 3 {
			source.InjectRPMFault("rw_3", 9000)
		}
	}

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(ticks) != 6 || ticks[0] != 1 || ticks[5] != 6 {
		t.Errorf("ticks = %v, want 1..6", ticks)
	}
}

package router

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"helios-hq/ceres/pkg/detector"
	"helios-hq/ceres/pkg/guardrail"
	"helios-hq/ceres/pkg/telemetry"
)

// Config contains the tunable parameters of the decision router.
type Config struct {
	// WindowSize is the number of constraint-passing frames accumulated
	// before one detector dispatch.
	// Default: 20
	WindowSize int

	// ConfidenceThreshold is the minimum detector confidence for an
	// anomaly to be actionable. Confidence exactly at the threshold counts
	// as actionable.
	// Default: 0.65
	ConfidenceThreshold float64
}

// DefaultConfig returns the default router configuration.
func DefaultConfig() *Config {
	return &Config{
		WindowSize:          20,
		ConfidenceThreshold: 0.65,
	}
}

// Router orchestrates the bimodal decision protocol. It owns the frame
// accumulation window exclusively; the window holds only frames that passed
// the constraint engine and is cleared on every detector dispatch.
//
// Route is called from a single control thread. Threshold and vocabulary
// may be swapped concurrently by configuration hot-reload.
type Router struct {
	engine   *guardrail.Engine
	detector detector.Detector // nil disables the heuristic layer
	logger   *slog.Logger

	windowSize int
	window     []*telemetry.Frame

	mu        sync.RWMutex
	threshold float64
	vocab     *detector.Vocabulary
}

// New creates a decision router. A nil det disables the heuristic layer
// entirely: the router then operates in pure-deterministic mode and every
// passing tick is a detector-skipped outcome.
func New(config *Config, engine *guardrail.Engine, det detector.Detector, vocab *detector.Vocabulary) *Router {
	if config == nil {
		config = DefaultConfig()
	}
	if vocab == nil {
		vocab = detector.DefaultVocabulary()
	}
	return &Router{
		engine:     engine,
		detector:   det,
		logger:     slog.Default().With("component", "router"),
		windowSize: config.WindowSize,
		window:     make([]*telemetry.Frame, 0, config.WindowSize),
		threshold:  config.ConfidenceThreshold,
		vocab:      vocab,
	}
}

// SetConfidenceThreshold swaps the actionability threshold. Safe to call
// concurrently with Route.
func (r *Router) SetConfidenceThreshold(threshold float64) {
	r.mu.Lock()
	r.threshold = threshold
	r.mu.Unlock()
}

// SetVocabulary swaps the action vocabulary. Safe to call concurrently with
// Route.
func (r *Router) SetVocabulary(vocab *detector.Vocabulary) {
	r.mu.Lock()
	r.vocab = vocab
	r.mu.Unlock()
}

// WindowLen reports the current accumulation window occupancy.
func (r *Router) WindowLen() int {
	return len(r.window)
}

// Route processes one raw telemetry frame through the full protocol and
// returns exactly one decision event plus its performance telemetry. It
// never returns an error: every failure mode for telemetry-shaped input is
// represented as data inside the event.
func (r *Router) Route(ctx context.Context, raw []byte) (*Event, *Perf) {
	start := time.Now()

	frame, err := telemetry.Decode(raw)
	if err != nil {
		// Undecodable input is at least as severe as a structural
		// violation. No constraint report exists for this path.
		perf := &Perf{GuardrailLatency: time.Since(start)}
		r.logger.Error("telemetry frame decode failure", "error", err)
		return r.newEvent(0, Event{
			Outcome:               OutcomeViolationFatal,
			RequiresHumanApproval: true,
			Message:               fmt.Sprintf("telemetry deserialization failure: %v", err),
		}), perf
	}

	report := r.engine.Evaluate(frame)
	perf := &Perf{GuardrailLatency: time.Since(start)}

	if !report.Passed {
		return r.violationEvent(frame, report), perf
	}

	if r.detector == nil {
		return r.newEvent(frame.TimestampNS, Event{
			Outcome:   OutcomePassDetectorSkipped,
			Guardrail: report,
			Message:   "telemetry nominal; heuristic layer disabled",
		}), perf
	}

	r.window = append(r.window, frame)
	if len(r.window) < r.windowSize {
		return r.newEvent(frame.TimestampNS, Event{
			Outcome:   OutcomePassDetectorSkipped,
			Guardrail: report,
			Message:   fmt.Sprintf("telemetry nominal; accumulating detector window (%d/%d)", len(r.window), r.windowSize),
		}), perf
	}

	// Window full: snapshot, reset, dispatch. The window never carries
	// frames over from one dispatch to the next.
	snapshot := r.window
	r.window = make([]*telemetry.Frame, 0, r.windowSize)

	dispatchStart := time.Now()
	result, err := r.detector.Analyze(ctx, snapshot)
	latency := time.Since(dispatchStart)
	perf.DetectorLatency = &latency

	if err != nil {
		r.logger.Error("detector trust boundary violation", "error", err)
		return r.newEvent(frame.TimestampNS, Event{
			Outcome:               OutcomeTrustBoundaryViolation,
			Guardrail:             report,
			RequiresHumanApproval: true,
			Message:               err.Error(),
		}), perf
	}

	perf.Usage = result.Usage
	perf.PromptSHA256 = result.PromptSHA256

	return r.classify(frame, report, result.Report), perf
}

// classify routes a conforming detector report to its terminal outcome.
func (r *Router) classify(frame *telemetry.Frame, report *guardrail.Report, analysis *detector.Report) *Event {
	r.mu.RLock()
	threshold := r.threshold
	vocab := r.vocab
	r.mu.RUnlock()

	if !analysis.Detected || analysis.Confidence < threshold {
		msg := "detector: nominal telemetry confirmed"
		if analysis.Detected {
			msg = fmt.Sprintf("detector: no actionable anomaly; confidence %.4f < threshold %.4f",
				analysis.Confidence, threshold)
		}
		return r.newEvent(frame.TimestampNS, Event{
			Outcome:        OutcomePassDetectorNominal,
			Guardrail:      report,
			Anomaly:        analysis,
			ProposedAction: analysis.RecommendedAction,
			Message:        msg,
		})
	}

	action := analysis.RecommendedAction
	switch vocab.Classify(action) {
	case detector.ActionReversible:
		r.logger.Warn("anomaly confirmed, autonomous mitigation approved",
			"subsystem", analysis.AffectedSubsystem,
			"action", action,
			"confidence", analysis.Confidence,
		)
		return r.newEvent(frame.TimestampNS, Event{
			Outcome:           OutcomeAnomalyType2,
			Guardrail:         report,
			Anomaly:           analysis,
			ProposedAction:    action,
			ActuationApproved: true,
			Message:           fmt.Sprintf("anomaly confirmed (reversible); autonomous actuation: %s", action),
		})

	case detector.ActionIrreversible:
		r.logger.Error("anomaly confirmed, human approval required",
			"subsystem", analysis.AffectedSubsystem,
			"action", action,
			"confidence", analysis.Confidence,
		)
		return r.newEvent(frame.TimestampNS, Event{
			Outcome:               OutcomeAnomalyType1,
			Guardrail:             report,
			Anomaly:               analysis,
			ProposedAction:        action,
			RequiresHumanApproval: true,
			Message:               fmt.Sprintf("anomaly confirmed (irreversible); human approval required: %s", action),
		})

	default:
		// An action outside the declared vocabulary is never silently
		// actuated.
		r.logger.Error("detector proposed unknown action", "action", action)
		return r.newEvent(frame.TimestampNS, Event{
			Outcome:               OutcomeTrustBoundaryViolation,
			Guardrail:             report,
			Anomaly:               analysis,
			ProposedAction:        action,
			RequiresHumanApproval: true,
			Message:               fmt.Sprintf("proposed action %q is outside the permitted vocabulary; routed to human review", action),
		})
	}
}

// violationEvent handles every structural constraint failure. The detector
// is never consulted on this path.
func (r *Router) violationEvent(frame *telemetry.Frame, report *guardrail.Report) *Event {
	for _, v := range report.Violations {
		r.logger.Error("guardrail violation",
			"field", v.Field,
			"observed", v.Observed,
			"limit", v.Limit,
			"severity", string(v.Severity),
		)
	}

	if report.HasFatal {
		// The safe-mode fallback actuates autonomously, and the fallback
		// itself is still independently reviewed.
		return r.newEvent(frame.TimestampNS, Event{
			Outcome:               OutcomeViolationFatal,
			Guardrail:             report,
			ActuationApproved:     true,
			RequiresHumanApproval: true,
			Message: fmt.Sprintf("fatal constraint violation (%d violation(s)); detector bypassed; safe-mode fallback engaged",
				len(report.Violations)),
		})
	}

	return r.newEvent(frame.TimestampNS, Event{
		Outcome:               OutcomeViolationCritical,
		Guardrail:             report,
		RequiresHumanApproval: true,
		Message: fmt.Sprintf("critical constraint violation (%d violation(s)); detector bypassed; operator alert dispatched",
			len(report.Violations)),
	})
}

func (r *Router) newEvent(telemetryTS int64, e Event) *Event {
	e.ID = uuid.New().String()
	e.TimestampNS = time.Now().UnixNano()
	e.TelemetryTimestampNS = telemetryTS
	return &e
}

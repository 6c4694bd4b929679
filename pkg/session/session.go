package session

import (
	"context"
	"log/slog"
	"time"

	"helios-hq/ceres/pkg/alerts"
	"helios-hq/ceres/pkg/audit"
	"helios-hq/ceres/pkg/metrics"
	"helios-hq/ceres/pkg/router"
)

// Source supplies raw telemetry frames, one per tick.
type Source interface {
	Next() []byte
}

// Config controls the run loop.
type Config struct {
	// TickInterval is the sampling period.
	TickInterval time.Duration

	// MaxTicks bounds the session; 0 runs until the context is cancelled.
	MaxTicks int

	// StopTimeout bounds the audit drain on shutdown.
	StopTimeout time.Duration
}

// DefaultConfig returns the standard session configuration.
func DefaultConfig() Config {
	return Config{
		TickInterval: 100 * time.Millisecond,
		StopTimeout:  5 * time.Second,
	}
}

// Session wires the decision pipeline together and drives it.
type Session struct {
	config    Config
	source    Source
	router    *router.Router
	audit     *audit.Logger
	emitter   alerts.Emitter
	collector *metrics.Collector
	logger    *slog.Logger

	// OnTick, when set, runs before each frame is pulled. The run
	// scenario uses it to schedule fault injection.
	OnTick func(tick int)
}

// New creates a session. emitter and collector may be nil; alerting and
// metrics are then disabled.
func New(config Config, source Source, r *router.Router, log *audit.Logger, emitter alerts.Emitter, collector *metrics.Collector) *Session {
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultConfig().TickInterval
	}
	if config.StopTimeout <= 0 {
		config.StopTimeout = DefaultConfig().StopTimeout
	}

	return &Session{
		config:    config,
		source:    source,
		router:    r,
		audit:     log,
		emitter:   emitter,
		collector: collector,
		logger:    slog.Default().With("component", "session"),
	}
}

// Run executes the decision loop until the context is cancelled or MaxTicks
// is reached, then drains the audit queue. The returned error reports an
// incomplete drain; the loop itself does not fail.
func (s *Session) Run(ctx context.Context) error {
	if err := s.audit.Start(); err != nil {
		return err
	}

	s.logger.Info("session started",
		"tick_interval", s.config.TickInterval,
		"max_ticks", s.config.MaxTicks,
		"audit_path", s.audit.Path(),
	)

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	tick := 0
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			tick++
			if s.OnTick != nil {
				s.OnTick(tick)
			}
			s.step(ctx)
			if s.config.MaxTicks > 0 && tick >= s.config.MaxTicks {
				break loop
			}
		}
	}

	s.logger.Info("session stopping", "ticks", tick)
	err := s.audit.Stop(s.config.StopTimeout)
	if s.collector != nil {
		s.collector.SetAuditCounters(s.audit.Written(), s.audit.Dropped())
	}
	return err
}

// step processes one telemetry tick.
func (s *Session) step(ctx context.Context) {
	event, perf := s.router.Route(ctx, s.source.Next())

	s.audit.Submit(event, perf)

	if s.collector != nil {
		s.collector.RecordDecision(event, perf)
		s.collector.SetWindowFill(s.router.WindowLen())
		s.collector.SetAuditCounters(s.audit.Written(), s.audit.Dropped())
		if result := dispatchResult(event); result != "" {
			s.collector.RecordDispatch(result)
		}
	}

	if s.emitter != nil {
		if alert := alerts.FromEvent(event); alert != nil {
			emitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.emitter.Emit(emitCtx, alert); err != nil {
				s.logger.Error("alert emission failed", "event_id", event.ID, "error", err)
			}
			cancel()
		}
	}
}

// dispatchResult maps an event to the detector dispatch result label, empty
// when the tick did not dispatch.
func dispatchResult(event *router.Event) string {
	switch event.Outcome {
	case router.OutcomePassDetectorNominal:
		return "nominal"
	case router.OutcomeAnomalyType1, router.OutcomeAnomalyType2:
		return "anomaly"
	case router.OutcomeTrustBoundaryViolation:
		return "error"
	default:
		return ""
	}
}

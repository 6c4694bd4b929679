package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"helios-hq/ceres/pkg/alerts"
	"helios-hq/ceres/pkg/audit"
	"helios-hq/ceres/pkg/config"
	"helios-hq/ceres/pkg/detector"
	"helios-hq/ceres/pkg/guardrail"
	"helios-hq/ceres/pkg/logging"
	"helios-hq/ceres/pkg/metrics"
	"helios-hq/ceres/pkg/router"
	"helios-hq/ceres/pkg/session"
	"helios-hq/ceres/pkg/sim"
)

var runFlags struct {
	scenario string
	ticks    int
	logLevel string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a decision session against the synthetic telemetry source",
	Long: `Run the decision loop: synthetic attitude telemetry flows through the
constraint engine, the windowed anomaly detector, and into the audit trail.

Scenarios:
  nominal   clean telemetry for the whole session
  demo      phased faults: nominal flight, a hard wheel overspeed burst, a
            subtle RPM drift for the detector to catch, then recovery

Examples:
  # Indefinite nominal session, Ctrl-C to stop
  ceres run

  # Demo scenario, bounded length, custom config
  ceres run --config ceres.yaml --scenario demo --ticks 300`,
	RunE: runSession,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.scenario, "scenario", "nominal", "telemetry scenario (nominal, demo)")
	runCmd.Flags().IntVar(&runFlags.ticks, "ticks", 0, "stop after this many ticks (0 = run until interrupted)")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the session")
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if runFlags.ticks > 0 {
		cfg.Session.MaxTicks = runFlags.ticks
	}

	if _, err := logging.Setup(logging.Config(cfg.Logging), os.Stderr); err != nil {
		return err
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := guardrail.NewEngine(guardrail.Limits{
		MaxWheelRPM:             cfg.Guardrail.MaxWheelRPM,
		MaxAngularRate:          cfg.Guardrail.MaxAngularRate,
		QuaternionNormTolerance: cfg.Guardrail.QuaternionNormTolerance,
	})

	vocab, err := detector.NewVocabulary(cfg.Actions.Reversible, cfg.Actions.Irreversible)
	if err != nil {
		return fmt.Errorf("building action vocabulary: %w", err)
	}

	det, err := buildDetector(ctx, cfg, vocab)
	if err != nil {
		return err
	}

	r := router.New(&router.Config{
		WindowSize:          cfg.Router.WindowSize,
		ConfidenceThreshold: cfg.Router.ConfidenceThreshold,
	}, engine, det, vocab)

	auditLog, err := audit.NewLogger(audit.Config{
		Dir:           cfg.Audit.Dir,
		SessionTag:    cfg.Session.Tag,
		QueueCapacity: cfg.Audit.QueueCapacity,
		StopTimeout:   cfg.Audit.StopTimeout,
	})
	if err != nil {
		return err
	}

	emitter, err := buildEmitter(ctx, cfg)
	if err != nil {
		return err
	}
	if emitter != nil {
		defer emitter.Close()
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		mc := metrics.DefaultConfig()
		mc.Namespace = cfg.Metrics.Namespace
		mc.Subsystem = cfg.Metrics.Subsystem
		collector = metrics.NewCollector(mc, nil)
		go func() {
			if err := collector.Serve(cfg.Metrics.ListenAddress, cfg.Metrics.Path); err != nil {
				slog.Error("metrics server failed", "error", err)
			}
		}()
	}

	source := sim.New(sim.Config{
		Seed:            cfg.Sim.Seed,
		NominalWheelRPM: cfg.Sim.NominalWheelRPM,
		RateNoiseStdDev: cfg.Sim.RateNoiseStdDev,
		TickInterval:    cfg.Session.TickInterval,
	})

	sess := session.New(session.Config{
		TickInterval: cfg.Session.TickInterval,
		MaxTicks:     cfg.Session.MaxTicks,
		StopTimeout:  cfg.Audit.StopTimeout,
	}, source, r, auditLog, emitter, collector)

	if runFlags.scenario == "demo" {
		sess.OnTick = demoScenario(source)
	}

	if cfgFile != "" {
		watcher, err := config.NewWatcher(cfgFile, 0)
		if err != nil {
			return err
		}
		go func() {
			err := watcher.Watch(ctx, func(next *config.Config) {
				r.SetConfidenceThreshold(next.Router.ConfidenceThreshold)
				if v, err := detector.NewVocabulary(next.Actions.Reversible, next.Actions.Irreversible); err == nil {
					r.SetVocabulary(v)
				} else {
					slog.Error("rejected reloaded action vocabulary", "error", err)
				}
			})
			if err != nil {
				slog.Error("configuration watcher stopped, hot reload disabled", "error", err)
			}
		}()
		defer watcher.Stop()
	}

	if err := sess.Run(ctx); err != nil {
		return err
	}

	fmt.Printf("✓ Session complete: %d records written, %d dropped\n",
		auditLog.Written(), auditLog.Dropped())
	fmt.Printf("  Audit trail: %s\n", auditLog.Path())
	return nil
}

func buildDetector(ctx context.Context, cfg *config.Config, vocab *detector.Vocabulary) (detector.Detector, error) {
	if !cfg.Detector.Enabled {
		return nil, nil
	}

	switch cfg.Detector.Provider {
	case "stub":
		return detector.Nominal(), nil
	case "gemini":
		apiKey := os.Getenv(cfg.Detector.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("detector enabled but %s is not set", cfg.Detector.APIKeyEnv)
		}
		return detector.NewGeminiDetector(ctx, &detector.GeminiConfig{
			APIKey:          apiKey,
			Model:           cfg.Detector.Model,
			Timeout:         cfg.Detector.Timeout,
			MaxOutputTokens: cfg.Detector.MaxOutputTokens,
		}, vocab)
	default:
		return nil, fmt.Errorf("unknown detector provider %q", cfg.Detector.Provider)
	}
}

func buildEmitter(ctx context.Context, cfg *config.Config) (alerts.Emitter, error) {
	if !cfg.Alerts.Enabled {
		return nil, nil
	}

	switch cfg.Alerts.Emitter {
	case "log":
		return alerts.NewLogEmitter(), nil
	case "pubsub":
		ps, err := alerts.NewPubSubEmitter(ctx, cfg.Alerts.ProjectID, cfg.Alerts.Topic)
		if err != nil {
			return nil, err
		}
		// Keep the log channel even when paging works.
		return alerts.NewMultiEmitter(alerts.NewLogEmitter(), ps), nil
	default:
		return nil, fmt.Errorf("unknown alert emitter %q", cfg.Alerts.Emitter)
	}
}

// demoScenario drives the phased fault sequence: nominal flight, a hard
// overspeed burst the constraint engine must catch, a slow drift the
// detector should flag, then recovery.
func demoScenario(source *sim.Simulator) func(tick int) {
	return func(tick int) {
		switch tick {
		case 60:
			slog.Info("scenario: injecting hard wheel overspeed")
			source.InjectRPMFault("rw_1", 7500)
		case 66:
			slog.Info("scenario: clearing overspeed")
			source.ClearFaults()
		case 90:
			slog.Info("scenario: starting subtle RPM drift")
			source.InjectDrift("rw_2", 25)
		case 240:
			slog.Info("scenario: recovery, clearing drift")
			source.ClearFaults()
		}
	}
}

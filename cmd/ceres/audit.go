package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"helios-hq/ceres/pkg/audit/archive"
	"helios-hq/ceres/pkg/audit/retention"
	"helios-hq/ceres/pkg/config"
	"helios-hq/ceres/pkg/router"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Archive, query, and prune audit trails",
}

var auditImportCmd = &cobra.Command{
	Use:   "import <session-log>...",
	Short: "Import JSONL session logs into the SQLite archive",
	Long: `Load session log files into the decision archive. Imports are
idempotent: records already archived are skipped, so re-importing a log is
safe.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAuditImport,
}

var auditQueryFlags struct {
	outcome       string
	since         string
	until         string
	humanApproval bool
	limit         int
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query archived decisions",
	Long: `Search the decision archive, newest first.

Examples:
  # Every decision held for human approval
  ceres audit query --human-approval

  # Fatal violations in a time window
  ceres audit query --outcome VIOLATION_FATAL \
      --since 2026-08-01T00:00:00Z --until 2026-08-30T00:00:00Z`,
	RunE: runAuditQuery,
}

var auditPruneFlags struct {
	days     int
	max      int64
	schedule bool
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Prune archived decisions by age and count",
	Long: `Delete archived decisions past the retention policy. The policy comes
from the retention: section of the configuration file; --days and --max
override it when set. With --schedule the command keeps running and prunes
on the configured cron schedule instead of once.`,
	RunE: runAuditPrune,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditImportCmd, auditQueryCmd, auditPruneCmd)

	auditQueryCmd.Flags().StringVar(&auditQueryFlags.outcome, "outcome", "", "filter by outcome")
	auditQueryCmd.Flags().StringVar(&auditQueryFlags.since, "since", "", "start of time range (RFC 3339)")
	auditQueryCmd.Flags().StringVar(&auditQueryFlags.until, "until", "", "end of time range (RFC 3339)")
	auditQueryCmd.Flags().BoolVar(&auditQueryFlags.humanApproval, "human-approval", false, "only decisions routed to an operator")
	auditQueryCmd.Flags().IntVar(&auditQueryFlags.limit, "limit", 100, "maximum results")

	auditPruneCmd.Flags().IntVar(&auditPruneFlags.days, "days", 0, "delete decisions older than this many days (overrides retention.retention_days)")
	auditPruneCmd.Flags().Int64Var(&auditPruneFlags.max, "max", 0, "keep at most this many decisions (overrides retention.max_records)")
	auditPruneCmd.Flags().BoolVar(&auditPruneFlags.schedule, "schedule", false, "keep running and prune on the configured cron schedule")
}

func openArchive() (*archive.Store, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	return archive.Open(archive.Config{Path: cfg.Archive.Path, WALMode: true})
}

func runAuditImport(cmd *cobra.Command, args []string) error {
	store, err := openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	for _, path := range args {
		result, err := store.ImportJSONL(cmd.Context(), path)
		if err != nil {
			return fmt.Errorf("importing %q: %w", path, err)
		}
		fmt.Printf("%s: %d imported, %d skipped, %d malformed\n",
			path, result.Imported, result.Skipped, result.Malformed)
	}
	return nil
}

func runAuditQuery(cmd *cobra.Command, args []string) error {
	store, err := openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	query := archive.Query{
		OnlyHumanApproval: auditQueryFlags.humanApproval,
		Limit:             auditQueryFlags.limit,
	}
	if auditQueryFlags.outcome != "" {
		query.Outcomes = []router.Outcome{router.Outcome(auditQueryFlags.outcome)}
	}
	if auditQueryFlags.since != "" {
		t, err := time.Parse(time.RFC3339, auditQueryFlags.since)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}
		query.SinceNS = t.UnixNano()
	}
	if auditQueryFlags.until != "" {
		t, err := time.Parse(time.RFC3339, auditQueryFlags.until)
		if err != nil {
			return fmt.Errorf("parsing --until: %w", err)
		}
		query.UntilNS = t.UnixNano()
	}

	records, err := store.Search(cmd.Context(), query)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	fmt.Fprintf(os.Stderr, "%d records\n", len(records))
	return nil
}

// resolveRetention merges the prune flags over the configured retention
// policy. An explicitly set flag wins even at zero, so --days 0 disables
// the age limit regardless of what the configuration says.
func resolveRetention(cfg *config.Config, daysSet, maxSet bool) retention.Config {
	rc := retention.Config{
		RetentionDays: cfg.Retention.RetentionDays,
		MaxRecords:    cfg.Retention.MaxRecords,
		PruneSchedule: cfg.Retention.PruneSchedule,
	}
	if daysSet {
		rc.RetentionDays = auditPruneFlags.days
	}
	if maxSet {
		rc.MaxRecords = auditPruneFlags.max
	}
	return rc
}

func runAuditPrune(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	store, err := archive.Open(archive.Config{Path: cfg.Archive.Path, WALMode: true})
	if err != nil {
		return err
	}
	defer store.Close()

	rc := resolveRetention(cfg, cmd.Flags().Changed("days"), cmd.Flags().Changed("max"))
	pruner := retention.NewPruner(store, rc)

	if auditPruneFlags.schedule {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		scheduler := retention.NewScheduler(pruner)
		if err := scheduler.Start(ctx); err != nil {
			return err
		}
		defer scheduler.Stop()

		if next := scheduler.NextRun(); next != nil {
			fmt.Printf("Pruning on schedule %q, next run %s\n",
				rc.PruneSchedule, next.UTC().Format(time.RFC3339))
		} else {
			return fmt.Errorf("no prune schedule configured, set retention.prune_schedule")
		}
		<-ctx.Done()
		return nil
	}

	deleted, err := pruner.Prune(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("✓ Pruned %d archived decisions\n", deleted)
	return nil
}

package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Archive is the subset of the decision archive the pruner needs.
type Archive interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	TrimToMax(ctx context.Context, max int64) (int64, error)
}

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to retain decisions.
	// 0 means keep decisions forever.
	RetentionDays int

	// MaxRecords is the maximum number of records to keep.
	// 0 means unlimited.
	MaxRecords int64

	// PruneSchedule is a cron expression for scheduling pruning.
	// Example: "0 3 * * *" (daily at 3 AM). Empty disables the scheduler.
	PruneSchedule string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() Config {
	return Config{
		RetentionDays: 90,
		MaxRecords:    0,
		PruneSchedule: "0 3 * * *",
	}
}

// Pruner enforces retention policy on the decision archive.
type Pruner struct {
	archive   Archive
	config    Config
	logger    *slog.Logger
	scheduler *Scheduler
}

// NewPruner creates a retention pruner over the given archive.
func NewPruner(archive Archive, config Config) *Pruner {
	p := &Pruner{
		archive: archive,
		config:  config,
		logger:  slog.Default().With("component", "audit.retention"),
	}
	p.scheduler = NewScheduler(p)
	return p
}

// Prune runs both retention phases and returns the total number of records
// deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var totalDeleted int64

	if p.config.RetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -p.config.RetentionDays)
		deleted, err := p.archive.DeleteBefore(ctx, cutoff)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by age failed: %w", err)
		}
		totalDeleted += deleted
		p.logger.Info("pruned decisions by age",
			"deleted_count", deleted,
			"retention_days", p.config.RetentionDays,
		)
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.archive.TrimToMax(ctx, p.config.MaxRecords)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by count failed: %w", err)
		}
		totalDeleted += deleted
		p.logger.Info("pruned decisions by count",
			"deleted_count", deleted,
			"max_records", p.config.MaxRecords,
		)
	}

	if totalDeleted == 0 {
		p.logger.Debug("no decisions pruned",
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}

	return totalDeleted, nil
}

// Start starts the automatic pruning scheduler.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the automatic pruning scheduler.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}

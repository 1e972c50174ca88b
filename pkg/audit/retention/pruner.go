// Package retention deletes old audit records on a cron schedule, optionally
// archiving them to JSON first.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"mercator-hq/overseer/pkg/audit"
	"mercator-hq/overseer/pkg/audit/export"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is how long records are kept. A non-positive value keeps
	// them forever.
	RetentionDays int

	// PruneSchedule is a standard cron expression, e.g. "0 3 * * *".
	// Empty disables scheduled pruning.
	PruneSchedule string

	// ArchiveBeforeDelete writes records to ArchivePath before deleting them.
	ArchiveBeforeDelete bool

	// ArchivePath is the archive directory.
	ArchivePath string

	// MaxRecords caps the number of stored records. 0 means unlimited.
	MaxRecords int64
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 90,
		PruneSchedule: "0 3 * * *",
		ArchivePath:   "data/archives/",
	}
}

// Pruner enforces retention on audit storage.
type Pruner struct {
	storage   audit.Storage
	config    *Config
	logger    *slog.Logger
	clock     func() time.Time
	scheduler *Scheduler
}

// NewPruner creates a new retention pruner.
func NewPruner(storage audit.Storage, config *Config, logger *slog.Logger) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pruner{
		storage: storage,
		config:  config,
		logger:  logger.With("component", "audit.retention"),
		clock:   time.Now,
	}
	p.scheduler = NewScheduler(p, logger)
	return p
}

// WithClock overrides the clock used to compute the age cutoff.
func (p *Pruner) WithClock(clock func() time.Time) *Pruner {
	p.clock = clock
	return p
}

// Prune deletes records older than the retention period, then the oldest
// records beyond MaxRecords. It returns the total number deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var totalDeleted int64

	if p.config.RetentionDays > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by age failed: %w", err)
		}
		totalDeleted += deleted
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by count failed: %w", err)
		}
		totalDeleted += deleted
	}

	if totalDeleted > 0 {
		p.logger.Info("audit pruning completed",
			"total_deleted", totalDeleted,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}
	return totalDeleted, nil
}

func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := p.clock().AddDate(0, 0, -p.config.RetentionDays)
	query := &audit.Query{EndTime: &cutoff}

	if p.config.ArchiveBeforeDelete {
		records, err := p.storage.Query(ctx, query)
		if err != nil {
			return 0, audit.NewRetentionError(p.config.RetentionDays, err)
		}
		if err := p.archive(ctx, "age", records); err != nil {
			return 0, audit.NewRetentionError(p.config.RetentionDays, err)
		}
	}

	deleted, err := p.storage.Delete(ctx, query)
	if err != nil {
		return 0, audit.NewRetentionError(p.config.RetentionDays, err)
	}
	p.logger.Debug("pruned records by age", "deleted_count", deleted, "cutoff_time", cutoff)
	return deleted, nil
}

func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &audit.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	if count <= p.config.MaxRecords {
		return 0, nil
	}

	all, err := p.storage.Query(ctx, &audit.Query{SortOrder: "asc"})
	if err != nil {
		return 0, fmt.Errorf("failed to query records: %w", err)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp.Before(all[j].Timestamp) })

	excess := len(all) - int(p.config.MaxRecords)
	if excess <= 0 {
		return 0, nil
	}
	victims := all[:excess]

	if p.config.ArchiveBeforeDelete {
		if err := p.archive(ctx, "count", victims); err != nil {
			return 0, fmt.Errorf("archive failed: %w", err)
		}
	}

	var deleted int64
	for _, r := range victims {
		n, err := p.storage.Delete(ctx, &audit.Query{ID: r.ID})
		if err != nil {
			return deleted, fmt.Errorf("delete failed: %w", err)
		}
		deleted += n
	}
	p.logger.Debug("pruned records by count", "deleted_count", deleted, "max_records", p.config.MaxRecords)
	return deleted, nil
}

func (p *Pruner) archive(ctx context.Context, reason string, records []*audit.Record) error {
	if len(records) == 0 {
		return nil
	}

	if err := os.MkdirAll(p.config.ArchivePath, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	name := fmt.Sprintf("audit-%s-%s.json", reason, p.clock().UTC().Format("2006-01-02-150405.000000000"))
	archiveFile := filepath.Join(p.config.ArchivePath, name)
	f, err := os.Create(archiveFile)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer f.Close()

	if err := export.NewJSONExporter(true).Export(ctx, records, f); err != nil {
		return fmt.Errorf("failed to export records to archive: %w", err)
	}

	p.logger.Info("audit records archived",
		"archive_file", archiveFile,
		"record_count", len(records),
	)
	return nil
}

// Start starts the pruning scheduler.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the pruning scheduler.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the next scheduled run, or nil when not scheduled.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}

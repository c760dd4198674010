package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

const archiveLockKey = "archive"

// ArchiveJob moves route results and audit rows older than the retention
// window to cold storage on a cron schedule. With a lock manager only one
// instance archives per trigger.
type ArchiveJob struct {
	archiver      domain.Archiver
	locks         domain.LockManager
	schedule      Schedule
	retentionDays int
	logger        *slog.Logger
	now           func() time.Time
}

// NewArchiveJob parses cronExpr and creates an ArchiveJob. locks may be nil.
func NewArchiveJob(archiver domain.Archiver, locks domain.LockManager, cronExpr string, retentionDays int, logger *slog.Logger) (*ArchiveJob, error) {
	schedule, err := ParseSchedule(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("archive_job: parsing cron expression %q: %w", cronExpr, err)
	}
	if retentionDays <= 0 {
		return nil, fmt.Errorf("archive_job: retention_days must be positive, got %d", retentionDays)
	}
	return &ArchiveJob{
		archiver:      archiver,
		locks:         locks,
		schedule:      schedule,
		retentionDays: retentionDays,
		logger:        logger.With(slog.String("component", "archive_job")),
		now:           time.Now,
	}, nil
}

// RunOnce archives everything older than the retention window. It returns
// nil without archiving when another instance holds the lock.
func (j *ArchiveJob) RunOnce(ctx context.Context) error {
	if j.locks != nil {
		unlock, err := j.locks.Acquire(ctx, archiveLockKey, time.Hour)
		if errors.Is(err, domain.ErrLockHeld) {
			j.logger.InfoContext(ctx, "archive skipped, lock held elsewhere")
			return nil
		}
		if err != nil {
			return fmt.Errorf("archive_job: acquire lock: %w", err)
		}
		defer unlock()
	}

	cutoff := j.now().UTC().AddDate(0, 0, -j.retentionDays)
	j.logger.InfoContext(ctx, "starting archive run",
		slog.Time("cutoff", cutoff),
		slog.Int("retention_days", j.retentionDays),
	)

	routes, err := j.archiver.ArchiveRoutes(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("archive_job: routes before %v: %w", cutoff, err)
	}
	audit, err := j.archiver.ArchiveAudit(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("archive_job: audit before %v: %w", cutoff, err)
	}

	j.logger.InfoContext(ctx, "archive run complete",
		slog.Int64("routes_archived", routes),
		slog.Int64("audit_archived", audit),
	)
	return nil
}

// Run waits for each cron trigger and archives until ctx is cancelled. A
// failed run is logged and the job waits for the next trigger.
func (j *ArchiveJob) Run(ctx context.Context) error {
	for {
		next, err := j.schedule.Next(j.now().UTC())
		if err != nil {
			return fmt.Errorf("archive_job: %w", err)
		}
		wait := time.Until(next)
		j.logger.DebugContext(ctx, "waiting for next trigger",
			slog.Time("next_run", next),
			slog.Duration("wait", wait),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			j.logger.Info("archive job stopped")
			return ctx.Err()
		case <-timer.C:
			if err := j.RunOnce(ctx); err != nil {
				j.logger.ErrorContext(ctx, "archive run failed", slog.String("error", err.Error()))
			}
		}
	}
}

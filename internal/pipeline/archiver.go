// Package pipeline runs the dashboard's background loops and the cold-storage
// archive job.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

// ArchiveReport counts the rows moved by one run.
type ArchiveReport struct {
	Cutoff        time.Time `json:"cutoff"`
	Trades        int64     `json:"trades"`
	Opportunities int64     `json:"opportunities"`
	Audit         int64     `json:"audit"`
}

// Archiver moves history older than the retention window to cold storage.
type Archiver struct {
	blobArchiver  domain.Archiver
	retentionDays int
	logger        *slog.Logger
	now           func() time.Time
}

// NewArchiver creates a new Archiver.
func NewArchiver(blobArchiver domain.Archiver, retentionDays int, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &Archiver{
		blobArchiver:  blobArchiver,
		retentionDays: retentionDays,
		logger:        logger.With(slog.String("component", "archiver")),
		now:           time.Now,
	}
}

// WithClock overrides the clock used for the cutoff and the cron schedule.
func (a *Archiver) WithClock(now func() time.Time) *Archiver {
	a.now = now
	return a
}

// Run executes a single archive run over trades, opportunities and the audit
// log. A failure in one kind does not stop the others; the failures are
// returned joined with the partial report.
func (a *Archiver) Run(ctx context.Context) (ArchiveReport, error) {
	cutoff := a.now().UTC().Add(-time.Duration(a.retentionDays) * 24 * time.Hour)
	report := ArchiveReport{Cutoff: cutoff}
	a.logger.InfoContext(ctx, "starting archive run",
		slog.Time("cutoff", cutoff),
		slog.Int("retention_days", a.retentionDays),
	)

	steps := []struct {
		kind string
		run  func(context.Context, time.Time) (int64, error)
		into *int64
	}{
		{"trades", a.blobArchiver.ArchiveTrades, &report.Trades},
		{"opportunities", a.blobArchiver.ArchiveOpportunities, &report.Opportunities},
		{"audit", a.blobArchiver.ArchiveAudit, &report.Audit},
	}

	var errs []error
	for _, step := range steps {
		n, err := step.run(ctx, cutoff)
		if err != nil {
			a.logger.ErrorContext(ctx, "archive step failed",
				slog.String("kind", step.kind),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("archiving %s before %v: %w", step.kind, cutoff, err))
			continue
		}
		*step.into = n
		a.logger.InfoContext(ctx, "archived "+step.kind, slog.Int64("count", n))
	}

	a.logger.InfoContext(ctx, "archive run complete",
		slog.Int64("trades_archived", report.Trades),
		slog.Int64("opportunities_archived", report.Opportunities),
		slog.Int64("audit_archived", report.Audit),
	)
	return report, errors.Join(errs...)
}

// RunCron runs the archiver on a cron schedule until the context is cancelled.
// See ParseCron for the accepted syntax.
//
// Example: "0 3 1 * *" runs at 3:00 AM on the 1st of every month.
func (a *Archiver) RunCron(ctx context.Context, cronExpr string) error {
	sched, err := ParseCron(cronExpr)
	if err != nil {
		return fmt.Errorf("parsing cron expression %q: %w", cronExpr, err)
	}
	a.logger.InfoContext(ctx, "archiver cron started", slog.String("cron", cronExpr))

	for {
		next, err := sched.Next(a.now().UTC())
		if err != nil {
			return err
		}

		wait := next.Sub(a.now())
		a.logger.InfoContext(ctx, "archiver waiting for next cron trigger",
			slog.Time("next_run", next),
			slog.Duration("wait", wait),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			a.logger.InfoContext(ctx, "archiver cron stopped")
			return ctx.Err()
		case <-timer.C:
			if _, err := a.Run(ctx); err != nil {
				a.logger.ErrorContext(ctx, "archive run failed", slog.String("error", err.Error()))
			}
		}
	}
}

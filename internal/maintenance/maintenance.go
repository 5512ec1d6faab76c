// Package maintenance runs the periodic schedule update, reminder check,
// and cleanup as in-process cron jobs for the long-running server. The
// batch CLI stays single-shot under an external scheduler; this package
// is only started by cmd/api.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/svedberg/vintersport-tv/internal/config"
)

// Tasks are the jobs the scheduler drives. A nil task disables its
// schedule.
type Tasks struct {
	Update  func(ctx context.Context) // ingestion run
	Remind  func(ctx context.Context) // reminder dispatch
	Cleanup func(ctx context.Context) // past-event prune + ledger purge
}

// Start registers the configured cron schedules and blocks until ctx is
// cancelled. Intended to be called with `go`. Returns early with an error
// when a cron expression does not parse.
func Start(ctx context.Context, cfg *config.Config, tasks Tasks, logger *slog.Logger) error {
	c := cron.New()

	add := func(name, spec string, fn func(context.Context)) error {
		if fn == nil {
			return nil
		}
		_, err := c.AddFunc(spec, func() {
			logger.Info("Scheduled task starting", "task", name)
			fn(ctx)
		})
		if err != nil {
			return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
		}
		logger.Info("Scheduled task registered", "task", name, "cron", spec)
		return nil
	}

	if err := add("update", cfg.UpdateSchedule, tasks.Update); err != nil {
		return err
	}
	if err := add("remind", cfg.ReminderSchedule, tasks.Remind); err != nil {
		return err
	}
	if err := add("cleanup", cfg.CleanupSchedule, tasks.Cleanup); err != nil {
		return err
	}

	c.Start()
	logger.Info("Maintenance scheduler started")

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	logger.Info("Maintenance scheduler stopped")
	return nil
}

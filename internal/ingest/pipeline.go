package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/svedberg/vintersport-tv/internal/artifact"
	"github.com/svedberg/vintersport-tv/internal/config"
	"github.com/svedberg/vintersport-tv/internal/event"
)

// Pipeline holds one ingestion run's dependencies.
type Pipeline struct {
	Cfg      *config.Config
	Calendar []Source // placeholder observations: dated, channel/time TBA
	Verified []Source // confirmed broadcasts that shadow placeholders
	Store    EventStore
	Logger   *slog.Logger

	// Now overrides the clock in tests. Nil means time.Now.
	Now func() time.Time
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Run executes one ingestion pass. When dryRun is set the merged schedule
// is computed and returned but neither the artifact nor the store is
// touched. Per-source and per-event failures are collected; only a run
// where every source comes back empty publishes nothing.
func (p *Pipeline) Run(ctx context.Context, dryRun bool) Result {
	start := time.Now()
	var result Result
	defer func() { result.Duration = time.Since(start) }()

	verified := p.fetchAll(ctx, p.Verified, &result)
	result.VerifiedFound = len(verified)

	calendar := p.fetchAll(ctx, p.Calendar, &result)
	result.CalendarFound = len(calendar)

	if len(verified) == 0 && len(calendar) == 0 {
		// Publishing an empty schedule would wipe the dashboard on a
		// transient outage. Keep whatever was published last.
		result.NoData = true
		p.Logger.Warn("All sources returned nothing; keeping the previous schedule")
		return result
	}

	merged := event.Merge(verified, calendar)
	today := p.now().Format(event.DateLayout)
	merged = event.FilterFrom(merged, today)
	event.SortSchedule(merged)

	events := event.AssignIDs(merged)
	result.Merged = len(events)
	result.Events = events

	if dryRun {
		p.Logger.Info("Dry run; schedule not published", "events", len(events))
		return result
	}

	if err := artifact.WriteSchedule(p.Cfg.ScriptJSPath, events); err != nil {
		p.Logger.Error("Failed to update display artifact", "error", err)
		result.Errors = append(result.Errors, fmt.Sprintf("artifact: %v", err))
	} else {
		p.Logger.Info("Display artifact updated", "path", p.Cfg.ScriptJSPath, "events", len(events))
	}

	p.syncStore(ctx, events, &result)

	p.Logger.Info("Ingestion complete", "summary", result.Summary())
	return result
}

// fetchAll drains every source in the group, logging and recording
// failures without stopping.
func (p *Pipeline) fetchAll(ctx context.Context, sources []Source, result *Result) []event.Observation {
	var all []event.Observation
	for _, src := range sources {
		obs, err := src.Fetch(ctx)
		if err != nil {
			p.Logger.Warn("Source failed", "error", err)
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		all = append(all, obs...)
	}
	return all
}

// syncStore prunes events dated before yesterday, then upserts the new
// schedule one event at a time so a single bad document costs one row.
func (p *Pipeline) syncStore(ctx context.Context, events []event.Event, result *Result) {
	if p.Store == nil {
		p.Logger.Info("No store configured; schedule published to artifact only")
		return
	}

	yesterday := p.now().AddDate(0, 0, -1).Format(event.DateLayout)
	pruned, err := p.Store.DeleteEventsBefore(ctx, yesterday)
	if err != nil {
		p.Logger.Warn("Failed to prune past events", "error", err)
		result.Errors = append(result.Errors, fmt.Sprintf("prune: %v", err))
	}
	result.Pruned = pruned

	for _, e := range events {
		if err := p.Store.UpsertEvent(ctx, e); err != nil {
			p.Logger.Warn("Failed to upsert event", "id", e.ID, "title", e.Title, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("upsert %d: %v", e.ID, err))
			continue
		}
		result.Upserted++
	}
}

package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/svedberg/vintersport-tv/internal/config"
	"github.com/svedberg/vintersport-tv/internal/event"
	"github.com/svedberg/vintersport-tv/internal/notify"
	"github.com/svedberg/vintersport-tv/internal/store"
)

// Dispatcher holds one run's dependencies. Ledger may be nil when the
// store is unreachable; delivery then proceeds without de-duplication.
type Dispatcher struct {
	Cfg    *config.Config
	Ledger Ledger
	Sender Sender
	Logger *slog.Logger

	// Now overrides the clock in tests. Nil means time.Now.
	Now func() time.Time

	// Location resolves event date+time strings. Nil means time.Local.
	Location *time.Location
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Dispatcher) location() *time.Location {
	if d.Location != nil {
		return d.Location
	}
	return time.Local
}

// Run checks every event against the configured reminder offsets, sends
// what is due, and purges expired ledger rows. Individual failures are
// collected; the run itself only reports, never aborts.
func (d *Dispatcher) Run(ctx context.Context, events []event.Event) Result {
	start := time.Now()
	var result Result
	defer func() { result.Duration = time.Since(start) }()

	if !d.Cfg.RemindersEnabled {
		d.Logger.Info("Reminders are disabled in configuration")
		return result
	}

	now := d.now()
	allowed := notify.AllowedNow(d.Cfg, now)
	if !allowed {
		d.Logger.Info("Outside allowed notification hours; matches will be suppressed")
	}

	for _, e := range events {
		instant, ok := e.StartTime(d.location())
		if !ok {
			continue
		}
		if instant.Before(now) || instant.Sub(now) > horizon {
			continue
		}
		result.Checked++

		minutesUntil := int(instant.Sub(now).Seconds() / 60)

		for _, offset := range d.Cfg.ReminderIntervals {
			if abs(minutesUntil-offset) > windowMinutes {
				continue
			}
			d.dispatchOne(ctx, e, instant, offset, minutesUntil, allowed, &result)
		}
	}

	d.purge(ctx, now, &result)

	d.Logger.Info("Reminder check complete", "summary", result.Summary())
	return result
}

// dispatchOne handles a single due (event, offset) pair: ledger check,
// allowed-hours gate, delivery, ledger write.
func (d *Dispatcher) dispatchOne(ctx context.Context, e event.Event, instant time.Time, offset, minutesUntil int, allowed bool, result *Result) {
	eventID := e.EventID()

	if d.Ledger != nil {
		sent, err := d.Ledger.HasReminderBeenSent(ctx, eventID, offset)
		if err != nil {
			// Ledger unreachable mid-run: deliver anyway. Duplicates are
			// preferable to silence.
			d.Logger.Warn("Ledger check failed, sending best-effort",
				"event_id", eventID, "offset", offset, "error", err)
		} else if sent {
			d.Logger.Debug("Reminder already sent", "event_id", eventID, "offset", offset)
			result.Skipped++
			return
		}
	}

	if !allowed {
		// Dropped for this opportunity only. Nothing is written, so a later
		// run whose window still matches may fire it.
		result.Suppressed++
		return
	}

	d.Logger.Info("Sending reminder", "title", e.Title, "minutes_until", minutesUntil, "offset", offset)

	if err := d.Sender.SendReminder(ctx, e, offset); err != nil {
		d.Logger.Error("Failed to send reminder", "title", e.Title, "error", err)
		result.Failed++
		result.Errors = append(result.Errors, fmt.Sprintf("event %s offset %d: %v", eventID, offset, err))
		return
	}
	result.Sent++

	if d.Ledger != nil {
		entry := store.LedgerEntry{
			EventID:       eventID,
			EventTitle:    e.Title,
			MinutesBefore: offset,
			EventDatetime: instant,
			SentAt:        d.now(),
		}
		if err := d.Ledger.MarkReminderSent(ctx, entry); err != nil {
			d.Logger.Warn("Failed to record reminder in ledger",
				"event_id", eventID, "offset", offset, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("ledger write %s/%d: %v", eventID, offset, err))
		}
	}
}

// purge removes ledger rows whose event instant fell out of retention.
func (d *Dispatcher) purge(ctx context.Context, now time.Time, result *Result) {
	if d.Ledger == nil {
		return
	}
	retention := d.Cfg.ReminderRetention
	if retention <= 0 {
		retention = 7
	}
	purged, err := d.Ledger.PurgeReminders(ctx, now, retention)
	if err != nil {
		d.Logger.Warn("Ledger purge failed", "error", err)
		result.Errors = append(result.Errors, fmt.Sprintf("purge: %v", err))
		return
	}
	result.Purged = purged
	if purged > 0 {
		d.Logger.Info("Purged old ledger entries", "count", purged)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

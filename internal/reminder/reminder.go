// Package reminder decides which (event, offset) reminders are due on a
// run, delivers them at most once via the sent-reminder ledger, and purges
// expired ledger rows.
//
// The dispatcher runs periodically under an external scheduler, so due
// times are matched with a tolerance window rather than exact minutes.
// Each (event, offset) pair fires once and is then terminal: the ledger
// row is the only state.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/svedberg/vintersport-tv/internal/event"
	"github.com/svedberg/vintersport-tv/internal/store"
)

const (
	// windowMinutes is the tolerance around each offset. The dispatcher
	// cannot rely on exact-minute invocation, so an offset m fires whenever
	// |minutes_until - m| <= windowMinutes.
	windowMinutes = 10

	// horizon is the coarse pre-filter: events further out are never
	// considered on this run.
	horizon = 24 * time.Hour
)

// Ledger is the sent-reminder record. *store.Store satisfies it; tests use
// fakes. The dispatcher accepts a nil Ledger and then delivers best-effort,
// trading possible duplicate notifications for availability.
type Ledger interface {
	HasReminderBeenSent(ctx context.Context, eventID string, minutesBefore int) (bool, error)
	MarkReminderSent(ctx context.Context, entry store.LedgerEntry) error
	PurgeReminders(ctx context.Context, now time.Time, days int) (int64, error)
}

// Sender delivers one reminder notification. *notify.Notifier satisfies it.
type Sender interface {
	SendReminder(ctx context.Context, e event.Event, minutesBefore int) error
}

// Result tracks the outcome of one dispatcher run.
type Result struct {
	Checked    int // events with a resolvable start instant inside the horizon
	Sent       int
	Skipped    int // already in the ledger
	Suppressed int // matched a window but fell outside allowed hours
	Failed     int
	Purged     int64
	Duration   time.Duration
	Errors     []string
}

// Summary returns a human-readable summary.
func (r *Result) Summary() string {
	return fmt.Sprintf("checked=%d sent=%d skipped=%d suppressed=%d failed=%d purged=%d dur=%s",
		r.Checked, r.Sent, r.Skipped, r.Suppressed, r.Failed, r.Purged,
		r.Duration.Round(time.Second))
}

// Package ingest runs the schedule ingestion pipeline: fetch calendar
// and broadcast sources, merge them with verified-wins precedence, and
// publish the result to the display artifact and the event store.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/svedberg/vintersport-tv/internal/event"
)

// Source yields raw observations from one upstream. A failing source
// costs its own observations, never the run.
type Source interface {
	Fetch(ctx context.Context) ([]event.Observation, error)
}

// EventStore is the slice of the store the pipeline writes to. *store.Store
// satisfies it; tests use fakes. A nil EventStore skips persistence and the
// run publishes the artifact only.
type EventStore interface {
	UpsertEvent(ctx context.Context, e event.Event) error
	DeleteEventsBefore(ctx context.Context, cutoff string) (int64, error)
}

// Result tracks the outcome of one pipeline run.
type Result struct {
	CalendarFound int
	VerifiedFound int
	Merged        int
	Upserted      int
	Pruned        int64
	NoData        bool // every source came back empty; nothing was published
	Duration      time.Duration
	Errors        []string

	// Events is the published schedule, for dry-run inspection.
	Events []event.Event
}

// Summary returns a human-readable summary.
func (r *Result) Summary() string {
	if r.NoData {
		return "no data from any source; schedule left untouched"
	}
	return fmt.Sprintf("calendar=%d verified=%d merged=%d upserted=%d pruned=%d errors=%d dur=%s",
		r.CalendarFound, r.VerifiedFound, r.Merged, r.Upserted, r.Pruned,
		len(r.Errors), r.Duration.Round(time.Second))
}

package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/svedberg/vintersport-tv/internal/artifact"
	"github.com/svedberg/vintersport-tv/internal/config"
	"github.com/svedberg/vintersport-tv/internal/event"
)

// --------------------------------------------------------------------------
// Fakes
// --------------------------------------------------------------------------

type fakeSource struct {
	obs []event.Observation
	err error
}

func (s *fakeSource) Fetch(context.Context) ([]event.Observation, error) {
	return s.obs, s.err
}

type fakeStore struct {
	upserted  []event.Event
	pruned    string
	upsertErr error
}

func (s *fakeStore) UpsertEvent(_ context.Context, e event.Event) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserted = append(s.upserted, e)
	return nil
}

func (s *fakeStore) DeleteEventsBefore(_ context.Context, cutoff string) (int64, error) {
	s.pruned = cutoff
	return 2, nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

var fixedNow = time.Date(2025, 12, 10, 12, 0, 0, 0, time.UTC)

func calendarObs(date, sport string) event.Observation {
	return event.Observation{
		Event: event.Event{
			Sport: sport, Title: "Världscupen i Davos", Competition: "Sprint - Damer",
			Channel: event.TBA, Date: date, Time: event.TBA,
		},
		Source: "fis",
	}
}

func verifiedObs(date, sport string) event.Observation {
	return event.Observation{
		Event: event.Event{
			Sport: sport, Title: "Längdskidor: sprint", Competition: "Sprint - Damer",
			Channel: "SVT2", Date: date, Time: "14:00",
		},
		Verified: true,
		Source:   "tv.nu",
	}
}

func newPipeline(t *testing.T, st EventStore, verified, calendar []Source) *Pipeline {
	t.Helper()
	return &Pipeline{
		Cfg:      &config.Config{ScriptJSPath: filepath.Join(t.TempDir(), "script.js")},
		Calendar: calendar,
		Verified: verified,
		Store:    st,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:      func() time.Time { return fixedNow },
	}
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestRunVerifiedShadowsCalendar(t *testing.T) {
	st := &fakeStore{}
	p := newPipeline(t, st,
		[]Source{&fakeSource{obs: []event.Observation{verifiedObs("2025-12-14", "cross-country")}}},
		[]Source{&fakeSource{obs: []event.Observation{
			calendarObs("2025-12-14", "cross-country"), // shadowed
			calendarObs("2025-12-20", "biathlon"),      // kept
		}}},
	)

	result := p.Run(context.Background(), false)

	if result.Merged != 2 {
		t.Fatalf("Merged = %d, want 2", result.Merged)
	}
	if result.Events[0].Channel != "SVT2" {
		t.Errorf("shadowed slot channel = %q, want the verified broadcast", result.Events[0].Channel)
	}
	if result.Events[1].Sport != "biathlon" {
		t.Errorf("unshadowed calendar event missing, got %+v", result.Events[1])
	}
	// Renumbered in sorted order.
	for i, e := range result.Events {
		if e.ID != i+1 {
			t.Errorf("event %d has id %d", i, e.ID)
		}
	}
	if len(st.upserted) != 2 {
		t.Errorf("upserted %d events, want 2", len(st.upserted))
	}
	if st.pruned != "2025-12-09" {
		t.Errorf("prune cutoff = %q, want yesterday", st.pruned)
	}

	published, err := artifact.ReadSchedule(p.Cfg.ScriptJSPath)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if len(published) != 2 {
		t.Errorf("artifact has %d events, want 2", len(published))
	}
}

func TestRunFiltersPastDates(t *testing.T) {
	p := newPipeline(t, nil,
		nil,
		[]Source{&fakeSource{obs: []event.Observation{
			calendarObs("2025-12-09", "biathlon"), // yesterday, dropped
			calendarObs("2025-12-10", "biathlon"), // today, kept
		}}},
	)

	result := p.Run(context.Background(), false)
	if result.Merged != 1 {
		t.Fatalf("Merged = %d, want 1", result.Merged)
	}
	if result.Events[0].Date != "2025-12-10" {
		t.Errorf("kept date = %q, want today", result.Events[0].Date)
	}
}

func TestRunAllSourcesEmptyLeavesArtifactUntouched(t *testing.T) {
	p := newPipeline(t, nil,
		[]Source{&fakeSource{}},
		[]Source{&fakeSource{err: fmt.Errorf("upstream 503")}},
	)
	previous := "const events = [{\"id\":1}];\n// renderer\n"
	if err := os.WriteFile(p.Cfg.ScriptJSPath, []byte(previous), 0o644); err != nil {
		t.Fatal(err)
	}

	result := p.Run(context.Background(), false)

	if !result.NoData {
		t.Error("NoData should be set when every source is empty")
	}
	if len(result.Errors) != 1 {
		t.Errorf("Errors = %v, want the failed source recorded", result.Errors)
	}
	raw, _ := os.ReadFile(p.Cfg.ScriptJSPath)
	if string(raw) != previous {
		t.Error("artifact changed on a no-data run")
	}
}

func TestRunSourceFailureDoesNotAbort(t *testing.T) {
	st := &fakeStore{}
	p := newPipeline(t, st,
		[]Source{&fakeSource{err: fmt.Errorf("tv.nu down")}},
		[]Source{&fakeSource{obs: []event.Observation{calendarObs("2025-12-14", "cross-country")}}},
	)

	result := p.Run(context.Background(), false)

	if result.NoData {
		t.Fatal("run aborted despite one healthy source")
	}
	if result.Merged != 1 || len(st.upserted) != 1 {
		t.Errorf("Merged=%d upserted=%d, want 1 and 1", result.Merged, len(st.upserted))
	}
	if len(result.Errors) != 1 {
		t.Errorf("Errors = %v, want the failed source recorded", result.Errors)
	}
}

func TestRunDryRunPublishesNothing(t *testing.T) {
	st := &fakeStore{}
	p := newPipeline(t, st,
		[]Source{&fakeSource{obs: []event.Observation{verifiedObs("2025-12-14", "cross-country")}}},
		nil,
	)

	result := p.Run(context.Background(), true)

	if result.Merged != 1 || len(result.Events) != 1 {
		t.Fatalf("dry run should still compute the schedule, got %+v", result)
	}
	if len(st.upserted) != 0 {
		t.Error("dry run wrote to the store")
	}
	if _, err := os.Stat(p.Cfg.ScriptJSPath); !os.IsNotExist(err) {
		t.Error("dry run wrote the artifact")
	}
}

func TestRunUpsertErrorsAreCollected(t *testing.T) {
	st := &fakeStore{upsertErr: fmt.Errorf("write concern")}
	p := newPipeline(t, st,
		[]Source{&fakeSource{obs: []event.Observation{verifiedObs("2025-12-14", "cross-country")}}},
		nil,
	)

	result := p.Run(context.Background(), false)

	if result.Upserted != 0 {
		t.Errorf("Upserted = %d, want 0", result.Upserted)
	}
	if len(result.Errors) == 0 {
		t.Error("upsert failure should be recorded in Errors")
	}
}

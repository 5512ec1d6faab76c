package maintenance

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/svedberg/vintersport-tv/internal/config"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStartRejectsBadCronExpression(t *testing.T) {
	cfg := &config.Config{UpdateSchedule: "not a cron expression"}
	err := Start(context.Background(), cfg, Tasks{Update: func(context.Context) {}}, discard())
	if err == nil {
		t.Fatal("expected error for an invalid cron expression")
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	cfg := &config.Config{
		UpdateSchedule:   "0 6 * * *",
		ReminderSchedule: "*/10 * * * *",
		CleanupSchedule:  "30 3 * * *",
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- Start(ctx, cfg, Tasks{
			Update:  func(context.Context) {},
			Remind:  func(context.Context) {},
			Cleanup: func(context.Context) {},
		}, discard())
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after context cancellation")
	}
}

func TestStartSkipsNilTasks(t *testing.T) {
	cfg := &config.Config{UpdateSchedule: "garbage"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The broken expression is never registered because the task is nil.
	if err := Start(ctx, cfg, Tasks{}, discard()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
}

// Command api is the Vintersport-TV dashboard and API server. It serves
// the schedule API and the display artifact, and optionally runs the
// periodic update, reminder, and cleanup jobs in-process.
//
// Usage:
//
//	vintersport-api
//	API_PORT=8080 vintersport-api
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/svedberg/vintersport-tv/internal/api"
	"github.com/svedberg/vintersport-tv/internal/config"
	"github.com/svedberg/vintersport-tv/internal/event"
	"github.com/svedberg/vintersport-tv/internal/ingest"
	"github.com/svedberg/vintersport-tv/internal/maintenance"
	"github.com/svedberg/vintersport-tv/internal/notify"
	"github.com/svedberg/vintersport-tv/internal/reminder"
	"github.com/svedberg/vintersport-tv/internal/source"
	"github.com/svedberg/vintersport-tv/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to MongoDB; the dashboard still serves the artifact without it.
	st, err := store.New(ctx, cfg)
	if err != nil {
		logger.Warn("MongoDB unavailable, store-backed endpoints disabled", "error", err)
		st = nil
	} else {
		defer st.Close(context.Background())
		logger.Info("MongoDB connected", "database", cfg.MongoDBDatabase)
	}

	// In-process scheduler for update/remind/cleanup.
	if cfg.SchedulerEnabled {
		tasks := buildTasks(cfg, st, logger)
		go func() {
			if err := maintenance.Start(ctx, cfg, tasks, logger); err != nil {
				logger.Error("Maintenance scheduler failed", "error", err)
			}
		}()
	} else {
		logger.Info("Maintenance scheduler disabled (SCHEDULER_ENABLED=false)")
	}

	router := api.NewRouter(st, cfg, logger)

	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting Vintersport-TV API",
			"addr", addr,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}

// buildTasks wires the scheduled jobs over the shared store handle.
func buildTasks(cfg *config.Config, st *store.Store, logger *slog.Logger) maintenance.Tasks {
	client := source.NewClient(cfg.SourceRequestsPer, logger)
	pipeline := &ingest.Pipeline{
		Cfg: cfg,
		Calendar: []ingest.Source{
			source.NewFISCalendar(client, cfg.FISCalendarURL, logger),
			source.NewIBUCalendar(client, cfg.IBUAPIURL, logger),
		},
		Verified: []ingest.Source{
			source.NewTVNuListings(client, cfg.TVNuSearchURL, logger),
		},
		Logger: logger,
	}
	if st != nil {
		pipeline.Store = st
	}

	tasks := maintenance.Tasks{
		Update: func(ctx context.Context) {
			result := pipeline.Run(ctx, false)
			logger.Info("Scheduled update finished", "summary", result.Summary())
		},
		Remind: func(ctx context.Context) {
			notifier, err := notify.New(cfg, logger)
			if err != nil {
				logger.Warn("Reminder task skipped, Home Assistant not configured", "error", err)
				return
			}
			events, err := st.Events(ctx)
			if err != nil {
				logger.Warn("Reminder task skipped, failed to read schedule", "error", err)
				return
			}
			d := &reminder.Dispatcher{Cfg: cfg, Sender: notifier, Logger: logger}
			if st != nil {
				d.Ledger = st
			}
			result := d.Run(ctx, events)
			logger.Info("Scheduled reminder check finished", "summary", result.Summary())
		},
	}

	if st != nil {
		tasks.Cleanup = func(ctx context.Context) {
			now := time.Now()
			yesterday := now.AddDate(0, 0, -1).Format(event.DateLayout)
			removed, err := st.DeleteEventsBefore(ctx, yesterday)
			if err != nil {
				logger.Warn("Cleanup: failed to remove past events", "error", err)
			}
			purged, err := st.PurgeReminders(ctx, now, cfg.ReminderRetention)
			if err != nil {
				logger.Warn("Cleanup: failed to purge reminder ledger", "error", err)
			}
			logger.Info("Scheduled cleanup finished", "events_removed", removed, "reminders_purged", purged)
		}
	}

	return tasks
}

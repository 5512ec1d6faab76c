// Command vintersport is the schedule ingestion and reminder CLI. Each
// subcommand is a single-shot batch run meant to be driven by an external
// scheduler such as cron or a Synology task.
//
// Usage:
//
//	vintersport update
//	vintersport update --dry-run
//	vintersport remind
//	vintersport events show --days 7
//	vintersport events import
//	vintersport events cleanup
//	vintersport events clear --yes
//	vintersport test ha
//	vintersport test notify
//	vintersport test db
//	vintersport config show
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/svedberg/vintersport-tv/internal/artifact"
	"github.com/svedberg/vintersport-tv/internal/config"
	"github.com/svedberg/vintersport-tv/internal/event"
	"github.com/svedberg/vintersport-tv/internal/ingest"
	"github.com/svedberg/vintersport-tv/internal/notify"
	"github.com/svedberg/vintersport-tv/internal/reminder"
	"github.com/svedberg/vintersport-tv/internal/source"
	"github.com/svedberg/vintersport-tv/internal/store"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "vintersport",
		Short: "Winter sports TV schedule and reminder CLI",
	}

	root.AddCommand(updateCmd())
	root.AddCommand(remindCmd())
	root.AddCommand(eventsCmd())
	root.AddCommand(testCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// update command
// --------------------------------------------------------------------------

func updateCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Fetch upstream sources and publish the merged schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(func(ctx context.Context, cfg *config.Config) error {
				release, err := acquireLock("update")
				if err != nil {
					return err
				}
				defer release()

				st := connectStore(ctx, cfg)
				defer st.Close(ctx)

				p := buildPipeline(cfg, st)
				start := time.Now()
				result := p.Run(ctx, dryRun)
				logger.Info("Update finished",
					"duration", time.Since(start).Round(time.Second),
					"summary", result.Summary())
				for _, e := range result.Errors {
					logger.Error("update error", "error", e)
				}

				if dryRun && !result.NoData {
					out, err := json.MarshalIndent(result.Events, "", "  ")
					if err != nil {
						return fmt.Errorf("encode schedule: %w", err)
					}
					fmt.Println(string(out))
				}

				if result.NoData && len(result.Errors) > 0 {
					return fmt.Errorf("every source failed; schedule not updated")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute and print the schedule without publishing it")
	return cmd
}

// --------------------------------------------------------------------------
// remind command
// --------------------------------------------------------------------------

func remindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Check the schedule and send due reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(func(ctx context.Context, cfg *config.Config) error {
				release, err := acquireLock("remind")
				if err != nil {
					return err
				}
				defer release()

				notifier, err := notify.New(cfg, logger)
				if err != nil {
					return fmt.Errorf("configure notifier: %w", err)
				}

				st := connectStore(ctx, cfg)
				defer st.Close(ctx)

				events, err := loadSchedule(ctx, cfg, st)
				if err != nil {
					return err
				}

				d := &reminder.Dispatcher{
					Cfg:    cfg,
					Sender: notifier,
					Logger: logger,
				}
				if st != nil {
					d.Ledger = st
				}

				result := d.Run(ctx, events)
				logger.Info("Remind finished", "summary", result.Summary())
				for _, e := range result.Errors {
					logger.Error("remind error", "error", e)
				}
				return nil
			})
		},
	}
}

// loadSchedule reads events from the store when connected, falling back to
// the display artifact so reminders keep working through a MongoDB outage.
func loadSchedule(ctx context.Context, cfg *config.Config, st *store.Store) ([]event.Event, error) {
	if st != nil {
		events, err := st.Events(ctx)
		if err == nil {
			return events, nil
		}
		logger.Warn("Failed to read events from store, falling back to artifact", "error", err)
	}

	events, err := artifact.ReadSchedule(cfg.ScriptJSPath)
	if err != nil {
		return nil, fmt.Errorf("no schedule available: %w", err)
	}
	return events, nil
}

// --------------------------------------------------------------------------
// events command
// --------------------------------------------------------------------------

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect and maintain the stored schedule",
	}
	cmd.AddCommand(eventsShowCmd())
	cmd.AddCommand(eventsImportCmd())
	cmd.AddCommand(eventsCleanupCmd())
	cmd.AddCommand(eventsClearCmd())
	return cmd
}

func eventsShowCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print upcoming events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(func(ctx context.Context, cfg *config.Config) error {
				st := connectStore(ctx, cfg)
				defer st.Close(ctx)

				var (
					events []event.Event
					err    error
				)
				if st != nil && days > 0 {
					events, err = st.UpcomingEvents(ctx, time.Now(), days)
				} else {
					events, err = loadSchedule(ctx, cfg, st)
				}
				if err != nil {
					return err
				}

				if len(events) == 0 {
					fmt.Println("No events scheduled.")
					return nil
				}
				for _, e := range events {
					fmt.Printf("%3d  %-10s %5s  %-6s %-14s %s (%s)\n",
						e.ID, e.Date, e.Time, e.Channel, e.Sport, e.Title, e.Competition)
				}
				fmt.Printf("\n%d events\n", len(events))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Limit to events within this many days (0 = all)")
	return cmd
}

func eventsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Import the display artifact into MongoDB",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(func(ctx context.Context, cfg *config.Config) error {
				st, err := store.New(ctx, cfg)
				if err != nil {
					return fmt.Errorf("connect to MongoDB: %w", err)
				}
				defer st.Close(ctx)

				events, err := artifact.ReadSchedule(cfg.ScriptJSPath)
				if err != nil {
					return err
				}

				imported := 0
				for _, e := range events {
					if err := st.UpsertEvent(ctx, e); err != nil {
						logger.Warn("Failed to import event", "id", e.ID, "error", err)
						continue
					}
					imported++
				}
				logger.Info("Import finished", "found", len(events), "imported", imported)
				return nil
			})
		},
	}
}

func eventsCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove past events and expired reminder-ledger rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(func(ctx context.Context, cfg *config.Config) error {
				st, err := store.New(ctx, cfg)
				if err != nil {
					return fmt.Errorf("connect to MongoDB: %w", err)
				}
				defer st.Close(ctx)

				now := time.Now()
				yesterday := now.AddDate(0, 0, -1).Format(event.DateLayout)
				removed, err := st.DeleteEventsBefore(ctx, yesterday)
				if err != nil {
					return err
				}

				purged, err := st.PurgeReminders(ctx, now, cfg.ReminderRetention)
				if err != nil {
					return err
				}

				logger.Info("Cleanup finished", "events_removed", removed, "reminders_purged", purged)
				return nil
			})
		},
	}
}

func eventsClearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the entire stored schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear without --yes")
			}
			return runOp(func(ctx context.Context, cfg *config.Config) error {
				st, err := store.New(ctx, cfg)
				if err != nil {
					return fmt.Errorf("connect to MongoDB: %w", err)
				}
				defer st.Close(ctx)

				removed, err := st.ClearEvents(ctx)
				if err != nil {
					return err
				}
				logger.Info("Schedule cleared", "events_removed", removed)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}

// --------------------------------------------------------------------------
// test command
// --------------------------------------------------------------------------

func testCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Verify connectivity to external services",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ha",
		Short: "Check the Home Assistant API connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(func(ctx context.Context, cfg *config.Config) error {
				n, err := notify.New(cfg, logger)
				if err != nil {
					return err
				}
				if err := n.TestConnection(ctx); err != nil {
					return err
				}
				logger.Info("Home Assistant connection OK", "url", cfg.HomeAssistantURL)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(func(ctx context.Context, cfg *config.Config) error {
				n, err := notify.New(cfg, logger)
				if err != nil {
					return err
				}
				if err := n.SendTest(ctx); err != nil {
					return err
				}
				logger.Info("Test notification sent", "service", cfg.HomeAssistantService)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "db",
		Short: "Check the MongoDB connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(func(ctx context.Context, cfg *config.Config) error {
				st, err := store.New(ctx, cfg)
				if err != nil {
					return err
				}
				defer st.Close(ctx)

				count, err := st.CountEvents(ctx)
				if err != nil {
					return err
				}
				logger.Info("MongoDB connection OK", "database", cfg.MongoDBDatabase, "events", count)
				return nil
			})
		},
	})

	return cmd
}

// --------------------------------------------------------------------------
// config command
// --------------------------------------------------------------------------

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(func(ctx context.Context, cfg *config.Config) error {
				fmt.Printf("HOME_ASSISTANT_URL      %s\n", orUnset(cfg.HomeAssistantURL))
				fmt.Printf("HOME_ASSISTANT_TOKEN    %s\n", redact(cfg.HomeAssistantToken))
				fmt.Printf("HOME_ASSISTANT_SERVICE  %s\n", cfg.HomeAssistantService)
				fmt.Printf("MONGODB_URI             %s\n", redact(cfg.MongoDBURI))
				fmt.Printf("MONGODB_DATABASE        %s\n", cfg.MongoDBDatabase)
				fmt.Printf("REMINDER_INTERVALS      %v\n", cfg.ReminderIntervals)
				fmt.Printf("REMINDERS_ENABLED       %v\n", cfg.RemindersEnabled)
				fmt.Printf("REMINDER_RETENTION_DAYS %d\n", cfg.ReminderRetention)
				fmt.Printf("DEFAULT_SPORTS          %v\n", cfg.DefaultSports)
				fmt.Printf("WEEKDAY_HOURS           %02d-%02d\n", cfg.WeekdayStartHour, cfg.WeekdayEndHour)
				fmt.Printf("WEEKEND_HOURS           %02d-%02d\n", cfg.WeekendStartHour, cfg.WeekendEndHour)
				fmt.Printf("SCRIPT_JS_PATH          %s\n", cfg.ScriptJSPath)
				return nil
			})
		},
	})
	return cmd
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func redact(s string) string {
	if s == "" {
		return "(not set)"
	}
	return "***"
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// runOp handles config loading and context cancellation.
func runOp(fn func(ctx context.Context, cfg *config.Config) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	return fn(ctx, cfg)
}

// connectStore returns nil when MongoDB is not configured or unreachable;
// callers then run in artifact-only, best-effort mode.
func connectStore(ctx context.Context, cfg *config.Config) *store.Store {
	st, err := store.New(ctx, cfg)
	if err != nil {
		logger.Warn("MongoDB unavailable, continuing without store", "error", err)
		return nil
	}
	return st
}

// buildPipeline wires the upstream sources behind one rate-limited client.
func buildPipeline(cfg *config.Config, st *store.Store) *ingest.Pipeline {
	client := source.NewClient(cfg.SourceRequestsPer, logger)

	p := &ingest.Pipeline{
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
		p.Store = st
	}
	return p
}

// acquireLock takes the single-instance lock for a batch operation.
// Overlapping scheduler invocations fail fast instead of racing on the
// artifact and the ledger.
func acquireLock(name string) (func(), error) {
	path := filepath.Join(os.TempDir(), "vintersport-"+name+".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("another %s run is in progress (%s)", name, path)
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	return func() { os.Remove(path) }, nil
}

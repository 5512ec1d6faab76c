// Package handler provides HTTP handlers for the dashboard API.
// Handlers read the event store directly; there is no service layer.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/svedberg/vintersport-tv/internal/api/respond"
	"github.com/svedberg/vintersport-tv/internal/artifact"
	"github.com/svedberg/vintersport-tv/internal/config"
	"github.com/svedberg/vintersport-tv/internal/event"
	"github.com/svedberg/vintersport-tv/internal/notify"
	"github.com/svedberg/vintersport-tv/internal/store"
)

// Handler holds shared dependencies for all endpoint handlers. The store
// may be nil when MongoDB is not configured; store-backed endpoints then
// answer 503 instead of pretending the schedule is empty.
type Handler struct {
	store  *store.Store
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a Handler with shared dependencies.
func New(st *store.Store, cfg *config.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: st, cfg: cfg, logger: logger}
}

// Root serves API info at /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"name":    "Vintersport-TV API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs/",
	})
}

// HealthCheck returns basic health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies MongoDB connectivity.
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "store_unavailable", "MongoDB is not configured")
		return
	}
	if err := h.store.Ping(r.Context()); err != nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "store_unreachable", err.Error())
		return
	}
	count, err := h.store.CountEvents(r.Context())
	if err != nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "store_error", err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"events": count,
	})
}

// Events returns the stored schedule, optionally filtered by ?sport= and
// limited to the next ?days= days.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "store_unavailable", "MongoDB is not configured")
		return
	}

	sport := r.URL.Query().Get("sport")
	if sport != "" {
		if _, ok := config.SportRegistry[sport]; !ok {
			respond.WriteError(w, http.StatusBadRequest, "unknown_sport", "unknown sport tag: "+sport)
			return
		}
	}

	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respond.WriteError(w, http.StatusBadRequest, "invalid_days", "days must be a non-negative integer")
			return
		}
		days = n
	}

	var (
		events []event.Event
		err    error
	)
	switch {
	case days > 0:
		events, err = h.store.UpcomingEvents(r.Context(), time.Now(), days)
	case sport != "":
		events, err = h.store.EventsBySport(r.Context(), sport)
	default:
		events, err = h.store.Events(r.Context())
	}
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	if days > 0 && sport != "" {
		filtered := events[:0:0]
		for _, e := range events {
			if e.Sport == sport {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}
	if events == nil {
		events = []event.Event{}
	}

	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(events),
		"events": events,
	})
}

// Sports returns the distinct sport tags present in the schedule, with
// their display names.
func (h *Handler) Sports(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "store_unavailable", "MongoDB is not configured")
		return
	}
	tags, err := h.store.Sports(r.Context())
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	sports := make([]map[string]string, 0, len(tags))
	for _, tag := range tags {
		entry := map[string]string{"id": tag, "name": tag, "emoji": config.SportEmoji(tag)}
		if s, ok := config.SportRegistry[tag]; ok {
			entry["name"] = s.Name
		}
		sports = append(sports, entry)
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"sports": sports})
}

// ImportEvents syncs the display artifact into the store.
func (h *Handler) ImportEvents(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "store_unavailable", "MongoDB is not configured")
		return
	}

	events, err := artifact.ReadSchedule(h.cfg.ScriptJSPath)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "artifact_error", err.Error())
		return
	}

	imported := 0
	for _, e := range events {
		if err := h.store.UpsertEvent(r.Context(), e); err != nil {
			h.logger.Warn("Import: failed to upsert event", "id", e.ID, "error", err)
			continue
		}
		imported++
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"found":    len(events),
		"imported": imported,
	})
}

// TestHA verifies the Home Assistant connection.
func (h *Handler) TestHA(w http.ResponseWriter, r *http.Request) {
	n, err := notify.New(h.cfg, h.logger)
	if err != nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "ha_unconfigured", err.Error())
		return
	}
	if err := n.TestConnection(r.Context()); err != nil {
		respond.WriteError(w, http.StatusBadGateway, "ha_unreachable", err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "connected",
		"url":    h.cfg.HomeAssistantURL,
	})
}

// TestNotification sends a test notification through the configured service.
func (h *Handler) TestNotification(w http.ResponseWriter, r *http.Request) {
	n, err := notify.New(h.cfg, h.logger)
	if err != nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "ha_unconfigured", err.Error())
		return
	}
	if err := n.SendTest(r.Context()); err != nil {
		respond.WriteError(w, http.StatusBadGateway, "ha_send_failed", err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "sent",
		"service": h.cfg.HomeAssistantService,
	})
}

// RecentReminders returns the most recent ledger entries.
func (h *Handler) RecentReminders(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "store_unavailable", "MongoDB is not configured")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	entries, err := h.store.RecentReminders(r.Context(), limit)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if entries == nil {
		entries = []store.LedgerEntry{}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(entries),
		"reminders": entries,
	})
}

// ScriptJS serves the display artifact to the dashboard.
func (h *Handler) ScriptJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	http.ServeFile(w, r, h.cfg.ScriptJSPath)
}

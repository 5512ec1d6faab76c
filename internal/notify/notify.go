// Package notify sends event reminders to a Home Assistant instance via
// its notification service API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/svedberg/vintersport-tv/internal/config"
	"github.com/svedberg/vintersport-tv/internal/event"
)

const (
	connectionTimeout = 10 * time.Second
	sendTimeout       = 30 * time.Second

	descriptionLimit = 150
)

// Notifier performs the outbound service calls to Home Assistant.
type Notifier struct {
	httpClient *http.Client
	baseURL    string
	token      string
	service    string // "domain.service"
	logger     *slog.Logger
}

// New creates a notifier from configuration. Returns an error when the URL
// or token is missing, since nothing can be delivered without them.
func New(cfg *config.Config, logger *slog.Logger) (*Notifier, error) {
	if cfg.HomeAssistantURL == "" {
		return nil, fmt.Errorf("HOME_ASSISTANT_URL is not configured")
	}
	if cfg.HomeAssistantToken == "" {
		return nil, fmt.Errorf("HOME_ASSISTANT_TOKEN is not configured")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		httpClient: &http.Client{Timeout: sendTimeout},
		baseURL:    strings.TrimSuffix(cfg.HomeAssistantURL, "/"),
		token:      cfg.HomeAssistantToken,
		service:    cfg.HomeAssistantService,
		logger:     logger,
	}, nil
}

// TestConnection verifies the Home Assistant API is reachable and the
// token is accepted.
func (n *Notifier) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/api/", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.token)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect to Home Assistant: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("Home Assistant returned %d", resp.StatusCode)
	}
	return nil
}

// SendReminder delivers one reminder notification for an event at the
// given offset.
func (n *Notifier) SendReminder(ctx context.Context, e event.Event, minutesBefore int) error {
	title := reminderTitle(e, minutesBefore)
	message := FormatMessage(e)

	payload := map[string]interface{}{
		"title":   title,
		"message": message,
	}

	// Mobile app notifications get grouping and deep-link metadata.
	if strings.Contains(n.service, "mobile_app") {
		payload["data"] = map[string]string{
			"url":         "homeassistant://navigate/dashboard-vintersport/0",
			"group":       "winter_sports_reminders",
			"tag":         fmt.Sprintf("event_%d", e.ID),
			"priority":    "high",
			"clickAction": "homeassistant://navigate/dashboard-vintersport/0",
		}
	}

	if err := n.callService(ctx, payload); err != nil {
		return err
	}
	n.logger.Info("Reminder sent", "event_id", e.ID, "title", e.Title, "minutes_before", minutesBefore)
	return nil
}

// SendTest delivers a fixed test notification so the service wiring can
// be verified end to end.
func (n *Notifier) SendTest(ctx context.Context) error {
	payload := map[string]interface{}{
		"title":   "🎿 Vintersport-TV",
		"message": "Testnotis: anslutningen till Home Assistant fungerar.",
	}
	if err := n.callService(ctx, payload); err != nil {
		return err
	}
	n.logger.Info("Test notification sent", "service", n.service)
	return nil
}

// callService POSTs to /api/services/<domain>/<service>.
func (n *Notifier) callService(ctx context.Context, payload map[string]interface{}) error {
	domain, service, ok := strings.Cut(n.service, ".")
	if !ok || domain == "" || service == "" {
		return fmt.Errorf("invalid service %q, expected \"domain.service\"", n.service)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	url := fmt.Sprintf("%s/api/services/%s/%s", n.baseURL, domain, service)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call service %s: %w", n.service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("service %s returned %d: %s", n.service, resp.StatusCode, raw)
	}
	return nil
}

// reminderTitle builds the Swedish notification title. Short offsets get
// the alarm-clock form; longer ones are expressed in whole hours.
func reminderTitle(e event.Event, minutesBefore int) string {
	if minutesBefore <= 15 {
		return fmt.Sprintf("⏰ %s börjar om %d min!", e.Title, minutesBefore)
	}
	hours := minutesBefore / 60
	if hours == 1 {
		return fmt.Sprintf("🏔️ %s börjar om 1 timme", e.Title)
	}
	return fmt.Sprintf("🏔️ %s börjar om %d timmar", e.Title, hours)
}

// FormatMessage renders the notification body: one emoji-prefixed line per
// populated event field, with the description truncated.
func FormatMessage(e event.Event) string {
	var lines []string

	if e.Title != "" {
		lines = append(lines, fmt.Sprintf("%s %s", config.SportEmoji(e.Sport), e.Title))
	}
	if e.Competition != "" {
		lines = append(lines, fmt.Sprintf("🏆 %s", e.Competition))
	}
	if e.Channel != "" {
		lines = append(lines, fmt.Sprintf("📺 %s", e.Channel))
	}
	if e.Date != "" && e.Time != "" {
		lines = append(lines, fmt.Sprintf("🕐 %s kl. %s", e.Date, e.Time))
	}
	if e.Description != "" {
		desc := e.Description
		if len([]rune(desc)) > descriptionLimit {
			desc = string([]rune(desc)[:descriptionLimit]) + "..."
		}
		lines = append(lines, fmt.Sprintf("ℹ️ %s", desc))
	}

	if len(lines) == 0 {
		return "Kommande tävling"
	}
	return strings.Join(lines, "\n")
}

// AllowedNow reports whether now falls inside the configured notification
// hours for its day type. Weekends use the weekend range; the end hour is
// inclusive through HH:59.
func AllowedNow(cfg *config.Config, now time.Time) bool {
	start, end := cfg.WeekdayStartHour, cfg.WeekdayEndHour
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		start, end = cfg.WeekendStartHour, cfg.WeekendEndHour
	}
	h := now.Hour()
	return h >= start && h <= end
}

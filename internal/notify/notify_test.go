package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/svedberg/vintersport-tv/internal/config"
	"github.com/svedberg/vintersport-tv/internal/event"
)

func testConfig(url string) *config.Config {
	return &config.Config{
		HomeAssistantURL:     url,
		HomeAssistantToken:   "secret-token",
		HomeAssistantService: "notify.persistent_notification",
		WeekdayStartHour:     8,
		WeekdayEndHour:       23,
		WeekendStartHour:     9,
		WeekendEndHour:       23,
	}
}

func testEvent() event.Event {
	return event.Event{
		ID:          3,
		Sport:       "cross-country",
		Title:       "Världscupen i Davos",
		Competition: "Sprint - Damer",
		Channel:     "SVT2",
		Date:        "2025-12-14",
		Time:        "14:00",
		Description: "Sprint i Schweiz",
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRequiresURLAndToken(t *testing.T) {
	cfg := testConfig("")
	if _, err := New(cfg, nil); err == nil {
		t.Error("expected error without HOME_ASSISTANT_URL")
	}

	cfg = testConfig("http://ha.local:8123")
	cfg.HomeAssistantToken = ""
	if _, err := New(cfg, nil); err == nil {
		t.Error("expected error without HOME_ASSISTANT_TOKEN")
	}
}

func TestSendReminder(t *testing.T) {
	var gotPath, gotAuth string
	var gotPayload map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n, err := New(testConfig(srv.URL), discard())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if err := n.SendReminder(context.Background(), testEvent(), 15); err != nil {
		t.Fatalf("SendReminder error: %v", err)
	}

	if gotPath != "/api/services/notify/persistent_notification" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("auth = %q", gotAuth)
	}
	title, _ := gotPayload["title"].(string)
	if !strings.Contains(title, "börjar om 15 min") {
		t.Errorf("title = %q, want the 15-minute form", title)
	}
	if _, hasData := gotPayload["data"]; hasData {
		t.Error("non-mobile service should not carry a data block")
	}
}

func TestSendReminderMobileData(t *testing.T) {
	var gotPayload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.HomeAssistantService = "notify.mobile_app_phone"
	n, err := New(cfg, discard())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if err := n.SendReminder(context.Background(), testEvent(), 60); err != nil {
		t.Fatalf("SendReminder error: %v", err)
	}

	data, ok := gotPayload["data"].(map[string]interface{})
	if !ok {
		t.Fatal("mobile service should carry a data block")
	}
	if data["tag"] != "event_3" {
		t.Errorf("tag = %v, want event_3", data["tag"])
	}
}

func TestSendReminderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	n, err := New(testConfig(srv.URL), discard())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if err := n.SendReminder(context.Background(), testEvent(), 15); err == nil {
		t.Error("expected error on 500 response")
	}
}

func TestReminderTitleHours(t *testing.T) {
	e := testEvent()
	if got := reminderTitle(e, 60); !strings.Contains(got, "1 timme") {
		t.Errorf("title = %q, want the one-hour form", got)
	}
	if got := reminderTitle(e, 120); !strings.Contains(got, "2 timmar") {
		t.Errorf("title = %q, want the two-hour form", got)
	}
}

func TestFormatMessage(t *testing.T) {
	msg := FormatMessage(testEvent())
	for _, want := range []string{"⛷️", "🏆 Sprint - Damer", "📺 SVT2", "🕐 2025-12-14 kl. 14:00"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatMessageTruncatesDescription(t *testing.T) {
	e := testEvent()
	e.Description = strings.Repeat("å", 200)
	msg := FormatMessage(e)
	if !strings.Contains(msg, "...") {
		t.Error("long description should be truncated with an ellipsis")
	}
}

func TestAllowedNow(t *testing.T) {
	cfg := testConfig("http://ha.local")
	cfg.WeekdayStartHour = 8
	cfg.WeekdayEndHour = 22
	cfg.WeekendStartHour = 10
	cfg.WeekendEndHour = 21

	// Monday 2025-12-15.
	monday := func(h int) time.Time { return time.Date(2025, 12, 15, h, 30, 0, 0, time.UTC) }
	// Saturday 2025-12-13.
	saturday := func(h int) time.Time { return time.Date(2025, 12, 13, h, 30, 0, 0, time.UTC) }

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"weekday before start", monday(7), false},
		{"weekday at start", monday(8), true},
		{"weekday at end hour", monday(22), true},
		{"weekday after end", monday(23), false},
		{"weekend before start", saturday(9), false},
		{"weekend inside range", saturday(12), true},
		{"weekend after end", saturday(22), false},
	}
	for _, tc := range cases {
		if got := AllowedNow(cfg, tc.now); got != tc.want {
			t.Errorf("%s: AllowedNow = %v, want %v", tc.name, got, tc.want)
		}
	}
}

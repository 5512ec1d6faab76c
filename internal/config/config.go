// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/ingest. A .env file (key=value)
// is merged in by main via godotenv before Load runs; real environment
// variables take precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Sport registry
// --------------------------------------------------------------------------

type SportConfig struct {
	ID    string
	Name  string // Swedish display name used in notifications and the dashboard
	Emoji string
}

var SportRegistry = map[string]SportConfig{
	"cross-country":  {ID: "cross-country", Name: "Längdskidor", Emoji: "⛷️"},
	"biathlon":       {ID: "biathlon", Name: "Skidskytte", Emoji: "🎯"},
	"alpine":         {ID: "alpine", Name: "Alpint", Emoji: "🎿"},
	"ski-jumping":    {ID: "ski-jumping", Name: "Backhoppning", Emoji: "🪂"},
	"ice-hockey":     {ID: "ice-hockey", Name: "Ishockey", Emoji: "🏒"},
	"figure-skating": {ID: "figure-skating", Name: "Konståkning", Emoji: "⛸️"},
	"speed-skating":  {ID: "speed-skating", Name: "Skridsko", Emoji: "⏱️"},
	"curling":        {ID: "curling", Name: "Curling", Emoji: "🥌"},
	"other":          {ID: "other", Name: "Övrigt", Emoji: "🏆"},
}

// SportEmoji returns the emoji for a sport tag, with a mountain fallback
// for unknown tags.
func SportEmoji(sport string) string {
	if s, ok := SportRegistry[sport]; ok {
		return s.Emoji
	}
	return "🏔️"
}

// --------------------------------------------------------------------------
// Collection names — single source of truth for the store adapter
// --------------------------------------------------------------------------

const (
	EventsCollection    = "events"
	RemindersCollection = "sent_reminders"
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Home Assistant
	HomeAssistantURL     string
	HomeAssistantToken   string
	HomeAssistantService string // "domain.service", e.g. notify.persistent_notification

	// MongoDB
	MongoDBURI      string
	MongoDBDatabase string

	// Reminders
	ReminderIntervals []int // minutes before event start
	RemindersEnabled  bool
	ReminderRetention int // days; ledger rows older than this (by event instant) are purged

	// Default sport filters for the dashboard
	DefaultSports []string

	// Allowed notification hours
	WeekdayStartHour int
	WeekdayEndHour   int
	WeekendStartHour int
	WeekendEndHour   int

	// API server
	APIHost string
	APIPort int

	// CORS
	CORSAllowOrigins []string

	// Serve-mode scheduler (cmd/api only)
	SchedulerEnabled bool
	UpdateSchedule   string // cron expression
	ReminderSchedule string
	CleanupSchedule  string

	// Upstream sources
	FISCalendarURL    string
	IBUAPIURL         string
	TVNuSearchURL     string
	SourceRequestsPer int // requests per minute against upstream hosts

	// Display artifact
	ScriptJSPath string
}

// Load reads configuration from environment variables with sensible defaults.
// Values required only by specific operations (HA token, MongoDB URI) are
// validated by those operations, not here.
func Load() (*Config, error) {
	intervals, err := parseIntervals(envOr("REMINDER_INTERVALS", "60,15"))
	if err != nil {
		return nil, fmt.Errorf("REMINDER_INTERVALS: %w", err)
	}

	cfg := &Config{
		HomeAssistantURL:     strings.TrimSuffix(envOr("HOME_ASSISTANT_URL", ""), "/"),
		HomeAssistantToken:   envOr("HOME_ASSISTANT_TOKEN", ""),
		HomeAssistantService: envOr("HOME_ASSISTANT_SERVICE", "notify.persistent_notification"),

		MongoDBURI:      envOr("MONGODB_URI", ""),
		MongoDBDatabase: envOr("MONGODB_DATABASE", "winter_sports"),

		ReminderIntervals: intervals,
		RemindersEnabled:  envBool("REMINDERS_ENABLED", true),
		ReminderRetention: envInt("REMINDER_RETENTION_DAYS", 7),

		DefaultSports: envList("DEFAULT_SPORTS", []string{"cross-country", "biathlon"}),

		WeekdayStartHour: envInt("WEEKDAY_START_HOUR", 8),
		WeekdayEndHour:   envInt("WEEKDAY_END_HOUR", 23),
		WeekendStartHour: envInt("WEEKEND_START_HOUR", 9),
		WeekendEndHour:   envInt("WEEKEND_END_HOUR", 23),

		APIHost: envOr("API_HOST", "0.0.0.0"),
		APIPort: envInt("API_PORT", envInt("PORT", 8000)),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{"*"}),

		SchedulerEnabled: envBool("SCHEDULER_ENABLED", true),
		UpdateSchedule:   envOr("UPDATE_SCHEDULE", "0 6 * * *"),
		ReminderSchedule: envOr("REMINDER_SCHEDULE", "*/10 * * * *"),
		CleanupSchedule:  envOr("CLEANUP_SCHEDULE", "30 3 * * *"),

		FISCalendarURL: envOr("FIS_CALENDAR_URL",
			"https://data.fis-ski.com/services/public/icalendar-feed-fis-events.html?seasoncode=2026&sectorcode=CC&categorycode=WC"),
		IBUAPIURL: envOr("IBU_API_URL",
			"https://biathlonresults.com/modules/sportapi/api/Events?SeasonId=2526&Level=1"),
		TVNuSearchURL:     envOr("TVNU_SEARCH_URL", "https://web-api.tv.nu/search"),
		SourceRequestsPer: envInt("SOURCE_REQUESTS_PER_MINUTE", 30),

		ScriptJSPath: envOr("SCRIPT_JS_PATH", "script.js"),
	}

	for _, h := range []struct {
		name  string
		value int
	}{
		{"WEEKDAY_START_HOUR", cfg.WeekdayStartHour},
		{"WEEKDAY_END_HOUR", cfg.WeekdayEndHour},
		{"WEEKEND_START_HOUR", cfg.WeekendStartHour},
		{"WEEKEND_END_HOUR", cfg.WeekendEndHour},
	} {
		if h.value < 0 || h.value > 23 {
			return nil, fmt.Errorf("%s: %d is not a valid hour (0-23)", h.name, h.value)
		}
	}

	return cfg, nil
}

func parseIntervals(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	intervals := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid interval %q", p)
		}
		if n <= 0 {
			return nil, fmt.Errorf("interval %d must be positive", n)
		}
		intervals = append(intervals, n)
	}
	if len(intervals) == 0 {
		return nil, fmt.Errorf("no intervals configured")
	}
	return intervals, nil
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

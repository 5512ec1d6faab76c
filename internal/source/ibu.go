package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/svedberg/vintersport-tv/internal/event"
)

// worldCupLevel is the IBU API level code for World Cup events.
const worldCupLevel = 1

// ibuEvent is one entry from the IBU results API.
type ibuEvent struct {
	EventID          string `json:"EventId"`
	ShortDescription string `json:"ShortDescription"`
	StartDate        string `json:"StartDate"`
	Nat              string `json:"Nat"`
	Level            int    `json:"Level"`
}

// IBUCalendar fetches the biathlon World Cup schedule from the IBU results
// API. Like the FIS feed it yields calendar observations with TBA
// channel/time.
type IBUCalendar struct {
	client *Client
	url    string
	logger *slog.Logger
}

// NewIBUCalendar creates the IBU API source.
func NewIBUCalendar(client *Client, url string, logger *slog.Logger) *IBUCalendar {
	return &IBUCalendar{client: client, url: url, logger: logger}
}

// Fetch downloads and parses the event list.
func (i *IBUCalendar) Fetch(ctx context.Context) ([]event.Observation, error) {
	body, err := i.client.getBody(ctx, i.url)
	if err != nil {
		return nil, fmt.Errorf("fetch IBU events: %w", err)
	}
	obs, err := ParseIBUEvents(body)
	if err != nil {
		return nil, err
	}
	if i.logger != nil {
		i.logger.Info("IBU events parsed", "events", len(obs))
	}
	return obs, nil
}

// ParseIBUEvents decodes the IBU payload. The API has been seen returning
// both a bare array and an OData-style {"value": [...]} wrapper; both are
// accepted. Entries that are not World Cup level or carry an unparsable
// start date are skipped.
func ParseIBUEvents(body []byte) ([]event.Observation, error) {
	var items []ibuEvent
	if err := json.Unmarshal(body, &items); err != nil {
		var wrapper struct {
			Value []ibuEvent `json:"value"`
		}
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil, fmt.Errorf("decode IBU events: %w", err)
		}
		items = wrapper.Value
	}

	var obs []event.Observation
	for _, item := range items {
		if item.Level != worldCupLevel {
			continue
		}
		start, err := time.Parse(time.RFC3339, normalizeISO(item.StartDate))
		if err != nil {
			continue
		}
		obs = append(obs, event.Observation{
			Event: event.Event{
				Sport:       "biathlon",
				Title:       fmt.Sprintf("Världscupen i %s", item.ShortDescription),
				Competition: "Världscup",
				Channel:     event.TBA,
				Date:        start.Format(event.DateLayout),
				Time:        event.TBA,
				Description: fmt.Sprintf("Skidskytte-världscup i %s", item.ShortDescription),
			},
			Verified: false,
			Source:   "ibu",
		})
	}
	return obs, nil
}

// normalizeISO makes bare "2006-01-02T15:04:05" timestamps RFC 3339 by
// assuming UTC when no offset is present.
func normalizeISO(s string) string {
	if s == "" {
		return s
	}
	if _, err := time.Parse(time.RFC3339, s); err == nil {
		return s
	}
	return s + "Z"
}

package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/svedberg/vintersport-tv/internal/event"
)

// disciplineNames maps FIS discipline codes to the Swedish display names
// used in competition labels.
var disciplineNames = map[string]string{
	"SP":  "Sprint",
	"10k": "10 km",
	"15k": "15 km",
	"30k": "30 km",
	"50k": "50 km",
	"Skt": "Skiatlon",
	"Tsp": "Teamsprint",
	"HMS": "Mass Start",
	"Pur": "Pursuit",
}

var (
	genderRe     = regexp.MustCompile(`Gender: ([WM])`)
	disciplineRe = regexp.MustCompile(`Discipline: (.+)`)
	categoryRe   = regexp.MustCompile(`Category: (.+)`)
)

// FISCalendar fetches the FIS cross-country World Cup iCalendar feed and
// yields calendar observations: dated competitions without broadcast
// confirmation, so channel and time are TBA.
type FISCalendar struct {
	client *Client
	url    string
	logger *slog.Logger
}

// NewFISCalendar creates the FIS ICS source.
func NewFISCalendar(client *Client, url string, logger *slog.Logger) *FISCalendar {
	return &FISCalendar{client: client, url: url, logger: logger}
}

// Fetch downloads and parses the feed. Individual unparsable VEVENTs are
// skipped; only transport or whole-feed failures return an error.
func (f *FISCalendar) Fetch(ctx context.Context) ([]event.Observation, error) {
	body, err := f.client.getBody(ctx, f.url)
	if err != nil {
		return nil, fmt.Errorf("fetch FIS calendar: %w", err)
	}
	return ParseFISCalendar(body, f.logger)
}

// ParseFISCalendar extracts World Cup competitions from an ICS payload.
func ParseFISCalendar(body []byte, logger *slog.Logger) ([]event.Observation, error) {
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse FIS calendar: %w", err)
	}

	var obs []event.Observation
	for _, ve := range cal.Events() {
		o, ok := parseFISEvent(ve)
		if !ok {
			continue
		}
		obs = append(obs, o)
	}

	if logger != nil {
		logger.Info("FIS calendar parsed", "events", len(obs))
	}
	return obs, nil
}

// parseFISEvent converts one VEVENT into a calendar observation. Events
// missing required fields, outside the World Cup category, or with
// unparsable dates report ok=false.
func parseFISEvent(ve *ical.VEvent) (event.Observation, bool) {
	location := propValue(ve, ical.ComponentPropertyLocation)
	if propValue(ve, ical.ComponentPropertySummary) == "" || location == "" {
		return event.Observation{}, false
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || len(dtStart.Value) < 8 {
		return event.Observation{}, false
	}
	date, err := time.Parse("20060102", dtStart.Value[:8])
	if err != nil {
		return event.Observation{}, false
	}

	desc := propValue(ve, ical.ComponentPropertyDescription)
	// The feed escapes newlines; normalize before matching line-oriented fields.
	desc = strings.ReplaceAll(desc, `\n`, "\n")

	if m := categoryRe.FindStringSubmatch(desc); m == nil || strings.TrimSpace(m[1]) != "WC" {
		return event.Observation{}, false
	}

	discipline := ""
	if m := disciplineRe.FindStringSubmatch(desc); m != nil {
		discipline = strings.TrimSpace(m[1])
	}
	if name, ok := disciplineNames[discipline]; ok {
		discipline = name
	}

	genderText := "Herrar"
	if m := genderRe.FindStringSubmatch(desc); m != nil && m[1] == "W" {
		genderText = "Damer"
	}

	competition := "Världscup"
	if discipline != "" {
		competition = fmt.Sprintf("%s - %s", discipline, genderText)
	}

	return event.Observation{
		Event: event.Event{
			Sport:       "cross-country",
			Title:       fmt.Sprintf("Världscupen i %s", location),
			Competition: competition,
			Channel:     event.TBA,
			Date:        date.Format(event.DateLayout),
			Time:        event.TBA,
			Description: fmt.Sprintf("Världscuptävling i %s", location),
		},
		Verified: false,
		Source:   "fis",
	}, true
}

func propValue(ve *ical.VEvent, prop ical.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return strings.TrimSpace(p.Value)
	}
	return ""
}

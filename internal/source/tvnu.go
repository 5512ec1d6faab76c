package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/svedberg/vintersport-tv/internal/event"
)

// Channels and search terms the tv.nu source scans. The search terms are
// the Swedish names of the sports; they double as the sport classifier.
var (
	tvnuChannels    = []string{"svt1", "svt2", "tv4"}
	tvnuSearchTerms = []string{"längdskidor", "skidskytte"}
)

var locationRe = regexp.MustCompile(`(?:i|från)\s+([A-ZÅÄÖ][a-zåäö]+)`)

// tvnuResponse is the shape of the tv.nu web API search result. Broadcasts
// reference programs and channels by id; the maps are joined locally.
type tvnuResponse struct {
	Programs []struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Title string `json:"title"`
	} `json:"programs"`
	Channels []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Slug string `json:"slug"`
	} `json:"channels"`
	Broadcasts []struct {
		Program struct {
			ID string `json:"id"`
		} `json:"program"`
		Channel struct {
			ID string `json:"id"`
		} `json:"channel"`
		Start string `json:"start"`
	} `json:"broadcasts"`
}

// TVNuListings queries the tv.nu search API for winter-sports broadcasts on
// the Swedish channels and yields verified observations carrying the real
// channel and start time.
type TVNuListings struct {
	client  *Client
	baseURL string
	logger  *slog.Logger
}

// NewTVNuListings creates the tv.nu source.
func NewTVNuListings(client *Client, baseURL string, logger *slog.Logger) *TVNuListings {
	return &TVNuListings{client: client, baseURL: baseURL, logger: logger}
}

// Fetch runs every (channel, search term) query. A failed query is logged
// and skipped; the source only fails as a whole when the base URL is
// unusable.
func (t *TVNuListings) Fetch(ctx context.Context) ([]event.Observation, error) {
	if t.baseURL == "" {
		return nil, fmt.Errorf("tv.nu base URL is empty")
	}

	var obs []event.Observation
	for _, channel := range tvnuChannels {
		for _, term := range tvnuSearchTerms {
			u := fmt.Sprintf("%s?q=%s&channelIds=%s", t.baseURL, url.QueryEscape(term), channel)

			var resp tvnuResponse
			if err := t.client.getJSON(ctx, u, &resp); err != nil {
				if t.logger != nil {
					t.logger.Warn("tv.nu query failed", "channel", channel, "term", term, "error", err)
				}
				continue
			}

			found := ParseTVNuBroadcasts(&resp, channel, sportForTerm(term))
			obs = append(obs, found...)
			if t.logger != nil {
				t.logger.Info("tv.nu query done", "channel", channel, "term", term, "broadcasts", len(found))
			}
		}
	}
	return obs, nil
}

// sportForTerm classifies a search term into a sport tag.
func sportForTerm(term string) string {
	if strings.Contains(term, "skytte") {
		return "biathlon"
	}
	return "cross-country"
}

// ParseTVNuBroadcasts joins a search response's broadcasts against its
// program and channel maps and converts matches on the wanted channel into
// verified observations. Broadcasts without a title or parsable start time
// are skipped.
func ParseTVNuBroadcasts(resp *tvnuResponse, wantChannel, sport string) []event.Observation {
	programs := make(map[string]string, len(resp.Programs))
	for _, p := range resp.Programs {
		name := p.Name
		if name == "" {
			name = p.Title
		}
		programs[p.ID] = name
	}
	channels := make(map[string]struct{ name, slug string }, len(resp.Channels))
	for _, c := range resp.Channels {
		channels[c.ID] = struct{ name, slug string }{c.Name, strings.ToLower(c.Slug)}
	}

	var obs []event.Observation
	for _, b := range resp.Broadcasts {
		ch, ok := channels[b.Channel.ID]
		if !ok || !strings.Contains(ch.slug, strings.ToLower(wantChannel)) {
			continue
		}
		title := programs[b.Program.ID]
		if title == "" || b.Start == "" {
			continue
		}
		start, err := time.Parse(time.RFC3339, normalizeISO(b.Start))
		if err != nil {
			continue
		}

		channelName := ch.name
		if channelName == "" {
			channelName = strings.ToUpper(wantChannel)
		}

		obs = append(obs, broadcastObservation(title, channelName, sport, start))
	}
	return obs
}

// broadcastObservation builds a verified observation from one broadcast,
// extracting location and competition type from the Swedish program title.
func broadcastObservation(title, channel, sport string, start time.Time) event.Observation {
	displayTitle := title
	if m := locationRe.FindStringSubmatch(title); m != nil {
		displayTitle = fmt.Sprintf("Världscupen i %s", m[1])
	}

	lower := strings.ToLower(title)
	competition := "Världscup"
	switch {
	case strings.Contains(lower, "sprint"):
		competition = "Sprint"
	case strings.Contains(lower, "stafett"):
		competition = "Stafett"
	case strings.Contains(lower, "jakt"):
		competition = "Jaktstart"
	case strings.Contains(lower, "mass"):
		competition = "Masstart"
	}
	if strings.Contains(lower, "dam") {
		competition += " - Damer"
	} else if strings.Contains(lower, "herr") {
		competition += " - Herrar"
	}

	return event.Observation{
		Event: event.Event{
			Sport:       sport,
			Title:       displayTitle,
			Competition: competition,
			Channel:     strings.ToUpper(channel),
			Date:        start.Format(event.DateLayout),
			Time:        start.Format(event.TimeLayout),
			Description: title,
		},
		Verified: true,
		Source:   "tv.nu",
	}
}

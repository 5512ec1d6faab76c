// Package artifact maintains the script.js display artifact: a
// `const events = [...]` data block followed by the dashboard rendering
// code. Updates rewrite only the data block so manual changes to the
// renderer survive every ingestion run.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/svedberg/vintersport-tv/internal/event"
)

const (
	marker     = "const events = "
	terminator = "];"
)

// WriteSchedule replaces the events array in the script.js at path with
// the given schedule. A missing file is created from the default
// renderer template; a file without an events block is an error rather
// than something to guess at.
func WriteSchedule(path string, events []event.Event) error {
	if events == nil {
		events = []event.Event{}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}

	existing, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		content := defaultHeader + marker + string(data) + ";\n" + defaultRenderer
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	text := string(existing)
	start := strings.Index(text, marker)
	if start < 0 {
		return fmt.Errorf("%s has no %q block", path, strings.TrimSpace(marker))
	}
	end := strings.Index(text[start:], terminator)
	if end < 0 {
		return fmt.Errorf("%s events block is not terminated", path)
	}

	updated := text[:start] + marker + string(data) + ";" + text[start+end+len(terminator):]
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadSchedule extracts the events array from the script.js at path.
func ReadSchedule(path string) ([]event.Event, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	text := string(raw)
	start := strings.Index(text, marker)
	if start < 0 {
		return nil, fmt.Errorf("%s has no %q block", path, strings.TrimSpace(marker))
	}
	end := strings.Index(text[start:], terminator)
	if end < 0 {
		return nil, fmt.Errorf("%s events block is not terminated", path)
	}

	arrayText := text[start+len(marker) : start+end+1]
	var events []event.Event
	if err := json.Unmarshal([]byte(arrayText), &events); err != nil {
		return nil, fmt.Errorf("decode events from %s: %w", path, err)
	}
	return events, nil
}

const defaultHeader = "// Vintersport-TV schema. Datablocket skrivs om av varje uppdatering;\n// renderingskoden nedanför lämnas orörd.\n"

const defaultRenderer = `
const sportEmojis = {
  "cross-country": "⛷️",
  "biathlon": "🎯",
  "alpine": "🎿",
  "ski-jumping": "🪂",
  "ice-hockey": "🏒",
  "figure-skating": "⛸️",
  "speed-skating": "⏱️",
  "curling": "🥌",
  "other": "🏆"
};

function renderEvents(filterSports) {
  const container = document.getElementById("events");
  if (!container) return;
  container.innerHTML = "";

  const visible = events.filter(function (e) {
    return !filterSports || filterSports.length === 0 || filterSports.includes(e.sport);
  });

  if (visible.length === 0) {
    container.innerHTML = '<p class="empty">Inga kommande sändningar</p>';
    return;
  }

  visible.forEach(function (e) {
    const card = document.createElement("div");
    card.className = "event-card" + (e.time === "TBA" ? " tba" : "");
    card.innerHTML =
      '<span class="emoji">' + (sportEmojis[e.sport] || "🏔️") + "</span>" +
      '<div class="details">' +
      "<h3>" + e.title + "</h3>" +
      "<p>" + e.competition + "</p>" +
      '<p class="when">' + e.date + " kl. " + e.time + " · " + e.channel + "</p>" +
      "</div>";
    container.appendChild(card);
  });
}

document.addEventListener("DOMContentLoaded", function () {
  renderEvents([]);
});
`

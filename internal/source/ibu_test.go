package source

import (
	"testing"

	"github.com/svedberg/vintersport-tv/internal/event"
)

const ibuFixture = `[
  {"EventId": "BT2526SWRLCP01", "ShortDescription": "Oestersund", "StartDate": "2025-11-29T00:00:00", "Nat": "SWE", "Level": 1},
  {"EventId": "BT2526SWRLIC01", "ShortDescription": "Obertilliach", "StartDate": "2025-12-11T00:00:00", "Nat": "AUT", "Level": 3},
  {"EventId": "BT2526SWRLCP02", "ShortDescription": "Hochfilzen", "StartDate": "2025-12-12T00:00:00Z", "Nat": "AUT", "Level": 1}
]`

func TestParseIBUEvents(t *testing.T) {
	obs, err := ParseIBUEvents([]byte(ibuFixture))
	if err != nil {
		t.Fatalf("ParseIBUEvents error: %v", err)
	}

	// The IBU Cup (level 3) entry is filtered out.
	if len(obs) != 2 {
		t.Fatalf("len(obs) = %d, want 2", len(obs))
	}

	first := obs[0]
	if first.Sport != "biathlon" {
		t.Errorf("sport = %q, want biathlon", first.Sport)
	}
	if first.Title != "Världscupen i Oestersund" {
		t.Errorf("title = %q", first.Title)
	}
	if first.Date != "2025-11-29" {
		t.Errorf("date = %q, want 2025-11-29", first.Date)
	}
	if first.Channel != event.TBA || first.Time != event.TBA {
		t.Errorf("calendar observation should carry TBA channel/time, got %q/%q", first.Channel, first.Time)
	}
}

func TestParseIBUEventsWrapped(t *testing.T) {
	wrapped := `{"value": ` + ibuFixture + `}`
	obs, err := ParseIBUEvents([]byte(wrapped))
	if err != nil {
		t.Fatalf("ParseIBUEvents error: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("len(obs) = %d, want 2", len(obs))
	}
}

func TestParseIBUEventsBadPayload(t *testing.T) {
	if _, err := ParseIBUEvents([]byte(`{"oops": true`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestParseIBUEventsSkipsBadDates(t *testing.T) {
	obs, err := ParseIBUEvents([]byte(`[
	  {"EventId": "x", "ShortDescription": "Nowhere", "StartDate": "yesterday", "Level": 1}
	]`))
	if err != nil {
		t.Fatalf("ParseIBUEvents error: %v", err)
	}
	if len(obs) != 0 {
		t.Fatalf("len(obs) = %d, want 0", len(obs))
	}
}

package source

import (
	"encoding/json"
	"testing"
)

const tvnuFixture = `{
  "programs": [
    {"id": "p1", "name": "Längdskidor: Världscupen i Davos"},
    {"id": "p2", "name": "Skidskytte: sprint damer från Hochfilzen"},
    {"id": "p3", "name": ""}
  ],
  "channels": [
    {"id": "c1", "name": "SVT2", "slug": "svt2"},
    {"id": "c2", "name": "TV4", "slug": "tv4"}
  ],
  "broadcasts": [
    {"program": {"id": "p1"}, "channel": {"id": "c1"}, "start": "2025-12-14T14:00:00+01:00"},
    {"program": {"id": "p2"}, "channel": {"id": "c2"}, "start": "2025-12-12T11:30:00+01:00"},
    {"program": {"id": "p3"}, "channel": {"id": "c1"}, "start": "2025-12-15T09:00:00+01:00"},
    {"program": {"id": "p1"}, "channel": {"id": "c1"}, "start": "not-a-time"}
  ]
}`

func decodeFixture(t *testing.T) *tvnuResponse {
	t.Helper()
	var resp tvnuResponse
	if err := json.Unmarshal([]byte(tvnuFixture), &resp); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return &resp
}

func TestParseTVNuBroadcasts(t *testing.T) {
	obs := ParseTVNuBroadcasts(decodeFixture(t), "svt2", "cross-country")

	// Only the Davos broadcast is on svt2 with a title and parsable start.
	if len(obs) != 1 {
		t.Fatalf("len(obs) = %d, want 1", len(obs))
	}

	davos := obs[0]
	if !davos.Verified {
		t.Error("broadcast observation must be verified")
	}
	if davos.Title != "Världscupen i Davos" {
		t.Errorf("title = %q", davos.Title)
	}
	if davos.Channel != "SVT2" {
		t.Errorf("channel = %q, want SVT2", davos.Channel)
	}
	if davos.Date != "2025-12-14" || davos.Time != "14:00" {
		t.Errorf("date/time = %q/%q, want 2025-12-14/14:00", davos.Date, davos.Time)
	}
}

func TestParseTVNuBroadcastsChannelFilter(t *testing.T) {
	obs := ParseTVNuBroadcasts(decodeFixture(t), "tv4", "biathlon")
	if len(obs) != 1 {
		t.Fatalf("len(obs) = %d, want 1", len(obs))
	}
	if obs[0].Sport != "biathlon" {
		t.Errorf("sport = %q, want biathlon", obs[0].Sport)
	}
	if obs[0].Competition != "Sprint - Damer" {
		t.Errorf("competition = %q, want Sprint - Damer", obs[0].Competition)
	}
	if obs[0].Title != "Världscupen i Hochfilzen" {
		t.Errorf("title = %q", obs[0].Title)
	}
}

func TestSportForTerm(t *testing.T) {
	if got := sportForTerm("skidskytte"); got != "biathlon" {
		t.Errorf("sportForTerm(skidskytte) = %q", got)
	}
	if got := sportForTerm("längdskidor"); got != "cross-country" {
		t.Errorf("sportForTerm(längdskidor) = %q", got)
	}
}

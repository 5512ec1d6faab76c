// Package event defines the televised-event model and the merge logic that
// reconciles verified broadcast observations with bare calendar placeholders.
package event

import (
	"fmt"
	"time"
)

// TBA is the placeholder for a channel or start time that has not been
// confirmed by a broadcast listing yet.
const TBA = "TBA"

// Layouts for the date and time strings carried on events. All instants are
// interpreted in local time, matching the household the notifications target.
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04"
	DateTimeLayout = "2006-01-02 15:04"
)

// Event is one televised competition as shown on the dashboard and stored in
// the events collection. ID is positional: it is reassigned 1..N on every
// ingestion run (see AssignIDs).
type Event struct {
	ID          int    `json:"id" bson:"id"`
	Sport       string `json:"sport" bson:"sport"`
	Title       string `json:"title" bson:"title"`
	Competition string `json:"competition" bson:"competition"`
	Channel     string `json:"channel" bson:"channel"`
	Date        string `json:"date" bson:"date"` // YYYY-MM-DD
	Time        string `json:"time" bson:"time"` // HH:MM or TBA
	Description string `json:"description" bson:"description"`
}

// Observation is an event as reported by one upstream source, before merging.
// Verified observations carry a real channel and time from a broadcast
// listing; calendar observations carry TBA placeholders. The Verified flag
// only exists during the merge and never reaches the store or the artifact.
type Observation struct {
	Event
	Verified bool
	Source   string
}

// Key is the merge identity of an observation: a verified observation
// shadows every calendar observation for the same date and sport.
type Key struct {
	Date  string
	Sport string
}

// MergeKey returns the (date, sport) identity of an observation.
func (o Observation) MergeKey() Key {
	return Key{Date: o.Date, Sport: o.Sport}
}

// StartTime resolves the event's concrete start instant in the given
// location. Events without a date, with a TBA time, or with an unparsable
// date+time have no instant and return ok=false; such events are never
// reminded.
func (e Event) StartTime(loc *time.Location) (time.Time, bool) {
	if e.Date == "" || e.Time == "" || e.Time == TBA {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateTimeLayout, e.Date+" "+e.Time, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// EventID returns the string form of the positional id, as recorded in the
// reminder ledger.
func (e Event) EventID() string {
	return fmt.Sprintf("%d", e.ID)
}

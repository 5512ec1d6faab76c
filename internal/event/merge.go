package event

import "sort"

// Merge combines verified broadcast observations with calendar placeholders.
// Every verified observation is kept. A calendar observation survives only
// when no verified observation exists for the same (date, sport) key —
// shadowing is whole-record, never field by field. Calendar observations
// without a date are dropped.
func Merge(verified, calendar []Observation) []Observation {
	shadowed := make(map[Key]struct{}, len(verified))
	for _, o := range verified {
		if o.Date == "" {
			continue
		}
		shadowed[o.MergeKey()] = struct{}{}
	}

	merged := make([]Observation, 0, len(verified)+len(calendar))
	merged = append(merged, verified...)

	for _, o := range calendar {
		if o.Date == "" {
			continue
		}
		if _, ok := shadowed[o.MergeKey()]; ok {
			continue
		}
		o.Verified = false
		merged = append(merged, o)
	}

	return merged
}

// timeSortKey maps a time string to its ordering value. TBA (and anything
// unparsable as HH:MM) sorts after every concrete time within the same date.
const tbaSentinel = "99:99"

func timeSortKey(t string) string {
	if t == "" || t == TBA {
		return tbaSentinel
	}
	return t
}

// SortSchedule orders observations ascending by (date, time), with TBA
// times last within each date. The sort is stable so same-key observations
// keep their source order.
func SortSchedule(obs []Observation) {
	sort.SliceStable(obs, func(i, j int) bool {
		if obs[i].Date != obs[j].Date {
			return obs[i].Date < obs[j].Date
		}
		return timeSortKey(obs[i].Time) < timeSortKey(obs[j].Time)
	})
}

// FilterFrom drops observations dated before cutoff (YYYY-MM-DD, inclusive
// keep). String comparison is safe because the date layout is fixed-width.
func FilterFrom(obs []Observation, cutoff string) []Observation {
	kept := obs[:0:0]
	for _, o := range obs {
		if o.Date >= cutoff {
			kept = append(kept, o)
		}
	}
	return kept
}

// AssignIDs strips the transient merge fields and renumbers the schedule
// 1..N in sorted order. Positional ids do not survive across runs: a
// stored event's id can shift whenever the schedule changes upstream,
// which can orphan reminder-ledger rows keyed on the old id.
func AssignIDs(obs []Observation) []Event {
	events := make([]Event, len(obs))
	for i, o := range obs {
		e := o.Event
		e.ID = i + 1
		events[i] = e
	}
	return events
}

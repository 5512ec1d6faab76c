package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LedgerEntry records one delivered reminder. At most one entry exists per
// (event_id, minutes_before) pair; MarkReminderSent upserts on that key so
// retrying a pair after a transient failure rewrites the same logical fact.
type LedgerEntry struct {
	EventID       string    `bson:"event_id" json:"event_id"`
	EventTitle    string    `bson:"event_title" json:"event_title"`
	MinutesBefore int       `bson:"minutes_before" json:"minutes_before"`
	EventDatetime time.Time `bson:"event_datetime" json:"event_datetime"`
	SentAt        time.Time `bson:"sent_at" json:"sent_at"`
}

// HasReminderBeenSent reports whether a ledger entry exists for the pair.
// A nil store reports false: without a reachable ledger the dispatcher
// sends best-effort and accepts possible duplicates.
func (s *Store) HasReminderBeenSent(ctx context.Context, eventID string, minutesBefore int) (bool, error) {
	if s == nil {
		return false, nil
	}
	err := s.reminders.FindOne(ctx, bson.M{
		"event_id":       eventID,
		"minutes_before": minutesBefore,
	}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check reminder %s/%d: %w", eventID, minutesBefore, err)
	}
	return true, nil
}

// MarkReminderSent upserts the ledger entry for the pair.
func (s *Store) MarkReminderSent(ctx context.Context, entry LedgerEntry) error {
	if s == nil {
		return nil
	}
	_, err := s.reminders.UpdateOne(ctx,
		bson.M{"event_id": entry.EventID, "minutes_before": entry.MinutesBefore},
		bson.M{"$set": entry},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mark reminder sent %s/%d: %w", entry.EventID, entry.MinutesBefore, err)
	}
	return nil
}

// RecentReminders returns up to limit ledger entries, newest first.
func (s *Store) RecentReminders(ctx context.Context, limit int) ([]LedgerEntry, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	cur, err := s.reminders.Find(ctx, bson.M{},
		options.Find().
			SetSort(bson.D{{Key: "sent_at", Value: -1}}).
			SetLimit(int64(limit)).
			SetProjection(bson.M{"_id": 0}))
	if err != nil {
		return nil, fmt.Errorf("find reminders: %w", err)
	}
	defer cur.Close(ctx)

	var entries []LedgerEntry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode reminders: %w", err)
	}
	return entries, nil
}

// PurgeReminders removes ledger entries whose event instant is more than
// the given number of days in the past. Retention is keyed on the event's
// start, not on when the reminder was sent.
func (s *Store) PurgeReminders(ctx context.Context, now time.Time, days int) (int64, error) {
	if s == nil {
		return 0, nil
	}
	cutoff := now.AddDate(0, 0, -days)
	res, err := s.reminders.DeleteMany(ctx, bson.M{
		"event_datetime": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("purge reminders: %w", err)
	}
	return res.DeletedCount, nil
}

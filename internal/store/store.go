// Package store wraps the MongoDB document collections owned by this
// service: the televised-event schedule and the sent-reminder ledger.
// Connection, indexes, and every query live here; no other package talks
// to the driver.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/svedberg/vintersport-tv/internal/config"
	"github.com/svedberg/vintersport-tv/internal/event"
)

const serverSelectionTimeout = 5 * time.Second

// Store owns the events and sent_reminders collections. Callers that can
// run without persistence hold a nil *Store and degrade to best-effort;
// every exported method is nil-safe for reads and no-ops for writes.
type Store struct {
	client    *mongo.Client
	events    *mongo.Collection
	reminders *mongo.Collection
}

// New connects to MongoDB, verifies connectivity, and ensures indexes.
// Returns an error when the URI is missing or the server is unreachable;
// callers decide whether that is fatal for their operation.
func New(ctx context.Context, cfg *config.Config) (*Store, error) {
	if cfg.MongoDBURI == "" {
		return nil, fmt.Errorf("MONGODB_URI is not configured")
	}

	opts := options.Client().
		ApplyURI(cfg.MongoDBURI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetServerSelectionTimeout(serverSelectionTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	db := client.Database(cfg.MongoDBDatabase)
	s := &Store{
		client:    client,
		events:    db.Collection(config.EventsCollection),
		reminders: db.Collection(config.RemindersCollection),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	return s, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// Ping verifies the server is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("store not connected")
	}
	return s.client.Ping(ctx, nil)
}

// ensureIndexes creates the indexes both collections rely on. The unique
// (event_id, minutes_before) index is what makes the reminder ledger's
// at-most-once contract hold across runs.
func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.events.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "sport", Value: 1}}},
		{Keys: bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("events indexes: %w", err)
	}

	_, err = s.reminders.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}, {Key: "minutes_before", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "event_datetime", Value: 1}}},
		{Keys: bson.D{{Key: "sent_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("reminder indexes: %w", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Events collection
// --------------------------------------------------------------------------

var scheduleSort = bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}}

// UpsertEvent writes one event keyed by its positional id.
func (s *Store) UpsertEvent(ctx context.Context, e event.Event) error {
	if s == nil {
		return fmt.Errorf("store not connected")
	}
	_, err := s.events.UpdateOne(ctx,
		bson.M{"id": e.ID},
		bson.M{"$set": e},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert event %d: %w", e.ID, err)
	}
	return nil
}

// Events returns the full schedule ordered by (date, time).
func (s *Store) Events(ctx context.Context) ([]event.Event, error) {
	return s.findEvents(ctx, bson.M{})
}

// EventsBySport returns the schedule for one sport tag.
func (s *Store) EventsBySport(ctx context.Context, sport string) ([]event.Event, error) {
	return s.findEvents(ctx, bson.M{"sport": sport})
}

// UpcomingEvents returns events dated from today through today+days,
// inclusive.
func (s *Store) UpcomingEvents(ctx context.Context, now time.Time, days int) ([]event.Event, error) {
	from := now.Format(event.DateLayout)
	to := now.AddDate(0, 0, days).Format(event.DateLayout)
	return s.findEvents(ctx, bson.M{"date": bson.M{"$gte": from, "$lte": to}})
}

func (s *Store) findEvents(ctx context.Context, filter bson.M) ([]event.Event, error) {
	if s == nil {
		return nil, nil
	}
	cur, err := s.events.Find(ctx, filter,
		options.Find().SetSort(scheduleSort).SetProjection(bson.M{"_id": 0}))
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	defer cur.Close(ctx)

	var events []event.Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return events, nil
}

// DeleteEventsBefore removes events dated strictly before cutoff
// (YYYY-MM-DD) and returns the removed count.
func (s *Store) DeleteEventsBefore(ctx context.Context, cutoff string) (int64, error) {
	if s == nil {
		return 0, nil
	}
	res, err := s.events.DeleteMany(ctx, bson.M{"date": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("delete past events: %w", err)
	}
	return res.DeletedCount, nil
}

// ClearEvents removes the entire schedule.
func (s *Store) ClearEvents(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, nil
	}
	res, err := s.events.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("clear events: %w", err)
	}
	return res.DeletedCount, nil
}

// CountEvents returns the number of stored events.
func (s *Store) CountEvents(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, nil
	}
	n, err := s.events.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Sports returns the distinct sport tags present in the schedule.
func (s *Store) Sports(ctx context.Context) ([]string, error) {
	if s == nil {
		return nil, nil
	}
	values, err := s.events.Distinct(ctx, "sport", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("distinct sports: %w", err)
	}
	sports := make([]string, 0, len(values))
	for _, v := range values {
		if str, ok := v.(string); ok {
			sports = append(sports, str)
		}
	}
	return sports, nil
}

// Package mongo stores the booking history journal in MongoDB.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/freight-commission-ledger/internal/domain/journal"
)

// DefaultJournalCollection is used when the configuration leaves the name empty.
const DefaultJournalCollection = "booking_journal"

// JournalRepository implements the journal.Repository interface for MongoDB
type JournalRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewJournalRepository creates a journal repository on the named collection.
func NewJournalRepository(logger *slog.Logger, db *mongo.Database, collection string) *JournalRepository {
	if collection == "" {
		collection = DefaultJournalCollection
	}
	return &JournalRepository{
		collection: db.Collection(collection),
		logger:     logger,
	}
}

// EnsureIndexes creates the unique event index Create relies on and the
// per-booking history index.
func (r *JournalRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("event_id_unique"),
		},
		{
			Keys:    bson.D{{Key: "booking_id", Value: 1}, {Key: "occurred_at", Value: -1}},
			Options: options.Index().SetName("booking_history"),
		},
	})
	if err != nil {
		r.logger.Error("Failed to create journal indexes", "error", err)
		return fmt.Errorf("failed to create journal indexes: %w", err)
	}
	return nil
}

// Create stores an entry. Writing the same event id again is a no-op, so the
// outbox poller may redeliver safely.
func (r *JournalRepository) Create(ctx context.Context, entry *journal.Entry) error {
	if entry.Data == nil {
		if err := entry.DecodeData(); err != nil {
			return err
		}
	}
	if entry.JournaledAt == nil {
		now := time.Now().UTC()
		entry.JournaledAt = &now
	}

	_, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Debug("Journal entry already stored", "event_id", entry.EventID.String())
			return nil
		}
		r.logger.Error("Failed to create journal entry",
			"event_id", entry.EventID.String(),
			"event_type", string(entry.EventType),
			"error", err)
		return fmt.Errorf("failed to create journal entry: %w", err)
	}

	return nil
}

// GetByEventID returns ErrEntryNotFound when the event was never journaled.
func (r *JournalRepository) GetByEventID(ctx context.Context, eventID uuid.UUID) (*journal.Entry, error) {
	var entry journal.Entry
	err := r.collection.FindOne(ctx, bson.M{"event_id": eventID}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, journal.ErrEntryNotFound{EventID: eventID}
		}
		r.logger.Error("Failed to get journal entry",
			"event_id", eventID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get journal entry: %w", err)
	}

	if err := restorePayload(&entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListByBookingID returns a page of a booking's history, newest first.
func (r *JournalRepository) ListByBookingID(ctx context.Context, bookingID string, limit, offset int) ([]*journal.Entry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: -1}, {Key: "event_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"booking_id": bookingID}, opts)
	if err != nil {
		r.logger.Error("Failed to list journal entries",
			"booking_id", bookingID,
			"error", err)
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	defer cursor.Close(ctx)

	entries := []*journal.Entry{}
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode journal entries",
			"booking_id", bookingID,
			"error", err)
		return nil, fmt.Errorf("failed to decode journal entries: %w", err)
	}

	for _, e := range entries {
		if err := restorePayload(e); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (r *JournalRepository) CountByBookingID(ctx context.Context, bookingID string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"booking_id": bookingID})
	if err != nil {
		r.logger.Error("Failed to count journal entries",
			"booking_id", bookingID,
			"error", err)
		return 0, fmt.Errorf("failed to count journal entries: %w", err)
	}
	return count, nil
}

// restorePayload rebuilds the JSON payload from the stored document.
func restorePayload(entry *journal.Entry) error {
	if entry.Data == nil {
		return nil
	}
	raw, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("failed to encode journal payload %s: %w", entry.EventID, err)
	}
	entry.Payload = raw
	return nil
}

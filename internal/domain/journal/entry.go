package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Entry is one booking-side event as stored in the history journal.
// BookingID is empty for document events that touch no booking yet.
type Entry struct {
	EventID       uuid.UUID        `json:"event_id" bson:"event_id"`
	EventType     shared.EventType `json:"event_type" bson:"event_type"`
	BookingID     string           `json:"booking_id,omitempty" bson:"booking_id,omitempty"`
	DocumentID    *uuid.UUID       `json:"document_id,omitempty" bson:"document_id,omitempty"`
	Payload       json.RawMessage  `json:"payload" bson:"-"`
	Data          map[string]any   `json:"-" bson:"data,omitempty"`
	CorrelationID string           `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at" bson:"occurred_at"`
	JournaledAt   *time.Time       `json:"journaled_at,omitempty" bson:"journaled_at,omitempty"`
}

// NewEntry marshals payload and stamps a fresh event id.
func NewEntry(eventType shared.EventType, bookingID string, documentID *uuid.UUID, payload any, occurredAt time.Time) (*Entry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Entry{
		EventID:    uuid.New(),
		EventType:  eventType,
		BookingID:  bookingID,
		DocumentID: documentID,
		Payload:    raw,
		OccurredAt: occurredAt,
	}, nil
}

// DecodeData fills Data from Payload so the document store keeps a queryable
// object rather than opaque bytes.
func (e *Entry) DecodeData() error {
	if len(e.Payload) == 0 {
		return nil
	}
	data := map[string]any{}
	if err := json.Unmarshal(e.Payload, &data); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.EventType, err)
	}
	e.Data = data
	return nil
}

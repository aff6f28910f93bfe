package producers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/freight-commission-ledger/internal/config"
	"github.com/freight-commission-ledger/internal/domain/journal"
	"github.com/segmentio/kafka-go"
)

const (
	HeaderEventType     = "event-type"
	HeaderCorrelationID = "correlation-id"
)

// BookingEventProducer publishes journal entries to the booking events topic,
// keyed by booking id (or document id before a booking exists).
type BookingEventProducer struct {
	publisher MessagePublisher
}

func NewBookingEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*BookingEventProducer, error) {
	p, err := NewTopicProducer(ctx, logger, cfg, cfg.BookingEventsTopic)
	if err != nil {
		return nil, fmt.Errorf("booking events producer: %w", err)
	}
	return &BookingEventProducer{publisher: p}, nil
}

func (p *BookingEventProducer) PublishEvent(ctx context.Context, entry *journal.Entry) error {
	key := entry.BookingID
	if key == "" && entry.DocumentID != nil {
		key = entry.DocumentID.String()
	}
	headers := []kafka.Header{{Key: HeaderEventType, Value: []byte(entry.EventType)}}
	if entry.CorrelationID != "" {
		headers = append(headers, kafka.Header{Key: HeaderCorrelationID, Value: []byte(entry.CorrelationID)})
	}
	return p.publisher.Publish(ctx, key, entry, headers...)
}

func (p *BookingEventProducer) Close() error {
	return p.publisher.Close()
}

package producers

import (
	"context"

	"github.com/freight-commission-ledger/internal/domain/journal"
	"github.com/segmentio/kafka-go"
)

// MessagePublisher publishes JSON values to one topic
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}, headers ...kafka.Header) error
	Close() error
}

// EventPublisher republishes journaled booking events
type EventPublisher interface {
	PublishEvent(ctx context.Context, entry *journal.Entry) error
	Close() error
}

// DeadLetterPublisher handles publishing messages to a Dead Letter Queue
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

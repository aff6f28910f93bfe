package producers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/freight-commission-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

const (
	HeaderDLQReason      = "dlq-reason"
	HeaderDLQSourceTopic = "dlq-source-topic"
)

var ErrDLQDisabled = errors.New("DLQ producer not initialized")

// DeadLetter is what lands on the DLQ topic. Value keeps the original bytes,
// base64 encoded in JSON, since intake messages carry PDF content.
type DeadLetter struct {
	SourceTopic string    `json:"source_topic"`
	Key         string    `json:"key"`
	Value       []byte    `json:"value"`
	Reason      string    `json:"reason"`
	FailedAt    time.Time `json:"failed_at"`
}

// DLQProducer parks intake messages the worker can never register.
type DLQProducer struct {
	logger      *slog.Logger
	publisher   MessagePublisher
	sourceTopic string
	now         func() time.Time
}

// NewDLQProducer returns nil without error when no DLQ topic is configured.
func NewDLQProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*DLQProducer, error) {
	if cfg.DLQTopic == "" {
		logger.Info("DLQ topic is not configured; unprocessable intake messages will be retried")
		return nil, nil
	}
	p, err := NewTopicProducer(ctx, logger, cfg, cfg.DLQTopic)
	if err != nil {
		return nil, fmt.Errorf("dlq producer: %w", err)
	}
	return newDLQProducer(logger, p, cfg.DocumentIntakeTopic), nil
}

func newDLQProducer(logger *slog.Logger, publisher MessagePublisher, sourceTopic string) *DLQProducer {
	return &DLQProducer{
		logger:      logger,
		publisher:   publisher,
		sourceTopic: sourceTopic,
		now:         time.Now,
	}
}

func (p *DLQProducer) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	if p == nil || p.publisher == nil {
		return ErrDLQDisabled
	}

	letter := DeadLetter{
		SourceTopic: p.sourceTopic,
		Key:         key,
		Value:       originalMessageValue,
		Reason:      reason,
		FailedAt:    p.now().UTC(),
	}
	headers := []kafka.Header{
		{Key: HeaderDLQReason, Value: []byte(reason)},
		{Key: HeaderDLQSourceTopic, Value: []byte(p.sourceTopic)},
	}
	if err := p.publisher.Publish(ctx, key, letter, headers...); err != nil {
		return fmt.Errorf("dead-lettering %q: %w", key, err)
	}

	p.logger.Warn("Intake message dead-lettered", "key", key, "source_topic", p.sourceTopic, "reason", reason)
	return nil
}

func (p *DLQProducer) Close() error {
	if p == nil || p.publisher == nil {
		return nil
	}
	return p.publisher.Close()
}

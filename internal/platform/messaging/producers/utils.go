package producers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/freight-commission-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

const (
	topicCheckAttempts = 5
	topicCheckBackoff  = 2 * time.Second
)

// topicAdmin is the subset of *kafka.Conn used to check and create topics.
type topicAdmin interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
}

// ensureTopic dials the broker and creates topic when it does not exist yet.
func ensureTopic(ctx context.Context, cfg *config.KafkaConfig, topic string, log *slog.Logger) error {
	dialer := &kafka.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Brokers)
	if err != nil {
		return fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer conn.Close()

	return createTopicIfMissing(ctx, conn, topic, cfg.NumPartitions, cfg.ReplicationFactor, topicCheckBackoff, log)
}

// createTopicIfMissing retries partition reads before deciding the topic is absent.
func createTopicIfMissing(ctx context.Context, admin topicAdmin, topic string, partitions, replication int, backoff time.Duration, log *slog.Logger) error {
	var (
		found []kafka.Partition
		err   error
	)
	for attempt := 1; attempt <= topicCheckAttempts; attempt++ {
		found, err = admin.ReadPartitions(topic)
		if err == nil {
			break
		}
		log.Warn("Failed to read partitions, retrying", "topic", topic, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	if len(found) > 0 {
		log.Info("Kafka topic already exists", "topic", topic, "partitions", len(found))
		return nil
	}

	topicConfig := kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     max(partitions, 1),
		ReplicationFactor: max(replication, 1),
	}
	if err := admin.CreateTopics(topicConfig); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topic, err)
	}
	log.Info("Created Kafka topic", "topic", topic, "partitions", topicConfig.NumPartitions)
	return nil
}

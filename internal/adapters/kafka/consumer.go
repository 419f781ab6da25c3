package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"

	appmetrics "crisiswatch/internal/metrics"
	"crisiswatch/pkg/errors"
	"crisiswatch/pkg/logger"
)

// Consumer reads one topic as part of a consumer group. Offsets are
// committed explicitly, so a message is redelivered unless Commit is called.
type Consumer struct {
	reader *kafka.Reader
	topic  string
	log    *logger.Logger
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topic    string
	MinBytes int
	MaxBytes int
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(cfg ConsumerConfig) *Consumer {
	if cfg.MinBytes == 0 {
		cfg.MinBytes = 1
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = 1e6
	}

	log := logger.Get().Component("kafka_consumer").With("topic", cfg.Topic)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
		// a group with no committed offset skips the backlog; old refresh requests are stale
		StartOffset: kafka.LastOffset,
	})

	log.Infow("Kafka consumer created", "brokers", cfg.Brokers, "group_id", cfg.GroupID)

	return &Consumer{reader: reader, topic: cfg.Topic, log: log}
}

// Fetch returns the next message without committing it. Once ctx is done
// it returns ctx.Err() instead of the reader's error.
func (c *Consumer) Fetch(ctx context.Context) (kafka.Message, error) {
	if err := ctx.Err(); err != nil {
		return kafka.Message{}, err
	}

	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return kafka.Message{}, ctx.Err()
		}
		return kafka.Message{}, errors.Wrapf(errors.ErrUnavailable, "fetch from %s: %v", c.topic, err)
	}

	appmetrics.KafkaMessages.WithLabelValues(c.topic, "consumed").Inc()
	return msg, nil
}

// Commit marks msg as processed for the group
func (c *Consumer) Commit(ctx context.Context, msg kafka.Message) error {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "commit %s offset %d", c.topic, msg.Offset)
	}
	appmetrics.KafkaMessages.WithLabelValues(c.topic, "committed").Inc()
	return nil
}

// Close closes the consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}

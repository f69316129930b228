package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ms-marketplace/internal/logger"

	"github.com/segmentio/kafka-go"
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	Reader MessageReader
	Logger *logger.Logger
}

// NewConsumer creates a consumer-group reader for one topic.
func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{Reader: reader, Logger: log}
}

// Handler processes one message. A returned error is logged and the
// message is skipped.
type Handler func(ctx context.Context, msg kafka.Message) error

// Start reads messages until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, handler Handler) {
	c.Logger.Info("KAFKA", "Kafka consumer started")

	for {
		msg, err := c.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.Logger.Info("KAFKA", "Kafka consumer stopped")
				return
			}
			c.Logger.Error("KAFKA", fmt.Sprintf("Error reading message: %v", err))
			continue
		}

		if err := handler(ctx, msg); err != nil {
			c.Logger.LogKafka("HANDLE_FAILED", msg.Topic, fmt.Sprintf("offset=%d: %v", msg.Offset, err))
			continue
		}
		c.Logger.LogKafka("CONSUMED", msg.Topic, fmt.Sprintf("offset=%d key=%s", msg.Offset, string(msg.Key)))
	}
}

// JSONHandler decodes the message value into T before calling fn.
func JSONHandler[T any](fn func(ctx context.Context, value T) error) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var value T
		if err := json.Unmarshal(msg.Value, &value); err != nil {
			return fmt.Errorf("unmarshal message: %w", err)
		}
		return fn(ctx, value)
	}
}

func (c *Consumer) Close() error {
	return c.Reader.Close()
}

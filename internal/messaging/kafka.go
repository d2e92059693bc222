// Package messaging streams rating events to kafka for downstream
// analytics. Publishing is best-effort: a broker outage never fails the
// rating write that produced the event.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/karar-hayder/recanthology/internal/config"
	"github.com/karar-hayder/recanthology/pkg/models"
)

type RatingEventBus struct {
	writer *kafka.Writer
	logger *logrus.Logger
}

func NewRatingEventBus(cfg *config.Config, logger *logrus.Logger) *RatingEventBus {
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) == 0 {
		return nil
	}
	return &RatingEventBus{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Kafka.Brokers...),
			Topic:        cfg.Kafka.Topics.RatingEvents,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
			BatchSize:    100,
		},
		logger: logger,
	}
}

// PublishRating emits one rating event keyed by user so a consumer sees
// a user's writes in order.
func (b *RatingEventBus) PublishRating(ctx context.Context, event models.RatingEvent) error {
	if b == nil {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal rating event: %w", err)
	}

	err = b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.UserID.String()),
		Value: data,
	})
	if err != nil {
		return fmt.Errorf("publish rating event: %w", err)
	}

	b.logger.WithFields(logrus.Fields{
		"user_id": event.UserID,
		"item_id": event.ItemID,
		"kind":    event.Kind,
	}).Debug("Published rating event")

	return nil
}

func (b *RatingEventBus) Close() error {
	if b == nil || b.writer == nil {
		return nil
	}
	return b.writer.Close()
}

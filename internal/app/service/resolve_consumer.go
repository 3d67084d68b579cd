package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/linkmint/linkmint/internal/app/model"
	apprepository "github.com/linkmint/linkmint/internal/app/repository"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ResolveConsumer drains resolve events from JetStream into Postgres.
type ResolveConsumer struct {
	js     nats.JetStreamContext
	logger *zap.Logger
	repo   apprepository.ResolveEventRepository
}

// NewResolveConsumer creates a new resolve event consumer.
func NewResolveConsumer(js nats.JetStreamContext, logger *zap.Logger, repo apprepository.ResolveEventRepository) *ResolveConsumer {
	return &ResolveConsumer{js: js, logger: logger, repo: repo}
}

// Start ensures the stream and durable consumer exist, then consumes in the
// background.
func (c *ResolveConsumer) Start() error {
	_, err := c.js.StreamInfo(model.ResolveStreamName)
	if err != nil {
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:     model.ResolveStreamName,
			Subjects: []string{model.ResolveStreamSubject},
			MaxBytes: model.ResolveStreamMaxBytes,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	_, err = c.js.ConsumerInfo(model.ResolveStreamName, model.ResolveConsumerName)
	if err != nil {
		_, err = c.js.AddConsumer(model.ResolveStreamName, &nats.ConsumerConfig{
			Durable:   model.ResolveConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.ResolveStreamSubject, model.ResolveConsumerName)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.consume(sub)
	return nil
}

func (c *ResolveConsumer) consume(sub *nats.Subscription) {
	ctx := context.Background()
	for {
		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil && err != nats.ErrTimeout {
			c.logger.Error("failed to fetch resolve events", zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			var event model.ResolveEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				c.logger.Error("failed to unmarshal resolve event", zap.Error(err))
				msg.Nak()
				continue
			}

			if err := c.repo.Create(ctx, &event); err != nil {
				c.logger.Error("failed to store resolve event",
					zap.String("id", event.ID),
					zap.String("link_code", event.LinkCode),
					zap.Error(err))
				msg.Nak()
				continue
			}

			c.logger.Debug("resolve event stored",
				zap.String("id", event.ID),
				zap.String("link_code", event.LinkCode),
				zap.String("ip", event.IP),
				zap.Time("timestamp", event.Timestamp),
			)

			msg.Ack()
		}
	}
}

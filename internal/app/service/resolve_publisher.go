package service

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/linkmint/linkmint/internal/app/model"
	"github.com/nats-io/nats.go"
)

// ResolvePublisher publishes resolve events to NATS JetStream.
type ResolvePublisher struct {
	js nats.JetStreamContext
}

// NewResolvePublisher creates a new resolve event publisher.
func NewResolvePublisher(js nats.JetStreamContext) *ResolvePublisher {
	return &ResolvePublisher{js: js}
}

// Publish emits an event for a successful redirect through linkCode.
func (p *ResolvePublisher) Publish(linkCode, ip, userAgent string) error {
	event := model.ResolveEvent{
		ID:        uuid.New().String(),
		LinkCode:  linkCode,
		IP:        ip,
		UserAgent: userAgent,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(model.ResolveStreamSubject, data)
	return err
}

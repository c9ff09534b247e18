package service

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/velichkin/shorty/internal/app/model"
)

// LinkEventPublisher publishes link provisioning events to NATS JetStream.
type LinkEventPublisher struct {
	js nats.JetStreamContext
}

// NewLinkEventPublisher creates a new link event publisher.
func NewLinkEventPublisher(js nats.JetStreamContext) *LinkEventPublisher {
	return &LinkEventPublisher{js: js}
}

// PublishProvisioned publishes a provisioning event for the given link.
func (p *LinkEventPublisher) PublishProvisioned(link *model.Link) error {
	event := model.LinkProvisionedEvent{
		ID:             uuid.New().String(),
		LinkID:         link.ID,
		ProviderLinkID: link.ProviderLinkID,
		OwnerID:        link.OwnerID,
		Timestamp:      time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(model.LinkStreamSubject, data)
	return err
}

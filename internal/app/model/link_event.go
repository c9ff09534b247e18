package model

import "time"

// LinkProvisionedEvent is emitted after a short link is created and
// persisted. Consumers use it to pre-warm the click-stats cache.
type LinkProvisionedEvent struct {
	ID             string    `json:"id"`
	LinkID         string    `json:"link_id"`
	ProviderLinkID string    `json:"provider_link_id"`
	OwnerID        string    `json:"owner_id"`
	Timestamp      time.Time `json:"timestamp"`
}

const (
	LinkStreamName     = "LINKS"
	LinkStreamSubject  = "links.provisioned"
	LinkConsumerName   = "stats-warmer"
	LinkStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)

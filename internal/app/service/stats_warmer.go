package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/velichkin/shorty/internal/app/model"
	"go.uber.org/zap"
)

// StatsWarmer consumes link provisioning events from NATS JetStream and
// primes the click-stats cache so the first dashboard load after creating
// a link does not pay the upstream round trip.
type StatsWarmer struct {
	js       nats.JetStreamContext
	logger   *zap.Logger
	provider ProviderClient
	cache    StatsCache
}

// NewStatsWarmer creates a new stats warmer.
func NewStatsWarmer(js nats.JetStreamContext, logger *zap.Logger, provider ProviderClient, cache StatsCache) *StatsWarmer {
	return &StatsWarmer{js: js, logger: logger, provider: provider, cache: cache}
}

// Start begins consuming provisioning events.
func (w *StatsWarmer) Start() error {
	// Create stream if not exists
	_, err := w.js.StreamInfo(model.LinkStreamName)
	if err != nil {
		_, err = w.js.AddStream(&nats.StreamConfig{
			Name:     model.LinkStreamName,
			Subjects: []string{model.LinkStreamSubject},
			MaxBytes: model.LinkStreamMaxBytes,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	// Create consumer if not exists
	_, err = w.js.ConsumerInfo(model.LinkStreamName, model.LinkConsumerName)
	if err != nil {
		_, err = w.js.AddConsumer(model.LinkStreamName, &nats.ConsumerConfig{
			Durable:   model.LinkConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := w.js.PullSubscribe(model.LinkStreamSubject, model.LinkConsumerName)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go w.consume(sub)
	return nil
}

func (w *StatsWarmer) consume(sub *nats.Subscription) {
	ctx := context.Background()
	for {
		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil && err != nats.ErrTimeout {
			w.logger.Error("failed to fetch messages", zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			var event model.LinkProvisionedEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				w.logger.Error("failed to unmarshal link event", zap.Error(err))
				msg.Nak()
				continue
			}

			clicks, err := w.provider.LinkStats(ctx, event.ProviderLinkID)
			if err != nil {
				// Warming is best-effort; the listing path degrades on its
				// own, so a failed warm is dropped rather than retried.
				w.logger.Warn("failed to warm link statistics",
					zap.String("link_id", event.LinkID),
					zap.String("provider_link_id", event.ProviderLinkID),
					zap.Error(err))
				msg.Ack()
				continue
			}

			w.cache.Set(ctx, event.ProviderLinkID, clicks)

			w.logger.Debug("stats cache warmed",
				zap.String("link_id", event.LinkID),
				zap.String("provider_link_id", event.ProviderLinkID),
				zap.Int64("clicks", clicks),
			)

			msg.Ack()
		}
	}
}

// Package events publishes location change events to Google Cloud Pub/Sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
	"github.com/illmade-knight/location-api/pkg/locations"
	"github.com/rs/zerolog"
)

// Message attributes set on every published event.
const (
	AttrEventType  = "event_type"
	AttrLocationID = "location_id"
)

// PubsubPublisher is a locations.EventPublisher backed by a Pub/Sub topic.
type PubsubPublisher struct {
	publisher *pubsub.Publisher
	topicID   string
	logger    zerolog.Logger
}

// NewPubsubPublisher creates a publisher for topicID. The caller keeps
// ownership of the client; Stop flushes this publisher only.
func NewPubsubPublisher(client *pubsub.Client, topicID string, logger zerolog.Logger) *PubsubPublisher {
	return &PubsubPublisher{
		publisher: client.Publisher(topicID),
		topicID:   topicID,
		logger:    logger.With().Str("component", "pubsub-publisher").Str("topic", topicID).Logger(),
	}
}

// Publish sends the event and waits for the server to acknowledge it.
func (p *PubsubPublisher) Publish(ctx context.Context, event locations.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			AttrEventType:  string(event.Type),
			AttrLocationID: event.LocationID,
		},
	})
	serverID, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to publish change event to topic %s: %w", p.topicID, err)
	}

	p.logger.Debug().Str("message_id", serverID).Str("location_id", event.LocationID).Str("event", string(event.Type)).Msg("Published change event")
	return nil
}

// Stop flushes pending messages and releases the publisher's resources.
func (p *PubsubPublisher) Stop() {
	p.publisher.Stop()
}

// DecodeChangeEvent parses the payload of a published change event.
func DecodeChangeEvent(msg *pubsub.Message) (locations.ChangeEvent, error) {
	var event locations.ChangeEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return locations.ChangeEvent{}, fmt.Errorf("failed to unmarshal change event: %w", err)
	}
	return event, nil
}

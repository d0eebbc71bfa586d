// Package realtime fans recorded interactions out to connected subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oakline/callbridge/pkg/logging"
)

// InteractionEvent is the JSON projection published for each recorded call.
// Consumers must treat a later event for the same call id as an
// authoritative replacement, not an append.
type InteractionEvent struct {
	InteractionID   string    `json:"interaction_id"`
	CallID          string    `json:"call_id"`
	OrgID           string    `json:"org_id"`
	EntityType      string    `json:"entity_type,omitempty"`
	EntityID        string    `json:"entity_id,omitempty"`
	CallerNumber    string    `json:"caller_number"`
	DurationSeconds int       `json:"duration_seconds"`
	Answered        bool      `json:"answered"`
	RecordingURL    string    `json:"recording_url,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Publisher writes interaction events to the org's Redis channel.
type Publisher struct {
	client redisPublisher
	prefix string
	logger *logging.Logger
}

// NewPublisher creates a channel publisher. prefix defaults to "calls".
func NewPublisher(client redisPublisher, prefix string, logger *logging.Logger) *Publisher {
	if client == nil {
		panic("realtime: redis client required")
	}
	if prefix == "" {
		prefix = "calls"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{client: client, prefix: prefix, logger: logger}
}

// Channel names the per-org channel events are published on.
func (p *Publisher) Channel(orgID string) string {
	return fmt.Sprintf("%s:org:%s", p.prefix, orgID)
}

// PublishInteraction sends the event to the org channel. Callers treat a
// failure here as best-effort: the interaction is already durably recorded.
func (p *Publisher) PublishInteraction(ctx context.Context, evt InteractionEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("realtime: marshal interaction event: %w", err)
	}
	if err := p.client.Publish(ctx, p.Channel(evt.OrgID), payload).Err(); err != nil {
		return fmt.Errorf("realtime: publish to %s: %w", p.Channel(evt.OrgID), err)
	}
	p.logger.Debug("interaction event published",
		"channel", p.Channel(evt.OrgID),
		"call_id", evt.CallID,
	)
	return nil
}

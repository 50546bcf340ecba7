package redis

import (
	"context"
	"encoding/json"
	"time"

	"card-auction-engine/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	// ChannelAll carries every auction event.
	ChannelAll = "auction.events.all"
	// channelPrefix scopes per-auction channels: auction.events.<auction id>.
	channelPrefix = "auction.events."

	publishTimeout = 2 * time.Second
)

// EventPublisher mirrors auction events onto Redis pub/sub channels so other
// engine instances and platform services can observe them. Delivery is best
// effort: failures are logged and never surfaced to the caller.
type EventPublisher struct {
	client *goredis.Client
	log    zerolog.Logger
}

// NewEventPublisher creates a Redis-backed event publisher.
func NewEventPublisher(client *goredis.Client, log zerolog.Logger) *EventPublisher {
	return &EventPublisher{client: client, log: log}
}

// Publish sends the event to the firehose channel and the auction's own
// channel without blocking the caller.
func (p *EventPublisher) Publish(_ context.Context, event domain.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Error().Err(err).Str("type", string(event.Type)).Msg("marshal auction event")
		return
	}

	// Detached from the caller's context: a cancelled request must not
	// suppress the broadcast of a change that already committed.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		channels := []string{ChannelAll, channelPrefix + event.AuctionID.String()}
		for _, ch := range channels {
			if err := p.client.Publish(ctx, ch, payload).Err(); err != nil {
				p.log.Warn().Err(err).
					Str("channel", ch).
					Str("type", string(event.Type)).
					Str("auction_id", event.AuctionID.String()).
					Msg("auction event publish failed")
			}
		}
	}()
}

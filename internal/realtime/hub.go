package realtime

import (
	"context"
	"sync"

	"card-auction-engine/internal/core/domain"
	"card-auction-engine/pkg/logger"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// subscriberBuffer is the per-subscriber queue depth. A subscriber that
// falls this far behind starts losing events; delivery is at-most-once.
const subscriberBuffer = 256

type subscriber struct {
	id        int
	auctionID uuid.UUID // uuid.Nil subscribes to the whole marketplace
	ch        chan domain.Event
}

// Hub is the in-process fan-out half of the broadcast publisher: it feeds
// websocket viewers attached to this instance. Publish never blocks; a slow
// subscriber's events are dropped, not queued without bound.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*subscriber
	log    zerolog.Logger
}

// NewHub creates an empty Hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		subs: make(map[int]*subscriber),
		log:  logger.Component(log, "realtime"),
	}
}

// Publish fans the event out to every matching subscriber.
func (h *Hub) Publish(_ context.Context, event domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if sub.auctionID != uuid.Nil && sub.auctionID != event.AuctionID {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			h.log.Debug().
				Int("subscriber_id", sub.id).
				Str("type", string(event.Type)).
				Msg("dropping event for slow subscriber")
		}
	}
}

// Subscribe registers a listener. auctionID scopes the stream to one
// auction; uuid.Nil receives everything. The returned cancel func must be
// called to release the subscription; it closes the channel.
func (h *Hub) Subscribe(auctionID uuid.UUID) (<-chan domain.Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	sub := &subscriber{
		id:        id,
		auctionID: auctionID,
		ch:        make(chan domain.Event, subscriberBuffer),
	}
	h.subs[id] = sub

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if s, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, cancel
}

// SubscriberCount reports the number of attached subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

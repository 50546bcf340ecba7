package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"card-auction-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_FirehoseReceivesEverything(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	events, cancel := hub.Subscribe(uuid.Nil)
	defer cancel()

	a1, a2 := uuid.New(), uuid.New()
	hub.Publish(context.Background(), domain.Event{Type: domain.EventBidAccepted, AuctionID: a1})
	hub.Publish(context.Background(), domain.Event{Type: domain.EventAuctionCompleted, AuctionID: a2})

	got1 := <-events
	got2 := <-events
	assert.Equal(t, a1, got1.AuctionID)
	assert.Equal(t, a2, got2.AuctionID)
}

func TestHub_AuctionScopedSubscriberFilters(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	watched, other := uuid.New(), uuid.New()

	events, cancel := hub.Subscribe(watched)
	defer cancel()

	hub.Publish(context.Background(), domain.Event{Type: domain.EventBidAccepted, AuctionID: other})
	hub.Publish(context.Background(), domain.Event{Type: domain.EventBidAccepted, AuctionID: watched, Amount: 120})

	got := <-events
	assert.Equal(t, watched, got.AuctionID)
	assert.Equal(t, int64(120), got.Amount)

	select {
	case e := <-events:
		t.Fatalf("unexpected event for auction %s", e.AuctionID)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHub_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	_, cancel := hub.Subscribe(uuid.Nil) // never drained
	defer cancel()

	auctionID := uuid.New()
	done := make(chan struct{})
	go func() {
		defer close(done)
		// Overflow the buffer; Publish must keep returning.
		for i := 0; i < subscriberBuffer*2; i++ {
			hub.Publish(context.Background(), domain.Event{Type: domain.EventBidAccepted, AuctionID: auctionID})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}
}

func TestHub_CancelRemovesSubscriber(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	events, cancel := hub.Subscribe(uuid.Nil)
	require.Equal(t, 1, hub.SubscriberCount())

	cancel()
	assert.Equal(t, 0, hub.SubscriberCount())
	_, open := <-events
	assert.False(t, open)

	// Double cancel is safe.
	assert.NotPanics(t, cancel)
}

func TestHub_ConcurrentPublishSubscribe(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	auctionID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			events, cancel := hub.Subscribe(auctionID)
			defer cancel()
			select {
			case <-events:
			case <-time.After(100 * time.Millisecond):
			}
		}()
	}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Publish(context.Background(), domain.Event{Type: domain.EventBidAccepted, AuctionID: auctionID})
		}()
	}
	wg.Wait()
}

func TestFanout_PublishesToAllSinks(t *testing.T) {
	hubA := NewHub(zerolog.Nop())
	hubB := NewHub(zerolog.Nop())
	eventsA, cancelA := hubA.Subscribe(uuid.Nil)
	defer cancelA()
	eventsB, cancelB := hubB.Subscribe(uuid.Nil)
	defer cancelB()

	fanout := NewFanout(hubA, hubB)
	auctionID := uuid.New()
	fanout.Publish(context.Background(), domain.Event{Type: domain.EventAuctionExtended, AuctionID: auctionID})

	assert.Equal(t, auctionID, (<-eventsA).AuctionID)
	assert.Equal(t, auctionID, (<-eventsB).AuctionID)
}

package realtime

import (
	"context"

	"card-auction-engine/internal/core/domain"
	"card-auction-engine/internal/core/ports"
)

// Fanout publishes to several sinks, typically the in-process Hub plus the
// Redis mirror. Each sink is itself non-blocking, so Publish is too.
type Fanout struct {
	sinks []ports.EventPublisher
}

// NewFanout creates a composite publisher over the given sinks.
func NewFanout(sinks ...ports.EventPublisher) *Fanout {
	return &Fanout{sinks: sinks}
}

// Publish forwards the event to every sink.
func (f *Fanout) Publish(ctx context.Context, event domain.Event) {
	for _, sink := range f.sinks {
		sink.Publish(ctx, event)
	}
}

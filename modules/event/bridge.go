package event

import (
	"context"
	"log/slog"

	"github.com/Deepreo/mathengine/calc"
	"github.com/Deepreo/mathengine/core"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Bridge is an engine subscriber that republishes every state change on an
// event bus.
type Bridge struct {
	bus    core.EventBus
	clock  clockwork.Clock
	logger *slog.Logger
}

func NewBridge(bus core.EventBus, clock clockwork.Clock, logger *slog.Logger) *Bridge {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Bridge{bus: bus, clock: clock, logger: logger}
}

func (b *Bridge) PendingChanged(pending []calc.Operation) {
	b.publish(&PendingChanged{ID: uuid.NewString(), Operations: pending, At: b.clock.Now()})
}

func (b *Bridge) ResultsChanged(results []calc.Answer) {
	b.publish(&ResultsChanged{ID: uuid.NewString(), Results: results, At: b.clock.Now()})
}

func (b *Bridge) CancelledAll() {
	b.publish(&CancelledAll{ID: uuid.NewString(), At: b.clock.Now()})
}

func (b *Bridge) publish(e core.Event) {
	if err := b.bus.Publish(context.Background(), e); err != nil {
		b.logger.Warn("failed to publish engine event", "event", e.EventName(), "error", err)
	}
}

package event

import (
	"context"
	"log/slog"

	"github.com/Deepreo/mathengine/core"
)

// AuditHandler writes every engine event it receives to the log.
type AuditHandler[E core.Event] struct {
	logger *slog.Logger
	attrs  func(E) []any
}

func (h *AuditHandler[E]) Handle(ctx context.Context, e E) error {
	attrs := append([]any{"event", e.EventName(), "event_id", e.EventID(), "at", e.OccurredOn()}, h.attrs(e)...)
	h.logger.InfoContext(ctx, "engine event", attrs...)
	return nil
}

// RegisterAudit subscribes audit handlers for all engine events.
func RegisterAudit(bus core.EventBus, logger *slog.Logger) error {
	logger = logger.With("component", "audit")
	if err := core.SubscribeEvent[*PendingChanged](bus, &AuditHandler[*PendingChanged]{
		logger: logger,
		attrs:  func(e *PendingChanged) []any { return []any{"pending", len(e.Operations)} },
	}); err != nil {
		return err
	}
	if err := core.SubscribeEvent[*ResultsChanged](bus, &AuditHandler[*ResultsChanged]{
		logger: logger,
		attrs:  func(e *ResultsChanged) []any { return []any{"results", len(e.Results)} },
	}); err != nil {
		return err
	}
	return core.SubscribeEvent[*CancelledAll](bus, &AuditHandler[*CancelledAll]{
		logger: logger,
		attrs:  func(*CancelledAll) []any { return nil },
	})
}

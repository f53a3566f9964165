package usecase

import (
	"context"
	"encoding/json"
	"time"

	"resilience-ai/internal/domain"
)

// publishEvent marshals payload and publishes it on the bus. A nil bus is
// a no-op so components can be wired without one in tests.
func publishEvent(ctx context.Context, bus domain.EventBus, typ domain.EventType, payload any) {
	if bus == nil {
		return
	}
	var raw json.RawMessage
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			raw = data
		}
	}
	bus.Publish(ctx, domain.Event{
		Type:      typ,
		Timestamp: time.Now(),
		SessionID: domain.SessionIDFromContext(ctx),
		Payload:   raw,
	})
}

package eventbus

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"resilience-ai/internal/domain"
)

func newTestBus() *Bus {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBusTypedSubscription(t *testing.T) {
	b := newTestBus()
	defer b.Close()

	var got atomic.Int32
	done := make(chan struct{})
	b.Subscribe(domain.EventRoutingDecided, func(_ context.Context, e domain.Event) {
		got.Add(1)
		close(done)
	})

	b.Publish(context.Background(), domain.Event{Type: domain.EventRoutingDecided})
	b.Publish(context.Background(), domain.Event{Type: domain.EventAgentStarted})

	<-done
	b.Close()
	assert.Equal(t, int32(1), got.Load(), "only the subscribed type is delivered")
}

func TestBusSubscribeAll(t *testing.T) {
	b := newTestBus()

	var mu sync.Mutex
	var seen []domain.EventType
	b.SubscribeAll(func(_ context.Context, e domain.Event) {
		mu.Lock()
		seen = append(seen, e.Type)
		mu.Unlock()
	})

	b.Publish(context.Background(), domain.Event{Type: domain.EventAgentStarted})
	b.Publish(context.Background(), domain.Event{Type: domain.EventAgentCompleted})
	b.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 2)
}

func TestBusUnsubscribe(t *testing.T) {
	b := newTestBus()

	var got atomic.Int32
	unsub := b.Subscribe(domain.EventAgentStarted, func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})
	unsub()

	b.Publish(context.Background(), domain.Event{Type: domain.EventAgentStarted})
	b.Close()
	assert.Equal(t, int32(0), got.Load())
}

func TestBusRecoversPanickingHandler(t *testing.T) {
	b := newTestBus()

	var healthy atomic.Int32
	b.SubscribeAll(func(_ context.Context, _ domain.Event) {
		panic("boom")
	})
	b.SubscribeAll(func(_ context.Context, _ domain.Event) {
		healthy.Add(1)
	})

	b.Publish(context.Background(), domain.Event{Type: domain.EventAgentStarted})
	b.Close()
	assert.Equal(t, int32(1), healthy.Load(), "panic in one handler does not starve others")
}

func TestBusCloseStopsPublishing(t *testing.T) {
	b := newTestBus()

	var got atomic.Int32
	b.SubscribeAll(func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})

	b.Close()
	b.Close() // idempotent
	b.Publish(context.Background(), domain.Event{Type: domain.EventAgentStarted})

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), got.Load())
}

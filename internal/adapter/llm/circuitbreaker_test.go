package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"resilience-ai/internal/domain"
	"resilience-ai/internal/infra/config"
)

// flakyProvider fails until failuresLeft reaches zero.
type flakyProvider struct {
	failuresLeft int
	calls        int
}

func (p *flakyProvider) Chat(context.Context, domain.ChatRequest) (*domain.ChatResponse, error) {
	p.calls++
	if p.failuresLeft > 0 {
		p.failuresLeft--
		return nil, domain.ErrProviderError
	}
	return &domain.ChatResponse{
		Message: domain.Message{Role: domain.RoleAssistant, Content: "ok"},
	}, nil
}

func (p *flakyProvider) Name() string { return "flaky" }

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyProvider{failuresLeft: 100}
	cb := NewCircuitBreakerProvider(inner, config.CircuitBreakerConfig{
		MaxFailures: 3,
		Timeout:     time.Minute,
	}, newTestLogger())

	req := domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
	}

	for i := 0; i < 3; i++ {
		if _, err := cb.Chat(context.Background(), req); err == nil {
			t.Fatalf("call %d should fail", i)
		}
	}

	// Circuit is now open: the inner provider must not be reached.
	callsBefore := inner.calls
	_, err := cb.Chat(context.Background(), req)
	if !errors.Is(err, domain.ErrProviderError) {
		t.Fatalf("err = %v, want ErrProviderError", err)
	}
	if inner.calls != callsBefore {
		t.Errorf("inner provider called while circuit open")
	}
}

func TestCircuitBreakerPassesThroughSuccess(t *testing.T) {
	inner := &flakyProvider{}
	cb := NewCircuitBreakerProvider(inner, config.CircuitBreakerConfig{}, newTestLogger())

	resp, err := cb.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Message.Content != "ok" {
		t.Errorf("content = %q", resp.Message.Content)
	}
	if cb.Name() != "flaky" {
		t.Errorf("Name = %q", cb.Name())
	}
}

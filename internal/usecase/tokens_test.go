package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"resilience-ai/internal/domain"
)

func TestTokenCounterHeuristicFallback(t *testing.T) {
	// The heuristic path is deterministic regardless of which encodings
	// ship with the tokenizer.
	c := &TokenCounter{enc: nil}

	assert.Equal(t, 1, c.Count(""), "never reports zero tokens")
	assert.Equal(t, 1, c.Count("hi"))
	assert.Equal(t, 10, c.Count("0123456789012345678901234567890123456789"))
}

func TestTokenCounterCountMessages(t *testing.T) {
	c := &TokenCounter{enc: nil}

	msgs := []domain.Message{
		{Role: domain.RoleUser, Content: "01234567"},     // 2 + overhead
		{Role: domain.RoleAssistant, Content: "0123456"}, // 1 + overhead
	}
	assert.Equal(t, 2+1+2*perMessageOverhead, c.CountMessages(msgs))
	assert.Equal(t, 0, c.CountMessages(nil))
}

func TestNewTokenCounterUnknownModel(t *testing.T) {
	c := NewTokenCounter("definitely-not-a-real-model", discardLogger())
	// Whether it resolved cl100k_base or fell back to the heuristic, the
	// counter must be usable.
	assert.Greater(t, c.Count("hello world"), 0)
}

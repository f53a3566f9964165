package usecase

import (
	"log/slog"

	"github.com/pkoukk/tiktoken-go"

	"resilience-ai/internal/domain"
)

// perMessageOverhead approximates the per-message framing tokens chat
// endpoints add around each turn.
const perMessageOverhead = 4

// TokenCounter implements domain.TokenCounter with a tiktoken encoding.
// When no encoding is available for the model it falls back to the len/4
// character heuristic.
type TokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTokenCounter builds a counter for the given model name.
func NewTokenCounter(model string, logger *slog.Logger) *TokenCounter {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		logger.Warn("no tokenizer for model, using character heuristic", "model", model)
		enc = nil
	}
	return &TokenCounter{enc: enc}
}

// Count implements domain.TokenCounter.
func (c *TokenCounter) Count(text string) int {
	if c.enc == nil {
		n := len(text) / 4
		if n < 1 {
			n = 1
		}
		return n
	}
	return len(c.enc.Encode(text, nil, nil))
}

// CountMessages implements domain.TokenCounter.
func (c *TokenCounter) CountMessages(msgs []domain.Message) int {
	total := 0
	for _, m := range msgs {
		total += c.Count(m.Content) + perMessageOverhead
	}
	return total
}

var _ domain.TokenCounter = (*TokenCounter)(nil)

package llm

import (
	"context"
	"strings"

	"resilience-ai/internal/domain"
)

// continuationPrompt opens a transcript that would otherwise start with an
// assistant turn. The endpoint rejects transcripts not led by a user turn.
const continuationPrompt = "Continue."

// firstTurnMaxChars caps the merged first turn so a pathological prompt
// cannot consume the whole window.
const firstTurnMaxChars = 24000

// ShapingProvider adapts transcripts to endpoints that only accept strict
// user/assistant alternation with no system role. System content is merged
// into the first user turn, consecutive same-role turns are collapsed, and
// the transcript is trimmed to fit the model's context window.
type ShapingProvider struct {
	inner   domain.LLMProvider
	counter domain.TokenCounter
	window  int
	reserve int
}

// NewShapingProvider wraps inner. window is the model context size in
// tokens; reserve is the output budget held back from the input.
func NewShapingProvider(inner domain.LLMProvider, counter domain.TokenCounter, window, reserve int) *ShapingProvider {
	if window <= 0 {
		window = 8192
	}
	if reserve <= 0 {
		reserve = 1024
	}
	return &ShapingProvider{
		inner:   inner,
		counter: counter,
		window:  window,
		reserve: reserve,
	}
}

// Chat implements domain.LLMProvider.
func (p *ShapingProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	shaped := ShapeTranscript(req.Messages)
	shaped = p.trim(shaped)

	// Fit the output budget into whatever room the input left.
	inputTokens := p.counter.CountMessages(shaped)
	maxOutput := p.window - inputTokens - 50
	if maxOutput < 256 {
		maxOutput = 256
	}
	if req.MaxTokens <= 0 || req.MaxTokens > maxOutput {
		req.MaxTokens = min(p.reserve, maxOutput)
	}

	req.Messages = shaped
	return p.inner.Chat(ctx, req)
}

// Name implements domain.LLMProvider.
func (p *ShapingProvider) Name() string { return p.inner.Name() }

var _ domain.LLMProvider = (*ShapingProvider)(nil)

// ShapeTranscript merges system content into the first user turn and
// collapses the log to strict user/assistant alternation starting with a
// user turn. Tool results are folded in as user turns.
func ShapeTranscript(msgs []domain.Message) []domain.Message {
	var systemParts []string
	raw := make([]domain.Message, 0, len(msgs))

	for _, m := range msgs {
		switch m.Role {
		case domain.RoleSystem:
			systemParts = append(systemParts, m.Content)
		case domain.RoleUser, domain.RoleAssistant:
			raw = append(raw, domain.Message{Role: m.Role, Content: m.Content})
		default:
			raw = append(raw, domain.Message{Role: domain.RoleUser, Content: m.Content})
		}
	}

	if len(systemParts) > 0 {
		prefix := "System instruction: " + strings.TrimSpace(strings.Join(systemParts, "\n")) + "\n\n"
		if len(raw) > 0 && raw[0].Role == domain.RoleUser {
			raw[0].Content = prefix + raw[0].Content
		} else {
			raw = append([]domain.Message{{Role: domain.RoleUser, Content: strings.TrimSpace(prefix)}}, raw...)
		}
	}

	return enforceAlternation(raw)
}

// enforceAlternation collapses consecutive same-role turns and guarantees a
// leading user turn.
func enforceAlternation(msgs []domain.Message) []domain.Message {
	out := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		if len(out) > 0 && out[len(out)-1].Role == m.Role {
			out[len(out)-1].Content += "\n\n" + m.Content
			continue
		}
		out = append(out, m)
	}
	if len(out) > 0 && out[0].Role != domain.RoleUser {
		out = append([]domain.Message{{Role: domain.RoleUser, Content: continuationPrompt}}, out...)
	}
	return out
}

// trim drops or truncates turns until the transcript fits the input budget.
// The first turn is always kept (capped); the most recent turns are kept in
// preference to older ones.
func (p *ShapingProvider) trim(msgs []domain.Message) []domain.Message {
	if len(msgs) == 0 {
		return msgs
	}

	budget := p.window - p.reserve
	if p.counter.CountMessages(msgs) <= budget {
		return msgs
	}

	first := msgs[0]
	if len(first.Content) > firstTurnMaxChars {
		first.Content = first.Content[:firstTurnMaxChars]
	}
	remaining := budget - p.counter.Count(first.Content)

	// Walk backwards keeping as many recent turns as fit.
	var kept []domain.Message
	for i := len(msgs) - 1; i >= 1; i-- {
		m := msgs[i]
		if maxChars := remaining * 4; len(m.Content) > maxChars {
			if maxChars <= 0 {
				break
			}
			m.Content = m.Content[:maxChars]
		}
		t := p.counter.Count(m.Content)
		if t > remaining {
			break
		}
		kept = append(kept, m)
		remaining -= t
	}

	out := make([]domain.Message, 0, len(kept)+1)
	out = append(out, first)
	for i := len(kept) - 1; i >= 0; i-- {
		out = append(out, kept[i])
	}

	// Trimming can leave consecutive same-role turns.
	return enforceAlternation(out)
}

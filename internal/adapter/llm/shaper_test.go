package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resilience-ai/internal/domain"
)

// charCounter approximates tokens as len/4, matching the heuristic used
// when no tokenizer is available.
type charCounter struct{}

func (charCounter) Count(text string) int {
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}

func (c charCounter) CountMessages(msgs []domain.Message) int {
	total := 0
	for _, m := range msgs {
		total += c.Count(m.Content)
	}
	return total
}

// captureProvider records the last request it received.
type captureProvider struct {
	lastReq domain.ChatRequest
	reply   string
}

func (p *captureProvider) Chat(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	p.lastReq = req
	return &domain.ChatResponse{
		Message: domain.Message{Role: domain.RoleAssistant, Content: p.reply},
	}, nil
}

func (p *captureProvider) Name() string { return "capture" }

func TestShapeTranscriptMergesSystemIntoFirstUser(t *testing.T) {
	shaped := ShapeTranscript([]domain.Message{
		{Role: domain.RoleSystem, Content: "You are a supervisor."},
		{Role: domain.RoleUser, Content: "What is rice production in Japan?"},
	})

	require.Len(t, shaped, 1)
	assert.Equal(t, domain.RoleUser, shaped[0].Role)
	assert.Contains(t, shaped[0].Content, "System instruction: You are a supervisor.")
	assert.Contains(t, shaped[0].Content, "What is rice production in Japan?")
}

func TestShapeTranscriptCollapsesSameRoleRuns(t *testing.T) {
	shaped := ShapeTranscript([]domain.Message{
		{Role: domain.RoleUser, Content: "first"},
		{Role: domain.RoleUser, Content: "second"},
		{Role: domain.RoleAssistant, Content: "reply"},
		{Role: domain.RoleAssistant, Content: "more"},
	})

	require.Len(t, shaped, 2)
	assert.Equal(t, "first\n\nsecond", shaped[0].Content)
	assert.Equal(t, "reply\n\nmore", shaped[1].Content)
}

func TestShapeTranscriptPrependsUserTurn(t *testing.T) {
	shaped := ShapeTranscript([]domain.Message{
		{Role: domain.RoleAssistant, Content: "previous answer"},
	})

	require.Len(t, shaped, 2)
	assert.Equal(t, domain.RoleUser, shaped[0].Role)
	assert.Equal(t, continuationPrompt, shaped[0].Content)
}

func TestShapeTranscriptFoldsToolResultsAsUser(t *testing.T) {
	shaped := ShapeTranscript([]domain.Message{
		{Role: domain.RoleUser, Content: "question"},
		{Role: domain.RoleAssistant, Content: "calling tool"},
		{Role: domain.RoleTool, Content: `{"value": 42}`},
	})

	require.Len(t, shaped, 3)
	assert.Equal(t, domain.RoleUser, shaped[2].Role)
	assert.Equal(t, `{"value": 42}`, shaped[2].Content)
}

func TestShapingProviderTrimsLongTranscripts(t *testing.T) {
	inner := &captureProvider{reply: "ok"}
	// Tiny window so the middle of the transcript must be dropped.
	p := NewShapingProvider(inner, charCounter{}, 400, 100)

	msgs := []domain.Message{
		{Role: domain.RoleUser, Content: "the original question"},
	}
	for i := 0; i < 20; i++ {
		msgs = append(msgs,
			domain.Message{Role: domain.RoleAssistant, Content: strings.Repeat("a", 200)},
			domain.Message{Role: domain.RoleUser, Content: strings.Repeat("u", 200)},
		)
	}

	_, err := p.Chat(context.Background(), domain.ChatRequest{Messages: msgs})
	require.NoError(t, err)

	sent := inner.lastReq.Messages
	require.NotEmpty(t, sent)
	assert.Equal(t, "the original question", sent[0].Content, "first turn survives trimming")
	assert.LessOrEqual(t, charCounter{}.CountMessages(sent), 300, "input fits the budget")

	for i := 1; i < len(sent); i++ {
		assert.NotEqual(t, sent[i-1].Role, sent[i].Role, "alternation holds after trim")
	}
}

func TestShapingProviderSetsOutputBudget(t *testing.T) {
	inner := &captureProvider{reply: "ok"}
	p := NewShapingProvider(inner, charCounter{}, 8192, 1024)

	_, err := p.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "short question"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1024, inner.lastReq.MaxTokens)
}

package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"resilience-ai/internal/domain"
)

func TestExtractReturnsLastAssistantReply(t *testing.T) {
	msgs := []domain.Message{
		{Role: domain.RoleUser, Content: "food production in Kenya?"},
		{Role: domain.RoleAssistant, Content: "first answer"},
		{Role: domain.RoleUser, Content: "and in 2021?"},
		{Role: domain.RoleAssistant, Content: "second answer"},
	}
	assert.Equal(t, "second answer", Extract(msgs, "and in 2021?"))
}

func TestExtractSkipsLastUserMessage(t *testing.T) {
	msgs := []domain.Message{
		{Role: domain.RoleUser, Content: "question"},
		{Role: domain.RoleAssistant, Content: "the answer"},
		{Role: domain.RoleUser, Content: "trailing user turn"},
	}
	assert.Equal(t, "the answer", Extract(msgs, "question"))
}

func TestExtractEchoGuard(t *testing.T) {
	msgs := []domain.Message{
		{Role: domain.RoleUser, Content: "What is GDP of Japan?"},
		{Role: domain.RoleAssistant, Content: "  what is gdp of japan?  "},
	}
	assert.Equal(t, NoResponseFallback, Extract(msgs, "What is GDP of Japan?"))
}

func TestExtractEchoGuardSkipsToEarlierReply(t *testing.T) {
	msgs := []domain.Message{
		{Role: domain.RoleUser, Content: "question"},
		{Role: domain.RoleAssistant, Content: "a real answer"},
		{Role: domain.RoleAssistant, Content: "QUESTION"},
	}
	assert.Equal(t, "a real answer", Extract(msgs, "question"))
}

func TestExtractSkipsEmptyAssistantMessages(t *testing.T) {
	msgs := []domain.Message{
		{Role: domain.RoleUser, Content: "question"},
		{Role: domain.RoleAssistant, Content: "real content"},
		{Role: domain.RoleAssistant, Content: "   "},
	}
	assert.Equal(t, "real content", Extract(msgs, "question"))
}

func TestExtractNoAssistantMessages(t *testing.T) {
	msgs := []domain.Message{
		{Role: domain.RoleUser, Content: "question"},
	}
	assert.Equal(t, NoResponseFallback, Extract(msgs, "question"))
	assert.Equal(t, NoResponseFallback, Extract(nil, "question"))
}

func TestExtractIsIdempotent(t *testing.T) {
	msgs := []domain.Message{
		{Role: domain.RoleUser, Content: "question"},
		{Role: domain.RoleAssistant, Content: "answer"},
	}
	first := Extract(msgs, "question")
	second := Extract(msgs, "question")
	assert.Equal(t, first, second)
}

package supervisor

import (
	"strings"

	"resilience-ai/internal/domain"
)

// NoResponseFallback is returned when no agent produced a usable reply.
const NoResponseFallback = "No response from agents. Try rephrasing or check that the supervisor routes to an agent."

// Extract selects the answer text from a finished message log: the most
// recent assistant message whose content is non-empty and is not a bare
// echo of the user's question. Extraction is a pure function of its inputs.
func Extract(msgs []domain.Message, question string) string {
	normalizedQuestion := normalize(question)

	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.Role != domain.RoleAssistant {
			continue
		}
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		// Echo guard: a reply that merely repeats the question is not an
		// answer.
		if normalize(content) == normalizedQuestion {
			continue
		}
		return content
	}
	return NoResponseFallback
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

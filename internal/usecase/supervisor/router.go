package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"resilience-ai/internal/domain"
	"resilience-ai/internal/infra/tracer"
)

// LLMRouter decides the next destination by asking the model and falling
// back to deterministic keyword rules when the model's verdict is FINISH
// or unparseable. A failed model call is an error, never a silent fallback.
type LLMRouter struct {
	provider domain.LLMProvider
	prompt   string
	ids      []string
	rules    []domain.KeywordRule
	logger   *slog.Logger
}

// NewLLMRouter builds a router for the given roster. Roster order is the
// keyword rule priority order.
func NewLLMRouter(provider domain.LLMProvider, prompt string, roster []domain.AgentIdentity, logger *slog.Logger) *LLMRouter {
	ids := make([]string, 0, len(roster))
	var rules []domain.KeywordRule
	for _, a := range roster {
		ids = append(ids, a.ID)
		for _, k := range a.Keywords {
			rules = append(rules, domain.KeywordRule{Keyword: k, AgentID: a.ID})
		}
	}
	return &LLMRouter{
		provider: provider,
		prompt:   prompt,
		ids:      ids,
		rules:    rules,
		logger:   logger,
	}
}

// Route implements domain.Router.
func (r *LLMRouter) Route(ctx context.Context, msgs []domain.Message) (string, error) {
	ctx, span := tracer.StartSpan(ctx, "router.route")
	defer span.End()

	resp, err := r.provider.Chat(ctx, domain.ChatRequest{
		Messages: r.buildRequest(msgs),
	})
	if err != nil {
		tracer.RecordError(span, err)
		return "", domain.NewDomainError("Router.Route", domain.ErrRoutingService, err.Error())
	}

	dest := ParseDestination(resp.Message.Content, r.ids)
	r.logger.Debug("router verdict",
		"raw", truncate(resp.Message.Content, 120),
		"parsed", dest,
	)

	// The model is unreliable at emitting routing tokens. When it says
	// FINISH, or nothing recognizable, the keyword rules get a veto based
	// on the most recent user message only.
	if dest == domain.Finish || dest == "" {
		if inferred := r.inferFromQuery(domain.LastUserContent(msgs)); inferred != "" {
			r.logger.Info("keyword fallback override",
				"model_verdict", dest,
				"inferred", inferred,
			)
			dest = inferred
		} else {
			dest = domain.Finish
		}
	}

	span.SetAttributes(tracer.StringAttr("router.destination", dest))
	tracer.SetOK(span)
	return dest, nil
}

// buildRequest composes the routing classification request: the supervisor
// prompt, the conversation, and a closing instruction naming every valid
// token.
func (r *LLMRouter) buildRequest(msgs []domain.Message) []domain.Message {
	options := append([]string{domain.Finish}, r.ids...)

	req := make([]domain.Message, 0, len(msgs)+2)
	req = append(req, domain.Message{Role: domain.RoleSystem, Content: r.prompt})
	req = append(req, msgs...)
	req = append(req, domain.Message{
		Role: domain.RoleSystem,
		Content: fmt.Sprintf(
			"Given the conversation above, who should act next? Reply with ONLY one word from this list: [%s]. "+
				"No explanation, no other text. Examples: food_agent, economy_agent, FINISH.",
			strings.Join(options, " "),
		),
	})
	return req
}

// inferFromQuery applies the ordered keyword rules to the last user
// message. Matching is case-insensitive substring containment; the first
// rule that matches wins.
func (r *LLMRouter) inferFromQuery(query string) string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return ""
	}
	for _, rule := range r.rules {
		if strings.Contains(query, strings.ToLower(rule.Keyword)) {
			return rule.AgentID
		}
	}
	return ""
}

var _ domain.Router = (*LLMRouter)(nil)

// ParseDestination finds the first valid destination named in the model's
// reply. Longer IDs are checked first so "economic_news_agent" is never
// mistaken for a shorter ID it happens to contain. The literal finish
// token is checked only after every agent ID has missed.
func ParseDestination(content string, ids []string) string {
	text := strings.ToLower(strings.TrimSpace(content))
	if text == "" {
		return ""
	}

	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i]) > len(sorted[j])
	})

	for _, id := range sorted {
		if strings.Contains(text, strings.ToLower(id)) {
			return id
		}
	}
	if strings.Contains(text, "finish") {
		return domain.Finish
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resilience-ai/internal/domain"
	"resilience-ai/internal/infra/config"
	"resilience-ai/internal/usecase"
	"resilience-ai/internal/usecase/supervisor"
)

// fixedRouter routes every question to one agent, then finishes.
type fixedRouter struct {
	dest string
}

func (r *fixedRouter) Route(_ context.Context, msgs []domain.Message) (string, error) {
	if domain.LastRole(msgs) == domain.RoleAssistant {
		return domain.Finish, nil
	}
	return r.dest, nil
}

type echoWorker struct {
	id string
}

func (w *echoWorker) ID() string { return w.id }

func (w *echoWorker) Run(_ context.Context, msgs []domain.Message) (domain.Message, error) {
	return domain.Message{
		Role:    domain.RoleAssistant,
		Content: "analysis of: " + domain.LastUserContent(msgs),
		Name:    w.id,
	}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	registry := supervisor.NewRegistry(logger)
	require.NoError(t, registry.Register(&supervisor.AgentInstance{
		Identity: domain.AgentIdentity{ID: "food_agent", Name: "Food", Dataset: "food"},
		Worker:   &echoWorker{id: "food_agent"},
	}))

	sup := supervisor.New(
		&fixedRouter{dest: "food_agent"},
		registry,
		usecase.NewSessionManager(t.TempDir()),
		usecase.NewSessionLocker(),
		nil,
		logger,
		supervisor.Options{MaxRounds: 20},
	)

	return New(config.GatewayConfig{
		Enabled:        true,
		Addr:           ":0",
		RequestsPerMin: 600,
		Burst:          100,
	}, sup, registry, logger)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAgentsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/agents", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Agents []domain.AgentStatus `json:"agents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Agents, 1)
	assert.Equal(t, "food_agent", body.Agents[0].ID)
}

func TestChatEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/chat",
		strings.NewReader(`{"message": "food production in Kenya"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "analysis of: food production in Kenya", body.Response)
	assert.NotEmpty(t, body.SessionID)
	assert.Equal(t, []string{"supervisor", "food_agent", "supervisor"}, body.Trace)
}

func TestChatEndpointResumesSession(t *testing.T) {
	srv := newTestServer(t)

	first := httptest.NewRecorder()
	srv.Handler().ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/chat",
		strings.NewReader(`{"message": "first question"}`)))
	require.Equal(t, http.StatusOK, first.Code)

	var firstBody chatResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &firstBody))

	second := httptest.NewRecorder()
	srv.Handler().ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/chat",
		strings.NewReader(`{"message": "second question", "session_id": "`+firstBody.SessionID+`"}`)))
	require.Equal(t, http.StatusOK, second.Code)

	var secondBody chatResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &secondBody))
	assert.Equal(t, firstBody.SessionID, secondBody.SessionID)
}

func TestChatEndpointRejectsBadJSON(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat",
		strings.NewReader(`{not json`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(domain.CodeInvalidInput), body.Code)
}

func TestChatEndpointRejectsEmptyMessage(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat",
		strings.NewReader(`{"message": ""}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSecurityHeadersApplied(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"resilience-ai/internal/domain"
	"resilience-ai/internal/infra/config"
	"resilience-ai/internal/infra/middleware"
	"resilience-ai/internal/usecase/supervisor"
)

// Server exposes the supervisor over HTTP.
type Server struct {
	sup      *supervisor.Supervisor
	registry *supervisor.Registry
	logger   *slog.Logger
	httpSrv  *http.Server
}

// New builds the server with its middleware chain.
func New(cfg config.GatewayConfig, sup *supervisor.Supervisor, registry *supervisor.Registry, logger *slog.Logger) *Server {
	s := &Server{
		sup:      sup,
		registry: registry,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /agents", s.handleAgents)
	mux.HandleFunc("POST /chat", s.handleChat)

	rl := middleware.NewRateLimiter(cfg.RequestsPerMin, cfg.Burst, logger)
	handler := middleware.SecurityHeaders(rl.Wrap(mux))
	handler = middleware.RequestLogger(logger, handler)

	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving requests until Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("gateway listening", "addr", s.httpSrv.Addr)
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler returns the configured handler chain. Intended for testing.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type chatResponse struct {
	Response  string   `json:"response"`
	SessionID string   `json:"session_id"`
	Trace     []string `json:"trace,omitempty"`
	Degraded  bool     `json:"degraded,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"agents": s.registry.List()})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, domain.NewDomainError("gateway.chat", domain.ErrInvalidInput, "malformed JSON body"))
		return
	}

	res, err := s.sup.Ask(r.Context(), req.Message, req.SessionID)
	if err != nil {
		s.logger.Error("ask failed", "error", err, "code", string(domain.ErrorCodeOf(err)))
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:  res.Text,
		SessionID: res.SessionID,
		Trace:     res.Trace,
		Degraded:  res.Degraded,
	})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrAgentNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRateLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrRoutingService), errors.Is(err, domain.ErrProviderError):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{
		Error: err.Error(),
		Code:  string(domain.ErrorCodeOf(err)),
	})
}

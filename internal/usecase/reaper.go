package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"resilience-ai/internal/domain"
)

// SessionReaper deletes stale sessions on a cron schedule.
type SessionReaper struct {
	sessions *SessionManager
	bus      domain.EventBus
	logger   *slog.Logger
	maxAge   time.Duration
	cron     *cron.Cron
}

// NewSessionReaper creates a reaper. schedule is a cron expression
// (descriptors like "@hourly" are accepted).
func NewSessionReaper(sessions *SessionManager, bus domain.EventBus, logger *slog.Logger, schedule string, maxAge time.Duration) (*SessionReaper, error) {
	r := &SessionReaper{
		sessions: sessions,
		bus:      bus,
		logger:   logger,
		maxAge:   maxAge,
		cron:     cron.New(),
	}
	if _, err := r.cron.AddFunc(schedule, r.reap); err != nil {
		return nil, domain.NewDomainError("SessionReaper", domain.ErrInvalidInput, "bad reap schedule "+schedule)
	}
	return r, nil
}

// Start begins the schedule in a background goroutine.
func (r *SessionReaper) Start() {
	r.cron.Start()
}

// Stop halts the schedule and waits for a running reap to finish.
func (r *SessionReaper) Stop() {
	<-r.cron.Stop().Done()
}

func (r *SessionReaper) reap() {
	n := r.sessions.ReapStaleSessions(r.maxAge)
	if n == 0 {
		return
	}
	r.logger.Info("reaped stale sessions", "count", n, "max_age", r.maxAge)
	publishEvent(context.Background(), r.bus, domain.EventSessionReaped, map[string]any{
		"count": n,
	})
}

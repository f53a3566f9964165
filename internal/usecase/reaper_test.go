package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resilience-ai/internal/domain"
)

func TestNewSessionReaperRejectsBadSchedule(t *testing.T) {
	sm := NewSessionManager(t.TempDir())
	_, err := NewSessionReaper(sm, nil, discardLogger(), "not a cron expr", time.Hour)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSessionReaperReap(t *testing.T) {
	sm := NewSessionManager(t.TempDir())
	stale := sm.Create()
	stale.mu.Lock()
	stale.UpdatedAt = time.Now().Add(-2 * time.Hour)
	stale.mu.Unlock()

	r, err := NewSessionReaper(sm, nil, discardLogger(), "@hourly", time.Hour)
	require.NoError(t, err)

	r.reap()

	_, err = sm.Get(stale.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionReaperStartStop(t *testing.T) {
	sm := NewSessionManager(t.TempDir())
	r, err := NewSessionReaper(sm, nil, discardLogger(), "@every 1h", time.Hour)
	require.NoError(t, err)

	r.Start()
	r.Stop()
}

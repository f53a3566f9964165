package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLockerSerializes(t *testing.T) {
	sl := NewSessionLocker()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		running int
		peak    int
	)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := sl.Lock(ctx, "session-1")
			require.NoError(t, err)
			defer unlock()

			mu.Lock()
			running++
			if running > peak {
				peak = running
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, peak, "at most one holder per session at a time")
	assert.Equal(t, 0, sl.ActiveCount(), "lock entries are cleaned up")
}

func TestSessionLockerIndependentSessions(t *testing.T) {
	sl := NewSessionLocker()
	ctx := context.Background()

	unlockA, err := sl.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	// A held lock on "a" must not block "b".
	done := make(chan struct{})
	go func() {
		unlockB, err := sl.Lock(ctx, "b")
		if err == nil {
			unlockB()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on independent session blocked")
	}
}

func TestSessionLockerContextCancelled(t *testing.T) {
	sl := NewSessionLocker()

	unlock, err := sl.Lock(context.Background(), "busy")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = sl.Lock(ctx, "busy")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()

	// The abandoned waiter eventually releases; the entry must not leak.
	assert.Eventually(t, func() bool {
		return sl.ActiveCount() == 0
	}, time.Second, 5*time.Millisecond)
}

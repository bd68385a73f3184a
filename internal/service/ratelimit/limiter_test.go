package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowUpToLimit(t *testing.T) {
	l := New(10, time.Minute)

	for i := 0; i < 10; i++ {
		require.NoError(t, l.Allow("1.2.3.4", PurposeChat), "request %d should pass", i+1)
	}

	err := l.Allow("1.2.3.4", PurposeChat)
	assert.ErrorIs(t, err, ErrTooManyRequests)
}

func TestWindowResetStartsAtOne(t *testing.T) {
	l := New(2, 30*time.Millisecond)

	require.NoError(t, l.Allow("1.2.3.4", PurposeChat))
	require.NoError(t, l.Allow("1.2.3.4", PurposeChat))
	require.Error(t, l.Allow("1.2.3.4", PurposeChat))

	time.Sleep(40 * time.Millisecond)

	// New window: counter begins again at 1, so two more pass.
	require.NoError(t, l.Allow("1.2.3.4", PurposeChat))
	require.NoError(t, l.Allow("1.2.3.4", PurposeChat))
	assert.Error(t, l.Allow("1.2.3.4", PurposeChat))
}

func TestPurposesCountedIndependently(t *testing.T) {
	l := New(1, time.Minute)

	require.NoError(t, l.Allow("1.2.3.4", PurposeChat))
	require.NoError(t, l.Allow("1.2.3.4", PurposeContactSearch))
	assert.Error(t, l.Allow("1.2.3.4", PurposeChat))
	assert.Error(t, l.Allow("1.2.3.4", PurposeContactSearch))
}

func TestClientsCountedIndependently(t *testing.T) {
	l := New(1, time.Minute)

	require.NoError(t, l.Allow("1.2.3.4", PurposeChat))
	require.NoError(t, l.Allow("5.6.7.8", PurposeChat))
}

func TestRejectedRequestsDoNotAdvanceCounter(t *testing.T) {
	l := New(2, time.Minute)

	require.NoError(t, l.Allow("1.2.3.4", PurposeChat))
	require.NoError(t, l.Allow("1.2.3.4", PurposeChat))
	for i := 0; i < 5; i++ {
		require.Error(t, l.Allow("1.2.3.4", PurposeChat))
	}

	l.mu.Lock()
	count := l.windows["chat_1.2.3.4"].count
	l.mu.Unlock()
	assert.Equal(t, 2, count)
}

func TestClear(t *testing.T) {
	l := New(1, time.Minute)

	require.NoError(t, l.Allow("1.2.3.4", PurposeChat))
	require.Error(t, l.Allow("1.2.3.4", PurposeChat))

	l.Clear()
	assert.NoError(t, l.Allow("1.2.3.4", PurposeChat))
}

func TestSweeperRemovesExpiredWindows(t *testing.T) {
	l := New(1, 10*time.Millisecond)
	require.NoError(t, l.Allow("1.2.3.4", PurposeChat))

	l.StartSweeper(20 * time.Millisecond)
	defer l.Stop()

	assert.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.windows) == 0
	}, time.Second, 10*time.Millisecond)
}

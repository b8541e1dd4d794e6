package throttle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// newIdleKeeper builds a keeper without the background ticker so tests can
// drive time by calling tick directly.
func newIdleKeeper(windowSeconds int) *Keeper {
	return &Keeper{
		window:   windowSeconds,
		sessions: make(map[string]int),
		logger:   zap.NewNop(),
	}
}

func TestTripStartsCooldown(t *testing.T) {
	k := newIdleKeeper(30)

	assert.Equal(t, 0, k.Remaining("session-1"))

	k.Trip("session-1")

	assert.Equal(t, 30, k.Remaining("session-1"))
	assert.Equal(t, 0, k.Remaining("session-2"), "cooldown is per session")
}

func TestTickCountsDownToIdle(t *testing.T) {
	k := newIdleKeeper(3)
	k.Trip("session-1")

	k.tick()
	assert.Equal(t, 2, k.Remaining("session-1"))

	k.tick()
	assert.Equal(t, 1, k.Remaining("session-1"))

	k.tick()
	assert.Equal(t, 0, k.Remaining("session-1"))
	assert.Empty(t, k.sessions, "expired sessions are removed")
}

func TestTripAfterExpiryRestartsWindow(t *testing.T) {
	k := newIdleKeeper(2)
	k.Trip("session-1")

	k.tick()
	k.tick()
	assert.Equal(t, 0, k.Remaining("session-1"))

	k.Trip("session-1")
	assert.Equal(t, 2, k.Remaining("session-1"))
}

func TestTickAdvancesAllSessions(t *testing.T) {
	k := newIdleKeeper(5)
	k.Trip("a")
	k.Trip("b")

	k.tick()

	assert.Equal(t, 4, k.Remaining("a"))
	assert.Equal(t, 4, k.Remaining("b"))
}

func TestZeroWindowNeverCoolsDown(t *testing.T) {
	k := newIdleKeeper(0)
	k.Trip("session-1")

	assert.Equal(t, 0, k.Remaining("session-1"))
}

func TestStopReleasesTicker(t *testing.T) {
	k := NewKeeper(30*time.Second, nil)
	k.Trip("session-1")

	assert.Equal(t, 30, k.Remaining("session-1"))

	k.Stop()
}

// Package throttle implements the per-session submission cooldown: after a
// successful commit a session is blocked from committing again until a fixed
// window elapses. It is an advisory client-side guard layered in front of
// validation, not a substitute for server-side idempotency.
package throttle

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Keeper tracks cooldown state per session. Each session is either idle
// (absent from the map) or cooling down with a whole-second remainder that a
// single shared one-second ticker counts down. Stop must be called on
// teardown so the ticker goroutine does not outlive its owner.
type Keeper struct {
	mu       sync.Mutex
	window   int
	sessions map[string]int
	ticker   *time.Ticker
	done     chan struct{}
	logger   *zap.Logger
}

// NewKeeper starts a keeper whose cooldown lasts the given window, rounded
// down to whole seconds.
func NewKeeper(window time.Duration, logger *zap.Logger) *Keeper {
	if logger == nil {
		logger = zap.NewNop()
	}

	k := &Keeper{
		window:   int(window / time.Second),
		sessions: make(map[string]int),
		ticker:   time.NewTicker(time.Second),
		done:     make(chan struct{}),
		logger:   logger,
	}

	go k.run()

	return k
}

// Remaining returns the seconds left in the session's cooldown, or zero when
// the session is idle and free to commit.
func (k *Keeper) Remaining(session string) int {
	k.mu.Lock()
	defer k.mu.Unlock()

	return k.sessions[session]
}

// Trip puts the session into cooldown for the full window. Called after a
// successful commit.
func (k *Keeper) Trip(session string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.window <= 0 {
		return
	}

	k.sessions[session] = k.window
	k.logger.Debug("cooldown started", zap.String("session", session), zap.Int("seconds", k.window))
}

// Stop cancels the ticker goroutine. The keeper must not be used afterwards.
func (k *Keeper) Stop() {
	close(k.done)
	k.ticker.Stop()
}

func (k *Keeper) run() {
	for {
		select {
		case <-k.done:
			return
		case <-k.ticker.C:
			k.tick()
		}
	}
}

// tick advances every active cooldown by one second, clearing sessions that
// reach zero.
func (k *Keeper) tick() {
	k.mu.Lock()
	defer k.mu.Unlock()

	for session, remaining := range k.sessions {
		remaining--
		if remaining <= 0 {
			delete(k.sessions, session)
			continue
		}
		k.sessions[session] = remaining
	}
}

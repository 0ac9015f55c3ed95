// Package lock provides per-player locking for handler-level ledger work.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockTimeout is returned when a lock cannot be acquired in time.
var ErrLockTimeout = errors.New("lock acquisition timeout")

// PlayerLock hands out one mutex per player id. Row locks in the database remain the source
// of truth; this only keeps a single player's double-taps from queueing on the same rows.
type PlayerLock struct {
	locks sync.Map // map[int64]*sync.Mutex
}

// NewPlayerLock creates a new PlayerLock instance.
func NewPlayerLock() *PlayerLock {
	return &PlayerLock{}
}

func (pl *PlayerLock) get(playerID int64) *sync.Mutex {
	if v, ok := pl.locks.Load(playerID); ok {
		return v.(*sync.Mutex)
	}
	actual, _ := pl.locks.LoadOrStore(playerID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// Lock acquires the lock for a player.
func (pl *PlayerLock) Lock(playerID int64) {
	pl.get(playerID).Lock()
}

// Unlock releases the lock for a player.
func (pl *PlayerLock) Unlock(playerID int64) {
	pl.get(playerID).Unlock()
}

// TryLock attempts to acquire the lock without blocking.
func (pl *PlayerLock) TryLock(playerID int64) bool {
	return pl.get(playerID).TryLock()
}

// LockPair acquires both players' locks in ascending id order and returns the matching unlock.
// Equal ids take a single lock.
func (pl *PlayerLock) LockPair(a, b int64) (unlock func()) {
	if a == b {
		pl.Lock(a)
		return func() { pl.Unlock(a) }
	}
	lo, hi := min(a, b), max(a, b)
	pl.Lock(lo)
	pl.Lock(hi)
	return func() {
		pl.Unlock(hi)
		pl.Unlock(lo)
	}
}

// WithLock executes fn while holding the player's lock.
func (pl *PlayerLock) WithLock(playerID int64, fn func() error) error {
	pl.Lock(playerID)
	defer pl.Unlock(playerID)
	return fn()
}

// WithPair executes fn while holding both players' locks.
func (pl *PlayerLock) WithPair(a, b int64, fn func() error) error {
	unlock := pl.LockPair(a, b)
	defer unlock()
	return fn()
}

// WithLockContext executes fn while holding the player's lock, giving up after timeout
// or when ctx is done.
func (pl *PlayerLock) WithLockContext(ctx context.Context, playerID int64, timeout time.Duration, fn func() error) error {
	mu := pl.get(playerID)

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()

	for !mu.TryLock() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return ErrLockTimeout
		case <-tick.C:
		}
	}
	defer mu.Unlock()
	return fn()
}

package models

import (
	"context"
	"sync"
	"time"
)

// AccountLockManager serializes engine operations per user before they
// reach the database row locks. Uses per-user locks instead of a global
// lock so unrelated users never contend with each other.
type AccountLockManager struct {
	userLocks map[int]chan struct{} // user_id → semaphore of size 1
	mapMutex  sync.Mutex            // protects the map itself
}

// NewAccountLockManager creates a new lock manager
func NewAccountLockManager() *AccountLockManager {
	return &AccountLockManager{
		userLocks: make(map[int]chan struct{}),
	}
}

func (m *AccountLockManager) lock(userID int) chan struct{} {
	m.mapMutex.Lock()
	defer m.mapMutex.Unlock()

	if m.userLocks[userID] == nil {
		m.userLocks[userID] = make(chan struct{}, 1)
	}
	return m.userLocks[userID]
}

// LockUser acquires the lock for a specific user, giving up after the
// timeout or when the context is cancelled. Returns false when the lock
// could not be acquired.
func (m *AccountLockManager) LockUser(ctx context.Context, userID int, timeout time.Duration) bool {
	sem := m.lock(userID)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case sem <- struct{}{}:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// UnlockUser releases the lock for a specific user
func (m *AccountLockManager) UnlockUser(userID int) {
	sem := m.lock(userID)

	select {
	case <-sem:
	default:
		// Unlock without a matching lock is a programming error; make it
		// harmless rather than panicking.
	}
}

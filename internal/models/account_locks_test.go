package models

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccountLockManagerSerializesPerUser(t *testing.T) {
	locks := NewAccountLockManager()
	ctx := context.Background()

	assert.True(t, locks.LockUser(ctx, 1, 50*time.Millisecond))

	// Same user contends and times out.
	assert.False(t, locks.LockUser(ctx, 1, 20*time.Millisecond))

	// A different user is unaffected.
	assert.True(t, locks.LockUser(ctx, 2, 20*time.Millisecond))
	locks.UnlockUser(2)

	locks.UnlockUser(1)
	assert.True(t, locks.LockUser(ctx, 1, 20*time.Millisecond))
	locks.UnlockUser(1)
}

func TestAccountLockManagerContextCancel(t *testing.T) {
	locks := NewAccountLockManager()
	ctx := context.Background()

	assert.True(t, locks.LockUser(ctx, 7, 50*time.Millisecond))
	defer locks.UnlockUser(7)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.False(t, locks.LockUser(cancelled, 7, time.Second))
}

func TestAccountLockManagerUnlockWithoutLock(t *testing.T) {
	locks := NewAccountLockManager()

	// Must not panic or poison the lock.
	locks.UnlockUser(3)
	assert.True(t, locks.LockUser(context.Background(), 3, 20*time.Millisecond))
	locks.UnlockUser(3)
}

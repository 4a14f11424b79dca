package service

import (
	"fmt"
	"time"
)

// DefaultLockTTL is how long a locked booking holds its slot before it is
// considered abandoned.
const DefaultLockTTL = 5 * time.Minute

// SlotLocker places and reclaims time-bounded soft locks on booking windows.
// Locks are rows in the bookings table with status 'locked'; isolating the
// protocol behind this interface keeps a future swap to a real lease service
// a drop-in replacement.
type SlotLocker interface {
	TryAcquire(hostID int, start, end time.Time) (bool, error)
	Reap() (int64, error)
}

// LockStore is the slice of the booking ledger the lock manager needs.
type LockStore interface {
	DeleteExpiredLock(hostID int, start, before time.Time) error
	HasActiveOverlap(hostID int, start, end, expiryThreshold time.Time) (bool, error)
	DeleteExpiredLocks(before time.Time) (int64, error)
}

// LockManager serializes slot acquisition attempts into a grant/deny decision
// using the booking ledger itself as the lock table, with the TTL encoded as
// booking age. It does not insert the locked row; the caller persists it so
// price, customer and provider metadata land together with the grant.
type LockManager struct {
	store LockStore
	ttl   time.Duration
	now   func() time.Time
}

func NewLockManager(store LockStore, ttl time.Duration) *LockManager {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &LockManager{store: store, ttl: ttl, now: time.Now}
}

// TryAcquire reports whether the caller may hold [start, end) for the host.
// An expired lock on the exact slot is reaped first so the (host, start_time)
// uniqueness constraint cannot reject a legitimate retry after a prior lock
// timed out.
func (m *LockManager) TryAcquire(hostID int, start, end time.Time) (bool, error) {
	expiryThreshold := m.now().Add(-m.ttl)

	if err := m.store.DeleteExpiredLock(hostID, start, expiryThreshold); err != nil {
		return false, fmt.Errorf("reaping expired lock: %w", err)
	}

	busy, err := m.store.HasActiveOverlap(hostID, start, end, expiryThreshold)
	if err != nil {
		return false, fmt.Errorf("checking for overlapping reservation: %w", err)
	}
	return !busy, nil
}

// Reap deletes every expired lock system-wide and returns how many were
// reclaimed. Run on a fixed interval by the cron scheduler.
func (m *LockManager) Reap() (int64, error) {
	return m.store.DeleteExpiredLocks(m.now().Add(-m.ttl))
}

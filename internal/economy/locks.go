package economy

import "sync"

// accountLocks serializes mutations per account so read-check-update sequences
// on a single balance cannot interleave. Cross-account operations must take
// both locks through lockPair, which orders by user id to avoid deadlock.
type accountLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[int64]*sync.Mutex)}
}

// lock acquires the mutex for userID and returns its release func.
func (l *accountLocks) lock(userID int64) func() {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// lockPair acquires both account locks in ascending user id order.
func (l *accountLocks) lockPair(a, b int64) func() {
	if a == b {
		return l.lock(a)
	}
	if b < a {
		a, b = b, a
	}

	unlockA := l.lock(a)
	unlockB := l.lock(b)
	return func() {
		unlockB()
		unlockA()
	}
}

package service

import "sync"

// ownerLocks hands out one mutex per owner so ingest and delete for the
// same owner serialize their vector-collection mutations without making
// unrelated owners contend.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: make(map[int64]*sync.Mutex)}
}

// lock acquires the owner's mutex, creating it on first use, and returns
// the unlock func.
func (l *ownerLocks) lock(ownerID int64) func() {
	l.mu.Lock()
	m, ok := l.locks[ownerID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[ownerID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

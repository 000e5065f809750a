package services

import "sync"

// PoolLocks serializes read-modify-write sequences per pool. The ledger and
// yield services share one instance so a purchase and a distribution on the
// same pool can never interleave.
type PoolLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewPoolLocks() *PoolLocks {
	return &PoolLocks{locks: make(map[int64]*sync.Mutex)}
}

// Lock acquires the mutex for poolID, creating it on first use, and returns
// the unlock function.
func (p *PoolLocks) Lock(poolID int64) func() {
	p.mu.Lock()
	m, ok := p.locks[poolID]
	if !ok {
		m = &sync.Mutex{}
		p.locks[poolID] = m
	}
	p.mu.Unlock()

	m.Lock()
	return m.Unlock
}

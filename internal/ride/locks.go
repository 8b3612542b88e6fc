package ride

import "sync"

// rideLocks hands out one mutex per message ID. A join's
// check-capacity/create-thread/append/persist sequence has to be a
// critical section per ride; two joins racing for the last seat must
// not both pass the capacity check.
type rideLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newRideLocks() *rideLocks {
	return &rideLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for key and returns the unlock func.
func (l *rideLocks) acquire(key string) func() {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// forget drops the mutex for a ride that left the active board.
func (l *rideLocks) forget(key string) {
	l.mu.Lock()
	delete(l.locks, key)
	l.mu.Unlock()
}

package ride

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRideLocksSerializePerKey(t *testing.T) {
	locks := newRideLocks()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.acquire("ride-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestRideLocksIndependentKeys(t *testing.T) {
	locks := newRideLocks()

	unlockA := locks.acquire("ride-a")
	// A held lock on one ride must not block another ride.
	done := make(chan struct{})
	go func() {
		unlockB := locks.acquire("ride-b")
		unlockB()
		close(done)
	}()
	<-done
	unlockA()
}

func TestRideLocksForget(t *testing.T) {
	locks := newRideLocks()

	unlock := locks.acquire("ride-1")
	unlock()
	locks.forget("ride-1")

	// Re-acquiring after forget mints a fresh mutex.
	unlock = locks.acquire("ride-1")
	unlock()
	assert.Len(t, locks.locks, 1)
}

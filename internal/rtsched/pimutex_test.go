package rtsched

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestPIMutexExcludesConcurrentHolders(t *testing.T) {
	m := NewPIMutex(nil)

	m.Lock(0)
	locked := make(chan struct{})
	go func() {
		m.Lock(0)
		close(locked)
		m.Unlock()
	}()

	select {
	case <-locked:
		t.Fatal("second Lock returned while the first holder still held the mutex")
	case <-time.After(20 * time.Millisecond):
	}

	m.Unlock()

	select {
	case <-locked:
	case <-time.After(time.Second):
		t.Fatal("second Lock never acquired the mutex after Unlock")
	}
}

func TestBoostedReflectsQueuedHighPriorityWaiter(t *testing.T) {
	logger := zerolog.Nop()
	m := NewPIMutex(&logger)

	m.Lock(0)
	assert.False(t, m.Boosted(), "holder should not be boosted before any real-time waiter queues")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.Lock(FIFOPriority)
		m.Unlock()
	}()

	// Give the real-time-priority waiter a chance to register itself.
	time.Sleep(20 * time.Millisecond)
	assert.True(t, m.Boosted(), "holder should be boosted once a FIFOPriority waiter is queued")

	m.Unlock()
	wg.Wait()
}

func TestUnlockClearsBoostOnceUncontended(t *testing.T) {
	m := NewPIMutex(nil)

	m.Lock(FIFOPriority)
	m.Unlock()

	assert.False(t, m.Boosted(), "boost must clear once the last waiter has released the mutex")
}

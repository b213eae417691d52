package adapters

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	km := NewKeyedMutex()

	const workers = 100
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := km.Acquire("conv-1")
			defer release()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := NewKeyedMutex()

	// A held lock on one key must not block another key; a regression here
	// deadlocks the test.
	releaseA := km.Acquire("a")
	releaseB := km.Acquire("b")
	releaseB()
	releaseA()
}

func TestKeyedMutexCleansUpEntries(t *testing.T) {
	km := NewKeyedMutex()

	for i := 0; i < 10; i++ {
		release := km.Acquire("conv-1")
		release()
	}

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.locks, "released keys must not accumulate")
}

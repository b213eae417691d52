package adapters

import "sync"

// KeyedMutex serializes critical sections per key while leaving different
// keys fully independent. The arbiter holds one entry for the whole
// read-modify-write cycle of a conversation, so concurrent turns on the same
// conversation (retries, duplicate delivery) cannot lose counter updates.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		locks: make(map[string]*keyLock),
	}
}

// Acquire blocks until the key's lock is held and returns the release
// function. Entries are reference-counted and removed when unused, so the
// map does not grow with the number of conversations ever seen.
func (km *KeyedMutex) Acquire(key string) (release func()) {
	km.mu.Lock()
	kl, exists := km.locks[key]
	if !exists {
		kl = &keyLock{}
		km.locks[key] = kl
	}
	kl.refs++
	km.mu.Unlock()

	kl.mu.Lock()

	return func() {
		kl.mu.Unlock()

		km.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(km.locks, key)
		}
		km.mu.Unlock()
	}
}

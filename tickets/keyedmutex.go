package tickets

import "sync"

// keyedMutex serializes transitions per ticket and per (guild, owner)
// so conflicting lifecycle changes on the same subject never interleave.
// Locks are kept for the process lifetime, bounded by the number of
// distinct keys ever seen.
type keyedMutex struct {
	mutex sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{
		locks: make(map[string]*sync.Mutex),
	}
}

func (k *keyedMutex) Lock(key string) {
	k.mutex.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = new(sync.Mutex)
		k.locks[key] = lock
	}
	k.mutex.Unlock()

	lock.Lock()
}

func (k *keyedMutex) Unlock(key string) {
	k.mutex.Lock()
	lock := k.locks[key]
	k.mutex.Unlock()

	if lock != nil {
		lock.Unlock()
	}
}

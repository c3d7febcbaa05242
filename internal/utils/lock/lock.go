// Package lock provides a mutex keyed by entity id. Calls against the same
// record are serialized; unrelated records proceed independently.
package lock

import "sync"

// KeyedMutex hands out one mutex per key. The zero value is ready to use.
type KeyedMutex struct {
	mus sync.Map // key -> *sync.Mutex
}

// Lock acquires the mutex for key and returns the matching unlock func.
//
//	unlock := locks.Lock("payout:42")
//	defer unlock()
func (k *KeyedMutex) Lock(key string) func() {
	v, _ := k.mus.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

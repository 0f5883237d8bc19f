package cashflow

import "sync"

// keyedMutex hands out one mutex per key. It backs the per-template
// serialization of materialization runs: two concurrent runs can never both
// pass the idempotency check for the same template before either writes.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// forget drops the mutex for key so the map does not grow as keys churn.
// A goroutine already blocked on the old mutex still acquires it; that is
// harmless here because forget is only called once the template behind the
// key is gone and any late run fails its store lookups.
func (k *keyedMutex) forget(key string) {
	k.mu.Lock()
	delete(k.locks, key)
	k.mu.Unlock()
}

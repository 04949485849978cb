package jobs

import "sync"

// LockRegistry hands out named in-process mutexes. Jobs serialize on a name
// rather than a shared lock, so independent jobs never contend. Locks are
// created on first use and live for the life of the process.
type LockRegistry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLockRegistry creates an empty lock registry
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{locks: make(map[string]*sync.Mutex)}
}

func (r *LockRegistry) get(name string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[name]
	if !ok {
		l = &sync.Mutex{}
		r.locks[name] = l
	}
	return l
}

// Acquire blocks until the named lock is held.
func (r *LockRegistry) Acquire(name string) {
	r.get(name).Lock()
}

// Release unlocks the named lock. Calling Release without a matching Acquire
// panics, same as sync.Mutex.
func (r *LockRegistry) Release(name string) {
	r.get(name).Unlock()
}

// Do runs fn while holding the named lock. The lock is released even when fn
// panics.
func (r *LockRegistry) Do(name string, fn func()) {
	l := r.get(name)
	l.Lock()
	defer l.Unlock()
	fn()
}

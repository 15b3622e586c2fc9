// Package lock provides the per-room exclusive critical section used by the
// booking coordinator. Keys are independent: holding one never blocks another.
package lock

import (
	"context"
	"sync"
)

// Unlock releases a held lock. Calling it more than once is a no-op.
type Unlock func()

// Locker acquires an exclusive lock for a key, waiting until it is free or ctx ends.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

type entry struct {
	ch   chan struct{}
	refs int
}

// KeyedMutex is an in-process lock table keyed by string.
// Entries are created on demand and dropped once no goroutine holds or waits on them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// NewKeyedMutex creates an empty lock table.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*entry)}
}

// Lock blocks until key is free, then holds it until the returned Unlock is called.
func (k *KeyedMutex) Lock(ctx context.Context, key string) (Unlock, error) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			k.release(key, e)
		})
	}, nil
}

func (k *KeyedMutex) release(key string, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}

// Len returns the number of keys currently held or waited on.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

package resolver

import (
	"context"
	"sync"
	"time"
)

// Locker serializes resolution work on a per-identity key. The redis-backed
// Locker satisfies this for multi-instance deployments; KeyedLocker is the
// single-process default.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error
}

// KeyedLocker is an in-process Locker backed by per-key mutexes. TTLs are
// ignored since the lock dies with the process.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedLocker creates a new KeyedLocker
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{
		locks: make(map[string]*keyedLock),
	}
}

// WithLock executes fn while holding the lock for key
func (l *KeyedLocker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	lock := l.acquire(key)
	lock.mu.Lock()
	defer func() {
		lock.mu.Unlock()
		l.release(key, lock)
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn()
}

func (l *KeyedLocker) acquire(key string) *keyedLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[key]
	if !ok {
		lock = &keyedLock{}
		l.locks[key] = lock
	}
	lock.refs++
	return lock
}

func (l *KeyedLocker) release(key string, lock *keyedLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, key)
	}
}

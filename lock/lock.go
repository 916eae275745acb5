// Package lock serializes work on a named resource.
//
// The ledger already holds a mutex per contract. A Locker is only needed
// when several processes share one journal store; the engine then takes the
// contract's named lock, catches up from the journal and applies the
// operation while the lock is held.
package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrNotAcquired is returned when the lock could not be taken before the
	// context ended or the retry budget ran out.
	ErrNotAcquired = errors.New("lock: not acquired")

	// ErrEmptyKey is returned for a blank lock key.
	ErrEmptyKey = errors.New("lock: key cannot be empty")

	// ErrNilFunc is returned when WithLock is given a nil function.
	ErrNilFunc = errors.New("lock: function is nil")
)

// Locker runs fn while holding the lock named key. The error returned by fn
// is passed through unchanged.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// Validate checks the arguments common to every Locker.
func Validate(key string, fn func(context.Context) error) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	if fn == nil {
		return ErrNilFunc
	}
	return nil
}

var _ Locker = (*Local)(nil)

// Local is an in-process Locker with one slot per key. Idle keys are
// released so the map does not grow with the number of contracts.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocal returns an empty Local.
func NewLocal() *Local {
	return &Local{slots: make(map[string]*slot)}
}

// WithLock implements Locker. Waiting honours ctx.
func (l *Local) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if err := Validate(key, fn); err != nil {
		return err
	}

	s := l.ref(key)
	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, s)
		return fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctx.Err())
	}

	defer func() {
		<-s.ch
		l.unref(key, s)
	}()

	return fn(ctx)
}

// Held returns the number of keys with a holder or waiter.
func (l *Local) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

func (l *Local) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *Local) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// Package lock provides keyed lockers that serialise reservation writes per
// resource and per actor. Local guards a single process; Redis guards several
// instances sharing one database.
package lock

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// ErrNotAcquired is returned when a lock could not be taken before the
// context ended or the wait budget ran out.
var ErrNotAcquired = errors.New("lock: not acquired")

// Local is an in-process keyed mutex. The zero value is ready to use.
// A key's slot lives only while some caller holds or waits on it.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocal returns an empty in-process locker.
func NewLocal() *Local {
	return &Local{}
}

// Lock acquires every key in sorted order and returns a release function.
// Duplicate keys are acquired once. Waiting stops when ctx is done.
func (l *Local) Lock(ctx context.Context, keys ...string) (func(), error) {
	ordered := normalizeKeys(keys)
	held := make([]string, 0, len(ordered))

	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.unref(held[i], true)
		}
	}

	for _, key := range ordered {
		s := l.ref(key)
		select {
		case s.ch <- struct{}{}:
			held = append(held, key)
		case <-ctx.Done():
			l.unref(key, false)
			release()
			return nil, errors.Join(ErrNotAcquired, ctx.Err())
		}
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (l *Local) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.slots == nil {
		l.slots = make(map[string]*slot)
	}
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

// unref drops a reference taken by ref, draining the slot first when the
// caller held it.
func (l *Local) unref(key string, held bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.slots[key]
	if held {
		<-s.ch
	}
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// normalizeKeys sorts and deduplicates keys so concurrent callers acquire in
// the same order.
func normalizeKeys(keys []string) []string {
	ordered := make([]string, 0, len(keys))
	for _, key := range keys {
		if key != "" {
			ordered = append(ordered, key)
		}
	}
	slices.Sort(ordered)
	return slices.Compact(ordered)
}

// Package locking provides per-entity mutual exclusion for the coordination
// engine. Every mutating operation locks the entities it touches; operations
// on disjoint entities run in parallel. Multi-entity operations acquire keys
// in a single global order to stay deadlock-free.
package locking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/labops/labops/internal/platform/apperr"
)

// Key identifies one lockable entity, e.g. "order/<uuid>".
type Key string

// OrderKey builds the lock key for a lab order.
func OrderKey(id string) Key { return Key("order/" + id) }

// CollectorKey builds the lock key for a collector.
func CollectorKey(id string) Key { return Key("collector/" + id) }

// ItemKey builds the lock key for an inventory item.
func ItemKey(id string) Key { return Key("item/" + id) }

type entry struct {
	ch   chan struct{} // capacity 1; holding the token means holding the lock
	refs int
}

// KeyedMutex hands out one mutex per key, created on demand and reclaimed
// when the last holder releases.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[Key]*entry
	timeout time.Duration
}

// NewKeyedMutex creates a KeyedMutex whose Lock calls give up after timeout.
func NewKeyedMutex(timeout time.Duration) *KeyedMutex {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KeyedMutex{
		entries: make(map[Key]*entry),
		timeout: timeout,
	}
}

func (km *KeyedMutex) acquire(ctx context.Context, key Key) error {
	km.mu.Lock()
	e, ok := km.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		km.entries[key] = e
	}
	e.refs++
	km.mu.Unlock()

	timer := time.NewTimer(km.timeout)
	defer timer.Stop()

	select {
	case e.ch <- struct{}{}:
		return nil
	case <-timer.C:
		km.release(key, false)
		return apperr.Contention("lock on %s not acquired within %s", key, km.timeout)
	case <-ctx.Done():
		km.release(key, false)
		return apperr.Wrap(apperr.KindContention, ctx.Err(), "lock on "+string(key))
	}
}

func (km *KeyedMutex) release(key Key, held bool) {
	km.mu.Lock()
	defer km.mu.Unlock()
	e, ok := km.entries[key]
	if !ok {
		return
	}
	if held {
		<-e.ch
	}
	e.refs--
	if e.refs == 0 {
		delete(km.entries, key)
	}
}

// Lock acquires every key, sorted into the global order, and returns an
// unlock function. On any acquisition failure the keys already held are
// released and a contention error is returned.
func (km *KeyedMutex) Lock(ctx context.Context, keys ...Key) (func(), error) {
	sorted := make([]Key, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	// drop duplicates so the same entity counted twice cannot self-deadlock
	uniq := sorted[:0]
	for i, k := range sorted {
		if i == 0 || sorted[i-1] != k {
			uniq = append(uniq, k)
		}
	}

	held := make([]Key, 0, len(uniq))
	for _, k := range uniq {
		if err := km.acquire(ctx, k); err != nil {
			for i := len(held) - 1; i >= 0; i-- {
				km.release(held[i], true)
			}
			return nil, err
		}
		held = append(held, k)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(held) - 1; i >= 0; i-- {
				km.release(held[i], true)
			}
		})
	}, nil
}

package locking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/labops/labops/internal/platform/apperr"
)

func TestLock_Exclusive(t *testing.T) {
	km := NewKeyedMutex(time.Second)
	unlock, err := km.Lock(context.Background(), OrderKey("a"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		u, err := km.Lock(context.Background(), OrderKey("a"))
		if err != nil {
			t.Errorf("second lock failed: %v", err)
			close(done)
			return
		}
		u()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second lock acquired while first still held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired after release")
	}
}

func TestLock_DisjointKeysParallel(t *testing.T) {
	km := NewKeyedMutex(time.Second)
	u1, err := km.Lock(context.Background(), OrderKey("a"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer u1()

	u2, err := km.Lock(context.Background(), OrderKey("b"), CollectorKey("c"))
	if err != nil {
		t.Fatalf("disjoint lock should not block: %v", err)
	}
	u2()
}

func TestLock_Timeout(t *testing.T) {
	km := NewKeyedMutex(30 * time.Millisecond)
	unlock, err := km.Lock(context.Background(), ItemKey("kit"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer unlock()

	_, err = km.Lock(context.Background(), ItemKey("kit"))
	if !apperr.IsKind(err, apperr.KindContention) {
		t.Fatalf("expected contention error, got %v", err)
	}
}

func TestLock_DuplicateKeys(t *testing.T) {
	km := NewKeyedMutex(time.Second)
	unlock, err := km.Lock(context.Background(), OrderKey("a"), OrderKey("a"))
	if err != nil {
		t.Fatalf("duplicate keys must not self-deadlock: %v", err)
	}
	unlock()
}

func TestLock_OrderingPreventsDeadlock(t *testing.T) {
	km := NewKeyedMutex(2 * time.Second)
	keysA := []Key{OrderKey("1"), CollectorKey("2"), ItemKey("3")}
	keysB := []Key{ItemKey("3"), OrderKey("1"), CollectorKey("2")}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			u, err := km.Lock(context.Background(), keysA...)
			if err != nil {
				t.Errorf("lock A: %v", err)
				return
			}
			u()
		}()
		go func() {
			defer wg.Done()
			u, err := km.Lock(context.Background(), keysB...)
			if err != nil {
				t.Errorf("lock B: %v", err)
				return
			}
			u()
		}()
	}
	wg.Wait()
}

func TestLock_UnlockIdempotent(t *testing.T) {
	km := NewKeyedMutex(time.Second)
	unlock, err := km.Lock(context.Background(), OrderKey("a"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	unlock()
	unlock() // double release must be a no-op

	u2, err := km.Lock(context.Background(), OrderKey("a"))
	if err != nil {
		t.Fatalf("relock after double unlock: %v", err)
	}
	u2()
}

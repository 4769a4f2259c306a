package lock

import (
	"context"
	"testing"
	"time"
)

func TestMemoryTryLock(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	token, ok, err := m.TryLock(ctx, OrderKey("ORD-1"), time.Minute)
	if err != nil || !ok {
		t.Fatalf("first TryLock = (%v, %v), want acquired", ok, err)
	}
	if _, ok, _ := m.TryLock(ctx, OrderKey("ORD-1"), time.Minute); ok {
		t.Fatal("second TryLock acquired a held lock")
	}
	if _, ok, _ := m.TryLock(ctx, OrderKey("ORD-2"), time.Minute); !ok {
		t.Fatal("lock on a different order should be independent")
	}

	// a stale token must not free the current holder
	_ = m.Unlock(ctx, OrderKey("ORD-1"), "stale")
	if _, ok, _ := m.TryLock(ctx, OrderKey("ORD-1"), time.Minute); ok {
		t.Fatal("unlock with wrong token released the lock")
	}

	_ = m.Unlock(ctx, OrderKey("ORD-1"), token)
	if _, ok, _ := m.TryLock(ctx, OrderKey("ORD-1"), time.Minute); !ok {
		t.Fatal("lock not reacquirable after unlock")
	}
}

func TestMemoryLockExpires(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	m.nowFn = func() time.Time { return now }

	if _, ok, _ := m.TryLock(ctx, "k", 10*time.Second); !ok {
		t.Fatal("initial lock failed")
	}
	now = now.Add(11 * time.Second)
	if _, ok, _ := m.TryLock(ctx, "k", 10*time.Second); !ok {
		t.Fatal("expired lock was not reclaimed")
	}
}

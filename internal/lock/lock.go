// Package lock serializes work on a single order across requests. Locks are
// try-locks: a held key is reported to the caller instead of waited on.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
}

type entry struct {
	token   string
	expires time.Time
}

// Memory is an in-process Locker for single-instance deployments and tests.
type Memory struct {
	mu    sync.Mutex
	held  map[string]entry
	nowFn func() time.Time
}

func NewMemory() *Memory {
	return &Memory{held: make(map[string]entry), nowFn: time.Now}
}

func (m *Memory) TryLock(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFn()
	if e, ok := m.held[key]; ok && now.Before(e.expires) {
		return "", false, nil
	}
	token := uuid.NewString()
	m.held[key] = entry{token: token, expires: now.Add(ttl)}
	return token, true, nil
}

func (m *Memory) Unlock(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.held[key]; ok && e.token == token {
		delete(m.held, key)
	}
	return nil
}

// OrderKey is the lock name guarding transitions of one order.
func OrderKey(orderID string) string {
	return "order:" + orderID
}

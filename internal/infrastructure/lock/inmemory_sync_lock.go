package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/boletohub/backend/internal/domain/provider"
	"github.com/google/uuid"
)

// InMemorySyncLock implements provider.SyncLock with a process-local map.
// Suitable for single-instance deployments and testing; leases are not
// shared across processes.
type InMemorySyncLock struct {
	mu     sync.Mutex
	leases map[string]time.Time // key -> expiry
	now    func() time.Time
}

// NewInMemorySyncLock creates an in-memory sync lock
func NewInMemorySyncLock() *InMemorySyncLock {
	return &InMemorySyncLock{
		leases: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Acquire attempts to take the lease
func (l *InMemorySyncLock) Acquire(_ context.Context, tenantID uuid.UUID, code provider.Code, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := memKey(tenantID, code)
	now := l.now()
	if expiry, held := l.leases[key]; held && now.Before(expiry) {
		return false, nil
	}
	l.leases[key] = now.Add(ttl)
	return true, nil
}

// Release frees the lease
func (l *InMemorySyncLock) Release(_ context.Context, tenantID uuid.UUID, code provider.Code) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.leases, memKey(tenantID, code))
	return nil
}

func memKey(tenantID uuid.UUID, code provider.Code) string {
	return fmt.Sprintf("%s:%s", tenantID, code)
}

// Ensure InMemorySyncLock implements SyncLock
var _ provider.SyncLock = (*InMemorySyncLock)(nil)

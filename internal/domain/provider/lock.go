package provider

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SyncLock serializes reconciliation runs. At most one import or sync may
// run at a time for a given tenant and provider; the lease expires on its
// own if the holder dies before releasing.
type SyncLock interface {
	// Acquire attempts to take the lease for the tenant/provider pair.
	// Returns false when another run already holds it.
	Acquire(ctx context.Context, tenantID uuid.UUID, code Code, ttl time.Duration) (bool, error)

	// Release frees the lease. Releasing a lease that already expired is
	// not an error.
	Release(ctx context.Context, tenantID uuid.UUID, code Code) error
}

package provider

import "context"

// BillingProvider is the capability every provider adapter implements:
// list the pending receivables visible through one connection, and check
// the current status of a single receivable by its external id.
//
// Adapters are read-only against the provider. Pagination is handled
// inside ListPending, bounded by a hard page ceiling so a misbehaving API
// cannot loop forever.
type BillingProvider interface {
	// Code returns the provider this adapter talks to
	Code() Code

	// ListPending returns all pending receivables for one connection,
	// normalized into the common shape
	ListPending(ctx context.Context, conn *Connection) ([]Receivable, error)

	// ListFinished returns receivables settled upstream (paid side of the
	// bulk-map sync strategy). Providers without a finished listing return
	// ErrNotSupported.
	ListFinished(ctx context.Context, conn *Connection) ([]Receivable, error)

	// CheckReceivable looks up the current upstream status of a single
	// receivable. A 404 from the provider maps to ReceivableNotFound, not
	// an error.
	CheckReceivable(ctx context.Context, conn *Connection, externalID string) (*StatusInfo, error)
}

// Registry resolves provider adapters by code
type Registry interface {
	// Get returns the adapter for a provider code
	Get(code Code) (BillingProvider, error)
}

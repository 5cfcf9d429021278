package billing

import (
	"context"
	"time"

	"github.com/boletohub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClientRepository defines the interface for client persistence
type ClientRepository interface {
	// FindByID finds a client by ID within a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Client, error)

	// FindByTaxID finds a client by normalized tax id within a tenant
	FindByTaxID(ctx context.Context, tenantID uuid.UUID, taxID string) (*Client, error)

	// FindByCode finds a client by its code within a tenant
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Client, error)

	// FindAllForTenant finds all clients for a tenant
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Client, error)

	// CountForTenant counts clients for a tenant
	CountForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// Save creates or updates a client
	Save(ctx context.Context, client *Client) error
}

// InvoiceRepository defines the interface for invoice persistence.
// All reads exclude soft-deleted rows unless stated otherwise.
type InvoiceRepository interface {
	// FindByID finds an invoice by ID within a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)

	// FindByDedupeKey finds an invoice matching the import de-duplication
	// triple (client, due date, amount)
	FindByDedupeKey(ctx context.Context, tenantID, clientID uuid.UUID, dueDate time.Time, amount decimal.Decimal) (*Invoice, error)

	// FindSyncCandidates finds unpaid invoices carrying an external
	// reference for a tenant
	FindSyncCandidates(ctx context.Context, tenantID uuid.UUID) ([]Invoice, error)

	// FindByCompetence finds invoices belonging to a YYYY-MM competence
	// period; an empty competence returns every invoice of the tenant
	FindByCompetence(ctx context.Context, tenantID uuid.UUID, competence string) ([]Invoice, error)

	// FindAllForTenant finds all invoices for a tenant
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Invoice, error)

	// CountForTenant counts invoices for a tenant
	CountForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// Save creates or updates an invoice
	Save(ctx context.Context, invoice *Invoice) error

	// SoftDeleteByIDs soft-deletes invoices by id, preserving financial
	// history of paid rows
	SoftDeleteByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) error

	// HardDeleteByIDs permanently removes invoices by id
	HardDeleteByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) error
}

// AuditRepository defines the interface for the append-only audit sink
type AuditRepository interface {
	// Append writes one audit record
	Append(ctx context.Context, record *AuditRecord) error

	// FindAllForTenant lists audit records for a tenant, newest first
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]AuditRecord, error)
}

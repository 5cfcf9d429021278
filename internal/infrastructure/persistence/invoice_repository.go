package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/boletohub/backend/internal/domain/billing"
	"github.com/boletohub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// deleteChunkSize bounds the number of ids per DELETE statement
const deleteChunkSize = 100

// GormInvoiceRepository implements billing.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by ID within a tenant
func (r *GormInvoiceRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	var invoice billing.Invoice
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// FindByDedupeKey finds an invoice matching the import de-duplication
// triple (client, due date, amount). Soft-deleted rows do not count as
// duplicates.
func (r *GormInvoiceRepository) FindByDedupeKey(ctx context.Context, tenantID, clientID uuid.UUID, dueDate time.Time, amount decimal.Decimal) (*billing.Invoice, error) {
	var invoice billing.Invoice
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND client_id = ? AND due_date = ? AND amount = ?",
			tenantID, clientID, billing.TruncateToDate(dueDate), amount.Round(2)).
		First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// FindSyncCandidates finds unpaid invoices carrying an external reference
func (r *GormInvoiceRepository) FindSyncCandidates(ctx context.Context, tenantID uuid.UUID) ([]billing.Invoice, error) {
	var invoices []billing.Invoice
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ? AND external_ref IS NOT NULL AND external_ref <> ''",
			tenantID, billing.InvoiceStatusUnpaid).
		Order("due_date ASC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindByCompetence finds invoices belonging to a YYYY-MM competence period;
// an empty competence returns every invoice of the tenant
func (r *GormInvoiceRepository) FindByCompetence(ctx context.Context, tenantID uuid.UUID, competence string) ([]billing.Invoice, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if competence != "" {
		query = query.Where("competence = ?", competence)
	}

	var invoices []billing.Invoice
	if err := query.Order("due_date ASC").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindAllForTenant finds all invoices for a tenant
func (r *GormInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]billing.Invoice, error) {
	var invoices []billing.Invoice
	query := r.db.WithContext(ctx).Model(&billing.Invoice{}).Where("tenant_id = ?", tenantID)
	query = applyInvoiceFilter(query, filter)

	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// CountForTenant counts invoices for a tenant
func (r *GormInvoiceRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&billing.Invoice{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates an invoice
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	return r.db.WithContext(ctx).Save(invoice).Error
}

// SoftDeleteByIDs soft-deletes invoices by id in bounded chunks
func (r *GormInvoiceRepository) SoftDeleteByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) error {
	for _, chunk := range chunkIDs(ids, deleteChunkSize) {
		if err := r.db.WithContext(ctx).
			Where("tenant_id = ? AND id IN ?", tenantID, chunk).
			Delete(&billing.Invoice{}).Error; err != nil {
			return err
		}
	}
	return nil
}

// HardDeleteByIDs permanently removes invoices by id in bounded chunks
func (r *GormInvoiceRepository) HardDeleteByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) error {
	for _, chunk := range chunkIDs(ids, deleteChunkSize) {
		if err := r.db.WithContext(ctx).Unscoped().
			Where("tenant_id = ? AND id IN ?", tenantID, chunk).
			Delete(&billing.Invoice{}).Error; err != nil {
			return err
		}
	}
	return nil
}

func applyInvoiceFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "client_id":
			query = query.Where("client_id = ?", value)
		case "competence":
			query = query.Where("competence = ?", value)
		case "category":
			query = query.Where("category = ?", value)
		}
	}

	query = applyOrder(query, filter, invoiceOrderColumns, "due_date ASC")
	return query.Offset(filter.Offset()).Limit(filter.Limit())
}

var invoiceOrderColumns = map[string]bool{
	"due_date":   true,
	"amount":     true,
	"status":     true,
	"competence": true,
	"created_at": true,
}

func chunkIDs(ids []uuid.UUID, size int) [][]uuid.UUID {
	if len(ids) == 0 {
		return nil
	}
	var chunks [][]uuid.UUID
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)

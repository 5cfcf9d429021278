package persistence

import (
	"context"

	"github.com/boletohub/backend/internal/domain/billing"
	"github.com/boletohub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAuditRepository implements billing.AuditRepository using GORM.
// The table is append-only; no update or delete paths exist.
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Append writes one audit record
func (r *GormAuditRepository) Append(ctx context.Context, record *billing.AuditRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindAllForTenant lists audit records for a tenant, newest first
func (r *GormAuditRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]billing.AuditRecord, error) {
	var records []billing.AuditRecord
	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Offset(filter.Offset()).
		Limit(filter.Limit())

	if action, ok := filter.Filters["action"]; ok {
		query = query.Where("action = ?", action)
	}

	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Ensure GormAuditRepository implements AuditRepository
var _ billing.AuditRepository = (*GormAuditRepository)(nil)

package persistence

import (
	"context"
	"errors"

	"github.com/boletohub/backend/internal/domain/provider"
	"github.com/boletohub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormConnectionRepository implements provider.ConnectionRepository using GORM
type GormConnectionRepository struct {
	db *gorm.DB
}

// NewGormConnectionRepository creates a new GormConnectionRepository
func NewGormConnectionRepository(db *gorm.DB) *GormConnectionRepository {
	return &GormConnectionRepository{db: db}
}

// FindByID finds a connection by ID within a tenant
func (r *GormConnectionRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*provider.Connection, error) {
	var conn provider.Connection
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&conn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &conn, nil
}

// FindEnabled finds all enabled connections for a provider within a tenant,
// oldest first so the first configured connection wins on conflicts
func (r *GormConnectionRepository) FindEnabled(ctx context.Context, tenantID uuid.UUID, code provider.Code) ([]provider.Connection, error) {
	var conns []provider.Connection
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND provider = ? AND enabled = ?", tenantID, code, true).
		Order("created_at ASC").
		Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

// FindAllForTenant finds all connections for a tenant
func (r *GormConnectionRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]provider.Connection, error) {
	var conns []provider.Connection
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

// Save creates or updates a connection
func (r *GormConnectionRepository) Save(ctx context.Context, conn *provider.Connection) error {
	return r.db.WithContext(ctx).Save(conn).Error
}

// Delete removes a connection within a tenant
func (r *GormConnectionRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Delete(&provider.Connection{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormConnectionRepository implements ConnectionRepository
var _ provider.ConnectionRepository = (*GormConnectionRepository)(nil)

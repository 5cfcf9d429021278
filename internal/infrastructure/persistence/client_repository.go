package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/boletohub/backend/internal/domain/billing"
	"github.com/boletohub/backend/internal/domain/provider"
	"github.com/boletohub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormClientRepository implements billing.ClientRepository using GORM
type GormClientRepository struct {
	db *gorm.DB
}

// NewGormClientRepository creates a new GormClientRepository
func NewGormClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db}
}

// FindByID finds a client by ID within a tenant
func (r *GormClientRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*billing.Client, error) {
	var client billing.Client
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &client, nil
}

// FindByTaxID finds a client by normalized tax id within a tenant
func (r *GormClientRepository) FindByTaxID(ctx context.Context, tenantID uuid.UUID, taxID string) (*billing.Client, error) {
	normalized := provider.NormalizeTaxID(taxID)
	if normalized == "" {
		return nil, shared.ErrNotFound
	}
	var client billing.Client
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND tax_id = ?", tenantID, normalized).
		Order("created_at ASC").
		First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &client, nil
}

// FindByCode finds a client by its code within a tenant
func (r *GormClientRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*billing.Client, error) {
	var client billing.Client
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND code = ?", tenantID, strings.ToUpper(code)).
		First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &client, nil
}

// FindAllForTenant finds all clients for a tenant
func (r *GormClientRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]billing.Client, error) {
	var clients []billing.Client
	query := r.db.WithContext(ctx).Model(&billing.Client{}).Where("tenant_id = ?", tenantID)
	query = applyClientFilter(query, filter)

	if err := query.Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

// CountForTenant counts clients for a tenant
func (r *GormClientRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&billing.Client{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a client
func (r *GormClientRepository) Save(ctx context.Context, client *billing.Client) error {
	return r.db.WithContext(ctx).Save(client).Error
}

func applyClientFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR code LIKE ? OR tax_id LIKE ?", pattern, pattern, pattern)
	}
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "tax_id":
			query = query.Where("tax_id = ?", provider.NormalizeTaxID(toString(value)))
		}
	}

	query = applyOrder(query, filter, clientOrderColumns, "name ASC")
	return query.Offset(filter.Offset()).Limit(filter.Limit())
}

var clientOrderColumns = map[string]bool{
	"name":       true,
	"code":       true,
	"status":     true,
	"created_at": true,
}

// applyOrder applies the requested ordering when the column is on the
// allow-list, otherwise the repository's natural order. Column names are
// never interpolated from raw input.
func applyOrder(query *gorm.DB, filter shared.Filter, allowed map[string]bool, natural string) *gorm.DB {
	if !allowed[filter.OrderBy] {
		return query.Order(natural)
	}
	dir := "ASC"
	if strings.ToLower(filter.OrderDir) == "desc" {
		dir = "DESC"
	}
	return query.Order(filter.OrderBy + " " + dir)
}

func toString(v interface{}) string {
	s, _ := v.(string)
	return s
}

// Ensure GormClientRepository implements ClientRepository
var _ billing.ClientRepository = (*GormClientRepository)(nil)

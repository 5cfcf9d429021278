package provider

import (
	"context"

	"github.com/boletohub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Connection holds one tenant's credentials for a billing provider.
// Credentials are stored data, not process environment; a tenant may hold
// several connections for the same provider.
type Connection struct {
	shared.TenantEntity
	Provider Code   `gorm:"type:varchar(20);not null;index:idx_conn_tenant_provider"`
	Name     string `gorm:"type:varchar(100);not null"`
	APIKey   string `gorm:"type:varchar(500);not null"`
	// No column defaults on the flags: gorm omits zero-valued fields that
	// carry a default tag, which would turn a disabled connection back on
	// during insert. NewConnection sets them explicitly.
	Sandbox bool `gorm:"not null"`
	Enabled bool `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Connection) TableName() string {
	return "provider_connections"
}

// NewConnection creates a new provider connection
func NewConnection(tenantID uuid.UUID, code Code, name, apiKey string, sandbox bool) (*Connection, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Connection name is required")
	}
	if apiKey == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Connection API key is required")
	}
	return &Connection{
		TenantEntity: shared.NewTenantEntity(tenantID),
		Provider:     code,
		Name:         name,
		APIKey:       apiKey,
		Sandbox:      sandbox,
		Enabled:      true,
	}, nil
}

// ConnectionRepository defines the interface for connection persistence
type ConnectionRepository interface {
	// FindByID finds a connection by ID within a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Connection, error)

	// FindEnabled finds all enabled connections for a provider within a tenant
	FindEnabled(ctx context.Context, tenantID uuid.UUID, code Code) ([]Connection, error)

	// FindAllForTenant finds all connections for a tenant
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]Connection, error)

	// Save creates or updates a connection
	Save(ctx context.Context, conn *Connection) error

	// Delete removes a connection within a tenant
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

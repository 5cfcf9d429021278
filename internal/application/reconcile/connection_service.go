package reconcile

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/boletohub/backend/internal/domain/provider"
)

// ConnectionService manages a tenant's provider connections
type ConnectionService struct {
	connections provider.ConnectionRepository
	logger      *zap.Logger
}

// NewConnectionService creates a new connection service
func NewConnectionService(connections provider.ConnectionRepository, logger *zap.Logger) *ConnectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectionService{connections: connections, logger: logger}
}

// CreateConnectionInput carries the fields for a new connection
type CreateConnectionInput struct {
	Provider string `json:"provider" binding:"required"`
	Name     string `json:"name" binding:"required"`
	APIKey   string `json:"api_key" binding:"required"`
	Sandbox  bool   `json:"sandbox"`
}

// Create registers a new connection for the tenant
func (s *ConnectionService) Create(ctx context.Context, tenantID uuid.UUID, input CreateConnectionInput) (*provider.Connection, error) {
	code, err := provider.ParseCode(input.Provider)
	if err != nil {
		return nil, err
	}
	conn, err := provider.NewConnection(tenantID, code, input.Name, input.APIKey, input.Sandbox)
	if err != nil {
		return nil, err
	}
	if err := s.connections.Save(ctx, conn); err != nil {
		return nil, err
	}

	s.logger.Info("provider connection created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("provider", input.Provider),
		zap.String("name", input.Name))
	return conn, nil
}

// List returns all connections of the tenant
func (s *ConnectionService) List(ctx context.Context, tenantID uuid.UUID) ([]provider.Connection, error) {
	return s.connections.FindAllForTenant(ctx, tenantID)
}

// Get returns one connection of the tenant
func (s *ConnectionService) Get(ctx context.Context, tenantID, id uuid.UUID) (*provider.Connection, error) {
	return s.connections.FindByID(ctx, tenantID, id)
}

// SetEnabled switches a connection on or off without losing its credentials
func (s *ConnectionService) SetEnabled(ctx context.Context, tenantID, id uuid.UUID, enabled bool) (*provider.Connection, error) {
	conn, err := s.connections.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	conn.Enabled = enabled
	conn.IncrementVersion()
	if err := s.connections.Save(ctx, conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// Delete removes a connection. Invoices imported through it keep their
// external references.
func (s *ConnectionService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := s.connections.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.logger.Info("provider connection deleted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("connection_id", id.String()))
	return nil
}

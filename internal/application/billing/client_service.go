package billingapp

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/boletohub/backend/internal/domain/billing"
	"github.com/boletohub/backend/internal/domain/shared"
)

// ClientService manages the tenant's client registry
type ClientService struct {
	clients billing.ClientRepository
	logger  *zap.Logger
}

// NewClientService creates a new client service
func NewClientService(clients billing.ClientRepository, logger *zap.Logger) *ClientService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientService{clients: clients, logger: logger}
}

// CreateClientInput carries the fields for a manually registered client
type CreateClientInput struct {
	Code  string `json:"code" binding:"required"`
	Name  string `json:"name" binding:"required"`
	TaxID string `json:"tax_id"`
}

// Create registers a client. The code must be unique within the tenant.
func (s *ClientService) Create(ctx context.Context, tenantID uuid.UUID, input CreateClientInput) (*billing.Client, error) {
	if _, err := s.clients.FindByCode(ctx, tenantID, strings.ToUpper(input.Code)); err == nil {
		return nil, shared.ErrAlreadyExists
	}
	client, err := billing.NewClient(tenantID, input.Code, input.Name, input.TaxID)
	if err != nil {
		return nil, err
	}
	if err := s.clients.Save(ctx, client); err != nil {
		return nil, err
	}

	s.logger.Info("client created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("code", client.Code))
	return client, nil
}

// Get returns one client of the tenant
func (s *ClientService) Get(ctx context.Context, tenantID, id uuid.UUID) (*billing.Client, error) {
	return s.clients.FindByID(ctx, tenantID, id)
}

// List returns a page of the tenant's clients
func (s *ClientService) List(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (shared.Paginated[billing.Client], error) {
	clients, err := s.clients.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return shared.Paginated[billing.Client]{}, err
	}
	total, err := s.clients.CountForTenant(ctx, tenantID)
	if err != nil {
		return shared.Paginated[billing.Client]{}, err
	}
	return shared.NewPaginated(clients, total, filter.Page, filter.Limit()), nil
}

// UpdateClientInput carries the editable client fields
type UpdateClientInput struct {
	Name  string `json:"name" binding:"required"`
	TaxID string `json:"tax_id"`
}

// Update edits the client's name and tax id. The code is immutable.
func (s *ClientService) Update(ctx context.Context, tenantID, id uuid.UUID, input UpdateClientInput) (*billing.Client, error) {
	client, err := s.clients.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := client.Update(input.Name, input.TaxID); err != nil {
		return nil, err
	}
	if err := s.clients.Save(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// Deactivate turns the client inactive without breaking invoice history
func (s *ClientService) Deactivate(ctx context.Context, tenantID, id uuid.UUID) (*billing.Client, error) {
	client, err := s.clients.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	client.Deactivate()
	if err := s.clients.Save(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// parseAmount converts a money string into a decimal, rejecting garbage
// early so the domain never sees it
func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, shared.NewDomainError("INVALID_AMOUNT", "Amount must be a decimal number")
	}
	return amount, nil
}

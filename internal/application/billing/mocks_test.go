package billingapp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/boletohub/backend/internal/domain/billing"
	"github.com/boletohub/backend/internal/domain/shared"
)

// MockClientRepository is a mock implementation of billing.ClientRepository
type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*billing.Client, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Client), args.Error(1)
}

func (m *MockClientRepository) FindByTaxID(ctx context.Context, tenantID uuid.UUID, taxID string) (*billing.Client, error) {
	args := m.Called(ctx, tenantID, taxID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Client), args.Error(1)
}

func (m *MockClientRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*billing.Client, error) {
	args := m.Called(ctx, tenantID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Client), args.Error(1)
}

func (m *MockClientRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]billing.Client, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]billing.Client), args.Error(1)
}

func (m *MockClientRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockClientRepository) Save(ctx context.Context, client *billing.Client) error {
	args := m.Called(ctx, client)
	return args.Error(0)
}

// MockInvoiceRepository is a mock implementation of billing.InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByDedupeKey(ctx context.Context, tenantID, clientID uuid.UUID, dueDate time.Time, amount decimal.Decimal) (*billing.Invoice, error) {
	args := m.Called(ctx, tenantID, clientID, dueDate, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindSyncCandidates(ctx context.Context, tenantID uuid.UUID) ([]billing.Invoice, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByCompetence(ctx context.Context, tenantID uuid.UUID, competence string) ([]billing.Invoice, error) {
	args := m.Called(ctx, tenantID, competence)
	return args.Get(0).([]billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]billing.Invoice, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SoftDeleteByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) error {
	args := m.Called(ctx, tenantID, ids)
	return args.Error(0)
}

func (m *MockInvoiceRepository) HardDeleteByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) error {
	args := m.Called(ctx, tenantID, ids)
	return args.Error(0)
}

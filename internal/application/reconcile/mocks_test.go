package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/boletohub/backend/internal/domain/billing"
	"github.com/boletohub/backend/internal/domain/provider"
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

// MockAuditRepository is a mock implementation of billing.AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Append(ctx context.Context, record *billing.AuditRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAuditRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]billing.AuditRecord, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]billing.AuditRecord), args.Error(1)
}

// MockConnectionRepository is a mock implementation of provider.ConnectionRepository
type MockConnectionRepository struct {
	mock.Mock
}

func (m *MockConnectionRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*provider.Connection, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Connection), args.Error(1)
}

func (m *MockConnectionRepository) FindEnabled(ctx context.Context, tenantID uuid.UUID, code provider.Code) ([]provider.Connection, error) {
	args := m.Called(ctx, tenantID, code)
	return args.Get(0).([]provider.Connection), args.Error(1)
}

func (m *MockConnectionRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]provider.Connection, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]provider.Connection), args.Error(1)
}

func (m *MockConnectionRepository) Save(ctx context.Context, conn *provider.Connection) error {
	args := m.Called(ctx, conn)
	return args.Error(0)
}

func (m *MockConnectionRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

// MockBillingProvider is a mock implementation of provider.BillingProvider
type MockBillingProvider struct {
	mock.Mock
	code provider.Code
}

func (m *MockBillingProvider) Code() provider.Code {
	return m.code
}

func (m *MockBillingProvider) ListPending(ctx context.Context, conn *provider.Connection) ([]provider.Receivable, error) {
	args := m.Called(ctx, conn)
	return args.Get(0).([]provider.Receivable), args.Error(1)
}

func (m *MockBillingProvider) ListFinished(ctx context.Context, conn *provider.Connection) ([]provider.Receivable, error) {
	args := m.Called(ctx, conn)
	return args.Get(0).([]provider.Receivable), args.Error(1)
}

func (m *MockBillingProvider) CheckReceivable(ctx context.Context, conn *provider.Connection, externalID string) (*provider.StatusInfo, error) {
	args := m.Called(ctx, conn, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.StatusInfo), args.Error(1)
}

// stubRegistry resolves every code to the same adapter
type stubRegistry struct {
	adapter provider.BillingProvider
}

func (r stubRegistry) Get(code provider.Code) (provider.BillingProvider, error) {
	if r.adapter == nil {
		return nil, provider.ErrUnknownProvider
	}
	return r.adapter, nil
}

// stubLock is an always-available sync lock that records its calls
type stubLock struct {
	acquired  bool
	denied    bool
	released  bool
	returnErr error
}

func (l *stubLock) Acquire(ctx context.Context, tenantID uuid.UUID, code provider.Code, ttl time.Duration) (bool, error) {
	if l.returnErr != nil {
		return false, l.returnErr
	}
	if l.denied {
		return false, nil
	}
	l.acquired = true
	return true, nil
}

func (l *stubLock) Release(ctx context.Context, tenantID uuid.UUID, code provider.Code) error {
	l.released = true
	return nil
}

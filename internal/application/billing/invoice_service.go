package billingapp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/boletohub/backend/internal/domain/billing"
	"github.com/boletohub/backend/internal/domain/shared"
)

// InvoiceService exposes the manual invoice operations: listing, creating
// and the pay/unpay pair. Status changes driven by providers live in the
// reconcile services, not here.
type InvoiceService struct {
	invoices billing.InvoiceRepository
	clients  billing.ClientRepository
	logger   *zap.Logger
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(invoices billing.InvoiceRepository, clients billing.ClientRepository, logger *zap.Logger) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{invoices: invoices, clients: clients, logger: logger}
}

// CreateInvoiceInput carries the fields for a manually entered invoice
type CreateInvoiceInput struct {
	ClientID uuid.UUID `json:"client_id" binding:"required"`
	Amount   string    `json:"amount" binding:"required"`
	DueDate  time.Time `json:"due_date" binding:"required"`
	Category string    `json:"category"`
}

// Create registers a manually entered invoice. Manual invoices carry no
// external reference until an import backfills one.
func (s *InvoiceService) Create(ctx context.Context, tenantID uuid.UUID, input CreateInvoiceInput) (*billing.Invoice, error) {
	amount, err := parseAmount(input.Amount)
	if err != nil {
		return nil, err
	}
	if _, err := s.clients.FindByID(ctx, tenantID, input.ClientID); err != nil {
		return nil, err
	}
	invoice, err := billing.NewInvoice(tenantID, input.ClientID, amount, input.DueDate, input.Category)
	if err != nil {
		return nil, err
	}
	if err := s.invoices.Save(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// Get returns one invoice of the tenant
func (s *InvoiceService) Get(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	return s.invoices.FindByID(ctx, tenantID, id)
}

// List returns a page of the tenant's invoices
func (s *InvoiceService) List(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (shared.Paginated[billing.Invoice], error) {
	invoices, err := s.invoices.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return shared.Paginated[billing.Invoice]{}, err
	}
	total, err := s.invoices.CountForTenant(ctx, tenantID)
	if err != nil {
		return shared.Paginated[billing.Invoice]{}, err
	}
	return shared.NewPaginated(invoices, total, filter.Page, filter.Limit()), nil
}

// FindAmountMatches returns the competence period's invoices whose amount
// equals the expected value within a tolerance of max(fixed, pct of the
// expected amount). Monthly report checks use it to pair invoices against
// bank statement entries.
func (s *InvoiceService) FindAmountMatches(ctx context.Context, tenantID uuid.UUID, competence string, expected decimal.Decimal, fixed, pct float64) ([]billing.Invoice, error) {
	invoices, err := s.invoices.FindByCompetence(ctx, tenantID, competence)
	if err != nil {
		return nil, err
	}
	var matched []billing.Invoice
	for i := range invoices {
		if billing.AmountMatches(expected, invoices[i].Amount, fixed, pct) {
			matched = append(matched, invoices[i])
		}
	}
	return matched, nil
}

// Pay marks an invoice paid with the given payment date, defaulting to
// today
func (s *InvoiceService) Pay(ctx context.Context, tenantID, id uuid.UUID, paymentDate *time.Time) (*billing.Invoice, error) {
	invoice, err := s.invoices.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	paidAt := time.Now()
	if paymentDate != nil {
		paidAt = *paymentDate
	}
	if err := invoice.MarkPaid(paidAt); err != nil {
		return nil, err
	}
	if err := s.invoices.Save(ctx, invoice); err != nil {
		return nil, err
	}

	s.logger.Info("invoice marked paid manually",
		zap.String("tenant_id", tenantID.String()),
		zap.String("invoice_id", id.String()))
	return invoice, nil
}

// Unpay reverts a paid invoice back to unpaid
func (s *InvoiceService) Unpay(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	invoice, err := s.invoices.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := invoice.Unpay(); err != nil {
		return nil, err
	}
	if err := s.invoices.Save(ctx, invoice); err != nil {
		return nil, err
	}

	s.logger.Info("invoice payment reverted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("invoice_id", id.String()))
	return invoice, nil
}

// Cancel moves an unpaid invoice to the terminal cancelled status
func (s *InvoiceService) Cancel(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	invoice, err := s.invoices.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := invoice.Cancel(); err != nil {
		return nil, err
	}
	if err := s.invoices.Save(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

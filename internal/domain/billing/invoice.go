package billing

import (
	"time"

	"github.com/boletohub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusUnpaid    InvoiceStatus = "unpaid"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled" // terminal, excluded from sync
)

// Invoice ("boleto") represents a single billable obligation. The triple
// (client, due date, amount) is the de-duplication key for import: an
// invoice matching an existing triple is treated as already imported, even
// across providers.
type Invoice struct {
	shared.TenantEntity
	ClientID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_invoice_dedupe,priority:1"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null;index:idx_invoice_dedupe,priority:3"`
	DueDate       time.Time       `gorm:"type:date;not null;index:idx_invoice_dedupe,priority:2"`
	Competence    string          `gorm:"type:varchar(7);not null;index"` // YYYY-MM
	Category      string          `gorm:"type:varchar(100)"`
	Status        InvoiceStatus   `gorm:"type:varchar(20);not null;default:'unpaid';index"`
	PaymentDate   *time.Time      `gorm:"type:date"`
	ExternalRef   *string         `gorm:"type:varchar(100);index"`
	LastCheckedAt *time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for GORM
func (Invoice) TableName() string {
	return "invoices"
}

// NewInvoice creates a new unpaid invoice. Due dates are calendar dates;
// the time component is truncated to midnight UTC.
func NewInvoice(tenantID, clientID uuid.UUID, amount decimal.Decimal, dueDate time.Time, category string) (*Invoice, error) {
	if amount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Invoice amount cannot be negative")
	}
	if clientID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CLIENT", "Invoice requires a client")
	}

	due := TruncateToDate(dueDate)
	return &Invoice{
		TenantEntity: shared.NewTenantEntity(tenantID),
		ClientID:     clientID,
		Amount:       amount.Round(2),
		DueDate:      due,
		Competence:   CompetenceFromDate(due),
		Category:     category,
		Status:       InvoiceStatusUnpaid,
	}, nil
}

// SetExternalRef links the invoice to its upstream receivable
func (i *Invoice) SetExternalRef(externalID string) {
	if externalID == "" {
		return
	}
	i.ExternalRef = &externalID
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
}

// HasExternalRef reports whether the invoice is linked to an upstream
// receivable
func (i *Invoice) HasExternalRef() bool {
	return i.ExternalRef != nil && *i.ExternalRef != ""
}

// MarkPaid transitions the invoice to paid with the given payment date.
// Paid is idempotent; cancelled invoices cannot be paid by sync.
func (i *Invoice) MarkPaid(paymentDate time.Time) error {
	switch i.Status {
	case InvoiceStatusPaid:
		return nil
	case InvoiceStatusCancelled:
		return shared.NewDomainError("INVALID_STATE", "Cancelled invoices cannot be marked paid")
	}
	paid := TruncateToDate(paymentDate)
	i.Status = InvoiceStatusPaid
	i.PaymentDate = &paid
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
	return nil
}

// Unpay reverts a manual payment. Sync never calls this; it exists for the
// manual pay/unpay actions only.
func (i *Invoice) Unpay() error {
	if i.Status != InvoiceStatusPaid {
		return shared.NewDomainError("INVALID_STATE", "Only paid invoices can be reverted to unpaid")
	}
	i.Status = InvoiceStatusUnpaid
	i.PaymentDate = nil
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
	return nil
}

// Cancel transitions the invoice to the terminal cancelled status
func (i *Invoice) Cancel() error {
	switch i.Status {
	case InvoiceStatusCancelled:
		return nil
	case InvoiceStatusPaid:
		return shared.NewDomainError("INVALID_STATE", "Paid invoices cannot be cancelled")
	}
	i.Status = InvoiceStatusCancelled
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
	return nil
}

// ChangeDueDate updates the due date without touching the competence
// period, which belongs to the month the obligation was imported for.
func (i *Invoice) ChangeDueDate(dueDate time.Time) {
	i.DueDate = TruncateToDate(dueDate)
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
}

// MarkChecked stamps the invoice as having been verified against the
// provider without any status change
func (i *Invoice) MarkChecked(at time.Time) {
	i.LastCheckedAt = &at
}

// IsSyncCandidate reports whether status sync should consult the provider
// for this invoice
func (i *Invoice) IsSyncCandidate() bool {
	return i.Status == InvoiceStatusUnpaid && i.HasExternalRef()
}

// CompetenceFromDate returns the YYYY-MM competence period of a date
func CompetenceFromDate(t time.Time) string {
	return t.Format("2006-01")
}

// TruncateToDate drops the time component, keeping a midnight-UTC calendar
// date
func TruncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

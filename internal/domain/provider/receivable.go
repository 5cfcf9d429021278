package provider

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Receivable is the normalized representation of an upstream pending
// receivable, shared by every provider adapter
type Receivable struct {
	ExternalID   string          `json:"external_id"`
	Counterparty string          `json:"counterparty"`
	TaxID        string          `json:"tax_id"`
	Amount       decimal.Decimal `json:"amount"`
	DueDate      time.Time       `json:"due_date"`
	Category     string          `json:"category"`
}

// NormalizedTaxID returns the tax identifier stripped of everything but
// digits. CPF/CNPJ formatting varies per provider; matching is always done
// on the digits-only form.
func (r Receivable) NormalizedTaxID() string {
	return NormalizeTaxID(r.TaxID)
}

// NormalizeTaxID strips non-digit characters from a tax identifier
func NormalizeTaxID(raw string) string {
	var b strings.Builder
	for _, ch := range raw {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// ReceivableState is the upstream status of a single receivable
type ReceivableState string

const (
	ReceivableOpen      ReceivableState = "open"
	ReceivablePaid      ReceivableState = "paid"
	ReceivableCancelled ReceivableState = "cancelled"
	ReceivableNotFound  ReceivableState = "not_found"
)

// StatusInfo is the result of a single-receivable status check
type StatusInfo struct {
	ExternalID string
	State      ReceivableState
	PaidAt     *time.Time
	DueDate    *time.Time
}

// IsDefinitive reports whether this status resolves the lookup: any state
// except not_found means the receivable lives on this connection, so the
// per-connection search stops here. Only not_found falls through to the
// next connection.
func (s StatusInfo) IsDefinitive() bool {
	return s.State != ReceivableNotFound
}

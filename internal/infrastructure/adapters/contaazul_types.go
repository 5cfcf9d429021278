package adapters

import (
	"time"

	"github.com/shopspring/decimal"
)

// Conta Azul financial event statuses
const (
	contaAzulStatusUnpaid    = "UNPAID"
	contaAzulStatusPaid      = "PAID"
	contaAzulStatusCancelled = "CANCELLED"
)

// contaAzulEvent is one financial event as Conta Azul reports it. Listings
// return a bare JSON array of these.
type contaAzulEvent struct {
	ID          string            `json:"id"`
	Customer    contaAzulCustomer `json:"customer"`
	Value       decimal.Decimal   `json:"value"`
	DueDate     string            `json:"due_date"`
	PaymentDate string            `json:"payment_date"`
	Status      string            `json:"status"`
	Category    contaAzulCategory `json:"category"`
}

type contaAzulCustomer struct {
	Name     string `json:"name"`
	Document string `json:"document"`
}

type contaAzulCategory struct {
	Name string `json:"name"`
}

func parseContaAzulDate(raw string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", "2006-01-02T15:04:05Z07:00"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

package adapters

import (
	"time"

	"github.com/shopspring/decimal"
)

// Safe2Pay transaction status codes
const (
	safe2payStatusPending   = 1
	safe2payStatusPaid      = 3
	safe2payStatusCancelled = 6
	safe2payStatusRefunded  = 7
)

// safe2payListResponse is the envelope of the Safe2Pay transaction listing
type safe2payListResponse struct {
	HasError       bool               `json:"HasError"`
	ResponseDetail safe2payListDetail `json:"ResponseDetail"`
}

type safe2payListDetail struct {
	Objects    []safe2payTransaction `json:"Objects"`
	TotalPages int                   `json:"TotalPages"`
}

// safe2paySingleResponse is the envelope of a single transaction lookup
type safe2paySingleResponse struct {
	HasError       bool                `json:"HasError"`
	ResponseDetail safe2payTransaction `json:"ResponseDetail"`
}

// safe2payTransaction is one transaction as Safe2Pay reports it
type safe2payTransaction struct {
	IdTransaction int64            `json:"IdTransaction"`
	Customer      safe2payCustomer `json:"Customer"`
	Amount        decimal.Decimal  `json:"Amount"`
	DueDate       string           `json:"DueDate"`
	PaymentDate   string           `json:"PaymentDate"`
	Status        int              `json:"Status"`
}

type safe2payCustomer struct {
	Name     string `json:"Name"`
	Identity string `json:"Identity"`
}

var safe2payDateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"02/01/2006",
}

func parseSafe2PayDate(raw string) (time.Time, bool) {
	for _, layout := range safe2payDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

package adapters

import (
	"time"

	"github.com/shopspring/decimal"
)

// asaasListResponse is the envelope of the Asaas payments listing
type asaasListResponse struct {
	Data    []asaasPayment `json:"data"`
	HasMore bool           `json:"hasMore"`
}

// asaasPayment is one payment as Asaas reports it, with the customer
// expansion embedded
type asaasPayment struct {
	ID          string          `json:"id"`
	Customer    asaasCustomer   `json:"customer"`
	Value       decimal.Decimal `json:"value"`
	DueDate     string          `json:"dueDate"`
	PaymentDate string          `json:"paymentDate"`
	Status      string          `json:"status"`
	Description string          `json:"description"`
}

type asaasCustomer struct {
	Name    string `json:"name"`
	CpfCnpj string `json:"cpfCnpj"`
}

// paidStatuses are the Asaas statuses that mean the payment settled
var asaasPaidStatuses = map[string]bool{
	"RECEIVED":         true,
	"CONFIRMED":        true,
	"RECEIVED_IN_CASH": true,
}

// cancelledStatuses are the Asaas statuses that void the payment
var asaasCancelledStatuses = map[string]bool{
	"REFUNDED":  true,
	"CANCELLED": true,
}

func parseAsaasDate(raw string) (time.Time, bool) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/boletohub/backend/internal/domain/provider"
	"go.uber.org/zap"
)

const (
	contaAzulDefaultBaseURL  = "https://api.contaazul.com/v1"
	contaAzulPageSize        = 50
	contaAzulDefaultMaxPages = 100
)

// ContaAzulAdapter implements provider.BillingProvider against the Conta
// Azul financial events API. Authentication is a bearer token; listings
// are filtered by status server side.
type ContaAzulAdapter struct {
	httpClient *http.Client
	baseURL    string
	pageSize   int
	maxPages   int
	logger     *zap.Logger
}

// NewContaAzulAdapter creates a Conta Azul adapter
func NewContaAzulAdapter(client *http.Client, maxPages int, logger *zap.Logger) *ContaAzulAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContaAzulAdapter{
		httpClient: client,
		baseURL:    contaAzulDefaultBaseURL,
		pageSize:   contaAzulPageSize,
		maxPages:   clampPages(contaAzulDefaultMaxPages, maxPages),
		logger:     logger,
	}
}

// SetBaseURL overrides the API base URL. Used by tests.
func (a *ContaAzulAdapter) SetBaseURL(baseURL string) {
	a.baseURL = baseURL
}

// Code returns the provider this adapter talks to
func (a *ContaAzulAdapter) Code() provider.Code {
	return provider.CodeContaAzul
}

// ListPending returns all unpaid financial events for one connection
func (a *ContaAzulAdapter) ListPending(ctx context.Context, conn *provider.Connection) ([]provider.Receivable, error) {
	return a.listEvents(ctx, conn, contaAzulStatusUnpaid)
}

// ListFinished returns financial events settled upstream
func (a *ContaAzulAdapter) ListFinished(ctx context.Context, conn *provider.Connection) ([]provider.Receivable, error) {
	return a.listEvents(ctx, conn, contaAzulStatusPaid)
}

func (a *ContaAzulAdapter) listEvents(ctx context.Context, conn *provider.Connection, eventStatus string) ([]provider.Receivable, error) {
	var receivables []provider.Receivable

	for page := 0; page < a.maxPages; page++ {
		query := url.Values{}
		query.Set("status", eventStatus)
		query.Set("page", strconv.Itoa(page))
		query.Set("size", strconv.Itoa(a.pageSize))
		pageURL := fmt.Sprintf("%s/financial-events?%s", a.baseURL, query.Encode())

		status, body, err := doGet(ctx, a.httpClient, pageURL, a.headers(conn))
		if err != nil {
			return nil, err
		}
		if status >= 400 {
			a.logger.Warn("contaazul page fetch failed",
				zap.Int("status", status),
				zap.Int("page", page),
			)
			return receivables, fmt.Errorf("%w: contaazul HTTP %d", provider.ErrRequestFailed, status)
		}

		var events []contaAzulEvent
		if err := json.Unmarshal(body, &events); err != nil {
			return receivables, fmt.Errorf("%w: contaazul: %v", provider.ErrInvalidResponse, err)
		}

		for _, event := range events {
			receivables = append(receivables, contaAzulToReceivable(event))
		}

		if len(events) < a.pageSize {
			break
		}
	}

	return receivables, nil
}

// CheckReceivable looks up one financial event by id
func (a *ContaAzulAdapter) CheckReceivable(ctx context.Context, conn *provider.Connection, externalID string) (*provider.StatusInfo, error) {
	itemURL := fmt.Sprintf("%s/financial-events/%s", a.baseURL, url.PathEscape(externalID))

	status, body, err := doGet(ctx, a.httpClient, itemURL, a.headers(conn))
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return &provider.StatusInfo{ExternalID: externalID, State: provider.ReceivableNotFound}, nil
	}
	if status >= 400 {
		return nil, fmt.Errorf("%w: contaazul HTTP %d", provider.ErrRequestFailed, status)
	}

	var event contaAzulEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: contaazul: %v", provider.ErrInvalidResponse, err)
	}

	info := &provider.StatusInfo{
		ExternalID: externalID,
		State:      provider.ReceivableOpen,
	}
	if due, ok := parseContaAzulDate(event.DueDate); ok {
		info.DueDate = &due
	}
	switch event.Status {
	case contaAzulStatusPaid:
		info.State = provider.ReceivablePaid
		if paid, ok := parseContaAzulDate(event.PaymentDate); ok {
			info.PaidAt = &paid
		}
	case contaAzulStatusCancelled:
		info.State = provider.ReceivableCancelled
	}
	return info, nil
}

func (a *ContaAzulAdapter) headers(conn *provider.Connection) map[string]string {
	return map[string]string{"Authorization": "Bearer " + conn.APIKey}
}

func contaAzulToReceivable(event contaAzulEvent) provider.Receivable {
	due, _ := parseContaAzulDate(event.DueDate)
	return provider.Receivable{
		ExternalID:   event.ID,
		Counterparty: event.Customer.Name,
		TaxID:        event.Customer.Document,
		Amount:       event.Value,
		DueDate:      due,
		Category:     event.Category.Name,
	}
}

// Ensure ContaAzulAdapter implements BillingProvider
var _ provider.BillingProvider = (*ContaAzulAdapter)(nil)

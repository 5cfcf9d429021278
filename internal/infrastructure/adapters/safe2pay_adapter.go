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
	safe2payDefaultBaseURL  = "https://api.safe2pay.com.br/v2"
	safe2paySandboxBaseURL  = "https://sandbox.api.safe2pay.com.br/v2"
	safe2payPageSize        = 100
	safe2payDefaultMaxPages = 50
)

// Safe2PayAdapter implements provider.BillingProvider against the Safe2Pay
// transactions API. Pagination is page number based; the listing is not
// filterable by status server side, so status filtering happens here.
type Safe2PayAdapter struct {
	httpClient     *http.Client
	baseURL        string
	sandboxBaseURL string
	pageSize       int
	maxPages       int
	logger         *zap.Logger
}

// NewSafe2PayAdapter creates a Safe2Pay adapter
func NewSafe2PayAdapter(client *http.Client, maxPages int, logger *zap.Logger) *Safe2PayAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Safe2PayAdapter{
		httpClient:     client,
		baseURL:        safe2payDefaultBaseURL,
		sandboxBaseURL: safe2paySandboxBaseURL,
		pageSize:       safe2payPageSize,
		maxPages:       clampPages(safe2payDefaultMaxPages, maxPages),
		logger:         logger,
	}
}

// SetBaseURL overrides both API base URLs. Used by tests.
func (a *Safe2PayAdapter) SetBaseURL(baseURL string) {
	a.baseURL = baseURL
	a.sandboxBaseURL = baseURL
}

// Code returns the provider this adapter talks to
func (a *Safe2PayAdapter) Code() provider.Code {
	return provider.CodeSafe2Pay
}

// ListPending returns all pending transactions for one connection
func (a *Safe2PayAdapter) ListPending(ctx context.Context, conn *provider.Connection) ([]provider.Receivable, error) {
	return a.listTransactions(ctx, conn, func(status int) bool {
		return status == safe2payStatusPending
	})
}

// ListFinished returns transactions settled upstream
func (a *Safe2PayAdapter) ListFinished(ctx context.Context, conn *provider.Connection) ([]provider.Receivable, error) {
	return a.listTransactions(ctx, conn, func(status int) bool {
		return status == safe2payStatusPaid
	})
}

func (a *Safe2PayAdapter) listTransactions(ctx context.Context, conn *provider.Connection, keep func(int) bool) ([]provider.Receivable, error) {
	var receivables []provider.Receivable

	for page := 1; page <= a.maxPages; page++ {
		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		query.Set("rowsPerPage", strconv.Itoa(a.pageSize))
		pageURL := fmt.Sprintf("%s/transactions?%s", a.urlBase(conn), query.Encode())

		status, body, err := doGet(ctx, a.httpClient, pageURL, a.headers(conn))
		if err != nil {
			return nil, err
		}
		if status >= 400 {
			a.logger.Warn("safe2pay page fetch failed",
				zap.Int("status", status),
				zap.Int("page", page),
			)
			return receivables, fmt.Errorf("%w: safe2pay HTTP %d", provider.ErrRequestFailed, status)
		}

		var resp safe2payListResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return receivables, fmt.Errorf("%w: safe2pay: %v", provider.ErrInvalidResponse, err)
		}
		if resp.HasError {
			return receivables, fmt.Errorf("%w: safe2pay reported an error", provider.ErrRequestFailed)
		}

		for _, tx := range resp.ResponseDetail.Objects {
			if keep(tx.Status) {
				receivables = append(receivables, safe2payToReceivable(tx))
			}
		}

		if page >= resp.ResponseDetail.TotalPages {
			break
		}
	}

	return receivables, nil
}

// CheckReceivable looks up one transaction by id
func (a *Safe2PayAdapter) CheckReceivable(ctx context.Context, conn *provider.Connection, externalID string) (*provider.StatusInfo, error) {
	itemURL := fmt.Sprintf("%s/transactions/%s", a.urlBase(conn), url.PathEscape(externalID))

	status, body, err := doGet(ctx, a.httpClient, itemURL, a.headers(conn))
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return &provider.StatusInfo{ExternalID: externalID, State: provider.ReceivableNotFound}, nil
	}
	if status >= 400 {
		return nil, fmt.Errorf("%w: safe2pay HTTP %d", provider.ErrRequestFailed, status)
	}

	var resp safe2paySingleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: safe2pay: %v", provider.ErrInvalidResponse, err)
	}
	if resp.HasError {
		return nil, fmt.Errorf("%w: safe2pay reported an error", provider.ErrRequestFailed)
	}

	tx := resp.ResponseDetail
	info := &provider.StatusInfo{
		ExternalID: externalID,
		State:      provider.ReceivableOpen,
	}
	if due, ok := parseSafe2PayDate(tx.DueDate); ok {
		info.DueDate = &due
	}
	switch tx.Status {
	case safe2payStatusPaid:
		info.State = provider.ReceivablePaid
		if paid, ok := parseSafe2PayDate(tx.PaymentDate); ok {
			info.PaidAt = &paid
		}
	case safe2payStatusCancelled, safe2payStatusRefunded:
		info.State = provider.ReceivableCancelled
	}
	return info, nil
}

func (a *Safe2PayAdapter) urlBase(conn *provider.Connection) string {
	if conn.Sandbox {
		return a.sandboxBaseURL
	}
	return a.baseURL
}

func (a *Safe2PayAdapter) headers(conn *provider.Connection) map[string]string {
	return map[string]string{"X-API-KEY": conn.APIKey}
}

func safe2payToReceivable(tx safe2payTransaction) provider.Receivable {
	due, _ := parseSafe2PayDate(tx.DueDate)
	return provider.Receivable{
		ExternalID:   strconv.FormatInt(tx.IdTransaction, 10),
		Counterparty: tx.Customer.Name,
		TaxID:        tx.Customer.Identity,
		Amount:       tx.Amount,
		DueDate:      due,
	}
}

// Ensure Safe2PayAdapter implements BillingProvider
var _ provider.BillingProvider = (*Safe2PayAdapter)(nil)

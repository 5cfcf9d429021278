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
	asaasDefaultBaseURL  = "https://api.asaas.com/v3"
	asaasSandboxBaseURL  = "https://api-sandbox.asaas.com/v3"
	asaasPageSize        = 100
	asaasDefaultMaxPages = 100
)

// AsaasAdapter implements provider.BillingProvider against the Asaas
// payments API. Asaas has no settled-payments listing usable for the
// bulk-map strategy, so status sync checks candidates one by one.
type AsaasAdapter struct {
	httpClient     *http.Client
	baseURL        string
	sandboxBaseURL string
	pageSize       int
	maxPages       int
	logger         *zap.Logger
}

// NewAsaasAdapter creates an Asaas adapter
func NewAsaasAdapter(client *http.Client, maxPages int, logger *zap.Logger) *AsaasAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AsaasAdapter{
		httpClient:     client,
		baseURL:        asaasDefaultBaseURL,
		sandboxBaseURL: asaasSandboxBaseURL,
		pageSize:       asaasPageSize,
		maxPages:       clampPages(asaasDefaultMaxPages, maxPages),
		logger:         logger,
	}
}

// SetBaseURL overrides both API base URLs. Used by tests.
func (a *AsaasAdapter) SetBaseURL(baseURL string) {
	a.baseURL = baseURL
	a.sandboxBaseURL = baseURL
}

// Code returns the provider this adapter talks to
func (a *AsaasAdapter) Code() provider.Code {
	return provider.CodeAsaas
}

// ListPending returns all pending payments for one connection
func (a *AsaasAdapter) ListPending(ctx context.Context, conn *provider.Connection) ([]provider.Receivable, error) {
	var receivables []provider.Receivable

	for page := 0; page < a.maxPages; page++ {
		query := url.Values{}
		query.Set("status", "PENDING")
		query.Set("offset", strconv.Itoa(page*a.pageSize))
		query.Set("limit", strconv.Itoa(a.pageSize))
		pageURL := fmt.Sprintf("%s/payments?%s", a.urlBase(conn), query.Encode())

		status, body, err := doGet(ctx, a.httpClient, pageURL, a.headers(conn))
		if err != nil {
			return nil, err
		}
		if status >= 400 {
			a.logger.Warn("asaas page fetch failed",
				zap.Int("status", status),
				zap.Int("page", page),
			)
			return receivables, fmt.Errorf("%w: asaas HTTP %d", provider.ErrRequestFailed, status)
		}

		var resp asaasListResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return receivables, fmt.Errorf("%w: asaas: %v", provider.ErrInvalidResponse, err)
		}

		for _, payment := range resp.Data {
			receivables = append(receivables, asaasToReceivable(payment))
		}

		if !resp.HasMore {
			break
		}
	}

	return receivables, nil
}

// ListFinished is not supported: Asaas uses the per-item sync strategy
func (a *AsaasAdapter) ListFinished(_ context.Context, _ *provider.Connection) ([]provider.Receivable, error) {
	return nil, provider.ErrNotSupported
}

// CheckReceivable looks up one payment by id. A 404 means the payment was
// removed upstream.
func (a *AsaasAdapter) CheckReceivable(ctx context.Context, conn *provider.Connection, externalID string) (*provider.StatusInfo, error) {
	itemURL := fmt.Sprintf("%s/payments/%s", a.urlBase(conn), url.PathEscape(externalID))

	status, body, err := doGet(ctx, a.httpClient, itemURL, a.headers(conn))
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return &provider.StatusInfo{ExternalID: externalID, State: provider.ReceivableNotFound}, nil
	}
	if status >= 400 {
		return nil, fmt.Errorf("%w: asaas HTTP %d", provider.ErrRequestFailed, status)
	}

	var payment asaasPayment
	if err := json.Unmarshal(body, &payment); err != nil {
		return nil, fmt.Errorf("%w: asaas: %v", provider.ErrInvalidResponse, err)
	}

	info := &provider.StatusInfo{
		ExternalID: externalID,
		State:      provider.ReceivableOpen,
	}
	if due, ok := parseAsaasDate(payment.DueDate); ok {
		info.DueDate = &due
	}
	switch {
	case asaasPaidStatuses[payment.Status]:
		info.State = provider.ReceivablePaid
		if paid, ok := parseAsaasDate(payment.PaymentDate); ok {
			info.PaidAt = &paid
		}
	case asaasCancelledStatuses[payment.Status]:
		info.State = provider.ReceivableCancelled
	}
	return info, nil
}

func (a *AsaasAdapter) urlBase(conn *provider.Connection) string {
	if conn.Sandbox {
		return a.sandboxBaseURL
	}
	return a.baseURL
}

func (a *AsaasAdapter) headers(conn *provider.Connection) map[string]string {
	return map[string]string{"access_token": conn.APIKey}
}

func asaasToReceivable(payment asaasPayment) provider.Receivable {
	due, _ := parseAsaasDate(payment.DueDate)
	return provider.Receivable{
		ExternalID:   payment.ID,
		Counterparty: payment.Customer.Name,
		TaxID:        payment.Customer.CpfCnpj,
		Amount:       payment.Value,
		DueDate:      due,
		Category:     payment.Description,
	}
}

// Ensure AsaasAdapter implements BillingProvider
var _ provider.BillingProvider = (*AsaasAdapter)(nil)

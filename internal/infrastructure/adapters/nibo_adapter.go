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
	niboDefaultBaseURL  = "https://api.nibo.com.br/empresas/v1"
	niboPageSize        = 50
	niboDefaultMaxPages = 200
)

// NiboAdapter implements provider.BillingProvider against the Nibo
// schedules API. Pagination uses OData $skip/$top.
type NiboAdapter struct {
	httpClient *http.Client
	baseURL    string
	pageSize   int
	maxPages   int
	logger     *zap.Logger
}

// NewNiboAdapter creates a Nibo adapter
func NewNiboAdapter(client *http.Client, maxPages int, logger *zap.Logger) *NiboAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NiboAdapter{
		httpClient: client,
		baseURL:    niboDefaultBaseURL,
		pageSize:   niboPageSize,
		maxPages:   clampPages(niboDefaultMaxPages, maxPages),
		logger:     logger,
	}
}

// SetBaseURL overrides the API base URL. Used by tests.
func (a *NiboAdapter) SetBaseURL(baseURL string) {
	a.baseURL = baseURL
}

// Code returns the provider this adapter talks to
func (a *NiboAdapter) Code() provider.Code {
	return provider.CodeNibo
}

// ListPending returns all unpaid receivable schedules for one connection
func (a *NiboAdapter) ListPending(ctx context.Context, conn *provider.Connection) ([]provider.Receivable, error) {
	return a.listSchedules(ctx, conn, "isPaid eq false")
}

// ListFinished returns the receivable schedules already settled upstream
func (a *NiboAdapter) ListFinished(ctx context.Context, conn *provider.Connection) ([]provider.Receivable, error) {
	return a.listSchedules(ctx, conn, "isPaid eq true")
}

func (a *NiboAdapter) listSchedules(ctx context.Context, conn *provider.Connection, filter string) ([]provider.Receivable, error) {
	var receivables []provider.Receivable

	for page := 0; page < a.maxPages; page++ {
		query := url.Values{}
		query.Set("$skip", strconv.Itoa(page*a.pageSize))
		query.Set("$top", strconv.Itoa(a.pageSize))
		query.Set("$filter", filter)
		pageURL := fmt.Sprintf("%s/schedules/credit?%s", a.baseURL, query.Encode())

		status, body, err := doGet(ctx, a.httpClient, pageURL, a.headers(conn))
		if err != nil {
			return nil, err
		}
		if status >= 400 {
			// A failing page ends this connection's loop; what was already
			// accumulated still flows back to the caller.
			a.logger.Warn("nibo page fetch failed",
				zap.Int("status", status),
				zap.Int("page", page),
			)
			return receivables, fmt.Errorf("%w: nibo HTTP %d", provider.ErrRequestFailed, status)
		}

		var resp niboListResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return receivables, fmt.Errorf("%w: nibo: %v", provider.ErrInvalidResponse, err)
		}

		for _, item := range resp.Items {
			receivables = append(receivables, niboToReceivable(item))
		}

		if len(resp.Items) < a.pageSize {
			break
		}
	}

	return receivables, nil
}

// CheckReceivable looks up one schedule by id. A 404 means the schedule was
// removed upstream and maps to not_found, not an error.
func (a *NiboAdapter) CheckReceivable(ctx context.Context, conn *provider.Connection, externalID string) (*provider.StatusInfo, error) {
	itemURL := fmt.Sprintf("%s/schedules/credit/%s", a.baseURL, url.PathEscape(externalID))

	status, body, err := doGet(ctx, a.httpClient, itemURL, a.headers(conn))
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return &provider.StatusInfo{ExternalID: externalID, State: provider.ReceivableNotFound}, nil
	}
	if status >= 400 {
		return nil, fmt.Errorf("%w: nibo HTTP %d", provider.ErrRequestFailed, status)
	}

	var schedule niboSchedule
	if err := json.Unmarshal(body, &schedule); err != nil {
		return nil, fmt.Errorf("%w: nibo: %v", provider.ErrInvalidResponse, err)
	}

	info := &provider.StatusInfo{
		ExternalID: externalID,
		State:      provider.ReceivableOpen,
	}
	if due, ok := parseNiboDate(schedule.DueDate); ok {
		info.DueDate = &due
	}
	if schedule.IsPaid {
		info.State = provider.ReceivablePaid
		if paid, ok := parseNiboDate(schedule.PaidDate); ok {
			info.PaidAt = &paid
		}
	}
	return info, nil
}

func (a *NiboAdapter) headers(conn *provider.Connection) map[string]string {
	return map[string]string{"apitoken": conn.APIKey}
}

func niboToReceivable(item niboSchedule) provider.Receivable {
	due, _ := parseNiboDate(item.DueDate)
	return provider.Receivable{
		ExternalID:   item.ScheduleID,
		Counterparty: item.Stakeholder.Name,
		TaxID:        item.Stakeholder.CPFCNPJ,
		Amount:       item.Value,
		DueDate:      due,
		Category:     item.categoryName(),
	}
}

// Ensure NiboAdapter implements BillingProvider
var _ provider.BillingProvider = (*NiboAdapter)(nil)

package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/boletohub/backend/internal/application/reconcile"
	"github.com/boletohub/backend/internal/domain/billing"
	"github.com/boletohub/backend/internal/domain/provider"
	"github.com/boletohub/backend/internal/domain/shared"
	"github.com/boletohub/backend/internal/infrastructure/config"
	"github.com/boletohub/backend/internal/interfaces/http/dto"
)

type reconcileHandlerFixture struct {
	clients  *MockClientRepository
	invoices *MockInvoiceRepository
	conns    *MockConnectionRepository
	audits   *MockAuditRepository
	adapter  *MockBillingProvider
	lock     *stubLock
	handler  *ReconcileHandler
}

func newReconcileHandlerFixture(code provider.Code) *reconcileHandlerFixture {
	f := &reconcileHandlerFixture{
		clients:  new(MockClientRepository),
		invoices: new(MockInvoiceRepository),
		conns:    new(MockConnectionRepository),
		audits:   new(MockAuditRepository),
		adapter:  &MockBillingProvider{code: code},
		lock:     &stubLock{},
	}
	cfg := config.ProviderConfig{
		RequestTimeout: 5 * time.Second,
		MaxPages:       10,
		SyncBatchSize:  20,
		LockTTL:        5 * time.Minute,
	}
	registry := stubRegistry{adapter: f.adapter}
	f.handler = NewReconcileHandler(
		reconcile.NewImportService(f.clients, f.invoices, f.conns, f.audits, registry, f.lock, cfg, nil),
		reconcile.NewSyncService(f.invoices, f.conns, f.audits, registry, f.lock, cfg, nil),
		f.audits,
	)
	return f
}

func enabledConnection(t *testing.T, tenantID uuid.UUID, code provider.Code) provider.Connection {
	t.Helper()
	conn, err := provider.NewConnection(tenantID, code, "primary", "key-123456", false)
	require.NoError(t, err)
	return *conn
}

func TestReconcileHandler_Import(t *testing.T) {
	tenantID := uuid.New()
	f := newReconcileHandlerFixture(provider.CodeNibo)

	conn := enabledConnection(t, tenantID, provider.CodeNibo)
	f.conns.On("FindEnabled", mock.Anything, tenantID, provider.CodeNibo).Return([]provider.Connection{conn}, nil)
	f.adapter.On("ListPending", mock.Anything, mock.Anything).Return([]provider.Receivable{{
		ExternalID:   "nibo-1",
		Counterparty: "Acme Ltda",
		TaxID:        "123.456.789-00",
		Amount:       decimal.RequireFromString("150.00"),
		DueDate:      mustDate("2026-09-10"),
	}}, nil)
	f.clients.On("FindByTaxID", mock.Anything, tenantID, "12345678900").Return(nil, shared.ErrNotFound)
	f.clients.On("FindByCode", mock.Anything, tenantID, mock.Anything).Return(nil, shared.ErrNotFound)
	f.clients.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.invoices.On("FindByDedupeKey", mock.Anything, tenantID, mock.Anything, mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)
	f.invoices.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.audits.On("Append", mock.Anything, mock.Anything).Return(nil)

	router := newTestRouter(tenantID, uuid.New(), nil, f.handler.RegisterRoutes)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile/nibo/import", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(1), data["total"])
	assert.Equal(t, float64(1), data["imported"])
	assert.Equal(t, float64(1), data["clients_created"])
	f.audits.AssertExpectations(t)
}

func TestReconcileHandler_Import_TargetConnection(t *testing.T) {
	tenantID := uuid.New()
	f := newReconcileHandlerFixture(provider.CodeNibo)

	first := enabledConnection(t, tenantID, provider.CodeNibo)
	second := enabledConnection(t, tenantID, provider.CodeNibo)
	f.conns.On("FindEnabled", mock.Anything, tenantID, provider.CodeNibo).
		Return([]provider.Connection{first, second}, nil)
	f.adapter.On("ListPending", mock.Anything, mock.MatchedBy(func(c *provider.Connection) bool {
		return c.ID == second.ID
	})).Return([]provider.Receivable{}, nil)
	f.audits.On("Append", mock.Anything, mock.Anything).Return(nil)

	router := newTestRouter(tenantID, uuid.New(), nil, f.handler.RegisterRoutes)

	w := httptest.NewRecorder()
	body := fmt.Sprintf(`{"connection_id":%q}`, second.ID)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile/nibo/import", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	f.adapter.AssertNumberOfCalls(t, "ListPending", 1)
}

func TestReconcileHandler_Import_InvalidConnectionID(t *testing.T) {
	tenantID := uuid.New()
	f := newReconcileHandlerFixture(provider.CodeNibo)

	router := newTestRouter(tenantID, uuid.New(), nil, f.handler.RegisterRoutes)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile/nibo/import", strings.NewReader(`{"connection_id":"not-a-uuid"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.conns.AssertNotCalled(t, "FindEnabled", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcileHandler_Import_AlreadyRunning(t *testing.T) {
	tenantID := uuid.New()
	f := newReconcileHandlerFixture(provider.CodeNibo)
	f.lock.denied = true

	conn := enabledConnection(t, tenantID, provider.CodeNibo)
	f.conns.On("FindEnabled", mock.Anything, tenantID, provider.CodeNibo).Return([]provider.Connection{conn}, nil)

	router := newTestRouter(tenantID, uuid.New(), nil, f.handler.RegisterRoutes)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile/nibo/import", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "sync already running", body["message"])
}

func TestReconcileHandler_Import_UnknownProvider(t *testing.T) {
	tenantID := uuid.New()
	f := newReconcileHandlerFixture(provider.CodeNibo)

	router := newTestRouter(tenantID, uuid.New(), nil, f.handler.RegisterRoutes)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile/stripe/import", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReconcileHandler_Import_NoConnections(t *testing.T) {
	tenantID := uuid.New()
	f := newReconcileHandlerFixture(provider.CodeAsaas)

	f.conns.On("FindEnabled", mock.Anything, tenantID, provider.CodeAsaas).Return([]provider.Connection{}, nil)

	router := newTestRouter(tenantID, uuid.New(), nil, f.handler.RegisterRoutes)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile/asaas/import", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeNoConnections, resp.Error.Code)
}

func TestReconcileHandler_Preview(t *testing.T) {
	tenantID := uuid.New()
	f := newReconcileHandlerFixture(provider.CodeSafe2Pay)

	conn := enabledConnection(t, tenantID, provider.CodeSafe2Pay)
	f.conns.On("FindEnabled", mock.Anything, tenantID, provider.CodeSafe2Pay).Return([]provider.Connection{conn}, nil)
	f.adapter.On("ListPending", mock.Anything, mock.Anything).Return([]provider.Receivable{
		{ExternalID: "s2p-1", Counterparty: "Beta SA", Amount: decimal.RequireFromString("80.00"), DueDate: mustDate("2026-09-01")},
		{ExternalID: "s2p-2", Counterparty: "Gama ME", Amount: decimal.RequireFromString("45.50"), DueDate: mustDate("2026-09-05")},
	}, nil)

	router := newTestRouter(tenantID, uuid.New(), nil, f.handler.RegisterRoutes)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reconcile/safe2pay/preview", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(2), data["total"])
	assert.Equal(t, "safe2pay", data["provider"])
	f.invoices.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestReconcileHandler_Sync(t *testing.T) {
	tenantID := uuid.New()
	f := newReconcileHandlerFixture(provider.CodeNibo)

	conn := enabledConnection(t, tenantID, provider.CodeNibo)
	client := testClient(t, tenantID)
	inv, err := billing.NewInvoice(tenantID, client.ID, decimal.RequireFromString("150.00"), mustDate("2026-08-10"), "")
	require.NoError(t, err)
	inv.SetExternalRef("nibo-9")

	f.conns.On("FindEnabled", mock.Anything, tenantID, provider.CodeNibo).Return([]provider.Connection{conn}, nil)
	f.invoices.On("FindSyncCandidates", mock.Anything, tenantID).Return([]billing.Invoice{*inv}, nil)
	f.adapter.On("ListFinished", mock.Anything, mock.Anything).Return([]provider.Receivable{
		{ExternalID: "nibo-9", DueDate: mustDate("2026-08-10")},
	}, nil)
	f.adapter.On("ListPending", mock.Anything, mock.Anything).Return([]provider.Receivable{}, nil)
	f.invoices.On("Save", mock.Anything, mock.MatchedBy(func(saved *billing.Invoice) bool {
		return saved.Status == billing.InvoiceStatusPaid
	})).Return(nil)
	f.audits.On("Append", mock.Anything, mock.Anything).Return(nil)

	router := newTestRouter(tenantID, uuid.New(), nil, f.handler.RegisterRoutes)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile/nibo/sync", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(1), data["total"])
	assert.Equal(t, float64(1), data["updated"])
}

func TestReconcileHandler_ListAudits(t *testing.T) {
	tenantID := uuid.New()
	actorID := uuid.New()
	f := newReconcileHandlerFixture(provider.CodeNibo)

	record := billing.NewAuditRecord(tenantID, actorID, billing.AuditActionImport, "nibo",
		map[string]int{"imported": 3}, 1200*time.Millisecond)
	f.audits.On("FindAllForTenant", mock.Anything, tenantID, mock.Anything).Return([]billing.AuditRecord{*record}, nil)

	router := newTestRouter(tenantID, actorID, []string{"admin"}, f.handler.RegisterRoutes)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit-records", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	items := resp.Data.([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "import", items[0].(map[string]any)["action"])
}

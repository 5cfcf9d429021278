package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/boletohub/backend/internal/application/reconcile"
	"github.com/boletohub/backend/internal/domain/billing"
	"github.com/boletohub/backend/internal/domain/provider"
	"github.com/boletohub/backend/internal/domain/shared"
	"github.com/boletohub/backend/internal/interfaces/http/middleware"
)

// parseProviderParam parses the :provider path parameter
func parseProviderParam(c *gin.Context) (provider.Code, error) {
	return provider.ParseCode(c.Param("provider"))
}

// ReconcileHandler handles provider import and sync endpoints
type ReconcileHandler struct {
	BaseHandler
	importService *reconcile.ImportService
	syncService   *reconcile.SyncService
	audits        billing.AuditRepository
}

// NewReconcileHandler creates a new ReconcileHandler
func NewReconcileHandler(
	importService *reconcile.ImportService,
	syncService *reconcile.SyncService,
	audits billing.AuditRepository,
) *ReconcileHandler {
	return &ReconcileHandler{
		importService: importService,
		syncService:   syncService,
		audits:        audits,
	}
}

// ImportRequest narrows an import run to a single connection
type ImportRequest struct {
	ConnectionID string `json:"connection_id" binding:"omitempty,uuid"`
}

// AuditRecordResponse represents an audit record in API responses
type AuditRecordResponse struct {
	ID         string    `json:"id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	Provider   string    `json:"provider,omitempty"`
	Outcome    string    `json:"outcome"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

func toAuditRecordResponse(record *billing.AuditRecord) AuditRecordResponse {
	return AuditRecordResponse{
		ID:         record.ID.String(),
		Actor:      record.Actor.String(),
		Action:     string(record.Action),
		Provider:   record.Provider,
		Outcome:    record.Outcome,
		DurationMs: record.DurationMs,
		CreatedAt:  record.CreatedAt,
	}
}

// Preview lists pending receivables from a provider without importing them
func (h *ReconcileHandler) Preview(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}
	code, err := parseProviderParam(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	receivables, err := h.importService.Preview(c.Request.Context(), tenantID, code)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	h.Success(c, gin.H{
		"provider":    string(code),
		"total":       len(receivables),
		"receivables": receivables,
	})
}

// Import pulls pending receivables from a provider and creates invoices
func (h *ReconcileHandler) Import(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}
	actorID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid user")
		return
	}
	code, err := parseProviderParam(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var req ImportRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.BindingError(c, err)
		return
	}
	var connectionID *uuid.UUID
	if req.ConnectionID != "" {
		id, err := uuid.Parse(req.ConnectionID)
		if err != nil {
			h.BadRequest(c, "Invalid connection ID")
			return
		}
		connectionID = &id
	}

	result, err := h.importService.Import(c.Request.Context(), tenantID, actorID, code, connectionID, nil)
	if err != nil {
		h.reconcileError(c, err)
		return
	}

	h.Success(c, result)
}

// Sync refreshes the status of linked invoices against a provider
func (h *ReconcileHandler) Sync(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}
	actorID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid user")
		return
	}
	code, err := parseProviderParam(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.syncService.Sync(c.Request.Context(), tenantID, actorID, code)
	if err != nil {
		h.reconcileError(c, err)
		return
	}

	h.Success(c, result)
}

// ListAudits returns the audit trail of reconciliation runs, newest first
func (h *ReconcileHandler) ListAudits(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}
	filter, err := listFilter(c)
	if err != nil {
		h.BindingError(c, err)
		return
	}

	records, err := h.audits.FindAllForTenant(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	items := make([]AuditRecordResponse, 0, len(records))
	for i := range records {
		items = append(items, toAuditRecordResponse(&records[i]))
	}
	h.Success(c, items)
}

// reconcileError maps run errors to responses. A run that could not start
// because another one holds the lock is not a failure from the caller's
// point of view, so it answers 200 with a message instead of an error.
func (h *ReconcileHandler) reconcileError(c *gin.Context, err error) {
	if errors.Is(err, shared.ErrSyncInProgress) {
		c.JSON(http.StatusOK, gin.H{"message": "sync already running"})
		return
	}
	h.DomainError(c, err)
}

// RegisterRoutes registers reconcile routes on the versioned API group
func (h *ReconcileHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rec := rg.Group("/reconcile")
	{
		rec.GET("/:provider/preview", h.Preview)
		rec.POST("/:provider/import", h.Import)
		rec.POST("/:provider/sync", h.Sync)
	}
	rg.GET("/audit-records",
		middleware.RequireRoles(middleware.RoleOwner, middleware.RoleAdmin),
		h.ListAudits)
}

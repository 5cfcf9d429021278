package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	billingapp "github.com/boletohub/backend/internal/application/billing"
	"github.com/boletohub/backend/internal/application/reconcile"
	"github.com/boletohub/backend/internal/domain/billing"
	"github.com/boletohub/backend/internal/interfaces/http/middleware"
)

// InvoiceHandler handles invoice API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService     *billingapp.InvoiceService
	bulkDeleteService  *reconcile.BulkDeleteService
	amountTolerance    float64
	amountTolerancePct float64
}

// NewInvoiceHandler creates a new InvoiceHandler. The tolerance pair
// bounds approximate amount matching on the amount-check endpoint.
func NewInvoiceHandler(invoiceService *billingapp.InvoiceService, bulkDeleteService *reconcile.BulkDeleteService, amountTolerance, amountTolerancePct float64) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService:     invoiceService,
		bulkDeleteService:  bulkDeleteService,
		amountTolerance:    amountTolerance,
		amountTolerancePct: amountTolerancePct,
	}
}

// CreateInvoiceRequest represents a request to create an invoice
type CreateInvoiceRequest struct {
	ClientID string `json:"client_id" binding:"required,uuid"`
	Amount   string `json:"amount" binding:"required"`
	DueDate  string `json:"due_date" binding:"required,datetime=2006-01-02"`
	Category string `json:"category" binding:"max=100"`
}

// PayInvoiceRequest represents a request to mark an invoice as paid
type PayInvoiceRequest struct {
	PaymentDate string `json:"payment_date" binding:"omitempty,datetime=2006-01-02"`
}

// BulkDeleteRequest represents a request to delete a tenant's invoices,
// optionally narrowed to one competence period
type BulkDeleteRequest struct {
	MonthFilter string `json:"month_filter" binding:"omitempty,len=7"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID            string     `json:"id"`
	ClientID      string     `json:"client_id"`
	Amount        string     `json:"amount"`
	DueDate       string     `json:"due_date"`
	Competence    string     `json:"competence"`
	Category      string     `json:"category,omitempty"`
	Status        string     `json:"status"`
	PaymentDate   *string    `json:"payment_date,omitempty"`
	ExternalRef   *string    `json:"external_ref,omitempty"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func toInvoiceResponse(inv *billing.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:            inv.ID.String(),
		ClientID:      inv.ClientID.String(),
		Amount:        inv.Amount.StringFixed(2),
		DueDate:       inv.DueDate.Format("2006-01-02"),
		Competence:    inv.Competence,
		Category:      inv.Category,
		Status:        string(inv.Status),
		ExternalRef:   inv.ExternalRef,
		LastCheckedAt: inv.LastCheckedAt,
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
	if inv.PaymentDate != nil {
		paid := inv.PaymentDate.Format("2006-01-02")
		resp.PaymentDate = &paid
	}
	return resp
}

// Create creates a new invoice
func (h *InvoiceHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		h.BadRequest(c, "Invalid client ID")
		return
	}
	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		h.BadRequest(c, "Invalid due date")
		return
	}

	invoice, err := h.invoiceService.Create(c.Request.Context(), tenantID, billingapp.CreateInvoiceInput{
		ClientID: clientID,
		Amount:   req.Amount,
		DueDate:  dueDate,
		Category: req.Category,
	})
	if err != nil {
		h.DomainError(c, err)
		return
	}

	h.Created(c, toInvoiceResponse(invoice))
}

// Get returns a single invoice by id
func (h *InvoiceHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	invoice, err := h.invoiceService.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(invoice))
}

// List returns invoices filtered by status, client, competence or category
func (h *InvoiceHandler) List(c *gin.Context) {
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
	if status := c.Query("status"); status != "" {
		filter.Filters["status"] = status
	}
	if clientID := c.Query("client_id"); clientID != "" {
		filter.Filters["client_id"] = clientID
	}
	if competence := c.Query("competence"); competence != "" {
		filter.Filters["competence"] = competence
	}
	if category := c.Query("category"); category != "" {
		filter.Filters["category"] = category
	}

	page, err := h.invoiceService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	items := make([]InvoiceResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, toInvoiceResponse(&page.Items[i]))
	}
	h.SuccessWithMeta(c, items, page.Total, page.Page, page.PageSize)
}

// Pay marks an invoice as paid
func (h *InvoiceHandler) Pay(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	var req PayInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	var paymentDate *time.Time
	if req.PaymentDate != "" {
		parsed, err := time.Parse("2006-01-02", req.PaymentDate)
		if err != nil {
			h.BadRequest(c, "Invalid payment date")
			return
		}
		paymentDate = &parsed
	}

	invoice, err := h.invoiceService.Pay(c.Request.Context(), tenantID, id, paymentDate)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(invoice))
}

// Unpay reverts a paid invoice back to unpaid
func (h *InvoiceHandler) Unpay(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	invoice, err := h.invoiceService.Unpay(c.Request.Context(), tenantID, id)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(invoice))
}

// Cancel cancels an unpaid invoice
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	invoice, err := h.invoiceService.Cancel(c.Request.Context(), tenantID, id)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(invoice))
}

// AmountCheck lists the competence period's invoices whose amount matches
// the given value within the configured tolerance. Used by monthly report
// checks against bank statement entries.
func (h *InvoiceHandler) AmountCheck(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	amountStr := c.Query("amount")
	if amountStr == "" {
		h.BadRequest(c, "Amount is required")
		return
	}
	expected, err := decimal.NewFromString(amountStr)
	if err != nil {
		h.BadRequest(c, "Invalid amount")
		return
	}
	competence := c.Query("competence")

	invoices, err := h.invoiceService.FindAmountMatches(c.Request.Context(), tenantID, competence, expected, h.amountTolerance, h.amountTolerancePct)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	items := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		items = append(items, toInvoiceResponse(&invoices[i]))
	}
	h.Success(c, items)
}

// BulkDelete removes every invoice of a competence period
func (h *InvoiceHandler) BulkDelete(c *gin.Context) {
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

	var req BulkDeleteRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.bulkDeleteService.Delete(c.Request.Context(), tenantID, actorID, req.MonthFilter)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	h.Success(c, result)
}

// RegisterRoutes registers invoice routes on the versioned API group
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	{
		invoices.POST("", h.Create)
		invoices.GET("", h.List)
		invoices.GET("/amount-check", h.AmountCheck)
		invoices.GET("/:id", h.Get)
		invoices.POST("/:id/pay", h.Pay)
		invoices.POST("/:id/unpay", h.Unpay)
		invoices.POST("/:id/cancel", h.Cancel)
		invoices.POST("/bulk-delete",
			middleware.RequireRoles(middleware.RoleOwner, middleware.RoleAdmin),
			h.BulkDelete)
	}
}

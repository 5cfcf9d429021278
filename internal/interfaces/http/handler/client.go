package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	billingapp "github.com/boletohub/backend/internal/application/billing"
	"github.com/boletohub/backend/internal/domain/billing"
)

// ClientHandler handles client API endpoints
type ClientHandler struct {
	BaseHandler
	clientService *billingapp.ClientService
}

// NewClientHandler creates a new ClientHandler
func NewClientHandler(clientService *billingapp.ClientService) *ClientHandler {
	return &ClientHandler{
		clientService: clientService,
	}
}

// ClientResponse represents a client in API responses
type ClientResponse struct {
	ID              string    `json:"id"`
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	TaxID           string    `json:"tax_id,omitempty"`
	Status          string    `json:"status"`
	CompetenceStart string    `json:"competence_start,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toClientResponse(client *billing.Client) ClientResponse {
	return ClientResponse{
		ID:              client.ID.String(),
		Code:            client.Code,
		Name:            client.Name,
		TaxID:           client.TaxID,
		Status:          string(client.Status),
		CompetenceStart: client.CompetenceStart,
		Notes:           client.Notes,
		CreatedAt:       client.CreatedAt,
		UpdatedAt:       client.UpdatedAt,
	}
}

// Create registers a new client
func (h *ClientHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	var input billingapp.CreateClientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BindingError(c, err)
		return
	}

	client, err := h.clientService.Create(c.Request.Context(), tenantID, input)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	h.Created(c, toClientResponse(client))
}

// Get returns a single client by id
func (h *ClientHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid client ID")
		return
	}

	client, err := h.clientService.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	h.Success(c, toClientResponse(client))
}

// List returns clients for the tenant
func (h *ClientHandler) List(c *gin.Context) {
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

	page, err := h.clientService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	items := make([]ClientResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, toClientResponse(&page.Items[i]))
	}
	h.SuccessWithMeta(c, items, page.Total, page.Page, page.PageSize)
}

// Update edits a client's mutable fields
func (h *ClientHandler) Update(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid client ID")
		return
	}

	var input billingapp.UpdateClientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BindingError(c, err)
		return
	}

	client, err := h.clientService.Update(c.Request.Context(), tenantID, id, input)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	h.Success(c, toClientResponse(client))
}

// Deactivate marks a client as inactive
func (h *ClientHandler) Deactivate(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid client ID")
		return
	}

	client, err := h.clientService.Deactivate(c.Request.Context(), tenantID, id)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	h.Success(c, toClientResponse(client))
}

// RegisterRoutes registers client routes on the versioned API group
func (h *ClientHandler) RegisterRoutes(rg *gin.RouterGroup) {
	clients := rg.Group("/clients")
	{
		clients.POST("", h.Create)
		clients.GET("", h.List)
		clients.GET("/:id", h.Get)
		clients.PUT("/:id", h.Update)
		clients.POST("/:id/deactivate", h.Deactivate)
	}
}

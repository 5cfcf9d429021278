package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/boletohub/backend/internal/application/reconcile"
	"github.com/boletohub/backend/internal/domain/provider"
	"github.com/boletohub/backend/internal/interfaces/http/middleware"
)

// ConnectionHandler handles billing provider connection endpoints
type ConnectionHandler struct {
	BaseHandler
	connectionService *reconcile.ConnectionService
}

// NewConnectionHandler creates a new ConnectionHandler
func NewConnectionHandler(connectionService *reconcile.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{
		connectionService: connectionService,
	}
}

// ConnectionResponse represents a provider connection in API responses.
// The API key is never echoed back; only its last four characters are shown.
type ConnectionResponse struct {
	ID           string    `json:"id"`
	Provider     string    `json:"provider"`
	Name         string    `json:"name"`
	APIKeySuffix string    `json:"api_key_suffix"`
	Sandbox      bool      `json:"sandbox"`
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toConnectionResponse(conn *provider.Connection) ConnectionResponse {
	suffix := conn.APIKey
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return ConnectionResponse{
		ID:           conn.ID.String(),
		Provider:     string(conn.Provider),
		Name:         conn.Name,
		APIKeySuffix: suffix,
		Sandbox:      conn.Sandbox,
		Enabled:      conn.Enabled,
		CreatedAt:    conn.CreatedAt,
		UpdatedAt:    conn.UpdatedAt,
	}
}

// Create registers a new provider connection
func (h *ConnectionHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	var input reconcile.CreateConnectionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BindingError(c, err)
		return
	}

	conn, err := h.connectionService.Create(c.Request.Context(), tenantID, input)
	if err != nil {
		if errors.Is(err, provider.ErrUnknownProvider) {
			h.BadRequest(c, "Unknown provider code")
			return
		}
		h.DomainError(c, err)
		return
	}

	h.Created(c, toConnectionResponse(conn))
}

// List returns every provider connection of the tenant
func (h *ConnectionHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	conns, err := h.connectionService.List(c.Request.Context(), tenantID)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	items := make([]ConnectionResponse, 0, len(conns))
	for i := range conns {
		items = append(items, toConnectionResponse(&conns[i]))
	}
	h.Success(c, items)
}

// Get returns a single connection by id
func (h *ConnectionHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid connection ID")
		return
	}

	conn, err := h.connectionService.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	h.Success(c, toConnectionResponse(conn))
}

// Enable turns a connection on
func (h *ConnectionHandler) Enable(c *gin.Context) {
	h.setEnabled(c, true)
}

// Disable turns a connection off without deleting its credentials
func (h *ConnectionHandler) Disable(c *gin.Context) {
	h.setEnabled(c, false)
}

func (h *ConnectionHandler) setEnabled(c *gin.Context, enabled bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid connection ID")
		return
	}

	conn, err := h.connectionService.SetEnabled(c.Request.Context(), tenantID, id, enabled)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	h.Success(c, toConnectionResponse(conn))
}

// Delete removes a provider connection
func (h *ConnectionHandler) Delete(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid connection ID")
		return
	}

	if err := h.connectionService.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.DomainError(c, err)
		return
	}

	h.NoContent(c)
}

// RegisterRoutes registers connection routes on the versioned API group.
// All connection management requires an administrative role.
func (h *ConnectionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	conns := rg.Group("/connections")
	conns.Use(middleware.RequireRoles(middleware.RoleOwner, middleware.RoleAdmin))
	{
		conns.POST("", h.Create)
		conns.GET("", h.List)
		conns.GET("/:id", h.Get)
		conns.POST("/:id/enable", h.Enable)
		conns.POST("/:id/disable", h.Disable)
		conns.DELETE("/:id", h.Delete)
	}
}

package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/boletohub/backend/internal/domain/provider"
	"github.com/boletohub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ClientStatus represents the status of a client
type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "active"
	ClientStatusInactive ClientStatus = "inactive"
)

// Client represents a billable counterparty. Clients are created manually
// through the UI or auto-created by the import engine the first time an
// unmatched receivable is seen for a tax id; they are never auto-deleted.
type Client struct {
	shared.TenantEntity
	Code            string       `gorm:"type:varchar(50);not null;uniqueIndex:idx_client_tenant_code,priority:2"`
	Name            string       `gorm:"type:varchar(200);not null"`
	TaxID           string       `gorm:"type:varchar(20);index"` // digits only; empty allowed
	Status          ClientStatus `gorm:"type:varchar(20);not null;default:'active'"`
	CompetenceStart string       `gorm:"type:varchar(7)"` // YYYY-MM
	Notes           string       `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Client) TableName() string {
	return "clients"
}

// NewClient creates a new client with required fields. The tax id is
// normalized to its digits-only form before storage.
func NewClient(tenantID uuid.UUID, code, name, taxID string) (*Client, error) {
	if err := validateClientCode(code); err != nil {
		return nil, err
	}
	if err := validateClientName(name); err != nil {
		return nil, err
	}

	return &Client{
		TenantEntity: shared.NewTenantEntity(tenantID),
		Code:         strings.ToUpper(code),
		Name:         name,
		TaxID:        provider.NormalizeTaxID(taxID),
		Status:       ClientStatusActive,
	}, nil
}

// NewImportedClient creates a client from an unmatched receivable. The code
// is derived from the provider and tax id so a retry of a partially failed
// import finds the same client again.
func NewImportedClient(tenantID uuid.UUID, code provider.Code, name, taxID string, dueDate time.Time) (*Client, error) {
	normalized := provider.NormalizeTaxID(taxID)
	if normalized == "" {
		return nil, shared.NewDomainError("INVALID_TAX_ID", "Cannot auto-create a client without a tax id")
	}
	client, err := NewClient(tenantID, AutoClientCode(code, normalized), name, normalized)
	if err != nil {
		return nil, err
	}
	client.CompetenceStart = CompetenceFromDate(dueDate)
	return client, nil
}

// AutoClientCode builds the code assigned to auto-created clients
func AutoClientCode(code provider.Code, taxID string) string {
	return fmt.Sprintf("%s-%s", strings.ToUpper(string(code)), provider.NormalizeTaxID(taxID))
}

// Update updates the client's basic information
func (c *Client) Update(name, taxID string) error {
	if err := validateClientName(name); err != nil {
		return err
	}
	c.Name = name
	c.TaxID = provider.NormalizeTaxID(taxID)
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
	return nil
}

// Deactivate marks the client as inactive
func (c *Client) Deactivate() {
	c.Status = ClientStatusInactive
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

func validateClientCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Client code is required")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", "Client code cannot exceed 50 characters")
	}
	return nil
}

func validateClientName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Client name is required")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Client name cannot exceed 200 characters")
	}
	return nil
}

package billing

import (
	"encoding/json"
	"time"

	"github.com/boletohub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AuditAction identifies the operation an audit record was written for
type AuditAction string

const (
	AuditActionImport     AuditAction = "import"
	AuditActionSync       AuditAction = "sync"
	AuditActionBulkDelete AuditAction = "bulk_delete"
)

// AuditRecord is an append-only entry written once per completed
// reconciliation run. Records are never mutated or deleted.
type AuditRecord struct {
	shared.TenantEntity
	Actor      uuid.UUID   `gorm:"type:uuid;not null"`
	Action     AuditAction `gorm:"type:varchar(30);not null;index"`
	Provider   string      `gorm:"type:varchar(20)"`
	Outcome    string      `gorm:"type:jsonb"` // outcome counts, serialized
	DurationMs int64       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AuditRecord) TableName() string {
	return "audit_records"
}

// NewAuditRecord creates an audit record for a completed run. Outcome
// counts are stored as JSON; a marshalling failure degrades to an empty
// object rather than losing the record.
func NewAuditRecord(tenantID, actor uuid.UUID, action AuditAction, providerCode string, outcome any, duration time.Duration) *AuditRecord {
	payload := "{}"
	if raw, err := json.Marshal(outcome); err == nil {
		payload = string(raw)
	}
	return &AuditRecord{
		TenantEntity: shared.NewTenantEntity(tenantID),
		Actor:        actor,
		Action:       action,
		Provider:     providerCode,
		Outcome:      payload,
		DurationMs:   duration.Milliseconds(),
	}
}

package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/boletohub/backend/internal/domain/billing"
)

// deleteChunkSize bounds the id list of a single delete statement
const deleteChunkSize = 100

// BulkDeleteService removes a competence period's invoices in bulk. Paid
// invoices are soft-deleted so the payment history survives; unpaid and
// cancelled ones are removed for good.
type BulkDeleteService struct {
	invoices billing.InvoiceRepository
	audits   billing.AuditRepository
	logger   *zap.Logger
}

// NewBulkDeleteService creates a new bulk delete service
func NewBulkDeleteService(invoices billing.InvoiceRepository, audits billing.AuditRepository, logger *zap.Logger) *BulkDeleteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkDeleteService{invoices: invoices, audits: audits, logger: logger}
}

// Delete removes every invoice of the tenant's competence period, or the
// tenant's whole invoice set when no period is given. Chunk failures are
// collected into the result instead of aborting the run, and the run
// always leaves one audit record.
func (s *BulkDeleteService) Delete(ctx context.Context, tenantID, actorID uuid.UUID, competence string) (*BulkDeleteResult, error) {
	started := time.Now()
	invoices, err := s.invoices.FindByCompetence(ctx, tenantID, competence)
	if err != nil {
		return nil, err
	}

	result := &BulkDeleteResult{Total: len(invoices)}
	var softIDs, hardIDs []uuid.UUID
	for i := range invoices {
		if invoices[i].Status == billing.InvoiceStatusPaid {
			softIDs = append(softIDs, invoices[i].ID)
		} else {
			hardIDs = append(hardIDs, invoices[i].ID)
		}
	}

	result.SoftDeleted = s.deleteChunked(ctx, tenantID, softIDs, s.invoices.SoftDeleteByIDs, result)
	result.HardDeleted = s.deleteChunked(ctx, tenantID, hardIDs, s.invoices.HardDeleteByIDs, result)

	// The provider column carries the competence period for delete runs.
	period := competence
	if period == "" {
		period = "all"
	}
	record := billing.NewAuditRecord(tenantID, actorID, billing.AuditActionBulkDelete, period, result, time.Since(started))
	if err := s.audits.Append(ctx, record); err != nil {
		s.logger.Error("failed to append bulk delete audit record",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
	}

	s.logger.Info("bulk delete finished",
		zap.String("tenant_id", tenantID.String()),
		zap.String("competence", competence),
		zap.Int("soft_deleted", result.SoftDeleted),
		zap.Int("hard_deleted", result.HardDeleted),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

// deleteChunked deletes ids in fixed-size chunks, recording failed chunks
// and carrying on with the rest. Returns the number of ids deleted.
func (s *BulkDeleteService) deleteChunked(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID, del func(context.Context, uuid.UUID, []uuid.UUID) error, result *BulkDeleteResult) int {
	deleted := 0
	for start := 0; start < len(ids); start += deleteChunkSize {
		end := min(start+deleteChunkSize, len(ids))
		chunk := ids[start:end]
		if err := del(ctx, tenantID, chunk); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("chunk of %d invoices failed: %v", len(chunk), err))
			s.logger.Warn("bulk delete chunk failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err))
			continue
		}
		deleted += len(chunk)
	}
	return deleted
}

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/boletohub/backend/internal/domain/billing"
	"github.com/boletohub/backend/internal/domain/provider"
	"github.com/boletohub/backend/internal/domain/shared"
	"github.com/boletohub/backend/internal/infrastructure/config"
)

// ImportService pulls pending receivables from a billing provider and
// materializes them as clients and invoices. One run covers every enabled
// connection of the tenant for that provider, serialized by the per-tenant
// sync lock.
type ImportService struct {
	clients     billing.ClientRepository
	invoices    billing.InvoiceRepository
	connections provider.ConnectionRepository
	audits      billing.AuditRepository
	registry    provider.Registry
	lock        provider.SyncLock
	cfg         config.ProviderConfig
	logger      *zap.Logger
}

// NewImportService creates a new import service
func NewImportService(
	clients billing.ClientRepository,
	invoices billing.InvoiceRepository,
	connections provider.ConnectionRepository,
	audits billing.AuditRepository,
	registry provider.Registry,
	lock provider.SyncLock,
	cfg config.ProviderConfig,
	logger *zap.Logger,
) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		clients:     clients,
		invoices:    invoices,
		connections: connections,
		audits:      audits,
		registry:    registry,
		lock:        lock,
		cfg:         cfg,
		logger:      logger,
	}
}

// Preview lists the pending receivables visible through the tenant's
// enabled connections without writing anything. It takes no lock and
// leaves no audit trail.
func (s *ImportService) Preview(ctx context.Context, tenantID uuid.UUID, code provider.Code) ([]provider.Receivable, error) {
	adapter, err := s.registry.Get(code)
	if err != nil {
		return nil, err
	}
	conns, err := s.connections.FindEnabled(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}
	if len(conns) == 0 {
		return nil, shared.ErrNoConnections
	}

	all := make([]provider.Receivable, 0)
	failed := 0
	for i := range conns {
		receivables, err := adapter.ListPending(ctx, &conns[i])
		// A failing connection still yields what was fetched before the
		// error; keep those and consult the remaining connections.
		all = append(all, receivables...)
		if err != nil {
			if len(receivables) == 0 {
				failed++
			}
			s.logger.Warn("listing pending receivables failed",
				zap.String("tenant_id", tenantID.String()),
				zap.String("provider", string(code)),
				zap.String("connection", conns[i].Name),
				zap.Error(err))
		}
	}
	// Every connection failed with nothing fetched.
	if failed == len(conns) {
		return nil, shared.ErrProviderUnavailable
	}
	return all, nil
}

// Import runs one import for the tenant against every enabled connection
// of the given provider, or only the target connection when connectionID
// is set. Item-level failures are recorded in the result log and never
// abort the batch; the run always leaves one audit record.
func (s *ImportService) Import(ctx context.Context, tenantID, actorID uuid.UUID, code provider.Code, connectionID *uuid.UUID, progress Progress) (*ImportResult, error) {
	adapter, err := s.registry.Get(code)
	if err != nil {
		return nil, err
	}
	conns, err := s.connections.FindEnabled(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}
	if len(conns) == 0 {
		return nil, shared.ErrNoConnections
	}
	if connectionID != nil {
		conns, err = narrowToConnection(conns, *connectionID)
		if err != nil {
			return nil, err
		}
	}

	acquired, err := s.lock.Acquire(ctx, tenantID, code, s.cfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire sync lock: %w", err)
	}
	if !acquired {
		return nil, shared.ErrSyncInProgress
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx), tenantID, code); err != nil {
			s.logger.Warn("failed to release sync lock",
				zap.String("tenant_id", tenantID.String()),
				zap.String("provider", string(code)),
				zap.Error(err))
		}
	}()

	started := time.Now()
	result := &ImportResult{Log: make([]ImportLogEntry, 0)}

	receivables := make([]provider.Receivable, 0)
	failed := 0
	for i := range conns {
		batch, err := adapter.ListPending(ctx, &conns[i])
		// A failing page still yields what was fetched before it; keep
		// those and move on to the next connection.
		receivables = append(receivables, batch...)
		if err != nil {
			if len(batch) == 0 {
				failed++
			}
			s.logger.Warn("listing pending receivables failed",
				zap.String("tenant_id", tenantID.String()),
				zap.String("provider", string(code)),
				zap.String("connection", conns[i].Name),
				zap.Error(err))
		}
	}
	// Every connection failed with nothing fetched.
	if failed == len(conns) {
		return nil, shared.ErrProviderUnavailable
	}
	result.Total = len(receivables)

	for idx, rcv := range receivables {
		entry := s.importOne(ctx, tenantID, code, rcv, result)
		result.Log = append(result.Log, entry)
		if entry.Status == ImportEntryImported {
			result.Imported++
		} else {
			result.Skipped++
		}
		if progress != nil {
			progress(idx+1, result.Total, result.Imported, result.Skipped)
		}
	}

	record := billing.NewAuditRecord(tenantID, actorID, billing.AuditActionImport, string(code), result, time.Since(started))
	if err := s.audits.Append(ctx, record); err != nil {
		s.logger.Error("failed to append import audit record",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
	}

	s.logger.Info("import run finished",
		zap.String("tenant_id", tenantID.String()),
		zap.String("provider", string(code)),
		zap.Int("total", result.Total),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Duration("duration", time.Since(started)))
	return result, nil
}

// narrowToConnection restricts a run to one target connection. The target
// must be among the provider's enabled connections.
func narrowToConnection(conns []provider.Connection, id uuid.UUID) ([]provider.Connection, error) {
	for i := range conns {
		if conns[i].ID == id {
			return conns[i : i+1], nil
		}
	}
	return nil, shared.NewDomainError("NOT_FOUND", "Connection not found or not enabled for this provider")
}

// importOne runs the per-receivable pipeline. Any error becomes a skipped
// log entry so one bad item cannot poison the rest of the batch.
func (s *ImportService) importOne(ctx context.Context, tenantID uuid.UUID, code provider.Code, rcv provider.Receivable, result *ImportResult) ImportLogEntry {
	entry := ImportLogEntry{
		ExternalID:   rcv.ExternalID,
		Counterparty: rcv.Counterparty,
		Status:       ImportEntrySkipped,
	}

	taxID := rcv.NormalizedTaxID()
	if taxID == "" {
		entry.Reason = "no tax id"
		return entry
	}

	client, clientCreated, err := s.resolveClient(ctx, tenantID, code, rcv, taxID, result)
	if err != nil {
		entry.Reason = fmt.Sprintf("error: %v", err)
		return entry
	}
	entry.ClientCode = client.Code

	existing, err := s.invoices.FindByDedupeKey(ctx, tenantID, client.ID, rcv.DueDate, rcv.Amount)
	switch {
	case err == nil:
		if !existing.HasExternalRef() && rcv.ExternalID != "" {
			existing.SetExternalRef(rcv.ExternalID)
			if err := s.invoices.Save(ctx, existing); err != nil {
				entry.Reason = fmt.Sprintf("error: %v", err)
				return entry
			}
			entry.Reason = "reference backfilled"
			return entry
		}
		entry.Reason = "duplicate"
		return entry
	case !errors.Is(err, shared.ErrNotFound):
		entry.Reason = fmt.Sprintf("error: %v", err)
		return entry
	}

	category := rcv.Category
	if category == "" {
		category = code.DefaultCategory()
	}
	invoice, err := billing.NewInvoice(tenantID, client.ID, rcv.Amount, rcv.DueDate, category)
	if err != nil {
		entry.Reason = fmt.Sprintf("error: %v", err)
		return entry
	}
	invoice.SetExternalRef(rcv.ExternalID)
	if err := s.invoices.Save(ctx, invoice); err != nil {
		entry.Reason = fmt.Sprintf("error: %v", err)
		return entry
	}

	entry.Status = ImportEntryImported
	if clientCreated {
		entry.Reason = "client auto-created"
	}
	return entry
}

// resolveClient finds the receivable's client by tax id, then by the
// provider-derived code (the retry path after a partial import), and
// finally auto-creates it. The second return reports whether the client
// was created by this call.
func (s *ImportService) resolveClient(ctx context.Context, tenantID uuid.UUID, code provider.Code, rcv provider.Receivable, taxID string, result *ImportResult) (*billing.Client, bool, error) {
	client, err := s.clients.FindByTaxID(ctx, tenantID, taxID)
	if err == nil {
		return client, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, err
	}

	client, err = s.clients.FindByCode(ctx, tenantID, billing.AutoClientCode(code, taxID))
	if err == nil {
		return client, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, err
	}

	client, err = billing.NewImportedClient(tenantID, code, rcv.Counterparty, taxID, rcv.DueDate)
	if err != nil {
		return nil, false, err
	}
	if err := s.clients.Save(ctx, client); err != nil {
		return nil, false, err
	}
	result.ClientsCreated++

	s.logger.Debug("auto-created client from receivable",
		zap.String("tenant_id", tenantID.String()),
		zap.String("client_code", client.Code),
		zap.String("provider", string(code)))
	return client, true, nil
}

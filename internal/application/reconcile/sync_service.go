package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/boletohub/backend/internal/domain/billing"
	"github.com/boletohub/backend/internal/domain/provider"
	"github.com/boletohub/backend/internal/domain/shared"
	"github.com/boletohub/backend/internal/infrastructure/config"
)

// SyncService reconciles local unpaid invoices against their upstream
// receivables. Providers with a finished listing are synced via bulk maps
// built from two listing calls per connection; providers without one fall
// back to checking each invoice individually.
type SyncService struct {
	invoices    billing.InvoiceRepository
	connections provider.ConnectionRepository
	audits      billing.AuditRepository
	registry    provider.Registry
	lock        provider.SyncLock
	cfg         config.ProviderConfig
	logger      *zap.Logger
}

// NewSyncService creates a new sync service
func NewSyncService(
	invoices billing.InvoiceRepository,
	connections provider.ConnectionRepository,
	audits billing.AuditRepository,
	registry provider.Registry,
	lock provider.SyncLock,
	cfg config.ProviderConfig,
	logger *zap.Logger,
) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		invoices:    invoices,
		connections: connections,
		audits:      audits,
		registry:    registry,
		lock:        lock,
		cfg:         cfg,
		logger:      logger,
	}
}

// connSnapshot holds one connection's receivables keyed by external id
type connSnapshot struct {
	conn     *provider.Connection
	open     map[string]provider.Receivable
	finished map[string]provider.Receivable
}

// Sync runs one status sync for the tenant against the given provider.
// Item-level failures are logged and swallowed; the run always leaves one
// audit record. A run already in progress returns ErrSyncInProgress.
func (s *SyncService) Sync(ctx context.Context, tenantID, actorID uuid.UUID, code provider.Code) (*SyncResult, error) {
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
	result := &SyncResult{}

	candidates, err := s.invoices.FindSyncCandidates(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	result.Total = len(candidates)

	if result.Total > 0 {
		snapshots, perItem, err := s.buildSnapshots(ctx, adapter, conns)
		if err != nil {
			return nil, err
		}
		if perItem {
			s.syncPerItem(ctx, tenantID, adapter, conns, candidates, result)
		} else {
			s.syncBulk(ctx, tenantID, adapter, snapshots, candidates, result)
		}
	}

	record := billing.NewAuditRecord(tenantID, actorID, billing.AuditActionSync, string(code), result, time.Since(started))
	if err := s.audits.Append(ctx, record); err != nil {
		s.logger.Error("failed to append sync audit record",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
	}

	s.logger.Info("sync run finished",
		zap.String("tenant_id", tenantID.String()),
		zap.String("provider", string(code)),
		zap.Int("total", result.Total),
		zap.Int("updated", result.Updated),
		zap.Int("cancelled", result.Cancelled),
		zap.Int("due_date_updated", result.DueDateUpdated),
		zap.Duration("duration", time.Since(started)))
	return result, nil
}

// buildSnapshots fetches the open and finished listings for every
// connection. A provider without a finished listing flips the run to the
// per-item strategy instead.
func (s *SyncService) buildSnapshots(ctx context.Context, adapter provider.BillingProvider, conns []provider.Connection) ([]connSnapshot, bool, error) {
	snapshots := make([]connSnapshot, 0, len(conns))
	for i := range conns {
		conn := &conns[i]

		finished, err := adapter.ListFinished(ctx, conn)
		if errors.Is(err, provider.ErrNotSupported) {
			return nil, true, nil
		}
		if err != nil {
			s.logger.Warn("listing finished receivables failed",
				zap.String("connection", conn.Name),
				zap.Error(err))
		}

		open, err := adapter.ListPending(ctx, conn)
		if err != nil {
			s.logger.Warn("listing pending receivables failed",
				zap.String("connection", conn.Name),
				zap.Error(err))
		}

		snap := connSnapshot{
			conn:     conn,
			open:     make(map[string]provider.Receivable, len(open)),
			finished: make(map[string]provider.Receivable, len(finished)),
		}
		for _, r := range open {
			snap.open[r.ExternalID] = r
		}
		for _, r := range finished {
			snap.finished[r.ExternalID] = r
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, false, nil
}

// syncBulk resolves each candidate against the per-connection maps. The
// first connection that knows the receivable decides its fate; an invoice
// absent from both maps is checked individually. A receivable not found on
// any connection was deleted upstream and cancels the invoice, same as the
// per-item strategy.
func (s *SyncService) syncBulk(ctx context.Context, tenantID uuid.UUID, adapter provider.BillingProvider, snapshots []connSnapshot, candidates []billing.Invoice, result *SyncResult) {
	now := time.Now()
	for i := range candidates {
		inv := &candidates[i]
		ref := *inv.ExternalRef

		resolved := false
		sawNotFound := false
		for _, snap := range snapshots {
			if rcv, ok := snap.finished[ref]; ok {
				s.applyPaid(ctx, tenantID, inv, paymentDateFor(rcv, now), result)
				resolved = true
				break
			}
			if rcv, ok := snap.open[ref]; ok {
				s.applyOpen(ctx, tenantID, inv, rcv.DueDate, now, result)
				resolved = true
				break
			}
			info, err := adapter.CheckReceivable(ctx, snap.conn, ref)
			if err != nil {
				s.logger.Warn("receivable status check failed",
					zap.String("external_ref", ref),
					zap.Error(err))
				continue
			}
			if info.IsDefinitive() {
				s.applyStatus(ctx, tenantID, inv, info, now, result)
				resolved = true
				break
			}
			sawNotFound = true
		}
		if resolved {
			continue
		}
		if sawNotFound {
			if err := inv.Cancel(); err == nil {
				s.save(ctx, tenantID, inv)
				result.Cancelled++
			}
			continue
		}
		inv.MarkChecked(now)
		s.save(ctx, tenantID, inv)
		result.Unchanged++
	}
}

// syncPerItem checks every candidate individually, in batches of
// concurrent lookups. A receivable not found on any connection was deleted
// upstream and cancels the invoice.
func (s *SyncService) syncPerItem(ctx context.Context, tenantID uuid.UUID, adapter provider.BillingProvider, conns []provider.Connection, candidates []billing.Invoice, result *SyncResult) {
	batchSize := s.cfg.SyncBatchSize
	if batchSize <= 0 {
		batchSize = 20
	}

	var mu sync.Mutex
	now := time.Now()
	for start := 0; start < len(candidates); start += batchSize {
		end := min(start+batchSize, len(candidates))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(inv *billing.Invoice) {
				defer wg.Done()
				s.checkOne(ctx, tenantID, adapter, conns, inv, now, result, &mu)
			}(&candidates[i])
		}
		wg.Wait()
	}
}

// checkOne resolves one invoice by asking each connection in turn. Only a
// not_found answer falls through to the next connection.
func (s *SyncService) checkOne(ctx context.Context, tenantID uuid.UUID, adapter provider.BillingProvider, conns []provider.Connection, inv *billing.Invoice, now time.Time, result *SyncResult, mu *sync.Mutex) {
	ref := *inv.ExternalRef

	var info *provider.StatusInfo
	sawNotFound := false
	for i := range conns {
		got, err := adapter.CheckReceivable(ctx, &conns[i], ref)
		if err != nil {
			s.logger.Warn("receivable status check failed",
				zap.String("external_ref", ref),
				zap.Error(err))
			continue
		}
		if got.IsDefinitive() {
			info = got
			break
		}
		sawNotFound = true
	}

	mu.Lock()
	defer mu.Unlock()

	switch {
	case info != nil:
		s.applyStatus(ctx, tenantID, inv, info, now, result)
	case sawNotFound:
		// Every connection answered not_found: the receivable was deleted
		// upstream.
		if err := inv.Cancel(); err == nil {
			s.save(ctx, tenantID, inv)
			result.Cancelled++
		}
	default:
		// Every lookup errored; leave the invoice alone.
		result.Unchanged++
	}
}

// applyStatus routes one definitive upstream answer to the matching
// invoice transition
func (s *SyncService) applyStatus(ctx context.Context, tenantID uuid.UUID, inv *billing.Invoice, info *provider.StatusInfo, now time.Time, result *SyncResult) {
	switch info.State {
	case provider.ReceivablePaid:
		paidAt := now
		if info.PaidAt != nil {
			paidAt = *info.PaidAt
		}
		s.applyPaid(ctx, tenantID, inv, paidAt, result)
	case provider.ReceivableCancelled:
		if err := inv.Cancel(); err != nil {
			s.logger.Warn("cannot cancel invoice",
				zap.String("invoice_id", inv.ID.String()),
				zap.Error(err))
			result.Unchanged++
			return
		}
		s.save(ctx, tenantID, inv)
		result.Cancelled++
	default:
		due := inv.DueDate
		if info.DueDate != nil {
			due = *info.DueDate
		}
		s.applyOpen(ctx, tenantID, inv, due, now, result)
	}
}

func (s *SyncService) applyPaid(ctx context.Context, tenantID uuid.UUID, inv *billing.Invoice, paidAt time.Time, result *SyncResult) {
	if err := inv.MarkPaid(paidAt); err != nil {
		s.logger.Warn("cannot mark invoice paid",
			zap.String("invoice_id", inv.ID.String()),
			zap.Error(err))
		result.Unchanged++
		return
	}
	s.save(ctx, tenantID, inv)
	result.Updated++
}

// applyOpen handles a still-open receivable: due date drift updates the
// invoice, otherwise only the check timestamp is stamped
func (s *SyncService) applyOpen(ctx context.Context, tenantID uuid.UUID, inv *billing.Invoice, upstreamDue time.Time, now time.Time, result *SyncResult) {
	inv.MarkChecked(now)
	if !upstreamDue.IsZero() && !billing.TruncateToDate(upstreamDue).Equal(inv.DueDate) {
		inv.ChangeDueDate(upstreamDue)
		s.save(ctx, tenantID, inv)
		result.DueDateUpdated++
		return
	}
	s.save(ctx, tenantID, inv)
	result.Unchanged++
}

func (s *SyncService) save(ctx context.Context, tenantID uuid.UUID, inv *billing.Invoice) {
	if err := s.invoices.Save(ctx, inv); err != nil {
		s.logger.Error("failed to save invoice during sync",
			zap.String("tenant_id", tenantID.String()),
			zap.String("invoice_id", inv.ID.String()),
			zap.Error(err))
	}
}

// paymentDateFor picks the payment date for a receivable from the finished
// listing, falling back to its due date, then to the sync time
func paymentDateFor(rcv provider.Receivable, now time.Time) time.Time {
	if !rcv.DueDate.IsZero() {
		return rcv.DueDate
	}
	return now
}

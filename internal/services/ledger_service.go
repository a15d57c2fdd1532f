package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"boq/internal/amqp"
	"boq/internal/cache"
	"boq/internal/codec"
	"boq/internal/core"
	"boq/internal/log"
	ports "boq/internal/sheets"
)

// EventPublisher announces committed ledger revisions.
type EventPublisher interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

// AddItemRequest is an add intent with the quantity still in raw form.
type AddItemRequest struct {
	Category    string
	Description string
	Unit        string
	UnitPrice   float64
	Mode        core.CalcMode
	Dimensions  core.Dimensions
}

// LedgerService owns the in-memory ledger of one slot. Every mutation runs
// on a clone which replaces the live ledger only once the slot was saved,
// so a failed call leaves the ledger as it was.
type LedgerService struct {
	mu        sync.Mutex
	ledger    *core.Ledger
	revision  int64
	store     ports.RecordStore
	publisher EventPublisher
	slot      string
	logger    *log.Logger

	// rendered exports keyed by format and revision
	exports *cache.LRUCache[[]byte]
}

func newExportCache() *cache.LRUCache[[]byte] {
	return cache.NewLRUCache[[]byte](8, 10*time.Minute)
}

func NewLedgerService(store ports.RecordStore, publisher EventPublisher, slot string, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LedgerService{
		ledger:    core.NewLedger(),
		store:     store,
		publisher: publisher,
		slot:      slot,
		logger:    logger.WithComponent(log.ComponentLedger),
		exports:   newExportCache(),
	}
}

// Load replaces the ledger with the slot content. Malformed records are
// skipped and reported.
func (s *LedgerService) Load(ctx context.Context) (codec.Report, error) {
	records, revision, err := s.store.LoadRecords(ctx, s.slot)
	if err != nil {
		return codec.Report{}, fmt.Errorf("load slot %q: %w", s.slot, err)
	}
	ledger, rep := codec.Deserialize(records)
	for _, sk := range rep.Skipped {
		s.logger.WarnContext(ctx, "Skipped malformed record",
			log.FieldSlot, s.slot,
			log.FieldRecordIndex, sk.Index,
			log.FieldError, sk.Err)
	}

	s.mu.Lock()
	s.ledger = ledger
	s.revision = revision
	s.exports = newExportCache()
	s.mu.Unlock()

	totals := core.Recalc(ledger.Snapshot())
	s.logger.InfoContext(ctx, "Ledger loaded",
		log.FieldSlot, s.slot,
		log.FieldRevision, revision,
		log.FieldItemCount, rep.Loaded,
		log.FieldGrandTotal, totals.GrandTotal)
	return rep, nil
}

// AddItem derives the quantity and appends the item to its category.
func (s *LedgerService) AddItem(ctx context.Context, req AddItemRequest) (core.ItemID, error) {
	qty, detail, err := core.DeriveQuantity(req.Mode, req.Dimensions)
	if err != nil {
		return "", err
	}
	var id core.ItemID
	err = s.mutate(ctx, log.OpCreate, func(l *core.Ledger) error {
		var err error
		id, err = l.AddItem(core.NewItem{
			Category:       req.Category,
			Description:    req.Description,
			Unit:           req.Unit,
			UnitPrice:      req.UnitPrice,
			Quantity:       qty,
			QuantityDetail: detail,
		})
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *LedgerService) EditItem(ctx context.Context, id core.ItemID, edit core.ItemEdit) error {
	return s.mutate(ctx, log.OpUpdate, func(l *core.Ledger) error {
		return l.EditItem(id, edit)
	})
}

func (s *LedgerService) DeleteItem(ctx context.Context, id core.ItemID) error {
	return s.mutate(ctx, log.OpDelete, func(l *core.Ledger) error {
		return l.DeleteItem(id)
	})
}

func (s *LedgerService) MoveItem(ctx context.Context, id core.ItemID, index int) error {
	return s.mutate(ctx, log.OpMove, func(l *core.Ledger) error {
		return l.MoveItem(id, index)
	})
}

// ImportRecords appends records after the current items as one mutation.
// Invalid records are skipped and reported.
func (s *LedgerService) ImportRecords(ctx context.Context, records []codec.Record) (codec.Report, error) {
	var rep codec.Report
	err := s.mutate(ctx, log.OpImport, func(l *core.Ledger) error {
		for i, r := range records {
			id, _ := core.ParseItemID(r.ID)
			_, err := l.RestoreItem(id, core.NewItem{
				Category:       r.Category,
				Description:    r.Description,
				Unit:           r.Unit,
				UnitPrice:      r.UnitPrice,
				Quantity:       r.Quantity,
				QuantityDetail: r.QuantityDetail,
			})
			if err != nil {
				rep.Skipped = append(rep.Skipped, codec.Skipped{Index: i, Err: err})
				continue
			}
			rep.Loaded++
		}
		return nil
	})
	return rep, err
}

// Snapshot returns the current ordering.
func (s *LedgerService) Snapshot() core.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Snapshot()
}

// View returns the recalculated, render-ready ledger.
func (s *LedgerService) View() core.LedgerView {
	return core.View(s.Snapshot())
}

// Revision returns the slot revision of the live ledger.
func (s *LedgerService) Revision() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// ExportCSV renders the ledger as CSV. Renders are reused until the next
// committed mutation.
func (s *LedgerService) ExportCSV() ([]byte, error) {
	snap, exports, rev := s.exportState()
	return cache.GetOrCompute[[]byte](exports, fmt.Sprintf("csv:%d", rev), func() ([]byte, error) {
		return codec.ToCSV(snap), nil
	})
}

// ExportXLSX renders the ledger as a workbook with one sheet.
func (s *LedgerService) ExportXLSX(sheet string) ([]byte, error) {
	snap, exports, rev := s.exportState()
	return cache.GetOrCompute[[]byte](exports, fmt.Sprintf("xlsx:%d:%s", rev, sheet), func() ([]byte, error) {
		return codec.ToXLSX(snap, sheet)
	})
}

func (s *LedgerService) exportState() (core.Snapshot, *cache.LRUCache[[]byte], int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Snapshot(), s.exports, s.revision
}

func (s *LedgerService) mutate(ctx context.Context, op string, fn func(*core.Ledger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.ledger.Clone()
	if err := fn(next); err != nil {
		s.logger.WarnContext(ctx, "Ledger operation rejected",
			log.FieldOperation, op,
			log.FieldErrorType, errorType(err),
			log.FieldError, err)
		return err
	}

	snap := next.Snapshot()
	revision, err := s.store.SaveRecords(ctx, s.slot, codec.Serialize(snap))
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to save ledger",
			log.FieldOperation, op,
			log.FieldSlot, s.slot,
			log.FieldErrorType, log.ErrorTypeDatabase,
			log.FieldError, err)
		return fmt.Errorf("save ledger: %w", err)
	}
	s.ledger = next
	s.revision = revision

	totals := core.Recalc(snap)
	s.logger.InfoContext(ctx, "Ledger updated",
		log.FieldOperation, op,
		log.FieldSlot, s.slot,
		log.FieldRevision, revision,
		log.FieldItemCount, snap.Len(),
		log.FieldGrandTotal, totals.GrandTotal)

	if s.publisher != nil {
		msg := amqp.NewLedgerChangedMessage(s.slot, revision, snap.Len(), totals.GrandTotal)
		if err := s.publisher.PublishLedgerChanged(ctx, msg); err != nil {
			// the slot is saved; the mirror worker's poll picks it up
			s.logger.WarnContext(ctx, "Failed to publish ledger event",
				log.FieldRevision, revision,
				log.FieldErrorType, log.ErrorTypeNetwork,
				log.FieldError, err)
		}
	}
	return nil
}

func errorType(err error) string {
	switch {
	case core.IsValidation(err):
		return log.ErrorTypeValidation
	case core.IsNotFound(err):
		return log.ErrorTypeNotFound
	case core.IsInvalidMove(err):
		return log.ErrorTypeConflict
	default:
		return log.ErrorTypeInternal
	}
}

// Ping checks the store when it can be checked.
func (s *LedgerService) Ping(ctx context.Context) error {
	if p, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the store and publisher when they hold resources.
func (s *LedgerService) Close() error {
	var errs []error

	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}

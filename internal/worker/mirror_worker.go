package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"boq/internal/amqp"
	"boq/internal/codec"
	"boq/internal/core"
	"boq/internal/log"
	ports "boq/internal/sheets"
)

// Consumer delivers ledger events until its context is done.
type Consumer interface {
	ConsumeLedgerChanged(ctx context.Context, handler amqp.Handler) error
}

// revisionReader is implemented by stores that can report a slot revision
// without loading its records.
type revisionReader interface {
	Revision(ctx context.Context, slot string) (int64, error)
}

// MirrorWorker keeps an external spreadsheet in step with one ledger slot.
// Events trigger a mirror right away; the poll loop catches anything the
// broker lost.
type MirrorWorker struct {
	store    ports.RecordLoader
	mirror   ports.LedgerMirror
	slot     string
	interval time.Duration
	logger   *log.Logger

	mu       sync.Mutex
	mirrored int64
}

func NewMirrorWorker(store ports.RecordLoader, mirror ports.LedgerMirror, slot string, interval time.Duration, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &MirrorWorker{
		store:    store,
		mirror:   mirror,
		slot:     slot,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentWorker),
		mirrored: -1,
	}
}

// HandleLedgerChanged processes a single ledger event from AMQP.
func (w *MirrorWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	if msg.Slot != w.slot {
		w.logger.DebugContext(ctx, "Ignoring event for another slot", log.FieldSlot, msg.Slot)
		return nil
	}
	if msg.Revision <= w.Mirrored() {
		w.logger.DebugContext(ctx, "Skipping stale ledger event",
			log.FieldRevision, msg.Revision,
			"mirrored", w.Mirrored())
		return nil
	}

	w.logger.InfoContext(ctx, "Processing ledger event",
		log.FieldRevision, msg.Revision,
		log.FieldItemCount, msg.ItemCount)
	_, err := w.Sync(ctx)
	return err
}

// Sync mirrors the slot when its revision differs from the last mirrored one
// and reports whether a write happened.
func (w *MirrorWorker) Sync(ctx context.Context) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if rr, ok := w.store.(revisionReader); ok {
		rev, err := rr.Revision(ctx, w.slot)
		if err != nil {
			return false, fmt.Errorf("read revision: %w", err)
		}
		if rev == w.mirrored {
			return false, nil
		}
	}

	records, rev, err := w.store.LoadRecords(ctx, w.slot)
	if err != nil {
		return false, fmt.Errorf("load slot: %w", err)
	}
	if rev == w.mirrored {
		return false, nil
	}

	ledger, report := codec.Deserialize(records)
	for _, s := range report.Skipped {
		w.logger.WarnContext(ctx, "Skipping malformed record",
			log.FieldRecordIndex, s.Index,
			log.FieldError, s.Err)
	}

	view := core.View(ledger.Snapshot())
	if err := w.mirror.MirrorLedger(ctx, view); err != nil {
		w.logger.ErrorContext(ctx, "Failed to mirror ledger",
			log.FieldOperation, log.OpMirror,
			log.FieldRevision, rev,
			log.FieldErrorType, log.ErrorTypeNetwork,
			log.FieldError, err)
		return false, fmt.Errorf("mirror ledger: %w", err)
	}
	w.mirrored = rev

	w.logger.InfoContext(ctx, "Ledger mirrored",
		log.FieldSlot, w.slot,
		log.FieldRevision, rev,
		log.FieldItemCount, view.ItemCount,
		log.FieldGrandTotal, view.GrandTotal)
	return true, nil
}

// Mirrored returns the last revision written to the mirror, or -1.
func (w *MirrorWorker) Mirrored() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mirrored
}

// Run mirrors once, then consumes events (when consumer is non-nil) and
// polls every interval until ctx is done.
func (w *MirrorWorker) Run(ctx context.Context, consumer Consumer) error {
	g, ctx := errgroup.WithContext(ctx)

	if consumer != nil {
		g.Go(func() error {
			return consumer.ConsumeLedgerChanged(ctx, w.HandleLedgerChanged)
		})
	}

	g.Go(func() error {
		if _, err := w.Sync(ctx); err != nil {
			w.logger.ErrorContext(ctx, "Startup mirror failed", log.FieldError, err)
		}

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if _, err := w.Sync(ctx); err != nil {
					w.logger.ErrorContext(ctx, "Periodic mirror failed", log.FieldError, err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

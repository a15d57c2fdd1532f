package sheets

import (
	"context"

	"boq/internal/codec"
	"boq/internal/core"
)

// Ports for outbound adapters.
type (
	// RecordLoader reads the record list held in a named slot. An empty slot
	// yields no records and revision 0.
	RecordLoader interface {
		LoadRecords(ctx context.Context, slot string) (records []codec.Record, revision int64, err error)
	}

	// RecordSaver overwrites a named slot and returns its new revision.
	RecordSaver interface {
		SaveRecords(ctx context.Context, slot string, records []codec.Record) (revision int64, err error)
	}

	RecordStore interface {
		RecordLoader
		RecordSaver
	}

	// LedgerMirror writes a rendered ledger to an external spreadsheet.
	LedgerMirror interface {
		MirrorLedger(ctx context.Context, view core.LedgerView) error
	}
)

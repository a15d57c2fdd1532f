package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"boq/internal/codec"
	ports "boq/internal/sheets"

	_ "modernc.org/sqlite"
)

var _ ports.RecordStore = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps slot rewrites serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// LoadRecords implements sheets.RecordLoader.
func (r *SQLiteRepository) LoadRecords(ctx context.Context, slot string) ([]codec.Record, int64, error) {
	revision, err := r.Revision(ctx, slot)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT item_id, category, description, quantity, quantity_detail, unit, unit_price, line_total
		FROM ledger_records
		WHERE slot = ?
		ORDER BY position`, slot)
	if err != nil {
		return nil, 0, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []codec.Record
	for rows.Next() {
		var rec codec.Record
		if err := rows.Scan(&rec.ID, &rec.Category, &rec.Description, &rec.Quantity,
			&rec.QuantityDetail, &rec.Unit, &rec.UnitPrice, &rec.LineTotal); err != nil {
			return nil, 0, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate records: %w", err)
	}

	return records, revision, nil
}

// SaveRecords implements sheets.RecordSaver. The slot is rewritten in a
// single transaction.
func (r *SQLiteRepository) SaveRecords(ctx context.Context, slot string, records []codec.Record) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var revision int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO ledger_slots (slot, revision, updated_at) VALUES (?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(slot) DO UPDATE SET revision = revision + 1, updated_at = CURRENT_TIMESTAMP
		RETURNING revision`, slot).Scan(&revision)
	if err != nil {
		return 0, fmt.Errorf("bump slot revision: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_records WHERE slot = ?`, slot); err != nil {
		return 0, fmt.Errorf("clear slot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger_records
			(slot, position, item_id, category, description, quantity, quantity_detail, unit, unit_price, line_total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		if _, err := stmt.ExecContext(ctx, slot, i, rec.ID, rec.Category, rec.Description, rec.Quantity,
			rec.QuantityDetail, rec.Unit, rec.UnitPrice, rec.LineTotal); err != nil {
			return 0, fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	slog.DebugContext(ctx, "Ledger slot saved to SQLite",
		"slot", slot,
		"records", len(records),
		"revision", revision)

	return revision, nil
}

// Revision returns the current revision of a slot, 0 if it was never saved.
func (r *SQLiteRepository) Revision(ctx context.Context, slot string) (int64, error) {
	var revision int64
	err := r.db.QueryRowContext(ctx, `SELECT revision FROM ledger_slots WHERE slot = ?`, slot).Scan(&revision)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query slot revision: %w", err)
	}
	return revision, nil
}

package services

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"

	"boq/internal/amqp"
	"boq/internal/codec"
	"boq/internal/core"
	"boq/internal/log"
	"boq/internal/sheets/memory"
)

type failingStore struct {
	*memory.Store
	fail bool
}

func (s *failingStore) SaveRecords(ctx context.Context, slot string, records []codec.Record) (int64, error) {
	if s.fail {
		return 0, errors.New("disk full")
	}
	return s.Store.SaveRecords(ctx, slot, records)
}

type recordingPublisher struct {
	msgs []*amqp.LedgerChangedMessage
	err  error
}

func (p *recordingPublisher) PublishLedgerChanged(_ context.Context, msg *amqp.LedgerChangedMessage) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

func quietLogger() *log.Logger {
	return log.NewFromSettings(io.Discard, "error", "text", log.ComponentApp)
}

func qty(v float64) core.Dimensions { return core.Dimensions{Quantity: &v} }

func footing() AddItemRequest {
	return AddItemRequest{Category: "Concrete", Description: "Footing", Unit: "m3", UnitPrice: 1500, Mode: core.ModeManual, Dimensions: qty(12)}
}

func TestLedgerServiceAddPersistsAndPublishes(t *testing.T) {
	store := memory.New()
	pub := &recordingPublisher{}
	svc := NewLedgerService(store, pub, "boqData", quietLogger())
	ctx := context.Background()

	id, err := svc.AddItem(ctx, footing())
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	records, rev, _ := store.LoadRecords(ctx, "boqData")
	if rev != 1 || len(records) != 1 || records[0].ID != id.String() || records[0].LineTotal != 18000 {
		t.Fatalf("unexpected persisted state rev=%d %+v", rev, records)
	}
	if records[0].QuantityDetail != "(12)" {
		t.Fatalf("unexpected detail %q", records[0].QuantityDetail)
	}
	if len(pub.msgs) != 1 || pub.msgs[0].Revision != 1 || pub.msgs[0].GrandTotal != 18000 {
		t.Fatalf("unexpected published messages %+v", pub.msgs)
	}
	if svc.Revision() != 1 {
		t.Fatalf("expected revision 1, got %d", svc.Revision())
	}
}

func TestLedgerServiceAreaMode(t *testing.T) {
	svc := NewLedgerService(memory.New(), nil, "boqData", quietLogger())
	w, l := 3.0, 4.0
	_, err := svc.AddItem(context.Background(), AddItemRequest{
		Category: "Finishes", Description: "Tiling", Unit: "m2", UnitPrice: 250,
		Mode: core.ModeArea, Dimensions: core.Dimensions{Width: &w, Length: &l},
	})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	item := svc.View().Categories[0].Items[0]
	if item.Quantity != 12 || item.QuantityDetail != "(3 x 4 = 12.00)" || item.LineTotal != 3000 {
		t.Fatalf("unexpected item %+v", item)
	}

	_, err = svc.AddItem(context.Background(), AddItemRequest{
		Category: "Finishes", Description: "Skirting", Unit: "m2", UnitPrice: 250,
		Mode: core.ModeArea, Dimensions: core.Dimensions{Width: &w},
	})
	if !errors.Is(err, core.ErrAreaInputs) {
		t.Fatalf("expected area input error, got %v", err)
	}
	if svc.Revision() != 1 {
		t.Fatalf("rejected add must not save")
	}
}

func TestLedgerServiceFailedSaveLeavesLedgerUnchanged(t *testing.T) {
	store := &failingStore{Store: memory.New()}
	svc := NewLedgerService(store, nil, "boqData", quietLogger())
	ctx := context.Background()

	id, err := svc.AddItem(ctx, footing())
	if err != nil {
		t.Fatal(err)
	}

	store.fail = true
	if err := svc.DeleteItem(ctx, id); err == nil {
		t.Fatal("expected save failure")
	}
	if n := svc.Snapshot().Len(); n != 1 {
		t.Fatalf("expected item to survive failed delete, got %d items", n)
	}
	if _, err := svc.AddItem(ctx, footing()); err == nil {
		t.Fatal("expected save failure")
	}
	if n := svc.Snapshot().Len(); n != 1 {
		t.Fatalf("expected 1 item after failed add, got %d", n)
	}
}

func TestLedgerServicePublishFailureIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewLedgerService(memory.New(), pub, "boqData", quietLogger())
	if _, err := svc.AddItem(context.Background(), footing()); err != nil {
		t.Fatalf("publish failure must not fail the mutation: %v", err)
	}
	if svc.Snapshot().Len() != 1 {
		t.Fatal("item should be committed")
	}
}

func TestLedgerServiceEditMoveDelete(t *testing.T) {
	svc := NewLedgerService(memory.New(), nil, "boqData", quietLogger())
	ctx := context.Background()

	a, _ := svc.AddItem(ctx, footing())
	b, _ := svc.AddItem(ctx, AddItemRequest{Category: "Steel", Description: "Rebar", Unit: "kg", UnitPrice: 30, Dimensions: qty(100)})

	if err := svc.EditItem(ctx, a, core.ItemEdit{Description: "Footing F1", Unit: "m3", UnitPrice: 1500, Quantity: 10}); err != nil {
		t.Fatalf("EditItem: %v", err)
	}
	if err := svc.MoveItem(ctx, b, 0); err != nil {
		t.Fatalf("MoveItem: %v", err)
	}
	v := svc.View()
	if v.Categories[0].Name != "Steel" || v.Categories[1].Items[0].QuantityDetail != "" {
		t.Fatalf("unexpected view %+v", v)
	}
	if math.Abs(v.GrandTotal-18000) > 1e-9 {
		t.Fatalf("expected 15000 + 3000, got %v", v.GrandTotal)
	}

	if err := svc.DeleteItem(ctx, core.NewItemID()); !core.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if err := svc.MoveItem(ctx, a, 5); !core.IsInvalidMove(err) {
		t.Fatalf("expected InvalidMoveError, got %v", err)
	}
}

func TestLedgerServiceLoadSkipsMalformed(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	_, _ = store.SaveRecords(ctx, "boqData", []codec.Record{
		{Category: "Concrete", Description: "Footing", Unit: "m3", UnitPrice: 1500, Quantity: 12},
		{Category: "Concrete", Description: "", Unit: "m3", UnitPrice: 1500, Quantity: 12},
	})

	svc := NewLedgerService(store, nil, "boqData", quietLogger())
	rep, err := svc.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rep.Loaded != 1 || len(rep.Skipped) != 1 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if svc.View().GrandTotal != 18000 || svc.Revision() != 1 {
		t.Fatalf("unexpected state after load")
	}
}

func TestLedgerServiceImportRecords(t *testing.T) {
	svc := NewLedgerService(memory.New(), nil, "boqData", quietLogger())
	ctx := context.Background()
	if _, err := svc.AddItem(ctx, footing()); err != nil {
		t.Fatal(err)
	}

	rep, err := svc.ImportRecords(ctx, []codec.Record{
		{Category: "Roofing", Description: "Tiles", Unit: "m2", UnitPrice: 12, Quantity: 40},
		{Category: "Roofing", Description: "Bad", Unit: "m2", UnitPrice: -1, Quantity: 1},
	})
	if err != nil {
		t.Fatalf("ImportRecords: %v", err)
	}
	if rep.Loaded != 1 || len(rep.Skipped) != 1 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if got := svc.Snapshot().Len(); got != 2 {
		t.Fatalf("expected 2 items, got %d", got)
	}
}

func TestLedgerServiceClose(t *testing.T) {
	svc := NewLedgerService(memory.New(), nil, "boqData", nil)
	if err := svc.Close(); err != nil {
		t.Fatalf("Close should not fail without closers: %v", err)
	}
}

type pingStore struct {
	*memory.Store
	err error
}

func (s pingStore) Ping(context.Context) error { return s.err }

func TestLedgerServicePing(t *testing.T) {
	if err := NewLedgerService(memory.New(), nil, "boqData", quietLogger()).Ping(context.Background()); err != nil {
		t.Fatalf("store without Ping should be ready: %v", err)
	}
	down := errors.New("database is locked")
	svc := NewLedgerService(pingStore{Store: memory.New(), err: down}, nil, "boqData", quietLogger())
	if err := svc.Ping(context.Background()); !errors.Is(err, down) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestLedgerServiceExportsAreReusedPerRevision(t *testing.T) {
	svc := NewLedgerService(memory.New(), nil, "boqData", quietLogger())
	ctx := context.Background()
	if _, err := svc.AddItem(ctx, footing()); err != nil {
		t.Fatal(err)
	}

	first, err := svc.ExportCSV()
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	second, _ := svc.ExportCSV()
	if string(first) != string(second) {
		t.Fatal("exports of one revision differ")
	}
	if s := svc.exports.Stats(); s.Hits != 1 || s.Misses != 1 {
		t.Fatalf("expected one reuse, got %+v", s)
	}

	id := svc.Snapshot().Items()[0].ID
	if err := svc.DeleteItem(ctx, id); err != nil {
		t.Fatal(err)
	}
	if after, err := svc.ExportCSV(); err != nil || string(after) == string(first) {
		t.Fatal("export not refreshed after a mutation")
	}

	if _, err := svc.ExportXLSX(codec.DefaultSheetName); err != nil {
		t.Fatalf("ExportXLSX: %v", err)
	}
}

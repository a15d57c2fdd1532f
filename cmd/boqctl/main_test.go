package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"boq/internal/codec"
	"boq/internal/core"
)

func sampleLedger(t *testing.T) *core.Ledger {
	t.Helper()
	l := core.NewLedger()
	for _, n := range []core.NewItem{
		{Category: "Concrete", Description: "Footing", Unit: "m3", UnitPrice: 1500, Quantity: 12, QuantityDetail: "(12)"},
		{Category: "Steel", Description: "Rebar", Unit: "kg", UnitPrice: 30, Quantity: 100},
	} {
		if _, err := l.AddItem(n); err != nil {
			t.Fatal(err)
		}
	}
	return l
}

func TestResolveItem(t *testing.T) {
	snap := sampleLedger(t).Snapshot()
	items := snap.Items()

	id, err := resolveItem(snap, "2")
	if err != nil || id != items[1].ID {
		t.Fatalf("row 2 resolved to %s, %v", id, err)
	}
	id, err = resolveItem(snap, items[0].ID.String())
	if err != nil || id != items[0].ID {
		t.Fatalf("id resolved to %s, %v", id, err)
	}
	for _, ref := range []string{"0", "3", "footing"} {
		if _, err := resolveItem(snap, ref); err == nil {
			t.Fatalf("expected %q to be rejected", ref)
		}
	}
}

func TestRenderLedger(t *testing.T) {
	var buf bytes.Buffer
	if err := renderLedger(&buf, core.View(sampleLedger(t).Snapshot())); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Concrete", "Steel", "Footing", "(12)", "18,000.00", "3,000.00", "21,000.00", codec.GrandTotalLabel} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := renderLedger(&buf, core.View(core.NewLedger().Snapshot())); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "empty") {
		t.Fatalf("expected empty notice, got %q", buf.String())
	}
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("boqctl %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestCommandsAgainstSQLite(t *testing.T) {
	t.Setenv("AMQP_URL", "")
	dir := t.TempDir()
	db := filepath.Join(dir, "boq.db")
	common := []string{"--db", db, "--slot", "test"}

	run(t, append([]string{"add", "--category", "Concrete", "--description", "Footing", "--unit", "m3", "--price", "1,500", "--quantity", "12"}, common...)...)
	run(t, append([]string{"add", "--category", "Earthwork", "--description", "Fill", "--unit", "m2", "--price", "5", "--mode", "area", "--width", "3", "--length", "4"}, common...)...)

	out := run(t, append([]string{"print"}, common...)...)
	for _, want := range []string{"18,000.00", "(3 x 4 = 12.00)", "18,060.00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("print missing %q:\n%s", want, out)
		}
	}

	csvPath := filepath.Join(dir, "out.csv")
	run(t, append([]string{"export", "--format", "csv", "--out", csvPath}, common...)...)
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\uFEFF"+codec.CSVHeader)) {
		t.Fatalf("unexpected csv %q", data)
	}
	if lines := strings.Count(string(data), "\n"); lines != 3 {
		t.Fatalf("expected 3 lines, got %d", lines)
	}

	run(t, append([]string{"delete", "2"}, common...)...)
	out = run(t, append([]string{"print"}, common...)...)
	if strings.Contains(out, "Earthwork") {
		t.Fatalf("emptied category still printed:\n%s", out)
	}
}

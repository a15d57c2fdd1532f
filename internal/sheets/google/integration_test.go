//go:build integration

package google

import (
	"context"
	"os"
	"testing"

	"boq/internal/core"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_MirrorLedger(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if os.Getenv("GOOGLE_SPREADSHEET_ID") == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx := context.Background()
	client, err := NewFromEnv(ctx)
	if err != nil {
		t.Skipf("credentials not configured: %v", err)
	}

	l := core.NewLedger()
	if _, err := l.AddItem(core.NewItem{Category: "Concrete", Description: "Integration footing", Unit: "m3", UnitPrice: 1500, Quantity: 12}); err != nil {
		t.Fatal(err)
	}
	if err := client.MirrorLedger(ctx, core.View(l.Snapshot())); err != nil {
		t.Fatalf("mirror: %v", err)
	}
}

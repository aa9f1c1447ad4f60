package main

import (
	"context"
	"testing"
	"time"

	"github.com/warkadguard/riskwatch/internal/storage"
)

func TestSeed(t *testing.T) {
	store, err := storage.New(":memory:", 0755)
	if err != nil {
		t.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	now := time.Now().Add(-time.Minute)

	for i := 0; i < 2; i++ {
		if err := seed(ctx, store, now); err != nil {
			t.Fatalf("seed run %d failed: %v", i+1, err)
		}
	}

	locs, err := store.ListLocations(ctx)
	if err != nil {
		t.Fatalf("ListLocations failed: %v", err)
	}
	if len(locs) != 2 || locs[0].Name != "Adama" {
		t.Errorf("Expected Adama and Bishoftu, got %+v", locs)
	}

	farmers, err := store.ListFarmers(ctx, "Adama")
	if err != nil {
		t.Fatalf("ListFarmers failed: %v", err)
	}
	if len(farmers) != 2 {
		t.Errorf("Expected 2 Adama farmers after two runs, got %d", len(farmers))
	}

	reports, err := store.ListPestReports(ctx, "Adama", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListPestReports failed: %v", err)
	}
	if len(reports) != 2 {
		t.Errorf("Expected 2 Adama reports after two runs, got %d", len(reports))
	}
}

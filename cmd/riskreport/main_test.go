package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/warkadguard/riskwatch/internal/models"
	"github.com/warkadguard/riskwatch/internal/storage"
)

func TestCollectAndPrint(t *testing.T) {
	store, err := storage.New(":memory:", 0755)
	if err != nil {
		t.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC().Add(-time.Minute)

	for _, loc := range []models.Location{
		{Name: "Adama", Latitude: 8.55, Longitude: 39.27},
		{Name: "Bishoftu", Latitude: 8.75, Longitude: 39.00},
	} {
		if err := store.AddLocation(ctx, &loc); err != nil {
			t.Fatalf("AddLocation failed: %v", err)
		}
	}
	if err := store.AddFarmer(ctx, &models.Farmer{Name: "Abebe", Phone: "+251900000001", Kebele: "Adama"}); err != nil {
		t.Fatalf("AddFarmer failed: %v", err)
	}
	for _, r := range []models.PestReport{
		{ReportedAt: now, Kebele: "Adama", Crop: "maize", Symptom: "leaf holes", Severity: models.SeverityMany},
		{ReportedAt: now, Kebele: "Adama", Crop: "teff", Symptom: "yellow leaves", Severity: models.SeverityFew},
	} {
		if err := store.AddPestReport(ctx, &r); err != nil {
			t.Fatalf("AddPestReport failed: %v", err)
		}
	}
	err = store.SaveAssessment(ctx, &models.RiskAssessment{
		ID:             "a-1",
		Location:       "Adama",
		Score:          0.75,
		Level:          models.RiskHigh,
		Pest:           "Fall Armyworm",
		Recommendation: models.Recommendation{English: "Spray", Amharic: "ይርጩ"},
		LastUpdated:    now,
	})
	if err != nil {
		t.Fatalf("SaveAssessment failed: %v", err)
	}

	summaries, err := collect(ctx, store, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("Expected 2 summaries, got %d", len(summaries))
	}

	adama := summaries[0]
	if adama.Score == nil || adama.Score.Level != models.RiskHigh {
		t.Errorf("Expected stored high score for Adama, got %+v", adama.Score)
	}
	if adama.Farmers != 1 || adama.ManyReports != 1 || adama.FewReports != 1 {
		t.Errorf("Unexpected Adama summary: %+v", adama)
	}
	if adama.Top.Symptom != "leaf holes" {
		t.Errorf("Expected worst report 'leaf holes', got %q", adama.Top.Symptom)
	}
	if summaries[1].Score != nil {
		t.Errorf("Expected no score for Bishoftu")
	}

	var buf bytes.Buffer
	printReport(&buf, summaries, now)
	out := buf.String()
	for _, want := range []string{"Risk: 0.75 HIGH", "Risk: not yet assessed", "2 kebeles, 1 at medium or high risk"} {
		if !strings.Contains(out, want) {
			t.Errorf("Report missing %q:\n%s", want, out)
		}
	}
}

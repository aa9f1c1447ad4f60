// Command seed registers sample kebeles, farmers and pest reports so that a
// fresh database produces meaningful assessments.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/warkadguard/riskwatch/internal/config"
	"github.com/warkadguard/riskwatch/internal/logger"
	"github.com/warkadguard/riskwatch/internal/models"
	"github.com/warkadguard/riskwatch/internal/storage"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

var sampleLocations = []models.Location{
	{Name: "Adama", Latitude: 8.55, Longitude: 39.27},
	{Name: "Bishoftu", Latitude: 8.75, Longitude: 39.00},
}

var sampleFarmers = []models.Farmer{
	{Name: "Abebe", Phone: "+251900000001", Kebele: "Adama"},
	{Name: "Bekele", Phone: "+251900000002", Kebele: "Adama"},
	{Name: "Chala", Phone: "+251900000003", Kebele: "Bishoftu"},
}

func sampleReports(now time.Time) []models.PestReport {
	return []models.PestReport{
		{ReportedAt: now, Kebele: "Adama", Crop: "maize", Symptom: "leaf holes", Severity: models.SeverityFew},
		{ReportedAt: now, Kebele: "Adama", Crop: "teff", Symptom: "yellow leaves", Severity: models.SeverityMany},
		{ReportedAt: now, Kebele: "Bishoftu", Crop: "wheat", Symptom: "wilting", Severity: models.SeverityFew},
	}
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	store, err := storage.New(cfg.Storage.DBPath, 0755)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := seed(ctx, store, time.Now()); err != nil {
		logger.Fatal("Failed to seed database: %v", err)
	}
	logger.Info("Database populated with sample data at %s", cfg.Storage.DBPath)
}

// seed inserts the sample data. Farmers and pest reports are only added to
// kebeles that have none yet, so running it twice neither duplicates farmers
// nor inflates scores with repeated reports.
func seed(ctx context.Context, store *storage.Storage, now time.Time) error {
	for i := range sampleLocations {
		if err := store.AddLocation(ctx, &sampleLocations[i]); err != nil {
			return err
		}
	}

	needFarmers := map[string]bool{}
	for i := range sampleFarmers {
		f := sampleFarmers[i]
		if _, checked := needFarmers[f.Kebele]; !checked {
			existing, err := store.ListFarmers(ctx, f.Kebele)
			if err != nil {
				return err
			}
			needFarmers[f.Kebele] = len(existing) == 0
		}
		if !needFarmers[f.Kebele] {
			continue
		}
		if err := store.AddFarmer(ctx, &f); err != nil {
			return err
		}
	}

	needReports := map[string]bool{}
	for _, r := range sampleReports(now) {
		if _, checked := needReports[r.Kebele]; !checked {
			existing, err := store.ListPestReports(ctx, r.Kebele, time.Time{})
			if err != nil {
				return err
			}
			needReports[r.Kebele] = len(existing) == 0
		}
		if !needReports[r.Kebele] {
			continue
		}
		if err := store.AddPestReport(ctx, &r); err != nil {
			return err
		}
	}
	return nil
}

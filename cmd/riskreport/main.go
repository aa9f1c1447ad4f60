// Command riskreport prints the latest stored assessment for every kebele
// together with recent field-report activity. It only reads the database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/warkadguard/riskwatch/internal/config"
	"github.com/warkadguard/riskwatch/internal/models"
	"github.com/warkadguard/riskwatch/internal/risk"
	"github.com/warkadguard/riskwatch/internal/storage"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	days       = flag.Int("days", 14, "Report activity window in days")
)

// KebeleSummary is one row of the report
type KebeleSummary struct {
	Location     models.Location
	Score        *storage.StoredScore
	Farmers      int
	ManyReports  int
	FewReports   int
	TotalReports int
	Top          risk.Representative
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := storage.New(cfg.Storage.DBPath, 0755)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	since := time.Now().AddDate(0, 0, -*days)
	summaries, err := collect(context.Background(), store, since)
	if err != nil {
		log.Fatalf("Failed to build report: %v", err)
	}

	printReport(os.Stdout, summaries, since)
}

func collect(ctx context.Context, store *storage.Storage, since time.Time) ([]KebeleSummary, error) {
	locations, err := store.ListLocations(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]KebeleSummary, 0, len(locations))
	for _, loc := range locations {
		s := KebeleSummary{Location: loc}

		if s.Score, err = store.GetScore(ctx, loc.Name); err != nil {
			return nil, err
		}

		farmers, err := store.ListFarmers(ctx, loc.Name)
		if err != nil {
			return nil, err
		}
		s.Farmers = len(farmers)

		reports, err := store.ListPestReports(ctx, loc.Name, since)
		if err != nil {
			return nil, fmt.Errorf("failed to read reports for %s: %w", loc.Name, err)
		}
		features := risk.Normalize(nil, nil, nil, reports)
		s.ManyReports = features.ManyCount
		s.FewReports = features.FewCount
		s.TotalReports = len(reports)
		s.Top = risk.SelectRepresentative(reports)

		summaries = append(summaries, s)
	}
	return summaries, nil
}

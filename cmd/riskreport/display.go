package main

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// printReport writes one block per kebele
func printReport(w io.Writer, summaries []KebeleSummary, since time.Time) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintf(w, "PEST RISK REPORT (reports since %s)\n", since.Format("2006-01-02"))
	fmt.Fprintln(w, strings.Repeat("=", 72))

	if len(summaries) == 0 {
		fmt.Fprintln(w, "\nNo kebeles registered.")
		return
	}

	alerting := 0
	for _, s := range summaries {
		printSummary(w, s)
		if s.Score != nil && s.Score.Level.Alerting() {
			alerting++
		}
	}

	fmt.Fprintln(w, strings.Repeat("-", 72))
	fmt.Fprintf(w, "%d kebeles, %d at medium or high risk\n", len(summaries), alerting)
}

func printSummary(w io.Writer, s KebeleSummary) {
	fmt.Fprintf(w, "\n  Kebele: %s (%.4f, %.4f)\n", s.Location.Name, s.Location.Latitude, s.Location.Longitude)
	if s.Score == nil {
		fmt.Fprintln(w, "    Risk: not yet assessed")
	} else {
		fmt.Fprintf(w, "    Risk: %.2f %s\n", s.Score.Score, strings.ToUpper(string(s.Score.Level)))
		fmt.Fprintf(w, "    Pest: %s\n", s.Score.Pest)
		fmt.Fprintf(w, "    Assessed: %s\n", s.Score.LastUpdated.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "    Farmers: %d\n", s.Farmers)
	fmt.Fprintf(w, "    Reports: %d (many: %d, few: %d)\n", s.TotalReports, s.ManyReports, s.FewReports)
	if s.Top.Found {
		fmt.Fprintf(w, "    Worst report: %s on %s (%s)\n", s.Top.Symptom, s.Top.Crop, s.Top.Severity)
	}
}

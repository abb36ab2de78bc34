package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/aulaplay/aula/internal/domain"
)

// cmdProgress handles progress subcommands. Records are read through
// the daemon so all backends look the same from the CLI.
func cmdProgress(args []string) error {
	if !isRunning() {
		return fmt.Errorf("daemon is not running (start it with 'aula start')")
	}

	if len(args) > 0 && args[0] == "summary" {
		return progressSummary()
	}
	return progressList()
}

func progressList() error {
	resp, err := http.Get(daemonAddr + "/v1/progress")
	if err != nil {
		return fmt.Errorf("get progress: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Records []domain.ProgressRecord `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("parse progress: %w", err)
	}

	if len(body.Records) == 0 {
		fmt.Println("No progress recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ACTIVITY\tATTEMPTS\tHINTS\tTIME\tSTARS\tWHEN")
	for _, rec := range body.Records {
		stars := "-"
		if rec.Memory != nil {
			stars = renderStars(rec.Memory.StarRating, 3)
		}
		elapsed := time.Duration(rec.ElapsedMs) * time.Millisecond
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%s\n",
			rec.ActivityID, rec.Attempts, rec.HintsUsed,
			elapsed.Round(time.Second), stars,
			rec.RecordedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func progressSummary() error {
	resp, err := http.Get(daemonAddr + "/v1/progress/summary")
	if err != nil {
		return fmt.Errorf("get summary: %w", err)
	}
	defer resp.Body.Close()

	var summary struct {
		Completed     int `json:"completed"`
		TotalAttempts int `json:"total_attempts"`
		TotalHints    int `json:"total_hints"`
		TotalStars    int `json:"total_stars"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return fmt.Errorf("parse summary: %w", err)
	}

	fmt.Printf("Completed:  %d\n", summary.Completed)
	fmt.Printf("Attempts:   %d\n", summary.TotalAttempts)
	fmt.Printf("Hints used: %d\n", summary.TotalHints)
	fmt.Printf("Stars:      %d\n", summary.TotalStars)
	return nil
}

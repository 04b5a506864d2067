package notify

import (
	"fmt"
	"strings"

	"notepipe/internal/domain"
)

// ShouldSend reports whether a report warrants a notification.
func ShouldSend(report *domain.RunReport, onlyOnFailure bool) bool {
	if !onlyOnFailure {
		return true
	}
	return report.Failed() > 0 || report.Aborted
}

// Subject renders the notification subject line for report.
func Subject(report *domain.RunReport) string {
	status := "ok"
	switch {
	case report.Aborted:
		status = "aborted"
	case report.Failed() > 0:
		status = "failures"
	}
	return fmt.Sprintf("[notepipe] %s: %d succeeded, %d failed, %d skipped",
		status, report.Succeeded(), report.Failed(), report.Skipped())
}

// Body renders a plain-text summary listing every file and its outcome.
func Body(report *domain.RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", report.Summary())
	fmt.Fprintf(&b, "Started:  %s\n", report.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Finished: %s\n", report.FinishedAt.Format("2006-01-02 15:04:05"))
	if report.DryRun {
		b.WriteString("Dry run: nothing was written or moved.\n")
	}

	if len(report.Results) > 0 {
		b.WriteString("\nFiles:\n")
	}
	for i := range report.Results {
		r := &report.Results[i]
		switch r.State {
		case domain.FileStateFailed:
			fmt.Fprintf(&b, "  FAILED   %s (%s): %s\n", r.FileName, r.Kind, r.Message)
		case domain.FileStateSkipped:
			fmt.Fprintf(&b, "  SKIPPED  %s: %s\n", r.FileName, r.Message)
		default:
			fmt.Fprintf(&b, "  %-8s %s -> %s\n", r.State, r.FileName, r.DocumentName)
		}
	}

	if len(report.NotAttempted) > 0 {
		fmt.Fprintf(&b, "\nNot attempted (%s):\n", report.AbortReason)
		for _, name := range report.NotAttempted {
			fmt.Fprintf(&b, "  %s\n", name)
		}
	}
	return b.String()
}

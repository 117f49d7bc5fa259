package output

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/joescharf/codereview/internal/models"
	"github.com/joescharf/codereview/internal/review"
)

const cellWidth = 60

// Review prints a review response: summary, findings table and next steps.
func (u *UI) Review(resp *review.Response) error {
	if resp.ID != "" {
		u.Info("Review %s", Cyan(resp.ID))
	}
	fmt.Fprintf(u.Out, "\n%s\n\n", resp.Summary)

	if len(resp.ReviewItems) > 0 {
		table := u.Table([]string{"TYPE", "LINES", "ISSUE", "FIX"})
		for _, it := range resp.ReviewItems {
			if err := table.Append([]string{
				KindColor(it.Type),
				lineSpan(it.Line.Start, it.Line.End),
				truncate(it.Issue, cellWidth),
				truncate(it.FixSuggestion, cellWidth),
			}); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
		fmt.Fprintln(u.Out)
	}

	if r := resp.FinalReport; r != nil {
		if len(r.Summary.KeyConcepts) > 0 {
			fmt.Fprintf(u.Out, "Key concepts: %s\n", strings.Join(r.Summary.KeyConcepts, ", "))
		}
		if r.Summary.NextSteps != "" {
			fmt.Fprintf(u.Out, "Next steps: %s\n", r.Summary.NextSteps)
		}
		if r.Meta.Fallback {
			u.Warning("Final report was assembled without validation")
		}
	}

	if resp.Cancelled {
		u.Warning("%s", resp.Detail)
	}
	for _, f := range resp.Failures {
		u.VerboseLog("%s %s degraded (%s): %s", f.Stage, f.Scope, f.Kind, f.Message)
	}
	u.VerboseLog("path: %s", joinStages(resp.Path))
	return nil
}

// History prints a table of stored reviews.
func (u *UI) History(records []*models.ReviewRecord) error {
	table := u.Table([]string{"ID", "CREATED", "VERDICT", "ERRORS", "WARNINGS", "OVERVIEW"})
	for _, r := range records {
		if err := table.Append([]string{
			r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			VerdictColor(r.Verdict),
			fmt.Sprint(r.ErrorCount),
			fmt.Sprint(r.WarningCount),
			truncate(r.Overview, 48),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// ReviewRecord prints one stored review in detail.
func (u *UI) ReviewRecord(r *models.ReviewRecord) error {
	fmt.Fprintf(u.Out, "ID:        %s\n", Cyan(r.ID))
	fmt.Fprintf(u.Out, "Created:   %s\n", r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(u.Out, "Verdict:   %s\n", VerdictColor(r.Verdict))
	fmt.Fprintf(u.Out, "Path:      %s\n", joinStages(r.Path))
	if r.Model != "" {
		fmt.Fprintf(u.Out, "Model:     %s\n", r.Model)
	}
	fmt.Fprintf(u.Out, "Duration:  %dms\n", r.DurationMS)
	if r.FailureCount > 0 {
		fmt.Fprintf(u.Out, "Degraded:  %d call(s)\n", r.FailureCount)
	}
	fmt.Fprintf(u.Out, "\n%s\n\n", r.Overview)

	if len(r.Items) > 0 {
		table := u.Table([]string{"TYPE", "LINES", "ISSUE", "FIX"})
		for _, it := range r.Items {
			start, end := 1, 1
			if it.Location != nil {
				start, end = it.Location.StartLine, it.Location.EndLine
			}
			if err := table.Append([]string{
				KindColor(it.Kind),
				lineSpan(start, end),
				truncate(it.Issue, cellWidth),
				truncate(it.FixSuggestion, cellWidth),
			}); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}
	if r.Report != nil && r.Report.Summary.NextSteps != "" {
		fmt.Fprintf(u.Out, "\nNext steps: %s\n", r.Report.Summary.NextSteps)
	}
	return nil
}

func lineSpan(start, end int) string {
	if end <= start {
		return fmt.Sprint(start)
	}
	return fmt.Sprintf("%d-%d", start, end)
}

func joinStages(path []models.StageName) string {
	names := make([]string, len(path))
	for i, s := range path {
		names[i] = string(s)
	}
	return strings.Join(names, " -> ")
}

// truncate shortens s to n runes on a single line.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

package report

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// WriteText writes the document as human-readable styled text to the
// writer. Output uses lipgloss for color and formatting when the
// output is a TTY; degrades gracefully for pipes and CI.
func WriteText(w io.Writer, doc *Document) error {
	s := DefaultStyles()

	if doc.Info.Title != "" {
		fmt.Fprintln(w, s.Header.Render(fmt.Sprintf("%s %s", doc.Info.Title, doc.Info.Version)))
		fmt.Fprintln(w)
	}

	for i, op := range doc.Operations {
		if i > 0 {
			fmt.Fprintln(w)
		}
		writeOneOperation(w, op, s)
	}

	if len(doc.Missed) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, s.Header.Render("=== Missed operations ==="))
		for _, key := range sortedKeys(doc.Missed) {
			fmt.Fprintln(w, s.Uncovered.Render("    "+truncate(key, 72)))
		}
	}

	if len(doc.Errors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, s.Header.Render("=== Unreadable captures ==="))
		for _, e := range doc.Errors {
			fmt.Fprintln(w, s.Muted.Render("    "+truncate(e, 72)))
		}
	}

	fmt.Fprintln(w)
	writeSummary(w, doc, s)
	return nil
}

func writeOneOperation(w io.Writer, op Operation, s Styles) {
	fmt.Fprintln(w, s.Header.Render(fmt.Sprintf("=== %s ===", truncate(op.Key(), 68))))
	if op.OperationID != "" {
		fmt.Fprintln(w, s.SubHeader.Render("    "+truncate(op.OperationID, 72)))
	}
	fmt.Fprintln(w, s.StateStyle(op.State).Render(fmt.Sprintf(
		"    %d/%d conditions covered (%.1f%%)", op.Covered, op.Total, op.Percentage)))

	if len(op.Conditions) == 0 {
		fmt.Fprintln(w, s.Muted.Render("    No conditions derived."))
		return
	}

	// Budget: 80 cols total, table is 76 wide. Borders take 3 and
	// padding 4, leaving 69: STATUS=9, CONDITION=60.
	const maxName = 58
	rows := make([][]string, 0, len(op.Conditions))
	for _, c := range op.Conditions {
		status := "missing"
		if c.Covered {
			status = "covered"
		}
		rows = append(rows, []string{status, truncate(c.Name, maxName)})
	}

	t := table.New().
		Width(76).
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.Border).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.TableHeader
			}
			if col == 0 && row >= 0 && row < len(rows) {
				return s.ConditionStyle(rows[row][0] == "covered")
			}
			return s.TableCell
		}).
		Headers("STATUS", "CONDITION").
		Rows(rows...)

	fmt.Fprintln(w, t)
}

func writeSummary(w io.Writer, doc *Document, s Styles) {
	sum := doc.Summary
	line := func(label, value string) {
		fmt.Fprintf(w, "%s %s\n", s.SummaryLabel.Render(label), s.SummaryValue.Render(value))
	}

	fmt.Fprintln(w, s.Header.Render("=== Summary ==="))
	line("Operations:", fmt.Sprintf("%d (full %d, partial %d, uncovered %d)",
		sum.Operations, sum.FullyCovered, sum.PartiallyCovered, sum.Uncovered))
	line("Conditions:", fmt.Sprintf("%d/%d (%.1f%%)",
		sum.CoveredConditions, sum.Conditions, sum.Percentage))
	line("Reached:", fmt.Sprintf("%d/%d (%.1f%%)",
		sum.OperationsReached, sum.Operations, sum.ReachedPercentage))
	line("Missed:", fmt.Sprintf("%d", sum.MissedOperations))

	captures := fmt.Sprintf("%d processed", doc.GenerationStatistics.ResultFileCount)
	if n := doc.GenerationStatistics.FailedFileCount; n > 0 {
		captures += ", " + s.Fail.Render(fmt.Sprintf("%d failed", n))
	}
	line("Captures:", captures)
	line("Time:", fmt.Sprintf("%d ms", doc.GenerationStatistics.GenerationTime.Milliseconds()))
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

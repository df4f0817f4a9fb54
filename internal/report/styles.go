package report

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles defines the visual theme for terminal report output.
// Lipgloss automatically degrades to no-color when output is not a TTY.
type Styles struct {
	// Header is used for section headers (e.g. "=== GET /pets ===").
	Header lipgloss.Style

	// SubHeader is used for secondary information lines.
	SubHeader lipgloss.Style

	// TableHeader styles the header row of tables.
	TableHeader lipgloss.Style

	// TableCell styles regular table cells.
	TableCell lipgloss.Style

	// Covered, Partial and Uncovered color-code coverage states.
	Covered   lipgloss.Style
	Partial   lipgloss.Style
	Uncovered lipgloss.Style

	// SummaryLabel styles summary line labels.
	SummaryLabel lipgloss.Style

	// SummaryValue styles summary line values.
	SummaryValue lipgloss.Style

	// Pass styles PASS indicators.
	Pass lipgloss.Style

	// Fail styles FAIL indicators.
	Fail lipgloss.Style

	// Border is used for table borders.
	Border lipgloss.Style

	// Muted is used for de-emphasized text.
	Muted lipgloss.Style
}

// DefaultStyles returns the default color scheme for terminal reports.
func DefaultStyles() Styles {
	return Styles{
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		SubHeader: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),

		TableHeader: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		TableCell:   lipgloss.NewStyle().PaddingRight(1),

		Covered:   lipgloss.NewStyle().Foreground(lipgloss.Color("40")),
		Partial:   lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		Uncovered: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),

		SummaryLabel: lipgloss.NewStyle().Bold(true).Width(20),
		SummaryValue: lipgloss.NewStyle(),

		Pass: lipgloss.NewStyle().Foreground(lipgloss.Color("40")).Bold(true),
		Fail: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),

		Border: lipgloss.NewStyle().Foreground(lipgloss.Color("63")),

		Muted: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// StateStyle returns the style for an operation state.
func (s Styles) StateStyle(state string) lipgloss.Style {
	switch state {
	case StateFull:
		return s.Covered
	case StatePartial:
		return s.Partial
	case StateEmpty:
		return s.Uncovered
	default:
		return s.Muted
	}
}

// ConditionStyle returns the style for a condition's covered flag.
func (s Styles) ConditionStyle(covered bool) lipgloss.Style {
	if covered {
		return s.Covered
	}
	return s.Uncovered
}

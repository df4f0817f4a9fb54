package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/unbound-force/apicov/internal/report"
)

// keyMap defines keybindings for the interactive TUI.
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Filter   key.Binding
	Quit     key.Binding
	Help     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Filter, k.Quit, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Filter, k.Quit, k.Help},
	}
}

var defaultKeyMap = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("^/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("v/j", "down")),
	PageUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
	PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
	Filter:   key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "uncovered only")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
}

// Styles for the TUI.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			MarginBottom(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	tuiHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	tuiBorderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63"))

	coveredStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("40"))
	uncoveredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// coverageModel is the Bubble Tea model for browsing coverage results.
type coverageModel struct {
	doc           *report.Document
	viewport      viewport.Model
	help          help.Model
	keys          keyMap
	ready         bool
	uncoveredOnly bool
	content       string
}

func newCoverageModel(doc *report.Document) coverageModel {
	return coverageModel{
		doc:     doc,
		help:    help.New(),
		keys:    defaultKeyMap,
		content: renderCoverageContent(doc, false),
	}
}

// renderCoverageContent renders every operation with its conditions.
// With uncoveredOnly set, fully covered operations and covered
// conditions are hidden.
func renderCoverageContent(doc *report.Document, uncoveredOnly bool) string {
	var sb strings.Builder

	sum := doc.Summary
	sb.WriteString(titleStyle.Render(
		fmt.Sprintf("apicov: %d operation(s), %d/%d condition(s) covered (%.1f%%)",
			sum.Operations, sum.CoveredConditions, sum.Conditions, sum.Percentage)))
	sb.WriteString("\n\n")

	for _, op := range doc.Operations {
		if uncoveredOnly && op.State == report.StateFull {
			continue
		}
		sb.WriteString(tuiHeaderStyle.Render(fmt.Sprintf("=== %s ===", op.Key())))
		sb.WriteString("\n")
		sb.WriteString(statusStyle.Render(fmt.Sprintf("    %d/%d covered", op.Covered, op.Total)))
		sb.WriteString("\n")

		rows := make([][]string, 0, len(op.Conditions))
		for _, c := range op.Conditions {
			if uncoveredOnly && c.Covered {
				continue
			}
			status := "missing"
			if c.Covered {
				status = "covered"
			}
			name := c.Name
			if r := []rune(name); len(r) > 60 {
				name = string(r[:57]) + "..."
			}
			rows = append(rows, []string{status, name})
		}
		if len(rows) == 0 {
			sb.WriteString(statusStyle.Render("    No conditions."))
			sb.WriteString("\n\n")
			continue
		}

		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(tuiBorderStyle).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return tuiHeaderStyle
				}
				if col == 0 && row >= 0 && row < len(rows) {
					if rows[row][0] == "covered" {
						return coveredStyle
					}
					return uncoveredStyle
				}
				return lipgloss.NewStyle()
			}).
			Headers("STATUS", "CONDITION").
			Rows(rows...)

		sb.WriteString(t.String())
		sb.WriteString("\n\n")
	}

	if len(doc.Missed) > 0 {
		sb.WriteString(tuiHeaderStyle.Render("=== Missed operations ==="))
		sb.WriteString("\n")
		for _, op := range missedList(doc) {
			sb.WriteString(uncoveredStyle.Render("    " + op))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func missedList(doc *report.Document) []string {
	out := make([]string, 0, len(doc.Missed))
	for _, m := range doc.Missed {
		out = append(out, m.Method+" "+m.Path)
	}
	sort.Strings(out)
	return out
}

func (m coverageModel) Init() tea.Cmd {
	return nil
}

func (m coverageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		headerHeight := 0
		footerHeight := 2
		verticalMargin := headerHeight + footerHeight

		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-verticalMargin)
			m.viewport.SetContent(m.content)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - verticalMargin
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Filter):
			m.uncoveredOnly = !m.uncoveredOnly
			m.content = renderCoverageContent(m.doc, m.uncoveredOnly)
			if m.ready {
				m.viewport.SetContent(m.content)
				m.viewport.GotoTop()
			}
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m coverageModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	mode := "all"
	if m.uncoveredOnly {
		mode = "uncovered"
	}
	footer := statusStyle.Render(
		fmt.Sprintf(" %3.f%% %s ", m.viewport.ScrollPercent()*100, mode)) +
		" " + m.help.View(m.keys)

	return m.viewport.View() + "\n" + footer
}

// runInteractiveCoverage launches the Bubble Tea TUI for browsing
// coverage results.
func runInteractiveCoverage(doc *report.Document) error {
	model := newCoverageModel(doc)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

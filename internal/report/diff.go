package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// ConditionRef names one condition of one operation.
type ConditionRef struct {
	Operation string `json:"operation"`
	Condition string `json:"condition"`
}

// Diff compares two reports condition by condition. Conditions are
// matched by operation key and condition name.
type Diff struct {
	// NewlyCovered were uncovered (or absent) before and are covered
	// now.
	NewlyCovered []ConditionRef `json:"newlyCovered"`

	// Regressed were covered before and are uncovered now.
	Regressed []ConditionRef `json:"regressed"`

	// Added exist only in the new report.
	Added []ConditionRef `json:"added"`

	// Removed exist only in the old report.
	Removed []ConditionRef `json:"removed"`

	OldPercentage float64 `json:"oldPercentage"`
	NewPercentage float64 `json:"newPercentage"`
}

// Delta is the change in overall condition coverage, in points.
func (d *Diff) Delta() float64 { return d.NewPercentage - d.OldPercentage }

// Compare computes the Diff from prev to next.
func Compare(prev, next *Document) *Diff {
	before := conditionIndex(prev)
	after := conditionIndex(next)

	d := &Diff{
		NewlyCovered:  []ConditionRef{},
		Regressed:     []ConditionRef{},
		Added:         []ConditionRef{},
		Removed:       []ConditionRef{},
		OldPercentage: prev.Summary.Percentage,
		NewPercentage: next.Summary.Percentage,
	}

	for ref, covered := range after {
		was, existed := before[ref]
		if !existed {
			d.Added = append(d.Added, ref)
		}
		switch {
		case covered && !was:
			d.NewlyCovered = append(d.NewlyCovered, ref)
		case !covered && was:
			d.Regressed = append(d.Regressed, ref)
		}
	}
	for ref := range before {
		if _, ok := after[ref]; !ok {
			d.Removed = append(d.Removed, ref)
		}
	}

	for _, refs := range [][]ConditionRef{d.NewlyCovered, d.Regressed, d.Added, d.Removed} {
		sortRefs(refs)
	}
	return d
}

func conditionIndex(doc *Document) map[ConditionRef]bool {
	idx := map[ConditionRef]bool{}
	for _, op := range doc.Operations {
		for _, c := range op.Conditions {
			idx[ConditionRef{Operation: op.Key(), Condition: c.Name}] = c.Covered
		}
	}
	return idx
}

func sortRefs(refs []ConditionRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Operation != refs[j].Operation {
			return refs[i].Operation < refs[j].Operation
		}
		return refs[i].Condition < refs[j].Condition
	})
}

// WriteDiffJSON writes d as indented JSON.
func WriteDiffJSON(w io.Writer, d *Diff) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// WriteDiffText writes d as styled text.
func WriteDiffText(w io.Writer, d *Diff) error {
	s := DefaultStyles()

	sections := []struct {
		title string
		refs  []ConditionRef
		mark  string
		style func(string) string
	}{
		{"Newly covered", d.NewlyCovered, "+", func(v string) string { return s.Covered.Render(v) }},
		{"Regressed", d.Regressed, "-", func(v string) string { return s.Uncovered.Render(v) }},
		{"Added conditions", d.Added, "~", func(v string) string { return s.Muted.Render(v) }},
		{"Removed conditions", d.Removed, "~", func(v string) string { return s.Muted.Render(v) }},
	}
	for _, sec := range sections {
		if len(sec.refs) == 0 {
			continue
		}
		fmt.Fprintln(w, s.Header.Render(fmt.Sprintf("=== %s (%d) ===", sec.title, len(sec.refs))))
		for _, r := range sec.refs {
			line := fmt.Sprintf("  %s %s: %s", sec.mark, r.Operation, r.Condition)
			fmt.Fprintln(w, sec.style(truncate(line, 80)))
		}
		fmt.Fprintln(w)
	}

	status := s.Pass.Render(fmt.Sprintf("%+.1f", d.Delta()))
	if d.Delta() < 0 {
		status = s.Fail.Render(fmt.Sprintf("%+.1f", d.Delta()))
	}
	fmt.Fprintf(w, "Coverage: %.1f%% -> %.1f%% (%s)\n", d.OldPercentage, d.NewPercentage, status)
	return nil
}

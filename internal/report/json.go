// Package report renders coverage results as logs, styled text, JSON,
// HTML, Prometheus metrics and report diffs.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/unbound-force/apicov/internal/coverage"
	"github.com/unbound-force/apicov/internal/model"
)

// Operation coverage states.
const (
	StateFull    = "full"
	StatePartial = "partial"
	StateEmpty   = "empty"
)

// Document is the persisted form of a run. Every writer renders a
// Document, so reports read back from JSON render like fresh ones.
type Document struct {
	Version              string                        `json:"version"`
	RunID                string                        `json:"runId"`
	Info                 model.Info                    `json:"info"`
	Summary              coverage.Summary              `json:"summary"`
	Operations           []Operation                   `json:"operations"`
	Missed               map[string]MissedOperation    `json:"missed"`
	GenerationStatistics coverage.GenerationStatistics `json:"generationStatistics"`
	Errors               []string                      `json:"errors"`
}

// Operation is the report entry of one contract operation.
type Operation struct {
	Method      string                     `json:"method"`
	Path        string                     `json:"path"`
	OperationID string                     `json:"operationId,omitempty"`
	Summary     string                     `json:"summary,omitempty"`
	Tags        []string                   `json:"tags,omitempty"`
	State       string                     `json:"state"`
	Covered     int                        `json:"covered"`
	Total       int                        `json:"total"`
	Percentage  float64                    `json:"percentage"`
	Conditions  []coverage.ConditionResult `json:"conditions"`
}

// Key returns the operation key.
func (o Operation) Key() string {
	return model.NewOperationKey(o.Method, o.Path).String()
}

// MissedOperation is a captured operation the contract does not
// declare.
type MissedOperation struct {
	Method     string   `json:"method"`
	Path       string   `json:"path"`
	Parameters []string `json:"parameters"`
	Responses  []string `json:"responses"`
}

// Build converts run results into a Document.
func Build(r *coverage.Results, version string) *Document {
	doc := &Document{
		Version:              version,
		RunID:                r.RunID,
		Info:                 r.Info,
		Summary:              coverage.Summarize(r),
		Operations:           make([]Operation, 0, len(r.Operations)),
		Missed:               make(map[string]MissedOperation, len(r.Missed)),
		GenerationStatistics: r.Statistics,
		Errors:               r.Errors,
	}
	if doc.Errors == nil {
		doc.Errors = []string{}
	}

	for _, op := range r.Operations {
		covered, total := op.Counts()
		conds := op.Conditions
		if conds == nil {
			conds = []coverage.ConditionResult{}
		}
		doc.Operations = append(doc.Operations, Operation{
			Method:      op.Operation.Key.Method,
			Path:        op.Operation.Key.Path,
			OperationID: op.Operation.OperationID,
			Summary:     op.Operation.Summary,
			Tags:        op.Operation.Tags,
			State:       state(covered, total),
			Covered:     covered,
			Total:       total,
			Percentage:  op.Percentage(),
			Conditions:  conds,
		})
	}

	for _, key := range r.MissedKeys() {
		op := r.Missed[key]
		m := MissedOperation{
			Method:     key.Method,
			Path:       key.Path,
			Parameters: []string{},
			Responses:  []string{},
		}
		for _, p := range op.Parameters {
			m.Parameters = append(m.Parameters, fmt.Sprintf("%s %s", p.In, p.Name))
		}
		for code := range op.Responses {
			m.Responses = append(m.Responses, code)
		}
		sort.Strings(m.Responses)
		doc.Missed[key.String()] = m
	}
	return doc
}

func state(covered, total int) string {
	switch {
	case total > 0 && covered == total:
		return StateFull
	case covered == 0:
		return StateEmpty
	default:
		return StatePartial
	}
}

// WriteJSON writes the document as indented JSON.
func WriteJSON(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ReadJSON decodes a document written by WriteJSON.
func ReadJSON(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	return &doc, nil
}

// ReadFile reads a persisted JSON report.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

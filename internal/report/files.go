package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// Persisted report file names.
const (
	ResultsFileName = "apicov-results.json"
	HTMLFileName    = "apicov-report.html"
)

// WriteFiles persists the JSON and HTML reports under dir, creating it
// when needed. It returns the written paths.
func WriteFiles(dir string, doc *Document) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report directory: %w", err)
	}

	var jsonBuf, htmlBuf bytes.Buffer
	if err := WriteJSON(&jsonBuf, doc); err != nil {
		return nil, err
	}
	if err := WriteHTML(&htmlBuf, doc); err != nil {
		return nil, err
	}

	outputs := []struct {
		name string
		data []byte
	}{
		{ResultsFileName, jsonBuf.Bytes()},
		{HTMLFileName, htmlBuf.Bytes()},
	}

	paths := make([]string, 0, len(outputs))
	for _, o := range outputs {
		path := filepath.Join(dir, o.name)
		if err := os.WriteFile(path, o.data, 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteLog emits a summary of doc through logger, one line per
// operation that is not fully covered.
func WriteLog(logger *log.Logger, doc *Document) {
	sum := doc.Summary
	logger.Info("coverage",
		"operations", sum.Operations,
		"conditions", sum.Conditions,
		"covered", sum.CoveredConditions,
		"percentage", fmt.Sprintf("%.1f", sum.Percentage))

	for _, op := range doc.Operations {
		if op.State == StateFull {
			continue
		}
		logger.Warn("operation not fully covered",
			"operation", op.Key(),
			"covered", op.Covered,
			"total", op.Total)
	}
	for _, key := range sortedKeys(doc.Missed) {
		logger.Warn("operation missing from contract", "operation", key)
	}
	if n := doc.GenerationStatistics.FailedFileCount; n > 0 {
		logger.Error("unreadable captures", "count", n)
	}
}

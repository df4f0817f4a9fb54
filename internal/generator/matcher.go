package generator

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/unbound-force/apicov/internal/coverage"
	"github.com/unbound-force/apicov/internal/model"
)

// Matcher feeds captured operations into a Coverage. Operations absent
// from the contract are kept as missed; a later capture of the same
// key replaces the earlier one.
type Matcher struct {
	cov    *coverage.Coverage
	logger *log.Logger

	mu     sync.Mutex
	missed map[model.OperationKey]model.Operation
	stats  coverage.GenerationStatistics
}

// NewMatcher returns a Matcher writing into cov.
func NewMatcher(cov *coverage.Coverage, logger *log.Logger) *Matcher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Matcher{
		cov:    cov,
		logger: logger,
		missed: map[model.OperationKey]model.Operation{},
	}
}

// Process matches every operation of one capture source, in key order,
// and counts the source as processed.
func (m *Matcher) Process(ctx context.Context, holder model.OperationsHolder) error {
	for _, key := range holder.SortedKeys() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("matching interrupted: %w", err)
		}
		call := holder[key]

		newly, ok := m.cov.MarkIfSatisfied(key, call)
		if !ok {
			m.logger.Debug("operation not in contract", "operation", key)
			m.mu.Lock()
			m.missed[key] = call
			m.mu.Unlock()
			continue
		}
		for _, name := range newly {
			m.logger.Debug("condition covered", "operation", key, "condition", name)
		}
	}

	m.mu.Lock()
	m.stats.ResultFileCount++
	m.mu.Unlock()
	return nil
}

// Failed counts a source that could not be read.
func (m *Matcher) Failed() {
	m.mu.Lock()
	m.stats.FailedFileCount++
	m.mu.Unlock()
}

// Results freezes the current state.
func (m *Matcher) Results(info model.Info) *coverage.Results {
	m.mu.Lock()
	defer m.mu.Unlock()

	missed := make(map[model.OperationKey]model.Operation, len(m.missed))
	for k, v := range m.missed {
		missed[k] = v
	}
	return &coverage.Results{
		Info:       info,
		Operations: m.cov.Snapshot(),
		Missed:     missed,
		Statistics: m.stats,
	}
}

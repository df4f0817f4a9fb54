// Package generator orchestrates a coverage run: derive the checklist
// from the contract, discover capture sources, match them against the
// checklist, and aggregate the results.
package generator

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/unbound-force/apicov/internal/capture"
	"github.com/unbound-force/apicov/internal/contract"
	"github.com/unbound-force/apicov/internal/coverage"
	"github.com/unbound-force/apicov/internal/model"
	"github.com/unbound-force/apicov/internal/rule"
)

// CaptureReadError reports a capture source that could not be read or
// parsed. It does not abort the run.
type CaptureReadError struct {
	Path string
	Err  error
}

func (e *CaptureReadError) Error() string {
	return fmt.Sprintf("capture %q: %v", e.Path, e.Err)
}

func (e *CaptureReadError) Unwrap() error { return e.Err }

// Options configures a Generator.
type Options struct {
	// SpecPath is the contract document.
	SpecPath string

	// InputPath is a capture directory or a single capture file.
	InputPath string

	// Rules is the ordered rule list. Nil means rule.Defaults().
	Rules []rule.Rule

	// Capture controls source discovery.
	Capture capture.Options

	// Workers bounds parallel capture parsing. Values below 1 mean 1.
	Workers int

	// Logger receives progress output. Nil discards it.
	Logger *log.Logger
}

// Generator runs one coverage pass.
type Generator struct {
	opts   Options
	logger *log.Logger
}

// New returns a Generator for opts.
func New(opts Options) *Generator {
	if opts.Rules == nil {
		opts.Rules = rule.Defaults()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Generator{opts: opts, logger: logger}
}

// Derive builds the uncovered checklist of every contract operation
// by applying rules in order.
func Derive(c *model.Contract, rules []rule.Rule) *coverage.Coverage {
	return coverage.Build(c.Operations, func(op model.Operation) []coverage.Branch {
		return rule.Apply(op, rules)
	})
}

// parsed is the outcome of reading one capture source.
type parsed struct {
	holder model.OperationsHolder
	err    error
}

// Run executes the four phases in order. A contract failure is
// returned as a *contract.ContractError and no results are produced.
// Unreadable capture sources are recorded in Results.Errors.
func (g *Generator) Run(ctx context.Context) (*coverage.Results, error) {
	start := time.Now()

	c, err := contract.Load(g.opts.SpecPath)
	if err != nil {
		return nil, err
	}
	cov := Derive(c, g.opts.Rules)
	g.logger.Info("checklist derived", "operations", cov.Len(), "rules", len(g.opts.Rules))

	found, err := capture.Scan(ctx, g.opts.InputPath, g.opts.Capture)
	if err != nil {
		return nil, fmt.Errorf("discovering captures: %w", err)
	}
	sources := found.Sources
	g.logger.Info("captures discovered", "sources", len(sources), "unreadable", len(found.Unreadable))

	reads, err := g.readAll(ctx, sources)
	if err != nil {
		return nil, err
	}

	matcher := NewMatcher(cov, g.logger)
	var errs []string
	for _, u := range found.Unreadable {
		readErr := &CaptureReadError{Path: u.Path, Err: u.Err}
		g.logger.Warn("skipping unreadable capture entry", "path", u.Path, "err", u.Err)
		errs = append(errs, readErr.Error())
		matcher.Failed()
	}
	for i, r := range reads {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("matching interrupted: %w", err)
		}
		if r.err != nil {
			readErr := &CaptureReadError{Path: sources[i], Err: r.err}
			g.logger.Warn("skipping capture", "path", sources[i], "err", r.err)
			errs = append(errs, readErr.Error())
			matcher.Failed()
			continue
		}
		if err := matcher.Process(ctx, r.holder); err != nil {
			return nil, err
		}
	}

	results := matcher.Results(c.Info)
	results.RunID = uuid.NewString()
	results.Errors = errs
	results.Statistics.StartedAt = start
	results.Statistics.GenerationTime = time.Since(start)

	g.logger.Info("coverage generated",
		"sources", results.Statistics.ResultFileCount,
		"failed", results.Statistics.FailedFileCount,
		"missed", len(results.Missed),
		"elapsed", results.Statistics.GenerationTime)
	return results, nil
}

// readAll parses every source with at most Workers in flight. The
// returned slice is indexed like sources, so matching order does not
// depend on scheduling.
func (g *Generator) readAll(ctx context.Context, sources []string) ([]parsed, error) {
	out := make([]parsed, len(sources))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Workers)
	for i, path := range sources {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			holder, err := contract.LoadCapture(path)
			out[i] = parsed{holder: holder, err: err}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("reading captures: %w", err)
	}
	return out, nil
}

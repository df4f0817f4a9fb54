package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/unbound-force/apicov/internal/config"
	"github.com/unbound-force/apicov/internal/generator"
	"github.com/unbound-force/apicov/internal/report"
	"github.com/unbound-force/apicov/internal/scaffold"
	"github.com/unbound-force/apicov/internal/server"
)

// logger is the application-wide structured logger (writes to stderr).
var logger = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
	ReportTimestamp: false,
})

// Set by build flags.
var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "apicov",
		Short: "apicov: API contract coverage from captured calls",
		Long: `apicov derives a checklist of testable conditions from an OpenAPI
or Swagger contract and marks each one covered when a captured API
call exercises it.`,
		Version:      version,
		SilenceUsage: true,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newDiffCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newSchemaCmd())
	root.AddCommand(newInitCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// runParams holds the parsed flags for the run command.
type runParams struct {
	specPath    string
	inputPath   string
	format      string
	configPath  string
	outputDir   string
	metricsFile string
	workers     int
	minCoverage float64
	interactive bool
	verbose     bool
	stdout      io.Writer
	stderr      io.Writer
}

// runRun is the extracted, testable body of the run command.
func runRun(ctx context.Context, p runParams) error {
	if p.format != "text" && p.format != "json" && p.format != "html" {
		return fmt.Errorf("invalid format %q: must be 'text', 'json', or 'html'", p.format)
	}
	if p.specPath == "" {
		return fmt.Errorf("--spec is required")
	}
	if p.inputPath == "" {
		return fmt.Errorf("--input is required")
	}

	cfg, err := loadConfig(p.configPath, p.workers, p.minCoverage, p.outputDir)
	if err != nil {
		return err
	}
	rules, err := cfg.BuildRules()
	if err != nil {
		return fmt.Errorf("building rules: %w", err)
	}

	if p.verbose {
		logger.SetLevel(charmlog.DebugLevel)
	}

	logger.Info("generating coverage", "spec", p.specPath, "input", p.inputPath)
	results, err := generator.New(generator.Options{
		SpecPath:  p.specPath,
		InputPath: p.inputPath,
		Rules:     rules,
		Capture:   cfg.CaptureOptions(),
		Workers:   cfg.Workers,
		Logger:    logger,
	}).Run(ctx)
	if err != nil {
		return err
	}

	doc := report.Build(results, version)
	report.WriteLog(logger, doc)

	if p.interactive {
		if err := runInteractiveCoverage(doc); err != nil {
			return err
		}
	} else if err := writeRunReport(p.stdout, p.format, doc); err != nil {
		return err
	}

	if cfg.Report.OutputDir != "" {
		paths, err := report.WriteFiles(cfg.Report.OutputDir, doc)
		if err != nil {
			return err
		}
		logger.Info("report written", "files", paths)
	}
	if p.metricsFile != "" {
		if err := report.WriteMetrics(p.metricsFile, doc); err != nil {
			return err
		}
		logger.Info("metrics written", "file", p.metricsFile)
	}

	printCISummary(p.stderr, doc, cfg.Report.MinCoverage)
	return checkThreshold(doc, cfg.Report.MinCoverage)
}

// writeRunReport outputs the coverage report in the requested format.
func writeRunReport(w io.Writer, format string, doc *report.Document) error {
	switch format {
	case "json":
		return report.WriteJSON(w, doc)
	case "html":
		return report.WriteHTML(w, doc)
	default:
		return report.WriteText(w, doc)
	}
}

// loadConfig reads the config at path, or the project config found in
// the working directory when path is empty. Flag values override the
// file: workers and minCoverage when >= 0, outputDir when non-empty.
func loadConfig(path string, workers int, minCoverage float64, outputDir string) (*config.Config, error) {
	if path == "" {
		path = config.Find(".")
	}

	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}

	if workers >= 0 {
		cfg.Workers = workers
	}
	if minCoverage >= 0 {
		cfg.Report.MinCoverage = minCoverage
	}
	if outputDir != "" {
		cfg.Report.OutputDir = outputDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// printCISummary prints a one-line CI summary to stderr when a
// coverage threshold is set.
func printCISummary(w io.Writer, doc *report.Document, minCoverage float64) {
	if minCoverage <= 0 {
		return
	}
	status := "PASS"
	if doc.Summary.Percentage < minCoverage {
		status = "FAIL"
	}
	fmt.Fprintf(w, "Coverage: %.1f%%/%.1f%% (%s)\n", doc.Summary.Percentage, minCoverage, status)
}

// checkThreshold returns an error if coverage is below minCoverage.
func checkThreshold(doc *report.Document, minCoverage float64) error {
	if minCoverage > 0 && doc.Summary.Percentage < minCoverage {
		return fmt.Errorf("coverage %.1f%% is below minimum %.1f%%",
			doc.Summary.Percentage, minCoverage)
	}
	return nil
}

func newRunCmd() *cobra.Command {
	var p runParams

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Measure contract coverage of captured calls",
		Long: `Derive the condition checklist from the contract, match every
capture under --input against it, and report covered and uncovered
conditions plus captured operations the contract does not declare.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p.stdout = cmd.OutOrStdout()
			p.stderr = cmd.ErrOrStderr()
			return runRun(cmd.Context(), p)
		},
	}

	cmd.Flags().StringVar(&p.specPath, "spec", "",
		"contract document (OpenAPI 3 or Swagger 2, JSON or YAML)")
	cmd.Flags().StringVar(&p.inputPath, "input", "",
		"capture directory or single capture file")
	cmd.Flags().StringVar(&p.format, "format", "text",
		"output format: text, json, or html")
	cmd.Flags().StringVar(&p.configPath, "config", "",
		"config file (default: .apicov.yaml or .apicov.toml in the working directory)")
	cmd.Flags().StringVar(&p.outputDir, "output-dir", "",
		"also persist apicov-results.json and apicov-report.html here")
	cmd.Flags().StringVar(&p.metricsFile, "metrics-file", "",
		"write Prometheus textfile metrics to this path")
	cmd.Flags().IntVar(&p.workers, "workers", -1,
		"parallel capture parsing (default: config value or 1)")
	cmd.Flags().Float64Var(&p.minCoverage, "min-coverage", -1,
		"fail if condition coverage is below this percentage (0 = no limit)")
	cmd.Flags().BoolVarP(&p.interactive, "interactive", "i", false,
		"launch interactive TUI for browsing results")
	cmd.Flags().BoolVarP(&p.verbose, "verbose", "v", false,
		"log every covered condition")

	return cmd
}

// diffParams holds the parsed flags for the diff command.
type diffParams struct {
	oldPath string
	newPath string
	format  string
	stdout  io.Writer
}

// runDiff is the extracted, testable body of the diff command.
func runDiff(p diffParams) error {
	if p.format != "text" && p.format != "json" {
		return fmt.Errorf("invalid format %q: must be 'text' or 'json'", p.format)
	}
	prev, err := report.ReadFile(p.oldPath)
	if err != nil {
		return err
	}
	next, err := report.ReadFile(p.newPath)
	if err != nil {
		return err
	}

	d := report.Compare(prev, next)
	if p.format == "json" {
		return report.WriteDiffJSON(p.stdout, d)
	}
	return report.WriteDiffText(p.stdout, d)
}

func newDiffCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "diff <old.json> <new.json>",
		Short: "Compare two persisted coverage reports",
		Long: `List conditions newly covered, regressed, added or removed between
two apicov-results.json files.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(diffParams{
				oldPath: args[0],
				newPath: args[1],
				format:  format,
				stdout:  cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "text",
		"output format: text or json")
	return cmd
}

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve <results.json>",
		Short: "Serve a persisted coverage report over HTTP",
		Long: `Serve the HTML rendering at /, the JSON report at /report.json and a
health check at /healthz until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := report.ReadFile(args[0])
			if err != nil {
				return err
			}
			srv, err := server.New(doc, logger)
			if err != nil {
				return err
			}
			logger.Info("serving report", "addr", addr, "run", doc.RunID)
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for apicov reports",
		Long: `Print the JSON Schema (Draft 2020-12) that documents the
structure of apicov run --format=json output and apicov-results.json.
Useful for validating output or generating client types.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), report.Schema)
			return err
		},
	}
}

func newInitCmd() *cobra.Command {
	var (
		force  bool
		format string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default apicov configuration",
		Long: `Write .apicov.yaml (or .apicov.toml with --config-format toml) to the
current directory. Existing files are kept unless --force is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := scaffold.Run(scaffold.Options{
				Format:  format,
				Force:   force,
				Version: version,
				Stdout:  cmd.OutOrStdout(),
			})
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	cmd.Flags().StringVar(&format, "config-format", scaffold.FormatYAML, "config format: yaml or toml")
	return cmd
}

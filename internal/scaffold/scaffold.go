// Package scaffold embeds the default apicov configuration and writes
// it to a target project directory.
package scaffold

import (
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

//go:embed assets/*
var assets embed.FS

// Config file formats.
const (
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// contractNames are the contract files whose absence triggers a
// warning.
var contractNames = []string{
	"openapi.yaml", "openapi.yml", "openapi.json",
	"swagger.yaml", "swagger.yml", "swagger.json",
}

// Options configures the scaffold operation.
type Options struct {
	// TargetDir is the root directory to scaffold into.
	// Defaults to the current working directory.
	TargetDir string

	// Format selects FormatYAML (default) or FormatTOML.
	Format string

	// Force overwrites an existing config file when true.
	Force bool

	// Version is the apicov version string written in the header
	// comment. Defaults to "dev".
	Version string

	// Stdout is the writer for summary output.
	// Defaults to os.Stdout.
	Stdout io.Writer
}

// Result reports what the scaffold operation did.
type Result struct {
	// Path is the config file path relative to TargetDir.
	Path string

	// Created is true when the file did not exist before.
	Created bool

	// Skipped is true when the file existed and Force was false.
	Skipped bool

	// Overwritten is true when the file existed and was replaced.
	Overwritten bool
}

// versionMarker returns the header comment prepended to the file.
func versionMarker(version string) string {
	if version == "" {
		version = "dev"
	}
	return fmt.Sprintf("# scaffolded by apicov %s\n", version)
}

// Run writes .apicov.yaml (or .apicov.toml) into the target
// directory. An existing file is kept unless opts.Force is set.
func Run(opts Options) (*Result, error) {
	if opts.TargetDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		opts.TargetDir = cwd
	}
	if opts.Format == "" {
		opts.Format = FormatYAML
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	content, err := AssetContent(opts.Format)
	if err != nil {
		return nil, err
	}

	if !hasContract(opts.TargetDir) {
		fmt.Fprintln(opts.Stdout, "Warning: no openapi or swagger contract found in target directory.")
		fmt.Fprintln(opts.Stdout, "Pass the contract with apicov run --spec.")
		fmt.Fprintln(opts.Stdout)
	}

	result := &Result{Path: ".apicov." + opts.Format}
	outPath := filepath.Join(opts.TargetDir, result.Path)

	_, statErr := os.Stat(outPath)
	exists := statErr == nil
	if exists && !opts.Force {
		result.Skipped = true
		printSummary(opts.Stdout, result)
		return result, nil
	}

	out := append([]byte(versionMarker(opts.Version)), content...)
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return nil, fmt.Errorf("creating %s: %w", result.Path, err)
	}
	result.Created = !exists
	result.Overwritten = exists

	printSummary(opts.Stdout, result)
	return result, nil
}

func hasContract(dir string) bool {
	for _, name := range contractNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// printSummary writes a human-readable summary of the scaffold
// operation to w.
func printSummary(w io.Writer, r *Result) {
	fmt.Fprintln(w, "apicov configuration initialized:")
	switch {
	case r.Created:
		fmt.Fprintf(w, "  created: %s\n", r.Path)
	case r.Overwritten:
		fmt.Fprintf(w, "  overwritten: %s\n", r.Path)
	case r.Skipped:
		fmt.Fprintf(w, "  skipped: %s (already exists)\n", r.Path)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run apicov run --spec <contract> --input <captures> to measure coverage.")
	if r.Skipped {
		fmt.Fprintln(w, "Use --force to overwrite.")
	}
}

// AssetContent returns the embedded config template for format.
func AssetContent(format string) ([]byte, error) {
	switch format {
	case FormatYAML, FormatTOML:
		return assets.ReadFile("assets/apicov." + format)
	default:
		return nil, fmt.Errorf("unknown config format %q: must be %q or %q", format, FormatYAML, FormatTOML)
	}
}

// Package capture discovers captured-record sources on disk.
package capture

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Extensions lists the file extensions recognised as capture sources.
var Extensions = []string{".json", ".yaml", ".yml"}

// Options configures a Scan invocation.
type Options struct {
	// Include, when non-empty, restricts the scan to paths matching
	// at least one pattern.
	Include []string

	// Exclude drops paths matching any pattern.
	Exclude []string

	// Timeout bounds the walk. Zero means no timeout.
	Timeout time.Duration
}

// Unreadable is an entry under the scan root that could not be
// listed or stat'ed. The walk skips it and continues.
type Unreadable struct {
	Path string
	Err  error
}

// Result holds the outcome of a Scan.
type Result struct {
	// Sources are the capture files found, sorted by path.
	Sources []string

	// Unreadable lists entries the walk could not enter, in walk
	// order.
	Unreadable []Unreadable
}

// Scan returns the capture sources under root, sorted by path. If
// root is a regular file it is returned as the only source. Hidden
// directories are skipped.
//
// An entry below root that cannot be read is recorded in
// Result.Unreadable and skipped; only a missing or unreadable root, or
// a cancelled context, fails the scan.
//
// Patterns are matched against paths relative to root, see Filter.
func Scan(ctx context.Context, root string, opts Options) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("capture input %q: %w", root, err)
	}
	if !info.IsDir() {
		return &Result{Sources: []string{root}}, nil
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	res := &Result{}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("capture scan interrupted: %w", ctxErr)
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}

		if walkErr != nil {
			if path == root {
				return walkErr
			}
			if Excluded(rel, opts) {
				return skipEntry(d)
			}
			res.Unreadable = append(res.Unreadable, Unreadable{Path: path, Err: walkErr})
			return skipEntry(d)
		}

		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !hasCaptureExtension(d.Name()) || !Filter(rel, opts) {
			return nil
		}
		res.Sources = append(res.Sources, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(res.Sources)
	return res, nil
}

// skipEntry steps over an entry that failed: the rest of a directory,
// or nothing more for a file.
func skipEntry(d fs.DirEntry) error {
	if d != nil && d.IsDir() {
		return filepath.SkipDir
	}
	return nil
}

func hasCaptureExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

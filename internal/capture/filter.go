package capture

import (
	"path"
	"path/filepath"
	"strings"
)

// Filter returns true if the relative path rel should be read as a
// capture, based on the include/exclude patterns in opts.
//
// Logic:
//  1. If include patterns are set, the file must match at least one
//     include pattern (overrides the default of reading every capture).
//  2. If the file matches any exclude pattern, it is skipped.
//  3. Otherwise, the file is read.
func Filter(rel string, opts Options) bool {
	// Normalize separators to forward slash for matching consistency.
	rel = filepath.ToSlash(rel)

	if len(opts.Include) > 0 {
		matched := false
		for _, pattern := range opts.Include {
			if matchGlob(pattern, rel) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return !Excluded(rel, opts)
}

// Excluded reports whether rel matches an exclude pattern. It also
// applies to directories, so an excluded directory that cannot be read
// is not reported.
func Excluded(rel string, opts Options) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range opts.Exclude {
		if matchGlob(pattern, rel) {
			return true
		}
	}
	return false
}

// matchGlob matches a slash-separated path against a glob pattern,
// ignoring case: recorders on macOS and Windows write "Run-01.JSON"
// as readily as "run-01.json". Supported forms:
//
//   - "dir/**" matches dir itself and anything under it.
//   - "**/name" matches name at any depth, including the root.
//   - a pattern without a slash also matches the base name, so
//     "*.json" or "smoke-*" apply in every directory.
//   - anything else is matched against the whole path with
//     path.Match syntax.
func matchGlob(pattern, rel string) bool {
	pattern = strings.ToLower(filepath.ToSlash(pattern))
	rel = strings.ToLower(rel)

	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
		return rel == prefix || strings.HasPrefix(rel, prefix+"/")
	}

	if rest, ok := strings.CutPrefix(pattern, "**/"); ok {
		// Try the remainder against every suffix that starts at a
		// path segment.
		for candidate := rel; ; {
			if matchGlob(rest, candidate) {
				return true
			}
			_, after, found := strings.Cut(candidate, "/")
			if !found {
				return false
			}
			candidate = after
		}
	}

	if matched, err := path.Match(pattern, rel); err == nil && matched {
		return true
	}

	if !strings.Contains(pattern, "/") {
		matched, err := path.Match(pattern, path.Base(rel))
		return err == nil && matched
	}
	return false
}

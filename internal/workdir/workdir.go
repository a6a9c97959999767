// Package workdir implements the Working-Directory Policy (C6):
// canonicalizing a requested cwd and validating it against allowed roots.
package workdir

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound corresponds to the WORKING_DIR_NOT_FOUND error kind (§7).
var ErrNotFound = errors.New("WORKING_DIR_NOT_FOUND")

// ErrOutOfRoot corresponds to the WORKING_DIR_OUT_OF_ROOT error kind (§7).
var ErrOutOfRoot = errors.New("WORKING_DIR_OUT_OF_ROOT")

// Policy holds the working-directory enforcement configuration (§6.6
// `security.enforceWorkingDirectory`/`security.allowedWriteRoots`).
type Policy struct {
	Enforce           bool
	AllowedWriteRoots []string
}

// ResolveAndCheck implements §4.6's `resolveAndCheck`:
//  1. absent path -> absent, no error.
//  2. canonicalize (resolve symlinks, make absolute).
//  3. if enforcement is off, only existence is checked.
//  4. otherwise the canonical path must have one of the expanded allowed
//     roots as a path-segment-wise prefix.
func (p Policy) ResolveAndCheck(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	canonical, err := canonicalize(path)
	if err != nil {
		return "", ErrNotFound
	}

	if !p.Enforce {
		return canonical, nil
	}

	for _, root := range p.AllowedWriteRoots {
		expanded := expandPlaceholders(root)
		expandedCanonical, err := canonicalize(expanded)
		if err != nil {
			continue
		}
		if hasSegmentPrefix(canonical, expandedCanonical) {
			return canonical, nil
		}
	}
	return "", ErrOutOfRoot
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(resolved); err != nil {
		return "", err
	}
	return resolved, nil
}

// expandPlaceholders expands `${TEMP}`-style tokens (§4.6) found in a
// configured allowed root.
func expandPlaceholders(root string) string {
	replacer := strings.NewReplacer(
		"${TEMP}", os.TempDir(),
		"${HOME}", userHomeDir(),
	)
	return replacer.Replace(root)
}

func userHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return os.TempDir()
}

// hasSegmentPrefix reports whether root is a path-segment-wise prefix of
// path — i.e. `/var/foobar` is NOT considered prefixed by `/var/foo`, unlike
// a raw string prefix check.
func hasSegmentPrefix(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if path == root {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(path, root+sep)
}

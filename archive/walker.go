// Package archive serves score directories packed into zip bundles.
package archive

import (
	"archive/zip"
	"fmt"
	"path"
	"strings"
)

// walk calls fn for every file entry with name starting with pattern.
// Archives with absolute entry names or ".." components are rejected as a
// whole before any extraction may happen.
func walk(r *zip.Reader, pattern string, fn func(*zip.File) error) error {
	for _, f := range r.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if !f.FileInfo().IsDir() && strings.HasPrefix(name, pattern) {
			if err := fn(f); err != nil {
				return err
			}
		}
	}
	return nil
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

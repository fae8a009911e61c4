// Package cachepath maps logical URL paths to file locations under a web
// root. The mapping is pure string work: no filesystem access, no side
// effects, and the same inputs always produce the same location.
package cachepath

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// IndexBasename is appended when a path requests a directory index
	// (trailing slash). The question mark is a literal filename character,
	// not a query delimiter: it keeps index documents from colliding with
	// real files named index.html and gives front-end rewrite rules an
	// unambiguous token to match on.
	IndexBasename = "index.html?"

	// AjaxSuffix distinguishes the AJAX rendering of a path from the
	// regular one, so the two never share a filename.
	AjaxSuffix = ",ajax"

	// MaxFilenameLen is the longest mapped filename, in bytes, that is
	// considered cacheable. Most filesystems reject longer names, so the
	// mapper vetoes them up front.
	MaxFilenameLen = 255
)

// ErrMalformedPath reports a raw path containing more than one query
// separator, which cannot be split unambiguously.
var ErrMalformedPath = errors.New("malformed path")

// Location is the on-disk destination a URL path maps to.
type Location struct {
	// Filename is the full path of the static file.
	Filename string
	// Dir is the directory containing Filename.
	Dir string
}

// Map resolves a URL path to its cache location under root. The path must
// already have its query string split off (see SplitQuery); query is
// appended verbatim to the filename, and ajax selects the AJAX variant.
//
// The boolean reports whether the path is cacheable. Paths whose mapped
// filename exceeds MaxFilenameLen bytes, or whose cleaned filename falls
// outside root, are not cacheable: callers skip them silently rather than
// treating them as failures.
func Map(root, path, query string, ajax bool) (Location, bool) {
	name := path
	if strings.HasSuffix(name, "/") {
		name += IndexBasename
	}
	name += query
	if ajax {
		name += AjaxSuffix
	}

	filename := filepath.Join(root, strings.TrimLeft(name, "/"))
	if len(filename) > MaxFilenameLen {
		return Location{}, false
	}
	if !strings.HasPrefix(filename, filepath.Clean(root)+string(filepath.Separator)) {
		return Location{}, false
	}

	return Location{Filename: filename, Dir: filepath.Dir(filename)}, true
}

// SplitQuery splits a raw URL path into path and query components at the
// query separator. A path without a separator returns an empty query. More
// than one separator is ambiguous and fails with ErrMalformedPath rather
// than being silently truncated.
func SplitQuery(rawPath string) (path, query string, err error) {
	parts := strings.Split(rawPath, "?")
	switch len(parts) {
	case 1:
		return parts[0], "", nil
	case 2:
		return parts[0], parts[1], nil
	default:
		return "", "", fmt.Errorf("%w: %q contains more than one query separator", ErrMalformedPath, rawPath)
	}
}

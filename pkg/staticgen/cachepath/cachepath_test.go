package cachepath

import (
	"errors"
	"strings"
	"testing"
)

func TestMap(t *testing.T) {
	tests := []struct {
		name         string
		root         string
		path         string
		query        string
		ajax         bool
		wantFilename string
		wantDir      string
		wantOK       bool
	}{
		// Index documents
		{name: "site root", root: "/var/www", path: "/", wantFilename: "/var/www/index.html?", wantDir: "/var/www", wantOK: true},
		{name: "directory index", root: "/var/www", path: "/blog/", wantFilename: "/var/www/blog/index.html?", wantDir: "/var/www/blog", wantOK: true},
		{name: "nested directory index", root: "/var/www", path: "/a/b/c/", wantFilename: "/var/www/a/b/c/index.html?", wantDir: "/var/www/a/b/c", wantOK: true},
		{name: "index with query", root: "/var/www", path: "/blog/", query: "page=2", wantFilename: "/var/www/blog/index.html?page=2", wantDir: "/var/www/blog", wantOK: true},

		// Plain files
		{name: "bare path", root: "/var/www", path: "/foo", wantFilename: "/var/www/foo", wantDir: "/var/www", wantOK: true},
		{name: "nested bare path", root: "/var/www", path: "/a/b/foo.html", wantFilename: "/var/www/a/b/foo.html", wantDir: "/var/www/a/b", wantOK: true},
		// Query strings are concatenated verbatim; the mapper never
		// inserts a separator of its own.
		{name: "bare path with query", root: "/var/www", path: "/foo", query: "x=1", wantFilename: "/var/www/foox=1", wantDir: "/var/www", wantOK: true},

		// AJAX variants
		{name: "ajax index", root: "/var/www", path: "/blog/", ajax: true, wantFilename: "/var/www/blog/index.html?,ajax", wantDir: "/var/www/blog", wantOK: true},
		{name: "ajax with query", root: "/var/www", path: "/blog/", query: "page=2", ajax: true, wantFilename: "/var/www/blog/index.html?page=2,ajax", wantDir: "/var/www/blog", wantOK: true},
		{name: "ajax bare path", root: "/var/www", path: "/foo", ajax: true, wantFilename: "/var/www/foo,ajax", wantDir: "/var/www", wantOK: true},

		// Normalization
		{name: "root with trailing slash", root: "/var/www/", path: "/foo/", wantFilename: "/var/www/foo/index.html?", wantDir: "/var/www/foo", wantOK: true},
		{name: "doubled leading slash", root: "/var/www", path: "//foo", wantFilename: "/var/www/foo", wantDir: "/var/www", wantOK: true},

		// Uncacheable paths
		{name: "empty path", root: "/var/www", path: "", wantOK: false},
		{name: "oversized filename", root: "/var/www", path: "/" + strings.Repeat("a", 300), wantOK: false},
		{name: "path traversal", root: "/var/www", path: "/../../etc/passwd", wantOK: false},
		{name: "query traversal", root: "/r", path: "/a/", query: "../../../../x", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, ok := Map(tt.root, tt.path, tt.query, tt.ajax)
			if ok != tt.wantOK {
				t.Fatalf("Map(%q, %q, %q, %v) ok = %v, want %v", tt.root, tt.path, tt.query, tt.ajax, ok, tt.wantOK)
			}
			if !tt.wantOK {
				return
			}
			if loc.Filename != tt.wantFilename {
				t.Errorf("Map(...) filename = %q, want %q", loc.Filename, tt.wantFilename)
			}
			if loc.Dir != tt.wantDir {
				t.Errorf("Map(...) dir = %q, want %q", loc.Dir, tt.wantDir)
			}
		})
	}
}

func TestMapFilenameLengthBoundary(t *testing.T) {
	// Root "/r" plus "/" plus 252 bytes of path is exactly 255 bytes.
	root := "/r"
	atLimit := "/" + strings.Repeat("a", 252)

	loc, ok := Map(root, atLimit, "", false)
	if !ok {
		t.Fatalf("Map at %d-byte limit: not cacheable, want cacheable", MaxFilenameLen)
	}
	if len(loc.Filename) != MaxFilenameLen {
		t.Fatalf("filename length = %d, want %d", len(loc.Filename), MaxFilenameLen)
	}

	if _, ok := Map(root, atLimit+"a", "", false); ok {
		t.Fatalf("Map past %d-byte limit: cacheable, want veto", MaxFilenameLen)
	}

	// The veto also applies when only the query pushes past the limit.
	if _, ok := Map(root, atLimit, "q", false); ok {
		t.Fatal("Map with query past limit: cacheable, want veto")
	}
}

func TestMapIsIdempotent(t *testing.T) {
	first, ok1 := Map("/var/www", "/blog/", "page=2", true)
	second, ok2 := Map("/var/www", "/blog/", "page=2", true)
	if ok1 != ok2 || first != second {
		t.Errorf("Map not idempotent: first = (%+v, %v), second = (%+v, %v)", first, ok1, second, ok2)
	}
}

func TestMapAjaxVariantsNeverCollide(t *testing.T) {
	paths := []string{"/", "/foo", "/foo/", "/a/b/", "/a/b.html"}
	for _, p := range paths {
		plain, ok1 := Map("/var/www", p, "x=1", false)
		ajax, ok2 := Map("/var/www", p, "x=1", true)
		if !ok1 || !ok2 {
			t.Fatalf("Map(%q) unexpectedly uncacheable", p)
		}
		if plain.Filename == ajax.Filename {
			t.Errorf("Map(%q): ajax and plain variants share filename %q", p, plain.Filename)
		}
	}
}

func TestSplitQuery(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantPath  string
		wantQuery string
		wantErr   bool
	}{
		{name: "no query", raw: "/a/b", wantPath: "/a/b", wantQuery: ""},
		{name: "simple query", raw: "/a/b?x=1", wantPath: "/a/b", wantQuery: "x=1"},
		{name: "empty query", raw: "/a/b?", wantPath: "/a/b", wantQuery: ""},
		{name: "trailing slash with query", raw: "/a/b/?page=2", wantPath: "/a/b/", wantQuery: "page=2"},
		{name: "query with ampersands", raw: "/x?a=1&b=2", wantPath: "/x", wantQuery: "a=1&b=2"},
		{name: "two separators", raw: "/a?x=1?y=2", wantErr: true},
		{name: "three separators", raw: "/a?x?y?z", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotPath, gotQuery, err := SplitQuery(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("SplitQuery(%q) error = nil, want ErrMalformedPath", tt.raw)
				}
				if !errors.Is(err, ErrMalformedPath) {
					t.Fatalf("SplitQuery(%q) error = %v, want ErrMalformedPath", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SplitQuery(%q) unexpected error: %v", tt.raw, err)
			}
			if gotPath != tt.wantPath || gotQuery != tt.wantQuery {
				t.Errorf("SplitQuery(%q) = (%q, %q), want (%q, %q)", tt.raw, gotPath, gotQuery, tt.wantPath, tt.wantQuery)
			}
		})
	}
}

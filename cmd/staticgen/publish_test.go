package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGatherPathsFromArgs(t *testing.T) {
	paths, err := gatherPaths([]string{"/blog/", "/about"}, "", strings.NewReader(""))
	if err != nil {
		t.Fatalf("gatherPaths() returned error: %v", err)
	}
	if len(paths) != 2 || paths[0] != "/blog/" || paths[1] != "/about" {
		t.Errorf("gatherPaths() = %v, want [/blog/ /about]", paths)
	}
}

func TestGatherPathsFromFile(t *testing.T) {
	listPath := filepath.Join(t.TempDir(), "paths.txt")
	content := "/blog/\n\n# comment line\n  /about  \n/blog/?page=2\n"
	if err := os.WriteFile(listPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write path list: %v", err)
	}

	paths, err := gatherPaths(nil, listPath, strings.NewReader(""))
	if err != nil {
		t.Fatalf("gatherPaths() returned error: %v", err)
	}

	want := []string{"/blog/", "/about", "/blog/?page=2"}
	if len(paths) != len(want) {
		t.Fatalf("gatherPaths() = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestGatherPathsFromStdin(t *testing.T) {
	stdin := strings.NewReader("/feed/\n/sitemap.xml\n")

	paths, err := gatherPaths([]string{"/blog/"}, "-", stdin)
	if err != nil {
		t.Fatalf("gatherPaths() returned error: %v", err)
	}

	// Arguments come first, then the piped list.
	want := []string{"/blog/", "/feed/", "/sitemap.xml"}
	if len(paths) != len(want) {
		t.Fatalf("gatherPaths() = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestGatherPathsEmpty(t *testing.T) {
	if _, err := gatherPaths(nil, "", strings.NewReader("")); err == nil {
		t.Error("gatherPaths() with no paths should return an error")
	}
}

func TestGatherPathsMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.txt")
	if _, err := gatherPaths(nil, missing, strings.NewReader("")); err == nil {
		t.Error("gatherPaths() with a missing file should return an error")
	}
}

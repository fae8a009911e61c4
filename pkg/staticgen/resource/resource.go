// Package resource identifies the pages a caller wants published or
// invalidated. A resource expands to zero or more URL paths; resolution
// flattens a mixed list of resources into one ordered path sequence before
// any filesystem work begins.
package resource

import (
	"fmt"
)

// Resource expands to the URL paths it covers, in a stable order.
// Implementations must not touch the filesystem under the web root;
// resolution happens before publishing starts.
type Resource interface {
	CacheURLs() ([]string, error)
}

// URLer is the capability a domain object implements to expose the URL
// path it is published under.
type URLer interface {
	CanonicalURL() string
}

// Path is a literal URL path resource.
type Path string

// CacheURLs returns the path itself.
func (p Path) CacheURLs() ([]string, error) {
	return []string{string(p)}, nil
}

// Object wraps a single domain object carrying its own canonical URL.
func Object(u URLer) Resource {
	return object{u}
}

type object struct {
	u URLer
}

func (o object) CacheURLs() ([]string, error) {
	return []string{o.u.CanonicalURL()}, nil
}

// Collection wraps an ordered set of domain objects. An empty collection
// resolves to no paths.
func Collection(urlers ...URLer) Resource {
	return collection(urlers)
}

type collection []URLer

func (c collection) CacheURLs() ([]string, error) {
	urls := make([]string, 0, len(c))
	for _, u := range c {
		urls = append(urls, u.CanonicalURL())
	}
	return urls, nil
}

// Paths converts literal URL paths into resources, for callers holding
// plain strings.
func Paths(paths ...string) []Resource {
	resources := make([]Resource, 0, len(paths))
	for _, p := range paths {
		resources = append(resources, Path(p))
	}
	return resources
}

// Resolve flattens resources into URL paths. Input order is preserved and
// duplicates are kept: publishing the same path twice is harmless (last
// write wins) and deduplication would reorder caller intent.
func Resolve(resources ...Resource) ([]string, error) {
	var paths []string
	for _, r := range resources {
		urls, err := r.CacheURLs()
		if err != nil {
			return nil, fmt.Errorf("resolve resource: %w", err)
		}
		paths = append(paths, urls...)
	}
	return paths, nil
}

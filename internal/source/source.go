// Package source resolves import paths ("foo/bar") to file contents,
// the Go-native shape of the "out of scope: file I/O wrappers" note in
// spec.md §1/SPEC_FULL.md §1. Kept behind an interface so tests can
// substitute an in-memory filesystem instead of touching disk,
// mirroring the teacher's own ImportLoader/ImportResolver split
// (grammar_import_loaders.go, deleted from the final tree but
// consulted while designing this package — see DESIGN.md).
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Resolver turns an import path into file content plus the on-disk
// path it was read from (used for diagnostics and the rebuild
// dependency collector).
type Resolver interface {
	// Resolve returns the file path and contents for importPath,
	// resolved relative to fromFile (the file containing the import
	// statement) per the fixed scheme in spec §6: "foo/bar" ->
	// src/foo/bar.til (library roots) or project-relative.
	Resolve(fromFile, importPath string) (resolvedPath string, content []byte, err error)

	// ReadMain reads the entry-point file path directly (no import
	// path translation).
	ReadMain(path string) ([]byte, error)
}

const (
	fileExt    = ".til"
	libraryDir = "src"
)

// OSResolver resolves imports against the real filesystem.
type OSResolver struct {
	// Root is the project root; library imports resolve under
	// Root/src/<path>.til.
	Root string
}

func NewOSResolver(root string) *OSResolver {
	return &OSResolver{Root: root}
}

func (r *OSResolver) ReadMain(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (r *OSResolver) Resolve(fromFile, importPath string) (string, []byte, error) {
	candidates := []string{
		filepath.Join(filepath.Dir(fromFile), importPath+fileExt),
		filepath.Join(r.Root, libraryDir, importPath+fileExt),
	}
	for _, p := range candidates {
		data, err := os.ReadFile(p)
		if err == nil {
			return p, data, nil
		}
	}
	return "", nil, fmt.Errorf("could not resolve import %q from %q (tried: %s)",
		importPath, fromFile, strings.Join(candidates, ", "))
}

// MemResolver is an in-memory Resolver for tests, keyed by the path
// that would have been resolved to (not by the import string).
type MemResolver struct {
	Files map[string][]byte
	Root  string
}

func NewMemResolver(files map[string][]byte) *MemResolver {
	return &MemResolver{Files: files, Root: "."}
}

func (r *MemResolver) ReadMain(path string) ([]byte, error) {
	if data, ok := r.Files[path]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("no such file: %s", path)
}

func (r *MemResolver) Resolve(fromFile, importPath string) (string, []byte, error) {
	candidates := []string{
		filepath.Join(filepath.Dir(fromFile), importPath+fileExt),
		filepath.Join(r.Root, libraryDir, importPath+fileExt),
		importPath + fileExt,
	}
	for _, p := range candidates {
		if data, ok := r.Files[p]; ok {
			return p, data, nil
		}
	}
	return "", nil, fmt.Errorf("could not resolve import %q from %q", importPath, fromFile)
}

type cacheEntry struct {
	path    string
	content []byte
}

// CachedResolver fronts another Resolver with a bounded LRU over
// resolved library imports, per SPEC_FULL §10.5: a long-lived `repl`
// session or a `build --force-rebuild` loop re-parsing the same
// library files repeatedly shouldn't grow the cache without bound the
// way the per-compile Context.importedASTs map is allowed to (that
// map is scoped to one compile; this cache spans many).
type CachedResolver struct {
	inner Resolver
	cache *lru.Cache[string, cacheEntry]
}

// NewCachedResolver wraps inner with an LRU of the given capacity.
func NewCachedResolver(inner Resolver, size int) *CachedResolver {
	c, _ := lru.New[string, cacheEntry](size)
	return &CachedResolver{inner: inner, cache: c}
}

func (r *CachedResolver) ReadMain(path string) ([]byte, error) {
	return r.inner.ReadMain(path)
}

func (r *CachedResolver) Resolve(fromFile, importPath string) (string, []byte, error) {
	key := fromFile + "\x00" + importPath
	if e, ok := r.cache.Get(key); ok {
		return e.path, e.content, nil
	}
	path, content, err := r.inner.Resolve(fromFile, importPath)
	if err != nil {
		return "", nil, err
	}
	r.cache.Add(key, cacheEntry{path: path, content: content})
	return path, content, nil
}

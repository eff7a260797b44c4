// Package depcollect implements the rebuild-dependency contract of
// spec §6: a target binary is out of date if any transitively
// imported source file is newer than it. The collector yields the
// main source, the mode's implicit imports, the core library file,
// and their recursive imports — the same set init.go's import-loading
// walk traverses, reused here purely for mtime comparison rather than
// parsing.
package depcollect

import (
	"os"
	"path/filepath"
)

// Resolver is the path-only resolution depcollect needs: turning
// an import path into the file it resolves to, without reading its
// contents (depcollect only needs mtimes).
type Resolver interface {
	ResolvePath(fromFile, importPath string) (string, error)
}

// ImportScanner returns the import paths a .til source file references,
// scanned the lightweight way (line-prefix match) since depcollect
// runs before the lexer/parser exist for a rebuild-or-not decision.
type ImportScanner func(path string) ([]string, error)

// Collect walks mainPath and implicitImports (the active mode's
// ImplicitImports, per mode.go) plus their transitive imports, and
// returns every distinct file path reached, mirroring init.go's dual
// seen-set cycle guard (spec §9) so a cyclic import graph terminates.
func Collect(mainPath string, implicitImports []string, resolve Resolver, scan ImportScanner) ([]string, error) {
	seen := make(map[string]bool)
	var order []string

	var visit func(path string) error
	visit = func(path string) error {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if seen[abs] {
			return nil
		}
		seen[abs] = true
		order = append(order, path)

		imports, err := scan(path)
		if err != nil {
			return err
		}
		for _, imp := range imports {
			resolved, err := resolve.ResolvePath(path, imp)
			if err != nil {
				continue // unresolved imports are a parse-time error, not a rebuild-check one
			}
			if err := visit(resolved); err != nil {
				return err
			}
		}
		return nil
	}

	if err := visit(mainPath); err != nil {
		return nil, err
	}
	for _, imp := range implicitImports {
		resolved, err := resolve.ResolvePath(mainPath, imp)
		if err != nil {
			continue
		}
		if err := visit(resolved); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// NeedsRebuild reports whether any file in sources is newer than
// target, or target doesn't exist yet.
func NeedsRebuild(targetPath string, sources []string) (bool, error) {
	targetInfo, err := os.Stat(targetPath)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	for _, src := range sources {
		srcInfo, err := os.Stat(src)
		if err != nil {
			return false, err
		}
		if srcInfo.ModTime().After(targetInfo.ModTime()) {
			return true, nil
		}
	}
	return false, nil
}

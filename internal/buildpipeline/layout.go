package buildpipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Relative layout of the vendored secp256k1 tree.
var (
	includeRels = []string{".", "include", "src"}
	sourceRels  = []string{"contrib/lax_der_parsing.c", "src/ext.c"}
)

// Layout locates the vendored source tree.
type Layout struct {
	Root string
}

// IncludeDirs returns the tree root, public headers and internal sources, in
// that order.
func (l Layout) IncludeDirs() []string {
	out := make([]string, 0, len(includeRels))
	for _, rel := range includeRels {
		out = append(out, l.join(rel))
	}
	return out
}

// Sources returns the two translation units compiled into the archive.
func (l Layout) Sources() []string {
	out := make([]string, 0, len(sourceRels))
	for _, rel := range sourceRels {
		out = append(out, l.join(rel))
	}
	return out
}

// DisplayName returns src relative to the tree root with forward slashes.
func (l Layout) DisplayName(src string) string {
	rel, err := filepath.Rel(l.Root, src)
	if err != nil {
		return filepath.ToSlash(src)
	}
	return filepath.ToSlash(rel)
}

// Check verifies that the tree root and both sources exist.
func (l Layout) Check() error {
	info, err := os.Stat(l.Root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("vendored source tree %s does not exist", l.Root)
		}
		return fmt.Errorf("failed to stat vendored source tree: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vendored source tree %s is not a directory", l.Root)
	}
	for _, src := range l.Sources() {
		if _, err := os.Stat(src); err != nil {
			return fmt.Errorf("vendored source %s: %w", src, err)
		}
	}
	return nil
}

func (l Layout) join(rel string) string {
	if rel == "." {
		return filepath.Clean(l.Root)
	}
	return filepath.Join(l.Root, filepath.FromSlash(rel))
}

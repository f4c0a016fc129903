package buildpipeline

import (
	"fmt"
	"io"
)

// LinkDirectives returns the lines telling the invoking build system how to
// link the archive.
func LinkDirectives(prefix, archiveName, outDir string) []string {
	return []string{
		prefix + "rustc-link-lib=static=" + archiveName,
		prefix + "rustc-link-search=native=" + outDir,
	}
}

func writeLinkDirectives(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write link metadata: %w", err)
		}
	}
	return nil
}

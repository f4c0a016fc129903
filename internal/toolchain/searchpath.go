package toolchain

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"secpbuild/internal/buildenv"
)

// SearchPath is an ordered list of directories searched for tools. It is
// passed explicitly to lookups and subprocesses instead of touching the
// process PATH.
type SearchPath []string

// SearchPathFromEnv splits PATH from env. An unset PATH yields an empty list.
func SearchPathFromEnv(env buildenv.Env) SearchPath {
	return ParseSearchPath(buildenv.Get(env, buildenv.VarPath))
}

// ParseSearchPath splits a platform path list.
func ParseSearchPath(list string) SearchPath {
	if list == "" {
		return SearchPath{}
	}
	return SearchPath(filepath.SplitList(list))
}

// Append returns a new SearchPath with dirs after the existing entries.
func (p SearchPath) Append(dirs ...string) SearchPath {
	out := make(SearchPath, 0, len(p)+len(dirs))
	out = append(out, p...)
	return append(out, dirs...)
}

// String joins the entries with the platform list separator.
func (p SearchPath) String() string {
	return strings.Join(p, string(os.PathListSeparator))
}

// Environ returns base with PATH replaced by p.
func (p SearchPath) Environ(base []string) []string {
	out := make([]string, 0, len(base)+1)
	for _, kv := range base {
		if isPathEntry(kv) {
			continue
		}
		out = append(out, kv)
	}
	return append(out, buildenv.VarPath+"="+p.String())
}

func isPathEntry(kv string) bool {
	key, _, ok := strings.Cut(kv, "=")
	if !ok {
		return false
	}
	if runtime.GOOS == "windows" {
		return strings.EqualFold(key, buildenv.VarPath)
	}
	return key == buildenv.VarPath
}

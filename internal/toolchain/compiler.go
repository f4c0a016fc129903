package toolchain

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"secpbuild/internal/buildenv"
	"secpbuild/internal/platform"
)

// ErrCompilerNotFound is returned when no C compiler or archiver can be found
// on the search path.
var ErrCompilerNotFound = errors.New("tool not found on search path")

var (
	defaultCCompilers = []string{"cc", "clang", "gcc"}
	defaultArchivers  = []string{"ar", "llvm-ar"}
)

// Toolchain is the resolved compiler and archiver together with the search
// path they were found on.
type Toolchain struct {
	CC string
	// CCArgs holds extra words from CC, e.g. "clang" in CC="ccache clang".
	CCArgs     []string
	AR         string
	SearchPath SearchPath
}

// Command returns a compiler invocation with args appended to CCArgs.
func (tc Toolchain) Command(args ...string) Command {
	full := make([]string, 0, len(tc.CCArgs)+len(args))
	full = append(full, tc.CCArgs...)
	full = append(full, args...)
	return Command{Name: tc.CC, Args: full, Path: tc.SearchPath}
}

// Archive returns an archiver invocation.
func (tc Toolchain) Archive(args ...string) Command {
	return Command{Name: tc.AR, Args: args, Path: tc.SearchPath}
}

// Find resolves the compiler and archiver for desc on path.
func Find(desc platform.Descriptor, env buildenv.Env, path SearchPath) (Toolchain, error) {
	tc := Toolchain{SearchPath: path}

	if v, ok := buildenv.TargetScoped(env, buildenv.VarCC, desc.Triple); ok {
		words := strings.Fields(v)
		cc, err := LookPath(words[0], path)
		if err != nil {
			return Toolchain{}, err
		}
		tc.CC = cc
		tc.CCArgs = words[1:]
	} else {
		cc, err := lookFirst(compilerCandidates(desc), path)
		if err != nil {
			return Toolchain{}, fmt.Errorf("C compiler for %s: %w", desc.Triple, err)
		}
		tc.CC = cc
	}

	if v, ok := buildenv.TargetScoped(env, buildenv.VarAR, desc.Triple); ok {
		ar, err := LookPath(strings.TrimSpace(v), path)
		if err != nil {
			return Toolchain{}, err
		}
		tc.AR = ar
	} else {
		ar, err := lookFirst(archiverCandidates(desc), path)
		if err != nil {
			return Toolchain{}, fmt.Errorf("archiver for %s: %w", desc.Triple, err)
		}
		tc.AR = ar
	}
	return tc, nil
}

func compilerCandidates(desc platform.Descriptor) []string {
	if desc.IsAndroid() {
		if prefix := crossPrefix(desc.Triple); prefix != "" {
			return []string{prefix + "-gcc", prefix + "-clang"}
		}
	}
	return defaultCCompilers
}

func archiverCandidates(desc platform.Descriptor) []string {
	if desc.IsAndroid() {
		if prefix := crossPrefix(desc.Triple); prefix != "" {
			return []string{prefix + "-ar"}
		}
	}
	return defaultArchivers
}

func crossPrefix(triple string) string {
	t, err := platform.ParseTriple(triple)
	if err != nil {
		return ""
	}
	return t.CrossPrefix()
}

func lookFirst(names []string, path SearchPath) (string, error) {
	for _, name := range names {
		if found, err := LookPath(name, path); err == nil {
			return found, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrCompilerNotFound, strings.Join(names, ", "))
}

// LookPath finds name in the directories of path. Names containing a path
// separator are checked as given.
func LookPath(name string, path SearchPath) (string, error) {
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		if isExecutable(name) {
			return name, nil
		}
		return "", fmt.Errorf("%w: %s", ErrCompilerNotFound, name)
	}
	for _, dir := range path {
		if dir == "" {
			continue
		}
		for _, candidate := range executableNames(name) {
			full := filepath.Join(dir, candidate)
			if isExecutable(full) {
				return full, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrCompilerNotFound, name)
}

func executableNames(name string) []string {
	if runtime.GOOS == "windows" && filepath.Ext(name) == "" {
		return []string{name + ".exe", name}
	}
	return []string{name}
}

func isExecutable(p string) bool {
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

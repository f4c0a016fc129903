// Package buildenv exposes the environment handed to secpbuild by the invoking
// build system.
package buildenv

import (
	"os"
	"strings"
)

// Variables read by secpbuild.
const (
	// VarTarget holds the target triple. Always required.
	VarTarget = "TARGET"
	// VarNDKHome holds the Android NDK root. Required for android targets.
	VarNDKHome = "NDK_HOME"
	// VarPath is the process search path.
	VarPath = "PATH"
	// VarOutDir is the directory native artifacts are written to.
	VarOutDir = "OUT_DIR"
	// VarCC overrides the C compiler.
	VarCC = "CC"
	// VarAR overrides the archiver.
	VarAR = "AR"
	// VarCFlags holds extra compiler flags.
	VarCFlags = "CFLAGS"
	// VarOptLevel selects the -O level.
	VarOptLevel = "OPT_LEVEL"
)

// Env looks up environment variables.
type Env interface {
	Lookup(key string) (string, bool)
}

// OS reads the real process environment.
type OS struct{}

// Lookup implements Env.
func (OS) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// Map is an in-memory environment, mostly for tests.
type Map map[string]string

// Lookup implements Env.
func (m Map) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Get returns the value of key or "" when unset.
func Get(env Env, key string) string {
	if env == nil {
		return ""
	}
	v, _ := env.Lookup(key)
	return v
}

// TargetScoped looks up key suffixed with the target triple first
// (CC_aarch64_linux_android), then key itself.
func TargetScoped(env Env, key, triple string) (string, bool) {
	if env == nil {
		return "", false
	}
	if triple != "" {
		scoped := key + "_" + strings.ReplaceAll(triple, "-", "_")
		if v, ok := env.Lookup(scoped); ok && strings.TrimSpace(v) != "" {
			return v, true
		}
	}
	v, ok := env.Lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

package buildpipeline

import (
	"sort"
	"strings"

	"secpbuild/internal/buildenv"
	"secpbuild/internal/platform"
	"secpbuild/internal/toolchain"
)

// Macro names selected by the 128-bit probe.
const (
	DefineField5x52   = "USE_FIELD_5X52"
	DefineScalar4x64  = "USE_SCALAR_4X64"
	DefineHaveInt128  = "HAVE___INT128"
	DefineField10x26  = "USE_FIELD_10X26"
	DefineScalar8x32  = "USE_SCALAR_8X32"
	defineEnabledFlag = "1"
)

var baselineDefineNames = []string{
	"USE_NUM_NONE",
	"USE_FIELD_INV_BUILTIN",
	"USE_SCALAR_INV_BUILTIN",
	"USE_ENDOMORPHISM",
	"ENABLE_MODULE_ECDH",
	"ENABLE_MODULE_SCHNORR",
	"ENABLE_MODULE_RECOVERY",
}

var (
	wideDefineNames   = []string{DefineField5x52, DefineScalar4x64, DefineHaveInt128}
	narrowDefineNames = []string{DefineField10x26, DefineScalar8x32}
)

// BaselineDefines returns the macros defined on every build.
func BaselineDefines() map[string]string {
	return enabled(baselineDefineNames)
}

// WidthDefines returns the field/scalar macro set for the probe outcome.
// Exactly one of the two sets is ever returned.
func WidthDefines(int128 bool) map[string]string {
	if int128 {
		return enabled(wideDefineNames)
	}
	return enabled(narrowDefineNames)
}

func enabled(names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, name := range names {
		out[name] = defineEnabledFlag
	}
	return out
}

// BaseFlags returns the compiler flags shared by the probe and the real
// build: -O from OPT_LEVEL, -g always, -fPIC unless targeting windows, then
// CFLAGS and extra.
func BaseFlags(desc platform.Descriptor, env buildenv.Env, extra []string) []string {
	var flags []string
	if lvl := strings.TrimSpace(buildenv.Get(env, buildenv.VarOptLevel)); lvl != "" {
		flags = append(flags, "-O"+lvl)
	}
	flags = append(flags, "-g")
	if !desc.IsWindowsTarget() {
		flags = append(flags, "-fPIC")
	}
	if cflags, ok := buildenv.TargetScoped(env, buildenv.VarCFlags, desc.Triple); ok {
		flags = append(flags, strings.Fields(cflags)...)
	}
	return append(flags, extra...)
}

// CompileConfig is everything needed to turn the vendored tree into one
// static archive.
type CompileConfig struct {
	IncludeDirs []string
	Defines     map[string]string
	Flags       []string
	SourceFiles []string
	// OutputName is the archive name without lib prefix or .a suffix.
	OutputName string
}

// ConfigureInput feeds Configure.
type ConfigureInput struct {
	Layout Layout
	// Android is nil unless the target is in the android family.
	Android     *toolchain.Android
	Int128      bool
	Flags       []string
	ArchiveName string
}

// Configure assembles the CompileConfig.
func Configure(in ConfigureInput) CompileConfig {
	includes := in.Layout.IncludeDirs()
	if in.Android != nil && in.Android.IncludeDir != "" {
		includes = append(includes, in.Android.IncludeDir)
	}

	defines := BaselineDefines()
	for k, v := range WidthDefines(in.Int128) {
		defines[k] = v
	}

	name := in.ArchiveName
	if name == "" {
		name = DefaultArchiveName
	}
	return CompileConfig{
		IncludeDirs: includes,
		Defines:     defines,
		Flags:       append([]string(nil), in.Flags...),
		SourceFiles: in.Layout.Sources(),
		OutputName:  name,
	}
}

// DefaultArchiveName is the archive produced when nothing else is configured.
const DefaultArchiveName = "secp256k1"

// ArchiveFileName returns "lib<name>.a".
func (c CompileConfig) ArchiveFileName() string {
	return "lib" + c.OutputName + ".a"
}

// HasDefine reports whether name is defined.
func (c CompileConfig) HasDefine(name string) bool {
	_, ok := c.Defines[name]
	return ok
}

// DefineNames returns the defined macro names sorted.
func (c CompileConfig) DefineNames() []string {
	names := make([]string, 0, len(c.Defines))
	for name := range c.Defines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefineArgs returns -DNAME=VALUE arguments sorted by name.
func (c CompileConfig) DefineArgs() []string {
	names := c.DefineNames()
	args := make([]string, 0, len(names))
	for _, name := range names {
		if v := c.Defines[name]; v != "" {
			args = append(args, "-D"+name+"="+v)
		} else {
			args = append(args, "-D"+name)
		}
	}
	return args
}

// CompileArgs returns the compiler arguments that turn src into obj.
func (c CompileConfig) CompileArgs(src, obj string) []string {
	args := make([]string, 0, len(c.Flags)+len(c.IncludeDirs)+len(c.Defines)+4)
	args = append(args, c.Flags...)
	for _, dir := range c.IncludeDirs {
		args = append(args, "-I", dir)
	}
	args = append(args, c.DefineArgs()...)
	return append(args, "-c", src, "-o", obj)
}

// Package toolchain locates the C compiler and archiver and runs them.
package toolchain

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"secpbuild/internal/buildenv"
	"secpbuild/internal/platform"
)

var (
	// ErrUnknownHostOS is returned when NDK prebuilt directories are needed
	// on a host whose OS family has no NDK naming convention.
	ErrUnknownHostOS = errors.New("unsupported android toolchain host")
	// ErrMissingSDKRoot is returned when NDK_HOME is not set for an android
	// target.
	ErrMissingSDKRoot = errors.New("NDK_HOME is not set")
)

// AndroidArch selects one of the NDK prebuilt toolchains.
type AndroidArch uint8

const (
	// AndroidAArch64 is the 64-bit ARM toolchain.
	AndroidAArch64 AndroidArch = iota
	// AndroidARM is the 32-bit ARM toolchain.
	AndroidARM
	// AndroidX86 is the x86 toolchain.
	AndroidX86
)

// AndroidArches lists the toolchains in the order they join the search path.
var AndroidArches = []AndroidArch{AndroidAArch64, AndroidARM, AndroidX86}

// AndroidIncludeDir is the NDK sub-path holding target headers.
const AndroidIncludeDir = "platforms/android-21/arch-arm64/usr/include"

func (a AndroidArch) toolchainName() string {
	switch a {
	case AndroidAArch64:
		return "aarch64-linux-android-4.9"
	case AndroidARM:
		return "arm-linux-androideabi-4.9"
	case AndroidX86:
		return "x86-4.9"
	default:
		return ""
	}
}

// String returns the NDK toolchain directory name.
func (a AndroidArch) String() string { return a.toolchainName() }

// PrebuiltDir returns the slash-separated NDK-relative bin directory for
// arch on a host of the given OS family.
func PrebuiltDir(os platform.OSFamily, arch AndroidArch) string {
	return "toolchains/" + arch.toolchainName() + "/prebuilt/" + os.String() + "-x86_64/bin"
}

// Android is the output of ResolveAndroid.
type Android struct {
	SDKRoot    string
	SearchPath SearchPath
	// Added holds the NDK directories appended to the base path.
	Added      []string
	IncludeDir string
}

// ResolveAndroid appends the three NDK prebuilt bin directories to base and
// returns the result together with the NDK header directory. base is never
// modified.
func ResolveAndroid(desc platform.Descriptor, env buildenv.Env, base SearchPath) (Android, error) {
	if desc.OS == platform.OSUnknown {
		return Android{}, fmt.Errorf("%w: host OS %s has no NDK prebuilt directory", ErrUnknownHostOS, desc.OS)
	}
	root, ok := env.Lookup(buildenv.VarNDKHome)
	if !ok || strings.TrimSpace(root) == "" {
		return Android{}, ErrMissingSDKRoot
	}
	added := make([]string, 0, len(AndroidArches))
	for _, arch := range AndroidArches {
		added = append(added, joinSDK(root, PrebuiltDir(desc.OS, arch)))
	}
	return Android{
		SDKRoot:    root,
		SearchPath: base.Append(added...),
		Added:      added,
		IncludeDir: joinSDK(root, AndroidIncludeDir),
	}, nil
}

func joinSDK(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

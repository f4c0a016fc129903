// Package platform resolves the build host and the target the native library
// is compiled for.
package platform

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"secpbuild/internal/buildenv"
)

// ErrMissingEnv reports a mandatory environment variable that is not set.
var ErrMissingEnv = errors.New("mandatory environment variable is not set")

// OSFamily is the closed set of host operating systems the toolchain layout
// knows about.
type OSFamily uint8

const (
	// OSUnknown is any host outside darwin, linux and windows.
	OSUnknown OSFamily = iota
	// OSDarwin is macOS.
	OSDarwin
	// OSLinux is Linux.
	OSLinux
	// OSWindows is Windows.
	OSWindows
)

// String returns the name used inside NDK prebuilt directory names.
func (f OSFamily) String() string {
	switch f {
	case OSDarwin:
		return "darwin"
	case OSLinux:
		return "linux"
	case OSWindows:
		return "windows"
	default:
		return "unknown"
	}
}

// FamilyFromGOOS maps a GOOS value onto OSFamily. android, ios and the BSDs
// fall into OSUnknown.
func FamilyFromGOOS(goos string) OSFamily {
	switch goos {
	case "darwin":
		return OSDarwin
	case "linux":
		return OSLinux
	case "windows":
		return OSWindows
	default:
		return OSUnknown
	}
}

// PointerWidth is the native word size in bits.
type PointerWidth uint8

const (
	// Width32 is a 32-bit word.
	Width32 PointerWidth = 32
	// Width64 is a 64-bit word.
	Width64 PointerWidth = 64
)

// Is64 reports whether w is a 64-bit width.
func (w PointerWidth) Is64() bool { return w == Width64 }

// String returns "32-bit" or "64-bit".
func (w PointerWidth) String() string {
	return strconv.Itoa(int(w)) + "-bit"
}

// Host describes the machine secpbuild itself runs on.
type Host struct {
	GOOS         string
	PointerWidth PointerWidth
}

// CurrentHost returns the host secpbuild was compiled for.
func CurrentHost() Host {
	return Host{GOOS: runtime.GOOS, PointerWidth: hostPointerWidth(strconv.IntSize)}
}

func hostPointerWidth(bits int) PointerWidth {
	if bits == 64 {
		return Width64
	}
	return Width32
}

// Descriptor is resolved once at startup and never mutated.
//
// PointerWidth tracks the build host, not the target: a 64-bit host building
// for a 32-bit target still probes for 128-bit integers.
type Descriptor struct {
	OS           OSFamily
	Triple       string
	PointerWidth PointerWidth
}

// IsAndroid reports whether the target belongs to the android family.
func (d Descriptor) IsAndroid() bool {
	return strings.Contains(d.Triple, "android")
}

// IsWindowsTarget reports whether the target triple names windows.
func (d Descriptor) IsWindowsTarget() bool {
	return strings.Contains(d.Triple, "windows")
}

// Identify builds a Descriptor from host facts and the environment. A missing
// TARGET is fatal.
func Identify(host Host, env buildenv.Env) (Descriptor, error) {
	triple, ok := env.Lookup(buildenv.VarTarget)
	triple = strings.TrimSpace(triple)
	if !ok || triple == "" {
		return Descriptor{}, fmt.Errorf("%s: %w", buildenv.VarTarget, ErrMissingEnv)
	}
	width := host.PointerWidth
	if width != Width32 && width != Width64 {
		width = Width32
	}
	return Descriptor{
		OS:           FamilyFromGOOS(host.GOOS),
		Triple:       triple,
		PointerWidth: width,
	}, nil
}

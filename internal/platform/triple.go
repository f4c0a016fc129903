package platform

import (
	"fmt"
	"strings"
)

// Triple is a target triple split into its components. Vendor and ABI may be
// empty.
type Triple struct {
	Arch   string
	Vendor string
	OS     string
	ABI    string
}

// ParseTriple splits s. It accepts arch-os, arch-vendor-os, arch-linux-abi and
// arch-vendor-os-abi forms.
func ParseTriple(s string) (Triple, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	for _, p := range parts {
		if p == "" {
			return Triple{}, fmt.Errorf("parse triple %q: empty component", s)
		}
	}
	switch {
	case len(parts) < 2:
		return Triple{}, fmt.Errorf("parse triple %q: not enough hyphen-separated components", s)
	case len(parts) == 2:
		return Triple{Arch: parts[0], OS: parts[1]}, nil
	case len(parts) == 3 && parts[1] == "linux":
		return Triple{Arch: parts[0], OS: parts[1], ABI: parts[2]}, nil
	case len(parts) == 3:
		return Triple{Arch: parts[0], Vendor: parts[1], OS: parts[2]}, nil
	case len(parts) == 4:
		return Triple{Arch: parts[0], Vendor: parts[1], OS: parts[2], ABI: parts[3]}, nil
	default:
		return Triple{}, fmt.Errorf("parse triple %q: too many hyphen-separated components", s)
	}
}

// String reassembles the triple.
func (t Triple) String() string {
	parts := []string{t.Arch}
	if t.Vendor != "" {
		parts = append(parts, t.Vendor)
	}
	parts = append(parts, t.OS)
	if t.ABI != "" {
		parts = append(parts, t.ABI)
	}
	return strings.Join(parts, "-")
}

// CrossPrefix returns the GNU tool prefix for the triple, e.g.
// "arm-linux-androideabi" for "armv7-linux-androideabi".
func (t Triple) CrossPrefix() string {
	out := t
	if strings.HasPrefix(out.Arch, "armv7") || out.Arch == "thumbv7neon" {
		out.Arch = "arm"
	}
	return out.String()
}

// TargetPointerWidth guesses the pointer width of the target from its
// architecture. ok is false for architectures it does not know.
func TargetPointerWidth(triple string) (PointerWidth, bool) {
	t, err := ParseTriple(triple)
	if err != nil {
		return 0, false
	}
	arch := t.Arch
	switch {
	case arch == "x86_64", arch == "aarch64", arch == "arm64", arch == "powerpc64",
		arch == "powerpc64le", arch == "riscv64gc", arch == "s390x", arch == "sparc64",
		arch == "mips64", arch == "mips64el", arch == "wasm64", arch == "loongarch64":
		return Width64, true
	case arch == "x86", arch == "wasm32", arch == "mips", arch == "mipsel", arch == "powerpc",
		strings.HasPrefix(arch, "i") && strings.HasSuffix(arch, "86"),
		strings.HasPrefix(arch, "arm"), strings.HasPrefix(arch, "thumb"),
		strings.HasPrefix(arch, "riscv32"):
		return Width32, true
	default:
		return 0, false
	}
}

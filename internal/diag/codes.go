package diag

import "fmt"

// Code is a stable numeric identifier for a diagnostic.
type Code uint16

const (
	UnknownCode Code = 0

	// Capability probe
	ProbeWidth64        Code = 1001
	ProbeFallback32     Code = 1002
	ProbeSkippedNon64   Code = 1003
	ProbeSandboxCleanup Code = 1004

	// Toolchain
	ToolchainNDKPath    Code = 2001
	ToolchainCrossWidth Code = 2002

	// Build
	BuildRecord Code = 3001
)

var codeNames = map[Code]string{
	UnknownCode:         "unknown",
	ProbeWidth64:        "probe-64bit",
	ProbeFallback32:     "probe-fallback-32bit",
	ProbeSkippedNon64:   "probe-skipped",
	ProbeSandboxCleanup: "probe-cleanup",
	ToolchainNDKPath:    "toolchain-ndk-path",
	ToolchainCrossWidth: "toolchain-cross-width",
	BuildRecord:         "build-record",
}

// ID returns the code as "SB1002".
func (c Code) ID() string {
	return fmt.Sprintf("SB%04d", uint16(c))
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return c.ID()
}

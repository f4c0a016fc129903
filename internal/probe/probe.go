// Package probe checks whether the C toolchain supports 128-bit integers.
package probe

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"secpbuild/internal/diag"
	"secpbuild/internal/platform"
	"secpbuild/internal/toolchain"
	"secpbuild/internal/trace"
)

//go:embed native/check_uint128_t.c
var int128Source []byte

// SourceName is the file name of the probe translation unit.
const SourceName = "check_uint128_t.c"

// Messages printed to the operator.
const (
	Msg64Bit    = "Compiling in 64-bit mode."
	MsgFallback = "Compiling in 32-bit mode on a 64-bit architecture due to lack of uint128_t support."
	MsgNot64Bit = "Compiling NOT in 64-bit mode."
)

// Request configures a probe run.
type Request struct {
	Descriptor platform.Descriptor
	Toolchain  toolchain.Toolchain
	// Flags are the base compiler flags of the real build.
	Flags    []string
	Runner   toolchain.Runner
	Reporter diag.Reporter
	// SandboxParent is where the throwaway directory is created; "" uses the
	// system temp dir.
	SandboxParent string
}

// Result describes the outcome of a probe.
type Result struct {
	Int128 bool
	// Attempted is false when the host is not 64-bit.
	Attempted bool
	// Err is the absorbed compile error, if any.
	Err error
}

// Int128 compiles the probe unit on 64-bit hosts and reports whether it
// succeeded. It never returns an error: every failure degrades to false.
func Int128(ctx context.Context, req Request) Result {
	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopeStage, "probe", trace.ParentID(ctx))

	if !req.Descriptor.PointerWidth.Is64() {
		diag.Info(req.Reporter, diag.ProbeSkippedNon64, MsgNot64Bit)
		span.WithExtra("int128", "false").End("skipped: " + req.Descriptor.PointerWidth.String() + " host")
		return Result{}
	}

	err := compile(ctx, req, span.ID())
	if err != nil {
		diag.Warning(req.Reporter, diag.ProbeFallback32, MsgFallback, err.Error())
		span.WithExtra("int128", "false").End(err.Error())
		return Result{Attempted: true, Err: err}
	}
	diag.Info(req.Reporter, diag.ProbeWidth64, Msg64Bit)
	span.WithExtra("int128", "true").End("")
	return Result{Int128: true, Attempted: true}
}

func compile(ctx context.Context, req Request, parent uint64) (err error) {
	if req.Runner == nil {
		return errors.New("no command runner configured")
	}
	if req.Toolchain.CC == "" {
		return errors.New("no C compiler resolved")
	}
	dir, err := os.MkdirTemp(req.SandboxParent, "secpbuild-probe-*")
	if err != nil {
		return fmt.Errorf("failed to create probe sandbox: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			diag.Warning(req.Reporter, diag.ProbeSandboxCleanup, fmt.Sprintf("failed to remove probe sandbox %s: %v", dir, rmErr))
		}
	}()

	src := filepath.Join(dir, SourceName)
	if err := os.WriteFile(src, int128Source, 0o600); err != nil {
		return fmt.Errorf("failed to write probe source: %w", err)
	}
	obj := filepath.Join(dir, "check_uint128_t.o")

	args := make([]string, 0, len(req.Flags)+4)
	args = append(args, req.Flags...)
	args = append(args, "-c", src, "-o", obj)
	cmd := req.Toolchain.Command(args...)
	cmd.Dir = dir
	trace.Point(trace.FromContext(ctx), trace.ScopeTool, "probe-compile", cmd.String(), parent)
	return req.Runner.Run(ctx, cmd)
}

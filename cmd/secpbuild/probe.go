package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"secpbuild/internal/buildenv"
	"secpbuild/internal/buildpipeline"
	"secpbuild/internal/platform"
	"secpbuild/internal/probe"
	"secpbuild/internal/toolchain"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check whether the target C compiler supports 128-bit integers",
	Long: `Probe resolves the toolchain exactly like build and compiles the 128-bit
integer check in a throwaway directory. It prints the selected width mode and
the width macros to stdout.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		printer, err := newPrinter(cmd)
		if err != nil {
			return err
		}
		cleanup, err := setupTracing(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		env := buildenv.OS{}
		plan, err := buildpipeline.Resolve(cmd.Context(), platform.CurrentHost(), env, printer)
		if err != nil {
			return err
		}
		tc, err := plan.FindToolchain(env)
		if err != nil {
			return err
		}
		res := probe.Int128(cmd.Context(), probe.Request{
			Descriptor:    plan.Descriptor,
			Toolchain:     tc,
			Flags:         buildpipeline.BaseFlags(plan.Descriptor, env, cfg.File.Build.Flags),
			Runner:        toolchain.ExecRunner{},
			Reporter:      printer,
			SandboxParent: os.TempDir(),
		})
		return renderProbe(cmd.OutOrStdout(), res)
	},
}

func renderProbe(out io.Writer, res probe.Result) error {
	mode := "32-bit"
	if res.Int128 {
		mode = "64-bit"
	}
	cfg := buildpipeline.CompileConfig{Defines: buildpipeline.WidthDefines(res.Int128)}
	_, err := fmt.Fprintf(out, "%s\n%s\n", mode, strings.Join(cfg.DefineArgs(), " "))
	return err
}

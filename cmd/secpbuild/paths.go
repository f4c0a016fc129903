package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"secpbuild/internal/buildenv"
	"secpbuild/internal/buildpipeline"
	"secpbuild/internal/platform"
)

var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Print the compiler search path for the current target",
	Long: `Paths prints the search path used to find the compiler, one entry per line.
For android targets it includes the three NDK prebuilt directories. With
--details it also shows the host, target, NDK include dir and resolved tools.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printer, err := newPrinter(cmd)
		if err != nil {
			return err
		}
		env := buildenv.OS{}
		host := platform.CurrentHost()
		plan, err := buildpipeline.Resolve(cmd.Context(), host, env, printer)
		if err != nil {
			return err
		}
		if pathsDetails {
			return renderPlan(cmd.OutOrStdout(), plan, env)
		}
		for _, dir := range plan.SearchPath {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), dir); err != nil {
				return err
			}
		}
		return nil
	},
}

var pathsDetails bool

func init() {
	pathsCmd.Flags().BoolVar(&pathsDetails, "details", false, "also show host, target and resolved tools")
}

func renderPlan(out io.Writer, plan buildpipeline.Plan, env buildenv.Env) error {
	desc := plan.Descriptor
	lines := []string{
		fmt.Sprintf("host:    %s (%s, %s)", platform.HostDescription(), desc.OS, desc.PointerWidth),
		fmt.Sprintf("target:  %s", desc.Triple),
	}
	if plan.Android != nil {
		lines = append(lines, fmt.Sprintf("ndk:     %s", plan.Android.SDKRoot))
		for _, dir := range plan.Android.Added {
			lines = append(lines, fmt.Sprintf("  + %s", dir))
		}
		lines = append(lines, fmt.Sprintf("include: %s", plan.Android.IncludeDir))
	}
	if tc, err := plan.FindToolchain(env); err != nil {
		lines = append(lines, fmt.Sprintf("cc:      (%v)", err))
	} else {
		lines = append(lines, fmt.Sprintf("cc:      %s", tc.CC), fmt.Sprintf("ar:      %s", tc.AR))
	}
	lines = append(lines, "path:")
	for _, dir := range plan.SearchPath {
		lines = append(lines, "  "+dir)
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

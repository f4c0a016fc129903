// Package main implements the secpbuild CLI.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"secpbuild/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "secpbuild",
	Short:         "Build the vendored secp256k1 static library",
	Long:          `secpbuild probes the C toolchain, resolves Android NDK paths and compiles the vendored secp256k1 sources into a static archive.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return applyColorMode(cmd)
	},
}

// main registers subcommands and persistent flags, then executes the root
// command. Any error exits with status 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(pathsCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress informational diagnostics")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().String("config", "", "path to "+configFileName()+" (default: search upwards from the working directory)")
	rootCmd.PersistentFlags().String("trace", "", "write a pipeline trace to this file (- for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-format", "auto", "trace format (auto|text|ndjson)")
	rootCmd.PersistentFlags().Duration("trace-heartbeat", 0, "emit a trace heartbeat at this interval (0 disables)")

	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"secpbuild/internal/buildenv"
	"secpbuild/internal/buildpipeline"
	"secpbuild/internal/platform"
	"secpbuild/internal/toolchain"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags]",
	Short: "Compile the vendored secp256k1 sources into a static archive",
	Long: `Build identifies the target from TARGET, resolves the toolchain (adding the
Android NDK directories for android targets), probes for 128-bit integer
support and compiles the vendored sources into lib<archive>.a.

Link directives for the invoking build system are printed to stdout.`,
	Args: cobra.NoArgs,
	RunE: buildExecution,
}

func buildExecution(cmd *cobra.Command, args []string) error {
	outDirFlag, err := cmd.Flags().GetString("out-dir")
	if err != nil {
		return err
	}
	sourceRootFlag, err := cmd.Flags().GetString("source-root")
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	printCommands, err := cmd.Flags().GetBool("print-commands")
	if err != nil {
		return err
	}
	noMetadata, err := cmd.Flags().GetBool("no-metadata")
	if err != nil {
		return err
	}
	noRecord, err := cmd.Flags().GetBool("no-record")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	if jobs < 0 {
		return fmt.Errorf("--jobs must not be negative")
	}

	uiModeValue, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
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
	sourceRoot := cfg.SourceRoot()
	if strings.TrimSpace(sourceRootFlag) != "" {
		sourceRoot = sourceRootFlag
	}
	if !cmd.Flags().Changed("jobs") {
		jobs = cfg.File.Build.Jobs
	}
	printCommands = printCommands || cfg.File.Build.PrintCommands

	runner := toolchain.ExecRunner{}
	if printCommands {
		runner.Echo = cmd.ErrOrStderr()
	}
	req := buildpipeline.Request{
		Host:           platform.CurrentHost(),
		Env:            env,
		SourceRoot:     sourceRoot,
		OutDir:         resolveOutDir(outDirFlag, env, cfg),
		ArchiveName:    cfg.File.Output.Archive,
		Jobs:           jobs,
		ExtraFlags:     cfg.File.Build.Flags,
		Runner:         runner,
		Reporter:       printer,
		MetadataPrefix: cfg.File.Metadata.Prefix,
		NoRecord:       noRecord,
	}
	if cfg.EmitMetadata() && !noMetadata {
		req.Metadata = cmd.OutOrStdout()
	}

	layout := buildpipeline.Layout{Root: sourceRoot}
	files := make([]string, 0, 2)
	for _, src := range layout.Sources() {
		files = append(files, layout.DisplayName(src))
	}

	// echoed commands would tear the progress view
	useTUI := shouldUseTUI(uiModeValue) && !printCommands
	var res buildpipeline.Result
	if useTUI {
		res, err = runBuildWithUI(cmd.Context(), "secpbuild "+filepath.Base(sourceRoot), files, &req)
	} else {
		res, err = buildpipeline.Build(cmd.Context(), &req)
	}
	if showTimings {
		if printErr := printStageTimings(cmd.ErrOrStderr(), res.Timings); printErr != nil {
			return printErr
		}
	}
	if err != nil {
		return err
	}

	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	if !quiet {
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			cwd = ""
		}
		_, fprintfErr := fmt.Fprintf(cmd.ErrOrStderr(), "built %s (%s)\n", formatPathForOutput(cwd, res.ArchivePath), widthSummary(res))
		if fprintfErr != nil {
			return fprintfErr
		}
	}
	return nil
}

func widthSummary(res buildpipeline.Result) string {
	if res.Probe.Int128 {
		return "5x52 field, 4x64 scalar"
	}
	return "10x26 field, 8x32 scalar"
}

func formatPathForOutput(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	if strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

func init() {
	buildCmd.Flags().String("out-dir", "", "directory for the archive and objects (default: $OUT_DIR, then "+buildpipeline.DefaultOutDir+")")
	buildCmd.Flags().String("source-root", "", "vendored secp256k1 tree (default from "+configFileName()+")")
	buildCmd.Flags().IntP("jobs", "j", 1, "number of sources compiled in parallel")
	buildCmd.Flags().Bool("print-commands", false, "echo every compiler and archiver command to stderr")
	buildCmd.Flags().Bool("no-metadata", false, "do not print link directives to stdout")
	buildCmd.Flags().Bool("no-record", false, "do not write the build record")
	buildCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
}

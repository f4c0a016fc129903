package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"secpbuild/internal/buildenv"
	"secpbuild/internal/config"
	"secpbuild/internal/diag"
)

func configFileName() string { return config.FileName }

func applyColorMode(cmd *cobra.Command) error {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		color.NoColor = !isTerminal(os.Stderr) || os.Getenv("NO_COLOR") != ""
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
	return nil
}

// loadConfig honours --config, otherwise searches upwards from the working
// directory and falls back to built-in defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	if strings.TrimSpace(path) != "" {
		return config.Load(path)
	}
	return config.Discover(".")
}

// newPrinter returns the stderr diagnostic printer honouring --quiet.
func newPrinter(cmd *cobra.Command) (*diag.Printer, error) {
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	return diag.NewPrinter(cmd.ErrOrStderr(), quiet), nil
}

// resolveOutDir applies flag, then OUT_DIR, then config. An empty result
// lets the pipeline fall back to its default.
func resolveOutDir(flagValue string, env buildenv.Env, cfg *config.Config) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	if v := strings.TrimSpace(buildenv.Get(env, buildenv.VarOutDir)); v != "" {
		return v
	}
	if cfg != nil {
		return cfg.OutputDir()
	}
	return ""
}

func printError(w io.Writer, err error) {
	if err == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "%s %v\n", diag.SevError.Label(), err)
}

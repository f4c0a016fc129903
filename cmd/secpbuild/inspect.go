package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"secpbuild/internal/buildenv"
	"secpbuild/internal/buildpipeline"
)

var inspectFormat string

var inspectCmd = &cobra.Command{
	Use:   "inspect [dir]",
	Short: "Show how the archive in an output directory was built",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(inspectFormat)
		switch format {
		case "pretty", "json":
			// supported
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", inspectFormat)
		}

		dir := ""
		if len(args) == 1 {
			dir = args[0]
		} else {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			dir = resolveOutDir("", buildenv.OS{}, cfg)
			if dir == "" {
				dir = buildpipeline.DefaultOutDir
			}
		}
		rec, err := buildpipeline.ReadRecord(dir)
		if err != nil {
			return fmt.Errorf("no build record in %s: %w", dir, err)
		}
		if format == "json" {
			return renderRecordJSON(cmd.OutOrStdout(), rec)
		}
		return renderRecordPretty(cmd.OutOrStdout(), rec)
	},
}

type recordPayload struct {
	Target         string            `json:"target"`
	HostOS         string            `json:"host_os"`
	PointerWidth   uint8             `json:"pointer_width"`
	ProbeAttempted bool              `json:"probe_attempted"`
	Int128         bool              `json:"int128"`
	CC             string            `json:"cc"`
	CCArgs         []string          `json:"cc_args,omitempty"`
	AR             string            `json:"ar"`
	NDKPaths       []string          `json:"ndk_paths,omitempty"`
	IncludeDirs    []string          `json:"include_dirs"`
	Defines        map[string]string `json:"defines"`
	Flags          []string          `json:"flags"`
	Sources        []string          `json:"sources"`
	Archive        string            `json:"archive"`
	Jobs           uint16            `json:"jobs"`
	BuiltAt        string            `json:"built_at"`
}

func renderRecordJSON(out io.Writer, rec buildpipeline.Record) error {
	payload := recordPayload{
		Target:         rec.Target,
		HostOS:         rec.HostOS,
		PointerWidth:   rec.PointerWidth,
		ProbeAttempted: rec.ProbeAttempted,
		Int128:         rec.Int128,
		CC:             rec.CC,
		CCArgs:         rec.CCArgs,
		AR:             rec.AR,
		NDKPaths:       rec.NDKPaths,
		IncludeDirs:    rec.IncludeDirs,
		Defines:        rec.Defines,
		Flags:          rec.Flags,
		Sources:        rec.Sources,
		Archive:        rec.Archive,
		Jobs:           rec.Jobs,
		BuiltAt:        rec.BuiltAt.UTC().Format(time.RFC3339),
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

var inspectKeyColor = color.New(color.Bold)

func renderRecordPretty(out io.Writer, rec buildpipeline.Record) error {
	var b strings.Builder
	row := func(key, value string) {
		fmt.Fprintf(&b, "%s %s\n", inspectKeyColor.Sprintf("%-9s", key+":"), value)
	}
	row("archive", rec.Archive)
	row("target", rec.Target)
	row("host", fmt.Sprintf("%s, %d-bit", rec.HostOS, rec.PointerWidth))
	switch {
	case !rec.ProbeAttempted:
		row("int128", "not probed")
	case rec.Int128:
		row("int128", "supported")
	default:
		row("int128", "unsupported")
	}
	row("cc", strings.TrimSpace(rec.CC+" "+strings.Join(rec.CCArgs, " ")))
	row("ar", rec.AR)
	for _, p := range rec.NDKPaths {
		row("ndk", p)
	}
	for _, dir := range rec.IncludeDirs {
		row("include", dir)
	}
	names := make([]string, 0, len(rec.Defines))
	for name := range rec.Defines {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		row("define", name+"="+rec.Defines[name])
	}
	row("flags", strings.Join(rec.Flags, " "))
	for _, src := range rec.Sources {
		row("source", filepath.ToSlash(src))
	}
	row("jobs", fmt.Sprint(rec.Jobs))
	row("built", rec.BuiltAt.Local().Format(time.DateTime))
	_, err := io.WriteString(out, b.String())
	return err
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "pretty", "output format (pretty|json)")
}

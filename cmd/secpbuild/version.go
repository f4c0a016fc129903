package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"secpbuild/internal/platform"
	"secpbuild/internal/version"
)

type versionInfo struct {
	Version   string
	GitCommit string
	BuildDate string
	Host      string
}

type versionOptions struct {
	format   string
	showHash bool
	showDate bool
	showHost bool
}

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	Host      string `json:"host,omitempty"`
}

var (
	versionFormat   string
	versionShowHash bool
	versionShowDate bool
	versionShowHost bool
	versionShowFull bool
)

func init() {
	versionCmd.Flags().BoolVar(&versionShowHash, "hash", false, "include git commit hash")
	versionCmd.Flags().BoolVar(&versionShowDate, "date", false, "include build timestamp")
	versionCmd.Flags().BoolVar(&versionShowHost, "host", false, "include the host description")
	versionCmd.Flags().BoolVar(&versionShowFull, "full", false, "show every recorded bit of build metadata")
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "output format (pretty|json)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show secpbuild version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := versionOptions{
			format:   strings.ToLower(versionFormat),
			showHash: versionShowHash || versionShowFull,
			showDate: versionShowDate || versionShowFull,
			showHost: versionShowHost || versionShowFull,
		}
		switch opts.format {
		case "pretty", "json":
			// supported
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", versionFormat)
		}

		info := collectVersionInfo()
		if opts.format == "json" {
			return renderVersionJSON(cmd.OutOrStdout(), info, opts)
		}
		return renderVersionPretty(cmd.OutOrStdout(), info, opts)
	},
}

func collectVersionInfo() versionInfo {
	v := strings.TrimSpace(version.Version)
	if v == "" {
		v = "dev"
	}
	return versionInfo{
		Version:   v,
		GitCommit: strings.TrimSpace(version.GitCommit),
		BuildDate: strings.TrimSpace(version.BuildDate),
		Host:      platform.HostDescription(),
	}
}

func renderVersionPretty(out io.Writer, info versionInfo, opts versionOptions) error {
	lines := []string{"secpbuild " + version.Colored()}
	if opts.showHash {
		lines = append(lines, "commit: "+valueOrUnknown(info.GitCommit))
	}
	if opts.showDate {
		lines = append(lines, "built:  "+valueOrUnknown(info.BuildDate))
	}
	if opts.showHost {
		lines = append(lines, "host:   "+valueOrUnknown(info.Host))
	}
	_, err := fmt.Fprintln(out, strings.Join(lines, "\n"))
	return err
}

func renderVersionJSON(out io.Writer, info versionInfo, opts versionOptions) error {
	payload := versionPayload{
		Tool:    "secpbuild",
		Version: info.Version,
	}
	if opts.showHash {
		payload.GitCommit = valueOrUnknown(info.GitCommit)
	}
	if opts.showDate {
		payload.BuildDate = valueOrUnknown(info.BuildDate)
	}
	if opts.showHost {
		payload.Host = valueOrUnknown(info.Host)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"secpbuild/internal/buildenv"
	"secpbuild/internal/buildpipeline"
	"secpbuild/internal/config"
	"secpbuild/internal/diag"
	"secpbuild/internal/platform"
	"secpbuild/internal/probe"
	"secpbuild/internal/toolchain"
)

func init() {
	color.NoColor = true
}

func TestReadUIMode(t *testing.T) {
	cases := map[string]uiMode{"": uiModeAuto, "AUTO": uiModeAuto, "on": uiModeOn, " off ": uiModeOff}
	for in, want := range cases {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Fatalf("readUIMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := readUIMode("fancy"); err == nil {
		t.Fatalf("expected error for invalid mode")
	}
	if !shouldUseTUI(uiModeOn) || shouldUseTUI(uiModeOff) {
		t.Fatalf("explicit modes must not consult the terminal")
	}
}

func TestResolveOutDirPrecedence(t *testing.T) {
	cfg := config.Default("/proj")
	cfg.File.Output.Dir = "build/native"
	env := buildenv.Map{"OUT_DIR": "/cargo/out"}

	if got := resolveOutDir("/flag", env, cfg); got != "/flag" {
		t.Fatalf("flag: got %q", got)
	}
	if got := resolveOutDir("", env, cfg); got != "/cargo/out" {
		t.Fatalf("env: got %q", got)
	}
	if got := resolveOutDir("", buildenv.Map{}, cfg); got != filepath.Join("/proj", "build", "native") {
		t.Fatalf("config: got %q", got)
	}
	if got := resolveOutDir("", buildenv.Map{}, config.Default("/proj")); got != "" {
		t.Fatalf("default: got %q", got)
	}
}

func TestFormatPathForOutput(t *testing.T) {
	root := filepath.Join("/work", "proj")
	if got := formatPathForOutput(root, filepath.Join(root, "target", "native", "libsecp256k1.a")); got != "target/native/libsecp256k1.a" {
		t.Fatalf("got %q", got)
	}
	outside := filepath.Join("/elsewhere", "lib.a")
	if got := formatPathForOutput(root, outside); got != outside {
		t.Fatalf("got %q", got)
	}
}

func TestPrintStageTimings(t *testing.T) {
	var timings buildpipeline.Timings
	timings.Set(buildpipeline.StageProbe, 2*time.Millisecond)
	timings.Set(buildpipeline.StageCompile, 10*time.Millisecond)

	var buf bytes.Buffer
	if err := printStageTimings(&buf, timings); err != nil {
		t.Fatalf("printStageTimings: %v", err)
	}
	want := "probed 2.0 ms\ncompiled 10.0 ms\ntotal 12.0 ms\n"
	if buf.String() != want {
		t.Fatalf("timings = %q, want %q", buf.String(), want)
	}
}

func sampleRecord() buildpipeline.Record {
	return buildpipeline.Record{
		Target:         "aarch64-linux-android",
		HostOS:         "linux",
		PointerWidth:   64,
		ProbeAttempted: true,
		Int128:         true,
		CC:             "/ndk/bin/aarch64-linux-android-gcc",
		AR:             "/ndk/bin/aarch64-linux-android-ar",
		NDKPaths:       []string{"/ndk/toolchains/aarch64-linux-android-4.9/prebuilt/linux-x86_64/bin"},
		IncludeDirs:    []string{"depend/secp256k1", "depend/secp256k1/include"},
		Defines:        map[string]string{"USE_FIELD_5X52": "1", "HAVE___INT128": "1"},
		Flags:          []string{"-g", "-fPIC"},
		Sources:        []string{"contrib/lax_der_parsing.c", "src/ext.c"},
		Archive:        "/out/libsecp256k1.a",
		Jobs:           1,
		BuiltAt:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestRenderRecordJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := renderRecordJSON(&buf, sampleRecord()); err != nil {
		t.Fatalf("renderRecordJSON: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["target"] != "aarch64-linux-android" || got["int128"] != true || got["built_at"] != "2026-01-02T03:04:05Z" {
		t.Fatalf("payload = %v", got)
	}
}

func TestRenderRecordPretty(t *testing.T) {
	var buf bytes.Buffer
	if err := renderRecordPretty(&buf, sampleRecord()); err != nil {
		t.Fatalf("renderRecordPretty: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"archive:  /out/libsecp256k1.a",
		"int128:   supported",
		"define:   HAVE___INT128=1",
		"source:   src/ext.c",
		"ndk:      /ndk/toolchains/",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Index(out, "HAVE___INT128") > strings.Index(out, "USE_FIELD_5X52") {
		t.Fatalf("defines not sorted:\n%s", out)
	}
}

func TestRenderVersion(t *testing.T) {
	info := versionInfo{Version: "0.1.0", GitCommit: "abc123", Host: "Linux 6.1 x86_64"}
	var buf bytes.Buffer
	if err := renderVersionJSON(&buf, info, versionOptions{format: "json", showHash: true, showDate: true}); err != nil {
		t.Fatalf("renderVersionJSON: %v", err)
	}
	var got versionPayload
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Tool != "secpbuild" || got.GitCommit != "abc123" || got.BuildDate != "unknown" || got.Host != "" {
		t.Fatalf("payload = %+v", got)
	}
}

func TestRenderPlan(t *testing.T) {
	empty := t.TempDir()
	plan := buildpipeline.Plan{
		Descriptor: platform.Descriptor{OS: platform.OSLinux, Triple: "aarch64-linux-android", PointerWidth: platform.Width64},
		Android: &toolchain.Android{
			SDKRoot:    "/sdk",
			Added:      []string{"/sdk/toolchains/x86-4.9/prebuilt/linux-x86_64/bin"},
			IncludeDir: "/sdk/platforms/android-21/arch-arm64/usr/include",
		},
		SearchPath: toolchain.SearchPath{empty},
	}
	var buf bytes.Buffer
	if err := renderPlan(&buf, plan, buildenv.Map{}); err != nil {
		t.Fatalf("renderPlan: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"target:  aarch64-linux-android", "ndk:     /sdk", "include: /sdk/platforms/android-21", "cc:      (", "  " + empty} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRenderProbe(t *testing.T) {
	var buf bytes.Buffer
	if err := renderProbe(&buf, probe.Result{Int128: true, Attempted: true}); err != nil {
		t.Fatalf("renderProbe: %v", err)
	}
	if buf.String() != "64-bit\n-DHAVE___INT128=1 -DUSE_FIELD_5X52=1 -DUSE_SCALAR_4X64=1\n" {
		t.Fatalf("output = %q", buf.String())
	}
	buf.Reset()
	if err := renderProbe(&buf, probe.Result{}); err != nil {
		t.Fatalf("renderProbe: %v", err)
	}
	if buf.String() != "32-bit\n-DUSE_FIELD_10X26=1 -DUSE_SCALAR_8X32=1\n" {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestHoldDiagnosticsUntilFlush(t *testing.T) {
	var buf bytes.Buffer
	req := buildpipeline.Request{Reporter: diag.NewPrinter(&buf, false)}
	flush := holdDiagnostics(&req)

	diag.Info(req.Reporter, diag.ToolchainNDKPath, "added NDK toolchain directory", "/sdk/bin")
	diag.Warning(req.Reporter, diag.ProbeFallback32, "fallback")
	if buf.Len() != 0 {
		t.Fatalf("diagnostics printed while held: %q", buf.String())
	}

	flush()
	want := "Info: added NDK toolchain directory\n  note: /sdk/bin\nWarning: fallback\n"
	if buf.String() != want {
		t.Fatalf("output = %q, want %q", buf.String(), want)
	}
}

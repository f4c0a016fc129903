package buildpipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"testing"

	"secpbuild/internal/buildenv"
	"secpbuild/internal/diag"
	"secpbuild/internal/platform"
	"secpbuild/internal/toolchain"
)

func TestWidthDefinesAreExclusive(t *testing.T) {
	wide := WidthDefines(true)
	narrow := WidthDefines(false)
	for _, name := range []string{DefineField5x52, DefineScalar4x64, DefineHaveInt128} {
		if wide[name] != "1" {
			t.Fatalf("wide set missing %s: %v", name, wide)
		}
		if _, ok := narrow[name]; ok {
			t.Fatalf("narrow set contains %s", name)
		}
	}
	for _, name := range []string{DefineField10x26, DefineScalar8x32} {
		if narrow[name] != "1" {
			t.Fatalf("narrow set missing %s: %v", name, narrow)
		}
		if _, ok := wide[name]; ok {
			t.Fatalf("wide set contains %s", name)
		}
	}
}

func TestConfigure(t *testing.T) {
	layout := Layout{Root: filepath.Join("depend", "secp256k1")}
	baseline := []string{
		"ENABLE_MODULE_ECDH",
		"ENABLE_MODULE_RECOVERY",
		"ENABLE_MODULE_SCHNORR",
		"USE_ENDOMORPHISM",
		"USE_FIELD_INV_BUILTIN",
		"USE_NUM_NONE",
		"USE_SCALAR_INV_BUILTIN",
	}
	wide := []string{DefineField5x52, DefineScalar4x64, DefineHaveInt128}
	narrow := []string{DefineField10x26, DefineScalar8x32}
	cases := []struct {
		name    string
		int128  bool
		android *toolchain.Android
		width   []string
	}{
		{"wide", true, nil, wide},
		{"narrow", false, nil, narrow},
		{"android", true, &toolchain.Android{IncludeDir: "/ndk/platforms/android-21/arch-arm64/usr/include"}, wide},
		{"android narrow", false, &toolchain.Android{IncludeDir: "/ndk/platforms/android-21/arch-arm64/usr/include"}, narrow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Configure(ConfigureInput{Layout: layout, Android: tc.android, Int128: tc.int128})
			want := append(append([]string(nil), baseline...), tc.width...)
			slices.Sort(want)
			if got := cfg.DefineNames(); !slices.Equal(got, want) {
				t.Fatalf("DefineNames = %v, want %v", got, want)
			}
			for name, v := range cfg.Defines {
				if v != "1" {
					t.Fatalf("%s = %q, want 1", name, v)
				}
			}
			wantIncludes := 3
			if tc.android != nil {
				wantIncludes = 4
				if cfg.IncludeDirs[3] != tc.android.IncludeDir {
					t.Fatalf("android include not last: %v", cfg.IncludeDirs)
				}
			}
			if len(cfg.IncludeDirs) != wantIncludes {
				t.Fatalf("IncludeDirs = %v", cfg.IncludeDirs)
			}
			if len(cfg.SourceFiles) != 2 {
				t.Fatalf("SourceFiles = %v", cfg.SourceFiles)
			}
			if cfg.ArchiveFileName() != "libsecp256k1.a" {
				t.Fatalf("ArchiveFileName = %q", cfg.ArchiveFileName())
			}
		})
	}
}

func TestCompileArgs(t *testing.T) {
	cfg := CompileConfig{
		IncludeDirs: []string{"root", "root/include"},
		Defines:     map[string]string{"B": "1", "A": "1", "C": ""},
		Flags:       []string{"-O2", "-g"},
	}
	got := strings.Join(cfg.CompileArgs("root/src/ext.c", "out/ext.o"), " ")
	want := "-O2 -g -I root -I root/include -DA=1 -DB=1 -DC -c root/src/ext.c -o out/ext.o"
	if got != want {
		t.Fatalf("CompileArgs = %q, want %q", got, want)
	}
}

func TestBaseFlags(t *testing.T) {
	linux := platform.Descriptor{OS: platform.OSLinux, Triple: "x86_64-unknown-linux-gnu"}
	env := buildenv.Map{
		"OPT_LEVEL":                       "3",
		"CFLAGS":                          "-Wall",
		"CFLAGS_x86_64_unknown_linux_gnu": "-march=native -Wextra",
	}
	got := strings.Join(BaseFlags(linux, env, []string{"-DEXTRA"}), " ")
	if got != "-O3 -g -fPIC -march=native -Wextra -DEXTRA" {
		t.Fatalf("BaseFlags = %q", got)
	}

	win := platform.Descriptor{OS: platform.OSWindows, Triple: "x86_64-pc-windows-gnu"}
	got = strings.Join(BaseFlags(win, buildenv.Map{}, nil), " ")
	if got != "-g" {
		t.Fatalf("BaseFlags(windows) = %q", got)
	}
}

func TestObjectName(t *testing.T) {
	layout := Layout{Root: "root"}
	if got := objectName(layout, filepath.Join("root", "contrib", "lax_der_parsing.c")); got != "contrib_lax_der_parsing.o" {
		t.Fatalf("objectName = %q", got)
	}
	if got := objectName(layout, filepath.Join("root", "src", "ext.c")); got != "src_ext.o" {
		t.Fatalf("objectName = %q", got)
	}
}

func TestLinkDirectives(t *testing.T) {
	lines := LinkDirectives("cargo:", "secp256k1", "/out")
	want := []string{"cargo:rustc-link-lib=static=secp256k1", "cargo:rustc-link-search=native=/out"}
	if !slices.Equal(lines, want) {
		t.Fatalf("LinkDirectives = %v", lines)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rec := &Record{Target: "aarch64-linux-android", Int128: true, Defines: map[string]string{"HAVE___INT128": "1"}}
	path, err := WriteRecord(dir, rec)
	if err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	if filepath.Base(path) != RecordFileName {
		t.Fatalf("path = %q", path)
	}
	got, err := ReadRecord(dir)
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if got.Target != rec.Target || !got.Int128 || got.Defines["HAVE___INT128"] != "1" {
		t.Fatalf("ReadRecord = %+v", got)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestResolve(t *testing.T) {
	host := platform.Host{GOOS: "linux", PointerWidth: platform.Width64}
	env := buildenv.Map{"TARGET": "x86_64-unknown-linux-gnu", "PATH": "/usr/bin"}
	plan, err := Resolve(context.Background(), host, env, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if plan.Android != nil || len(plan.SearchPath) != 1 {
		t.Fatalf("plan = %+v", plan)
	}

	if _, err := Resolve(context.Background(), host, buildenv.Map{}, nil); !errors.Is(err, platform.ErrMissingEnv) {
		t.Fatalf("err = %v, want ErrMissingEnv", err)
	}

	bag := diag.NewBag()
	env = buildenv.Map{"TARGET": "armv7-linux-androideabi", "NDK_HOME": "/sdk", "PATH": "/usr/bin"}
	plan, err = Resolve(context.Background(), host, env, diag.BagReporter{Bag: bag})
	if err != nil {
		t.Fatalf("Resolve(android): %v", err)
	}
	if plan.Android == nil || len(plan.SearchPath) != 4 {
		t.Fatalf("android plan = %+v", plan)
	}
	if _, ok := bag.Find(diag.ToolchainCrossWidth); !ok {
		t.Fatalf("expected cross-width note for 32-bit target on 64-bit host")
	}

	env = buildenv.Map{"TARGET": "aarch64-linux-android", "NDK_HOME": "/sdk"}
	unknown := platform.Host{GOOS: "freebsd", PointerWidth: platform.Width64}
	if _, err := Resolve(context.Background(), unknown, env, nil); !errors.Is(err, toolchain.ErrUnknownHostOS) {
		t.Fatalf("err = %v, want ErrUnknownHostOS", err)
	}
}

// fakeRunner creates the file named by -o or the archive named after "crs".
type fakeRunner struct {
	mu    sync.Mutex
	calls []toolchain.Command
	fail  func(toolchain.Command) error
}

func (r *fakeRunner) Run(_ context.Context, cmd toolchain.Command) error {
	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	r.mu.Unlock()
	if r.fail != nil {
		if err := r.fail(cmd); err != nil {
			return err
		}
	}
	out := ""
	for i, arg := range cmd.Args {
		if arg == "-o" && i+1 < len(cmd.Args) {
			out = cmd.Args[i+1]
		}
		if arg == "crs" && i+1 < len(cmd.Args) {
			out = cmd.Args[i+1]
		}
	}
	if out == "" {
		return nil
	}
	return os.WriteFile(out, []byte("obj"), 0o600)
}

func (r *fakeRunner) count(substr string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if strings.Contains(strings.Join(c.Args, " "), substr) {
			n++
		}
	}
	return n
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) OnEvent(evt Event) {
	s.mu.Lock()
	s.events = append(s.events, evt)
	s.mu.Unlock()
}

func writeExecutable(t *testing.T, dir, name string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func setupTree(t *testing.T) (root, bin string) {
	t.Helper()
	root = t.TempDir()
	for _, rel := range []string{"include", "src", "contrib"} {
		if err := os.MkdirAll(filepath.Join(root, rel), 0o750); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	for _, rel := range sourceRels {
		if err := os.WriteFile(filepath.Join(root, filepath.FromSlash(rel)), []byte("int x;\n"), 0o600); err != nil {
			t.Fatalf("write source: %v", err)
		}
	}
	bin = t.TempDir()
	writeExecutable(t, bin, "cc")
	writeExecutable(t, bin, "ar")
	return root, bin
}

func newRequest(t *testing.T, runner toolchain.Runner, rep diag.Reporter) (*Request, string) {
	t.Helper()
	root, bin := setupTree(t)
	out := t.TempDir()
	return &Request{
		Host:           platform.Host{GOOS: "linux", PointerWidth: platform.Width64},
		Env:            buildenv.Map{"TARGET": "x86_64-unknown-linux-gnu", "PATH": bin},
		SourceRoot:     root,
		OutDir:         out,
		Jobs:           2,
		Runner:         runner,
		Reporter:       rep,
		MetadataPrefix: "cargo:",
	}, out
}

func TestBuildEndToEnd(t *testing.T) {
	runner := &fakeRunner{}
	bag := diag.NewBag()
	req, out := newRequest(t, runner, diag.BagReporter{Bag: bag})
	var meta bytes.Buffer
	req.Metadata = &meta
	sink := &recordingSink{}
	req.Progress = sink

	res, err := Build(context.Background(), req)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !res.Probe.Int128 || !res.Config.HasDefine(DefineHaveInt128) {
		t.Fatalf("expected 64-bit configuration, got %+v", res.Probe)
	}
	if _, ok := bag.Find(diag.ProbeWidth64); !ok {
		t.Fatalf("missing 64-bit info diagnostic")
	}
	if res.ArchivePath != filepath.Join(out, "libsecp256k1.a") {
		t.Fatalf("ArchivePath = %q", res.ArchivePath)
	}
	if _, err := os.Stat(res.ArchivePath); err != nil {
		t.Fatalf("archive missing: %v", err)
	}
	if runner.count("check_uint128_t.c") != 1 || runner.count("crs") != 1 {
		t.Fatalf("unexpected calls: %+v", runner.calls)
	}
	if runner.count("-c "+filepath.Join(req.SourceRoot, "src", "ext.c")) != 1 {
		t.Fatalf("ext.c not compiled: %+v", runner.calls)
	}

	rec, err := ReadRecord(out)
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if rec.Target != "x86_64-unknown-linux-gnu" || !rec.Int128 || rec.Jobs != 2 || len(rec.Sources) != 2 {
		t.Fatalf("record = %+v", rec)
	}

	wantMeta := "cargo:rustc-link-lib=static=secp256k1\ncargo:rustc-link-search=native=" + out + "\n"
	if meta.String() != wantMeta {
		t.Fatalf("metadata = %q, want %q", meta.String(), wantMeta)
	}
	for _, stage := range Stages {
		if !res.Timings.Has(stage) {
			t.Fatalf("missing timing for %s", stage)
		}
	}

	var done int
	for _, evt := range sink.events {
		if evt.File != "" && evt.Stage == StageCompile && evt.Status == StatusDone {
			done++
		}
	}
	if done != 2 {
		t.Fatalf("compile done events = %d, want 2", done)
	}
}

func TestBuildProbeFailureFallsBack(t *testing.T) {
	runner := &fakeRunner{fail: func(cmd toolchain.Command) error {
		if strings.Contains(strings.Join(cmd.Args, " "), "check_uint128_t.c") {
			return &toolchain.CommandError{Name: "cc", Stderr: "unknown type name '__uint128_t'"}
		}
		return nil
	}}
	bag := diag.NewBag()
	req, _ := newRequest(t, runner, diag.BagReporter{Bag: bag})

	res, err := Build(context.Background(), req)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Probe.Int128 || !res.Probe.Attempted {
		t.Fatalf("probe = %+v, want attempted and false", res.Probe)
	}
	if !res.Config.HasDefine(DefineField10x26) || res.Config.HasDefine(DefineHaveInt128) {
		t.Fatalf("defines = %v", res.Config.DefineNames())
	}
	if _, ok := bag.Find(diag.ProbeFallback32); !ok {
		t.Fatalf("missing fallback warning")
	}
}

func TestBuildNarrowHostSkipsProbe(t *testing.T) {
	runner := &fakeRunner{}
	req, _ := newRequest(t, runner, nil)
	req.Host.PointerWidth = platform.Width32

	res, err := Build(context.Background(), req)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Probe.Attempted || runner.count("check_uint128_t.c") != 0 {
		t.Fatalf("probe ran on a 32-bit host")
	}
	if !res.Config.HasDefine(DefineScalar8x32) {
		t.Fatalf("defines = %v", res.Config.DefineNames())
	}
}

func TestBuildCompileFailureIsFatal(t *testing.T) {
	failExt := false
	runner := &fakeRunner{fail: func(cmd toolchain.Command) error {
		if failExt && strings.Contains(strings.Join(cmd.Args, " "), "ext.c") {
			return &toolchain.CommandError{Name: "cc", Stderr: "ext.c:1: error"}
		}
		return nil
	}}
	req, out := newRequest(t, runner, nil)

	// an earlier successful build leaves an archive and record in out
	if _, err := Build(context.Background(), req); err != nil {
		t.Fatalf("first Build: %v", err)
	}
	for _, name := range []string{"libsecp256k1.a", RecordFileName} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Fatalf("%s missing after successful build: %v", name, err)
		}
	}

	failExt = true
	_, err := Build(context.Background(), req)
	if err == nil || !strings.Contains(err.Error(), "failed to compile src/ext.c") {
		t.Fatalf("err = %v", err)
	}
	var cmdErr *toolchain.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("err = %v, want *CommandError in chain", err)
	}
	for _, name := range []string{"libsecp256k1.a", RecordFileName} {
		if _, err := os.Stat(filepath.Join(out, name)); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("%s still present after failed build", name)
		}
	}
}

func TestBuildMissingSourceTree(t *testing.T) {
	req, _ := newRequest(t, &fakeRunner{}, nil)
	req.SourceRoot = filepath.Join(t.TempDir(), "missing")
	if _, err := Build(context.Background(), req); err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("err = %v", err)
	}
}

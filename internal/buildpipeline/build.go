package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fortio.org/safecast"

	"secpbuild/internal/buildenv"
	"secpbuild/internal/diag"
	"secpbuild/internal/platform"
	"secpbuild/internal/probe"
	"secpbuild/internal/toolchain"
	"secpbuild/internal/trace"
)

// DefaultOutDir is used when neither the request nor OUT_DIR names one.
const DefaultOutDir = "target/native"

// Request describes a native build.
type Request struct {
	Host platform.Host
	Env  buildenv.Env

	SourceRoot  string
	OutDir      string
	ArchiveName string
	Jobs        int
	ExtraFlags  []string

	Runner   toolchain.Runner
	Reporter diag.Reporter
	Progress ProgressSink

	// Metadata receives the link directives; nil skips them.
	Metadata       io.Writer
	MetadataPrefix string
	// NoRecord skips writing the build record.
	NoRecord bool
}

// Plan is the resolved target and search path, before any tool is run.
type Plan struct {
	Descriptor platform.Descriptor
	// Android is nil for non-android targets.
	Android    *toolchain.Android
	SearchPath toolchain.SearchPath
}

// FindToolchain locates the compiler and archiver on the plan's search path.
func (p Plan) FindToolchain(env buildenv.Env) (toolchain.Toolchain, error) {
	return toolchain.Find(p.Descriptor, env, p.SearchPath)
}

// Result describes a finished build.
type Result struct {
	Descriptor  platform.Descriptor
	Android     *toolchain.Android
	Toolchain   toolchain.Toolchain
	Probe       probe.Result
	Config      CompileConfig
	ArchivePath string
	RecordPath  string
	Timings     Timings
}

// Resolve identifies the target and, for android targets, extends the search
// path with the NDK toolchain directories. The process environment is never
// modified.
func Resolve(ctx context.Context, host platform.Host, env buildenv.Env, rep diag.Reporter) (plan Plan, err error) {
	span := trace.Begin(trace.FromContext(ctx), trace.ScopeStage, "resolve", trace.ParentID(ctx))
	defer func() {
		if err != nil {
			span.End(err.Error())
			return
		}
		span.WithExtra("os", plan.Descriptor.OS.String()).End(plan.Descriptor.Triple)
	}()

	desc, err := platform.Identify(host, env)
	if err != nil {
		return Plan{}, err
	}
	plan = Plan{Descriptor: desc, SearchPath: toolchain.SearchPathFromEnv(env)}

	if tw, ok := platform.TargetPointerWidth(desc.Triple); ok && tw != desc.PointerWidth {
		diag.Info(rep, diag.ToolchainCrossWidth,
			fmt.Sprintf("target %s is %s but the %s host width selects the field implementation", desc.Triple, tw, desc.PointerWidth))
	}

	if !desc.IsAndroid() {
		return plan, nil
	}
	android, err := toolchain.ResolveAndroid(desc, env, plan.SearchPath)
	if err != nil {
		return Plan{}, err
	}
	for _, dir := range android.Added {
		diag.Info(rep, diag.ToolchainNDKPath, "added NDK toolchain directory", dir)
	}
	plan.Android = &android
	plan.SearchPath = android.SearchPath
	return plan, nil
}

// Build runs the full pipeline: identify, resolve, probe, compile, archive.
func Build(ctx context.Context, req *Request) (Result, error) {
	var result Result
	if req == nil {
		return result, fmt.Errorf("missing build request")
	}
	if req.Runner == nil {
		req.Runner = toolchain.ExecRunner{}
	}
	if req.Env == nil {
		req.Env = buildenv.OS{}
	}

	tr := trace.FromContext(ctx)
	driverSpan := trace.Begin(tr, trace.ScopeDriver, "build", trace.ParentID(ctx))
	ctx = trace.WithSpan(ctx, driverSpan)
	fail := func(stage Stage, files []string, start time.Time, err error) (Result, error) {
		emitStage(req.Progress, files, stage, StatusError, err, time.Since(start))
		trace.Failure(tr, string(stage), err, driverSpan.ID())
		driverSpan.End("failed")
		return result, err
	}

	layout := Layout{Root: req.SourceRoot}
	files := displayNames(layout, layout.Sources())
	emitQueued(req.Progress, files)

	// identify + resolve
	start := time.Now()
	emitStage(req.Progress, nil, StageIdentify, StatusWorking, nil, 0)
	plan, err := Resolve(ctx, req.Host, req.Env, req.Reporter)
	if err != nil {
		return fail(StageIdentify, nil, start, err)
	}
	result.Descriptor = plan.Descriptor
	result.Android = plan.Android
	result.Timings.Set(StageIdentify, time.Since(start))
	emitStage(req.Progress, nil, StageIdentify, StatusDone, nil, time.Since(start))

	start = time.Now()
	emitStage(req.Progress, nil, StageResolve, StatusWorking, nil, 0)
	tc, err := plan.FindToolchain(req.Env)
	if err != nil {
		return fail(StageResolve, nil, start, err)
	}
	if err := layout.Check(); err != nil {
		return fail(StageResolve, nil, start, err)
	}
	result.Toolchain = tc
	result.Timings.Set(StageResolve, time.Since(start))
	emitStage(req.Progress, nil, StageResolve, StatusDone, nil, time.Since(start))

	outDir, err := resolveOutDir(req.OutDir, req.Env)
	if err != nil {
		return fail(StageResolve, nil, start, err)
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return fail(StageResolve, nil, start, fmt.Errorf("failed to create output dir: %w", err))
	}
	// a failed build must not leave the previous archive or record behind
	if err := removeStaleArtifacts(outDir, req.ArchiveName); err != nil {
		return fail(StageResolve, nil, start, err)
	}

	// probe
	start = time.Now()
	emitStage(req.Progress, nil, StageProbe, StatusWorking, nil, 0)
	flags := BaseFlags(plan.Descriptor, req.Env, req.ExtraFlags)
	result.Probe = probe.Int128(ctx, probe.Request{
		Descriptor:    plan.Descriptor,
		Toolchain:     tc,
		Flags:         flags,
		Runner:        req.Runner,
		Reporter:      req.Reporter,
		SandboxParent: outDir,
	})
	result.Timings.Set(StageProbe, time.Since(start))
	emitStage(req.Progress, nil, StageProbe, StatusDone, nil, time.Since(start))

	result.Config = Configure(ConfigureInput{
		Layout:      layout,
		Android:     plan.Android,
		Int128:      result.Probe.Int128,
		Flags:       flags,
		ArchiveName: req.ArchiveName,
	})

	// compile
	start = time.Now()
	stageSpan := trace.Begin(tr, trace.ScopeStage, string(StageCompile), driverSpan.ID())
	objs, err := compileObjects(ctx, compileJob{
		cfg:      result.Config,
		layout:   layout,
		tc:       tc,
		runner:   req.Runner,
		objDir:   filepath.Join(outDir, "obj"),
		jobs:     req.Jobs,
		progress: req.Progress,
		parent:   stageSpan.ID(),
	})
	stageSpan.End("")
	if err != nil {
		trace.Failure(tr, string(StageCompile), err, driverSpan.ID())
		driverSpan.End("failed")
		return result, err
	}
	result.Timings.Set(StageCompile, time.Since(start))

	// archive
	start = time.Now()
	emitStage(req.Progress, files, StageArchive, StatusWorking, nil, 0)
	result.ArchivePath = filepath.Join(outDir, result.Config.ArchiveFileName())
	stageSpan = trace.Begin(tr, trace.ScopeStage, string(StageArchive), driverSpan.ID())
	err = archiveObjects(ctx, tc, req.Runner, result.ArchivePath, objs, stageSpan.ID())
	stageSpan.End("")
	if err != nil {
		return fail(StageArchive, files, start, err)
	}
	result.Timings.Set(StageArchive, time.Since(start))
	emitStage(req.Progress, files, StageArchive, StatusDone, nil, time.Since(start))

	if !req.NoRecord {
		rec := newRecord(req, &result, files)
		path, recErr := WriteRecord(outDir, rec)
		if recErr != nil {
			diag.Warning(req.Reporter, diag.BuildRecord, "failed to write build record", recErr.Error())
		} else {
			result.RecordPath = path
		}
	}

	if req.Metadata != nil {
		lines := LinkDirectives(req.MetadataPrefix, result.Config.OutputName, outDir)
		if err := writeLinkDirectives(req.Metadata, lines); err != nil {
			driverSpan.End("failed")
			return result, err
		}
	}

	driverSpan.WithExtra("int128", fmt.Sprint(result.Probe.Int128)).End(result.ArchivePath)
	return result, nil
}

func resolveOutDir(dir string, env buildenv.Env) (string, error) {
	if strings.TrimSpace(dir) == "" {
		dir = strings.TrimSpace(buildenv.Get(env, buildenv.VarOutDir))
	}
	if dir == "" {
		dir = DefaultOutDir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve output dir: %w", err)
	}
	return abs, nil
}

func removeStaleArtifacts(outDir, archiveName string) error {
	if archiveName == "" {
		archiveName = DefaultArchiveName
	}
	stale := []string{
		filepath.Join(outDir, CompileConfig{OutputName: archiveName}.ArchiveFileName()),
		filepath.Join(outDir, RecordFileName),
	}
	for _, path := range stale {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove stale %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

func displayNames(layout Layout, srcs []string) []string {
	out := make([]string, 0, len(srcs))
	for _, src := range srcs {
		out = append(out, layout.DisplayName(src))
	}
	return out
}

func newRecord(req *Request, res *Result, files []string) *Record {
	jobs, err := safecast.Conv[uint16](max(req.Jobs, 1))
	if err != nil {
		jobs = 0
	}
	rec := &Record{
		Target:         res.Descriptor.Triple,
		HostOS:         res.Descriptor.OS.String(),
		PointerWidth:   uint8(res.Descriptor.PointerWidth),
		ProbeAttempted: res.Probe.Attempted,
		Int128:         res.Probe.Int128,
		CC:             res.Toolchain.CC,
		CCArgs:         res.Toolchain.CCArgs,
		AR:             res.Toolchain.AR,
		IncludeDirs:    res.Config.IncludeDirs,
		Defines:        res.Config.Defines,
		Flags:          res.Config.Flags,
		Sources:        files,
		Archive:        res.ArchivePath,
		Jobs:           jobs,
		BuiltAt:        time.Now().UTC(),
	}
	if res.Android != nil {
		rec.NDKPaths = res.Android.Added
	}
	return rec
}

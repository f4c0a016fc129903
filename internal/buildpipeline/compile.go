package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"secpbuild/internal/toolchain"
	"secpbuild/internal/trace"
)

type compileJob struct {
	cfg      CompileConfig
	layout   Layout
	tc       toolchain.Toolchain
	runner   toolchain.Runner
	objDir   string
	jobs     int
	progress ProgressSink
	parent   uint64
}

// objectName flattens a source path below the tree root into a unique object
// file name: src/ext.c becomes src_ext.o.
func objectName(layout Layout, src string) string {
	rel := layout.DisplayName(src)
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	rel = strings.TrimPrefix(rel, "./")
	return strings.ReplaceAll(rel, "/", "_") + ".o"
}

// compileObjects compiles every source and returns the object paths in source
// order. The first failure cancels outstanding compiles.
func compileObjects(ctx context.Context, job compileJob) ([]string, error) {
	if err := os.MkdirAll(job.objDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create object dir: %w", err)
	}
	limit := job.jobs
	if limit <= 0 {
		limit = 1
	}

	tr := trace.FromContext(ctx)
	objs := make([]string, len(job.cfg.SourceFiles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(limit, max(len(job.cfg.SourceFiles), 1)))

	for i, src := range job.cfg.SourceFiles {
		i, src := i, src
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			name := job.layout.DisplayName(src)
			obj := filepath.Join(job.objDir, objectName(job.layout, src))
			span := trace.Begin(tr, trace.ScopeFile, "file:"+name, job.parent)
			start := time.Now()
			emitFile(job.progress, name, StageCompile, StatusWorking, nil, 0)

			cmd := job.tc.Command(job.cfg.CompileArgs(src, obj)...)
			trace.Point(tr, trace.ScopeTool, "cc", cmd.String(), span.ID())
			if err := job.runner.Run(gctx, cmd); err != nil {
				emitFile(job.progress, name, StageCompile, StatusError, err, time.Since(start))
				span.End("failed")
				return fmt.Errorf("failed to compile %s: %w", name, err)
			}
			emitFile(job.progress, name, StageCompile, StatusDone, nil, time.Since(start))
			span.End("")
			objs[i] = obj
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return objs, nil
}

// archiveObjects packs objs into archivePath with "ar crs", replacing any
// stale archive first.
func archiveObjects(ctx context.Context, tc toolchain.Toolchain, runner toolchain.Runner, archivePath string, objs []string, parent uint64) error {
	if err := os.Remove(archivePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale archive: %w", err)
	}
	args := append([]string{"crs", archivePath}, objs...)
	cmd := tc.Archive(args...)
	trace.Point(trace.FromContext(ctx), trace.ScopeTool, "ar", cmd.String(), parent)
	if err := runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("failed to archive %s: %w", filepath.Base(archivePath), err)
	}
	return nil
}

package main

import (
	"fmt"
	"io"
	"time"

	"secpbuild/internal/buildpipeline"
)

var stageVerbs = map[buildpipeline.Stage]string{
	buildpipeline.StageIdentify: "identified",
	buildpipeline.StageResolve:  "resolved",
	buildpipeline.StageProbe:    "probed",
	buildpipeline.StageCompile:  "compiled",
	buildpipeline.StageArchive:  "archived",
}

func printStageTimings(out io.Writer, timings buildpipeline.Timings) error {
	if out == nil {
		return nil
	}
	for _, stage := range buildpipeline.Stages {
		if !timings.Has(stage) {
			continue
		}
		if _, err := fmt.Fprintf(out, "%s %.1f ms\n", stageVerbs[stage], toMillis(timings.Duration(stage))); err != nil {
			return err
		}
	}
	total := timings.Sum(buildpipeline.Stages...)
	if total > 0 {
		if _, err := fmt.Fprintf(out, "total %.1f ms\n", toMillis(total)); err != nil {
			return err
		}
	}
	return nil
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

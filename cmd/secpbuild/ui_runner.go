package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"secpbuild/internal/buildpipeline"
	"secpbuild/internal/diag"
	"secpbuild/internal/ui"
)

type buildOutcome struct {
	result buildpipeline.Result
	err    error
}

func runBuildWithUI(ctx context.Context, title string, files []string, req *buildpipeline.Request) (buildpipeline.Result, error) {
	if req == nil {
		return buildpipeline.Result{}, fmt.Errorf("missing build request")
	}
	events := make(chan buildpipeline.Event, 256)
	outcomeCh := make(chan buildOutcome, 1)

	reqCopy := *req
	flushDiagnostics := holdDiagnostics(&reqCopy)
	defer flushDiagnostics()

	go func() {
		reqCopy.Progress = buildpipeline.ChannelSink{Ch: events}
		res, err := buildpipeline.Build(ctx, &reqCopy)
		outcomeCh <- buildOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}

// holdDiagnostics redirects req's diagnostics into a bag while the progress
// view owns the terminal. The returned func replays them to the original
// reporter.
func holdDiagnostics(req *buildpipeline.Request) func() {
	target := req.Reporter
	bag := diag.NewBag()
	req.Reporter = diag.BagReporter{Bag: bag}
	return func() {
		bag.ReportTo(target)
	}
}

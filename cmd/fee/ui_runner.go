package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"fee/internal/pipeline"
	"fee/internal/ui"
)

type buildOutcome struct {
	results []pipeline.TargetResult
	err     error
}

func runBuildWithUI(ctx context.Context, title string, names []string, targets []pipeline.Target, jobs int) ([]pipeline.TargetResult, error) {
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan buildOutcome, 1)

	go func() {
		results, err := pipeline.Build(ctx, targets, jobs, pipeline.ChannelSink{Ch: events})
		outcomeCh <- buildOutcome{results: results, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, names, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	// The program may quit early (ctrl+c); drain so Build can finish sending.
	for range events {
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}

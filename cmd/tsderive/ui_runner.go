package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"tsderive/internal/driver"
	"tsderive/internal/expand"
	"tsderive/internal/macro"
	"tsderive/internal/ui"
)

type expandOutcome struct {
	results []driver.FileResult
	err     error
}

// runExpandWithUI runs the expansion on a goroutine and renders its events
// until the event channel is closed.
func runExpandWithUI(ctx context.Context, title string, files []string, p *expand.Pipeline, reg *macro.Registry, opts driver.Options) ([]driver.FileResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan expandOutcome, 1)

	go func() {
		runOpts := opts
		runOpts.Sink = driver.NewChannelSink(events)
		res, err := driver.ExpandFiles(ctx, p, reg, files, runOpts)
		outcomeCh <- expandOutcome{results: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout), tea.WithContext(ctx))
	_, uiErr := program.Run()
	// The view may quit before the run ends; stop the run and keep the
	// sink from blocking.
	cancel()
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil && outcome.err == nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}

// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/pipeframe/internal/progress"
)

// Work is the run driven by the TUI. It must honour ctx cancellation.
type Work func(ctx context.Context, reporter progress.Reporter) error

// Runner manages the TUI application and progress event integration.
type Runner struct {
	model    *Model
	program  *tea.Program
	reporter *Reporter
	mutex    sync.Mutex
}

// Reporter implements progress.Reporter and forwards events to the TUI.
type Reporter struct {
	program *tea.Program
	closed  bool
	mutex   sync.RWMutex
}

// NewReporter creates a reporter that sends events to program.
func NewReporter(program *tea.Program) *Reporter {
	return &Reporter{
		program: program,
	}
}

// Report implements progress.Reporter.
func (tr *Reporter) Report(event progress.Event) {
	tr.mutex.RLock()
	defer tr.mutex.RUnlock()

	if tr.closed || tr.program == nil {
		return
	}

	tr.program.Send(ProgressEventMsg{Event: event})
}

// Close implements progress.Reporter.
func (tr *Reporter) Close() {
	tr.mutex.Lock()
	defer tr.mutex.Unlock()

	tr.closed = true
}

// RunnerOption configures a Runner.
type RunnerOption func(*runnerConfig)

type runnerConfig struct {
	exitOnDone bool
	options    []tea.ProgramOption
}

// WithExitOnDone closes the TUI as soon as the run finishes.
func WithExitOnDone() RunnerOption {
	return func(c *runnerConfig) {
		c.exitOnDone = true
	}
}

// WithProgramOptions replaces the default bubbletea program options.
func WithProgramOptions(opts ...tea.ProgramOption) RunnerOption {
	return func(c *runnerConfig) {
		c.options = opts
	}
}

// NewRunner creates a new TUI runner. By default it uses the alternate screen.
func NewRunner(opts ...RunnerOption) *Runner {
	cfg := &runnerConfig{
		options: []tea.ProgramOption{tea.WithAltScreen()},
	}

	for _, o := range opts {
		o(cfg)
	}

	model := NewModel()
	model.ExitOnDone = cfg.exitOnDone

	program := tea.NewProgram(model, cfg.options...)

	return &Runner{
		model:    model,
		program:  program,
		reporter: NewReporter(program),
	}
}

// Reporter returns the progress reporter feeding this TUI.
func (r *Runner) Reporter() progress.Reporter {
	return r.reporter
}

// Run starts the TUI and executes work with the TUI's reporter.
// Quitting the TUI before work has finished cancels work and waits for it.
// The error of work takes precedence over a TUI error.
func (r *Runner) Run(ctx context.Context, work Work) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workDone := make(chan error, 1)

	go func() {
		workDone <- work(workCtx, r.reporter)
	}()

	tuiDone := make(chan error, 1)

	go func() {
		_, err := r.program.Run()
		tuiDone <- err
	}()

	var workErr, tuiErr error

	select {
	case workErr = <-workDone:
		// notify the TUI and wait for the user to leave it
		r.program.Send(RunDoneMsg{Err: workErr})

		select {
		case tuiErr = <-tuiDone:
		case <-ctx.Done():
			r.program.Quit()

			tuiErr = <-tuiDone
		}

		r.reporter.Close()

	case tuiErr = <-tuiDone:
		r.reporter.Close()
		cancel()

		workErr = <-workDone

	case <-ctx.Done():
		// work sees the same cancellation; let it wind down before leaving the TUI
		workErr = <-workDone

		r.reporter.Close()
		r.program.Quit()

		tuiErr = <-tuiDone
	}

	if workErr != nil {
		return workErr
	}

	return tuiErr
}

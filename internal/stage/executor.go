// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package stage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/matt-FFFFFF/pipeframe/internal/ctxlog"
	"github.com/matt-FFFFFF/pipeframe/internal/plan"
	"github.com/matt-FFFFFF/pipeframe/internal/progress"
	"github.com/matt-FFFFFF/pipeframe/internal/runbatch"
)

// ErrPersist is returned when a unit result could not be written to the log store.
var ErrPersist = errors.New("failed to persist unit result")

var now = time.Now

// Persister stores finished units.
type Persister interface {
	Persist(runID, unit string, res *runbatch.UnitResult) error
}

// Executor runs plans.
type Executor struct {
	store    Persister
	opts     runbatch.RunOptions
	out      io.Writer
	reporter progress.Reporter
}

// Option configures an Executor.
type Option func(*Executor)

// WithOutput sets where the console markers are written. The default discards them.
func WithOutput(w io.Writer) Option {
	return func(e *Executor) {
		e.out = w
	}
}

// WithReporter sets the progress reporter.
func WithReporter(r progress.Reporter) Option {
	return func(e *Executor) {
		e.reporter = progress.OrNull(r)
	}
}

// New returns an Executor that persists into store and runs commands with opts.
func New(store Persister, opts runbatch.RunOptions, options ...Option) *Executor {
	e := &Executor{
		store:    store,
		opts:     opts,
		out:      io.Discard,
		reporter: progress.NullReporter{},
	}

	for _, o := range options {
		o(e)
	}

	return e
}

// RunModule executes every stage of p in order under runID.
//
// The returned result is never nil. An error is returned only when a unit could not be
// persisted, in which case execution stops.
func (e *Executor) RunModule(ctx context.Context, p *plan.Plan, runID string) (*ModuleResult, error) {
	ctx = ctxlog.With(ctx, "module", p.Module)

	res := &ModuleResult{
		Module: p.Module,
		RunID:  runID,
		Status: true,
		Start:  now(),
	}

	defer func() { res.End = now() }()

	fmt.Fprintf(e.out, "Module: %s\n", moduleName(p.Module))
	e.report(progress.EventStarted, []string{p.Module}, "", progress.EventData{})

	for _, st := range p.Stages {
		sr, err := e.runStage(ctx, p.Module, runID, st)
		res.add(sr)

		if err != nil {
			e.report(progress.EventFailed, []string{p.Module}, err.Error(), progress.EventData{})
			return res, err
		}

		if sr.Interrupted {
			ctxlog.Warn(ctx, "module interrupted", "stage", st.Name)
			e.report(progress.EventInterrupted, []string{p.Module}, "", progress.EventData{})

			return res, nil
		}
	}

	e.report(finished(res.Status), []string{p.Module}, "", progress.EventData{})

	return res, nil
}

func (e *Executor) runStage(ctx context.Context, module, runID string, st plan.Stage) (*StageResult, error) {
	ctx = ctxlog.With(ctx, "stage", st.Name)
	path := []string{module, st.Name}

	sr := &StageResult{
		Name:   st.Name,
		Status: true,
		Start:  now(),
	}

	defer func() { sr.End = now() }()

	fmt.Fprintf(e.out, "\tStage: %s\n", st.Name)
	e.report(progress.EventStarted, path, "", progress.EventData{})

	if !st.Batch() {
		u, err := e.runUnit(ctx, path, runID, st.Name, st.Commands, "\t\t")
		sr.add(u)

		e.report(finished(sr.Status), path, "", progress.EventData{})

		return sr, err
	}

	total := len(st.Samples)

	for i, s := range st.Samples {
		fmt.Fprintf(e.out, "\t\tSample: %s\n", sampleName(s.ID))

		u, err := e.runUnit(ctx, path, runID, s.ID, s.Commands, "\t\t\t")
		sr.add(u)

		if err != nil || u.Interrupted {
			if u.Interrupted {
				e.report(progress.EventInterrupted, path, "", progress.EventData{})
			}

			return sr, err
		}

		done := i + 1
		remaining := ETA(now().Sub(sr.Start), done, total)

		if done < total {
			fmt.Fprintf(e.out, "\t\tETA: %s (%d/%d samples done)\n",
				runbatch.FormatDuration(remaining, runbatch.PrecisionSecond), done, total)
		}

		e.report(progress.EventProgress, path, "", progress.EventData{
			Remaining: remaining,
			Done:      done,
			Total:     total,
		})
	}

	e.report(finished(sr.Status), path, "", progress.EventData{})

	return sr, nil
}

func (e *Executor) runUnit(
	ctx context.Context, stagePath []string, runID, name string, group plan.Group, indent string,
) (*runbatch.UnitResult, error) {
	path := append(append([]string{}, stagePath...), name)

	e.report(progress.EventStarted, path, "", progress.EventData{Total: len(group)})

	obs := &observer{
		e:      e,
		path:   path,
		indent: indent,
		debug:  e.opts.Debug,
	}

	u := runbatch.RunUnit(ctx, name, group, e.opts, obs)

	if err := e.store.Persist(runID, name, u); err != nil {
		ctxlog.Error(ctx, "could not persist unit", "unit", name, "error", err)
		return u, errors.Join(ErrPersist, fmt.Errorf("unit %s: %w", name, err))
	}

	switch {
	case u.Interrupted:
		e.report(progress.EventInterrupted, path, "", progress.EventData{})
	default:
		e.report(finished(u.Status), path, "", progress.EventData{Elapsed: u.Duration()})
	}

	return u, nil
}

func (e *Executor) report(t progress.EventType, path []string, msg string, data progress.EventData) {
	e.reporter.Report(progress.Event{
		Path:      path,
		Type:      t,
		Message:   msg,
		Timestamp: now(),
		Data:      data,
	})
}

// ETA estimates the time left after done of total units took elapsed in all.
func ETA(elapsed time.Duration, done, total int) time.Duration {
	if done <= 0 || done >= total {
		return 0
	}

	return elapsed / time.Duration(done) * time.Duration(total-done)
}

func finished(ok bool) progress.EventType {
	if ok {
		return progress.EventCompleted
	}

	return progress.EventFailed
}

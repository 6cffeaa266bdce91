// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matt-FFFFFF/pipeframe/internal/ctxlog"
	"github.com/matt-FFFFFF/pipeframe/internal/plan"
)

// TimeoutPolicy decides what happens to the rest of a unit after a command times out.
type TimeoutPolicy string

const (
	// PolicyStop skips the remaining commands of the unit.
	PolicyStop TimeoutPolicy = "stop"
	// PolicyNext carries on with the unit's next command.
	PolicyNext TimeoutPolicy = "next"
)

// DebugLevel selects which captured streams are echoed after each command.
type DebugLevel string

// Debug levels.
const (
	DebugNone   DebugLevel = "none"
	DebugErrors DebugLevel = "errors"
	DebugInfo   DebugLevel = "info"
	DebugAll    DebugLevel = "all"
)

var (
	// ErrTimeoutPolicy is returned for an unknown timeout policy.
	ErrTimeoutPolicy = errors.New("timeout behavior must be stop or next")
	// ErrDebugLevel is returned for an unknown debug level.
	ErrDebugLevel = errors.New("debug level must be none, errors, info or all")
)

// ParseTimeoutPolicy parses stop or next. The empty string is stop.
func ParseTimeoutPolicy(s string) (TimeoutPolicy, error) {
	switch p := TimeoutPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyStop, nil
	case PolicyStop, PolicyNext:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrTimeoutPolicy, s)
	}
}

// ParseDebugLevel parses a debug level. The empty string is none.
func ParseDebugLevel(s string) (DebugLevel, error) {
	switch l := DebugLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case "":
		return DebugNone, nil
	case DebugNone, DebugErrors, DebugInfo, DebugAll:
		return l, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrDebugLevel, s)
	}
}

// ShowStderr reports whether stderr lines are echoed.
func (l DebugLevel) ShowStderr() bool {
	return l == DebugErrors || l == DebugAll
}

// ShowStdout reports whether stdout lines are echoed.
func (l DebugLevel) ShowStdout() bool {
	return l == DebugInfo || l == DebugAll
}

// RunOptions are the per-run settings every command is executed with.
type RunOptions struct {
	TimeoutPolicy TimeoutPolicy
	Debug         DebugLevel
	// Shell overrides DefaultShell.
	Shell []string
	Cwd   string
	Env   map[string]string
}

// Observer is told about each command of a unit as it happens.
type Observer interface {
	CommandStarted(title string)
	CommandFinished(o *Outcome)
	CommandSkipped(title string)
	Heartbeat(title string, elapsed time.Duration, lastLine string)
}

// UnitResult is the outcome of one unit: a flat stage, or one sample of the batch stage.
type UnitResult struct {
	Name     string
	Outcomes []*Outcome
	// Skipped lists commands not run because an earlier one timed out under PolicyStop.
	Skipped []string
	// Status is false when any outcome is not OK or a command was skipped.
	Status bool
	// Interrupted is set when the run was cancelled during this unit.
	Interrupted bool
	Start       time.Time
	End         time.Time
}

// Outcome returns the outcome recorded for title, or nil.
func (u *UnitResult) Outcome(title string) *Outcome {
	for _, o := range u.Outcomes {
		if o.Title == title {
			return o
		}
	}

	return nil
}

// Duration is the wall time of the unit.
func (u *UnitResult) Duration() time.Duration {
	return u.End.Sub(u.Start)
}

// RunUnit runs group in order. obs may be nil.
//
// A TIMEOUT under PolicyStop ends the unit. An INTERRUPTED outcome, or a cancelled ctx
// before a command starts, ends the unit and marks it Interrupted.
func RunUnit(ctx context.Context, name string, group plan.Group, opts RunOptions, obs Observer) *UnitResult {
	logger := ctxlog.Logger(ctx).With("unit", name)
	ctx = ctxlog.New(ctx, logger)

	res := &UnitResult{
		Name:   name,
		Status: true,
		Start:  now(),
	}

	defer func() { res.End = now() }()

	for i, cmd := range group {
		if ctx.Err() != nil {
			logger.Info("run cancelled before command started", "title", cmd.Title)

			res.Interrupted = true
			res.Status = false

			return res
		}

		if obs != nil {
			obs.CommandStarted(cmd.Title)
		}

		oc := &OSCommand{
			Title:       cmd.Title,
			CommandLine: cmd.CommandLine,
			Timeout:     cmd.Timeout,
			Shell:       opts.Shell,
			Cwd:         opts.Cwd,
			Env:         opts.Env,
		}

		if obs != nil {
			title := cmd.Title
			oc.OnHeartbeat = func(elapsed time.Duration, lastLine string) {
				obs.Heartbeat(title, elapsed, lastLine)
			}
		}

		o := oc.Run(ctx)
		res.Outcomes = append(res.Outcomes, o)

		if obs != nil {
			obs.CommandFinished(o)
		}

		if !o.OK() {
			res.Status = false
		}

		switch o.Status {
		case StatusInterrupted:
			res.Interrupted = true
			return res
		case StatusTimeout:
			if opts.TimeoutPolicy == PolicyNext {
				continue
			}

			for _, rest := range group[i+1:] {
				res.Skipped = append(res.Skipped, rest.Title)

				if obs != nil {
					obs.CommandSkipped(rest.Title)
				}
			}

			logger.Info("timeout, skipping rest of unit", "title", o.Title, "skipped", len(res.Skipped))

			return res
		}
	}

	return res
}

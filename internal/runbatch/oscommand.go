// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/matt-FFFFFF/pipeframe/internal/ctxlog"
	"github.com/matt-FFFFFF/pipeframe/internal/linebuffer"
)

const (
	maxBufferSize  = 8 * 1024 * 1024 // 8MB per stream
	lastLineLength = 120
)

var (
	// HeartbeatInterval is how often a running command reports that it is still alive.
	HeartbeatInterval = 10 * time.Second
	// DrainTimeout bounds how long output is read after the process has exited.
	// Grandchildren that escaped the process group can hold the pipes open.
	DrainTimeout = 2 * time.Second

	now = time.Now
)

var (
	// ErrCouldNotStartProcess is returned when the process could not be started.
	ErrCouldNotStartProcess = errors.New("could not start process")
	// ErrFailedToCreatePipe is returned when an operating system pipe could not be created.
	ErrFailedToCreatePipe = errors.New("failed to create pipe")
	// ErrBufferOverflow is returned when a stream exceeded the capture limit.
	ErrBufferOverflow = fmt.Errorf("output exceeds max size of %d bytes", maxBufferSize)
	// ErrOutputNotDrained is returned when output was still open after the process exited.
	ErrOutputNotDrained = errors.New("output still open after process exit")
	// ErrNoShell is returned when the shell is empty.
	ErrNoShell = errors.New("no shell configured")
)

// OSCommand is a single command line run through a shell.
type OSCommand struct {
	Title       string
	CommandLine string
	// Timeout of zero means no limit.
	Timeout time.Duration
	// Shell is the interpreter and its flag, e.g. ["/bin/bash", "-c"]. Empty means DefaultShell.
	Shell []string
	Cwd   string
	Env   map[string]string
	// OnHeartbeat, when set, is called every HeartbeatInterval while the command runs.
	OnHeartbeat func(elapsed time.Duration, lastLine string)
}

// Run starts the command and waits for it to exit, time out or be interrupted by ctx.
// It always returns an Outcome.
func (c *OSCommand) Run(ctx context.Context) *Outcome {
	logger := ctxlog.Logger(ctx).With("title", c.Title)

	out := &Outcome{
		Title:       c.Title,
		CommandLine: c.CommandLine,
		Start:       now(),
	}

	shell := c.Shell
	if len(shell) == 0 {
		shell = DefaultShell()
	}

	if shell[0] == "" {
		return c.notStarted(out, ErrNoShell)
	}

	rOut, wOut, err := os.Pipe()
	if err != nil {
		return c.notStarted(out, errors.Join(ErrFailedToCreatePipe, err))
	}

	rErr, wErr, err := os.Pipe()
	if err != nil {
		closeAll(rOut, wOut)
		return c.notStarted(out, errors.Join(ErrFailedToCreatePipe, err))
	}

	devNull, err := os.Open(os.DevNull)
	if err != nil {
		closeAll(rOut, wOut, rErr, wErr)
		return c.notStarted(out, errors.Join(ErrCouldNotStartProcess, err))
	}

	env := os.Environ()
	for _, k := range slices.Sorted(maps.Keys(c.Env)) {
		env = append(env, k+"="+c.Env[k])
	}

	logger.Debug("starting process", "shell", shell, "command", c.CommandLine, "cwd", c.Cwd)

	ps, err := os.StartProcess(shell[0], append(slices.Clone(shell), c.CommandLine), &os.ProcAttr{
		Dir:   c.Cwd,
		Env:   env,
		Files: []*os.File{devNull, wOut, wErr},
		Sys:   sysProcAttr(),
	})

	// the child has its own copies now
	closeAll(devNull, wOut, wErr)

	if err != nil {
		closeAll(rOut, rErr)
		return c.notStarted(out, errors.Join(ErrCouldNotStartProcess, err))
	}

	logger.Debug("process started", "pid", ps.Pid)

	stdout := linebuffer.New(maxBufferSize)
	stderr := linebuffer.New(maxBufferSize)

	var readers sync.WaitGroup

	readers.Add(2)

	go drain(&readers, stdout, rOut)
	go drain(&readers, stderr, rErr)

	reason := make(chan Status, 1)
	done := make(chan struct{})

	var watchdog sync.WaitGroup

	watchdog.Add(1)

	go func() {
		defer watchdog.Done()

		var deadline <-chan time.Time

		if c.Timeout > 0 {
			t := time.NewTimer(c.Timeout)
			defer t.Stop()

			deadline = t.C
		}

		ticker := time.NewTicker(HeartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-deadline:
				logger.Info("timeout exceeded, killing process group", "timeout", c.Timeout)
				reason <- StatusTimeout

				kill(ctx, ps)

				return
			case <-ctx.Done():
				logger.Info("run cancelled, killing process group")
				reason <- StatusInterrupted

				kill(ctx, ps)

				return
			case <-ticker.C:
				elapsed := now().Sub(out.Start).Round(time.Second)
				last := stdout.LastLine(lastLineLength)

				logger.Debug("still running", "elapsed", elapsed, "last_line", last)

				if c.OnHeartbeat != nil {
					c.OnHeartbeat(elapsed, last)
				}
			}
		}
	}()

	state, waitErr := ps.Wait()
	out.End = now()

	close(done)
	watchdog.Wait()

	drained := make(chan struct{})

	go func() {
		readers.Wait()
		close(drained)
	}()

	var drainErr error

	select {
	case <-drained:
	case <-time.After(DrainTimeout):
		drainErr = ErrOutputNotDrained

		logger.Warn("output pipes still open after exit, closing them")
		closeAll(rOut, rErr)
		<-drained
	}

	closeAll(rOut, rErr)

	out.Duration = out.End.Sub(out.Start)
	out.Stdout = stdout.String()
	out.Stderr = stderr.String()

	if state != nil {
		out.CPUDuration = state.UserTime() + state.SystemTime()
	}

	var killedFor Status

	select {
	case killedFor = <-reason:
	default:
	}

	switch {
	case killedFor == StatusInterrupted:
		out.Status = StatusInterrupted
		out.ExitCode = ExitInterrupted
	case killedFor == StatusTimeout && !(state != nil && state.Exited()):
		out.Status = StatusTimeout
		out.ExitCode = ExitTimeout
	case waitErr != nil:
		out.Status = StatusFail
		out.ExitCode = ExitNotStarted
		out.Err = waitErr
	case state.ExitCode() == 0:
		out.Status = StatusOK
		out.ExitCode = 0
	default:
		out.Status = StatusFail
		out.ExitCode = ExitCode(state.ExitCode())
	}

	if stdout.Truncated() || stderr.Truncated() {
		drainErr = errors.Join(drainErr, ErrBufferOverflow)
	}

	if drainErr != nil {
		out.Err = errors.Join(out.Err, drainErr)
	}

	logger.Debug("process finished",
		"status", out.Status,
		"exit_code", out.ExitCode.String(),
		"duration", out.Duration,
		"stdout_bytes", len(out.Stdout),
		"stderr_bytes", len(out.Stderr),
	)

	return out
}

func (c *OSCommand) notStarted(out *Outcome, err error) *Outcome {
	out.End = now()
	out.Duration = out.End.Sub(out.Start)
	out.Status = StatusFail
	out.ExitCode = ExitNotStarted
	out.Err = err

	return out
}

func drain(wg *sync.WaitGroup, dst io.Writer, src io.Reader) {
	defer wg.Done()

	_, _ = io.Copy(dst, src)
}

func kill(ctx context.Context, ps *os.Process) {
	if err := killGroup(ps); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			ctxlog.Debug(ctx, "process already done", "pid", ps.Pid)
			return
		}

		ctxlog.Error(ctx, "process kill error", "pid", ps.Pid, "error", err)

		return
	}

	ctxlog.Debug(ctx, "process killed", "pid", ps.Pid)
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

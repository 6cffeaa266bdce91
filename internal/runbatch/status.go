// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Status classifies an Outcome.
type Status string

const (
	// StatusOK means the command exited with code 0.
	StatusOK Status = "OK"
	// StatusFail means a non-zero exit code or a failure to start.
	StatusFail Status = "FAIL"
	// StatusTimeout means the command was killed at its deadline.
	StatusTimeout Status = "TIMEOUT"
	// StatusInterrupted means the command was killed because the run was cancelled.
	StatusInterrupted Status = "INTERRUPTED"
)

// ExitCode is a process exit code, or one of the TIMEOUT and INTERRUPTED sentinels.
type ExitCode int

const (
	// ExitTimeout replaces the exit code of a timed out command.
	ExitTimeout ExitCode = math.MinInt32
	// ExitInterrupted replaces the exit code of an interrupted command.
	ExitInterrupted ExitCode = math.MinInt32 + 1
	// ExitNotStarted is used when the process could not be started.
	ExitNotStarted ExitCode = -1
)

// ErrExitCode is returned when an exit code cannot be decoded.
var ErrExitCode = errors.New("exit code must be an integer, TIMEOUT or INTERRUPTED")

// String returns the number, or the sentinel name.
func (e ExitCode) String() string {
	switch e {
	case ExitTimeout:
		return string(StatusTimeout)
	case ExitInterrupted:
		return string(StatusInterrupted)
	default:
		return strconv.Itoa(int(e))
	}
}

// IsSentinel reports whether e stands for TIMEOUT or INTERRUPTED rather than a real code.
func (e ExitCode) IsSentinel() bool {
	return e == ExitTimeout || e == ExitInterrupted
}

// MarshalYAML writes sentinels as their name and real codes as integers.
func (e ExitCode) MarshalYAML() (any, error) {
	if e.IsSentinel() {
		return e.String(), nil
	}

	return int(e), nil
}

// UnmarshalYAML accepts an integer or a sentinel name.
func (e *ExitCode) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case string:
		switch Status(v) {
		case StatusTimeout:
			*e = ExitTimeout
		case StatusInterrupted:
			*e = ExitInterrupted
		default:
			return fmt.Errorf("%w: %q", ErrExitCode, v)
		}
	case uint64:
		*e = ExitCode(v)
	case int64:
		*e = ExitCode(v)
	case int:
		*e = ExitCode(v)
	default:
		return fmt.Errorf("%w: %T", ErrExitCode, raw)
	}

	return nil
}

// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"math"
	"time"
)

// RecordTimeFormat is the layout of start and end times in log records.
const RecordTimeFormat = "02.01.2006 15:04:05"

// Outcome is the result of one command attempt.
type Outcome struct {
	Title       string
	CommandLine string
	Status      Status
	ExitCode    ExitCode
	Start       time.Time
	End         time.Time
	// Duration is the wall clock time from start to exit.
	Duration time.Duration
	// CPUDuration is the user plus system time of the child.
	CPUDuration time.Duration
	Stdout      string
	Stderr      string
	// Err is set when the process could not be started or its output could not be read.
	Err error
}

// OK reports whether the command succeeded.
func (o *Outcome) OK() bool {
	return o.Status == StatusOK
}

// Record is the persisted form of an Outcome in log.yaml.
type Record struct {
	Status         Status   `yaml:"status"`
	StartTime      string   `yaml:"start_time"`
	EndTime        string   `yaml:"end_time"`
	Duration       string   `yaml:"duration"`
	DurationSec    int64    `yaml:"duration_sec"`
	CPUDurationSec float64  `yaml:"cpu_duration_sec"`
	ExitCode       ExitCode `yaml:"exit_code"`
	Error          string   `yaml:"error,omitempty"`
}

// Record converts o to its persisted form.
func (o *Outcome) Record() Record {
	r := Record{
		Status:         o.Status,
		StartTime:      o.Start.Format(RecordTimeFormat),
		EndTime:        o.End.Format(RecordTimeFormat),
		Duration:       FormatDuration(o.Duration, PrecisionSecond),
		DurationSec:    int64(o.Duration / time.Second),
		CPUDurationSec: math.Round(o.CPUDuration.Seconds()*100) / 100,
		ExitCode:       o.ExitCode,
	}

	if o.Err != nil {
		r.Error = o.Err.Error()
	}

	return r
}

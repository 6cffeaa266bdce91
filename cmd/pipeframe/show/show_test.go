// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package show

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/matt-FFFFFF/pipeframe/internal/logstore"
	"github.com/matt-FFFFFF/pipeframe/internal/pipeline"
	"github.com/matt-FFFFFF/pipeframe/internal/runbatch"
	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

const (
	logDir = "/out/Logs/14.03.2025_qc"
	runID  = "qc_14.03.2025_09:30:00"
)

const statusYAML = `
status: false
interrupted: false
invocation: 3f1c
modules:
  qc:
    status: false
    interrupted: false
    run_id: "qc_14.03.2025_09:30:00"
    start_time: 14.03.2025 09:30:00
    end_time: 14.03.2025 09:30:02
    duration: 2s
    stages:
      before_batch:
        status: false
        units:
          before_batch:
            status: false
            duration: 2s
            commands:
              greet: 0
              check: 3
`

func setup(t *testing.T) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	stubs := gostub.StubFunc(&FsFactory, fs)
	t.Cleanup(stubs.Reset)

	require.NoError(t, afero.WriteFile(fs, filepath.Join(logDir, pipeline.StatusFile), []byte(statusYAML), 0o644))

	store, err := logstore.Open(fs, logDir)
	require.NoError(t, err)

	start := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	unit := &runbatch.UnitResult{
		Name: "before_batch",
		Outcomes: []*runbatch.Outcome{
			{
				Title: "greet", Status: runbatch.StatusOK, Stdout: "hello\nworld\n",
				Start: start, End: start.Add(time.Second), Duration: time.Second,
			},
			{
				Title: "check", Status: runbatch.StatusFail, ExitCode: 3, Stderr: "bad input\n",
				Start: start.Add(time.Second), End: start.Add(2 * time.Second), Duration: time.Second,
			},
		},
	}

	require.NoError(t, store.Persist(runID, "before_batch", unit))

	return fs
}

func load(t *testing.T, fs afero.Fs) (*pipeline.StatusLog, *logstore.Snapshot) {
	t.Helper()

	status, err := pipeline.LoadStatus(fs, logDir)
	require.NoError(t, err)

	snap, err := logstore.Load(fs, logDir)
	require.NoError(t, err)

	return status, snap
}

func TestRender(t *testing.T) {
	status, snap := load(t, setup(t))
	out := new(bytes.Buffer)

	require.NoError(t, render(out, status, snap, renderOptions{}))

	s := out.String()
	assert.Contains(t, s, "Invocation 3f1c: FAIL")
	assert.Contains(t, s, "Module: qc FAIL run qc_14.03.2025_09:30:00, 2s")
	assert.Contains(t, s, "\tStage: before_batch FAIL\n")
	assert.Contains(t, s, "\t\t\tcheck: 3\n")
	assert.Contains(t, s, "\t\t\tgreet: 0\n")
	assert.Contains(t, s, "Record before_batch/check: FAIL exit code 3")
	assert.NotContains(t, s, "STDOUT")
	assert.NotContains(t, s, "STDERR")
}

func TestRender_Streams(t *testing.T) {
	status, snap := load(t, setup(t))
	out := new(bytes.Buffer)

	require.NoError(t, render(out, status, snap, renderOptions{stdout: true, stderr: true}))

	s := out.String()
	assert.Contains(t, s, "\t\tSTDOUT: hello\n\t\tSTDOUT: world\n")
	assert.Contains(t, s, "\t\tSTDERR: bad input\n")
}

func newShowCmd(out io.Writer) *cli.Command {
	return &cli.Command{
		Name: "show",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: logDirArg},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: stdoutFlag},
			&cli.BoolFlag{Name: stderrFlag},
		},
		Action:         actionFunc,
		Writer:         out,
		ErrWriter:      io.Discard,
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}

func TestShowCmd(t *testing.T) {
	setup(t)

	out := new(bytes.Buffer)

	require.NoError(t, newShowCmd(out).Run(context.Background(), []string{"show", "--stderr", logDir}))
	assert.Contains(t, out.String(), "STDERR: bad input")
}

func TestShowCmd_Errors(t *testing.T) {
	setup(t)

	err := newShowCmd(io.Discard).Run(context.Background(), []string{"show"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrNoLogDir.Error())

	err = newShowCmd(io.Discard).Run(context.Background(), []string{"show", "/nowhere"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrReadStatus.Error())
}

// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package show contains the show command, which renders a previous run from its log directory.
package show

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/pipeframe/internal/logstore"
	"github.com/matt-FFFFFF/pipeframe/internal/pipeline"
	"github.com/matt-FFFFFF/pipeframe/internal/runbatch"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
)

const (
	logDirArg  = "logdir"
	stdoutFlag = "stdout"
	stderrFlag = "stderr"
)

var (
	// ErrNoLogDir is returned when no log directory is given.
	ErrNoLogDir = errors.New("please provide a log directory")
	// ErrReadStatus is returned when the status log cannot be read.
	ErrReadStatus = errors.New("failed to read status log")
	// ErrReadLogs is returned when the log stores cannot be read.
	ErrReadLogs = errors.New("failed to read log stores")
)

// FsFactory returns the filesystem log directories are read from.
var FsFactory = func() afero.Fs {
	return afero.NewOsFs()
}

// ShowCmd renders the status and logs of a previous run.
var ShowCmd = &cli.Command{
	Name:  "show",
	Usage: "Show the status of a previous run",
	Description: `Render the status log and the command records of a log directory.
Captured stdout and stderr are included on request.`,
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      logDirArg,
			UsageText: "LOGDIR",
			Config: cli.StringConfig{
				TrimSpace: true,
			},
		},
	},
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:        stdoutFlag,
			Usage:       "Include captured stdout",
			DefaultText: "false",
			OnlyOnce:    true,
		},
		&cli.BoolFlag{
			Name:        stderrFlag,
			Usage:       "Include captured stderr",
			DefaultText: "false",
			OnlyOnce:    true,
		},
	},
	Action: actionFunc,
}

func actionFunc(_ context.Context, cmd *cli.Command) error {
	dir := cmd.StringArg(logDirArg)
	if dir == "" {
		return cli.Exit(ErrNoLogDir.Error(), 1)
	}

	fs := FsFactory()

	status, err := pipeline.LoadStatus(fs, dir)
	if err != nil {
		return cli.Exit(errors.Join(ErrReadStatus, err).Error(), 1)
	}

	snap, err := logstore.Load(fs, dir)
	if err != nil {
		return cli.Exit(errors.Join(ErrReadLogs, err).Error(), 1)
	}

	opts := renderOptions{
		stdout: cmd.Bool(stdoutFlag),
		stderr: cmd.Bool(stderrFlag),
	}

	return render(cmd.Writer, status, snap, opts)
}

type renderOptions struct {
	stdout bool
	stderr bool
}

type styles struct {
	ok, fail, warn, name, faint lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)

	return styles{
		ok:    r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		fail:  r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		warn:  r.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		name:  r.NewStyle().Foreground(lipgloss.Color("12")),
		faint: r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (s styles) status(ok, interrupted bool) string {
	switch {
	case interrupted:
		return s.warn.Render("INTERRUPTED")
	case ok:
		return s.ok.Render("OK")
	default:
		return s.fail.Render("FAIL")
	}
}

// render writes the status log followed by the records of every run in snap.
func render(w io.Writer, status *pipeline.StatusLog, snap *logstore.Snapshot, opts renderOptions) error {
	sty := newStyles(w)

	var b strings.Builder

	fmt.Fprintf(&b, "Invocation %s: %s\n", status.Invocation, sty.status(status.Status, status.Interrupted))

	for _, name := range slices.Sorted(maps.Keys(status.Modules)) {
		m := status.Modules[name]

		fmt.Fprintf(&b, "Module: %s %s %s\n", sty.name.Render(name), sty.status(m.Status, m.Interrupted),
			sty.faint.Render(fmt.Sprintf("run %s, %s", m.RunID, m.Duration)))

		for _, stName := range slices.Sorted(maps.Keys(m.Stages)) {
			st := m.Stages[stName]

			fmt.Fprintf(&b, "\tStage: %s %s\n", stName, sty.status(st.Status, false))

			for _, uName := range slices.Sorted(maps.Keys(st.Units)) {
				u := st.Units[uName]

				fmt.Fprintf(&b, "\t\tUnit: %s %s %s\n", uName, sty.status(u.Status, false), sty.faint.Render(u.Duration))

				for _, title := range slices.Sorted(maps.Keys(u.Commands)) {
					fmt.Fprintf(&b, "\t\t\t%s: %v\n", title, u.Commands[title])
				}
			}
		}

		rec, ok := snap.Log[m.RunID]
		if !ok {
			continue
		}

		renderRecords(&b, sty, m.RunID, rec, snap, opts)
	}

	_, err := io.WriteString(w, b.String())

	return err
}

func renderRecords(b *strings.Builder, sty styles, runID string, rec map[string]map[string]runbatch.Record,
	snap *logstore.Snapshot, opts renderOptions) {
	for _, unit := range slices.Sorted(maps.Keys(rec)) {
		for _, title := range slices.Sorted(maps.Keys(rec[unit])) {
			r := rec[unit][title]

			fmt.Fprintf(b, "\t%s %s/%s: %s exit code %s, %s (cpu %.2fs)\n",
				sty.faint.Render("Record"), unit, title, r.Status, r.ExitCode, r.Duration, r.CPUDurationSec)

			if r.Error != "" {
				fmt.Fprintf(b, "\t\t%s\n", sty.fail.Render("error: "+r.Error))
			}

			if opts.stdout {
				writeText(b, "STDOUT", snap.Stdout[runID][unit][title])
			}

			if opts.stderr {
				writeText(b, "STDERR", snap.Stderr[runID][unit][title])
			}
		}
	}
}

func writeText(b *strings.Builder, label, text string) {
	if text == "" {
		return
	}

	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(b, "\t\t%s: %s\n", label, line)
	}
}

// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package run contains the run and plan commands.
package run

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/pipeframe/cmd/pipeframe/runflags"
	"github.com/matt-FFFFFF/pipeframe/internal/ctxlog"
	"github.com/matt-FFFFFF/pipeframe/internal/pipeline"
	"github.com/matt-FFFFFF/pipeframe/internal/progress"
	"github.com/matt-FFFFFF/pipeframe/internal/tui"
	"github.com/urfave/cli/v3"
)

const (
	demoFlag   = "demo"
	tuiFlag    = "tui"
	cliExitStr = ""
)

// newRunner is replaced in tests.
var newRunner = func() runner {
	return tui.NewRunner()
}

type runner interface {
	Run(ctx context.Context, work tui.Work) error
}

// RunCmd runs the selected modules.
var RunCmd = &cli.Command{
	Name:  "run",
	Usage: "Run modules over the samples in the input directory",
	Description: `Run the selected modules of a configuration.

Each module expands its command templates into a plan, saved as cmd_data_<module>.yaml
in the log directory, then runs its stages in order: before_batch, batch (once per
sample) and after_batch. Every command's output and record is written to the log stores,
and status_log.yaml is updated after each module.

The process exits non-zero when any command did not succeed.`,
	Flags:  runFlags(),
	Action: actionFunc(false),
}

// PlanCmd expands and saves the command plans without running them.
var PlanCmd = &cli.Command{
	Name:  "plan",
	Usage: "Expand and save the command plans without running anything",
	Description: `Expand the command templates of the selected modules for every sample and
write the plans to the log directory. No command is run and no output folder is created.`,
	Flags:  runflags.Flags(),
	Action: actionFunc(true),
}

func runFlags() []cli.Flag {
	return append(runflags.Flags(),
		&cli.BoolFlag{
			Name:        demoFlag,
			Usage:       "Expand and save the command plans without running anything",
			DefaultText: "false",
			OnlyOnce:    true,
		},
		&cli.BoolFlag{
			Name:        tuiFlag,
			Aliases:     []string{"t", "interactive"},
			Usage:       "Run with interactive Terminal User Interface (TUI) showing real-time progress",
			DefaultText: "false",
			OnlyOnce:    true,
		},
	)
}

func actionFunc(demo bool) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		logger := ctxlog.Logger(ctx).With("command", cmd.Name)
		logger.Debug("running command")

		cfg, opts, cleanup, err := runflags.Load(ctx, cmd)
		if err != nil {
			logger.Error(fmt.Sprintf("Failed to load configuration: %s", err.Error()))
			return cli.Exit(cliExitStr, 1)
		}

		defer cleanup()

		opts.Demo = demo || cmd.Bool(demoFlag)

		var sum *pipeline.Summary

		switch {
		case cmd.Bool(tuiFlag) && !opts.Demo:
			logger.Info("Starting interactive TUI mode...")

			buf := new(bytes.Buffer)
			tuiCtx := ctxlog.NewForTUI(ctx, buf)

			err = newRunner().Run(tuiCtx, func(ctx context.Context, reporter progress.Reporter) error {
				var runErr error

				sum, runErr = pipeline.New(cfg, opts, pipeline.WithReporter(reporter)).Run(ctx)

				return runErr
			})

			buf.WriteTo(cmd.ErrWriter) //nolint:errcheck

			if errors.Is(err, tea.ErrInterrupted) {
				err = nil
			}
		default:
			sum, err = pipeline.New(cfg, opts, pipeline.WithOutput(cmd.Writer)).Run(ctx)
		}

		if err != nil {
			if sum != nil && len(sum.Modules) > 0 {
				_ = sum.Render(cmd.Writer)
			}

			logger.Error(fmt.Sprintf("Run failed: %s", err.Error()))

			return cli.Exit(cliExitStr, 1)
		}

		if err := sum.Render(cmd.Writer); err != nil {
			logger.Error(fmt.Sprintf("Failed to write summary: %s", err.Error()))
			return cli.Exit(cliExitStr, 1)
		}

		if !sum.Status {
			return cli.Exit(cliExitStr, 1)
		}

		return nil
	}
}

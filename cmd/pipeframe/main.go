// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main contains the pipeframe command-line interface (CLI).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/matt-FFFFFF/pipeframe"
	"github.com/matt-FFFFFF/pipeframe/cmd/pipeframe/eval"
	"github.com/matt-FFFFFF/pipeframe/cmd/pipeframe/run"
	"github.com/matt-FFFFFF/pipeframe/cmd/pipeframe/show"
	"github.com/matt-FFFFFF/pipeframe/internal/ctxlog"
	"github.com/matt-FFFFFF/pipeframe/internal/signalbroker"
	"github.com/urfave/cli/v3"
)

const logLevelFlag = "log-level"

// rootCmd is the root command for the CLI.
var rootCmd = &cli.Command{
	Commands: []*cli.Command{
		run.RunCmd,
		run.PlanCmd,
		show.ShowCmd,
		eval.EvalCmd,
	},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  logLevelFlag,
			Usage: "Log level: DEBUG, INFO, WARN or ERROR. Overrides the " + ctxlog.EnvName() + " environment variable.",
			Action: func(_ context.Context, _ *cli.Command, v string) error {
				return ctxlog.SetLevel(v)
			},
		},
	},
	Writer:    os.Stdout,
	ErrWriter: os.Stderr,
	Name:      "pipeframe",
	Description: `pipeframe runs config-driven processing pipelines.

A configuration directory declares machines, modules and command templates. Each module
expands its templates for every sample found in the input directory and runs them stage
by stage, recording every command's outcome and output in YAML log stores.`,
	Usage:     "pipeframe run -c CONFIG -m MODULE -i INPUT -o OUTPUT --machine NAME",
	Copyright: "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
	Authors: []any{
		"Matt White (matt-FFFFFF)",
	},
	EnableShellCompletion: true,
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)
	defer cancel()

	sigCh := signalbroker.New(ctx)

	go signalbroker.Watch(ctx, sigCh, cancel)

	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", pipeframe.Version, pipeframe.Commit)

	err := rootCmd.Run(ctx, os.Args) // Err is handled by cli framework

	if ctx.Err() != nil {
		ctxlog.Logger(ctx).Error("command terminated due to cancellation", "error", ctx.Err())
		os.Exit(signalbroker.InterruptedExitCode)
	}

	if err != nil {
		ctxlog.Logger(ctx).Error("command execution failed", "error", err)
		os.Exit(1)
	}

	ctxlog.Logger(ctx).Info("command completed successfully")
}

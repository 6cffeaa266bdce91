// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package runflags holds the flags shared by the commands that load a configuration
// and select modules: run, plan and eval.
package runflags

import (
	"context"
	"errors"

	"github.com/matt-FFFFFF/pipeframe/internal/config"
	"github.com/matt-FFFFFF/pipeframe/internal/ctxlog"
	"github.com/matt-FFFFFF/pipeframe/internal/pipeline"
	"github.com/matt-FFFFFF/pipeframe/internal/runbatch"
	"github.com/urfave/cli/v3"
)

// Flag names.
const (
	ConfigFlag          = "config"
	ModuleFlag          = "module"
	InputFlag           = "input"
	OutputFlag          = "output"
	MachineFlag         = "machine"
	IncludeFlag         = "include"
	ExcludeFlag         = "exclude"
	SubfoldersFlag      = "subfolders"
	TimeoutBehaviorFlag = "timeout-behavior"
	DebugFlag           = "debug"
	SetFlag             = "set"
)

// ErrFlags is returned when flag values cannot be turned into run options.
var ErrFlags = errors.New("invalid flags")

// Flags returns new instances of the shared flags.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    ConfigFlag,
			Aliases: []string{"c"},
			Usage: "Configuration directory holding machines.yaml, modules.yaml, commands.yaml and args.yaml. " +
				"Supports Hashicorp's go-getter syntax for fetching it from remote sources.",
			Required:  true,
			TakesFile: true,
			OnlyOnce:  true,
		},
		&cli.StringSliceFlag{
			Name:    ModuleFlag,
			Aliases: []string{"m"},
			Usage:   "Module to run. Specify multiple times to run several; they run in the configured sequence.",
		},
		&cli.StringFlag{
			Name:      InputFlag,
			Aliases:   []string{"i"},
			Usage:     "Input directory",
			TakesFile: true,
			OnlyOnce:  true,
		},
		&cli.StringFlag{
			Name:      OutputFlag,
			Aliases:   []string{"o"},
			Usage:     "Output directory. Logs are written below it.",
			TakesFile: true,
			OnlyOnce:  true,
		},
		&cli.StringFlag{
			Name:     MachineFlag,
			Usage:    "Machine profile from machines.yaml",
			OnlyOnce: true,
		},
		&cli.StringSliceFlag{
			Name:  IncludeFlag,
			Usage: "Only process samples whose file name contains this substring. May be repeated.",
		},
		&cli.StringSliceFlag{
			Name:  ExcludeFlag,
			Usage: "Skip samples whose file name contains this substring. May be repeated.",
		},
		&cli.BoolFlag{
			Name:        SubfoldersFlag,
			Usage:       "Search the input directory recursively for samples",
			DefaultText: "false",
			OnlyOnce:    true,
		},
		&cli.StringFlag{
			Name:     TimeoutBehaviorFlag,
			Usage:    "What to do with the rest of a unit after a command times out: stop or next",
			Value:    string(runbatch.PolicyStop),
			OnlyOnce: true,
		},
		&cli.StringFlag{
			Name:     DebugFlag,
			Usage:    "Echo captured output after each command: none, errors, info or all",
			Value:    string(runbatch.DebugNone),
			OnlyOnce: true,
		},
		&cli.StringSliceFlag{
			Name:  SetFlag,
			Usage: "Override an args.yaml value, as key=value. May be repeated.",
		},
	}
}

// Options builds the pipeline options from the shared flags.
func Options(cmd *cli.Command) (pipeline.Options, error) {
	policy, err := runbatch.ParseTimeoutPolicy(cmd.String(TimeoutBehaviorFlag))
	if err != nil {
		return pipeline.Options{}, errors.Join(ErrFlags, err)
	}

	debug, err := runbatch.ParseDebugLevel(cmd.String(DebugFlag))
	if err != nil {
		return pipeline.Options{}, errors.Join(ErrFlags, err)
	}

	return pipeline.Options{
		ConfigDir:     cmd.String(ConfigFlag),
		Machine:       cmd.String(MachineFlag),
		Modules:       cmd.StringSlice(ModuleFlag),
		InputDir:      cmd.String(InputFlag),
		OutputDir:     cmd.String(OutputFlag),
		Include:       cmd.StringSlice(IncludeFlag),
		Exclude:       cmd.StringSlice(ExcludeFlag),
		Subfolders:    cmd.Bool(SubfoldersFlag),
		TimeoutPolicy: policy,
		Debug:         debug,
		Sets:          cmd.StringSlice(SetFlag),
	}, nil
}

// Load fetches and loads the configuration named by the config flag and returns it
// with the options. The cleanup function removes anything fetched and is never nil.
func Load(ctx context.Context, cmd *cli.Command) (*config.Config, pipeline.Options, func(), error) {
	noop := func() {}

	opts, err := Options(cmd)
	if err != nil {
		return nil, opts, noop, err
	}

	dir, cleanup, err := config.Fetch(ctx, opts.ConfigDir)
	if err != nil {
		return nil, opts, noop, err
	}

	ctxlog.Debug(ctx, "configuration fetched", "source", opts.ConfigDir, "dir", dir)

	cfg, err := config.Load(ctx, dir)
	if err != nil {
		cleanup()
		return nil, opts, noop, err
	}

	opts.ConfigDir = dir

	return cfg, opts, cleanup, nil
}

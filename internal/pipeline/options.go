// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package pipeline

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/matt-FFFFFF/pipeframe/internal/runbatch"
)

// ErrOptions is returned when the run options are incomplete.
var ErrOptions = errors.New("invalid run options")

// Options are the per-invocation settings.
type Options struct {
	ConfigDir     string
	Machine       string
	Modules       []string
	InputDir      string
	OutputDir     string
	Include       []string
	Exclude       []string
	Subfolders    bool
	TimeoutPolicy runbatch.TimeoutPolicy
	Debug         runbatch.DebugLevel
	// Demo builds and saves plans without running anything.
	Demo bool
	// Sets are key=value overrides of args.yaml.
	Sets []string
}

// Validate reports missing required options.
func (o Options) Validate() error {
	var errs []error

	if o.Machine == "" {
		errs = append(errs, errors.New("machine is required"))
	}

	if len(o.Modules) == 0 {
		errs = append(errs, errors.New("at least one module is required"))
	}

	if o.InputDir == "" {
		errs = append(errs, errors.New("input directory is required"))
	}

	if o.OutputDir == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrOptions, err)
	}

	return nil
}

// namespace returns the effective options as the args namespace, with user args on top.
func (o Options) namespace(user yaml.MapSlice) yaml.MapSlice {
	ns := yaml.MapSlice{
		{Key: "config_dir", Value: o.ConfigDir},
		{Key: "machine", Value: o.Machine},
		{Key: "modules", Value: o.Modules},
		{Key: "input_dir", Value: o.InputDir},
		{Key: "output_dir", Value: o.OutputDir},
		{Key: "include", Value: o.Include},
		{Key: "exclude", Value: o.Exclude},
		{Key: "subfolders", Value: o.Subfolders},
		{Key: "timeout_behavior", Value: string(o.TimeoutPolicy)},
		{Key: "debug", Value: string(o.Debug)},
		{Key: "demo", Value: o.Demo},
	}

	for _, item := range user {
		key := fmt.Sprint(item.Key)
		replaced := false

		for i := range ns {
			if ns[i].Key == key {
				ns[i].Value = item.Value
				replaced = true

				break
			}
		}

		if !replaced {
			ns = append(ns, yaml.MapItem{Key: key, Value: item.Value})
		}
	}

	return ns
}

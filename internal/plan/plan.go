// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package plan

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/pipeframe/internal/expr"
	"github.com/matt-FFFFFF/pipeframe/internal/samples"
	"github.com/spf13/afero"
)

// Reserved stage and group names.
const (
	StageBeforeBatch = "before_batch"
	StageBatch       = "batch"
	StageAfterBatch  = "after_batch"
	GroupSampleLevel = "sample_level"
	// FilenameBasename, when declared, names the sample.
	FilenameBasename = "basename"
)

// DefaultStages is the stage order used when a module declares none.
var DefaultStages = []string{StageBeforeBatch, StageBatch, StageAfterBatch}

var (
	// ErrDuplicateSample is returned when two samples resolve to the same ID.
	ErrDuplicateSample = errors.New("duplicate sample id")
	// ErrEmptySampleID is returned when a sample resolves to an empty ID.
	ErrEmptySampleID = errors.New("empty sample id")
	// ErrSampleStageCollision is returned when a sample ID equals the name of a flat
	// stage of the same module. Both would be the same unit in the log stores.
	ErrSampleStageCollision = errors.New("sample id collides with stage name")
	// ErrWritePlan is returned when the plan file cannot be written.
	ErrWritePlan = errors.New("failed to write command plan")
)

// StageSpec declares one stage: its name and the command keys it runs.
// For the batch stage Keys are the sample_level keys.
type StageSpec struct {
	Name string
	Keys []string
}

// Batch reports whether this is the per-sample stage.
func (s StageSpec) Batch() bool {
	return s.Name == StageBatch
}

// Input is everything Build needs for one module.
type Input struct {
	Module    string
	Stages    []StageSpec
	Vars      *expr.Context
	Templates Templates
	Filenames yaml.MapSlice
	Samples   []samples.Sample
}

// Sample is a discovered sample with its resolved filenames.
type Sample struct {
	ID        string
	Path      string
	Filenames yaml.MapSlice
}

// SampleCommands is the expanded sample_level group of one sample.
type SampleCommands struct {
	Sample
	Commands Group
}

// Stage is one expanded stage. Flat stages use Commands, the batch stage uses Samples.
type Stage struct {
	Name     string
	Commands Group
	Samples  []SampleCommands
}

// Batch reports whether this is the per-sample stage.
func (s Stage) Batch() bool {
	return s.Name == StageBatch
}

// Plan is the fully expanded command plan of a module.
type Plan struct {
	Module string
	Stages []Stage
}

// Build expands every stage of a module. Stages without commands are left out.
func Build(in Input) (*Plan, error) {
	var merr *multierror.Error

	p := &Plan{Module: in.Module}
	units := flatUnits(in.Stages)

	for _, spec := range in.Stages {
		if len(spec.Keys) == 0 {
			continue
		}

		st := Stage{Name: spec.Name}

		if spec.Batch() {
			st.Samples = buildSamples(in, spec.Keys, units, &merr)
		} else {
			st.Commands = expandGroup(in.Vars, spec.Keys, in.Templates, &merr)
		}

		p.Stages = append(p.Stages, st)
	}

	if err := merr.ErrorOrNil(); err != nil {
		return nil, errors.Join(ErrExpansion, fmt.Errorf("module %s: %w", in.Module, err))
	}

	return p, nil
}

// flatUnits returns the names of the flat stages that run as units.
func flatUnits(specs []StageSpec) map[string]bool {
	out := make(map[string]bool, len(specs))

	for _, spec := range specs {
		if !spec.Batch() && len(spec.Keys) > 0 {
			out[spec.Name] = true
		}
	}

	return out
}

func buildSamples(in Input, keys []string, units map[string]bool, merr **multierror.Error) []SampleCommands {
	out := make([]SampleCommands, 0, len(in.Samples))
	seen := make(map[string]string, len(in.Samples))

	for _, src := range in.Samples {
		var ferr *multierror.Error

		filenames := expandFilenames(in.Vars, src.Path, in.Filenames, &ferr)
		if ferr.ErrorOrNil() != nil {
			*merr = multierror.Append(*merr, fmt.Errorf("sample %s: %w", src.Path, ferr))
			continue
		}

		id, ok := lookup(filenames, FilenameBasename)
		if !ok {
			id = src.Name()
		}

		id = filepath.Base(id)

		switch prev, dup := seen[id]; {
		case id == "" || id == "." || id == string(filepath.Separator):
			*merr = multierror.Append(*merr, fmt.Errorf("%w: %s", ErrEmptySampleID, src.Path))
			continue
		case dup:
			*merr = multierror.Append(*merr, fmt.Errorf("%w: %q from %s and %s", ErrDuplicateSample, id, prev, src.Path))
			continue
		case units[id]:
			*merr = multierror.Append(*merr, fmt.Errorf("%w: %q from %s", ErrSampleStageCollision, id, src.Path))
			continue
		}

		seen[id] = src.Path

		vars := in.Vars.With(expr.NamespaceSample, src.Path).With(expr.NamespaceFilenames, toMap(filenames))

		out = append(out, SampleCommands{
			Sample:   Sample{ID: id, Path: src.Path, Filenames: filenames},
			Commands: expandGroup(vars, keys, in.Templates, merr),
		})
	}

	return out
}

// CommandCount returns the number of commands in the plan.
func (p *Plan) CommandCount() int {
	n := 0

	for _, st := range p.Stages {
		n += len(st.Commands)
		for _, s := range st.Samples {
			n += len(s.Commands)
		}
	}

	return n
}

// UnitCount returns the number of units: one per flat stage plus one per sample.
func (p *Plan) UnitCount() int {
	n := 0

	for _, st := range p.Stages {
		if st.Batch() {
			n += len(st.Samples)
		} else {
			n++
		}
	}

	return n
}

func (g Group) mapSlice() yaml.MapSlice {
	ms := make(yaml.MapSlice, 0, len(g))
	for _, c := range g {
		ms = append(ms, yaml.MapItem{
			Key:   c.Title,
			Value: Template{Timeout: int(c.Timeout.Seconds()), Instruction: c.CommandLine},
		})
	}

	return ms
}

// MarshalYAML renders the plan as stage -> title -> command, with the batch stage keyed
// by sample id.
func (p *Plan) MarshalYAML() (any, error) {
	ms := make(yaml.MapSlice, 0, len(p.Stages))

	for _, st := range p.Stages {
		if !st.Batch() {
			ms = append(ms, yaml.MapItem{Key: st.Name, Value: st.Commands.mapSlice()})
			continue
		}

		batch := make(yaml.MapSlice, 0, len(st.Samples))
		for _, s := range st.Samples {
			batch = append(batch, yaml.MapItem{Key: s.ID, Value: yaml.MapSlice{
				{Key: "sample", Value: s.Path},
				{Key: "filenames", Value: s.Filenames},
				{Key: "commands", Value: s.Commands.mapSlice()},
			}})
		}

		ms = append(ms, yaml.MapItem{Key: st.Name, Value: batch})
	}

	return ms, nil
}

// FileName returns the plan file name for a module.
func FileName(module string) string {
	return "cmd_data_" + module + ".yaml"
}

// Save writes the plan to dir/cmd_data_<module>.yaml and returns the path.
func (p *Plan) Save(fsys afero.Fs, dir string) (string, error) {
	path := filepath.Join(dir, FileName(p.Module))

	b, err := yaml.MarshalWithOptions(p, yaml.IndentSequence(true))
	if err != nil {
		return "", errors.Join(ErrWritePlan, err)
	}

	if err := afero.WriteFile(fsys, path, b, 0o644); err != nil {
		return "", errors.Join(ErrWritePlan, err)
	}

	return path, nil
}

// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/matt-FFFFFF/pipeframe/internal/plan"
)

const (
	inputDirKey  = "input_dir"
	outputDirKey = "output_dir"
)

// Folders are the module's sub-folders of the run's input and output directories.
type Folders struct {
	InputDir  yaml.MapSlice `yaml:"input_dir"`
	OutputDir yaml.MapSlice `yaml:"output_dir"`
}

// Module is one module definition in modules_template.yaml.
type Module struct {
	Name             string        `yaml:"-"`
	Folders          Folders       `yaml:"folders"`
	SourceExtensions []string      `yaml:"source_extensions"`
	Filenames        yaml.MapSlice `yaml:"filenames"`
	// Commands maps a group (before_batch, sample_level, after_batch or any other name)
	// to the ordered command titles it runs.
	Commands yaml.MapSlice `yaml:"commands"`
	// Stages optionally overrides the stage order. The batch stage is named "batch".
	Stages []string `yaml:"stages"`
}

// Group returns the command keys of a group. Unknown and empty groups return nil.
func (m *Module) Group(name string) []string {
	for _, item := range m.Commands {
		if toString(item.Key) == name {
			return toStrings(item.Value)
		}
	}

	return nil
}

// HasBatch reports whether the module has sample_level commands.
func (m *Module) HasBatch() bool {
	return len(m.Group(plan.GroupSampleLevel)) > 0
}

// StageSpecs returns the module's stages in execution order.
//
// Without an explicit order the stages are before_batch, batch, after_batch and then
// any other command group in declared order.
func (m *Module) StageSpecs() ([]plan.StageSpec, error) {
	order := m.Stages
	if len(order) == 0 {
		order = slices.Clone(plan.DefaultStages)

		for _, item := range m.Commands {
			g := toString(item.Key)
			if g == plan.GroupSampleLevel || slices.Contains(plan.DefaultStages, g) {
				continue
			}

			order = append(order, g)
		}
	}

	specs := make([]plan.StageSpec, 0, len(order))
	seen := make(map[string]bool, len(order))

	for _, name := range order {
		if seen[name] {
			return nil, fmt.Errorf("%w: module %s, stage %s", ErrDuplicateStage, m.Name, name)
		}

		seen[name] = true

		group := name
		if name == plan.StageBatch {
			group = plan.GroupSampleLevel
		}

		if len(m.Stages) > 0 && !m.hasGroup(group) {
			return nil, fmt.Errorf("%w: module %s, stage %s", ErrUnknownStage, m.Name, name)
		}

		specs = append(specs, plan.StageSpec{Name: name, Keys: m.Group(group)})
	}

	return specs, nil
}

func (m *Module) hasGroup(name string) bool {
	return slices.ContainsFunc(m.Commands, func(item yaml.MapItem) bool {
		return toString(item.Key) == name
	})
}

// ResolveFolders joins the module's sub-folders onto inputDir and outputDir.
// Sub-folders end in a path separator so templates can append file names directly.
func (m *Module) ResolveFolders(inputDir, outputDir string) yaml.MapSlice {
	out := yaml.MapSlice{
		{Key: inputDirKey, Value: inputDir},
		{Key: outputDirKey, Value: outputDir},
	}

	join := func(base string, subs yaml.MapSlice) {
		for _, item := range subs {
			out = setItem(out, toString(item.Key), dirPath(filepath.Join(base, toString(item.Value))))
		}
	}

	join(inputDir, m.Folders.InputDir)
	join(outputDir, m.Folders.OutputDir)

	return out
}

// CreatedFolders lists the resolved sub-folders to create before running.
func (m *Module) CreatedFolders(folders yaml.MapSlice) []string {
	var out []string

	for _, item := range folders {
		if k := toString(item.Key); k == inputDirKey || k == outputDirKey {
			continue
		}

		out = append(out, toString(item.Value))
	}

	return out
}

func dirPath(p string) string {
	sep := string(filepath.Separator)
	if strings.HasSuffix(p, sep) {
		return p
	}

	return p + sep
}

func setItem(ms yaml.MapSlice, key string, v any) yaml.MapSlice {
	for i := range ms {
		if toString(ms[i].Key) == key {
			ms[i].Value = v
			return ms
		}
	}

	return append(ms, yaml.MapItem{Key: key, Value: v})
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func toStrings(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, toString(item))
	}

	return out
}

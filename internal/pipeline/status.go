// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package pipeline

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/matt-FFFFFF/pipeframe/internal/plan"
	"github.com/matt-FFFFFF/pipeframe/internal/runbatch"
	"github.com/matt-FFFFFF/pipeframe/internal/stage"
	"github.com/spf13/afero"
)

// ErrWriteStatus is returned when status_log.yaml cannot be written.
var ErrWriteStatus = errors.New("failed to write status log")

// Summary is the outcome of an invocation.
type Summary struct {
	Invocation  string
	LogDir      string
	Modules     []*stage.ModuleResult
	Planned     []*plan.Plan
	Status      bool
	Interrupted bool
	Demo        bool
	Start       time.Time
	End         time.Time
}

func (s *Summary) add(m *stage.ModuleResult) {
	s.Modules = append(s.Modules, m)
	s.Status = s.Status && m.Status
	s.Interrupted = s.Interrupted || m.Interrupted
}

func (s *Summary) fail() {
	s.Status = false
	s.End = now()
}

// Duration is the wall time of the invocation.
func (s *Summary) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// MarshalYAML writes the summary in status_log.yaml form.
func (s *Summary) MarshalYAML() (any, error) {
	modules := make(yaml.MapSlice, 0, len(s.Modules))
	for _, m := range s.Modules {
		modules = append(modules, yaml.MapItem{Key: m.Module, Value: moduleStatus(m)})
	}

	return yaml.MapSlice{
		{Key: "status", Value: s.Status},
		{Key: "interrupted", Value: s.Interrupted},
		{Key: "invocation", Value: s.Invocation},
		{Key: "modules", Value: modules},
	}, nil
}

func moduleStatus(m *stage.ModuleResult) yaml.MapSlice {
	stages := make(yaml.MapSlice, 0, len(m.Stages))

	for _, st := range m.Stages {
		units := make(yaml.MapSlice, 0, len(st.Units))

		for _, u := range st.Units {
			cmds := make(yaml.MapSlice, 0, len(u.Outcomes)+len(u.Skipped))
			for _, o := range u.Outcomes {
				cmds = append(cmds, yaml.MapItem{Key: o.Title, Value: o.ExitCode})
			}

			for _, title := range u.Skipped {
				cmds = append(cmds, yaml.MapItem{Key: title, Value: "SKIPPED"})
			}

			units = append(units, yaml.MapItem{Key: u.Name, Value: yaml.MapSlice{
				{Key: "status", Value: u.Status},
				{Key: "duration", Value: runbatch.FormatDuration(u.Duration(), runbatch.PrecisionSecond)},
				{Key: "commands", Value: cmds},
			}})
		}

		stages = append(stages, yaml.MapItem{Key: st.Name, Value: yaml.MapSlice{
			{Key: "status", Value: st.Status},
			{Key: "units", Value: units},
		}})
	}

	return yaml.MapSlice{
		{Key: "status", Value: m.Status},
		{Key: "interrupted", Value: m.Interrupted},
		{Key: "run_id", Value: m.RunID},
		{Key: "start_time", Value: m.Start.Format(runbatch.RecordTimeFormat)},
		{Key: "end_time", Value: m.End.Format(runbatch.RecordTimeFormat)},
		{Key: "duration", Value: runbatch.FormatDuration(m.Duration(), runbatch.PrecisionSecond)},
		{Key: "stages", Value: stages},
	}
}

func writeStatus(fs afero.Fs, s *Summary) error {
	b, err := yaml.MarshalWithOptions(s, yaml.IndentSequence(true))
	if err != nil {
		return errors.Join(ErrWriteStatus, err)
	}

	if err := afero.WriteFile(fs, filepath.Join(s.LogDir, StatusFile), b, 0o644); err != nil {
		return errors.Join(ErrWriteStatus, err)
	}

	return nil
}

// StatusLog is the decoded form of status_log.yaml.
type StatusLog struct {
	Status      bool                    `yaml:"status"`
	Interrupted bool                    `yaml:"interrupted"`
	Invocation  string                  `yaml:"invocation"`
	Modules     map[string]ModuleStatus `yaml:"modules"`
}

// ModuleStatus is one module in status_log.yaml.
type ModuleStatus struct {
	Status      bool                   `yaml:"status"`
	Interrupted bool                   `yaml:"interrupted"`
	RunID       string                 `yaml:"run_id"`
	StartTime   string                 `yaml:"start_time"`
	EndTime     string                 `yaml:"end_time"`
	Duration    string                 `yaml:"duration"`
	Stages      map[string]StageStatus `yaml:"stages"`
}

// StageStatus is one stage in status_log.yaml.
type StageStatus struct {
	Status bool                  `yaml:"status"`
	Units  map[string]UnitStatus `yaml:"units"`
}

// UnitStatus is one unit in status_log.yaml. Commands map a title to its exit code,
// TIMEOUT, INTERRUPTED or SKIPPED.
type UnitStatus struct {
	Status   bool           `yaml:"status"`
	Duration string         `yaml:"duration"`
	Commands map[string]any `yaml:"commands"`
}

// LoadStatus reads status_log.yaml from logDir.
func LoadStatus(fs afero.Fs, logDir string) (*StatusLog, error) {
	b, err := afero.ReadFile(fs, filepath.Join(logDir, StatusFile))
	if err != nil {
		return nil, err
	}

	var s StatusLog
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, err
	}

	return &s, nil
}

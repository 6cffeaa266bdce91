// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package stage

import (
	"time"

	"github.com/matt-FFFFFF/pipeframe/internal/runbatch"
)

// StageResult rolls up the units of one stage.
type StageResult struct {
	Name        string
	Units       []*runbatch.UnitResult
	Status      bool
	Interrupted bool
	Start       time.Time
	End         time.Time
}

func (s *StageResult) add(u *runbatch.UnitResult) {
	s.Units = append(s.Units, u)
	s.Status = s.Status && u.Status
	s.Interrupted = s.Interrupted || u.Interrupted
}

// Unit returns the named unit, or nil.
func (s *StageResult) Unit(name string) *runbatch.UnitResult {
	for _, u := range s.Units {
		if u.Name == name {
			return u
		}
	}

	return nil
}

// ModuleResult rolls up the stages of one module.
type ModuleResult struct {
	Module      string
	RunID       string
	Stages      []*StageResult
	Status      bool
	Interrupted bool
	Start       time.Time
	End         time.Time
}

func (m *ModuleResult) add(s *StageResult) {
	m.Stages = append(m.Stages, s)
	m.Status = m.Status && s.Status
	m.Interrupted = m.Interrupted || s.Interrupted
}

// Stage returns the named stage, or nil.
func (m *ModuleResult) Stage(name string) *StageResult {
	for _, s := range m.Stages {
		if s.Name == name {
			return s
		}
	}

	return nil
}

// Duration is the wall time of the module.
func (m *ModuleResult) Duration() time.Duration {
	return m.End.Sub(m.Start)
}

// Failures lists "stage/unit/title" for every outcome that is not OK.
func (m *ModuleResult) Failures() []string {
	var out []string

	for _, s := range m.Stages {
		for _, u := range s.Units {
			for _, o := range u.Outcomes {
				if !o.OK() {
					out = append(out, s.Name+"/"+u.Name+"/"+o.Title)
				}
			}
		}
	}

	return out
}

// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package logstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/matt-FFFFFF/pipeframe/internal/runbatch"
	"github.com/spf13/afero"
)

// Records is run id -> unit -> title -> record.
type Records map[string]map[string]map[string]runbatch.Record

// Texts is run id -> unit -> title -> captured text.
type Texts map[string]map[string]map[string]string

// Snapshot is the decoded content of a log directory.
type Snapshot struct {
	Log    Records
	Stdout Texts
	Stderr Texts
}

// Load decodes the three stores in dir. Missing files load as empty.
func Load(fs afero.Fs, dir string) (*Snapshot, error) {
	snap := &Snapshot{
		Log:    Records{},
		Stdout: Texts{},
		Stderr: Texts{},
	}

	if err := decode(fs, filepath.Join(dir, LogFile), &snap.Log); err != nil {
		return nil, err
	}

	if err := decode(fs, filepath.Join(dir, StdoutFile), &snap.Stdout); err != nil {
		return nil, err
	}

	if err := decode(fs, filepath.Join(dir, StderrFile), &snap.Stderr); err != nil {
		return nil, err
	}

	return snap, nil
}

func decode(fs afero.Fs, path string, v any) error {
	b, err := afero.ReadFile(fs, path)

	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return errors.Join(ErrRead, err)
	}

	if err := yaml.Unmarshal(b, v); err != nil {
		return errors.Join(ErrRead, fmt.Errorf("%s: %w", path, err))
	}

	return nil
}

// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package logstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/matt-FFFFFF/pipeframe/internal/runbatch"
	"github.com/spf13/afero"
)

// File names of the three stores.
const (
	LogFile    = "log.yaml"
	StdoutFile = "stdout_log.yaml"
	StderrFile = "stderr_log.yaml"
)

// RunIDTimeFormat is the timestamp layout in run ids.
const RunIDTimeFormat = "02.01.2006_15:04:05"

var (
	// ErrRead is returned when a store file cannot be read or parsed.
	ErrRead = errors.New("failed to read log store")
	// ErrWrite is returned when a store file cannot be written.
	ErrWrite = errors.New("failed to write log store")
	// ErrNotMapping is returned when a store file does not hold a mapping at the top level.
	ErrNotMapping = errors.New("log store is not a mapping")
)

// FsFactory returns the filesystem stores are opened on.
var FsFactory = func() afero.Fs {
	return afero.NewOsFs()
}

// RunID identifies one run of a module: "<module>_<dd.mm.yyyy_HH:MM:SS>".
func RunID(module string, start time.Time) string {
	return module + "_" + start.Format(RunIDTimeFormat)
}

type kind int

const (
	kindLog kind = iota
	kindStdout
	kindStderr
)

var files = [...]string{kindLog: LogFile, kindStdout: StdoutFile, kindStderr: StderrFile}

// Store writes unit results under one log directory. The files on disk are the
// only state: every Persist merges into what they hold at that moment.
type Store struct {
	fs  afero.Fs
	dir string

	mu sync.Mutex
}

// Open returns a Store for dir. Existing store files must be readable mappings.
func Open(fs afero.Fs, dir string) (*Store, error) {
	s := &Store{fs: fs, dir: dir}

	for k := range files {
		if _, err := readDoc(fs, s.path(kind(k))); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Store) path(k kind) string {
	return filepath.Join(s.dir, files[k])
}

// Persist records res as unit in run runID in all three stores and writes them out.
func (s *Store) Persist(runID, unit string, res *runbatch.UnitResult) error {
	entries := unitEntries(res)

	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error

	for k := range files {
		onDisk, err := readDoc(s.fs, s.path(kind(k)))
		if err != nil {
			errs = append(errs, err)
			continue
		}

		onDisk = setUnit(onDisk, runID, unit, entries[k])

		if err := writeDoc(s.fs, s.path(kind(k)), onDisk); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func unitEntries(res *runbatch.UnitResult) [len(files)]yaml.MapSlice {
	var e [len(files)]yaml.MapSlice

	for k := range e {
		e[k] = make(yaml.MapSlice, 0, len(res.Outcomes))
	}

	for _, o := range res.Outcomes {
		e[kindLog] = append(e[kindLog], yaml.MapItem{Key: o.Title, Value: o.Record()})
		e[kindStdout] = append(e[kindStdout], yaml.MapItem{Key: o.Title, Value: strings.TrimSpace(o.Stdout)})
		e[kindStderr] = append(e[kindStderr], yaml.MapItem{Key: o.Title, Value: strings.TrimSpace(o.Stderr)})
	}

	return e
}

// setUnit returns doc with doc[runID][unit] = entry, keeping key order.
func setUnit(doc yaml.MapSlice, runID, unit string, entry yaml.MapSlice) yaml.MapSlice {
	run, i := get(doc, runID)

	runMap, _ := run.(yaml.MapSlice)
	runMap = set(runMap, unit, entry)

	if i < 0 {
		return append(doc, yaml.MapItem{Key: runID, Value: runMap})
	}

	out := make(yaml.MapSlice, len(doc))
	copy(out, doc)
	out[i].Value = runMap

	return out
}

func get(ms yaml.MapSlice, key string) (any, int) {
	for i, item := range ms {
		if fmt.Sprint(item.Key) == key {
			return item.Value, i
		}
	}

	return nil, -1
}

func set(ms yaml.MapSlice, key string, v any) yaml.MapSlice {
	if _, i := get(ms, key); i >= 0 {
		out := make(yaml.MapSlice, len(ms))
		copy(out, ms)
		out[i].Value = v

		return out
	}

	return append(ms, yaml.MapItem{Key: key, Value: v})
}

func readDoc(fs afero.Fs, path string) (yaml.MapSlice, error) {
	b, err := afero.ReadFile(fs, path)

	switch {
	case errors.Is(err, os.ErrNotExist):
		return yaml.MapSlice{}, nil
	case err != nil:
		return nil, errors.Join(ErrRead, err)
	}

	if len(strings.TrimSpace(string(b))) == 0 {
		return yaml.MapSlice{}, nil
	}

	var raw any
	if err := yaml.UnmarshalWithOptions(b, &raw, yaml.UseOrderedMap()); err != nil {
		return nil, errors.Join(ErrRead, fmt.Errorf("%s: %w", path, err))
	}

	switch v := raw.(type) {
	case nil:
		return yaml.MapSlice{}, nil
	case yaml.MapSlice:
		return v, nil
	default:
		return nil, errors.Join(ErrRead, fmt.Errorf("%w: %s", ErrNotMapping, path))
	}
}

func writeDoc(fs afero.Fs, path string, doc yaml.MapSlice) error {
	b, err := yaml.MarshalWithOptions(doc,
		yaml.IndentSequence(true),
		yaml.UseLiteralStyleIfMultiline(true),
	)
	if err != nil {
		return errors.Join(ErrWrite, err)
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Join(ErrWrite, err)
	}

	tmp, err := afero.TempFile(fs, filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return errors.Join(ErrWrite, err)
	}

	_, werr := tmp.Write(b)
	cerr := tmp.Close()

	if err := errors.Join(werr, cerr); err != nil {
		_ = fs.Remove(tmp.Name())
		return errors.Join(ErrWrite, err)
	}

	if err := fs.Rename(tmp.Name(), path); err != nil {
		_ = fs.Remove(tmp.Name())
		return errors.Join(ErrWrite, err)
	}

	return nil
}

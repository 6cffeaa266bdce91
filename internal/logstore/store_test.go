// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package logstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/matt-FFFFFF/pipeframe/internal/runbatch"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDir = "/out/Logs/01.02.2025_mod"

var testStart = time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

func outcome(title string, status runbatch.Status, code runbatch.ExitCode, stdout string) *runbatch.Outcome {
	return &runbatch.Outcome{
		Title:    title,
		Status:   status,
		ExitCode: code,
		Start:    testStart,
		End:      testStart.Add(3 * time.Second),
		Duration: 3 * time.Second,
		Stdout:   stdout,
		Stderr:   "  warn\n",
	}
}

func unitResult(name string, outcomes ...*runbatch.Outcome) *runbatch.UnitResult {
	return &runbatch.UnitResult{Name: name, Outcomes: outcomes}
}

func TestRunID(t *testing.T) {
	assert.Equal(t, "align_01.02.2025_10:00:00", RunID("align", testStart))
}

func TestPersist_RoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Open(fs, testDir)
	require.NoError(t, err)

	res := unitResult("before_batch",
		outcome("one", runbatch.StatusOK, 0, "hello\n"),
		outcome("two", runbatch.StatusTimeout, runbatch.ExitTimeout, ""),
	)
	require.NoError(t, s.Persist("run1", "before_batch", res))

	snap, err := Load(fs, testDir)
	require.NoError(t, err)

	rec := snap.Log["run1"]["before_batch"]["one"]
	assert.Equal(t, runbatch.StatusOK, rec.Status)
	assert.Equal(t, runbatch.ExitCode(0), rec.ExitCode)
	assert.Equal(t, int64(3), rec.DurationSec)
	assert.Equal(t, "01.02.2025 10:00:00", rec.StartTime)

	rec = snap.Log["run1"]["before_batch"]["two"]
	assert.Equal(t, runbatch.StatusTimeout, rec.Status)
	assert.Equal(t, runbatch.ExitTimeout, rec.ExitCode)

	assert.Equal(t, "hello", snap.Stdout["run1"]["before_batch"]["one"])
	assert.Equal(t, "warn", snap.Stderr["run1"]["before_batch"]["two"])
}

func TestPersist_ReplacesUnitWholesale(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Open(fs, testDir)
	require.NoError(t, err)

	require.NoError(t, s.Persist("run1", "S1", unitResult("S1",
		outcome("a", runbatch.StatusFail, 2, "first"),
		outcome("b", runbatch.StatusOK, 0, "first"),
	)))
	require.NoError(t, s.Persist("run1", "S1", unitResult("S1",
		outcome("a", runbatch.StatusOK, 0, "second"),
	)))

	snap, err := Load(fs, testDir)
	require.NoError(t, err)

	unit := snap.Log["run1"]["S1"]
	require.Len(t, unit, 1)
	assert.Equal(t, runbatch.StatusOK, unit["a"].Status)
	assert.Equal(t, "second", snap.Stdout["run1"]["S1"]["a"])
}

func TestPersist_IdempotentOverwrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Open(fs, testDir)
	require.NoError(t, err)

	res := unitResult("S1", outcome("a", runbatch.StatusOK, 0, "x"))
	require.NoError(t, s.Persist("run1", "S1", res))

	first, err := afero.ReadFile(fs, filepath.Join(testDir, LogFile))
	require.NoError(t, err)

	require.NoError(t, s.Persist("run1", "S1", res))

	second, err := afero.ReadFile(fs, filepath.Join(testDir, LogFile))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestPersist_KeepsOtherRunsAndUnits(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Open(fs, testDir)
	require.NoError(t, err)

	require.NoError(t, s.Persist("run1", "before_batch", unitResult("before_batch", outcome("a", runbatch.StatusOK, 0, "r1"))))
	require.NoError(t, s.Persist("run2", "S1", unitResult("S1", outcome("a", runbatch.StatusOK, 0, "r2 s1"))))
	require.NoError(t, s.Persist("run2", "S2", unitResult("S2", outcome("a", runbatch.StatusFail, 1, "r2 s2"))))

	snap, err := Load(fs, testDir)
	require.NoError(t, err)

	assert.Len(t, snap.Log, 2)
	assert.Equal(t, "r1", snap.Stdout["run1"]["before_batch"]["a"])
	assert.Equal(t, "r2 s1", snap.Stdout["run2"]["S1"]["a"])
	assert.Equal(t, "r2 s2", snap.Stdout["run2"]["S2"]["a"])
	assert.Equal(t, runbatch.ExitCode(1), snap.Log["run2"]["S2"]["a"].ExitCode)
}

func TestPersist_PreservesEntriesWrittenByOthers(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Open(fs, testDir)
	require.NoError(t, err)

	// a second store on the same directory, e.g. another module of the invocation
	other, err := Open(fs, testDir)
	require.NoError(t, err)

	require.NoError(t, other.Persist("other_run", "S1", unitResult("S1", outcome("x", runbatch.StatusOK, 0, "other"))))
	require.NoError(t, s.Persist("run1", "S1", unitResult("S1", outcome("y", runbatch.StatusOK, 0, "mine"))))

	snap, err := Load(fs, testDir)
	require.NoError(t, err)

	assert.Equal(t, "other", snap.Stdout["other_run"]["S1"]["x"])
	assert.Equal(t, "mine", snap.Stdout["run1"]["S1"]["y"])
}

func TestPersist_KeepsKeyOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Open(fs, testDir)
	require.NoError(t, err)

	require.NoError(t, s.Persist("run1", "zeta", unitResult("zeta",
		outcome("second", runbatch.StatusOK, 0, ""),
		outcome("first", runbatch.StatusOK, 0, ""),
	)))
	require.NoError(t, s.Persist("run1", "alpha", unitResult("alpha", outcome("a", runbatch.StatusOK, 0, ""))))

	b, err := afero.ReadFile(fs, filepath.Join(testDir, StdoutFile))
	require.NoError(t, err)

	var doc yaml.MapSlice
	require.NoError(t, yaml.UnmarshalWithOptions(b, &doc, yaml.UseOrderedMap()))

	run, ok := doc[0].Value.(yaml.MapSlice)
	require.True(t, ok)
	require.Len(t, run, 2)
	assert.Equal(t, "zeta", run[0].Key)
	assert.Equal(t, "alpha", run[1].Key)

	zeta, ok := run[0].Value.(yaml.MapSlice)
	require.True(t, ok)
	assert.Equal(t, "second", zeta[0].Key)
	assert.Equal(t, "first", zeta[1].Key)
}

func TestOpen_ExistingStore(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, filepath.Join(testDir, StdoutFile), []byte("old:\n  S1:\n    a: kept\n"), 0o644))

	s, err := Open(fs, testDir)
	require.NoError(t, err)
	require.NoError(t, s.Persist("new", "S1", unitResult("S1", outcome("a", runbatch.StatusOK, 0, "fresh"))))

	snap, err := Load(fs, testDir)
	require.NoError(t, err)
	assert.Equal(t, "kept", snap.Stdout["old"]["S1"]["a"])
	assert.Equal(t, "fresh", snap.Stdout["new"]["S1"]["a"])
}

func TestOpen_NotAMapping(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, filepath.Join(testDir, LogFile), []byte("- a\n- b\n"), 0o644))

	_, err := Open(fs, testDir)
	require.ErrorIs(t, err, ErrRead)
	assert.ErrorIs(t, err, ErrNotMapping)
}

func TestLoad_Missing(t *testing.T) {
	snap, err := Load(afero.NewMemMapFs(), testDir)
	require.NoError(t, err)
	assert.Empty(t, snap.Log)
	assert.Empty(t, snap.Stdout)
	assert.Empty(t, snap.Stderr)
}

func TestPersist_NoTempFilesLeft(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Open(fs, testDir)
	require.NoError(t, err)
	require.NoError(t, s.Persist("run1", "S1", unitResult("S1", outcome("a", runbatch.StatusOK, 0, ""))))

	entries, err := afero.ReadDir(fs, testDir)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}

	assert.ElementsMatch(t, []string{LogFile, StdoutFile, StderrFile}, names)
}

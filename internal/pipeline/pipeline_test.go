// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package pipeline

import (
	"bytes"
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/matt-FFFFFF/pipeframe/internal/color"
	"github.com/matt-FFFFFF/pipeframe/internal/config"
	"github.com/matt-FFFFFF/pipeframe/internal/logstore"
	"github.com/matt-FFFFFF/pipeframe/internal/plan"
	"github.com/matt-FFFFFF/pipeframe/internal/runbatch"
	"github.com/matt-FFFFFF/pipeframe/internal/samples"
	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const (
	inDir  = "/data/in"
	outDir = "/data/out"
)

var testStart = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	color.SetEnabled(false)
	goleak.VerifyTestMain(m)
}

func skipOnWindows(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX shell commands")
	}
}

func group(keys ...string) []any {
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = k
	}

	return out
}

func testConfig() *config.Config {
	return &config.Config{
		Dir: "/cfg",
		Machines: map[string]config.Machine{
			"local": {Binaries: yaml.MapSlice{{Key: "printer", Value: "echo"}}},
		},
		Sequence: []string{"qc", "align"},
		Modules: map[string]*config.Module{
			"qc": {
				Name: "qc",
				Commands: yaml.MapSlice{
					{Key: plan.StageBeforeBatch, Value: group("hello")},
				},
			},
			"align": {
				Name: "align",
				Folders: config.Folders{
					OutputDir: yaml.MapSlice{{Key: "bam", Value: "bam"}},
				},
				SourceExtensions: []string{".fq"},
				Filenames: yaml.MapSlice{
					{Key: "basename", Value: `f"{stem(sample)}"`},
					{Key: "bam", Value: `f"{folders.bam}{filenames.basename}.bam"`},
				},
				Commands: yaml.MapSlice{
					{Key: plan.StageBeforeBatch, Value: group("hello")},
					{Key: plan.GroupSampleLevel, Value: group("map", "check")},
					{Key: plan.StageAfterBatch, Value: group("report")},
				},
			},
		},
		Commands: plan.Templates{
			"hello":  {Instruction: `f"{programs.printer} hello {args.reference}"`},
			"map":    {Instruction: `f"{programs.printer} {sample} to {filenames.bam}"`},
			"check":  {Instruction: `f"test {filenames.basename} != {args.bad_sample}"`},
			"report": {Instruction: "echo report"},
		},
		Args: yaml.MapSlice{
			{Key: "reference", Value: "hg38"},
			{Key: "bad_sample", Value: "none"},
		},
	}
}

func testOptions(modules ...string) Options {
	return Options{
		ConfigDir:     "/cfg",
		Machine:       "local",
		Modules:       modules,
		InputDir:      inDir,
		OutputDir:     outDir,
		TimeoutPolicy: runbatch.PolicyStop,
		Debug:         runbatch.DebugNone,
	}
}

func setup(t *testing.T, sampleNames ...string) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()

	for _, n := range sampleNames {
		require.NoError(t, afero.WriteFile(fs, filepath.Join(inDir, n), []byte("@read\n"), 0o644))
	}

	stubs := gostub.StubFunc(&FsFactory, fs)
	stubs.StubFunc(&now, testStart)
	stubs.StubFunc(&newInvocationID, "0b0e6f8a-1c4b-4a4e-9d1e-1f5a3c2b7d10")
	t.Cleanup(stubs.Reset)

	return fs
}

func TestRun_Success(t *testing.T) {
	skipOnWindows(t)

	fs := setup(t, "S1.fq", "S2.fq", "notes.txt")

	var out bytes.Buffer

	sum, err := New(testConfig(), testOptions("align", "qc"), WithOutput(&out)).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, sum.Status)
	assert.False(t, sum.Interrupted)
	require.Len(t, sum.Modules, 2)
	assert.Equal(t, "qc", sum.Modules[0].Module)
	assert.Equal(t, "align", sum.Modules[1].Module)

	logDir := filepath.Join(outDir, LogsDir, "14.03.2025_align-qc")
	assert.Equal(t, logDir, sum.LogDir)

	for _, f := range []string{
		InitConfigsFile, StatusFile, plan.FileName("qc"), plan.FileName("align"),
		logstore.LogFile, logstore.StdoutFile, logstore.StderrFile,
	} {
		ok, err := afero.Exists(fs, filepath.Join(logDir, f))
		require.NoError(t, err)
		assert.True(t, ok, f)
	}

	ok, err := afero.DirExists(fs, filepath.Join(outDir, "bam"))
	require.NoError(t, err)
	assert.True(t, ok)

	snap, err := logstore.Load(fs, logDir)
	require.NoError(t, err)

	runID := logstore.RunID("align", testStart)
	assert.Equal(t, "hello hg38", snap.Stdout[runID][plan.StageBeforeBatch]["hello"])
	assert.Equal(t,
		filepath.Join(inDir, "S1.fq")+" to "+filepath.Join(outDir, "bam")+string(filepath.Separator)+"S1.bam",
		snap.Stdout[runID]["S1"]["map"])

	st, err := LoadStatus(fs, logDir)
	require.NoError(t, err)
	assert.True(t, st.Status)
	assert.Equal(t, "0b0e6f8a-1c4b-4a4e-9d1e-1f5a3c2b7d10", st.Invocation)
	assert.Equal(t, runID, st.Modules["align"].RunID)
	assert.True(t, st.Modules["align"].Stages[plan.StageBatch].Units["S2"].Status)

	assert.Contains(t, out.String(), "Found 2 samples, 2 will be processed.")

	var rendered bytes.Buffer
	require.NoError(t, sum.Render(&rendered))
	assert.Contains(t, rendered.String(), MsgSuccess)
}

func TestRun_PartialFailure(t *testing.T) {
	skipOnWindows(t)

	fs := setup(t, "S1.fq", "S2.fq", "S3.fq")

	opts := testOptions("align")
	opts.Sets = []string{"bad_sample=S2"}

	sum, err := New(testConfig(), opts).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, sum.Status)

	st, err := LoadStatus(fs, sum.LogDir)
	require.NoError(t, err)

	units := st.Modules["align"].Stages[plan.StageBatch].Units
	assert.True(t, units["S1"].Status)
	assert.False(t, units["S2"].Status)
	assert.True(t, units["S3"].Status)
	assert.EqualValues(t, 1, units["S2"].Commands["check"])
	assert.True(t, st.Modules["align"].Stages[plan.StageAfterBatch].Status)

	var rendered bytes.Buffer
	require.NoError(t, sum.Render(&rendered))
	assert.Contains(t, rendered.String(), "batch/S2/check: exit code 1")
	assert.Contains(t, rendered.String(), MsgFailure)
}

func TestRun_Demo(t *testing.T) {
	fs := setup(t, "S1.fq")

	opts := testOptions("align")
	opts.Demo = true

	sum, err := New(testConfig(), opts).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sum.Planned, 1)
	assert.Empty(t, sum.Modules)
	assert.Equal(t, 4, sum.Planned[0].CommandCount())

	ok, err := afero.Exists(fs, filepath.Join(sum.LogDir, plan.FileName("align")))
	require.NoError(t, err)
	assert.True(t, ok)

	for _, f := range []string{logstore.LogFile, StatusFile} {
		ok, err = afero.Exists(fs, filepath.Join(sum.LogDir, f))
		require.NoError(t, err)
		assert.False(t, ok, f)
	}

	ok, err = afero.DirExists(fs, filepath.Join(outDir, "bam"))
	require.NoError(t, err)
	assert.False(t, ok)

	var rendered bytes.Buffer
	require.NoError(t, sum.Render(&rendered))
	assert.Contains(t, rendered.String(), "Plans written to "+sum.LogDir)
}

func TestRun_NoSamples(t *testing.T) {
	setup(t, "notes.txt")

	_, err := New(testConfig(), testOptions("align")).Run(context.Background())
	require.ErrorIs(t, err, config.ErrConfiguration)
	assert.ErrorIs(t, err, samples.ErrNoSamples)
}

func TestRun_ExpansionErrorRunsNothing(t *testing.T) {
	fs := setup(t, "S1.fq")

	cfg := testConfig()
	cfg.Commands["report"] = plan.Template{Instruction: `f"{nowhere.thing}"`}

	sum, err := New(cfg, testOptions("align")).Run(context.Background())
	require.ErrorIs(t, err, plan.ErrExpansion)
	require.NotNil(t, sum)
	assert.False(t, sum.Status)

	ok, err := afero.Exists(fs, filepath.Join(sum.LogDir, logstore.LogFile))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRun_InterruptedSkipsRemainingModules(t *testing.T) {
	setup(t, "S1.fq")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := New(testConfig(), testOptions("qc", "align")).Run(ctx)
	require.NoError(t, err)

	assert.True(t, sum.Interrupted)
	assert.False(t, sum.Status)
	require.Len(t, sum.Modules, 1)
	assert.Equal(t, "qc", sum.Modules[0].Module)

	var rendered bytes.Buffer
	require.NoError(t, sum.Render(&rendered))
	assert.Contains(t, rendered.String(), MsgInterrupted)
}

func TestRun_InvalidOptions(t *testing.T) {
	setup(t)

	_, err := New(testConfig(), Options{}).Run(context.Background())
	require.ErrorIs(t, err, ErrOptions)

	opts := testOptions("align")
	opts.Machine = "cluster"
	_, err = New(testConfig(), opts).Run(context.Background())
	require.ErrorIs(t, err, config.ErrUnknownMachine)

	opts = testOptions("nope")
	_, err = New(testConfig(), opts).Run(context.Background())
	require.ErrorIs(t, err, config.ErrUnknownModule)
}

func TestModuleContext(t *testing.T) {
	setup(t)

	opts := testOptions("align")
	opts.Sets = []string{"reference=t2t"}

	vars, err := New(testConfig(), opts).ModuleContext("align", "/data/in/S9.fq")
	require.NoError(t, err)

	got, err := vars.Evaluate("probe", `f"{args.reference} {args.machine} {filenames.basename} {programs.printer}"`)
	require.NoError(t, err)
	assert.Equal(t, "t2t local S9 echo", got)

	_, err = New(testConfig(), opts).ModuleContext("qc", "")
	require.ErrorIs(t, err, config.ErrUnknownModule)
}

func TestLogDir(t *testing.T) {
	assert.Equal(t,
		filepath.Join("/out", "Logs", "14.03.2025_a-b"),
		LogDir("/out", []string{"a", "b"}, testStart))
}

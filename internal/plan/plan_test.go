// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package plan

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/matt-FFFFFF/pipeframe/internal/expr"
	"github.com/matt-FFFFFF/pipeframe/internal/samples"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vars() *expr.Context {
	return expr.NewContext(map[string]any{
		expr.NamespaceFolders: map[string]any{
			"input_dir":  "/in/",
			"output_dir": "/out/",
			"bam":        "/out/bam/",
		},
		expr.NamespacePrograms: map[string]any{"samtools": "samtools"},
		expr.NamespaceArgs:     map[string]any{"threads": uint64(4)},
	})
}

var templates = Templates{
	"prepare": {Instruction: "mkdir -p /out/tmp"},
	"index":   {Timeout: 30, Instruction: `f"{programs.samtools} index {filenames.bam}"`},
	"sort":    {Instruction: `f"{programs.samtools} sort -@ {args.threads} -o {filenames.bam} {sample}"`},
	"report":  {Timeout: 5, Instruction: `f"multiqc {folders.output_dir}"`},
	"broken":  {Instruction: `f"{programs.missing}"`},
	"broken2": {Instruction: `f"{nope}"`},
}

var filenames = yaml.MapSlice{
	{Key: "basename", Value: `f"{stem(strip_ext(sample))}"`},
	{Key: "bam", Value: `f"{folders.bam}{filenames.basename}.bam"`},
	{Key: "bai", Value: `f"{filenames.bam}.bai"`},
	{Key: "static", Value: "/ref/hg38.fa"},
}

func TestExpandGroup_DeclaredOrder(t *testing.T) {
	g, err := ExpandGroup(vars(), []string{"report", "prepare"}, templates)
	require.NoError(t, err)

	assert.Equal(t, Group{
		{Title: "report", CommandLine: "multiqc /out/", Timeout: 5 * time.Second},
		{Title: "prepare", CommandLine: "mkdir -p /out/tmp"},
	}, g)
}

func TestExpandGroup_AllErrorsNoPartialGroup(t *testing.T) {
	g, err := ExpandGroup(vars(), []string{"prepare", "broken", "absent", "broken2"}, templates)
	require.Error(t, err)
	assert.Nil(t, g)

	require.ErrorIs(t, err, ErrExpansion)
	require.ErrorIs(t, err, ErrMissingTemplate)
	require.ErrorIs(t, err, expr.ErrEvaluate)
	assert.Contains(t, err.Error(), "broken")
	assert.Contains(t, err.Error(), "broken2")
	assert.Contains(t, err.Error(), "absent")
}

func TestExpandFilenames_Progressive(t *testing.T) {
	got, err := ExpandFilenames(vars(), "/in/S1.fastq.gz", filenames)
	require.NoError(t, err)

	assert.Equal(t, yaml.MapSlice{
		{Key: "basename", Value: "S1"},
		{Key: "bam", Value: "/out/bam/S1.bam"},
		{Key: "bai", Value: "/out/bam/S1.bam.bai"},
		{Key: "static", Value: "/ref/hg38.fa"},
	}, got)
}

func TestExpandFilenames_ForwardReferenceFails(t *testing.T) {
	fwd := yaml.MapSlice{
		{Key: "bai", Value: `f"{filenames.bam}.bai"`},
		{Key: "bam", Value: `f"{sample}.bam"`},
	}

	_, err := ExpandFilenames(vars(), "/in/S1", fwd)
	require.ErrorIs(t, err, ErrExpansion)
}

func buildInput(srcs ...samples.Sample) Input {
	return Input{
		Module: "align",
		Stages: []StageSpec{
			{Name: StageBeforeBatch, Keys: []string{"prepare"}},
			{Name: StageBatch, Keys: []string{"sort", "index"}},
			{Name: StageAfterBatch, Keys: []string{"report"}},
			{Name: "cleanup"},
		},
		Vars:      vars(),
		Templates: templates,
		Filenames: filenames,
		Samples:   srcs,
	}
}

func TestBuild(t *testing.T) {
	p, err := Build(buildInput(
		samples.Sample{Path: "/in/S1.fastq.gz", Ext: ".fastq.gz"},
		samples.Sample{Path: "/in/S2.fastq.gz", Ext: ".fastq.gz"},
	))
	require.NoError(t, err)

	require.Len(t, p.Stages, 3, "empty stages are dropped")
	assert.Equal(t, "before_batch", p.Stages[0].Name)
	assert.False(t, p.Stages[0].Batch())
	assert.True(t, p.Stages[1].Batch())

	batch := p.Stages[1].Samples
	require.Len(t, batch, 2)
	assert.Equal(t, "S1", batch[0].ID)
	assert.Equal(t, []string{"sort", "index"}, batch[0].Commands.Titles())
	assert.Equal(t, "samtools sort -@ 4 -o /out/bam/S1.bam /in/S1.fastq.gz", batch[0].Commands[0].CommandLine)
	assert.Equal(t, "samtools index /out/bam/S2.bam", batch[1].Commands[1].CommandLine)
	assert.Equal(t, 30*time.Second, batch[1].Commands[1].Timeout)

	assert.Equal(t, 6, p.CommandCount())
	assert.Equal(t, 4, p.UnitCount())
}

func TestBuild_DistinctSamplesDistinctOutputs(t *testing.T) {
	var srcs []samples.Sample
	for _, n := range []string{"A", "B", "C", "A_1", "a"} {
		srcs = append(srcs, samples.Sample{Path: "/in/" + n + ".fq", Ext: ".fq"})
	}

	p, err := Build(buildInput(srcs...))
	require.NoError(t, err)

	seen := map[string]bool{}

	for _, s := range p.Stages[1].Samples {
		bam, ok := lookup(s.Filenames, "bam")
		require.True(t, ok)
		assert.False(t, seen[bam], "output %s collides", bam)
		seen[bam] = true
	}

	assert.Len(t, seen, len(srcs))
}

func TestBuild_SampleIDWithoutBasename(t *testing.T) {
	in := buildInput(samples.Sample{Path: "/in/S9.vcf.gz", Ext: ".vcf.gz"})
	in.Filenames = yaml.MapSlice{{Key: "out", Value: `f"{sample}.out"`}}
	in.Stages = []StageSpec{{Name: StageBatch, Keys: []string{"prepare"}}}

	p, err := Build(in)
	require.NoError(t, err)
	assert.Equal(t, "S9", p.Stages[0].Samples[0].ID)
}

func TestBuild_DuplicateSampleID(t *testing.T) {
	_, err := Build(buildInput(
		samples.Sample{Path: "/in/a/S1.fastq.gz", Ext: ".fastq.gz"},
		samples.Sample{Path: "/in/b/S1.fastq.gz", Ext: ".fastq.gz"},
	))
	require.ErrorIs(t, err, ErrExpansion)
	require.ErrorIs(t, err, ErrDuplicateSample)
}

func TestBuild_SampleIDCollidesWithStage(t *testing.T) {
	in := buildInput(
		samples.Sample{Path: "/in/S1.fq", Ext: ".fq"},
		samples.Sample{Path: "/in/before_batch.fq", Ext: ".fq"},
	)
	in.Filenames = nil
	in.Stages[1].Keys = []string{"prepare"}

	p, err := Build(in)
	require.ErrorIs(t, err, ErrExpansion)
	require.ErrorIs(t, err, ErrSampleStageCollision)
	assert.Nil(t, p)
	assert.Contains(t, err.Error(), "before_batch.fq")
}

func TestBuild_SampleIDMatchesEmptyStage(t *testing.T) {
	in := buildInput(samples.Sample{Path: "/in/cleanup.fq", Ext: ".fq"})
	in.Filenames = nil
	in.Stages[1].Keys = []string{"prepare"}

	p, err := Build(in)
	require.NoError(t, err)
	assert.Equal(t, "cleanup", p.Stages[1].Samples[0].ID)
}

func TestExpandGroup_DuplicateKey(t *testing.T) {
	g, err := ExpandGroup(vars(), []string{"prepare", "report", "prepare"}, templates)
	require.ErrorIs(t, err, ErrExpansion)
	require.ErrorIs(t, err, ErrDuplicateKey)
	assert.Nil(t, g)
	assert.Contains(t, err.Error(), `"prepare"`)
}

func TestBuild_DuplicateSampleLevelKey(t *testing.T) {
	in := buildInput(samples.Sample{Path: "/in/S1.fq", Ext: ".fq"})
	in.Stages[1].Keys = []string{"sort", "sort"}

	_, err := Build(in)
	require.ErrorIs(t, err, ErrExpansion)
	require.ErrorIs(t, err, ErrDuplicateKey)
}

func TestBuild_ErrorInOneSampleFailsPlan(t *testing.T) {
	in := buildInput(samples.Sample{Path: "/in/S1.fq", Ext: ".fq"})
	in.Stages[1].Keys = []string{"sort", "broken"}

	p, err := Build(in)
	require.ErrorIs(t, err, ErrExpansion)
	assert.Nil(t, p)
	assert.Contains(t, err.Error(), "align")
}

func TestPlan_Save(t *testing.T) {
	p, err := Build(buildInput(samples.Sample{Path: "/in/S1.fq", Ext: ".fq"}))
	require.NoError(t, err)

	fsys := afero.NewMemMapFs()
	path, err := p.Save(fsys, "/logs")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/logs", "cmd_data_align.yaml"), path)

	b, err := afero.ReadFile(fsys, path)
	require.NoError(t, err)

	var doc yaml.MapSlice
	require.NoError(t, yaml.UnmarshalWithOptions(b, &doc, yaml.UseOrderedMap()))

	keys := make([]any, len(doc))
	for i, item := range doc {
		keys[i] = item.Key
	}

	assert.Equal(t, []any{"before_batch", "batch", "after_batch"}, keys)
	assert.Contains(t, string(b), "S1:")
	assert.Contains(t, string(b), "samtools index /out/bam/S1.bam")
	assert.Contains(t, string(b), "prepare: mkdir -p /out/tmp")
}

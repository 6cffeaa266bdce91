// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
	"github.com/matt-FFFFFF/pipeframe/internal/config"
	"github.com/matt-FFFFFF/pipeframe/internal/ctxlog"
	"github.com/matt-FFFFFF/pipeframe/internal/expr"
	"github.com/matt-FFFFFF/pipeframe/internal/logstore"
	"github.com/matt-FFFFFF/pipeframe/internal/plan"
	"github.com/matt-FFFFFF/pipeframe/internal/progress"
	"github.com/matt-FFFFFF/pipeframe/internal/runbatch"
	"github.com/matt-FFFFFF/pipeframe/internal/samples"
	"github.com/matt-FFFFFF/pipeframe/internal/stage"
	"github.com/spf13/afero"
)

// File names written to the log directory besides the log stores and plans.
const (
	InitConfigsFile = "init_configs.yaml"
	StatusFile      = "status_log.yaml"
	LogsDir         = "Logs"
	logDirDate      = "02.01.2006"
)

var (
	// ErrLogDir is returned when the log directory cannot be prepared.
	ErrLogDir = errors.New("failed to prepare log directory")
	// ErrFolders is returned when a module's folders cannot be created.
	ErrFolders = errors.New("failed to create module folders")
	// ErrDiscover is returned when sample discovery fails.
	ErrDiscover = errors.New("sample discovery failed")
)

var (
	// FsFactory returns the filesystem the pipeline reads samples from and writes logs to.
	FsFactory = func() afero.Fs {
		return afero.NewOsFs()
	}

	now             = time.Now
	newInvocationID = uuid.NewString
)

// Pipeline runs the selected modules of a configuration.
type Pipeline struct {
	cfg      *config.Config
	opts     Options
	out      io.Writer
	reporter progress.Reporter
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithOutput sets the console writer. The default discards console output.
func WithOutput(w io.Writer) Option {
	return func(p *Pipeline) {
		p.out = w
	}
}

// WithReporter sets the progress reporter passed to the stage executor.
func WithReporter(r progress.Reporter) Option {
	return func(p *Pipeline) {
		p.reporter = progress.OrNull(r)
	}
}

// New returns a Pipeline for cfg.
func New(cfg *config.Config, opts Options, options ...Option) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		opts:     opts,
		out:      io.Discard,
		reporter: progress.NullReporter{},
	}

	for _, o := range options {
		o(p)
	}

	return p
}

type prepared struct {
	machine     config.Machine
	modules     []*config.Module
	executables yaml.MapSlice
	args        yaml.MapSlice
}

func (p *Pipeline) prepare() (*prepared, error) {
	if err := p.opts.Validate(); err != nil {
		return nil, err
	}

	machine, err := p.cfg.Machine(p.opts.Machine)
	if err != nil {
		return nil, err
	}

	modules, err := p.cfg.Select(p.opts.Modules)
	if err != nil {
		return nil, err
	}

	if err := p.cfg.Validate(modules); err != nil {
		return nil, err
	}

	user, err := config.ApplySets(p.cfg.Args, p.opts.Sets)
	if err != nil {
		return nil, errors.Join(config.ErrConfiguration, err)
	}

	return &prepared{
		machine:     machine,
		modules:     modules,
		executables: machine.Executables(),
		args:        p.opts.namespace(user),
	}, nil
}

// LogDir is <output>/Logs/<dd.mm.yyyy>_<modules joined by ->.
func LogDir(outputDir string, modules []string, day time.Time) string {
	return filepath.Join(outputDir, LogsDir, day.Format(logDirDate)+"_"+strings.Join(modules, "-"))
}

// Run executes the invocation. The summary is returned whenever the log directory
// could be prepared, even alongside an error.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	prep, err := p.prepare()
	if err != nil {
		return nil, err
	}

	fs := FsFactory()
	start := now()

	sum := &Summary{
		Invocation: newInvocationID(),
		LogDir:     LogDir(p.opts.OutputDir, p.opts.Modules, start),
		Status:     true,
		Demo:       p.opts.Demo,
		Start:      start,
	}

	ctx = ctxlog.With(ctx, "invocation", sum.Invocation)
	logger := ctxlog.Logger(ctx)

	if err := fs.MkdirAll(sum.LogDir, 0o755); err != nil {
		return nil, errors.Join(ErrLogDir, err)
	}

	if err := p.writeInitConfigs(fs, sum, prep); err != nil {
		return nil, err
	}

	store, err := logstore.Open(fs, sum.LogDir)
	if err != nil {
		return nil, errors.Join(ErrLogDir, err)
	}

	runOpts := runbatch.RunOptions{
		TimeoutPolicy: p.opts.TimeoutPolicy,
		Debug:         p.opts.Debug,
		Shell:         prep.machine.Shell,
	}

	exec := stage.New(store, runOpts, stage.WithOutput(p.out), stage.WithReporter(p.reporter))

	for _, m := range prep.modules {
		mctx := ctxlog.With(ctx, "module", m.Name)

		pl, err := p.buildPlan(mctx, fs, m, prep)
		if err != nil {
			sum.fail()
			return sum, err
		}

		path, err := pl.Save(fs, sum.LogDir)
		if err != nil {
			sum.fail()
			return sum, err
		}

		ctxlog.Info(mctx, "plan saved", "path", path, "commands", pl.CommandCount())

		if p.opts.Demo {
			fmt.Fprintf(p.out, "Module %s: %d commands planned in %s\n", m.Name, pl.CommandCount(), path)
			sum.Planned = append(sum.Planned, pl)

			continue
		}

		if err := createFolders(fs, m.CreatedFolders(m.ResolveFolders(p.opts.InputDir, p.opts.OutputDir))); err != nil {
			sum.fail()
			return sum, err
		}

		res, runErr := exec.RunModule(mctx, pl, logstore.RunID(m.Name, now()))
		sum.add(res)

		if err := writeStatus(fs, sum); err != nil {
			logger.Error("could not write status log", "error", err)
			runErr = errors.Join(runErr, err)
		}

		if runErr != nil {
			return sum, runErr
		}

		if res.Interrupted {
			logger.Warn("run interrupted, remaining modules skipped", "module", m.Name)
			break
		}
	}

	sum.End = now()

	if !p.opts.Demo {
		if err := writeStatus(fs, sum); err != nil {
			return sum, err
		}
	}

	return sum, nil
}

func (p *Pipeline) buildPlan(ctx context.Context, fs afero.Fs, m *config.Module, prep *prepared) (*plan.Plan, error) {
	specs, err := m.StageSpecs()
	if err != nil {
		return nil, errors.Join(config.ErrConfiguration, err)
	}

	var found []samples.Sample

	if m.HasBatch() {
		res, err := samples.Discover(ctx, fs, samples.Options{
			Dir:        p.opts.InputDir,
			Extensions: m.SourceExtensions,
			Subfolders: p.opts.Subfolders,
			Include:    p.opts.Include,
			Exclude:    p.opts.Exclude,
		})
		if err != nil {
			return nil, errors.Join(config.ErrConfiguration, ErrDiscover, fmt.Errorf("module %s: %w", m.Name, err))
		}

		fmt.Fprintf(p.out, "Found %d samples, %d will be processed.\n", res.Found, len(res.Samples))

		found = res.Samples
	}

	return plan.Build(plan.Input{
		Module:    m.Name,
		Stages:    specs,
		Vars:      p.moduleContext(m, prep),
		Templates: p.cfg.Commands,
		Filenames: m.Filenames,
		Samples:   found,
	})
}

func (p *Pipeline) moduleContext(m *config.Module, prep *prepared) *expr.Context {
	return expr.NewContext(map[string]any{
		expr.NamespaceFolders:  m.ResolveFolders(p.opts.InputDir, p.opts.OutputDir),
		expr.NamespacePrograms: prep.executables,
		expr.NamespaceArgs:     prep.args,
	})
}

// ModuleContext returns the variables the templates of module are evaluated with.
// With a non-empty samplePath the sample's filenames are resolved and bound too.
func (p *Pipeline) ModuleContext(module, samplePath string) (*expr.Context, error) {
	prep, err := p.prepare()
	if err != nil {
		return nil, err
	}

	for _, m := range prep.modules {
		if m.Name != module {
			continue
		}

		vars := p.moduleContext(m, prep)

		if samplePath == "" {
			return vars, nil
		}

		names, err := plan.ExpandFilenames(vars, samplePath, m.Filenames)
		if err != nil {
			return nil, err
		}

		return vars.With(expr.NamespaceSample, samplePath).With(expr.NamespaceFilenames, names), nil
	}

	return nil, fmt.Errorf("%w: %q", config.ErrUnknownModule, module)
}

func (p *Pipeline) writeInitConfigs(fs afero.Fs, sum *Summary, prep *prepared) error {
	doc := yaml.MapSlice{
		{Key: "invocation", Value: sum.Invocation},
		{Key: "start_time", Value: sum.Start.Format(runbatch.RecordTimeFormat)},
		{Key: "log_dir", Value: sum.LogDir},
		{Key: "args", Value: prep.args},
		{Key: "executables", Value: prep.executables},
		{Key: "shell", Value: prep.machine.Shell},
		{Key: "sequence", Value: p.cfg.Sequence},
	}

	b, err := yaml.MarshalWithOptions(doc, yaml.IndentSequence(true))
	if err != nil {
		return errors.Join(ErrLogDir, err)
	}

	if err := afero.WriteFile(fs, filepath.Join(sum.LogDir, InitConfigsFile), b, 0o644); err != nil {
		return errors.Join(ErrLogDir, err)
	}

	return nil
}

func createFolders(fs afero.Fs, dirs []string) error {
	for _, d := range dirs {
		if err := fs.MkdirAll(d, 0o755); err != nil {
			return errors.Join(ErrFolders, fmt.Errorf("%s: %w", d, err))
		}
	}

	return nil
}

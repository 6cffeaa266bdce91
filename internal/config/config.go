// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/pipeframe/internal/ctxlog"
	"github.com/matt-FFFFFF/pipeframe/internal/plan"
	"github.com/spf13/afero"
)

// Configuration file names.
const (
	MachinesFile = "machines_template.yaml"
	ModulesFile  = "modules_template.yaml"
	CommandsFile = "cmds_template.yaml"
	ArgsFile     = "args.yaml"
)

const sequenceKey = "sequence"

// Config is the loaded configuration directory.
type Config struct {
	Dir      string
	Machines map[string]Machine
	// Sequence is the order modules always run in.
	Sequence []string
	Modules  map[string]*Module
	Commands plan.Templates
	// Args are the defaults from args.yaml, in declared order.
	Args yaml.MapSlice
}

// Load reads the configuration in dir from the FsFactory filesystem.
func Load(ctx context.Context, dir string) (*Config, error) {
	fs := FsFactory()
	logger := ctxlog.Logger(ctx).With("config_dir", dir)

	cfg := &Config{
		Dir:      dir,
		Machines: map[string]Machine{},
		Modules:  map[string]*Module{},
		Commands: plan.Templates{},
	}

	var merr *multierror.Error

	if b, err := readFile(fs, dir, MachinesFile, true); err != nil {
		merr = multierror.Append(merr, err)
	} else if err := yaml.UnmarshalWithOptions(b, &cfg.Machines, yaml.UseOrderedMap()); err != nil {
		merr = multierror.Append(merr, parseError(MachinesFile, err))
	}

	if b, err := readFile(fs, dir, CommandsFile, true); err != nil {
		merr = multierror.Append(merr, err)
	} else if err := yaml.Unmarshal(b, &cfg.Commands); err != nil {
		merr = multierror.Append(merr, parseError(CommandsFile, err))
	}

	if b, err := readFile(fs, dir, ModulesFile, true); err != nil {
		merr = multierror.Append(merr, err)
	} else if err := cfg.decodeModules(b); err != nil {
		merr = multierror.Append(merr, err)
	}

	if b, err := readFile(fs, dir, ArgsFile, false); err != nil {
		merr = multierror.Append(merr, err)
	} else if b != nil {
		if err := yaml.UnmarshalWithOptions(b, &cfg.Args, yaml.UseOrderedMap()); err != nil {
			merr = multierror.Append(merr, parseError(ArgsFile, err))
		}
	}

	if err := merr.ErrorOrNil(); err != nil {
		return nil, errors.Join(ErrConfiguration, err)
	}

	logger.Debug("configuration loaded",
		"machines", len(cfg.Machines),
		"modules", len(cfg.Modules),
		"commands", len(cfg.Commands),
	)

	return cfg, nil
}

func (cfg *Config) decodeModules(b []byte) error {
	var doc yaml.MapSlice
	if err := yaml.UnmarshalWithOptions(b, &doc, yaml.UseOrderedMap()); err != nil {
		return parseError(ModulesFile, err)
	}

	var merr *multierror.Error

	for _, item := range doc {
		name := toString(item.Key)

		if name == sequenceKey {
			cfg.Sequence = toStrings(item.Value)
			continue
		}

		raw, err := yaml.Marshal(item.Value)
		if err != nil {
			merr = multierror.Append(merr, parseError(ModulesFile, fmt.Errorf("module %s: %w", name, err)))
			continue
		}

		m := &Module{}
		if err := yaml.UnmarshalWithOptions(raw, m, yaml.UseOrderedMap(), yaml.DisallowUnknownField()); err != nil {
			merr = multierror.Append(merr, parseError(ModulesFile, fmt.Errorf("module %s: %w", name, err)))
			continue
		}

		m.Name = name
		cfg.Modules[name] = m
	}

	if len(cfg.Sequence) == 0 {
		merr = multierror.Append(merr, ErrNoSequence)
	}

	return merr.ErrorOrNil()
}

// Machine returns the named machine profile.
func (cfg *Config) Machine(name string) (Machine, error) {
	m, ok := cfg.Machines[name]
	if !ok {
		return Machine{}, errors.Join(ErrConfiguration, fmt.Errorf("%w: %q", ErrUnknownMachine, name))
	}

	return m, nil
}

// Select returns the requested modules in sequence order.
func (cfg *Config) Select(names []string) ([]*Module, error) {
	var merr *multierror.Error

	for _, n := range names {
		if _, ok := cfg.Modules[n]; !ok || !slices.Contains(cfg.Sequence, n) {
			merr = multierror.Append(merr, fmt.Errorf("%w: %q", ErrUnknownModule, n))
		}
	}

	if err := merr.ErrorOrNil(); err != nil {
		return nil, errors.Join(ErrConfiguration, err)
	}

	out := make([]*Module, 0, len(names))

	for _, n := range cfg.Sequence {
		if slices.Contains(names, n) {
			out = append(out, cfg.Modules[n])
		}
	}

	return out, nil
}

// Validate checks that every command key a module uses exists and that batch modules
// can discover samples.
func (cfg *Config) Validate(modules []*Module) error {
	var merr *multierror.Error

	for _, m := range modules {
		specs, err := m.StageSpecs()
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}

		for _, s := range specs {
			for i, key := range s.Keys {
				if slices.Contains(s.Keys[:i], key) {
					merr = multierror.Append(merr,
						fmt.Errorf("%w: module %s, stage %s, key %q", ErrDuplicateCommand, m.Name, s.Name, key))
				}

				if _, ok := cfg.Commands[key]; !ok {
					merr = multierror.Append(merr,
						fmt.Errorf("%w: module %s, stage %s, key %q", ErrUnknownCommand, m.Name, s.Name, key))
				}
			}
		}

		if m.HasBatch() && len(m.SourceExtensions) == 0 {
			merr = multierror.Append(merr, fmt.Errorf("%w: %s", ErrNoExtensions, m.Name))
		}
	}

	if err := merr.ErrorOrNil(); err != nil {
		return errors.Join(ErrConfiguration, err)
	}

	return nil
}

func readFile(fs afero.Fs, dir, name string, required bool) ([]byte, error) {
	b, err := afero.ReadFile(fs, filepath.Join(dir, name))

	switch {
	case err == nil:
		return b, nil
	case errors.Is(err, os.ErrNotExist) && !required:
		return nil, nil
	case errors.Is(err, os.ErrNotExist):
		return nil, &MissingFileError{Name: name, Dir: dir}
	default:
		return nil, fmt.Errorf("%w: %s: %w", ErrParse, name, err)
	}
}

func parseError(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrParse, name, err)
}

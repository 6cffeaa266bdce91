// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package plan

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/pipeframe/internal/expr"
)

var (
	// ErrExpansion is returned when any template of a group, filename set or plan fails.
	ErrExpansion = errors.New("template expansion failed")
	// ErrMissingTemplate is returned when a declared key has no command template.
	ErrMissingTemplate = errors.New("no command template declared for key")
	// ErrDuplicateKey is returned when a group lists the same command key twice.
	ErrDuplicateKey = errors.New("command key listed more than once in group")
	// ErrFilenameTemplate is returned for a filename entry that is not a name/string pair.
	ErrFilenameTemplate = errors.New("filename template must map a name to a string")
)

// Command is one expanded command, ready to run.
type Command struct {
	Title       string
	CommandLine string
	Timeout     time.Duration
}

// Group is an ordered list of commands.
type Group []Command

// Titles returns the command titles in order.
func (g Group) Titles() []string {
	out := make([]string, len(g))
	for i, c := range g {
		out[i] = c.Title
	}

	return out
}

// ExpandGroup expands the templates named by keys, in the order of keys.
func ExpandGroup(vars *expr.Context, keys []string, templates Templates) (Group, error) {
	var merr *multierror.Error

	g := expandGroup(vars, keys, templates, &merr)
	if err := merr.ErrorOrNil(); err != nil {
		return nil, errors.Join(ErrExpansion, err)
	}

	return g, nil
}

func expandGroup(vars *expr.Context, keys []string, templates Templates, merr **multierror.Error) Group {
	g := make(Group, 0, len(keys))
	seen := make(map[string]bool, len(keys))

	for _, key := range keys {
		if seen[key] {
			*merr = multierror.Append(*merr, fmt.Errorf("%w: %q", ErrDuplicateKey, key))
			continue
		}

		seen[key] = true

		tmpl, ok := templates[key]
		if !ok {
			*merr = multierror.Append(*merr, fmt.Errorf("%w: %q", ErrMissingTemplate, key))
			continue
		}

		line, err := vars.Evaluate(key, tmpl.Instruction)
		if err != nil {
			*merr = multierror.Append(*merr, err)
			continue
		}

		g = append(g, Command{
			Title:       key,
			CommandLine: line,
			Timeout:     time.Duration(tmpl.Timeout) * time.Second,
		})
	}

	return g
}

// ExpandFilenames resolves filename templates for one sample in declared order.
// samplePath is bound as "sample"; each resolved name is visible to the templates
// after it as filenames.<name>.
func ExpandFilenames(vars *expr.Context, samplePath string, filenames yaml.MapSlice) (yaml.MapSlice, error) {
	var merr *multierror.Error

	out := expandFilenames(vars, samplePath, filenames, &merr)
	if err := merr.ErrorOrNil(); err != nil {
		return nil, errors.Join(ErrExpansion, err)
	}

	return out, nil
}

func expandFilenames(vars *expr.Context, samplePath string, filenames yaml.MapSlice, merr **multierror.Error) yaml.MapSlice {
	resolved := make(map[string]any, len(filenames))
	out := make(yaml.MapSlice, 0, len(filenames))
	vars = vars.With(expr.NamespaceSample, samplePath)

	for _, item := range filenames {
		name, ok := item.Key.(string)
		raw, ok2 := item.Value.(string)

		if !ok || !ok2 {
			*merr = multierror.Append(*merr, fmt.Errorf("%w: %v", ErrFilenameTemplate, item.Key))
			continue
		}

		v, err := vars.With(expr.NamespaceFilenames, resolved).Evaluate(name, raw)
		if err != nil {
			*merr = multierror.Append(*merr, err)
			continue
		}

		resolved[name] = v
		out = append(out, yaml.MapItem{Key: name, Value: v})
	}

	return out
}

func lookup(ms yaml.MapSlice, key string) (string, bool) {
	for _, item := range ms {
		if k, ok := item.Key.(string); ok && k == key {
			s, ok := item.Value.(string)
			return s, ok
		}
	}

	return "", false
}

func toMap(ms yaml.MapSlice) map[string]any {
	m := make(map[string]any, len(ms))
	for _, item := range ms {
		m[fmt.Sprint(item.Key)] = item.Value
	}

	return m
}

// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package samples discovers the input files that a module's batch stage runs over.
package samples

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
)

var (
	// ErrNoSamples is returned when discovery and filtering leave nothing to process.
	ErrNoSamples = errors.New("no samples found; check the input directory, source extensions and include/exclude patterns")
	// ErrNoExtensions is returned when no source extensions are configured.
	ErrNoExtensions = errors.New("no source extensions configured")
	// ErrListDir is returned when the input directory cannot be read.
	ErrListDir = errors.New("failed to list input directory")
)

// Sample is one discovered input file.
type Sample struct {
	// Path is the cleaned path of the file.
	Path string
	// Ext is the configured source extension that matched.
	Ext string
}

// Name returns the file's base name without the matched extension.
func (s Sample) Name() string {
	return strings.TrimSuffix(filepath.Base(s.Path), s.Ext)
}

// Options controls discovery.
type Options struct {
	Dir        string
	Extensions []string
	// Subfolders walks the whole tree below Dir instead of Dir alone.
	Subfolders bool
	// Include keeps only files whose base name contains one of these substrings.
	Include []string
	// Exclude drops files whose base name contains one of these substrings.
	Exclude []string
}

// Result holds the discovered samples and how many files matched before filtering.
type Result struct {
	Samples []Sample
	Found   int
}

// Discover lists the samples under opts.Dir, sorted by path.
func Discover(ctx context.Context, fsys afero.Fs, opts Options) (*Result, error) {
	if len(opts.Extensions) == 0 {
		return nil, ErrNoExtensions
	}

	var found []Sample

	visit := func(path string, name string) {
		if ext, ok := matchExt(name, opts.Extensions); ok {
			found = append(found, Sample{Path: filepath.Clean(path), Ext: ext})
		}
	}

	if opts.Subfolders {
		err := afero.Walk(fsys, opts.Dir, func(path string, info fs.FileInfo, err error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if err != nil {
				return err
			}

			if !info.IsDir() {
				visit(path, info.Name())
			}

			return nil
		})
		if err != nil {
			return nil, errors.Join(ErrListDir, fmt.Errorf("%s: %w", opts.Dir, err))
		}
	} else {
		infos, err := afero.ReadDir(fsys, opts.Dir)
		if err != nil {
			return nil, errors.Join(ErrListDir, fmt.Errorf("%s: %w", opts.Dir, err))
		}

		for _, info := range infos {
			if !info.IsDir() {
				visit(filepath.Join(opts.Dir, info.Name()), info.Name())
			}
		}
	}

	res := &Result{Found: len(found)}

	for _, s := range found {
		if keep(filepath.Base(s.Path), opts.Include, opts.Exclude) {
			res.Samples = append(res.Samples, s)
		}
	}

	if len(res.Samples) == 0 {
		return res, ErrNoSamples
	}

	slices.SortFunc(res.Samples, func(a, b Sample) int {
		return strings.Compare(a.Path, b.Path)
	})

	return res, nil
}

// matchExt returns the longest configured extension that name ends with.
func matchExt(name string, exts []string) (string, bool) {
	best := ""

	for _, e := range exts {
		if e != "" && strings.HasSuffix(name, e) && len(e) > len(best) {
			best = e
		}
	}

	return best, best != ""
}

func keep(base string, include, exclude []string) bool {
	contains := func(subs []string) bool {
		return slices.ContainsFunc(subs, func(s string) bool {
			return strings.Contains(base, s)
		})
	}

	if len(include) > 0 && !contains(include) {
		return false
	}

	return !contains(exclude)
}

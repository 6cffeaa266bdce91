// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-getter/v2"
	"github.com/matt-FFFFFF/pipeframe/internal/ctxlog"
	"github.com/spf13/afero"
)

// Fetch makes the configuration directory at src available locally.
//
// A directory that already exists on the FsFactory filesystem is used in place.
// Anything else is downloaded with go-getter into a temporary directory, which the
// returned cleanup function removes.
func Fetch(ctx context.Context, src string) (string, func(), error) {
	noop := func() {}

	if src == "" {
		return "", noop, ErrGetConfig
	}

	if ok, _ := afero.DirExists(FsFactory(), src); ok {
		return src, noop, nil
	}

	tmpDir, err := os.MkdirTemp("", "pipeframe-getter-*")
	if err != nil {
		return "", noop, errors.Join(ErrGetConfig, err)
	}

	cleanup := func() {
		_ = os.RemoveAll(tmpDir)
	}

	wd, err := os.Getwd()
	if err != nil {
		cleanup()
		return "", noop, errors.Join(ErrGetConfig, err)
	}

	cli := getter.Client{
		DisableSymlinks: true,
	}

	req := &getter.Request{
		Src:     src,
		Dst:     filepath.Join(tmpDir, "config"),
		Pwd:     wd,
		GetMode: getter.ModeDir,
	}

	ctxlog.Debug(ctx, "fetching configuration", "src", src, "dst", req.Dst)

	res, err := cli.Get(ctx, req)
	if err != nil {
		cleanup()
		return "", noop, errors.Join(ErrGetConfig, err)
	}

	return res.Dst, cleanup, nil
}

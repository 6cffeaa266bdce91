// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config loads the configuration directory:
//
//   - machines_template.yaml: executables and environments per machine
//   - modules_template.yaml: the module sequence and each module's folders, filenames and command keys
//   - cmds_template.yaml: the command templates, keyed by title
//   - args.yaml (optional): default user arguments
//
// The directory may be local or any source go-getter understands.
package config

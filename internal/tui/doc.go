// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package tui provides a live terminal view of a run. It displays a tree of
// modules, stages, units and commands with status indicators, the last output line
// of running commands and the estimated time left in the batch stage.
//
// The view is fed by progress events, so the executor does not know it exists.
package tui

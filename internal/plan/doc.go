// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package plan expands command and filename templates into the ordered command plan
// of a module.
//
// Expansion never returns a partial plan: every template is attempted, all failures are
// collected, and any failure fails the whole plan with ErrExpansion.
package plan

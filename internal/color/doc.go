// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package color wraps console text in ANSI escape codes.
// Output is coloured when NO_COLOR is unset and either FORCE_COLOR is set or stdout
// is a terminal (golang.org/x/term).
package color

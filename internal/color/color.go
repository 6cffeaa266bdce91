// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package color

import (
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/term"
)

const (
	sbPadding = 16 // padding for the strings.Builder
)

const (
	// NoColor is the environment variable that disables color output.
	NoColor = "NO_COLOR"
	// ForceColor is the environment variable that forces color output.
	ForceColor = "FORCE_COLOR"
	reset      = "\033[0m"
	prefix     = "\033["
	suffix     = "m"
)

// Code represents an ANSI control code for text formatting.
type Code int

// Control codes for text formatting.
const (
	Reset Code = 0
	Bold  Code = 1
	Faint Code = 2
)

// Foreground text colors.
const (
	FgBlack Code = iota + 30
	FgRed
	FgGreen
	FgYellow
	FgBlue
	FgMagenta
	FgCyan
	FgWhite
)

// Foreground Hi-Intensity text colors.
const (
	FgHiBlack Code = iota + 90
	FgHiRed
	FgHiGreen
	FgHiYellow
	FgHiBlue
	FgHiMagenta
	FgHiCyan
	FgHiWhite
)

var enabled atomic.Bool

func init() {
	enabled.Store(isColorCapable())
}

// Enabled reports whether color output is enabled.
// It is initialised in package init() from NO_COLOR, FORCE_COLOR and terminal detection.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled overrides the detected color setting.
// The TUI turns colour off so that escape codes do not leak into its own rendering.
func SetEnabled(v bool) {
	enabled.Store(v)
}

// Colorize returns a string with ANSI color codes applied, followed by a reset.
func Colorize(str string, codes ...Code) string {
	if !Enabled() || len(codes) == 0 {
		return str
	}

	sb := strings.Builder{}
	sb.Grow(len(str) + len(prefix) + len(suffix) + len(reset) + sbPadding)
	writeCodes(&sb, codes)
	sb.WriteString(str)
	sb.WriteString(reset)

	return sb.String()
}

// ControlString returns the escape sequence for the given codes, or an empty string
// if color output is disabled.
func ControlString(codes ...Code) string {
	if !Enabled() {
		return ""
	}

	sb := strings.Builder{}
	writeCodes(&sb, codes)

	return sb.String()
}

func writeCodes(sb *strings.Builder, codes []Code) {
	sb.WriteString(prefix)

	for i, code := range codes {
		if i > 0 {
			sb.WriteString(";")
		}

		sb.WriteString(strconv.Itoa(int(code)))
	}

	sb.WriteString(suffix)
}

func isColorCapable() bool {
	if nc := os.Getenv(NoColor); nc != "" {
		return false
	}

	if fc := os.Getenv(ForceColor); fc != "" {
		return true
	}

	return term.IsTerminal(int(os.Stdout.Fd()))
}

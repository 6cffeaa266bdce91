// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package stage

import (
	"fmt"
	"strings"
	"time"

	"github.com/matt-FFFFFF/pipeframe/internal/color"
	"github.com/matt-FFFFFF/pipeframe/internal/progress"
	"github.com/matt-FFFFFF/pipeframe/internal/runbatch"
)

// observer prints command results and forwards them as progress events.
type observer struct {
	e      *Executor
	path   []string
	indent string
	debug  runbatch.DebugLevel
}

func (o *observer) commandPath(title string) []string {
	return append(append([]string{}, o.path...), title)
}

func (o *observer) CommandStarted(title string) {
	o.e.report(progress.EventStarted, o.commandPath(title), "", progress.EventData{})
}

func (o *observer) CommandFinished(oc *runbatch.Outcome) {
	fmt.Fprintf(o.e.out, "%s%s: %s Duration: %s.\n",
		o.indent, oc.Title, statusText(oc), runbatch.FormatDuration(oc.Duration, runbatch.PrecisionSecond))

	if o.debug.ShowStderr() {
		o.echo("STDERR", oc.Stderr)
	}

	if o.debug.ShowStdout() {
		o.echo("STDOUT", oc.Stdout)
	}

	t := progress.EventCompleted

	switch {
	case oc.Status == runbatch.StatusInterrupted:
		t = progress.EventInterrupted
	case !oc.OK():
		t = progress.EventFailed
	}

	msg := ""
	if oc.Err != nil {
		msg = oc.Err.Error()
	}

	o.e.report(t, o.commandPath(oc.Title), msg, progress.EventData{
		Status:  string(oc.Status),
		Elapsed: oc.Duration,
	})
}

func (o *observer) CommandSkipped(title string) {
	fmt.Fprintf(o.e.out, "%s%s: %s\n", o.indent, title, color.Colorize("SKIPPED", color.FgHiBlack))
	o.e.report(progress.EventSkipped, o.commandPath(title), "skipped after timeout", progress.EventData{})
}

func (o *observer) Heartbeat(title string, elapsed time.Duration, lastLine string) {
	o.e.report(progress.EventProgress, o.commandPath(title), "", progress.EventData{
		Elapsed:  elapsed,
		LastLine: lastLine,
	})
}

// echo prints every line of text, however long.
func (o *observer) echo(label, text string) {
	for line := range strings.Lines(text) {
		fmt.Fprintf(o.e.out, "%s: %s\n", label, strings.TrimSpace(line))
	}
}

func statusText(oc *runbatch.Outcome) string {
	switch oc.Status {
	case runbatch.StatusOK:
		return color.Colorize("OK", color.FgGreen) + "."
	case runbatch.StatusTimeout:
		return color.Colorize("TIMEOUT", color.FgYellow) + "."
	case runbatch.StatusInterrupted:
		return color.Colorize("INTERRUPTED", color.FgMagenta) + "."
	default:
		return color.Colorize("FAIL", color.FgRed) + ", exit code: " + oc.ExitCode.String() + "."
	}
}

func moduleName(s string) string {
	return color.Colorize(s, color.FgBlue)
}

func sampleName(s string) string {
	return color.Colorize(s, color.FgYellow)
}

// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package pipeline

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/pipeframe/internal/runbatch"
)

// Final status lines.
const (
	MsgSuccess     = "Pipeline finished successfully."
	MsgFailure     = "Pipeline finished with errors!"
	MsgInterrupted = "Pipeline interrupted."
)

type summaryStyles struct {
	ok, fail, warn, name, faint lipgloss.Style
}

func newSummaryStyles(w io.Writer) summaryStyles {
	r := lipgloss.NewRenderer(w)

	return summaryStyles{
		ok:    r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		fail:  r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		warn:  r.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		name:  r.NewStyle().Foreground(lipgloss.Color("12")),
		faint: r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// Render writes a human readable summary ending in the final status line.
func (s *Summary) Render(w io.Writer) error {
	sty := newSummaryStyles(w)

	var b strings.Builder

	if s.Demo {
		for _, p := range s.Planned {
			fmt.Fprintf(&b, "%s %s\n", sty.name.Render(p.Module),
				sty.faint.Render(fmt.Sprintf("%d stages, %d commands", len(p.Stages), p.CommandCount())))
		}

		fmt.Fprintf(&b, "Plans written to %s\n", s.LogDir)

		_, err := io.WriteString(w, b.String())

		return err
	}

	for _, m := range s.Modules {
		status := sty.ok.Render("OK")

		switch {
		case m.Interrupted:
			status = sty.warn.Render("INTERRUPTED")
		case !m.Status:
			status = sty.fail.Render("FAIL")
		}

		fmt.Fprintf(&b, "Module: %s %s %s\n", sty.name.Render(m.Module), status,
			sty.faint.Render(runbatch.FormatDuration(m.Duration(), runbatch.PrecisionSecond)))

		for _, stg := range m.Stages {
			for _, u := range stg.Units {
				for _, o := range u.Outcomes {
					if o.OK() {
						continue
					}

					fmt.Fprintf(&b, "\t%s/%s/%s: exit code %s\n", stg.Name, u.Name, o.Title, o.ExitCode)
				}

				for _, title := range u.Skipped {
					fmt.Fprintf(&b, "\t%s/%s/%s: %s\n", stg.Name, u.Name, title, sty.faint.Render("skipped"))
				}
			}
		}
	}

	fmt.Fprintf(&b, "Logs: %s\n", s.LogDir)

	switch {
	case s.Interrupted:
		b.WriteString(sty.warn.Render(MsgInterrupted))
	case s.Status:
		b.WriteString(sty.ok.Render(MsgSuccess))
	default:
		b.WriteString(sty.fail.Render(MsgFailure))
	}

	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())

	return err
}

// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/pipeframe/internal/progress"
)

// ProgressEventMsg carries a progress event into the TUI.
type ProgressEventMsg struct {
	Event progress.Event
}

// RunDoneMsg is sent when the run has finished.
type RunDoneMsg struct {
	Err error
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-4, 1)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case ProgressEventMsg:
		m.processProgressEvent(msg.Event)

	case RunDoneMsg:
		m.mutex.Lock()
		m.completed = true
		m.runErr = msg.Err
		m.mutex.Unlock()

		if m.ExitOnDone {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd

		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.viewport.SetContent(m.renderTree())

	var cmd tea.Cmd

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.styles.Title.Render("pipeframe"))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

func (m *Model) renderFooter() string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var parts []string

	for _, key := range m.etaOrder {
		d := m.eta[key]
		if d.Done >= d.Total {
			continue
		}

		parts = append(parts, fmt.Sprintf("%s: %d/%d samples, ETA %s", key, d.Done, d.Total, d.Remaining.Round(time.Second)))
	}

	switch {
	case m.completed && m.runErr != nil:
		parts = append(parts, m.styles.Error.Render("Run failed: "+m.runErr.Error()))
	case m.completed:
		parts = append(parts, m.styles.Success.Render("Run finished"))
	}

	if m.completed {
		parts = append(parts, m.styles.Help.Render("Press q to exit"))
	} else {
		parts = append(parts, m.styles.Help.Render("Press q or ctrl+c to interrupt"))
	}

	return strings.Join(parts, "\n")
}

// renderTree renders the whole node tree.
func (m *Model) renderTree() string {
	m.mutex.RLock()
	children := append([]*Node(nil), m.root.Children...)
	m.mutex.RUnlock()

	var b strings.Builder

	for i, child := range children {
		m.renderNode(&b, child, "", i == len(children)-1)
	}

	return b.String()
}

func (m *Model) renderNode(b *strings.Builder, node *Node, prefix string, isLast bool) {
	info := node.Info()

	connector := "├── "
	childPrefix := prefix + "│   "

	if isLast {
		connector = "└── "
		childPrefix = prefix + "    "
	}

	b.WriteString(m.styles.TreeBranch.Render(prefix + connector))
	b.WriteString(m.statusIcon(info.Status))
	b.WriteString(" ")
	b.WriteString(m.statusStyle(info.Status).Render(info.Name))

	if d := duration(info); d > 0 {
		b.WriteString(m.styles.Pending.Render(fmt.Sprintf(" (%s)", d.Round(time.Second))))
	}

	switch {
	case info.Status == StatusRunning && info.LastOutput != "":
		b.WriteString(" ")
		b.WriteString(m.styles.Output.Render(truncate(info.LastOutput, m.width/2)))
	case info.Message != "" && info.Status != StatusRunning:
		b.WriteString(" ")
		b.WriteString(m.styles.Error.Render(truncate(info.Message, m.width/2)))
	}

	b.WriteString("\n")

	node.mutex.RLock()
	children := append([]*Node(nil), node.Children...)
	node.mutex.RUnlock()

	for i, child := range children {
		m.renderNode(b, child, childPrefix, i == len(children)-1)
	}
}

func (m *Model) statusIcon(s NodeStatus) string {
	switch s {
	case StatusRunning:
		return m.spinner.View()
	case StatusSuccess:
		return m.styles.Success.Render("✓")
	case StatusFailed:
		return m.styles.Failed.Render("✗")
	case StatusSkipped:
		return m.styles.Skipped.Render("-")
	case StatusInterrupted:
		return m.styles.Interrupted.Render("!")
	default:
		return m.styles.Pending.Render("○")
	}
}

func (m *Model) statusStyle(s NodeStatus) lipgloss.Style {
	switch s {
	case StatusRunning:
		return m.styles.Running
	case StatusSuccess:
		return m.styles.Success
	case StatusFailed:
		return m.styles.Failed
	case StatusSkipped:
		return m.styles.Skipped
	case StatusInterrupted:
		return m.styles.Interrupted
	default:
		return m.styles.Pending
	}
}

func duration(info DisplayInfo) time.Duration {
	if info.StartTime == nil {
		return 0
	}

	if info.EndTime != nil {
		return info.EndTime.Sub(*info.StartTime)
	}

	return time.Since(*info.StartTime)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 3 || len(r) <= n {
		return s
	}

	return string(r[:n-3]) + "..."
}

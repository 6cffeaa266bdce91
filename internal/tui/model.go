// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/pipeframe/internal/progress"
)

// NodeStatus represents the current state of a node in the tree.
type NodeStatus int

const (
	StatusPending NodeStatus = iota
	StatusRunning
	StatusSuccess
	StatusFailed
	StatusSkipped
	StatusInterrupted
)

// String returns a string representation of the node status.
func (s NodeStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	case StatusInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Node is a module, stage, unit or command in the tree.
type Node struct {
	Path       []string
	Name       string
	Status     NodeStatus
	StartTime  *time.Time
	EndTime    *time.Time
	LastOutput string
	Message    string
	Children   []*Node
	mutex      sync.RWMutex
}

// NewNode creates a pending node.
func NewNode(path []string, name string) *Node {
	return &Node{
		Path:     append([]string(nil), path...),
		Name:     name,
		Status:   StatusPending,
		Children: make([]*Node, 0),
	}
}

// UpdateStatus sets the status and records start and end times.
func (n *Node) UpdateStatus(status NodeStatus, at time.Time) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	n.Status = status

	switch status {
	case StatusRunning:
		if n.StartTime == nil {
			n.StartTime = &at
		}
	case StatusSuccess, StatusFailed, StatusInterrupted:
		if n.EndTime == nil {
			n.EndTime = &at
		}
	}
}

// UpdateOutput keeps the last non-empty line of output.
func (n *Node) UpdateOutput(output string) {
	output = strings.TrimSpace(output)
	if output == "" {
		return
	}

	n.mutex.Lock()
	defer n.mutex.Unlock()

	lines := strings.Split(output, "\n")
	n.LastOutput = strings.TrimSpace(lines[len(lines)-1])
}

// UpdateMessage sets the message shown next to failed or skipped nodes.
func (n *Node) UpdateMessage(msg string) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	n.Message = msg
}

// DisplayInfo is a snapshot of a node for rendering.
type DisplayInfo struct {
	Status     NodeStatus
	Name       string
	LastOutput string
	Message    string
	StartTime  *time.Time
	EndTime    *time.Time
}

// Info returns a snapshot of the node.
func (n *Node) Info() DisplayInfo {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	return DisplayInfo{
		Status:     n.Status,
		Name:       n.Name,
		LastOutput: n.LastOutput,
		Message:    n.Message,
		StartTime:  n.StartTime,
		EndTime:    n.EndTime,
	}
}

// Model represents the TUI application state.
type Model struct {
	root    *Node
	nodeMap map[string]*Node
	width   int
	height  int

	quitting  bool
	completed bool
	runErr    error
	// eta is the latest batch estimate, keyed by stage path.
	eta      map[string]progress.EventData
	etaOrder []string

	// ExitOnDone quits as soon as the run finishes instead of waiting for a key.
	ExitOnDone bool

	spinner  spinner.Model
	viewport viewport.Model
	styles   *Styles
	mutex    sync.RWMutex
}

// Styles contains all the styling for the TUI.
type Styles struct {
	Title       lipgloss.Style
	Pending     lipgloss.Style
	Running     lipgloss.Style
	Success     lipgloss.Style
	Failed      lipgloss.Style
	Skipped     lipgloss.Style
	Interrupted lipgloss.Style
	Output      lipgloss.Style
	Error       lipgloss.Style
	Help        lipgloss.Style
	TreeBranch  lipgloss.Style
	Border      lipgloss.Style
}

// NewStyles creates the default styling for the TUI.
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginBottom(1),
		Pending: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		Running: lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")),
		Failed: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")),
		Skipped: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Strikethrough(true),
		Interrupted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("13")),
		Output: lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			Italic(true),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Italic(true),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			MarginTop(1),
		TreeBranch: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")),
	}
}

const (
	defaultWidth  = 100
	defaultHeight = 30
)

// NewModel creates a new TUI model.
func NewModel() *Model {
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("11"))),
	)

	return &Model{
		root:     NewNode(nil, "root"),
		nodeMap:  make(map[string]*Node),
		eta:      make(map[string]progress.EventData),
		spinner:  sp,
		viewport: viewport.New(defaultWidth, defaultHeight),
		styles:   NewStyles(),
		width:    defaultWidth,
		height:   defaultHeight,
	}
}

func pathToString(path []string) string {
	return strings.Join(path, "/")
}

// getOrCreateNode returns the node at path, creating it and any missing parents.
func (m *Model) getOrCreateNode(path []string) *Node {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.getOrCreateNodeLocked(path)
}

func (m *Model) getOrCreateNodeLocked(path []string) *Node {
	if len(path) == 0 {
		return m.root
	}

	key := pathToString(path)
	if node, ok := m.nodeMap[key]; ok {
		return node
	}

	parent := m.getOrCreateNodeLocked(path[:len(path)-1])
	node := NewNode(path, path[len(path)-1])

	m.nodeMap[key] = node
	parent.Children = append(parent.Children, node)

	return node
}

// processProgressEvent applies one event to the tree.
func (m *Model) processProgressEvent(event progress.Event) {
	node := m.getOrCreateNode(event.Path)

	switch event.Type {
	case progress.EventStarted:
		node.UpdateStatus(StatusRunning, event.Timestamp)

	case progress.EventCompleted:
		node.UpdateStatus(StatusSuccess, event.Timestamp)

	case progress.EventFailed:
		node.UpdateStatus(StatusFailed, event.Timestamp)

		switch {
		case event.Message != "":
			node.UpdateMessage(event.Message)
		case event.Data.Status != "":
			node.UpdateMessage(event.Data.Status)
		}

	case progress.EventInterrupted:
		node.UpdateStatus(StatusInterrupted, event.Timestamp)

	case progress.EventSkipped:
		node.UpdateStatus(StatusSkipped, event.Timestamp)
		node.UpdateMessage(event.Message)

	case progress.EventProgress:
		if event.Data.Total > 0 {
			m.mutex.Lock()

			key := event.Key()
			if _, ok := m.eta[key]; !ok {
				m.etaOrder = append(m.etaOrder, key)
			}

			m.eta[key] = event.Data
			m.mutex.Unlock()
		}

		node.UpdateOutput(event.Data.LastLine)
	}
}

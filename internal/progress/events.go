// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"strings"
	"time"
)

// Event is a single progress notification.
type Event struct {
	// Path locates the event: module, stage, unit (sample) and command title, as far as known.
	Path      []string
	Type      EventType
	Message   string
	Timestamp time.Time
	Data      EventData
}

// Key joins Path for use as a map key.
func (e Event) Key() string {
	return strings.Join(e.Path, "/")
}

// EventType says what happened.
type EventType int

const (
	// EventStarted is sent when a module, stage, unit or command starts.
	EventStarted EventType = iota
	// EventProgress carries a heartbeat or an ETA update.
	EventProgress
	// EventCompleted is sent when something finished successfully.
	EventCompleted
	// EventFailed is sent when something finished unsuccessfully.
	EventFailed
	// EventSkipped is sent for commands skipped after a timeout.
	EventSkipped
	// EventInterrupted is sent when the run was interrupted.
	EventInterrupted
)

func (et EventType) String() string {
	switch et {
	case EventStarted:
		return "started"
	case EventProgress:
		return "progress"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	case EventSkipped:
		return "skipped"
	case EventInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// EventData holds type specific fields.
type EventData struct {
	// Status is the command status (OK, FAIL, TIMEOUT, INTERRUPTED) for finished commands.
	Status string
	// LastLine is the latest output line seen in a heartbeat.
	LastLine string
	Elapsed  time.Duration
	// Remaining is the estimated time left in the batch stage.
	Remaining time.Duration
	Done      int
	Total     int
}

// Reporter receives events.
type Reporter interface {
	Report(event Event)
	Close()
}

// Listener handles events forwarded by a ChannelReporter.
type Listener interface {
	OnEvent(event Event)
}

// NullReporter discards everything.
type NullReporter struct{}

// Report implements Reporter.
func (NullReporter) Report(Event) {}

// Close implements Reporter.
func (NullReporter) Close() {}

// OrNull returns r, or a NullReporter when r is nil.
func OrNull(r Reporter) Reporter {
	if r == nil {
		return NullReporter{}
	}

	return r
}

// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"sync"
)

// ChannelReporter buffers events in a channel for a single consumer.
// When the buffer is full events are dropped.
type ChannelReporter struct {
	mu     sync.RWMutex
	ch     chan Event
	closed bool
	wg     sync.WaitGroup
}

// NewChannelReporter creates a ChannelReporter with the given buffer size.
func NewChannelReporter(bufferSize int) *ChannelReporter {
	return &ChannelReporter{
		ch: make(chan Event, bufferSize),
	}
}

// Report implements Reporter. It never blocks.
func (cr *ChannelReporter) Report(event Event) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	if cr.closed {
		return
	}

	select {
	case cr.ch <- event:
	default:
	}
}

// Close closes the channel and waits for a listener started with Listen to drain it.
func (cr *ChannelReporter) Close() {
	cr.mu.Lock()

	if cr.closed {
		cr.mu.Unlock()
		return
	}

	cr.closed = true
	close(cr.ch)
	cr.mu.Unlock()

	cr.wg.Wait()
}

// Listen forwards every event to listener on a new goroutine until Close.
func (cr *ChannelReporter) Listen(listener Listener) {
	cr.wg.Add(1)

	go func() {
		defer cr.wg.Done()

		for event := range cr.ch {
			listener.OnEvent(event)
		}
	}()
}

// Events returns the event channel for manual consumption.
func (cr *ChannelReporter) Events() <-chan Event {
	return cr.ch
}

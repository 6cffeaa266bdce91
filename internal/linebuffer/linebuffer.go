// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package linebuffer provides a bounded capture buffer for child process output.
//
// Buffer keeps at most a fixed number of bytes and remembers the last complete line
// written, which the runner shows in its debug heartbeat. It is safe for concurrent use.
package linebuffer

import (
	"bytes"
	"strings"
	"sync"
)

// maxPartial bounds the unfinished line kept for LastLine.
const maxPartial = 4096

// Buffer is an io.Writer that captures up to max bytes.
type Buffer struct {
	mu        sync.RWMutex
	buf       bytes.Buffer
	max       int
	truncated bool
	lastLine  string
	partial   strings.Builder
}

// New returns a Buffer that keeps at most max bytes. A max of zero or less keeps everything.
func New(max int) *Buffer {
	return &Buffer{max: max}
}

// Write always reports len(p) bytes written so that the producer keeps draining
// even after the capture limit is reached.
func (b *Buffer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	keep := p

	if b.max > 0 {
		room := b.max - b.buf.Len()
		if room < len(keep) {
			if room < 0 {
				room = 0
			}

			keep = keep[:room]
			b.truncated = true
		}
	}

	b.buf.Write(keep)
	b.track(string(p))

	return len(p), nil
}

// track must be called with the write lock held.
func (b *Buffer) track(data string) {
	idx := strings.LastIndexByte(data, '\n')
	if idx < 0 {
		b.keepPartial(data)
		return
	}

	head := data[:idx]
	if prev := strings.LastIndexByte(head, '\n'); prev >= 0 {
		b.lastLine = strings.TrimRight(head[prev+1:], "\r")
	} else {
		b.lastLine = strings.TrimRight(b.partial.String()+head, "\r")
	}

	b.partial.Reset()
	b.keepPartial(data[idx+1:])
}

// keepPartial appends to the unfinished line, up to maxPartial bytes.
func (b *Buffer) keepPartial(s string) {
	if room := maxPartial - b.partial.Len(); room < len(s) {
		s = s[:max(room, 0)]
	}

	b.partial.WriteString(s)
}

// LastLine returns the last complete line written, shortened to maxLength with a
// trailing "..." when maxLength is positive.
func (b *Buffer) LastLine(maxLength int) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	line := b.lastLine
	if maxLength > 3 && len(line) > maxLength {
		line = line[:maxLength-3] + "..."
	}

	return line
}

// String returns the captured data.
func (b *Buffer) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.buf.String()
}

// Truncated reports whether data was discarded because the limit was reached.
func (b *Buffer) Truncated() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.truncated
}

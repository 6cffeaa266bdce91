// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/matt-FFFFFF/pipeframe/internal/ctxlog"
	"github.com/prashantv/gostub"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quietCtx() context.Context {
	return ctxlog.New(context.Background(), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
}

func TestWatch_FirstSignalCancels(t *testing.T) {
	var exits atomic.Int32

	stubs := gostub.Stub(&ForceExit, func() { exits.Add(1) })
	defer stubs.Reset()

	ctx, cancel := context.WithCancel(quietCtx())
	defer cancel()

	sigCh := make(chan os.Signal, 1)

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()
		Watch(ctx, sigCh, cancel)
	}()

	sigCh <- os.Interrupt

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context should be cancelled after first signal")
	}

	close(sigCh)
	wg.Wait()
	assert.Equal(t, int32(0), exits.Load())
}

func TestWatch_SecondSignalForcesExit(t *testing.T) {
	var exits atomic.Int32

	stubs := gostub.Stub(&ForceExit, func() { exits.Add(1) })
	defer stubs.Reset()

	ctx, cancel := context.WithCancel(quietCtx())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	sigCh <- os.Interrupt
	sigCh <- syscall.SIGTERM

	Watch(ctx, sigCh, cancel)

	assert.Equal(t, int32(1), exits.Load())
	assert.Error(t, ctx.Err())
}

func TestWatch_ClosedChannelReturns(t *testing.T) {
	ctx, cancel := context.WithCancel(quietCtx())
	defer cancel()

	sigCh := make(chan os.Signal)
	close(sigCh)

	Watch(ctx, sigCh, cancel)
	assert.NoError(t, ctx.Err())
}

func TestNewAndStop(t *testing.T) {
	ch := New(quietCtx(), syscall.SIGTERM)
	Stop(ch)

	_, ok := <-ch
	assert.False(t, ok)
}

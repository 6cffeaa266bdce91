// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"os"

	"github.com/matt-FFFFFF/pipeframe/internal/ctxlog"
)

// InterruptedExitCode is the process exit code used when a second signal forces exit.
const InterruptedExitCode = 130

// ForceExit terminates the process. Tests replace it.
var ForceExit = func() { os.Exit(InterruptedExitCode) }

// Watch handles signals from sigCh until it is closed.
// The first signal calls cancel; the next one calls ForceExit.
func Watch(ctx context.Context, sigCh chan os.Signal, cancel context.CancelFunc) {
	interrupted := false

	for sig := range sigCh {
		if interrupted {
			ctxlog.Error(ctx, "second interrupt received, exiting", "signal", sig.String())
			ForceExit()

			return
		}

		interrupted = true

		ctxlog.Warn(ctx, "interrupt received, stopping running commands; send again to exit immediately",
			"signal", sig.String())
		cancel()
	}
}

// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ctxlog carries a *slog.Logger through context.Context.
//
// The level is shared by every logger built here through LevelVar. It is read from
// the <EXECUTABLE>_LOG_LEVEL environment variable at start-up (PIPEFRAME_LOG_LEVEL for
// the default binary name) and may be overridden later with SetLevel, which is what the
// --log-level flag does.
package ctxlog

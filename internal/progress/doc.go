// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package progress carries execution events from the stage executor to a live view.
//
// The executor always writes its plain console output; a Reporter is an additional
// listener, used by the TUI. Reporters never block the executor.
package progress

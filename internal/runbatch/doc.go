// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package runbatch runs shell command lines as child processes and groups their
// outcomes into units.
//
// OSCommand runs one command line and always returns exactly one Outcome. RunUnit runs an
// ordered group of commands, applying the timeout policy and stopping on interruption.
// Neither writes logs; persistence belongs to the caller.
package runbatch

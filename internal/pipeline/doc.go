// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package pipeline drives a whole invocation: it prepares the log directory, builds and
// saves each selected module's plan, runs it through the stage executor and keeps
// status_log.yaml current after every module.
package pipeline

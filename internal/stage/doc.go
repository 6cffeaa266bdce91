// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package stage executes an expanded plan one stage at a time.
//
// Flat stages run as a single unit. The batch stage runs one unit per sample and reports
// an estimate of the time left after each one. Every unit is persisted as soon as it
// finishes. An interrupted command ends the module at once and the partial result is
// returned.
package stage

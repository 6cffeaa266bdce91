// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package logstore persists unit results into three YAML stores that share one layout:
//
//	<run id>:
//	  <unit>:
//	    <title>: <record or captured text>
//
// log.yaml holds outcome records, stdout_log.yaml and stderr_log.yaml the captured output.
//
// Persisting a unit replaces that unit's entry in its run wholesale. Other units of the
// run and all other runs in the file are kept as they are.
package logstore

// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package expr evaluates configuration templates against a Context of named namespaces.
//
// A template is either literal text, returned unchanged, or a computed template written
// f"..." or f'...'. A computed body uses {expression} interpolation, with {{ and }} for
// literal braces:
//
//	f"{folders.bam}{filenames.basename}.bam"
//	f"{programs['samtools']} index {path_join(folders.bam, sample)}"
//
// Expressions are HCL expressions evaluated with hclsyntax. Variables are the Context
// namespaces (folders, programs, args, filenames, sample). Only the functions listed in
// Functions may be called.
package expr

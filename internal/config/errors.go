// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration wraps every configuration problem found at startup.
	ErrConfiguration = errors.New("configuration error")
	// ErrParse is returned when a configuration file is not valid YAML for its schema.
	ErrParse = errors.New("failed to parse configuration file")
	// ErrUnknownMachine is returned when the requested machine has no profile.
	ErrUnknownMachine = errors.New("unknown machine")
	// ErrUnknownModule is returned when a requested module is not defined or not in the sequence.
	ErrUnknownModule = errors.New("unknown module")
	// ErrNoSequence is returned when modules_template.yaml has no sequence.
	ErrNoSequence = errors.New("modules_template.yaml has no sequence")
	// ErrUnknownCommand is returned when a module refers to a title missing from cmds_template.yaml.
	ErrUnknownCommand = errors.New("command key not found in cmds_template.yaml")
	// ErrUnknownStage is returned when a module's stage order names a stage it has no commands for.
	ErrUnknownStage = errors.New("stage has no command group")
	// ErrDuplicateStage is returned when a module's stage order names a stage twice.
	ErrDuplicateStage = errors.New("stage listed more than once")
	// ErrDuplicateCommand is returned when a command group lists the same title twice.
	ErrDuplicateCommand = errors.New("command key listed more than once in group")
	// ErrNoExtensions is returned when a module with a batch stage has no source extensions.
	ErrNoExtensions = errors.New("module has sample_level commands but no source_extensions")
	// ErrSetFlag is returned for a malformed key=value override.
	ErrSetFlag = errors.New("override must be key=value")
	// ErrGetConfig is returned when the configuration directory could not be fetched.
	ErrGetConfig = errors.New("failed to get configuration directory")
)

// MissingFileError is returned when a required configuration file does not exist.
type MissingFileError struct {
	Name string
	Dir  string
}

// Error implements the error interface.
func (e *MissingFileError) Error() string {
	return fmt.Sprintf("%s not found in %s", e.Name, e.Dir)
}

// Unwrap makes errors.Is(err, ErrConfiguration) hold.
func (e *MissingFileError) Unwrap() error {
	return ErrConfiguration
}

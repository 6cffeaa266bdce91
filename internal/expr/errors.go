// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package expr

import (
	"errors"
	"fmt"
)

var (
	// ErrEvaluate is wrapped by every evaluation failure.
	ErrEvaluate = errors.New("template evaluation failed")
	// ErrMalformed is returned when a computed template body cannot be translated.
	ErrMalformed = errors.New("malformed template")
	// ErrStringAddition is returned when "+" is given an operand that is not a number.
	ErrStringAddition = errors.New(`"+" adds numbers only, build strings with interpolation or format("%s.ext", ...)`)
	// ErrResult is returned when an expression yields a value that is not a usable string.
	ErrResult = errors.New("template result is not a string")
)

// EvalError reports a failed template with the key it was declared under.
type EvalError struct {
	Key         string
	Instruction string
	Err         error
}

// Error implements error.
func (e *EvalError) Error() string {
	return fmt.Sprintf("cannot evaluate %q (%s): %v", e.Key, e.Instruction, e.Err)
}

// Unwrap exposes ErrEvaluate and the underlying cause.
func (e *EvalError) Unwrap() []error {
	return []error{ErrEvaluate, e.Err}
}

// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package plan

import (
	"errors"
	"fmt"
	"math"
)

// ErrTemplateFormat is returned when a command template is neither a string
// nor a [timeout_seconds, instruction] pair.
var ErrTemplateFormat = errors.New("command template must be a string or [timeout_seconds, instruction]")

// Template is a declared command instruction.
type Template struct {
	// Timeout in seconds. Zero means no limit.
	Timeout     int
	Instruction string
}

// Templates maps a command title to its template.
type Templates map[string]Template

// UnmarshalYAML accepts "instruction" or [timeout_seconds, "instruction"].
func (t *Template) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case string:
		*t = Template{Instruction: v}
		return nil
	case []any:
		if len(v) != 2 {
			return fmt.Errorf("%w: got %d elements", ErrTemplateFormat, len(v))
		}

		timeout, err := seconds(v[0])
		if err != nil {
			return err
		}

		instr, ok := v[1].(string)
		if !ok {
			return fmt.Errorf("%w: instruction is %T", ErrTemplateFormat, v[1])
		}

		*t = Template{Timeout: timeout, Instruction: instr}

		return nil
	default:
		return fmt.Errorf("%w: got %T", ErrTemplateFormat, raw)
	}
}

// MarshalYAML writes the short form when there is no timeout.
func (t Template) MarshalYAML() (any, error) {
	if t.Timeout == 0 {
		return t.Instruction, nil
	}

	return []any{t.Timeout, t.Instruction}, nil
}

func seconds(v any) (int, error) {
	var n int

	switch x := v.(type) {
	case int:
		n = x
	case int64:
		n = int(x)
	case uint64:
		if x > math.MaxInt32 {
			return 0, fmt.Errorf("%w: timeout %d too large", ErrTemplateFormat, x)
		}

		n = int(x)
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("%w: timeout %v is not whole seconds", ErrTemplateFormat, x)
		}

		n = int(x)
	default:
		return 0, fmt.Errorf("%w: timeout is %T", ErrTemplateFormat, v)
	}

	if n < 0 {
		return 0, fmt.Errorf("%w: negative timeout %d", ErrTemplateFormat, n)
	}

	return n, nil
}

// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
)

// ApplySets overlays key=value overrides onto args. Values are read as YAML scalars,
// so numbers and booleans keep their type.
func ApplySets(args yaml.MapSlice, sets []string) (yaml.MapSlice, error) {
	out := make(yaml.MapSlice, len(args))
	copy(out, args)

	for _, s := range sets {
		key, raw, ok := strings.Cut(s, "=")
		key = strings.TrimSpace(key)

		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrSetFlag, s)
		}

		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil || isCollection(v) {
			v = raw
		}

		if v == nil {
			v = raw
		}

		out = setItem(out, key, v)
	}

	return out, nil
}

func isCollection(v any) bool {
	switch v.(type) {
	case map[string]any, []any, yaml.MapSlice:
		return true
	default:
		return false
	}
}

// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"strings"

	"github.com/goccy/go-yaml"
)

const (
	envPlaceholder    = "env"
	binaryPlaceholder = "binary"
)

// Machine is one entry of machines_template.yaml.
type Machine struct {
	// Binaries maps a program key to its executable path. Order is kept.
	Binaries yaml.MapSlice `yaml:"binaries"`
	// Envs maps a program key to the environment it must run in.
	Envs map[string]string `yaml:"envs"`
	// EnvCommand wraps a binary in its environment; "env" and "binary" are replaced.
	EnvCommand string `yaml:"env_command"`
	// Shell overrides the default shell, e.g. ["/bin/zsh", "-c"].
	Shell []string `yaml:"shell"`
}

// Executables returns the command each program key is invoked with, in declared order.
// Programs with an environment are wrapped in EnvCommand.
func (m Machine) Executables() yaml.MapSlice {
	out := make(yaml.MapSlice, 0, len(m.Binaries))

	for _, item := range m.Binaries {
		key := toString(item.Key)
		binary := toString(item.Value)

		env, ok := m.Envs[key]
		if !ok || m.EnvCommand == "" {
			out = append(out, yaml.MapItem{Key: key, Value: binary})
			continue
		}

		r := strings.NewReplacer(envPlaceholder, env, binaryPlaceholder, binary)
		out = append(out, yaml.MapItem{Key: key, Value: r.Replace(m.EnvCommand)})
	}

	return out
}

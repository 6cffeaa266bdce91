// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode_YAML(t *testing.T) {
	in := map[string]ExitCode{
		"ok":          0,
		"failed":      2,
		"timeout":     ExitTimeout,
		"interrupted": ExitInterrupted,
		"not_started": ExitNotStarted,
	}

	b, err := yaml.Marshal(in)
	require.NoError(t, err)

	s := string(b)
	assert.Contains(t, s, "timeout: TIMEOUT")
	assert.Contains(t, s, "interrupted: INTERRUPTED")
	assert.Contains(t, s, "failed: 2")
	assert.Contains(t, s, "not_started: -1")

	var out map[string]ExitCode
	require.NoError(t, yaml.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}

func TestExitCode_UnmarshalInvalid(t *testing.T) {
	var out map[string]ExitCode
	err := yaml.Unmarshal([]byte("a: CRASHED\n"), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CRASHED")
}

func TestExitCode_String(t *testing.T) {
	assert.Equal(t, "TIMEOUT", ExitTimeout.String())
	assert.Equal(t, "INTERRUPTED", ExitInterrupted.String())
	assert.Equal(t, "137", ExitCode(137).String())
	assert.True(t, ExitTimeout.IsSentinel())
	assert.False(t, ExitCode(0).IsSentinel())
}

func TestParseTimeoutPolicy(t *testing.T) {
	p, err := ParseTimeoutPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyStop, p)

	p, err = ParseTimeoutPolicy("NEXT")
	require.NoError(t, err)
	assert.Equal(t, PolicyNext, p)

	_, err = ParseTimeoutPolicy("retry")
	require.ErrorIs(t, err, ErrTimeoutPolicy)
}

func TestParseDebugLevel(t *testing.T) {
	tests := []struct {
		in        string
		want      DebugLevel
		out, errs bool
	}{
		{"", DebugNone, false, false},
		{"none", DebugNone, false, false},
		{"errors", DebugErrors, false, true},
		{"info", DebugInfo, true, false},
		{"All", DebugAll, true, true},
	}

	for _, tt := range tests {
		l, err := ParseDebugLevel(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, l)
		assert.Equal(t, tt.out, l.ShowStdout(), tt.in)
		assert.Equal(t, tt.errs, l.ShowStderr(), tt.in)
	}

	_, err := ParseDebugLevel("verbose")
	require.ErrorIs(t, err, ErrDebugLevel)
}

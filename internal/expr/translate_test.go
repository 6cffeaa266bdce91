// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHCLTemplate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"{a}", "${a}"},
		{"x{a.b}y", "x${a.b}y"},
		{"{{literal}}", "{literal}"},
		{"{a['k']}", `${a["k"]}`},
		{`{a['say "hi"']}`, `${a["say \"hi\""]}`},
		{`{a['it\'s']}`, `${a["it's"]}`},
		{"${{HOME}}", "$${HOME}"},
		{"%{{x}}", "%%{x}"},
		{"${a}", `${"$"}${a}`},
		{"$${a}", `${"$"}${"$"}${a}`},
		{"end$", "end$"},
		{"{ f(x, 'a{b}') }", `${f(x, "a{b}")}`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := toHCLTemplate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToHCLTemplate_Malformed(t *testing.T) {
	for _, in := range []string{"}", "a}b", "{a", "{ }", "{'a}"} {
		t.Run(in, func(t *testing.T) {
			_, err := toHCLTemplate(in)
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

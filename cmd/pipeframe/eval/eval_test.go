// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package eval

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/matt-FFFFFF/pipeframe/cmd/pipeframe/runflags"
	"github.com/matt-FFFFFF/pipeframe/internal/config"
	"github.com/matt-FFFFFF/pipeframe/internal/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func testVars() *expr.Context {
	return expr.NewContext(map[string]any{
		expr.NamespaceArgs: map[string]any{
			"threads": 4,
			"name":    "run1",
			"tags":    []any{"a", "b"},
		},
	})
}

func TestEvaluate(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		want string
	}{
		{name: "string", src: "args.name", want: "run1"},
		{name: "function", src: `upper(args.name)`, want: "RUN1"},
		{name: "number", src: "length(args.tags)", want: "2"},
		{name: "template", src: `f"{args.name}-{args.threads}"`, want: "run1-4"},
		{name: "list", src: "args.tags", want: "- a\n- b"},
		{name: "bool", src: "args.name == \"run1\"", want: "true"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Evaluate(testVars(), tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	_, err := Evaluate(testVars(), "args.missing")
	require.ErrorIs(t, err, expr.ErrEvaluate)

	_, err = Evaluate(testVars(), "upper(")
	require.ErrorIs(t, err, expr.ErrEvaluate)

	_, err = Evaluate(testVars(), `f"{nothing.here}"`)
	var ee *expr.EvalError
	require.ErrorAs(t, err, &ee)
}

func TestCompleter(t *testing.T) {
	c := completer(testVars())

	assert.Equal(t, []string{"args"}, c("ar"))
	assert.Equal(t, []string{"upper(args"}, c("upper(ar"))
	assert.Contains(t, c("up"), "upper")
	assert.Empty(t, c("zzz"))
}

func writeConfig(t *testing.T) (string, string, string) {
	t.Helper()

	root := t.TempDir()
	cfg := filepath.Join(root, "cfg")
	require.NoError(t, os.MkdirAll(cfg, 0o755))

	files := map[string]string{
		config.MachinesFile: "local:\n  binaries:\n    printer: echo\n",
		config.ModulesFile:  "sequence: [hello]\nhello:\n  commands:\n    before_batch: [greet]\n",
		config.CommandsFile: "greet: 'f\"{programs.printer} hi\"'\n",
		config.ArgsFile:     "threads: 4\n",
	}

	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(cfg, name), []byte(content), 0o644))
	}

	return cfg, filepath.Join(root, "in"), filepath.Join(root, "out")
}

func newEvalCmd(out io.Writer) *cli.Command {
	return &cli.Command{
		Name: "eval",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: exprArg},
		},
		Flags: append(runflags.Flags(),
			&cli.BoolFlag{Name: interactiveFlag},
			&cli.StringFlag{Name: sampleFlag},
		),
		Action:         actionFunc,
		Writer:         out,
		ErrWriter:      io.Discard,
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}

func TestEvalCmd(t *testing.T) {
	cfg, in, out := writeConfig(t)
	buf := new(bytes.Buffer)

	err := newEvalCmd(buf).Run(context.Background(), []string{
		"eval", "-c", cfg, "-m", "hello", "-i", in, "-o", out, "--machine", "local",
		"--set", "threads=8",
		`f"{programs.printer} {args.threads} {args.machine}"`,
	})
	require.NoError(t, err)
	assert.Equal(t, "echo 8 local\n", buf.String())
}

func TestEvalCmd_Errors(t *testing.T) {
	cfg, in, out := writeConfig(t)

	err := newEvalCmd(io.Discard).Run(context.Background(), []string{"eval", "-c", cfg})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrNothingToEvaluate.Error())

	err = newEvalCmd(io.Discard).Run(context.Background(), []string{
		"eval", "-c", cfg, "-m", "hello", "-m", "other", "-i", in, "-o", out, "--machine", "local", "args",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrOneModule.Error())

	err = newEvalCmd(io.Discard).Run(context.Background(), []string{
		"eval", "-c", cfg, "-m", "hello", "-i", in, "-o", out, "--machine", "local", "nothing.here",
	})
	require.Error(t, err)
}

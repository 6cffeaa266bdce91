// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package eval contains the eval command, which evaluates expressions and templates
// against a module's variables.
package eval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/matt-FFFFFF/pipeframe/cmd/pipeframe/runflags"
	"github.com/matt-FFFFFF/pipeframe/internal/ctxlog"
	"github.com/matt-FFFFFF/pipeframe/internal/expr"
	"github.com/matt-FFFFFF/pipeframe/internal/pipeline"
	"github.com/peterh/liner"
	"github.com/urfave/cli/v3"
)

const (
	exprArg         = "expression"
	interactiveFlag = "interactive"
	sampleFlag      = "sample"
	cliExitStr      = ""
	prompt          = "eval> "
)

var (
	// ErrNothingToEvaluate is returned when neither an expression nor --interactive is given.
	ErrNothingToEvaluate = errors.New("provide an expression or use --interactive")
	// ErrOneModule is returned when more or less than one module is selected.
	ErrOneModule = errors.New("eval needs exactly one module")
)

// EvalCmd evaluates expressions against a module's variables.
var EvalCmd = &cli.Command{
	Name:  "eval",
	Usage: "Evaluate an expression or template against a module's variables",
	Description: `Evaluate an expression in the context a module's commands are expanded in.

The folders, programs and args namespaces are always available. With --sample the
sample and filenames namespaces are bound for that sample path too.

Input of the form f"..." is treated as a template and rendered to a string, anything
else is evaluated as an expression, e.g. folders.output_dir or upper(args.machine).`,
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      exprArg,
			UsageText: "[EXPRESSION]",
		},
	},
	Flags: append(runflags.Flags(),
		&cli.BoolFlag{
			Name:        interactiveFlag,
			Aliases:     []string{"I"},
			Usage:       "Start an interactive prompt",
			DefaultText: "false",
			OnlyOnce:    true,
		},
		&cli.StringFlag{
			Name:      sampleFlag,
			Aliases:   []string{"s"},
			Usage:     "Bind the sample and filenames namespaces for this sample path",
			TakesFile: true,
			OnlyOnce:  true,
		},
	),
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)

	src := strings.TrimSpace(cmd.StringArg(exprArg))
	interactive := cmd.Bool(interactiveFlag)

	if src == "" && !interactive {
		return cli.Exit(ErrNothingToEvaluate.Error(), 1)
	}

	cfg, opts, cleanup, err := runflags.Load(ctx, cmd)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to load configuration: %s", err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	defer cleanup()

	if len(opts.Modules) != 1 {
		return cli.Exit(ErrOneModule.Error(), 1)
	}

	vars, err := pipeline.New(cfg, opts).ModuleContext(opts.Modules[0], cmd.String(sampleFlag))
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to build module context: %s", err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	if src != "" {
		out, err := Evaluate(vars, src)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}

		fmt.Fprintln(cmd.Writer, out) //nolint:errcheck
	}

	if interactive {
		return repl(cmd.Writer, vars)
	}

	return nil
}

// Evaluate renders src: a template when it has the f"..." form, an expression otherwise.
// Collections are rendered as YAML.
func Evaluate(vars *expr.Context, src string) (string, error) {
	if expr.IsComputed(src) {
		return vars.Evaluate("eval", src)
	}

	v, err := vars.EvaluateExpression(src)
	if err != nil {
		return "", err
	}

	switch g := expr.ToGo(v).(type) {
	case nil:
		return "null", nil
	case string:
		return g, nil
	case map[string]any, []any:
		b, err := yaml.MarshalWithOptions(g, yaml.IndentSequence(true))
		if err != nil {
			return "", err
		}

		return strings.TrimRight(string(b), "\n"), nil
	default:
		return fmt.Sprint(g), nil
	}
}

// repl reads expressions until quit, exit or Ctrl+C.
func repl(w io.Writer, vars *expr.Context) error {
	line := liner.NewLiner()
	defer func() {
		_ = line.Close()
	}()

	line.SetCtrlCAborts(true)
	line.SetCompleter(completer(vars))

	fmt.Fprintln(w, "Entering interactive mode, type `quit` or `exit` or press Ctrl+C to leave.") //nolint:errcheck

	fmt.Fprintf(w, "Namespaces: %s\n", strings.Join(vars.Namespaces(), ", ")) //nolint:errcheck

	for {
		input, err := line.Prompt(prompt)

		switch {
		case errors.Is(err, liner.ErrPromptAborted), errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("error reading line: %w", err)
		}

		input = strings.TrimSpace(input)

		switch input {
		case "":
			continue
		case "quit", "exit":
			return nil
		}

		line.AppendHistory(input)

		out, err := Evaluate(vars, input)
		if err != nil {
			fmt.Fprintln(w, err.Error()) //nolint:errcheck
			continue
		}

		fmt.Fprintln(w, out) //nolint:errcheck
	}
}

// completer offers namespace and function names for the word being typed.
func completer(vars *expr.Context) liner.Completer {
	words := append(vars.Namespaces(), slices.Sorted(maps.Keys(expr.Functions))...)

	return func(line string) []string {
		start := strings.LastIndexAny(line, " (,{") + 1
		prefix, word := line[:start], line[start:]

		var out []string

		for _, cand := range words {
			if strings.HasPrefix(cand, word) {
				out = append(out, prefix+cand)
			}
		}

		return out
	}
}

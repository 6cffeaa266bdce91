// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package expr

import (
	"path/filepath"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Functions is the complete set of functions callable from a computed template.
var Functions = map[string]function.Function{
	"path_join":  PathJoinFunc,
	"basename":   pathFunc(filepath.Base),
	"dirname":    pathFunc(filepath.Dir),
	"stem":       pathFunc(stem),
	"strip_ext":  pathFunc(stripExt),
	"ext":        pathFunc(filepath.Ext),
	"abspath":    AbsPathFunc,
	"upper":      stdlib.UpperFunc,
	"lower":      stdlib.LowerFunc,
	"replace":    stdlib.ReplaceFunc,
	"trimprefix": stdlib.TrimPrefixFunc,
	"trimsuffix": stdlib.TrimSuffixFunc,
	"trimspace":  stdlib.TrimSpaceFunc,
	"split":      stdlib.SplitFunc,
	"join":       stdlib.JoinFunc,
	"format":     stdlib.FormatFunc,
	"concat":     stdlib.ConcatFunc,
	"coalesce":   stdlib.CoalesceFunc,
	"length":     stdlib.LengthFunc,
	"substr":     stdlib.SubstrFunc,
}

// PathJoinFunc joins path elements with the OS separator. A trailing separator on the
// last element is kept, so folder values stay folders.
var PathJoinFunc = function.New(&function.Spec{
	Description: "Joins path elements.",
	VarParam: &function.Parameter{
		Name: "elems",
		Type: cty.String,
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		if len(args) == 0 {
			return cty.StringVal(""), nil
		}

		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.AsString()
		}

		joined := filepath.Join(parts...)

		last := parts[len(parts)-1]
		if strings.HasSuffix(last, "/") || strings.HasSuffix(last, string(filepath.Separator)) {
			joined += string(filepath.Separator)
		}

		return cty.StringVal(joined), nil
	},
})

// AbsPathFunc returns the absolute form of a path.
var AbsPathFunc = function.New(&function.Spec{
	Description: "Returns an absolute path.",
	Params: []function.Parameter{
		{Name: "path", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		abs, err := filepath.Abs(args[0].AsString())
		if err != nil {
			return cty.UnknownVal(cty.String), err
		}

		return cty.StringVal(abs), nil
	},
})

func pathFunc(fn func(string) string) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "path", Type: cty.String},
		},
		Type: function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return cty.StringVal(fn(args[0].AsString())), nil
		},
	})
}

func stripExt(p string) string {
	return strings.TrimSuffix(p, filepath.Ext(p))
}

func stem(p string) string {
	return stripExt(filepath.Base(p))
}

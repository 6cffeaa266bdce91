// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package expr

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Namespace names bound by the pipeline.
const (
	NamespaceFolders   = "folders"
	NamespacePrograms  = "programs"
	NamespaceArgs      = "args"
	NamespaceFilenames = "filenames"
	NamespaceSample    = "sample"
)

// Context is an immutable set of namespaces visible to templates.
type Context struct {
	vars map[string]cty.Value
}

// NewContext converts the given Go values into a Context.
func NewContext(namespaces map[string]any) *Context {
	vars := make(map[string]cty.Value, len(namespaces))
	for k, v := range namespaces {
		vars[k] = FromGo(v)
	}

	return &Context{vars: vars}
}

// With returns a copy of c with name bound to value. c itself is unchanged.
func (c *Context) With(name string, value any) *Context {
	vars := make(map[string]cty.Value, len(c.vars)+1)
	maps.Copy(vars, c.vars)
	vars[name] = FromGo(value)

	return &Context{vars: vars}
}

// Namespaces returns the bound names in sorted order.
func (c *Context) Namespaces() []string {
	return slices.Sorted(maps.Keys(c.vars))
}

// Value returns the value bound to name.
func (c *Context) Value(name string) (cty.Value, bool) {
	v, ok := c.vars[name]
	return v, ok
}

func (c *Context) evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: c.vars,
		Functions: Functions,
	}
}

// Evaluate resolves raw. Literal templates are returned verbatim; computed templates
// are evaluated and must yield a known, non-null value convertible to a string.
// key identifies the template in errors.
func (c *Context) Evaluate(key, raw string) (string, error) {
	if !IsComputed(raw) {
		return raw, nil
	}

	s, err := c.eval(body(raw))
	if err != nil {
		return "", &EvalError{Key: key, Instruction: raw, Err: err}
	}

	return s, nil
}

// EvaluateExpression evaluates a bare HCL expression, as typed in the eval REPL.
func (c *Context) EvaluateExpression(src string) (cty.Value, error) {
	e, diags := hclsyntax.ParseExpression([]byte(src), "<expr>", hcl.InitialPos)
	if diags.HasErrors() {
		return cty.NilVal, errors.Join(ErrEvaluate, diags)
	}

	v, diags := e.Value(c.evalContext())
	if diags.HasErrors() {
		return cty.NilVal, errors.Join(ErrEvaluate, explain(e, diags))
	}

	return v, nil
}

// explain replaces the numeric conversion diagnostic HCL reports for "a" + "b" with
// ErrStringAddition.
func explain(e hclsyntax.Expression, diags hcl.Diagnostics) error {
	adds := make(map[hcl.Range]bool)

	hclsyntax.VisitAll(e, func(n hclsyntax.Node) hcl.Diagnostics {
		if b, ok := n.(*hclsyntax.BinaryOpExpr); ok && b.Op == hclsyntax.OpAdd {
			adds[b.SrcRange] = true
		}

		return nil
	})

	for _, d := range diags {
		if d.Context != nil && adds[*d.Context] {
			return fmt.Errorf("%w: %w", ErrMalformed, ErrStringAddition)
		}
	}

	return diags
}

func (c *Context) eval(src string) (string, error) {
	tmpl, err := toHCLTemplate(src)
	if err != nil {
		return "", err
	}

	e, diags := hclsyntax.ParseTemplate([]byte(tmpl), "<template>", hcl.InitialPos)
	if diags.HasErrors() {
		return "", diags
	}

	v, diags := e.Value(c.evalContext())
	if diags.HasErrors() {
		return "", explain(e, diags)
	}

	switch {
	case !v.IsWhollyKnown():
		return "", fmt.Errorf("%w: value is unknown", ErrResult)
	case v.IsNull():
		return "", fmt.Errorf("%w: value is null", ErrResult)
	}

	sv, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrResult, err.Error())
	}

	return sv.AsString(), nil
}

// FromGo converts plain Go values, as decoded from YAML, into cty values.
// Maps become objects, slices become tuples; anything else is formatted as a string.
func FromGo(v any) cty.Value {
	switch t := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType)
	case cty.Value:
		return t
	case string:
		return cty.StringVal(t)
	case bool:
		return cty.BoolVal(t)
	case int:
		return cty.NumberIntVal(int64(t))
	case int64:
		return cty.NumberIntVal(t)
	case uint64:
		return cty.NumberUIntVal(t)
	case float64:
		return cty.NumberFloatVal(t)
	case map[string]string:
		m := make(map[string]any, len(t))
		for k, s := range t {
			m[k] = s
		}

		return FromGo(m)
	case map[string]any:
		if len(t) == 0 {
			return cty.EmptyObjectVal
		}

		attrs := make(map[string]cty.Value, len(t))
		for k, e := range t {
			attrs[k] = FromGo(e)
		}

		return cty.ObjectVal(attrs)
	case yaml.MapSlice:
		m := make(map[string]any, len(t))
		for _, item := range t {
			m[fmt.Sprint(item.Key)] = item.Value
		}

		return FromGo(m)
	case []string:
		elems := make([]any, len(t))
		for i, s := range t {
			elems[i] = s
		}

		return FromGo(elems)
	case []any:
		if len(t) == 0 {
			return cty.EmptyTupleVal
		}

		elems := make([]cty.Value, len(t))
		for i, e := range t {
			elems[i] = FromGo(e)
		}

		return cty.TupleVal(elems)
	default:
		return cty.StringVal(fmt.Sprint(t))
	}
}

// ToGo converts a cty value back into plain Go values for display.
func ToGo(v cty.Value) any {
	if v.IsNull() || !v.IsKnown() {
		return nil
	}

	ty := v.Type()

	switch {
	case ty == cty.String:
		return v.AsString()
	case ty == cty.Bool:
		return v.True()
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if i, acc := bf.Int64(); acc == 0 {
			return i
		}

		f, _ := bf.Float64()

		return f
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			k, e := it.Element()
			out[k.AsString()] = ToGo(e)
		}

		return out
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, e := it.Element()
			out = append(out, ToGo(e))
		}

		return out
	default:
		return v.GoString()
	}
}

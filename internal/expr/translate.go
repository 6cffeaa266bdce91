// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package expr

import (
	"errors"
	"fmt"
	"strings"
)

// IsComputed reports whether raw is a computed template: f"..." or f'...'.
func IsComputed(raw string) bool {
	if len(raw) < 3 || raw[0] != 'f' {
		return false
	}

	q := raw[1]
	if q != '"' && q != '\'' {
		return false
	}

	return raw[len(raw)-1] == q
}

// body strips the f-quote marker. raw must satisfy IsComputed.
func body(raw string) string {
	return raw[2 : len(raw)-1]
}

// toHCLTemplate rewrites an interpolated body into HCL template syntax.
func toHCLTemplate(src string) (string, error) {
	var (
		out strings.Builder
		lit strings.Builder
	)

	flush := func(beforeExpr bool) {
		s := lit.String()
		lit.Reset()

		var tail string
		if beforeExpr {
			trimmed := strings.TrimRight(s, "$%")
			tail = s[len(trimmed):]
			s = trimmed
		}

		s = strings.ReplaceAll(s, "${", "$${")
		s = strings.ReplaceAll(s, "%{", "%%{")
		out.WriteString(s)

		// a '$' or '%' right before an interpolation would otherwise read as an escape
		for _, r := range tail {
			out.WriteString(`${"` + string(r) + `"}`)
		}
	}

	for i := 0; i < len(src); {
		c := src[i]

		switch {
		case c == '{' && i+1 < len(src) && src[i+1] == '{':
			lit.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(src) && src[i+1] == '}':
			lit.WriteByte('}')
			i += 2
		case c == '}':
			return "", fmt.Errorf("%w: single '}' at offset %d", ErrMalformed, i)
		case c == '{':
			end, err := matchBrace(src, i)
			if err != nil {
				return "", err
			}

			inner := strings.TrimSpace(src[i+1 : end])
			if inner == "" {
				return "", fmt.Errorf("%w: empty expression at offset %d", ErrMalformed, i)
			}

			flush(true)
			out.WriteString("${")
			out.WriteString(requote(inner))
			out.WriteString("}")

			i = end + 1
		default:
			lit.WriteByte(c)
			i++
		}
	}

	flush(false)

	return out.String(), nil
}

// matchBrace returns the index of the '}' closing the '{' at start, skipping quoted strings.
func matchBrace(src string, start int) (int, error) {
	depth := 0

	for i := start; i < len(src); i++ {
		switch c := src[i]; c {
		case '\'', '"':
			j, err := skipString(src, i)
			if err != nil {
				return 0, err
			}

			i = j
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}

	return 0, fmt.Errorf("%w: expecting '}' for '{' at offset %d", ErrMalformed, start)
}

// skipString returns the index of the quote closing the string opened at start.
func skipString(src string, start int) (int, error) {
	q := src[start]

	for i := start + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case q:
			return i, nil
		}
	}

	return 0, errors.Join(ErrMalformed, fmt.Errorf("unterminated string at offset %d", start))
}

// requote converts single-quoted string literals into HCL double-quoted ones and
// escapes template sequences inside every literal so that they stay literal.
func requote(expr string) string {
	var out strings.Builder

	for i := 0; i < len(expr); i++ {
		c := expr[i]
		if c != '\'' && c != '"' {
			out.WriteByte(c)
			continue
		}

		end, err := skipString(expr, i)
		if err != nil {
			// matchBrace already validated quoting; keep the rest for the parser to report
			out.WriteString(expr[i:])
			break
		}

		out.WriteByte('"')

		for j := i + 1; j < end; j++ {
			ch := expr[j]

			switch {
			case ch == '\\' && j+1 < end:
				if expr[j+1] == '\'' {
					out.WriteByte('\'')
				} else {
					out.WriteByte(ch)
					out.WriteByte(expr[j+1])
				}

				j++
			case ch == '"' && c == '\'':
				out.WriteString(`\"`)
			case (ch == '$' || ch == '%') && j+1 < end && expr[j+1] == '{':
				out.WriteByte(ch)
				out.WriteByte(ch)
			default:
				out.WriteByte(ch)
			}
		}

		out.WriteByte('"')

		i = end
	}

	return out.String()
}

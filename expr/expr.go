// Package expr evaluates the `{...}` host-side field substitutions and the
// condition expressions used by the if/elif/while keyword family (§4.4,
// §6 KeywordCode handling), using github.com/dop251/goja as the embedded
// JavaScript engine, the same engine the rest of the corpus embeds for
// scripting (see the goja-eventloop/goja-grpc adapters for the wiring
// idiom this package follows: one goja.Runtime per evaluation scope, with
// host state bound in via Runtime.Set).
package expr

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dop251/goja"
)

// Fields is the host-provided variable environment: object-model fields
// plus any macro-local variables declared via the var/set keywords.
type Fields map[string]any

// Evaluator runs expressions against a Fields environment. It is not safe
// for concurrent use; callers needing concurrent evaluation should use one
// Evaluator per goroutine (construction is cheap).
type Evaluator struct {
	rt *goja.Runtime
}

// New constructs an Evaluator.
func New() *Evaluator {
	return &Evaluator{rt: goja.New()}
}

func (e *Evaluator) bind(fields Fields) error {
	for k, v := range fields {
		if err := e.rt.Set(k, v); err != nil {
			return fmt.Errorf("expr: binding %q: %w", k, err)
		}
	}
	return nil
}

// Bool evaluates src (the argument of an if/elif/while keyword) against
// fields and coerces the result to a boolean using JavaScript truthiness.
func (e *Evaluator) Bool(src string, fields Fields) (bool, error) {
	if err := e.bind(fields); err != nil {
		return false, err
	}
	v, err := e.rt.RunString(src)
	if err != nil {
		return false, fmt.Errorf("expr: evaluating %q: %w", src, err)
	}
	return v.ToBoolean(), nil
}

// Value evaluates src and returns its exported Go value, for var/set
// keyword assignments.
func (e *Evaluator) Value(src string, fields Fields) (any, error) {
	if err := e.bind(fields); err != nil {
		return nil, err
	}
	v, err := e.rt.RunString(src)
	if err != nil {
		return nil, fmt.Errorf("expr: evaluating %q: %w", src, err)
	}
	return v.Export(), nil
}

var substitutionPattern = regexp.MustCompile(`\{([^{}]*)\}`)

// Substitute replaces every `{expr}` span in s with the string form of its
// evaluation against fields, per the echo/M291 message formatting rule in
// §6. A span that fails to evaluate is left verbatim, wrapped in the
// original braces, so a single bad field does not void the whole message.
func (e *Evaluator) Substitute(s string, fields Fields) string {
	return substitutionPattern.ReplaceAllStringFunc(s, func(span string) string {
		inner := strings.TrimSpace(span[1 : len(span)-1])
		if inner == "" {
			return span
		}
		v, err := e.Value(inner, fields)
		if err != nil {
			return span
		}
		return fmt.Sprint(v)
	})
}

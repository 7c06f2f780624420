// Package validate compiles expression-language predicates into engine
// validators. Expressions see the candidate value as `value` and must
// evaluate to a boolean, e.g. `value.Count >= 0 && value.Theme != ""`.
package validate

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Expr compiles source into a predicate over T. The compiled program runs
// against an environment exposing the candidate as "value"; a runtime
// failure counts as rejection rather than an error, matching the one-shot
// repair-or-keep role validators play.
func Expr[T any](source string) (func(T) bool, error) {
	program, err := expr.Compile(source, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile validator %q: %w", source, err)
	}
	return func(value T) bool {
		return runBool(program, map[string]any{"value": value})
	}, nil
}

func runBool(program *vm.Program, env map[string]any) bool {
	out, err := expr.Run(program, env)
	if err != nil {
		return false
	}
	ok, isBool := out.(bool)
	return isBool && ok
}

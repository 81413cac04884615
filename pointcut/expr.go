/*
 * Copyright 2024 The WeaveGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package pointcut

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/weavego/weavego/api/types"
)

// Expression is a pointcut whose predicate is an expr expression evaluated
// against the candidate join point. Available variables:
//
//   - methodName: name of the candidate method
//   - typeName:   name of the concrete target type (without package)
//   - pkgPath:    import path of the target type
//   - numArgs:    number of call arguments (dynamic phase only)
//   - args:       the live call arguments (dynamic phase only)
//
// An expression referencing `args` is a dynamic matcher, re-evaluated per call
// with the live arguments; any other expression is static and evaluated once
// per (method, target type).
//
// Expression 是以 expr 表达式作为谓词的切入点，对候选连接点求值。
// 引用 `args` 的表达式是动态匹配器，每次调用都用实时参数重新求值；
// 其他表达式是静态的，每个（方法，目标类型）只求值一次。
//
// Example:
//
//	p, _ := pointcut.NewExpression(`methodName matches "^Find" && args[0] > 10`)
type Expression struct {
	expression string
	program    *vm.Program
	dynamic    bool
}

// NewExpression compiles an expression pointcut. Compilation failures surface
// immediately as configuration errors.
// NewExpression 编译表达式切入点。编译失败立即作为配置错误暴露。
func NewExpression(expression string) (*Expression, error) {
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrPointcutEvaluation, expression, err)
	}
	return &Expression{
		expression: expression,
		program:    program,
		dynamic:    strings.Contains(expression, "args"),
	}, nil
}

// Expression returns the source text of the pointcut expression.
func (p *Expression) Expression() string { return p.expression }

func (p *Expression) ClassFilter() types.ClassFilter     { return TrueClassFilter }
func (p *Expression) MethodMatcher() types.MethodMatcher { return p }

func (p *Expression) Matches(method reflect.Method, targetType reflect.Type) bool {
	if p.dynamic {
		// Deferred to MatchesArgs with the live arguments.
		return true
	}
	return p.evaluate(p.staticEnv(method, targetType))
}

func (p *Expression) IsRuntime() bool { return p.dynamic }

func (p *Expression) MatchesArgs(method reflect.Method, targetType reflect.Type, args []interface{}) bool {
	env := p.staticEnv(method, targetType)
	env["numArgs"] = len(args)
	env["args"] = args
	return p.evaluate(env)
}

func (p *Expression) staticEnv(method reflect.Method, targetType reflect.Type) map[string]interface{} {
	indirect := targetType
	for indirect != nil && indirect.Kind() == reflect.Ptr {
		indirect = indirect.Elem()
	}
	env := map[string]interface{}{
		"methodName": method.Name,
	}
	if indirect != nil {
		env["typeName"] = indirect.Name()
		env["pkgPath"] = indirect.PkgPath()
	}
	return env
}

// evaluate runs the program. A failing predicate must never be read as a
// silent non-match, so evaluation errors panic and are surfaced as
// ErrPointcutEvaluation by the chain resolver.
func (p *Expression) evaluate(env map[string]interface{}) bool {
	var v vm.VM
	out, err := v.Run(p.program, env)
	if err != nil {
		panic(fmt.Errorf("%w: %s: %v", types.ErrPointcutEvaluation, p.expression, err))
	}
	matched, ok := out.(bool)
	if !ok {
		panic(fmt.Errorf("%w: %s: result is %T, not bool", types.ErrPointcutEvaluation, p.expression, out))
	}
	return matched
}
